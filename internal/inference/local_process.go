package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// LocalProcess runs the inference worker as a fresh subprocess per call. The
// request is written to the worker's stdin as a single JSON document; the
// worker answers with one JSON document on stdout, or diagnostic text on
// stderr and a non-zero exit code.
//
// Concurrent spawns are bounded by a fixed pool of slots so a burst of
// requests cannot fork an unbounded number of workers; waiters queue on the
// slot channel and honor context cancellation.
type LocalProcess struct {
	command string
	args    []string
	slots   chan struct{}
}

func NewLocalProcess(command string, args []string, maxProcs int) *LocalProcess {
	if maxProcs < 1 {
		maxProcs = 1
	}

	slots := make(chan struct{}, maxProcs)
	for i := 0; i < maxProcs; i++ {
		slots <- struct{}{}
	}

	return &LocalProcess{command: command, args: args, slots: slots}
}

// workerReply is the worker's stdout document. A populated Error field marks
// a worker-level failure even when the process exits zero.
type workerReply struct {
	Reply
	Error string `json:"error"`
}

func (p *LocalProcess) Infer(ctx context.Context, req Request) (*Reply, error) {
	select {
	case <-p.slots:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for inference worker slot: %w", ctx.Err())
	}
	defer func() { p.slots <- struct{}{} }()

	if req.Meta == nil {
		req.Meta = map[string]float64{}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error serializing inference request: %w", err)
	}

	start := time.Now()

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("inference worker canceled: %w", ctx.Err())
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		slog.Error("inference worker failed", "command", p.command, "error", detail)
		return nil, fmt.Errorf("inference worker failed: %s", detail)
	}

	var reply workerReply
	if err := json.Unmarshal(stdout.Bytes(), &reply); err != nil {
		return nil, fmt.Errorf("malformed reply from inference worker: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("inference worker error: %s", reply.Error)
	}

	slog.Info("local inference complete", "samples", len(req.Time), "runtime_ms", time.Since(start).Milliseconds())

	return &reply.Reply, nil
}
