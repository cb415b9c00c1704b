package inference

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("worker stubs use /bin/sh")
	}
}

func shellWorker(script string, maxProcs int) *LocalProcess {
	return NewLocalProcess("/bin/sh", []string{"-c", script}, maxProcs)
}

func sampleRequest() Request {
	return Request{
		Time: []float64{1500.0, 1500.1, 1500.2},
		Flux: []float64{1.0, 0.999, 1.0},
		Meta: map[string]float64{"tmag": 10.5},
	}
}

func TestLocalProcessHappyPath(t *testing.T) {
	requireShell(t)

	worker := shellWorker(`cat > /dev/null; printf '{"score":0.91,"period_days":3.5,"duration_hours":2.4,"depth_ppm":1200,"snr":9.3,"t0":1501.2,"warnings":["short baseline"]}'`, 2)

	reply, err := worker.Infer(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, 0.91, reply.Score)
	assert.Equal(t, 3.5, reply.PeriodDays)
	assert.Equal(t, 2.4, reply.DurationHours)
	assert.Equal(t, 1200.0, reply.DepthPpm)
	assert.Equal(t, 9.3, reply.SNR)
	assert.Equal(t, 1501.2, reply.T0)
	assert.Equal(t, []string{"short baseline"}, reply.Warnings)
}

func TestLocalProcessWritesRequestToStdin(t *testing.T) {
	requireShell(t)

	captured := filepath.Join(t.TempDir(), "request.json")
	worker := shellWorker(`cat > `+captured+`; printf '{"score":0.5,"period_days":1,"depth_ppm":100}'`, 1)

	_, err := worker.Infer(context.Background(), sampleRequest())
	require.NoError(t, err)

	data, err := os.ReadFile(captured)
	require.NoError(t, err)

	var seen map[string]any
	require.NoError(t, json.Unmarshal(data, &seen))
	assert.Contains(t, seen, "time")
	assert.Contains(t, seen, "flux")
	assert.Contains(t, seen, "meta")
	// The catalog id is transport routing state, never part of the protocol.
	assert.NotContains(t, seen, "TicID")
}

func TestLocalProcessStderrSurfacesInError(t *testing.T) {
	requireShell(t)

	worker := shellWorker(`cat > /dev/null; echo "boom" >&2; exit 1`, 1)

	_, err := worker.Infer(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "inference worker failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestLocalProcessMalformedStdout(t *testing.T) {
	requireShell(t)

	worker := shellWorker(`cat > /dev/null; echo "Traceback (most recent call last):"`, 1)

	_, err := worker.Infer(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed reply")
}

func TestLocalProcessWorkerErrorField(t *testing.T) {
	requireShell(t)

	worker := shellWorker(`cat > /dev/null; printf '{"error":"model file missing"}'`, 1)

	_, err := worker.Infer(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file missing")
}

func TestLocalProcessNilMetaSentAsEmptyObject(t *testing.T) {
	requireShell(t)

	captured := filepath.Join(t.TempDir(), "request.json")
	worker := shellWorker(`cat > `+captured+`; printf '{"score":0.5}'`, 1)

	req := sampleRequest()
	req.Meta = nil
	_, err := worker.Infer(context.Background(), req)
	require.NoError(t, err)

	data, err := os.ReadFile(captured)
	require.NoError(t, err)

	var seen struct {
		Meta map[string]float64 `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(data, &seen))
	assert.NotNil(t, seen.Meta)
}

func TestLocalProcessCanceledContext(t *testing.T) {
	requireShell(t)

	worker := shellWorker(`sleep 30`, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := worker.Infer(ctx, sampleRequest())
	require.Error(t, err)
}
