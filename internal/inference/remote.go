package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteService talks to the remote inference HTTP service. Catalog-sourced
// requests go through GET /predict/by_id, uploads post the raw series to
// POST /predict/from_series; both paths normalize into the same Reply.
//
// Two base URLs may be configured. A short health probe against the primary
// decides which endpoint to use; the decision sticks until a transport error
// forces a re-probe.
type RemoteService struct {
	client       *resty.Client
	primaryURL   string
	fallbackURL  string
	probeTimeout time.Duration

	mu       sync.Mutex
	resolved string
}

func NewRemoteService(primaryURL, fallbackURL string, probeTimeout time.Duration) *RemoteService {
	return &RemoteService{
		client:       resty.New(),
		primaryURL:   primaryURL,
		fallbackURL:  fallbackURL,
		probeTimeout: probeTimeout,
	}
}

// remoteReply mirrors the service's response body. Summary fields are
// pointers: the service omits them when no candidate was found, which must
// map to zero detections rather than an error. The echoed target id is not
// read: some deployments return it as a number and others as a string, and
// the caller already knows which target it asked about.
type remoteReply struct {
	Score   float64 `json:"score"`
	Summary struct {
		PeriodDays    *float64 `json:"period_days"`
		DurationHours *float64 `json:"duration_hours"`
		DepthPpm      *float64 `json:"depth_ppm"`
		SNR           *float64 `json:"snr"`
		T0BTJD        *float64 `json:"t0_btjd"`
	} `json:"summary"`
	Features map[string]*float64 `json:"features"`
	Warnings []string            `json:"warnings"`
	Meta     struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

type remoteError struct {
	Detail  string `json:"detail"`
	Message string `json:"error"`
}

func (s *RemoteService) Infer(ctx context.Context, req Request) (*Reply, error) {
	baseURL := s.endpoint(ctx)

	r := s.client.R().SetContext(ctx)

	var res *resty.Response
	var err error
	if req.TicID != "" {
		res, err = r.SetQueryParam("id", req.TicID).Get(baseURL + "/predict/by_id")
	} else {
		body := map[string]any{"time": req.Time, "flux": req.Flux}
		if req.FluxErr != nil {
			body["flux_err"] = req.FluxErr
		}
		res, err = r.SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(baseURL + "/predict/from_series")
	}

	if err != nil {
		s.invalidate()
		return nil, fmt.Errorf("error calling inference service: %w", err)
	}

	if !res.IsSuccess() {
		var remoteErr remoteError
		if err := json.Unmarshal(res.Body(), &remoteErr); err == nil {
			if remoteErr.Detail != "" {
				return nil, fmt.Errorf("inference service returned %d: %s", res.StatusCode(), remoteErr.Detail)
			}
			if remoteErr.Message != "" {
				return nil, fmt.Errorf("inference service returned %d: %s", res.StatusCode(), remoteErr.Message)
			}
		}
		return nil, fmt.Errorf("inference service returned status %d", res.StatusCode())
	}

	var body remoteReply
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return nil, fmt.Errorf("malformed reply from inference service: %w", err)
	}

	reply := &Reply{
		Score:         body.Score,
		PeriodDays:    deref(body.Summary.PeriodDays),
		DurationHours: deref(body.Summary.DurationHours),
		DepthPpm:      deref(body.Summary.DepthPpm),
		SNR:           deref(body.Summary.SNR),
		T0:            deref(body.Summary.T0BTJD),
		Features:      map[string]float64{},
		Warnings:      body.Warnings,
	}
	for key, value := range body.Features {
		if value != nil {
			reply.Features[key] = *value
		}
	}

	slog.Info("remote inference complete", "endpoint", baseURL, "request_id", body.Meta.RequestID)

	return reply, nil
}

// endpoint returns the base URL to use, probing the primary's health route
// with a short timeout the first time around.
func (s *RemoteService) endpoint(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved != "" {
		return s.resolved
	}
	if s.fallbackURL == "" {
		s.resolved = s.primaryURL
		return s.resolved
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	res, err := s.client.R().SetContext(probeCtx).Get(s.primaryURL + "/health")
	if err == nil && res.IsSuccess() {
		s.resolved = s.primaryURL
	} else {
		slog.Warn("primary inference endpoint unhealthy, using fallback", "primary", s.primaryURL, "fallback", s.fallbackURL)
		s.resolved = s.fallbackURL
	}
	return s.resolved
}

func (s *RemoteService) invalidate() {
	s.mu.Lock()
	s.resolved = ""
	s.mu.Unlock()
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
