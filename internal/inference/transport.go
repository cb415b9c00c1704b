package inference

import "context"

// Request is the normalized payload sent to the inference engine regardless of
// transport. TicID is set only for catalog-sourced analyses; the remote
// transport uses it to route through the by-id endpoint, the local transport
// ignores it.
type Request struct {
	Time    []float64          `json:"time"`
	Flux    []float64          `json:"flux"`
	FluxErr []float64          `json:"flux_err"`
	Meta    map[string]float64 `json:"meta"`
	TicID   string             `json:"-"`
}

// Reply is the transport-agnostic inference result. A reply with
// PeriodDays <= 0 means the engine found no usable candidate; callers treat
// that as zero detections, not a failure.
type Reply struct {
	Score         float64            `json:"score"`
	PeriodDays    float64            `json:"period_days"`
	DurationHours float64            `json:"duration_hours"`
	DepthPpm      float64            `json:"depth_ppm"`
	SNR           float64            `json:"snr"`
	T0            float64            `json:"t0"`
	Features      map[string]float64 `json:"features"`
	Warnings      []string           `json:"warnings"`
}

// Transport invokes the external inference engine. Implementations are chosen
// once at startup; the orchestrator never inspects which one is active.
type Transport interface {
	Infer(ctx context.Context, req Request) (*Reply, error)
}
