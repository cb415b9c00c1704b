package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"transit-backend/internal/inference"
	"transit-backend/internal/lcstore"
	"transit-backend/pkg/models"
)

// Validation failures surfaced to the API layer. Acquisition and inference
// failures are not errors: they resolve to an AnalysisResult with
// status=failed so callers always get an inspectable value.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInsufficientData = errors.New("insufficient data")
)

// UploadTicID marks the synthesized target of upload-sourced analyses.
const UploadTicID = "upload"

type Options struct {
	// MinSamples is the smallest series accepted for analysis. The
	// 200-sample default matches the feature pipeline's floor.
	MinSamples int

	// MinDepthPpm is the depth significance floor below which an inference
	// reply is treated as a non-detection.
	MinDepthPpm float64

	// MaxSeriesPoints caps the series echoed back in results; longer series
	// are downsampled evenly.
	MaxSeriesPoints int
}

func (o *Options) applyDefaults() {
	if o.MinSamples <= 0 {
		o.MinSamples = 200
	}
	if o.MinDepthPpm <= 0 {
		o.MinDepthPpm = 50
	}
	if o.MaxSeriesPoints <= 0 {
		o.MaxSeriesPoints = 5000
	}
}

// Orchestrator runs the analysis pipeline: validate the request, resolve the
// light curve, invoke the inference engine once, and convert the reply into
// zero or one detections.
type Orchestrator struct {
	store     lcstore.Store
	transport inference.Transport
	opts      Options
}

func NewOrchestrator(store lcstore.Store, transport inference.Transport, opts Options) *Orchestrator {
	opts.applyDefaults()
	return &Orchestrator{store: store, transport: transport, opts: opts}
}

// Analyze handles one request end to end. Caller mistakes (malformed payload,
// too few samples, unknown catalog id) are returned as typed errors before
// any external call; everything past acquisition resolves to a result value
// and a nil error.
func (o *Orchestrator) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
	series, target, err := o.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(series.Time) < o.opts.MinSamples {
		return nil, fmt.Errorf("%w: series has %d samples, need at least %d", ErrInsufficientData, len(series.Time), o.opts.MinSamples)
	}

	infReq := inference.Request{
		Time:    series.Time,
		Flux:    series.Flux,
		FluxErr: series.FluxErr,
		Meta:    targetMeta(target),
	}
	if req.Source == models.SourceCatalog {
		infReq.TicID = req.TicID
	}

	start := time.Now()
	reply, err := o.transport.Infer(ctx, infReq)
	if err != nil {
		slog.Error("inference failed", "tic_id", target.TicID, "error", err)
		return o.failedResult(target, series, err), nil
	}

	enrichTarget(&target, reply.Features)

	result := &models.AnalysisResult{
		Id:         uuid.New(),
		CreatedAt:  time.Now().UTC(),
		Target:     target,
		Detections: o.detections(reply),
		Series:     downsample(series, o.opts.MaxSeriesPoints),
		Status:     models.StatusCompleted,
		Warnings:   reply.Warnings,
	}

	slog.Info("analysis complete",
		"id", result.Id,
		"tic_id", target.TicID,
		"detections", len(result.Detections),
		"runtime_ms", time.Since(start).Milliseconds())

	return result, nil
}

// resolve validates the payload and produces the series plus target identity.
func (o *Orchestrator) resolve(ctx context.Context, req models.AnalyzeRequest) (models.SeriesPayload, models.AnalysisTarget, error) {
	var empty models.SeriesPayload

	switch req.Source {
	case models.SourceUpload:
		if req.CSVData == nil {
			return empty, models.AnalysisTarget{}, fmt.Errorf("%w: csvData is required for upload requests", ErrInvalidRequest)
		}
		series := *req.CSVData
		if len(series.Time) != len(series.Flux) {
			return empty, models.AnalysisTarget{}, fmt.Errorf("%w: time and flux length mismatch", ErrInvalidRequest)
		}
		if series.FluxErr != nil && len(series.FluxErr) != len(series.Time) {
			return empty, models.AnalysisTarget{}, fmt.Errorf("%w: flux_err length mismatch", ErrInvalidRequest)
		}
		return series, models.AnalysisTarget{TicID: UploadTicID}, nil

	case models.SourceCatalog:
		if req.TicID == "" {
			return empty, models.AnalysisTarget{}, fmt.Errorf("%w: ticId is required for catalog requests", ErrInvalidRequest)
		}

		series, err := o.store.Load(ctx, req.TicID, req.Sector)
		if err != nil {
			if errors.Is(err, lcstore.ErrNotFound) {
				return empty, models.AnalysisTarget{}, fmt.Errorf("no light curve for TIC %s: %w", req.TicID, lcstore.ErrNotFound)
			}
			return empty, models.AnalysisTarget{}, fmt.Errorf("error loading light curve for TIC %s: %w", req.TicID, err)
		}

		target := models.AnalysisTarget{TicID: req.TicID, Sector: req.Sector}
		meta, err := o.store.LoadMetadata(ctx, req.TicID)
		if err != nil {
			// Metadata absence is non-fatal.
			if !errors.Is(err, lcstore.ErrNotFound) {
				slog.Warn("error loading catalog metadata", "tic_id", req.TicID, "error", err)
			}
		} else {
			target.Tmag = meta.Tmag
			target.Teff = meta.Teff
			target.Rad = meta.Rad
			target.Crowdsap = meta.Crowdsap
			target.Extras = meta.Extras
		}
		return *series, target, nil

	default:
		return empty, models.AnalysisTarget{}, fmt.Errorf("%w: source must be %q or %q", ErrInvalidRequest, models.SourceCatalog, models.SourceUpload)
	}
}

// detections interprets the inference reply as zero or one transit
// candidates. The engine reports its single best candidate; a non-positive
// period or a depth under the significance floor means no detection.
func (o *Orchestrator) detections(reply *inference.Reply) []models.Detection {
	if reply.PeriodDays <= 0 || math.Abs(reply.DepthPpm) <= o.opts.MinDepthPpm {
		return []models.Detection{}
	}

	confidence := reply.Score
	if confidence <= 0 || confidence > 1 {
		confidence = FallbackConfidence(reply.PeriodDays, reply.DepthPpm, reply.SNR, reply.DurationHours)
	}

	return []models.Detection{{
		Period:     reply.PeriodDays,
		Epoch:      reply.T0,
		Duration:   reply.DurationHours / 24.0,
		Depth:      math.Abs(reply.DepthPpm) / 1e6,
		Confidence: confidence,
		SNR:        reply.SNR,
	}}
}

func (o *Orchestrator) failedResult(target models.AnalysisTarget, series models.SeriesPayload, cause error) *models.AnalysisResult {
	return &models.AnalysisResult{
		Id:         uuid.New(),
		CreatedAt:  time.Now().UTC(),
		Target:     target,
		Detections: []models.Detection{},
		Series:     downsample(series, o.opts.MaxSeriesPoints),
		Status:     models.StatusFailed,
		Error:      cause.Error(),
	}
}

// targetMeta builds the inference meta map from whatever catalog metadata is
// known for the target. Extras (contratio and friends) go in as-is; the named
// attributes win on a key collision.
func targetMeta(target models.AnalysisTarget) map[string]float64 {
	meta := map[string]float64{}
	for key, value := range target.Extras {
		meta[key] = value
	}
	if target.Tmag != nil {
		meta["tmag"] = *target.Tmag
	}
	if target.Teff != nil {
		meta["teff"] = *target.Teff
	}
	if target.Rad != nil {
		meta["rad"] = *target.Rad
	}
	if target.Crowdsap != nil {
		meta["crowdsap"] = *target.Crowdsap
	}
	return meta
}

// enrichTarget backfills target metadata from engine-computed features
// without overwriting catalog values.
func enrichTarget(target *models.AnalysisTarget, features map[string]float64) {
	set := func(dst **float64, key string) {
		if *dst != nil {
			return
		}
		if value, ok := features[key]; ok {
			v := value
			*dst = &v
		}
	}
	set(&target.Tmag, "tmag")
	set(&target.Teff, "teff")
	set(&target.Rad, "rad")
	set(&target.Crowdsap, "crowdsap")
}

// downsample evenly thins a series to at most maxPoints samples, keeping the
// first and last.
func downsample(series models.SeriesPayload, maxPoints int) models.SeriesPayload {
	n := len(series.Time)
	if n <= maxPoints || maxPoints < 2 {
		return series
	}

	out := models.SeriesPayload{
		Time: make([]float64, maxPoints),
		Flux: make([]float64, maxPoints),
	}
	if series.FluxErr != nil {
		out.FluxErr = make([]float64, maxPoints)
	}

	step := float64(n-1) / float64(maxPoints-1)
	for i := 0; i < maxPoints; i++ {
		idx := int(math.Round(float64(i) * step))
		if idx >= n {
			idx = n - 1
		}
		out.Time[i] = series.Time[idx]
		out.Flux[i] = series.Flux[idx]
		if out.FluxErr != nil {
			out.FluxErr[i] = series.FluxErr[idx]
		}
	}

	return out
}
