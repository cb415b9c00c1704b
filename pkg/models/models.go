package models

import (
	"time"

	"github.com/google/uuid"
)

// Request sources accepted by POST /analyses.
const (
	SourceCatalog = "catalog"
	SourceUpload  = "upload"
)

// Analysis lifecycle states. Results always carry one of these; a failed
// analysis is a value, not an error.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SeriesPayload is a light curve on the wire: time in days (ascending), flux
// as relative brightness near 1.0, optional per-sample uncertainties.
type SeriesPayload struct {
	Time    []float64 `json:"time"`
	Flux    []float64 `json:"flux"`
	FluxErr []float64 `json:"flux_err,omitempty"`
}

type AnalyzeRequest struct {
	Source  string         `json:"source"`
	TicID   string         `json:"ticId,omitempty"`
	Sector  int            `json:"sector,omitempty"`
	CSVData *SeriesPayload `json:"csvData,omitempty"`
}

// AnalysisTarget identifies the observed star. Metadata fields are pointers
// because catalog records are frequently incomplete. Extras carries catalog
// attributes without a dedicated field (contratio and friends).
type AnalysisTarget struct {
	TicID    string             `json:"ticId"`
	Sector   int                `json:"sector,omitempty"`
	Tmag     *float64           `json:"tmag,omitempty"`
	Teff     *float64           `json:"teff,omitempty"`
	Rad      *float64           `json:"rad,omitempty"`
	Crowdsap *float64           `json:"crowdsap,omitempty"`
	Extras   map[string]float64 `json:"extras,omitempty"`
}

// Detection is a single transit candidate. Period, epoch, and duration share
// the series time base (days); depth is a fractional flux drop.
type Detection struct {
	Period     float64 `json:"period"`
	Epoch      float64 `json:"epoch"`
	Duration   float64 `json:"duration"`
	Depth      float64 `json:"depth"`
	Confidence float64 `json:"confidence"`
	SNR        float64 `json:"snr"`
}

type AnalysisResult struct {
	Id         uuid.UUID      `json:"id"`
	CreatedAt  time.Time      `json:"createdAt"`
	Target     AnalysisTarget `json:"target"`
	Detections []Detection    `json:"detections"`
	Series     SeriesPayload  `json:"series"`
	Status     string         `json:"status"`
	Warnings   []string       `json:"warnings,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// TransitWindow is one transit interval clamped to a visible time range.
type TransitWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
