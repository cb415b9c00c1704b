package lcstore

import (
	"context"
	"errors"

	"transit-backend/pkg/models"
)

// ErrNotFound is returned when no light curve (or metadata row) exists for
// the requested catalog target.
var ErrNotFound = errors.New("light curve not found")

// Store resolves catalog targets into light-curve series and optional target
// metadata. Sector 0 means "any sector".
type Store interface {
	Load(ctx context.Context, ticID string, sector int) (*models.SeriesPayload, error)

	LoadMetadata(ctx context.Context, ticID string) (*models.AnalysisTarget, error)
}
