package lcstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"transit-backend/internal/database"
	"transit-backend/internal/storage"
	"transit-backend/pkg/models"
)

// CatalogStore reads light-curve series as JSON documents from an object
// store and target metadata rows from the catalog database. Documents are
// keyed lightcurves/TIC-<id>.json, with a -s<sector> variant for
// sector-specific curves that falls back to the sectorless document.
type CatalogStore struct {
	objects storage.ObjectStore
	db      *gorm.DB
}

var _ Store = (*CatalogStore)(nil)

func NewCatalogStore(objects storage.ObjectStore, db *gorm.DB) *CatalogStore {
	return &CatalogStore{objects: objects, db: db}
}

func SeriesKey(ticID string, sector int) string {
	if sector > 0 {
		return fmt.Sprintf("lightcurves/TIC-%s-s%d.json", ticID, sector)
	}
	return fmt.Sprintf("lightcurves/TIC-%s.json", ticID)
}

func (s *CatalogStore) Load(ctx context.Context, ticID string, sector int) (*models.SeriesPayload, error) {
	data, err := s.objects.GetObject(ctx, SeriesKey(ticID, sector))
	if sector > 0 && errors.Is(err, storage.ErrObjectNotFound) {
		data, err = s.objects.GetObject(ctx, SeriesKey(ticID, 0))
	}
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading light curve for TIC %s: %w", ticID, err)
	}

	var series models.SeriesPayload
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("error parsing light curve document for TIC %s: %w", ticID, err)
	}

	if len(series.Time) != len(series.Flux) {
		return nil, fmt.Errorf("light curve document for TIC %s has mismatched columns", ticID)
	}

	return &series, nil
}

func (s *CatalogStore) LoadMetadata(ctx context.Context, ticID string) (*models.AnalysisTarget, error) {
	var target database.CatalogTarget
	err := s.db.WithContext(ctx).
		Where("tic_id = ?", ticID).
		Order("sector").
		First(&target).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error querying catalog metadata for TIC %s: %w", ticID, err)
	}

	meta := &models.AnalysisTarget{
		TicID:    target.TicID,
		Sector:   target.Sector,
		Tmag:     target.Tmag,
		Teff:     target.Teff,
		Rad:      target.Rad,
		Crowdsap: target.Crowdsap,
	}

	if len(target.Extras) > 0 {
		if err := json.Unmarshal(target.Extras, &meta.Extras); err != nil {
			slog.Warn("discarding unreadable catalog extras", "tic_id", ticID, "error", err)
		}
	}

	return meta, nil
}

// SaveSeries writes a series document, used by the catalog seeding tool.
func (s *CatalogStore) SaveSeries(ctx context.Context, ticID string, sector int, series *models.SeriesPayload) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("error serializing light curve for TIC %s: %w", ticID, err)
	}

	key := SeriesKey(ticID, sector)
	if err := s.objects.PutObject(ctx, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("error storing light curve for TIC %s: %w", ticID, err)
	}

	slog.Info("stored light curve", "tic_id", ticID, "sector", sector, "samples", len(series.Time))
	return nil
}

// SaveMetadata upserts a catalog metadata row, used by the seeding tool.
func (s *CatalogStore) SaveMetadata(ctx context.Context, target database.CatalogTarget) error {
	if err := s.db.WithContext(ctx).Save(&target).Error; err != nil {
		return fmt.Errorf("error storing catalog metadata for TIC %s: %w", target.TicID, err)
	}
	return nil
}
