package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v2"
	"gorm.io/datatypes"

	"transit-backend/cmd"
	"transit-backend/internal/database"
	"transit-backend/internal/lcstore"
	"transit-backend/internal/storage"
	"transit-backend/pkg/models"
)

// Imports light curves into the catalog store. Reads a YAML manifest listing
// targets and per-target CSV files (time,flux[,flux_err] with a header row),
// writes series documents through the object store and metadata rows through
// the catalog database. Series below the sample floor are rejected to keep
// unanalyzable curves out of the catalog.

type CatalogConfig struct {
	ManifestPath string `env:"MANIFEST_PATH" envDefault:"manifest.yaml"`

	DatabasePath      string `env:"DATABASE_PATH" envDefault:"catalog.db"`
	LightcurveDir     string `env:"LIGHTCURVE_DIR" envDefault:"data"`
	LightcurveBucket  string `env:"LIGHTCURVE_BUCKET"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	MinSamples int `env:"MIN_SAMPLES" envDefault:"200"`
}

type manifestEntry struct {
	TicID    string   `yaml:"tic_id"`
	Sector   int      `yaml:"sector"`
	File     string   `yaml:"file"`
	Tmag     *float64 `yaml:"tmag"`
	Teff     *float64 `yaml:"teff"`
	Rad      *float64 `yaml:"rad"`
	Crowdsap *float64 `yaml:"crowdsap"`

	// Attributes without a dedicated column, e.g. contratio.
	Extras map[string]float64 `yaml:"extras"`
}

type manifest struct {
	Targets []manifestEntry `yaml:"targets"`
}

func main() {
	cmd.LoadEnvFile()

	var cfg CatalogConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	data, err := os.ReadFile(cfg.ManifestPath)
	if err != nil {
		log.Fatalf("error reading manifest %s: %v", cfg.ManifestPath, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		log.Fatalf("error parsing manifest %s: %v", cfg.ManifestPath, err)
	}
	if len(m.Targets) == 0 {
		log.Fatalf("manifest %s lists no targets", cfg.ManifestPath)
	}

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}

	var objects storage.ObjectStore
	if cfg.LightcurveBucket != "" {
		objects, err = storage.NewS3ObjectStore(storage.S3ClientConfig{
			S3EndpointURL:     cfg.S3EndpointURL,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3Region:          cfg.S3Region,
			Bucket:            cfg.LightcurveBucket,
		})
	} else {
		objects, err = storage.NewLocalObjectStore(cfg.LightcurveDir)
	}
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	store := lcstore.NewCatalogStore(objects, db)
	manifestDir := filepath.Dir(cfg.ManifestPath)

	bar := progressbar.NewOptions(len(m.Targets),
		progressbar.OptionSetDescription("importing light curves"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	ctx := context.Background()
	imported, failed := 0, 0

	for _, entry := range m.Targets {
		if err := importTarget(ctx, store, manifestDir, entry, cfg.MinSamples); err != nil {
			log.Printf("skipping TIC %s: %v", entry.TicID, err)
			failed++
		} else {
			imported++
		}
		_ = bar.Add(1)
	}

	log.Printf("catalog import finished: %d imported, %d failed", imported, failed)
}

func importTarget(ctx context.Context, store *lcstore.CatalogStore, baseDir string, entry manifestEntry, minSamples int) error {
	if entry.TicID == "" {
		return fmt.Errorf("manifest entry has no tic_id")
	}

	path := entry.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	series, err := readSeriesCSV(path)
	if err != nil {
		return err
	}
	if len(series.Time) < minSamples {
		return fmt.Errorf("series has %d samples, need at least %d", len(series.Time), minSamples)
	}

	if err := store.SaveSeries(ctx, entry.TicID, entry.Sector, series); err != nil {
		return err
	}

	target := database.CatalogTarget{
		TicID:        entry.TicID,
		Sector:       entry.Sector,
		Tmag:         entry.Tmag,
		Teff:         entry.Teff,
		Rad:          entry.Rad,
		Crowdsap:     entry.Crowdsap,
		CreationTime: time.Now(),
	}
	if len(entry.Extras) > 0 {
		data, err := json.Marshal(entry.Extras)
		if err != nil {
			return fmt.Errorf("error serializing extras for TIC %s: %w", entry.TicID, err)
		}
		target.Extras = datatypes.JSON(data)
	}

	return store.SaveMetadata(ctx, target)
}

func readSeriesCSV(path string) (*models.SeriesPayload, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s has no data rows", path)
	}

	header := records[0]
	if len(header) < 2 || header[0] != "time" || header[1] != "flux" {
		return nil, fmt.Errorf("%s must start with a time,flux header", path)
	}
	hasErr := len(header) > 2 && header[2] == "flux_err"

	series := &models.SeriesPayload{}
	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad time value %q", path, i+2, record[0])
		}
		f, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad flux value %q", path, i+2, record[1])
		}
		series.Time = append(series.Time, t)
		series.Flux = append(series.Flux, f)

		if hasErr && len(record) > 2 {
			fe, err := strconv.ParseFloat(record[2], 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad flux_err value %q", path, i+2, record[2])
			}
			series.FluxErr = append(series.FluxErr, fe)
		}
	}

	if series.FluxErr != nil && len(series.FluxErr) != len(series.Time) {
		return nil, fmt.Errorf("%s has incomplete flux_err column", path)
	}

	return series, nil
}
