package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"transit-backend/cmd"
	"transit-backend/internal/api"
	"transit-backend/internal/cache"
	"transit-backend/internal/core"
	"transit-backend/internal/database"
	"transit-backend/internal/history"
	"transit-backend/internal/inference"
	"transit-backend/internal/lcstore"
	"transit-backend/internal/storage"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type APIConfig struct {
	APIPort   string `env:"API_PORT" envDefault:"8000"`
	AllowCORS string `env:"ALLOW_CORS" envDefault:"*"`

	InferenceTransport   string   `env:"INFERENCE_TRANSPORT" envDefault:"local"`
	WorkerCommand        string   `env:"WORKER_COMMAND" envDefault:"python3"`
	WorkerArgs           []string `env:"WORKER_ARGS" envSeparator:" " envDefault:"model/predict_cli.py"`
	WorkerConcurrency    int      `env:"CONCURRENCY" envDefault:"4"`
	InferenceURL         string   `env:"INFERENCE_URL"`
	InferenceFallbackURL string   `env:"INFERENCE_FALLBACK_URL"`
	ProbeTimeoutMs       int      `env:"PROBE_TIMEOUT_MS" envDefault:"1500"`

	DatabasePath      string `env:"DATABASE_PATH" envDefault:"catalog.db"`
	LightcurveDir     string `env:"LIGHTCURVE_DIR" envDefault:"data"`
	LightcurveBucket  string `env:"LIGHTCURVE_BUCKET"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	RedisURL      string  `env:"REDIS_URL"`
	CacheTTLHours int     `env:"CACHE_TTL_HOURS" envDefault:"24"`
	MinSamples    int     `env:"MIN_SAMPLES" envDefault:"200"`
	MinDepthPpm   float64 `env:"MIN_DEPTH_PPM" envDefault:"50"`
	HistorySize   int     `env:"HISTORY_SIZE" envDefault:"50"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
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

	var transport inference.Transport
	switch cfg.InferenceTransport {
	case "local":
		transport = inference.NewLocalProcess(cfg.WorkerCommand, cfg.WorkerArgs, cfg.WorkerConcurrency)
	case "remote":
		if cfg.InferenceURL == "" {
			log.Fatalf("INFERENCE_URL is required for the remote transport")
		}
		transport = inference.NewRemoteService(cfg.InferenceURL, cfg.InferenceFallbackURL, time.Duration(cfg.ProbeTimeoutMs)*time.Millisecond)
	default:
		log.Fatalf("Unknown inference transport %q (expected local or remote)", cfg.InferenceTransport)
	}

	if cfg.RedisURL != "" {
		replyCache, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		transport = inference.NewCachedTransport(transport, replyCache, time.Duration(cfg.CacheTTLHours)*time.Hour)
	}

	orchestrator := core.NewOrchestrator(store, transport, core.Options{
		MinSamples:  cfg.MinSamples,
		MinDepthPpm: cfg.MinDepthPpm,
	})

	recent := history.NewRecent(cfg.HistorySize)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(cfg.AllowCORS, ","),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second)) // Set request timeout

	apiHandler := api.NewBackendService(orchestrator, recent, cfg.InferenceTransport)
	apiHandler.AddRoutes(r)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
