package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-explorer/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/weather-explorer/internal/adapter/kafka"
	"github.com/couchcryptid/weather-explorer/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-explorer/internal/config"
	"github.com/couchcryptid/weather-explorer/internal/dashboard"
	"github.com/couchcryptid/weather-explorer/internal/duck"
	"github.com/couchcryptid/weather-explorer/internal/observability"
	"github.com/couchcryptid/weather-explorer/internal/pipeline"
	"github.com/couchcryptid/weather-explorer/internal/source"
	"github.com/couchcryptid/weather-explorer/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher, err := source.NewFetcher(ctx, cfg.DataBaseURL, cfg.FetchTimeout)
	if err != nil {
		logger.Error("failed to create data fetcher", "error", err)
		os.Exit(1)
	}

	loader := duck.NewParquetLoader(fetcher, cfg.DataDir, cfg.WeatherFile, cfg.StationsFile, logger)
	db := duck.New(cfg.DuckDBPath, loader, duck.WithLogger(logger), duck.WithMetrics(metrics))

	// Place names are feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var places weather.PlaceResolver
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedResolver(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create place cache", "error", err)
			os.Exit(1)
		}
		places = cached
		logger.Info("mapbox place names enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox place names disabled")
	}

	svc := dashboard.New(db, places, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, db, logger)

	// Start HTTP server. Requests answer 503 until the database is ready.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Initialize the database in the background.
	initDone := make(chan error, 1)
	go func() { initDone <- db.Init(ctx) }()

	var (
		reader *kafkaadapter.Reader
		dlq    *kafkaadapter.DeadLetterWriter
	)
	if cfg.IngestEnabled {
		reader, dlq = startIngest(ctx, cfg, db, initDone, logger, metrics)
	} else {
		go func() {
			if err := <-initDone; err != nil {
				logger.Error("database initialization failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if dlq != nil {
		if err := dlq.Close(); err != nil {
			logger.Error("kafka dlq writer close error", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// startIngest runs the observation pipeline once the database is ready. The
// returned reader and writer are closed by the caller on shutdown.
func startIngest(ctx context.Context, cfg *config.Config, db *duck.DB, initDone <-chan error,
	logger *slog.Logger, metrics *observability.Metrics,
) (*kafkaadapter.Reader, *kafkaadapter.DeadLetterWriter) {
	reader := kafkaadapter.NewReader(cfg, logger)

	var (
		dlqWriter *kafkaadapter.DeadLetterWriter
		dlq       pipeline.DeadLetterer
	)
	if cfg.KafkaDLQTopic != "" {
		dlqWriter = kafkaadapter.NewDeadLetterWriter(cfg, logger)
		dlq = dlqWriter
	}

	p := pipeline.New(reader, pipeline.NewTransformer(), pipeline.LoaderFunc(db.InsertObservations),
		dlq, logger, metrics, cfg.BatchSize)

	go func() {
		if err := <-initDone; err != nil {
			logger.Error("database initialization failed, ingest disabled", "error", err)
			return
		}
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()
	return reader, dlqWriter
}
