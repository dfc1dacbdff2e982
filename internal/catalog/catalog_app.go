// Package catalog wires the bulk engine, content store and HTTP API into a
// runnable server process.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medialib-dev/medialib/internal/catalog/api"
	v0 "github.com/medialib-dev/medialib/internal/catalog/api/handlers/v0"
	"github.com/medialib-dev/medialib/internal/catalog/bulk"
	"github.com/medialib-dev/medialib/internal/catalog/config"
	"github.com/medialib-dev/medialib/internal/catalog/database"
	"github.com/medialib-dev/medialib/internal/catalog/metadata"
	"github.com/medialib-dev/medialib/internal/catalog/service"
	"github.com/medialib-dev/medialib/internal/catalog/telemetry"
	"github.com/medialib-dev/medialib/internal/version"
)

// App starts the server and blocks until SIGINT/SIGTERM.
func App(ctx context.Context) error {
	cfg := config.NewConfig()

	logger := newLogger(cfg.LogLevel)

	// Context with timeout for the PostgreSQL connection
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := database.NewPostgreSQL(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing database connection")
		}
	}()

	shutdownTelemetry, metrics, err := telemetry.InitMetrics(cfg.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	var fetcher service.MetadataFetcher
	if cfg.MetadataBaseURL != "" {
		fetcher = metadata.NewClient(cfg.MetadataBaseURL, cfg.MetadataTimeout)
		logger.Info().Str("provider", cfg.MetadataBaseURL).Msg("metadata refresh enabled")
	} else {
		logger.Warn().Msg("no metadata provider configured, refresh-metadata is unavailable")
	}

	registry := bulk.NewRegistry()
	service.RegisterExecutors(registry, db, fetcher)

	store := bulk.NewStore(cfg.BulkRetention)
	defer store.Close()

	coordinator := bulk.NewCoordinator(store, registry, bulk.Options{
		Concurrency: cfg.BulkConcurrency,
		ItemTimeout: cfg.BulkItemTimeout,
		OnBatchDone: func(succeeded, failed int) {
			ctx := context.Background()
			metrics.BulkItems.Add(ctx, int64(succeeded+failed))
			metrics.BulkItemFailures.Add(ctx, int64(failed))
		},
		Logger: logger,
	})

	versionInfo := &v0.VersionBody{
		Version:   version.Version,
		GitCommit: version.GitCommit,
		BuildTime: version.BuildDate,
	}

	logger.Info().
		Str("version", version.Version).
		Str("commit", version.GitCommit).
		Msg("starting medialib")

	server := api.NewServer(cfg, coordinator, metrics, versionInfo, logger)

	// Start server in a goroutine so it doesn't block signal handling
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("failed to start server")
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()

	if err := server.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exiting")
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(lvl).With().Timestamp().Logger()
}
