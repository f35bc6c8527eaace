package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/healthmap-risk-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/healthmap-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/healthmap-risk-service/internal/adapter/postgres"
	"github.com/couchcryptid/healthmap-risk-service/internal/config"
	"github.com/couchcryptid/healthmap-risk-service/internal/observability"
	"github.com/couchcryptid/healthmap-risk-service/internal/pipeline"
	"github.com/couchcryptid/healthmap-risk-service/internal/service"
	"github.com/couchcryptid/healthmap-risk-service/internal/store/memory"
	"github.com/joho/godotenv"
)

// store is what the service needs from a storage backend.
type store interface {
	service.AssessmentStore
	service.SignalStore
}

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open postgres store", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
	default:
		st = memory.New()
	}
	logger.Info("store ready", "driver", cfg.StoreDriver)

	var (
		publisher service.EventPublisher
		writer    *kafkaadapter.Publisher
	)
	if cfg.PublishingEnabled() {
		writer = kafkaadapter.NewPublisher(cfg, logger)
		publisher = writer
		logger.Info("event publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaEventsTopic)
	} else {
		logger.Info("event publishing disabled")
	}

	svc := service.New(st, st, publisher, cfg.CorrelationOptions(), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, httpadapter.Options{
		AllowedOrigins:      cfg.CORSAllowedOrigins,
		CorrelationCacheTTL: cfg.CorrelationCacheTTL,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start correlation sweep.
	sweepDone := make(chan struct{})
	switch {
	case cfg.SweepSchedule == "":
		close(sweepDone)
	case writer == nil:
		logger.Warn("sweep schedule set but event publishing is disabled; sweep not started", "schedule", cfg.SweepSchedule)
		close(sweepDone)
	default:
		sweeper := pipeline.New(svc, writer, cfg.SweepSchedule, cfg.SweepAlertLevel, logger, metrics)
		go func() {
			defer close(sweepDone)
			if err := sweeper.Run(ctx); err != nil {
				logger.Error("sweep error", "error", err)
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
	select {
	case <-sweepDone:
	case <-shutdownCtx.Done():
		logger.Warn("sweep did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
