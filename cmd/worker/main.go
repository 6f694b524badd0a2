package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"registration/internal/audit"
	"registration/internal/bootstrap"
	"registration/internal/config"
)

// Worker consumes registration lifecycle events and writes the audit log.
func main() {
	cfg := config.Load()
	logger := cfg.Logger().With(slog.String("component", "worker"))
	slog.SetDefault(logger)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.QueueBackend != "redis" {
		// memory queues are consumed inside the api process
		logger.Error("worker needs QUEUE_BACKEND=redis", slog.String("queue_backend", cfg.QueueBackend))
		os.Exit(1)
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.BuildWorker(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer deps.Close()

	if err := audit.NewConsumer(deps.Store, logger).Run(ctx, deps.Queue); err != nil {
		logger.Error("worker failed", slog.Any("error", err))
		return
	}
	logger.Info("worker stopped")
}
