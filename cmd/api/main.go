package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"registration/internal/audit"
	"registration/internal/bootstrap"
	"registration/internal/config"
	"registration/internal/handler"
	"registration/internal/intake"
	"registration/internal/registration"
)

func main() {
	cfg := config.Load()
	logger := cfg.Logger()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Error("http server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("close dependencies", slog.Any("error", err))
		}
	}()

	if !deps.Store.Info().Durable {
		logger.Warn("registrations are kept in memory and will be lost on restart")
	}

	svc := registration.NewService(deps.Store, deps.Files, deps.IDs, deps.Publisher(), logger)

	// The in-memory queue is process-local, so its consumer runs here.
	if cfg.QueueBackend == "memory" {
		go func() {
			_ = audit.NewConsumer(deps.Store, logger).Run(ctx, deps.Queue)
		}()
	}

	h := handler.New(svc,
		registration.Validator{RequireLinks: cfg.RequireParticipantLinks},
		intake.Reader{MaxBytes: cfg.MaxUploadBytes},
		logger,
	)
	r := handler.NewRouter(h, handler.RouterOptions{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Production:      cfg.Production(),
		AccessLog:       true,
		TrustedProxies:  cfg.TrustedProxies,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", slog.Any("error", err))
	}

	logger.Info("server exited")
	return nil
}
