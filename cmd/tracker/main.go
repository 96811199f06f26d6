package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/but-pixelated/AircraftTracker-Live/internal/adapter/http"
	"github.com/but-pixelated/AircraftTracker-Live/internal/adapter/opensky"
	"github.com/but-pixelated/AircraftTracker-Live/internal/config"
	"github.com/but-pixelated/AircraftTracker-Live/internal/observability"
	"github.com/but-pixelated/AircraftTracker-Live/internal/refresh"
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

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	if cfg.OpenSky.HasCredentials() {
		logger.Info("opensky credentials configured", "username", cfg.OpenSky.Username)
	} else {
		logger.Warn("opensky credentials not set, using anonymous access with stricter rate limits",
			"env", "ID_AUTH, PW_AUTH")
	}

	client := opensky.NewClient(cfg.OpenSky, metrics, logger)
	retrier := refresh.NewRetrier(client, cfg.Retry, nil, metrics, logger)
	service := refresh.NewService(retrier, cfg.Presentation.HistogramBins, nil, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTP, service, client, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	observability.ShutdownTracing(context.Background(), shutdownTracing, logger)

	logger.Info("shutdown complete")
}
