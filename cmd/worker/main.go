// Command worker runs the background half of the system: the job
// scheduler (C8) driving webshop sync and the abandoned-cart lifecycle,
// and the in-process event bus (C9), whose published events are also
// copied to the optional Kafka/Redpanda mirror.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatbuddy/core/internal/app"
	"github.com/chatbuddy/core/internal/config"
	"github.com/chatbuddy/core/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx := context.Background()
	root, err := app.Build(ctx, cfg, logger)
	if err != nil {
		slog.Error("composition root build failed", slog.Any("error", err))
		os.Exit(1)
	}

	jobConfigs := root.DefaultJobConfigs()
	if errs := root.Scheduler.Start(ctx, jobConfigs); len(errs) > 0 {
		for _, e := range errs {
			slog.Warn("job not started", slog.Any("error", e))
		}
	}

	slog.Info("worker started successfully, waiting for shutdown signal")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	slog.Info("signal received, shutting down", slog.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	root.Shutdown(shutdownCtx)
	slog.Info("worker stopped")
}
