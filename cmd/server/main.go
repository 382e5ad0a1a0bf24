// Command server starts the chat orchestration HTTP server: the /v1/chat
// turn endpoint, health/readiness probes, Prometheus metrics, and the
// admin surface over job history and conflicts (stats and history reads,
// plus an on-demand conflict scan).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatbuddy/core/internal/app"
	"github.com/chatbuddy/core/internal/config"
	"github.com/chatbuddy/core/internal/observability"
	"github.com/chatbuddy/core/internal/opsserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	root, err := app.Build(ctx, cfg, logger)
	if err != nil {
		slog.Error("composition root build failed", slog.Any("error", err))
		os.Exit(1)
	}

	srv := &opsserver.Server{
		Logger:       logger,
		Router:       root.Router,
		Scheduler:    root.Scheduler,
		Resolver:     root.ConflictResolver,
		Monitor:      root.ConflictMonitor,
		CORSOrigins:  opsserver.ParseOrigins(cfg.CORSAllowOrigins),
		AdminRateMax: cfg.AdminRateLimitPerMin,
		CacheCheck: func(ctx context.Context) error {
			_, err := root.Cache.Exists(ctx, "readyz-probe", "system")
			return err
		},
	}
	if root.Persistence != nil {
		srv.DBCheck = root.Persistence.Ping
	}

	httpHandler := opsserver.NewRouter(srv)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpHandler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	root.Shutdown(shutdownCtx)
}
