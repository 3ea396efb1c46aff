package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"s3drive-backend/internal/bootstrap"
	"s3drive-backend/internal/shared/config"
	"s3drive-backend/internal/shared/server"
	"s3drive-backend/internal/shared/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.Env); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer telemetry.Sync()

	shutdownTracing, err := telemetry.InitTracing(cfg.TraceStdout)
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildContext(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		telemetry.Info("server.start", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		telemetry.Info("server.shutdown_requested", map[string]any{"timeout": shutdownTimeout.String()})
	case err := <-errCh:
		if err != nil {
			telemetry.Error("server.failed", map[string]any{"err": err})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("server.shutdown_failed", map[string]any{"err": err})
	}
	app.Close(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		telemetry.Error("tracing.shutdown_failed", map[string]any{"err": err})
	}
	telemetry.Info("server.stopped", nil)
}
