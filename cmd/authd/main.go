// Command authd serves the authcore engine over HTTP.
//
// Configuration comes from AUTHCORE_* environment variables; see config.go.
// The two signing secrets are required:
//
//	AUTHCORE_ACCESS_SECRET=$(openssl rand -hex 32) \
//	AUTHCORE_REFRESH_SECRET=$(openssl rand -hex 32) \
//	go run ./cmd/authd
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

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/httpapi"
	"github.com/MrEthical07/authcore/metrics/export/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.slogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	engine, err := buildEngine(cfg, stores, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	if cfg.OTelInterval > 0 {
		shutdownOTel, err := startOTel(ctx, engine, cfg.OTelInterval, cfg.OTelEndpoint, os.Stdout)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			_ = shutdownOTel(sctx)
		}()
	}

	opts := httpapi.Options{Logger: logger, StrictSessions: cfg.StrictSessions}
	if cfg.Metrics {
		opts.Metrics = prometheus.NewPrometheusExporter(engine).Handler()
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.New(engine, opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "store", cfg.Store, "sessions", cfg.Sessions)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func buildEngine(cfg config, stores *backends, logger *slog.Logger) (*authcore.Engine, error) {
	b := authcore.New().
		WithConfig(cfg.engineConfig()).
		WithUserStore(stores.users).
		WithSessionStore(stores.sessions).
		WithTransactor(stores.tx).
		WithLogger(logger)
	if cfg.AuditLog {
		b.WithAuditSink(authcore.NewSlogAuditSink(logger.With("component", "audit")))
	}

	engine, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return engine, nil
}
