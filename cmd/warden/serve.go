package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"warden/internal/platform/config"
	"warden/internal/platform/httpserver"
	"warden/internal/platform/tracing"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when brokers are configured, the outbox relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c.cfg, c.logger)
		},
	}
}

// serve blocks until ctx is cancelled or a component fails, then shuts the
// HTTP server down within the configured grace period.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tp := tracing.New(cfg.Tracing, logger)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	a, err := buildApp(ctx, cfg, logger, observability{
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
		Tracer:     tp.Tracer("warden/wallet"),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing connections failed", "error", err)
		}
	}()

	srv := httpserver.New(cfg.Server, a.Router)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting warden",
			"addr", cfg.Server.Addr,
			"store_backend", cfg.Store.Backend,
			"ledger_backend", cfg.Ledger.Backend,
			"relay", a.Relay != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if a.Relay != nil {
		g.Go(func() error {
			return a.Relay.Run(gctx)
		})
	}

	return g.Wait()
}
