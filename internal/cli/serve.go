package cli

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

	"github.com/spf13/cobra"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/learning"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/metrics"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/server"
)

const (
	shutdownTimeout = 10 * time.Second
	evictInterval   = time.Hour
)

// NewServeCmd creates the 'serve' command for running the HTTP API.
func NewServeCmd(o *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the barcin HTTP API.

Endpoints:
  POST /api/query            ask a question (X-User-ID selects the user)
  POST /api/feedback         rate a previous answer
  GET  /api/status           loaded datasets and learning counters
  GET  /api/learning/report  learning performance report
  GET  /api/learning/export  learning state as JSON
  GET  /metrics              Prometheus metrics

Learning rows older than the retention window are evicted hourly.`,
		Example: `  barcin serve
  barcin serve --addr 127.0.0.1:9090 --data-dir ./data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = o.cfg.Settings.ListenAddr
			}
			return runServe(contextOf(cmd), o, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides settings.listenAddr)")
	return cmd
}

// runServe starts the HTTP server with signal handling.
// Implements graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
func runServe(parent context.Context, o *options, addr string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	m := metrics.New()
	rt, err := newRuntime(ctx, o.cfg, runtimeOptions{async: o.cfg.Settings.AsyncLearning, metrics: m})
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.store != nil {
		go evictLoop(ctx, rt.store, m)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(rt.assistant, rt.cfg, m).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		slog.Info("shutdown complete")
		return nil

	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// evictLoop applies the retention window at startup and then hourly.
func evictLoop(ctx context.Context, store *learning.Store, m *metrics.Exporter) {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()

	for {
		stats, err := store.Evict(ctx, time.Now())
		if err != nil {
			slog.Warn("failed to evict learning data", "err", err)
		} else {
			m.AddEvicted(stats.Interactions + stats.Patterns + stats.Preferences)
			slog.Debug("learning data evicted",
				"interactions", stats.Interactions,
				"patterns", stats.Patterns,
				"preferences", stats.Preferences)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
