package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canopya/canopya/observability"
	"github.com/canopya/canopya/server"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct{}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cleanup, err := cli.initLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	comps, err := buildComponents(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer comps.Close()

	if comps.traces != nil {
		go cleanupTraces(ctx, comps)
	}

	// A typed nil *tracestore.Store must not reach the interface field
	var traces server.TraceReader
	if comps.traces != nil {
		traces = comps.traces
	}
	srv := server.New(cfg.Server, comps.dispatcher, comps.store, comps.generator, traces)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	return srv.Shutdown(context.Background())
}

// cleanupTraces prunes expired query traces periodically.
func cleanupTraces(ctx context.Context, comps *components) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := comps.traces.Cleanup(ctx)
			if err != nil {
				slog.Warn("Trace cleanup failed", "error", err)
			} else if deleted > 0 {
				slog.Info("Pruned expired query traces", "deleted", deleted)
			}
		}
	}
}
