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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/usecases/commit_dirty"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/usecases/load_collection"
	"github.com/light-bringer/dirtycheck-service/internal/config"
	"github.com/light-bringer/dirtycheck-service/internal/observability"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/stream"
	"github.com/light-bringer/dirtycheck-service/internal/services"
)

const (
	loadTimeout     = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dirtywatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("starting dirtywatch",
		slog.String("spanner_database", cfg.SpannerDB),
		slog.String("collection", cfg.Collection),
		slog.Int("tracked_ids", len(cfg.TrackedIDs)),
		slog.Duration("commit_interval", cfg.CommitInterval),
		slog.String("http_addr", cfg.HTTPAddr),
	)

	// 2. Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	// 3. Initialize service dependencies (DI container)
	opts, err := services.NewServiceOptions(ctx, cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer opts.Close()

	// 4. Hydrate the collection
	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	loaded, err := opts.Load.Execute(loadCtx, &load_collection.Request{})
	cancel()
	if err != nil {
		return err
	}
	logger.Info("collection ready", slog.Int("entities", len(loaded.Loaded)))

	// 5. Follow the aggregate dirty status
	watch := stream.Listen(stream.Distinct(opts.Check.SelectSomeDirty()), func(dirty bool) {
		logger.Info("collection dirty status changed", slog.Bool("some_dirty", dirty))
	})
	defer watch.Unsubscribe()

	// 6. Periodic commits
	if cfg.CommitInterval > 0 {
		go commitLoop(ctx, opts.Commit, cfg.CommitInterval, logger)
	}

	// 7. HTTP server
	opts.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           opts.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 8. Graceful shutdown handling
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.Any("error", err))
	}

	if opts.Check.SomeDirty() {
		logger.Warn("exiting with uncommitted changes", slog.Any("dirty_ids", opts.Check.DirtyIDs()))
	}
	return nil
}

// commitLoop commits dirty entities every interval until ctx is done.
// Conflicts are logged and retried on the next tick.
func commitLoop[E any](ctx context.Context, uc *commit_dirty.Interactor[E], interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resp, err := uc.Execute(ctx, &commit_dirty.Request{})
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("periodic commit failed", slog.Any("error", err))
				}
				continue
			}
			if len(resp.Stale) > 0 {
				logger.Info("entities changed during commit", slog.Any("ids", resp.Stale))
			}
		}
	}
}
