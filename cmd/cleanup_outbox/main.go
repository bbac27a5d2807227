package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/repo"
	"github.com/light-bringer/dirtycheck-service/internal/config"
	"github.com/light-bringer/dirtycheck-service/internal/models/m_outbox"
)

// Options for the outbox cleanup job.
type Options struct {
	CompletedRetentionDays int
	FailedRetentionDays    int
	DryRun                 bool
}

func main() {
	opts := Options{}
	flag.IntVar(&opts.CompletedRetentionDays, "completed-retention", 30, "Retention days for completed events")
	flag.IntVar(&opts.FailedRetentionDays, "failed-retention", 90, "Retention days for failed events")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "Show what would be deleted without actually deleting")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		slog.Error("cleanup failed", "error", err)
		os.Exit(1)
	}
	slog.Info("cleanup completed")
}

func run(ctx context.Context, opts Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client, err := spanner.NewClient(ctx, cfg.SpannerDB)
	if err != nil {
		return fmt.Errorf("failed to create Spanner client: %w", err)
	}
	defer client.Close()

	now := time.Now().UTC()
	rules := []repo.RetentionRule{
		{Status: m_outbox.StatusCompleted, Before: now.AddDate(0, 0, -opts.CompletedRetentionDays)},
		{Status: m_outbox.StatusFailed, Before: now.AddDate(0, 0, -opts.FailedRetentionDays)},
	}
	for _, rule := range rules {
		slog.Info("retention rule", "status", rule.Status, "cutoff", rule.Before.Format(time.RFC3339))
	}

	retention := repo.NewOutboxRetention(client)
	if opts.DryRun {
		counts, err := retention.Count(ctx, rules...)
		if err != nil {
			return err
		}
		var total int64
		for status, n := range counts {
			slog.Info("would delete events", "status", status, "count", n)
			total += n
		}
		slog.Info("dry run, nothing deleted", "total", total)
		return nil
	}

	deleted, err := retention.Purge(ctx, rules...)
	if err != nil {
		return err
	}
	slog.Info("deleted events", "count", deleted)
	return nil
}
