package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/queries/list_events"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/repo"
	"github.com/light-bringer/dirtycheck-service/internal/config"
)

var (
	eventType   = flag.String("type", "", "Only events of this type, e.g. entity.committed")
	aggregateID = flag.String("aggregate", "", "Only events of this aggregate, e.g. users/42")
	status      = flag.String("status", "", "Only events with this status")
	unprocessed = flag.Bool("unprocessed", false, "Only events not processed yet")
	limit       = flag.Int("limit", 10, "Maximum number of events to print")
)

func main() {
	flag.Parse()

	if err := run(context.Background()); err != nil {
		slog.Error("check events failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client, err := spanner.NewClient(ctx, cfg.SpannerDB)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	query := list_events.NewQuery(repo.NewEventsReadModel(client))
	events, total, err := query.Execute(ctx, &list_events.Request{
		EventType:   *eventType,
		AggregateID: *aggregateID,
		Status:      *status,
		Unprocessed: *unprocessed,
		Limit:       *limit,
	})
	if err != nil {
		return err
	}

	fmt.Println("Events in outbox_events table:")
	for i, e := range events {
		fmt.Printf("%d. %s - %s (aggregate: %s, status: %s, created: %s)\n",
			i+1, e.EventType, e.EventID, e.AggregateID, e.Status, e.CreatedAt.Format(time.RFC3339))
		if e.Payload.Valid {
			fmt.Printf("   %s\n", e.Payload.String())
		}
	}

	if len(events) == 0 {
		fmt.Println("No events found!")
	} else {
		fmt.Printf("\nShowing %d of %d events\n", len(events), total)
	}
	return nil
}
