package repo

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/queries/list_events"
	"github.com/light-bringer/dirtycheck-service/internal/models/m_outbox"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/query"
)

// EventsReadModel reads the outbox_events table.
type EventsReadModel struct {
	client *spanner.Client
}

// NewEventsReadModel creates a new EventsReadModel.
func NewEventsReadModel(client *spanner.Client) *EventsReadModel {
	return &EventsReadModel{client: client}
}

// EventsQuery builds the filtered query behind ListEvents, newest first.
func EventsQuery(req *list_events.Request) *query.Builder {
	b := query.From(m_outbox.TableName).Select(m_outbox.Columns()...)
	if req.EventType != "" {
		b = b.Where(query.Eq(m_outbox.EventType, req.EventType))
	}
	if req.AggregateID != "" {
		b = b.Where(query.Eq(m_outbox.AggregateID, req.AggregateID))
	}
	if req.Status != "" {
		b = b.Where(query.Eq(m_outbox.Status, req.Status))
	}
	if req.Unprocessed {
		b = b.Where(query.IsNull(m_outbox.ProcessedAt))
	}
	return b
}

// ListEvents returns one page of events and the total number of matches.
func (r *EventsReadModel) ListEvents(ctx context.Context, req *list_events.Request) ([]*m_outbox.Data, int64, error) {
	base := EventsQuery(req)

	txn := r.client.ReadOnlyTransaction()
	defer txn.Close()

	iter := txn.Query(ctx, base.OrderBy(m_outbox.CreatedAt, query.Desc).Limit(int64(req.Limit)).Build())
	defer iter.Stop()

	var events []*m_outbox.Data
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to iterate events: %w", err)
		}

		var event m_outbox.Data
		if err := row.Columns(
			&event.EventID,
			&event.EventType,
			&event.AggregateID,
			&event.Payload,
			&event.Status,
			&event.CreatedAt,
			&event.ProcessedAt,
			&event.RetryCount,
			&event.ErrorMessage,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}

	var total int64
	countIter := txn.Query(ctx, base.Count().Build())
	defer countIter.Stop()
	row, err := countIter.Next()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}
	if err := row.Columns(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to scan event count: %w", err)
	}

	return events, total, nil
}
