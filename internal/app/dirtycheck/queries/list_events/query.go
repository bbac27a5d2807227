package list_events

import (
	"context"

	"github.com/light-bringer/dirtycheck-service/internal/models/m_outbox"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Request contains filtering parameters for listing outbox events.
// Empty fields do not filter.
type Request struct {
	EventType   string // e.g. "entity.committed"
	AggregateID string // "<collection>/<entity id>"
	Status      string
	Unprocessed bool
	Limit       int
}

// EventsReadModel defines the interface for reading events.
type EventsReadModel interface {
	ListEvents(ctx context.Context, req *Request) ([]*m_outbox.Data, int64, error)
}

// Query handles the list events query use case.
type Query struct {
	readModel EventsReadModel
}

// NewQuery creates a new list events query.
func NewQuery(readModel EventsReadModel) *Query {
	return &Query{readModel: readModel}
}

// Execute retrieves one page of events and the total match count.
func (q *Query) Execute(ctx context.Context, req *Request) ([]*m_outbox.Data, int64, error) {
	r := *req
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	return q.readModel.ListEvents(ctx, &r)
}
