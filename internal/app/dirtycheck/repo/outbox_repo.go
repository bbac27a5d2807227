package repo

import (
	"encoding/json"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/contracts"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/models/m_outbox"
)

// OutboxRepo implements OutboxRepository for Spanner.
type OutboxRepo struct {
	model *m_outbox.Model
	newID func() string
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo() *OutboxRepo {
	return &OutboxRepo{
		model: m_outbox.NewModel(),
		newID: func() string { return uuid.New().String() },
	}
}

var _ contracts.OutboxRepository = (*OutboxRepo)(nil)

// InsertMut creates a mutation for inserting an outbox event.
func (r *OutboxRepo) InsertMut(event *contracts.OutboxEvent) *spanner.Mutation {
	payload := spanner.NullJSON{}
	if event.Payload != "" {
		payload = spanner.NullJSON{Value: json.RawMessage(event.Payload), Valid: true}
	}

	return r.model.InsertMut(&m_outbox.Data{
		EventID:     event.EventID,
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		Payload:     payload,
		Status:      event.Status,
	})
}

// EnrichEvent converts a domain event to an outbox event with metadata.
func (r *OutboxRepo) EnrichEvent(event domain.DomainEvent, payload string) *contracts.OutboxEvent {
	return &contracts.OutboxEvent{
		EventID:     r.newID(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		Payload:     payload,
		Status:      m_outbox.StatusPending,
	}
}
