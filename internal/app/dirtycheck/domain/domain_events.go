package domain

import "time"

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventType() string
	AggregateID() string
}

// EntityCommittedEvent is emitted when a dirty entity is persisted and its
// baseline moves to the committed value.
type EntityCommittedEvent struct {
	Collection    string
	EntityID      string
	ChangedFields []string
	Version       int64
	CommittedAt   time.Time
}

func (e *EntityCommittedEvent) EventType() string {
	return "entity.committed"
}

func (e *EntityCommittedEvent) AggregateID() string {
	return e.Collection + "/" + e.EntityID
}

// EntityDeletedEvent is emitted when an entity removed from the collection
// is deleted from storage.
type EntityDeletedEvent struct {
	Collection string
	EntityID   string
	Version    int64
	DeletedAt  time.Time
}

func (e *EntityDeletedEvent) EventType() string {
	return "entity.deleted"
}

func (e *EntityDeletedEvent) AggregateID() string {
	return e.Collection + "/" + e.EntityID
}

// EntityLoadedEvent is emitted when a collection is hydrated from storage.
type EntityLoadedEvent struct {
	Collection string
	Count      int
	LoadedAt   time.Time
}

func (e *EntityLoadedEvent) EventType() string {
	return "collection.loaded"
}

func (e *EntityLoadedEvent) AggregateID() string {
	return e.Collection
}
