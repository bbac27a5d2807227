package contracts

import "github.com/light-bringer/dirtycheck-service/internal/pkg/stream"

// EntityQuery is the read side of a keyed entity collection.
type EntityQuery[K comparable, E any] interface {
	// SelectEntities streams a snapshot of the whole collection after every
	// content change. Snapshots must not be mutated by subscribers.
	SelectEntities() stream.Observable[map[K]E]

	// SelectIDs streams the ordered ID set after every membership change.
	// The current set is delivered synchronously on subscribe.
	SelectIDs() stream.Observable[[]K]

	// IDs returns the current ordered ID set.
	IDs() []K

	// GetEntity looks up one entity.
	GetEntity(id K) (E, bool)

	// HasEntity reports whether id is a member of the collection.
	HasEntity(id K) bool
}

// EntityStore is an EntityQuery that also accepts write-backs.
type EntityStore[K comparable, E any] interface {
	EntityQuery[K, E]

	// Replace overwrites an existing entity. It is a no-op for unknown IDs.
	Replace(id K, entity E) bool
}
