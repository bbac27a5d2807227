package contracts

import (
	"context"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/dirtycheck-service/internal/pkg/committer"
)

// EntityRecord is one persisted entity with its optimistic-lock version.
type EntityRecord[E any] struct {
	ID      string
	Entity  E
	Version int64
}

// EntityRepository defines persistence for one entity collection.
// Repositories return mutations, they don't apply them.
type EntityRepository[E any] interface {
	// Collection names the collection the repository serves.
	Collection() string

	// Load reads the collection in ID order. A non-empty ids restricts the
	// result to those IDs.
	Load(ctx context.Context, ids []string) ([]EntityRecord[E], error)

	// Get reads one entity. Returns domain.ErrEntityNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (EntityRecord[E], error)

	// UpsertMut creates a mutation writing entity at the given version.
	// version 1 marks a new row.
	UpsertMut(id string, entity E, version int64) (*spanner.Mutation, error)

	// DeleteMut creates a mutation removing one entity.
	DeleteMut(id string) *spanner.Mutation

	// VersionCheck pins the version one entity must still have at commit time.
	VersionCheck(id string, expected int64) committer.VersionCheck
}
