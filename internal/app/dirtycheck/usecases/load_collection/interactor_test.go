package load_collection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/contracts"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/engine"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/repo"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/clock"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/committer"
)

type fakeEntityRepo struct {
	records []contracts.EntityRecord[domain.Document]
	err     error
	asked   []string
}

func (r *fakeEntityRepo) Collection() string { return "users" }

func (r *fakeEntityRepo) Load(_ context.Context, ids []string) ([]contracts.EntityRecord[domain.Document], error) {
	r.asked = ids
	return r.records, r.err
}

func (r *fakeEntityRepo) Get(context.Context, string) (contracts.EntityRecord[domain.Document], error) {
	return contracts.EntityRecord[domain.Document]{}, domain.ErrEntityNotFound
}

func (r *fakeEntityRepo) UpsertMut(string, domain.Document, int64) (*spanner.Mutation, error) {
	return nil, nil
}

func (r *fakeEntityRepo) DeleteMut(string) *spanner.Mutation { return nil }

func (r *fakeEntityRepo) VersionCheck(string, int64) committer.VersionCheck {
	return committer.VersionCheck{}
}

type fakeCommitter struct {
	plans []*committer.CommitPlan
	err   error
}

func (c *fakeCommitter) Apply(_ context.Context, plan *committer.CommitPlan) error {
	c.plans = append(c.plans, plan)
	return c.err
}

func records() []contracts.EntityRecord[domain.Document] {
	return []contracts.EntityRecord[domain.Document]{
		{ID: "1", Entity: domain.Document(`{"name":"Ada"}`), Version: 3},
		{ID: "2", Entity: domain.Document(`{"name":"Grace"}`), Version: 1},
	}
}

func newInteractor(store *repo.MemoryStore[string, domain.Document], r *fakeEntityRepo, c *fakeCommitter, versions *domain.VersionBook) *Interactor[domain.Document] {
	clk := clock.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewInteractor[domain.Document](r, repo.NewOutboxRepo(), c, store, versions, clk, logger)
}

func TestInteractor_Execute(t *testing.T) {
	t.Run("hydrates the store", func(t *testing.T) {
		store := repo.NewMemoryStore[string, domain.Document]()
		r := &fakeEntityRepo{records: records()}
		c := &fakeCommitter{}
		versions := domain.NewVersionBook()

		resp, err := newInteractor(store, r, c, versions).Execute(context.Background(), &Request{})
		require.NoError(t, err)

		assert.Equal(t, []string{"1", "2"}, resp.Loaded)
		assert.Equal(t, []string{"1", "2"}, store.IDs())
		assert.Equal(t, int64(3), versions.Get("1"))
		assert.Equal(t, int64(1), versions.Get("2"))
		require.Len(t, c.plans, 1)
		assert.Equal(t, 1, c.plans[0].Count(), "one collection.loaded event")
	})

	t.Run("passes the id filter", func(t *testing.T) {
		r := &fakeEntityRepo{records: records()[:1]}
		_, err := newInteractor(repo.NewMemoryStore[string, domain.Document](), r, &fakeCommitter{}, domain.NewVersionBook()).
			Execute(context.Background(), &Request{IDs: []string{"1"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, r.asked)
	})

	t.Run("reload becomes the new baseline", func(t *testing.T) {
		store := repo.NewMemoryStore(repo.Entry[string, domain.Document]{ID: "1", Entity: domain.Document(`{"name":"old"}`)})
		clk := clock.NewMockClock(time.Now())
		check := engine.New(store, engine.Params[string, domain.Document]{Scheduler: clk, Clock: clk})

		uc := newInteractor(store, &fakeEntityRepo{records: records()}, &fakeCommitter{}, domain.NewVersionBook()).WithHeads(check)
		_, err := uc.Execute(context.Background(), nil)
		require.NoError(t, err)

		assert.False(t, check.IsDirty("1"))
		assert.False(t, check.IsDirty("2"))
		head, ok := check.Head("1")
		require.True(t, ok)
		assert.Equal(t, `{"name":"Ada"}`, head.String())
	})

	t.Run("repository error", func(t *testing.T) {
		c := &fakeCommitter{}
		_, err := newInteractor(repo.NewMemoryStore[string, domain.Document](), &fakeEntityRepo{err: errors.New("boom")}, c, domain.NewVersionBook()).
			Execute(context.Background(), nil)
		assert.Error(t, err)
		assert.Empty(t, c.plans)
	})

	t.Run("commit error leaves the store untouched", func(t *testing.T) {
		store := repo.NewMemoryStore[string, domain.Document]()
		versions := domain.NewVersionBook()
		_, err := newInteractor(store, &fakeEntityRepo{records: records()}, &fakeCommitter{err: errors.New("unavailable")}, versions).
			Execute(context.Background(), nil)
		assert.Error(t, err)
		assert.Zero(t, store.Count())
		assert.Zero(t, versions.Get("1"))
	})
}
