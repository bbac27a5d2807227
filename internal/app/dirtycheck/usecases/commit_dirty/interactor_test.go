package commit_dirty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
	upserts map[string]int64
	deletes []string
}

func (r *fakeEntityRepo) Collection() string { return "users" }

func (r *fakeEntityRepo) Load(context.Context, []string) ([]contracts.EntityRecord[domain.Document], error) {
	return nil, nil
}

func (r *fakeEntityRepo) Get(context.Context, string) (contracts.EntityRecord[domain.Document], error) {
	return contracts.EntityRecord[domain.Document]{}, domain.ErrEntityNotFound
}

func (r *fakeEntityRepo) UpsertMut(id string, _ domain.Document, version int64) (*spanner.Mutation, error) {
	r.upserts[id] = version
	return spanner.Delete("entities", spanner.Key{"users", id}), nil
}

func (r *fakeEntityRepo) DeleteMut(id string) *spanner.Mutation {
	r.deletes = append(r.deletes, id)
	return spanner.Delete("entities", spanner.Key{"users", id})
}

func (r *fakeEntityRepo) VersionCheck(id string, expected int64) committer.VersionCheck {
	return committer.VersionCheck{Table: "entities", Key: spanner.Key{"users", id}, Expected: expected}
}

type fakeCommitter struct {
	plans  []*committer.CommitPlan
	err    error
	during func()
}

func (c *fakeCommitter) Apply(_ context.Context, plan *committer.CommitPlan) error {
	c.plans = append(c.plans, plan)
	if c.during != nil {
		c.during()
	}
	return c.err
}

// editingQuery overwrites an entity the first time the interactor asks about
// it once armed.
type editingQuery struct {
	contracts.EntityQuery[string, domain.Document]
	store *repo.MemoryStore[string, domain.Document]
	armed bool
	id    string
	doc   domain.Document
}

func (q *editingQuery) HasEntity(id string) bool {
	ok := q.EntityQuery.HasEntity(id)
	if q.armed && id == q.id {
		q.armed = false
		q.store.Replace(q.id, q.doc)
	}
	return ok
}

type commitRecord struct {
	status   string
	entities int
}

type fakeRecorder struct {
	records []commitRecord
}

func (r *fakeRecorder) RecordCommit(_ string, status string, entities int, _ time.Duration) {
	r.records = append(r.records, commitRecord{status: status, entities: entities})
}

type fixture struct {
	store     *repo.MemoryStore[string, domain.Document]
	check     *engine.EntityDirtyCheck[string, domain.Document]
	repo      *fakeEntityRepo
	committer *fakeCommitter
	versions  *domain.VersionBook
	recorder  *fakeRecorder
	uc        *Interactor[domain.Document]
}

func setup(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := repo.NewMemoryStore(
		repo.Entry[string, domain.Document]{ID: "1", Entity: domain.Document(`{"name":"Ada","age":36}`)},
		repo.Entry[string, domain.Document]{ID: "2", Entity: domain.Document(`{"name":"Grace","age":45}`)},
	)
	check := engine.New(store, engine.Params[string, domain.Document]{Scheduler: clk, Clock: clk})

	f := &fixture{
		store:     store,
		check:     check,
		repo:      &fakeEntityRepo{upserts: map[string]int64{}},
		committer: &fakeCommitter{},
		versions:  domain.NewVersionBook(),
		recorder:  &fakeRecorder{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.uc = NewInteractor(check, store, f.repo, repo.NewOutboxRepo(), f.committer, f.versions, clk, logger, f.recorder)
	return f
}

func (f *fixture) set(id, doc string) {
	f.store.Replace(id, domain.Document(doc))
}

func TestInteractor_Execute(t *testing.T) {
	t.Run("commits every dirty entity", func(t *testing.T) {
		f := setup(t)
		f.set("1", `{"name":"Ada Lovelace","age":36}`)

		resp, err := f.uc.Execute(context.Background(), &Request{})
		require.NoError(t, err)

		assert.Equal(t, []string{"1"}, resp.Committed)
		assert.Empty(t, resp.Stale)
		require.Len(t, f.committer.plans, 1)
		plan := f.committer.plans[0]
		assert.Equal(t, 2, plan.Count(), "entity mutation plus outbox event")
		assert.Empty(t, plan.Checks(), "first write has nothing to check")

		assert.Equal(t, int64(1), f.repo.upserts["1"])
		assert.Equal(t, int64(1), f.versions.Get("1"))
		assert.False(t, f.check.IsDirty("1"), "baseline moved to the committed value")
		assert.Equal(t, []commitRecord{{status: "success", entities: 1}}, f.recorder.records)
	})

	t.Run("later commits check the stored version", func(t *testing.T) {
		f := setup(t)
		f.versions.Set("1", 4)
		f.set("1", `{"name":"Ada","age":37}`)

		_, err := f.uc.Execute(context.Background(), &Request{})
		require.NoError(t, err)

		checks := f.committer.plans[0].Checks()
		require.Len(t, checks, 1)
		assert.Equal(t, int64(4), checks[0].Expected)
		assert.Equal(t, int64(5), f.versions.Get("1"))
	})

	t.Run("explicit ids skip clean and unknown entities", func(t *testing.T) {
		f := setup(t)
		f.set("1", `{"name":"x"}`)
		f.set("2", `{"name":"y"}`)

		resp, err := f.uc.Execute(context.Background(), &Request{IDs: []string{"2", "missing"}})
		require.NoError(t, err)

		assert.Equal(t, []string{"2"}, resp.Committed)
		assert.True(t, f.check.IsDirty("1"))
		assert.False(t, f.check.IsDirty("2"))
	})

	t.Run("nothing dirty applies nothing", func(t *testing.T) {
		f := setup(t)

		resp, err := f.uc.Execute(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, resp.Committed)
		assert.Empty(t, f.committer.plans)
		assert.Empty(t, f.recorder.records)
	})

	t.Run("conflict keeps entities dirty", func(t *testing.T) {
		f := setup(t)
		f.versions.Set("1", 2)
		f.committer.err = fmt.Errorf("%w: entities expected version 2, got 3", committer.ErrVersionConflict)
		f.set("1", `{"name":"x"}`)

		_, err := f.uc.Execute(context.Background(), &Request{})
		assert.ErrorIs(t, err, committer.ErrVersionConflict)
		assert.True(t, f.check.IsDirty("1"))
		assert.Equal(t, int64(2), f.versions.Get("1"))
		assert.Equal(t, []commitRecord{{status: "conflict"}}, f.recorder.records)
	})

	t.Run("other errors", func(t *testing.T) {
		f := setup(t)
		f.committer.err = errors.New("unavailable")
		f.set("2", `{"name":"x"}`)

		_, err := f.uc.Execute(context.Background(), &Request{})
		assert.Error(t, err)
		assert.Equal(t, "error", f.recorder.records[0].status)
	})

	t.Run("entity changed during commit stays dirty", func(t *testing.T) {
		f := setup(t)
		f.set("1", `{"name":"first"}`)
		f.committer.during = func() { f.set("1", `{"name":"second"}`) }

		resp, err := f.uc.Execute(context.Background(), &Request{})
		require.NoError(t, err)

		assert.Equal(t, []string{"1"}, resp.Committed)
		assert.Equal(t, []string{"1"}, resp.Stale)
		assert.True(t, f.check.IsDirty("1"))
		assert.Equal(t, int64(1), f.versions.Get("1"))

		head, ok := f.check.Head("1")
		require.True(t, ok)
		assert.JSONEq(t, `{"name":"first"}`, head.String(), "baseline is what was persisted")
	})

	t.Run("edit after the commit returns stays dirty", func(t *testing.T) {
		f := setup(t)
		q := &editingQuery{
			EntityQuery: f.store,
			store:       f.store,
			id:          "1",
			doc:         domain.Document(`{"name":"edited while moving the baseline"}`),
		}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		uc := NewInteractor(f.check, q, f.repo, repo.NewOutboxRepo(), f.committer, f.versions, clock.NewMockClock(time.Time{}), logger, nil)
		f.set("1", `{"name":"persisted"}`)
		f.committer.during = func() { q.armed = true }

		resp, err := uc.Execute(context.Background(), &Request{})
		require.NoError(t, err)

		assert.Equal(t, []string{"1"}, resp.Committed)
		assert.Equal(t, []string{"1"}, resp.Stale)
		assert.True(t, f.check.IsDirty("1"), "unpersisted edit stays dirty")
		head, _ := f.check.Head("1")
		assert.JSONEq(t, `{"name":"persisted"}`, head.String())
	})

	t.Run("custom comparator decides staleness", func(t *testing.T) {
		clk := clock.NewMockClock(time.Time{})
		store := repo.NewMemoryStore(repo.Entry[string, domain.Document]{ID: "1", Entity: domain.Document(`{"name":"Ada","seen":1}`)})
		nameOnly := func(head, current any) bool {
			return domain.GetNestedPath(head, "name") != domain.GetNestedPath(current, "name")
		}
		check := engine.New(store, engine.Params[string, domain.Document]{Comparator: nameOnly, Scheduler: clk, Clock: clk})
		cm := &fakeCommitter{during: func() {
			store.Replace("1", domain.Document(`{"name":"Grace","seen":2}`))
		}}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		uc := NewInteractor(check, store, &fakeEntityRepo{upserts: map[string]int64{}}, repo.NewOutboxRepo(), cm, domain.NewVersionBook(), clk, logger, nil)
		store.Replace("1", domain.Document(`{"name":"Grace","seen":1}`))

		resp, err := uc.Execute(context.Background(), &Request{})
		require.NoError(t, err)

		assert.Equal(t, []string{"1"}, resp.Committed)
		assert.Empty(t, resp.Stale, "only the ignored field changed")
		assert.False(t, check.IsDirty("1"))
	})
}

func TestInteractor_Execute_Deletes(t *testing.T) {
	t.Run("persisted entity removed from the collection is deleted", func(t *testing.T) {
		f := setup(t)
		f.versions.Set("2", 3)
		f.store.Remove("2")

		resp, err := f.uc.Execute(context.Background(), &Request{})
		require.NoError(t, err)

		assert.Equal(t, []string{"2"}, resp.Deleted)
		assert.Empty(t, resp.Committed)
		assert.Equal(t, []string{"2"}, f.repo.deletes)
		require.Len(t, f.committer.plans, 1)
		plan := f.committer.plans[0]
		assert.Equal(t, 2, plan.Count(), "delete mutation plus outbox event")
		require.Len(t, plan.Checks(), 1)
		assert.Equal(t, int64(3), plan.Checks()[0].Expected)
		assert.Zero(t, f.versions.Get("2"))
		assert.Empty(t, f.versions.IDs())
		assert.Equal(t, []commitRecord{{status: "success", entities: 1}}, f.recorder.records)
	})

	t.Run("deletes and writes share one transaction", func(t *testing.T) {
		f := setup(t)
		f.versions.Set("1", 1)
		f.versions.Set("2", 1)
		f.set("1", `{"name":"x"}`)
		f.store.Remove("2")

		resp, err := f.uc.Execute(context.Background(), nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"1"}, resp.Committed)
		assert.Equal(t, []string{"2"}, resp.Deleted)
		require.Len(t, f.committer.plans, 1)
		assert.Equal(t, 4, f.committer.plans[0].Count())
		assert.Len(t, f.committer.plans[0].Checks(), 2)
	})

	t.Run("conflict keeps the version", func(t *testing.T) {
		f := setup(t)
		f.versions.Set("2", 3)
		f.store.Remove("2")
		f.committer.err = fmt.Errorf("%w: row changed", committer.ErrVersionConflict)

		_, err := f.uc.Execute(context.Background(), &Request{})
		assert.ErrorIs(t, err, committer.ErrVersionConflict)
		assert.Equal(t, int64(3), f.versions.Get("2"))
	})

	t.Run("explicit ids restrict deletes", func(t *testing.T) {
		f := setup(t)
		f.versions.Set("1", 1)
		f.versions.Set("2", 1)
		f.store.Remove("1", "2")

		resp, err := f.uc.Execute(context.Background(), &Request{IDs: []string{"2"}})
		require.NoError(t, err)

		assert.Equal(t, []string{"2"}, resp.Deleted)
		assert.Equal(t, int64(1), f.versions.Get("1"))
	})

	t.Run("never persisted entities need no delete", func(t *testing.T) {
		f := setup(t)
		f.store.Remove("1")

		resp, err := f.uc.Execute(context.Background(), &Request{})
		require.NoError(t, err)
		assert.Empty(t, resp.Deleted)
		assert.Empty(t, f.committer.plans)
	})
}

func TestSerializeEvent(t *testing.T) {
	payload, err := serializeEvent(&domain.EntityCommittedEvent{
		Collection:    "users",
		EntityID:      "1",
		ChangedFields: []string{"name"},
		Version:       2,
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, "users", decoded["Collection"])
	assert.Equal(t, []any{"name"}, decoded["ChangedFields"])
}
