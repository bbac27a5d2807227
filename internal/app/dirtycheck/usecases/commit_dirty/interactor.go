package commit_dirty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/contracts"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/engine"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/clock"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/committer"
)

var tracer = otel.Tracer("dirtycheck.commit_dirty")

// Request selects what to commit.
type Request struct {
	// IDs restricts the commit to these entities. Empty commits every dirty
	// tracked entity and every pending delete. Clean or unknown IDs are
	// skipped.
	IDs []string
}

// Response describes a successful commit.
type Response struct {
	Committed []string
	// Deleted lists persisted entities that left the collection and were
	// removed from storage.
	Deleted []string
	// Stale lists committed entities that changed again while the commit was
	// in flight; they stay dirty against the committed value.
	Stale []string
}

// CommitRecorder receives commit outcomes.
type CommitRecorder interface {
	RecordCommit(collection, status string, entities int, duration time.Duration)
}

// Interactor persists dirty entities and moves their baseline to the
// committed value.
type Interactor[E any] struct {
	check      *engine.EntityDirtyCheck[string, E]
	store      contracts.EntityQuery[string, E]
	repo       contracts.EntityRepository[E]
	outboxRepo contracts.OutboxRepository
	committer  contracts.Committer
	versions   *domain.VersionBook
	clock      clock.Clock
	logger     *slog.Logger
	recorder   CommitRecorder
}

// NewInteractor creates a new commit interactor. recorder may be nil.
func NewInteractor[E any](
	check *engine.EntityDirtyCheck[string, E],
	store contracts.EntityQuery[string, E],
	repo contracts.EntityRepository[E],
	outboxRepo contracts.OutboxRepository,
	committer contracts.Committer,
	versions *domain.VersionBook,
	clock clock.Clock,
	logger *slog.Logger,
	recorder CommitRecorder,
) *Interactor[E] {
	return &Interactor[E]{
		check:      check,
		store:      store,
		repo:       repo,
		outboxRepo: outboxRepo,
		committer:  committer,
		versions:   versions,
		clock:      clock,
		logger:     logger,
		recorder:   recorder,
	}
}

type pending[E any] struct {
	id      string
	entity  E
	version int64
}

// Execute writes every selected dirty entity, deletes every selected entity
// that left the collection after being persisted, and adds one outbox event
// per entity, all in a single transaction. Entities persisted before carry
// a version check, so a concurrent writer makes the whole commit fail with
// committer.ErrVersionConflict.
func (i *Interactor[E]) Execute(ctx context.Context, req *Request) (*Response, error) {
	collection := i.repo.Collection()
	ctx, span := tracer.Start(ctx, "commit_dirty.Execute",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	start := i.clock.Now()
	ids := i.selectIDs(req)
	removed := i.selectRemoved(req)
	if len(ids) == 0 && len(removed) == 0 {
		return &Response{}, nil
	}

	// 1. Build the plan
	plan := committer.NewPlan()
	batch := make([]pending[E], 0, len(ids))
	for _, id := range ids {
		entity, ok := i.store.GetEntity(id)
		if !ok {
			continue
		}
		fields, err := i.check.DirtyFields(id)
		if err != nil {
			return nil, i.fail(span, collection, start, fmt.Errorf("failed to diff %s: %w", id, err))
		}

		current := i.versions.Get(id)
		next := current + 1
		mut, err := i.repo.UpsertMut(id, entity, next)
		if err != nil {
			return nil, i.fail(span, collection, start, fmt.Errorf("failed to build mutation for %s: %w", id, err))
		}
		plan.Add(mut)
		if current > 0 {
			plan.Expect(i.repo.VersionCheck(id, current))
		}

		// 2. Add the outbox event for the same entity
		event := &domain.EntityCommittedEvent{
			Collection:    collection,
			EntityID:      id,
			ChangedFields: fields,
			Version:       next,
			CommittedAt:   start,
		}
		if err := i.addEvent(plan, event); err != nil {
			return nil, i.fail(span, collection, start, err)
		}

		batch = append(batch, pending[E]{id: id, entity: entity, version: next})
	}

	deletes := make([]string, 0, len(removed))
	for _, id := range removed {
		version := i.versions.Get(id)
		plan.Add(i.repo.DeleteMut(id))
		plan.Expect(i.repo.VersionCheck(id, version))

		event := &domain.EntityDeletedEvent{
			Collection: collection,
			EntityID:   id,
			Version:    version,
			DeletedAt:  start,
		}
		if err := i.addEvent(plan, event); err != nil {
			return nil, i.fail(span, collection, start, err)
		}
		deletes = append(deletes, id)
	}
	if len(batch) == 0 && len(deletes) == 0 {
		return &Response{}, nil
	}

	// 3. Apply atomically
	if err := i.committer.Apply(ctx, plan); err != nil {
		return nil, i.fail(span, collection, start, fmt.Errorf("failed to commit transaction: %w", err))
	}

	// 4. Move the baselines to the committed values
	resp := &Response{}
	for _, p := range batch {
		i.versions.Set(p.id, p.version)
		resp.Committed = append(resp.Committed, p.id)

		if !i.store.HasEntity(p.id) || i.check.SetHeadTo(p.id, p.entity) {
			resp.Stale = append(resp.Stale, p.id)
		}
	}
	for _, id := range deletes {
		i.versions.Forget(id)
		resp.Deleted = append(resp.Deleted, id)
	}

	total := len(resp.Committed) + len(resp.Deleted)
	span.SetAttributes(
		attribute.Int("committed", len(resp.Committed)),
		attribute.Int("deleted", len(resp.Deleted)),
	)
	if i.recorder != nil {
		i.recorder.RecordCommit(collection, "success", total, i.clock.Now().Sub(start))
	}
	i.logger.Info("committed dirty entities",
		slog.String("collection", collection),
		slog.Int("committed", len(resp.Committed)),
		slog.Int("deleted", len(resp.Deleted)),
		slog.Int("stale", len(resp.Stale)),
	)
	return resp, nil
}

func (i *Interactor[E]) selectIDs(req *Request) []string {
	if req == nil || len(req.IDs) == 0 {
		return i.check.DirtyIDs()
	}
	ids := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		if i.check.IsDirty(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// selectRemoved returns persisted IDs that are no longer in the collection.
func (i *Interactor[E]) selectRemoved(req *Request) []string {
	candidates := i.versions.IDs()
	if req != nil && len(req.IDs) > 0 {
		candidates = req.IDs
	}
	var ids []string
	for _, id := range candidates {
		if i.versions.Get(id) > 0 && !i.store.HasEntity(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (i *Interactor[E]) addEvent(plan *committer.CommitPlan, event domain.DomainEvent) error {
	payload, err := serializeEvent(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	plan.Add(i.outboxRepo.InsertMut(i.outboxRepo.EnrichEvent(event, payload)))
	return nil
}

func (i *Interactor[E]) fail(span trace.Span, collection string, start time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	status := "error"
	if errors.Is(err, committer.ErrVersionConflict) {
		status = "conflict"
	}
	if i.recorder != nil {
		i.recorder.RecordCommit(collection, status, 0, i.clock.Now().Sub(start))
	}
	i.logger.Warn("commit failed",
		slog.String("collection", collection),
		slog.String("status", status),
		slog.Any("error", err),
	)
	return err
}

// serializeEvent converts a domain event to JSON payload.
func serializeEvent(event domain.DomainEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
