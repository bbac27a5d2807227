package load_collection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/contracts"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/engine"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/repo"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/clock"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/committer"
)

var tracer = otel.Tracer("dirtycheck.load_collection")

// Request selects what to load.
type Request struct {
	// IDs restricts the load to these entities. Empty loads the whole
	// collection.
	IDs []string
}

// Response describes a load.
type Response struct {
	Loaded []string
}

// Sink receives loaded entities.
type Sink[E any] interface {
	Upsert(entries ...repo.Entry[string, E])
}

// Interactor hydrates the in-memory store from storage.
type Interactor[E any] struct {
	repo       contracts.EntityRepository[E]
	outboxRepo contracts.OutboxRepository
	committer  contracts.Committer
	sink       Sink[E]
	versions   *domain.VersionBook
	clock      clock.Clock
	logger     *slog.Logger

	heads *engine.EntityDirtyCheck[string, E]
}

// NewInteractor creates a new load interactor.
func NewInteractor[E any](
	repo contracts.EntityRepository[E],
	outboxRepo contracts.OutboxRepository,
	committer contracts.Committer,
	sink Sink[E],
	versions *domain.VersionBook,
	clock clock.Clock,
	logger *slog.Logger,
) *Interactor[E] {
	return &Interactor[E]{
		repo:       repo,
		outboxRepo: outboxRepo,
		committer:  committer,
		sink:       sink,
		versions:   versions,
		clock:      clock,
		logger:     logger,
	}
}

// WithHeads makes later loads capture a fresh head for every loaded entity,
// so a reload is never reported as a local change.
func (i *Interactor[E]) WithHeads(heads *engine.EntityDirtyCheck[string, E]) *Interactor[E] {
	i.heads = heads
	return i
}

// Execute reads the selected entities, stores them with their versions and
// records a collection.loaded outbox event.
func (i *Interactor[E]) Execute(ctx context.Context, req *Request) (*Response, error) {
	collection := i.repo.Collection()
	ctx, span := tracer.Start(ctx, "load_collection.Execute",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	var ids []string
	if req != nil {
		ids = req.IDs
	}

	// 1. Read from storage
	records, err := i.repo.Load(ctx, ids)
	if err != nil {
		return nil, i.fail(span, fmt.Errorf("failed to load %s: %w", collection, err))
	}

	// 2. Record the load
	event := &domain.EntityLoadedEvent{
		Collection: collection,
		Count:      len(records),
		LoadedAt:   i.clock.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, i.fail(span, fmt.Errorf("failed to serialize event: %w", err))
	}
	plan := committer.NewPlan()
	plan.Add(i.outboxRepo.InsertMut(i.outboxRepo.EnrichEvent(event, string(payload))))
	if err := i.committer.Apply(ctx, plan); err != nil {
		return nil, i.fail(span, fmt.Errorf("failed to commit transaction: %w", err))
	}

	// 3. Hydrate the store
	entries := make([]repo.Entry[string, E], 0, len(records))
	resp := &Response{Loaded: make([]string, 0, len(records))}
	for _, r := range records {
		entries = append(entries, repo.Entry[string, E]{ID: r.ID, Entity: r.Entity})
		i.versions.Set(r.ID, r.Version)
		resp.Loaded = append(resp.Loaded, r.ID)
	}
	i.sink.Upsert(entries...)
	if i.heads != nil && len(resp.Loaded) > 0 {
		i.heads.SetHead(resp.Loaded...)
	}

	span.SetAttributes(attribute.Int("loaded", len(resp.Loaded)))
	i.logger.Info("collection loaded",
		slog.String("collection", collection),
		slog.Int("entities", len(resp.Loaded)),
	)
	return resp, nil
}

func (i *Interactor[E]) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
