package services

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/spanner"
	"github.com/gin-gonic/gin"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/engine"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/queries/dirty_report"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/queries/list_events"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/repo"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/usecases/commit_dirty"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/usecases/load_collection"
	"github.com/light-bringer/dirtycheck-service/internal/config"
	"github.com/light-bringer/dirtycheck-service/internal/observability"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/clock"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/committer"
	httptransport "github.com/light-bringer/dirtycheck-service/internal/transport/http"
)

const serviceName = "dirtywatch"

// ServiceOptions holds all dependencies for the application.
type ServiceOptions struct {
	SpannerClient *spanner.Client

	Store  *repo.MemoryStore[string, domain.Document]
	Check  *engine.EntityDirtyCheck[string, domain.Document]
	Load   *load_collection.Interactor[domain.Document]
	Commit *commit_dirty.Interactor[domain.Document]
	Router *gin.Engine
}

// NewServiceOptions creates and wires up all application dependencies.
func NewServiceOptions(ctx context.Context, cfg config.Config, logger *slog.Logger, metrics *observability.Metrics) (*ServiceOptions, error) {
	// 1. Initialize Spanner client
	spannerClient, err := spanner.NewClient(ctx, cfg.SpannerDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spanner client: %w", err)
	}

	// 2. Create infrastructure components
	clk := clock.NewRealClock()
	comm := committer.NewCommitter(spannerClient)
	logger = logger.With(slog.String("collection", cfg.Collection))

	// 3. Create repositories
	entityRepo, err := repo.NewEntityRepo[domain.Document](spannerClient, cfg.Collection)
	if err != nil {
		spannerClient.Close()
		return nil, err
	}
	outboxRepo := repo.NewOutboxRepo()
	eventsReadModel := repo.NewEventsReadModel(spannerClient)

	// 4. Create the in-memory collection and its dirty check
	store := repo.NewMemoryStore[string, domain.Document]()
	versions := domain.NewVersionBook()
	check := engine.New(store, engine.Params[string, domain.Document]{
		EntityIDs: cfg.TrackedIDs,
		Scheduler: clk,
		Clock:     clk,
		Logger:    logger,
		Recorder:  metrics.Recorder(cfg.Collection),
	})

	// 5. Create command use cases (write operations)
	loadUseCase := load_collection.NewInteractor[domain.Document](entityRepo, outboxRepo, comm, store, versions, clk, logger).
		WithHeads(check)
	commitUseCase := commit_dirty.NewInteractor(check, store, entityRepo, outboxRepo, comm, versions, clk, logger, metrics)

	// 6. Create query use cases (read operations)
	reportQuery := dirty_report.NewQuery(check, versions)
	listEventsQuery := list_events.NewQuery(eventsReadModel)

	// 7. Create HTTP handlers
	handlers := httptransport.NewHandlers(httptransport.Deps{
		Store:  store,
		Check:  check,
		Report: reportQuery,
		Commit: commitUseCase,
		Load:   loadUseCase,
		Events: listEventsQuery,
		Logger: logger,
	})

	return &ServiceOptions{
		SpannerClient: spannerClient,
		Store:         store,
		Check:         check,
		Load:          loadUseCase,
		Commit:        commitUseCase,
		Router:        httptransport.NewRouter(handlers, serviceName, metrics),
	}, nil
}

// Close destroys the dirty check and closes all resources.
func (s *ServiceOptions) Close() {
	if s.Check != nil {
		s.Check.Destroy()
	}
	if s.SpannerClient != nil {
		s.SpannerClient.Close()
	}
}
