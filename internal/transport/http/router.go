package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/engine"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/queries/dirty_report"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/queries/list_events"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/repo"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/usecases/commit_dirty"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/usecases/load_collection"
)

// RequestRecorder counts served requests.
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, status int)
}

// Deps lists what the handlers serve.
type Deps struct {
	Store  *repo.MemoryStore[string, domain.Document]
	Check  *engine.EntityDirtyCheck[string, domain.Document]
	Report *dirty_report.Query[domain.Document]
	Commit *commit_dirty.Interactor[domain.Document]
	Load   *load_collection.Interactor[domain.Document]
	Events *list_events.Query
	Logger *slog.Logger
}

// Handlers serves the dirty-check API.
type Handlers struct {
	store  *repo.MemoryStore[string, domain.Document]
	check  *engine.EntityDirtyCheck[string, domain.Document]
	report *dirty_report.Query[domain.Document]
	commit *commit_dirty.Interactor[domain.Document]
	load   *load_collection.Interactor[domain.Document]
	events *list_events.Query
	logger *slog.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		store:  deps.Store,
		check:  deps.Check,
		report: deps.Report,
		commit: deps.Commit,
		load:   deps.Load,
		events: deps.Events,
		logger: deps.Logger,
	}
}

// RegisterRoutes registers the /api/v1 endpoints.
//
//	GET    /entities/:id        entity and its status
//	PUT    /entities/:id        write an entity
//	DELETE /entities/:id        remove an entity
//	GET    /entities/:id/dirty  status, optionally for one ?path=
//	POST   /entities/:id/reset  restore the baseline
//	POST   /entities/:id/head   accept the current value as baseline
//	GET    /dirty               dirty report, ?all=true lists clean entities
//	POST   /reset               restore several baselines
//	POST   /commit              persist dirty entities
//	POST   /load                reload entities from storage
//	GET    /events              list outbox events
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/entities/:id", h.HandleGetEntity)
	rg.PUT("/entities/:id", h.HandlePutEntity)
	rg.DELETE("/entities/:id", h.HandleDeleteEntity)
	rg.GET("/entities/:id/dirty", h.HandleEntityStatus)
	rg.POST("/entities/:id/reset", h.HandleResetEntity)
	rg.POST("/entities/:id/head", h.HandleSetHead)

	rg.GET("/dirty", h.HandleDirtyReport)
	rg.POST("/reset", h.HandleReset)
	rg.POST("/commit", h.HandleCommit)
	rg.POST("/load", h.HandleLoad)
	rg.GET("/events", h.HandleListEvents)
}

// NewRouter builds the gin engine with tracing, request metrics and the API
// under /api/v1. recorder may be nil.
func NewRouter(h *Handlers, serviceName string, recorder RequestRecorder) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	if recorder != nil {
		router.Use(requestMetrics(recorder))
	}
	router.Use(requestLogger(h.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	RegisterRoutes(router.Group("/api/v1"), h)
	return router
}

func requestMetrics(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status())
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request served",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
