package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/queries/dirty_report"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/repo"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/usecases/commit_dirty"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/usecases/load_collection"
)

// EntityResponse is an entity with its dirty status.
type EntityResponse struct {
	Entity domain.Document           `json:"entity"`
	Status dirty_report.EntityStatus `json:"status"`
}

// IDsRequest names entities. Empty means all of them.
type IDsRequest struct {
	IDs []string `json:"ids"`
}

// ResetRequest selects entities and the paths to restore.
type ResetRequest struct {
	IDs   []string `json:"ids"`
	Paths []string `json:"paths"`
}

// ResetResponse lists the entities that were reset.
type ResetResponse struct {
	Reset []string `json:"reset"`
}

// CommitResponse describes a commit.
type CommitResponse struct {
	Committed []string `json:"committed"`
	Deleted   []string `json:"deleted"`
	Stale     []string `json:"stale"`
}

// LoadResponse describes a reload.
type LoadResponse struct {
	Loaded []string `json:"loaded"`
}

// HandleGetEntity handles GET /api/v1/entities/:id.
func (h *Handlers) HandleGetEntity(c *gin.Context) {
	id := c.Param("id")
	entity, ok := h.store.GetEntity(id)
	if !ok {
		h.fail(c, domain.ErrEntityNotFound)
		return
	}
	h.respondEntity(c, http.StatusOK, id, entity)
}

// HandlePutEntity handles PUT /api/v1/entities/:id. The body is the entity.
func (h *Handlers) HandlePutEntity(c *gin.Context) {
	id := c.Param("id")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	entity, err := domain.ParseDocument(body)
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if !h.store.HasEntity(id) {
		status = http.StatusCreated
	}
	h.store.Upsert(repo.Entry[string, domain.Document]{ID: id, Entity: entity})
	h.respondEntity(c, status, id, entity)
}

// HandleDeleteEntity handles DELETE /api/v1/entities/:id. A persisted
// entity is deleted from storage by the next commit.
func (h *Handlers) HandleDeleteEntity(c *gin.Context) {
	if h.store.Remove(c.Param("id")) == 0 {
		h.fail(c, domain.ErrEntityNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleEntityStatus handles GET /api/v1/entities/:id/dirty.
func (h *Handlers) HandleEntityStatus(c *gin.Context) {
	status, err := h.report.Get(c.Request.Context(), &dirty_report.StatusRequest{
		ID:   c.Param("id"),
		Path: c.Query("path"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// HandleResetEntity handles POST /api/v1/entities/:id/reset. An optional
// body {"paths": [...]} restores only those paths.
func (h *Handlers) HandleResetEntity(c *gin.Context) {
	var req ResetRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	if !h.store.HasEntity(id) {
		h.fail(c, domain.ErrEntityNotFound)
		return
	}
	if err := h.check.Reset(domain.ResetParams[domain.Document]{Paths: req.Paths}, id); err != nil {
		h.fail(c, err)
		return
	}
	entity, _ := h.store.GetEntity(id)
	h.respondEntity(c, http.StatusOK, id, entity)
}

// HandleSetHead handles POST /api/v1/entities/:id/head.
func (h *Handlers) HandleSetHead(c *gin.Context) {
	id := c.Param("id")
	if !h.store.HasEntity(id) {
		h.fail(c, domain.ErrEntityNotFound)
		return
	}
	h.check.SetHead(id)
	entity, _ := h.store.GetEntity(id)
	h.respondEntity(c, http.StatusOK, id, entity)
}

// HandleDirtyReport handles GET /api/v1/dirty.
func (h *Handlers) HandleDirtyReport(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))
	report, err := h.report.Execute(c.Request.Context(), &dirty_report.Request{All: all})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleReset handles POST /api/v1/reset. Without ids every dirty entity is
// reset.
func (h *Handlers) HandleReset(c *gin.Context) {
	var req ResetRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	ids := req.IDs
	if len(ids) == 0 {
		ids = h.check.DirtyIDs()
	}
	resp := ResetResponse{Reset: []string{}}
	if len(ids) == 0 {
		c.JSON(http.StatusOK, resp)
		return
	}
	if err := h.check.Reset(domain.ResetParams[domain.Document]{Paths: req.Paths}, ids...); err != nil {
		h.fail(c, err)
		return
	}
	for _, id := range ids {
		if h.check.HasHead(id) {
			resp.Reset = append(resp.Reset, id)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleCommit handles POST /api/v1/commit.
func (h *Handlers) HandleCommit(c *gin.Context) {
	var req IDsRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.commit.Execute(c.Request.Context(), &commit_dirty.Request{IDs: req.IDs})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, CommitResponse{
		Committed: nonNil(resp.Committed),
		Deleted:   nonNil(resp.Deleted),
		Stale:     nonNil(resp.Stale),
	})
}

// HandleLoad handles POST /api/v1/load.
func (h *Handlers) HandleLoad(c *gin.Context) {
	var req IDsRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.load.Execute(c.Request.Context(), &load_collection.Request{IDs: req.IDs})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, LoadResponse{Loaded: nonNil(resp.Loaded)})
}

func (h *Handlers) respondEntity(c *gin.Context, code int, id string, entity domain.Document) {
	status, err := h.report.Get(c.Request.Context(), &dirty_report.StatusRequest{ID: id})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(code, EntityResponse{Entity: entity, Status: status})
}

// bindOptional decodes a JSON body when one was sent.
func bindOptional(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
