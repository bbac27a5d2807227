package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/committer"
)

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// mapDomainError converts domain errors to HTTP status codes.
func mapDomainError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, domain.ErrEntityNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "entity not found", Code: "ENTITY_NOT_FOUND"}

	case errors.Is(err, domain.ErrEmptyEntityID):
		return http.StatusBadRequest, ErrorResponse{Error: "entity id cannot be empty", Code: "INVALID_ID"}

	case errors.Is(err, domain.ErrDecodeEntity), errors.Is(err, domain.ErrEncodeEntity):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_ENTITY"}

	case errors.Is(err, committer.ErrVersionConflict):
		return http.StatusConflict, ErrorResponse{Error: "entity was modified concurrently", Code: "VERSION_CONFLICT"}

	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL"}
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status, body := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "route", c.FullPath(), "error", err)
	} else {
		h.logger.Warn("request rejected", "route", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
}
