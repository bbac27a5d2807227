package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/queries/list_events"
)

// Event represents a domain event in the HTTP response.
type Event struct {
	EventID     string  `json:"event_id"`
	EventType   string  `json:"event_type"`
	AggregateID string  `json:"aggregate_id"`
	Payload     string  `json:"payload"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

// ListEventsResponse represents the HTTP response for listing events.
type ListEventsResponse struct {
	Events     []Event `json:"events"`
	TotalCount int64   `json:"total_count"`
}

// HandleListEvents handles GET /api/v1/events.
func (h *Handlers) HandleListEvents(c *gin.Context) {
	req := &list_events.Request{
		EventType:   c.Query("event_type"),
		AggregateID: c.Query("aggregate_id"),
		Status:      c.Query("status"),
	}
	if v := c.Query("unprocessed"); v != "" {
		unprocessed, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		req.Unprocessed = unprocessed
	}
	if v := c.Query("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			req.Limit = limit
		}
	}

	rows, total, err := h.events.Execute(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		event := Event{
			EventID:     row.EventID,
			EventType:   row.EventType,
			AggregateID: row.AggregateID,
			Status:      row.Status,
			CreatedAt:   row.CreatedAt.Format(time.RFC3339),
		}
		if row.Payload.Valid {
			event.Payload = row.Payload.String()
		}
		if row.ProcessedAt.Valid {
			processedAt := row.ProcessedAt.Time.Format(time.RFC3339)
			event.ProcessedAt = &processedAt
		}
		events = append(events, event)
	}

	c.JSON(http.StatusOK, ListEventsResponse{
		Events:     events,
		TotalCount: total,
	})
}
