package dirty_report

import (
	"context"
	"slices"
	"time"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/engine"
)

// EntityStatus is the dirty status of one entity.
type EntityStatus struct {
	ID             string     `json:"id"`
	Tracked        bool       `json:"tracked"`
	Dirty          bool       `json:"dirty"`
	DirtyFields    []string   `json:"dirty_fields,omitempty"`
	HeadCapturedAt *time.Time `json:"head_captured_at,omitempty"`
	Version        int64      `json:"version"`
	// PathDirty is set when the request named a path.
	PathDirty *bool `json:"path_dirty,omitempty"`
}

// Report summarizes a collection.
type Report struct {
	Tracked   int            `json:"tracked"`
	SomeDirty bool           `json:"some_dirty"`
	Entities  []EntityStatus `json:"entities"`
}

// Request selects the report content.
type Request struct {
	// All lists clean entities too.
	All bool
}

// StatusRequest selects one entity.
type StatusRequest struct {
	ID   string
	Path string
}

// Query reads dirty status from the engine.
type Query[E any] struct {
	check    *engine.EntityDirtyCheck[string, E]
	versions *domain.VersionBook
}

// NewQuery creates a new dirty report query.
func NewQuery[E any](check *engine.EntityDirtyCheck[string, E], versions *domain.VersionBook) *Query[E] {
	return &Query[E]{check: check, versions: versions}
}

// Execute lists the dirty entities, or every tracked one when req.All is set.
func (q *Query[E]) Execute(_ context.Context, req *Request) (*Report, error) {
	ids := q.check.DirtyIDs()
	tracked := q.check.TrackedIDs()
	if req != nil && req.All {
		ids = tracked
	}

	report := &Report{
		Tracked:   len(tracked),
		SomeDirty: q.check.SomeDirty(),
		Entities:  make([]EntityStatus, 0, len(ids)),
	}
	for _, id := range ids {
		status, err := q.status(id, "")
		if err != nil {
			return nil, err
		}
		report.Entities = append(report.Entities, status)
	}
	return report, nil
}

// Get returns the status of one entity. Untracked IDs are reported as clean
// and untracked, not as an error.
func (q *Query[E]) Get(_ context.Context, req *StatusRequest) (EntityStatus, error) {
	return q.status(req.ID, req.Path)
}

func (q *Query[E]) status(id, path string) (EntityStatus, error) {
	status := EntityStatus{ID: id, Version: q.versions.Get(id)}

	capturedAt, ok := q.check.HeadCapturedAt(id)
	if !ok {
		status.Tracked = slices.Contains(q.check.TrackedIDs(), id)
		return status, nil
	}
	status.Tracked = true
	status.HeadCapturedAt = &capturedAt
	status.Dirty = q.check.IsDirty(id)

	if status.Dirty {
		fields, err := q.check.DirtyFields(id)
		if err != nil {
			return EntityStatus{}, err
		}
		status.DirtyFields = fields
	}
	if path != "" {
		dirty, _ := q.check.IsPathDirty(id, path)
		status.PathDirty = &dirty
	}
	return status, nil
}

