package domain

import (
	"sort"

	"github.com/tidwall/gjson"
)

// RootField names the whole value when head or current is not a JSON object.
const RootField = "$"

// ChangeTracker tracks which fields of an entity differ from its baseline.
// This allows repositories and reports to name the changed fields instead of
// just flagging the entity.
type ChangeTracker struct {
	dirtyFields map[string]bool
}

// NewChangeTracker creates a new ChangeTracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{
		dirtyFields: make(map[string]bool),
	}
}

// DiffFields compares the top-level fields of head and current.
// Non-object values are compared as a whole and reported as RootField.
func DiffFields(head, current any) (*ChangeTracker, error) {
	ct := NewChangeTracker()

	headJSON, err := ToJSON(head)
	if err != nil {
		return nil, err
	}
	currentJSON, err := ToJSON(current)
	if err != nil {
		return nil, err
	}

	h := gjson.ParseBytes(headJSON)
	c := gjson.ParseBytes(currentJSON)
	if !h.IsObject() || !c.IsObject() {
		if h.Raw != c.Raw {
			ct.MarkDirty(RootField)
		}
		return ct, nil
	}

	headFields := h.Map()
	currentFields := c.Map()
	for key, hv := range headFields {
		cv, ok := currentFields[key]
		if !ok || hv.Raw != cv.Raw {
			ct.MarkDirty(key)
		}
	}
	for key := range currentFields {
		if _, ok := headFields[key]; !ok {
			ct.MarkDirty(key)
		}
	}
	return ct, nil
}

// MarkDirty marks a field as dirty (modified).
func (ct *ChangeTracker) MarkDirty(field string) {
	ct.dirtyFields[field] = true
}

// Dirty checks if a field has been modified.
func (ct *ChangeTracker) Dirty(field string) bool {
	return ct.dirtyFields[field]
}

// Clear clears all dirty field markers.
func (ct *ChangeTracker) Clear() {
	ct.dirtyFields = make(map[string]bool)
}

// HasChanges returns true if any field has been modified.
func (ct *ChangeTracker) HasChanges() bool {
	return len(ct.dirtyFields) > 0
}

// DirtyFields returns the dirty field names in lexical order.
func (ct *ChangeTracker) DirtyFields() []string {
	fields := make([]string, 0, len(ct.dirtyFields))
	for field := range ct.dirtyFields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
