package domain

import (
	"sort"
	"sync"
)

// VersionBook remembers the persisted version of each entity, the base for
// optimistic locking on the next commit. A missing entry means the entity
// was never persisted.
type VersionBook struct {
	mu       sync.RWMutex
	versions map[string]int64
}

// NewVersionBook creates an empty VersionBook.
func NewVersionBook() *VersionBook {
	return &VersionBook{versions: make(map[string]int64)}
}

// Get returns the version of id, or 0 if unknown.
func (b *VersionBook) Get(id string) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.versions[id]
}

// Set records the version of id.
func (b *VersionBook) Set(id string, version int64) {
	b.mu.Lock()
	b.versions[id] = version
	b.mu.Unlock()
}

// Forget drops id.
func (b *VersionBook) Forget(id string) {
	b.mu.Lock()
	delete(b.versions, id)
	b.mu.Unlock()
}

// IDs returns the known IDs in sorted order.
func (b *VersionBook) IDs() []string {
	b.mu.RLock()
	ids := make([]string, 0, len(b.versions))
	for id := range b.versions {
		ids = append(ids, id)
	}
	b.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
