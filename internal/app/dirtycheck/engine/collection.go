package engine

import (
	"sync"

	"github.com/light-bringer/dirtycheck-service/internal/pkg/stream"
)

// IDSource publishes an ordered set of IDs.
type IDSource[K comparable] interface {
	IDs() []K
	SelectIDs() stream.Observable[[]K]
}

// Companion is anything a Collection keeps per ID.
type Companion interface {
	Destroy()
}

// RebaseActions are hooks run while a Collection reconciles its members.
// Any of them may be nil.
type RebaseActions[K comparable, T Companion] struct {
	BeforeAdd    func(id K)
	AfterAdd     func(id K, companion T)
	BeforeRemove func(id K, companion T)
}

// Collection mirrors the membership of an IDSource with one companion per
// tracked ID.
//
// The tracked set is either every ID of the source (no explicit IDs given)
// or a fixed list. Released IDs leave the tracked set for good, so a later
// rebase does not bring them back.
type Collection[K comparable, T Companion] struct {
	source IDSource[K]
	create func(id K) T

	mu         sync.Mutex
	explicit   map[K]struct{}
	excluded   map[K]struct{}
	companions map[K]T
}

// NewCollection creates an empty Collection. Call Rebase to populate it.
func NewCollection[K comparable, T Companion](source IDSource[K], create func(id K) T, trackedIDs []K) *Collection[K, T] {
	c := &Collection[K, T]{
		source:     source,
		create:     create,
		excluded:   make(map[K]struct{}),
		companions: make(map[K]T),
	}
	if len(trackedIDs) > 0 {
		c.explicit = make(map[K]struct{}, len(trackedIDs))
		for _, id := range trackedIDs {
			c.explicit[id] = struct{}{}
		}
	}
	return c
}

// Rebase brings the companions in line with ids: tracked IDs without a
// companion get one, companions whose ID is gone are destroyed.
func (c *Collection[K, T]) Rebase(ids []K, actions RebaseActions[K, T]) {
	c.mu.Lock()
	want := make(map[K]struct{}, len(ids))
	var toAdd []K
	for _, id := range ids {
		if !c.trackedLocked(id) {
			continue
		}
		want[id] = struct{}{}
		if _, ok := c.companions[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	var toRemove []K
	for id := range c.companions {
		if _, ok := want[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	c.mu.Unlock()

	for _, id := range toRemove {
		c.remove(id, actions.BeforeRemove)
	}
	for _, id := range toAdd {
		c.add(id, actions)
	}
}

func (c *Collection[K, T]) add(id K, actions RebaseActions[K, T]) {
	if actions.BeforeAdd != nil {
		actions.BeforeAdd(id)
	}
	companion := c.create(id)

	c.mu.Lock()
	if _, ok := c.companions[id]; ok || !c.trackedLocked(id) {
		c.mu.Unlock()
		companion.Destroy()
		return
	}
	c.companions[id] = companion
	c.mu.Unlock()

	if actions.AfterAdd != nil {
		actions.AfterAdd(id, companion)
	}
}

func (c *Collection[K, T]) remove(id K, beforeRemove func(K, T)) bool {
	c.mu.Lock()
	companion, ok := c.companions[id]
	delete(c.companions, id)
	c.mu.Unlock()
	if !ok {
		return false
	}

	if beforeRemove != nil {
		beforeRemove(id, companion)
	}
	companion.Destroy()
	return true
}

// Release destroys the companions of ids and stops tracking those IDs.
// It returns how many companions were destroyed.
func (c *Collection[K, T]) Release(ids ...K) int {
	c.mu.Lock()
	for _, id := range ids {
		c.excluded[id] = struct{}{}
	}
	c.mu.Unlock()

	released := 0
	for _, id := range ids {
		if c.remove(id, nil) {
			released++
		}
	}
	return released
}

// ReleaseAll destroys every companion and stops tracking anything.
func (c *Collection[K, T]) ReleaseAll() int {
	c.mu.Lock()
	ids := make([]K, 0, len(c.companions))
	for id := range c.companions {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	return c.Release(ids...)
}

// Get returns the companion of id.
func (c *Collection[K, T]) Get(id K) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	companion, ok := c.companions[id]
	return companion, ok
}

// Len returns the number of companions.
func (c *Collection[K, T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.companions)
}

// Tracks reports whether id belongs to the tracked set.
func (c *Collection[K, T]) Tracks(id K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trackedLocked(id)
}

// ResolvedIDs returns the IDs that currently have a companion, in source
// order.
func (c *Collection[K, T]) ResolvedIDs() []K {
	ids := c.source.IDs()

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]K, 0, len(c.companions))
	for _, id := range ids {
		if _, ok := c.companions[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// ForEach calls fn for the companions of ids, or for every companion when
// ids is empty. IDs without a companion are skipped.
func (c *Collection[K, T]) ForEach(ids []K, fn func(id K, companion T)) {
	if len(ids) == 0 {
		ids = c.ResolvedIDs()
	}
	for _, id := range ids {
		if companion, ok := c.Get(id); ok {
			fn(id, companion)
		}
	}
}

func (c *Collection[K, T]) trackedLocked(id K) bool {
	if _, ok := c.excluded[id]; ok {
		return false
	}
	if c.explicit == nil {
		return true
	}
	_, ok := c.explicit[id]
	return ok
}
