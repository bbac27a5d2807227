package repo

import (
	"sync"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/contracts"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/stream"
)

// Entry pairs an entity with its ID.
type Entry[K comparable, E any] struct {
	ID     K
	Entity E
}

// MemoryStore is an in-memory keyed collection that publishes its content
// and membership as streams.
//
// Every mutation publishes the membership stream first (only when the ID set
// changed) and the content stream second, after the store lock is released.
// Publications are queued under the lock and delivered by one goroutine at a
// time, so observers see them in mutation order. A mutation made from inside
// an observer is delivered after the current publication completes.
type MemoryStore[K comparable, E any] struct {
	mu       sync.RWMutex
	ids      []K
	entities map[K]E

	queue      []publication[K, E]
	publishing bool

	idsSubject      *stream.Subject[[]K]
	entitiesSubject *stream.Subject[map[K]E]
}

var _ contracts.EntityStore[string, any] = (*MemoryStore[string, any])(nil)

type publication[K comparable, E any] struct {
	ids      []K
	snapshot map[K]E
}

// NewMemoryStore creates a store holding entries in the given order.
func NewMemoryStore[K comparable, E any](entries ...Entry[K, E]) *MemoryStore[K, E] {
	s := &MemoryStore[K, E]{entities: make(map[K]E, len(entries))}
	for _, e := range entries {
		if _, ok := s.entities[e.ID]; !ok {
			s.ids = append(s.ids, e.ID)
		}
		s.entities[e.ID] = e.Entity
	}
	s.idsSubject = stream.NewBehavior(s.copyIDs())
	s.entitiesSubject = stream.NewBehavior(s.copyEntities())
	return s
}

// SelectEntities streams collection snapshots.
func (s *MemoryStore[K, E]) SelectEntities() stream.Observable[map[K]E] {
	return s.entitiesSubject.AsObservable()
}

// SelectIDs streams the ordered ID set.
func (s *MemoryStore[K, E]) SelectIDs() stream.Observable[[]K] {
	return s.idsSubject.AsObservable()
}

// IDs returns the current ordered ID set.
func (s *MemoryStore[K, E]) IDs() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyIDs()
}

// Entities returns a snapshot of the collection.
func (s *MemoryStore[K, E]) Entities() map[K]E {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyEntities()
}

// Count returns the number of entities.
func (s *MemoryStore[K, E]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// GetEntity looks up one entity.
func (s *MemoryStore[K, E]) GetEntity(id K) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	return e, ok
}

// HasEntity reports membership.
func (s *MemoryStore[K, E]) HasEntity(id K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[id]
	return ok
}

// Add inserts new entities and ignores IDs that already exist.
// It returns how many were inserted.
func (s *MemoryStore[K, E]) Add(entries ...Entry[K, E]) int {
	added := 0
	s.mutate(func() (bool, bool) {
		for _, e := range entries {
			if _, ok := s.entities[e.ID]; ok {
				continue
			}
			s.ids = append(s.ids, e.ID)
			s.entities[e.ID] = e.Entity
			added++
		}
		return added > 0, added > 0
	})
	return added
}

// Upsert inserts or overwrites entities.
func (s *MemoryStore[K, E]) Upsert(entries ...Entry[K, E]) {
	if len(entries) == 0 {
		return
	}
	s.mutate(func() (bool, bool) {
		grew := false
		for _, e := range entries {
			if _, ok := s.entities[e.ID]; !ok {
				s.ids = append(s.ids, e.ID)
				grew = true
			}
			s.entities[e.ID] = e.Entity
		}
		return grew, true
	})
}

// Update applies fn to an existing entity under the store lock, so fn must
// not call back into the store. It reports whether id exists.
func (s *MemoryStore[K, E]) Update(id K, fn func(E) E) bool {
	s.mu.Lock()
	current, ok := s.entities[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.entities[id] = fn(current)
	s.queue = append(s.queue, publication[K, E]{snapshot: s.copyEntities()})
	s.mu.Unlock()

	s.publish()
	return true
}

// Replace overwrites an existing entity. Unknown IDs are ignored.
func (s *MemoryStore[K, E]) Replace(id K, entity E) bool {
	return s.Update(id, func(E) E { return entity })
}

// Remove deletes entities and returns how many existed.
func (s *MemoryStore[K, E]) Remove(ids ...K) int {
	removed := 0
	s.mutate(func() (bool, bool) {
		for _, id := range ids {
			if _, ok := s.entities[id]; !ok {
				continue
			}
			delete(s.entities, id)
			removed++
		}
		if removed == 0 {
			return false, false
		}
		kept := make([]K, 0, len(s.entities))
		for _, id := range s.ids {
			if _, ok := s.entities[id]; ok {
				kept = append(kept, id)
			}
		}
		s.ids = kept
		return true, true
	})
	return removed
}

// Set replaces the whole collection.
func (s *MemoryStore[K, E]) Set(entries ...Entry[K, E]) {
	s.mutate(func() (bool, bool) {
		s.ids = make([]K, 0, len(entries))
		s.entities = make(map[K]E, len(entries))
		for _, e := range entries {
			if _, ok := s.entities[e.ID]; !ok {
				s.ids = append(s.ids, e.ID)
			}
			s.entities[e.ID] = e.Entity
		}
		return true, true
	})
}

// mutate runs fn under the write lock. fn reports whether membership and
// content changed.
func (s *MemoryStore[K, E]) mutate(fn func() (membership, content bool)) {
	s.mu.Lock()
	membershipChanged, contentChanged := fn()
	if membershipChanged || contentChanged {
		var p publication[K, E]
		if membershipChanged {
			p.ids = s.copyIDs()
		}
		p.snapshot = s.copyEntities()
		s.queue = append(s.queue, p)
	}
	s.mu.Unlock()

	s.publish()
}

// publish drains the queue unless another call is already draining it.
func (s *MemoryStore[K, E]) publish() {
	s.mu.Lock()
	if s.publishing {
		s.mu.Unlock()
		return
	}
	s.publishing = true
	for len(s.queue) > 0 {
		p := s.queue[0]
		s.queue[0] = publication[K, E]{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if p.ids != nil {
			s.idsSubject.Next(p.ids)
		}
		s.entitiesSubject.Next(p.snapshot)

		s.mu.Lock()
	}
	s.publishing = false
	s.mu.Unlock()
}

func (s *MemoryStore[K, E]) copyIDs() []K {
	ids := make([]K, len(s.ids))
	copy(ids, s.ids)
	return ids
}

func (s *MemoryStore[K, E]) copyEntities() map[K]E {
	m := make(map[K]E, len(s.entities))
	for k, v := range s.entities {
		m[k] = v
	}
	return m
}
