package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/contracts"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/clock"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/stream"
)

// Tracker owns the head of one entity and reports its dirty status.
type Tracker[K comparable, E any] interface {
	ID() K

	// SetHead captures the current value as the head. It is a no-op when the
	// entity is not in the store.
	SetHead()
	// SetHeadTo captures value as the head, whatever the store holds.
	SetHeadTo(value E)
	HasHead() bool
	Head() (E, bool)
	HeadCapturedAt() (time.Time, bool)

	IsDirty() bool
	SelectIsDirty() stream.Observable[bool]

	// IsPathDirty compares one nested path of the head and the current value.
	IsPathDirty(path string) bool

	// DirtyFields names the top-level fields that differ from the head.
	DirtyFields() ([]string, error)

	// Reset writes the head back into the store. Without a head it does
	// nothing.
	Reset(params domain.ResetParams[E]) error

	Destroy()
}

// TrackerConfig holds what the default tracker needs from its owner.
type TrackerConfig[K comparable, E any] struct {
	Store      contracts.EntityStore[K, E]
	Comparator domain.Comparator
	Cloner     func(E) E
	Clock      clock.Clock
	Logger     *slog.Logger
}

// EntityTracker is the default Tracker. It subscribes to the store's content
// stream and recomputes its dirty status on every snapshot.
type EntityTracker[K comparable, E any] struct {
	id  K
	cfg TrackerConfig[K, E]

	mu         sync.Mutex
	head       E
	hasHead    bool
	capturedAt time.Time
	destroyed  bool
	sub        stream.Subscription

	dirty *stream.Subject[bool]
}

var _ Tracker[string, any] = (*EntityTracker[string, any])(nil)

// NewEntityTracker creates a tracker without a head and starts listening to
// the store.
func NewEntityTracker[K comparable, E any](id K, cfg TrackerConfig[K, E]) *EntityTracker[K, E] {
	t := &EntityTracker[K, E]{
		id:    id,
		cfg:   cfg,
		dirty: stream.NewBehavior(false),
	}
	t.sub = stream.Listen(cfg.Store.SelectEntities(), func(snapshot map[K]E) {
		current, ok := snapshot[id]
		t.dirty.Next(t.compare(current, ok))
	})
	return t
}

func (t *EntityTracker[K, E]) ID() K {
	return t.id
}

func (t *EntityTracker[K, E]) SetHead() {
	current, ok := t.cfg.Store.GetEntity(t.id)
	if !ok {
		return
	}

	t.capture(current)
	t.dirty.Next(false)
}

// SetHeadTo re-evaluates against the store afterwards, so the status stays
// dirty when the live value differs from value.
func (t *EntityTracker[K, E]) SetHeadTo(value E) {
	t.capture(value)
	t.dirty.Next(t.IsDirty())
}

func (t *EntityTracker[K, E]) capture(value E) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return
	}
	t.head = t.cfg.Cloner(value)
	t.hasHead = true
	t.capturedAt = t.cfg.Clock.Now()
}

func (t *EntityTracker[K, E]) HasHead() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasHead
}

// Head returns a copy of the head.
func (t *EntityTracker[K, E]) Head() (E, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasHead {
		var zero E
		return zero, false
	}
	return t.cfg.Cloner(t.head), true
}

func (t *EntityTracker[K, E]) HeadCapturedAt() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.capturedAt, t.hasHead
}

func (t *EntityTracker[K, E]) IsDirty() bool {
	current, ok := t.cfg.Store.GetEntity(t.id)
	return t.compare(current, ok)
}

// SelectIsDirty replays the latest status and then emits only changes.
func (t *EntityTracker[K, E]) SelectIsDirty() stream.Observable[bool] {
	return stream.Distinct[bool](t.dirty)
}

// IsPathDirty is false without a head or without a current value, like
// IsDirty.
func (t *EntityTracker[K, E]) IsPathDirty(path string) bool {
	head, ok := t.Head()
	if !ok {
		return false
	}
	current, ok := t.cfg.Store.GetEntity(t.id)
	if !ok {
		return false
	}
	return t.cfg.Comparator(domain.GetNestedPath(head, path), domain.GetNestedPath(current, path))
}

func (t *EntityTracker[K, E]) DirtyFields() ([]string, error) {
	head, ok := t.Head()
	if !ok {
		return nil, nil
	}
	current, ok := t.cfg.Store.GetEntity(t.id)
	if !ok {
		return nil, nil
	}
	ct, err := domain.DiffFields(head, current)
	if err != nil {
		return nil, err
	}
	return ct.DirtyFields(), nil
}

func (t *EntityTracker[K, E]) Reset(params domain.ResetParams[E]) error {
	head, ok := t.Head()
	if !ok {
		return nil
	}
	current, ok := t.cfg.Store.GetEntity(t.id)
	if !ok {
		return nil
	}

	value, err := params.Resolve(head, current)
	if err != nil {
		return err
	}

	// The store publishes the write, which drives the status back to clean.
	t.cfg.Store.Replace(t.id, value)
	t.dirty.Next(t.IsDirty())
	return nil
}

// Destroy drops the head, stops listening and completes the status stream.
// Calling it again does nothing.
func (t *EntityTracker[K, E]) Destroy() {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}
	t.destroyed = true
	var zero E
	t.head = zero
	t.hasHead = false
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	t.dirty.Complete()
	t.cfg.Logger.Debug("tracker destroyed", slog.Any("entity_id", t.id))
}

// compare evaluates dirtiness of current against the head.
func (t *EntityTracker[K, E]) compare(current E, exists bool) bool {
	t.mu.Lock()
	if !t.hasHead || !exists {
		t.mu.Unlock()
		return false
	}
	head := t.head
	t.mu.Unlock()

	return t.cfg.Comparator(head, current)
}
