package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/contracts"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/stream"
)

// EntityDirtyCheck tracks the dirty status of the entities of one store.
//
// On creation it builds a tracker for every tracked ID present in the store
// and captures each head. Afterwards it follows the store's membership:
// added IDs get a tracker with a fresh head, removed IDs lose theirs.
//
// Once destroyed, every method is a no-op and every query answers as if
// nothing were tracked.
type EntityDirtyCheck[K comparable, E any] struct {
	store   contracts.EntityStore[K, E]
	params  Params[K, E]
	logger  *slog.Logger
	members *Collection[K, Tracker[K, E]]

	// trigger forces an aggregate re-evaluation after SetHead.
	trigger *stream.Subject[struct{}]
	// closing completes when the check is destroyed.
	closing *stream.Subject[struct{}]

	mu          sync.Mutex
	initialized bool
	destroyed   bool
	membership  stream.Subscription
}

// New creates a dirty check over store.
func New[K comparable, E any](store contracts.EntityStore[K, E], params Params[K, E]) *EntityDirtyCheck[K, E] {
	params = params.withDefaults()

	d := &EntityDirtyCheck[K, E]{
		store:   store,
		params:  params,
		logger:  params.Logger,
		trigger: stream.NewSubject[struct{}](),
		closing: stream.NewSubject[struct{}](),
	}

	factory := params.TrackerFactory
	if factory == nil {
		factory = NewTrackerFactory(TrackerConfig[K, E]{
			Store:      store,
			Comparator: params.Comparator,
			Cloner:     params.Cloner,
			Clock:      params.Clock,
			Logger:     params.Logger,
		})
	}
	d.members = NewCollection[K, Tracker[K, E]](store, factory.CreateTracker, params.EntityIDs)
	d.members.Rebase(store.IDs(), d.rebaseActions())

	sub := stream.Listen(store.SelectIDs(), d.onMembership)
	d.mu.Lock()
	d.membership = sub
	d.mu.Unlock()

	d.logger.Debug("dirty check created", slog.Int("tracked", d.members.Len()))
	return d
}

// onMembership rebases the trackers. The first delivery is the replay of the
// membership the constructor already used and is skipped.
func (d *EntityDirtyCheck[K, E]) onMembership(ids []K) {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	if !d.initialized {
		d.initialized = true
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	d.members.Rebase(ids, d.rebaseActions())
}

func (d *EntityDirtyCheck[K, E]) rebaseActions() RebaseActions[K, Tracker[K, E]] {
	return RebaseActions[K, Tracker[K, E]]{
		AfterAdd: func(id K, t Tracker[K, E]) {
			d.params.Recorder.TrackerCreated()
			t.SetHead()
			d.params.Recorder.HeadCaptured()
			d.logger.Debug("tracking entity", slog.Any("entity_id", id))
		},
		BeforeRemove: func(id K, _ Tracker[K, E]) {
			d.params.Recorder.TrackerDestroyed()
			d.logger.Debug("entity left the store", slog.Any("entity_id", id))
		},
	}
}

// SetHead captures the current value of ids, or of every tracked entity when
// ids is empty, as the new head.
func (d *EntityDirtyCheck[K, E]) SetHead(ids ...K) *EntityDirtyCheck[K, E] {
	if d.Destroyed() {
		return d
	}
	d.members.ForEach(ids, func(_ K, t Tracker[K, E]) {
		t.SetHead()
		d.params.Recorder.HeadCaptured()
	})
	d.trigger.Next(struct{}{})
	return d
}

// SetHeadTo captures value as the head of id, for example the value that was
// just persisted. Untracked IDs are ignored. It reports whether id is still
// dirty afterwards, judged by the configured comparator.
func (d *EntityDirtyCheck[K, E]) SetHeadTo(id K, value E) (dirty bool) {
	t, ok := d.tracker(id)
	if !ok {
		return false
	}
	t.SetHeadTo(value)
	d.params.Recorder.HeadCaptured()
	d.trigger.Next(struct{}{})
	return t.IsDirty()
}

// HasHead reports whether id is tracked and has a head.
func (d *EntityDirtyCheck[K, E]) HasHead(id K) bool {
	t, ok := d.tracker(id)
	return ok && t.HasHead()
}

// HeadCapturedAt returns when the head of id was captured.
func (d *EntityDirtyCheck[K, E]) HeadCapturedAt(id K) (time.Time, bool) {
	t, ok := d.tracker(id)
	if !ok {
		return time.Time{}, false
	}
	return t.HeadCapturedAt()
}

// Head returns a copy of the head of id.
func (d *EntityDirtyCheck[K, E]) Head(id K) (E, bool) {
	t, ok := d.tracker(id)
	if !ok {
		var zero E
		return zero, false
	}
	return t.Head()
}

// Reset writes the head of ids, or of every tracked entity when ids is
// empty, back into the store. Untracked IDs and entities without a head are
// skipped. Errors only come from path restores that fail to encode or decode
// an entity; the remaining IDs are still reset.
func (d *EntityDirtyCheck[K, E]) Reset(params domain.ResetParams[E], ids ...K) error {
	if d.Destroyed() {
		return nil
	}
	var errs []error
	d.members.ForEach(ids, func(id K, t Tracker[K, E]) {
		if !t.HasHead() {
			return
		}
		if err := t.Reset(params); err != nil {
			d.logger.Warn("reset failed", slog.Any("entity_id", id), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("reset %v: %w", id, err))
			return
		}
		d.params.Recorder.EntityReset()
	})
	return errors.Join(errs...)
}

// IsDirty reports whether id diverged from its head. Untracked IDs are never
// dirty.
func (d *EntityDirtyCheck[K, E]) IsDirty(id K) bool {
	t, ok := d.tracker(id)
	return ok && t.IsDirty()
}

// SelectIsDirty streams the dirty status of id, emitting only changes. For
// an untracked ID the stream emits false once and completes.
func (d *EntityDirtyCheck[K, E]) SelectIsDirty(id K) stream.Observable[bool] {
	t, ok := d.tracker(id)
	if !ok {
		return stream.Of(false)
	}
	return t.SelectIsDirty()
}

// IsPathDirty compares one nested path of id against its head. ok is false
// when id is not tracked.
func (d *EntityDirtyCheck[K, E]) IsPathDirty(id K, path string) (dirty, ok bool) {
	t, ok := d.tracker(id)
	if !ok {
		return false, false
	}
	return t.IsPathDirty(path), true
}

// DirtyFields names the top-level fields of id that differ from its head.
func (d *EntityDirtyCheck[K, E]) DirtyFields(id K) ([]string, error) {
	t, ok := d.tracker(id)
	if !ok {
		return nil, nil
	}
	return t.DirtyFields()
}

// SomeDirty reports whether any tracked entity is dirty.
func (d *EntityDirtyCheck[K, E]) SomeDirty() bool {
	if d.Destroyed() {
		return false
	}
	return d.checkSomeDirty()
}

// DirtyIDs returns the dirty tracked IDs in store order.
func (d *EntityDirtyCheck[K, E]) DirtyIDs() []K {
	var out []K
	if d.Destroyed() {
		return out
	}
	d.members.ForEach(nil, func(id K, t Tracker[K, E]) {
		if t.IsDirty() {
			out = append(out, id)
		}
	})
	return out
}

// TrackedIDs returns the tracked IDs in store order.
func (d *EntityDirtyCheck[K, E]) TrackedIDs() []K {
	if d.Destroyed() {
		return nil
	}
	return d.members.ResolvedIDs()
}

// SelectSomeDirty streams whether any tracked entity is dirty.
//
// Store changes and SetHead calls are coalesced: the stream evaluates once
// per scheduling turn, after the burst, and may repeat a value. The store
// replays its latest snapshot on subscribe, so the first evaluation follows
// on the next turn. Destroying
// the check completes it and drops any pending evaluation.
func (d *EntityDirtyCheck[K, E]) SelectSomeDirty() stream.Observable[bool] {
	changes := stream.Merge(
		stream.Map(d.store.SelectEntities(), func(map[K]E) struct{} { return struct{}{} }),
		d.trigger.AsObservable(),
	)
	evaluated := stream.Map(stream.Audit(changes, d.params.Scheduler), func(struct{}) bool {
		dirty := d.checkSomeDirty()
		d.params.Recorder.SomeDirtyEvaluated(dirty)
		return dirty
	})
	return stream.TakeUntil[bool, struct{}](evaluated, d.closing)
}

// Destroy releases the trackers of ids. Without ids, or when no tracker is
// left afterwards, the whole check is destroyed: all streams complete and the
// store is no longer observed.
func (d *EntityDirtyCheck[K, E]) Destroy(ids ...K) {
	if d.Destroyed() {
		return
	}
	if len(ids) > 0 {
		released := d.members.Release(ids...)
		for range released {
			d.params.Recorder.TrackerDestroyed()
		}
		if d.members.Len() > 0 {
			return
		}
	}
	d.close()
}

// Destroyed reports whether the check reached its terminal state.
func (d *EntityDirtyCheck[K, E]) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

func (d *EntityDirtyCheck[K, E]) close() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	membership := d.membership
	d.membership = nil
	d.mu.Unlock()

	if membership != nil {
		membership.Unsubscribe()
	}
	released := d.members.ReleaseAll()
	for range released {
		d.params.Recorder.TrackerDestroyed()
	}
	d.closing.Complete()
	d.trigger.Complete()

	d.logger.Info("dirty check destroyed", slog.Int("released", released))
}

// checkSomeDirty stops at the first dirty tracker.
func (d *EntityDirtyCheck[K, E]) checkSomeDirty() bool {
	for _, id := range d.members.ResolvedIDs() {
		if t, ok := d.members.Get(id); ok && t.IsDirty() {
			return true
		}
	}
	return false
}

func (d *EntityDirtyCheck[K, E]) tracker(id K) (Tracker[K, E], bool) {
	if d.Destroyed() {
		return nil, false
	}
	return d.members.Get(id)
}
