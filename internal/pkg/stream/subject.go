package stream

import "sync"

type entry[T any] struct {
	id  uint64
	obs Observer[T]
}

// Subject is a multicast source. Values passed to Next are delivered to every
// observer subscribed at that moment, in subscription order.
//
// A Subject created with NewBehavior also remembers the latest value and
// replays it to each new subscriber.
type Subject[T any] struct {
	mu      sync.Mutex
	entries []entry[T]
	nextID  uint64
	closed  bool

	replay bool
	value  T
}

// NewSubject creates a Subject without replay.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// NewBehavior creates a Subject that replays its latest value, starting with
// initial.
func NewBehavior[T any](initial T) *Subject[T] {
	return &Subject[T]{replay: true, value: initial}
}

// Subscribe registers o. On a completed subject o is completed immediately.
func (s *Subject[T]) Subscribe(o Observer[T]) Subscription {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		o.complete()
		return noopSubscription
	}
	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, entry[T]{id: id, obs: o})
	replay, current := s.replay, s.value
	s.mu.Unlock()

	if replay {
		o.next(current)
	}
	return once(func() { s.remove(id) })
}

// Next delivers v. It is a no-op once the subject completed.
func (s *Subject[T]) Next(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.replay {
		s.value = v
	}
	observers := s.snapshot()
	s.mu.Unlock()

	for _, o := range observers {
		o.next(v)
	}
}

// Complete completes every observer and closes the subject for good.
func (s *Subject[T]) Complete() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	observers := s.snapshot()
	s.entries = nil
	s.mu.Unlock()

	for _, o := range observers {
		o.complete()
	}
}

// Closed reports whether Complete was called.
func (s *Subject[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Value returns the latest value of a behavior subject, or the zero value.
func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Observers returns the number of live subscriptions.
func (s *Subject[T]) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// AsObservable hides Next and Complete from consumers.
func (s *Subject[T]) AsObservable() Observable[T] {
	return ObservableFunc[T](s.Subscribe)
}

func (s *Subject[T]) snapshot() []Observer[T] {
	observers := make([]Observer[T], len(s.entries))
	for i, e := range s.entries {
		observers[i] = e.obs
	}
	return observers
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return
		}
	}
}
