// Package stream provides a small push-based observable toolkit: subjects
// that fan values out to observers, and the handful of operators the
// dirty-check engine composes (map, skip, distinct, merge, audit).
//
// Emission is synchronous on the goroutine that calls Next, with the single
// exception of Audit, which hands its flush to a Scheduler. Every type in the
// package is safe for concurrent use; no lock is held while an observer runs,
// so observers may subscribe, unsubscribe or emit re-entrantly.
//
// Completion is terminal: a completed source never emits again, and
// subscribing to it completes the new observer immediately.
package stream

import "sync"

// Observer receives values and the completion signal from an Observable.
// Either callback may be nil.
type Observer[T any] struct {
	Next     func(T)
	Complete func()
}

func (o Observer[T]) next(v T) {
	if o.Next != nil {
		o.Next(v)
	}
}

func (o Observer[T]) complete() {
	if o.Complete != nil {
		o.Complete()
	}
}

// Subscription detaches an observer from its source.
// Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Unsubscribe calls f.
func (f SubscriptionFunc) Unsubscribe() { f() }

// Observable is a push-stream of T.
type Observable[T any] interface {
	Subscribe(o Observer[T]) Subscription
}

// ObservableFunc adapts a subscribe function to Observable.
type ObservableFunc[T any] func(o Observer[T]) Subscription

// Subscribe calls f.
func (f ObservableFunc[T]) Subscribe(o Observer[T]) Subscription { return f(o) }

// Scheduler defers a task to a later turn.
type Scheduler interface {
	Schedule(task func())
}

// Listen subscribes next as a value-only observer.
func Listen[T any](src Observable[T], next func(T)) Subscription {
	return src.Subscribe(Observer[T]{Next: next})
}

// Of emits v to each subscriber and completes.
func Of[T any](v T) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) Subscription {
		o.next(v)
		o.complete()
		return noopSubscription
	})
}

var noopSubscription = SubscriptionFunc(func() {})

func once(f func()) Subscription {
	var o sync.Once
	return SubscriptionFunc(func() { o.Do(f) })
}
