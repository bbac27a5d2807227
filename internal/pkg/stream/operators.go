package stream

import "sync"

// Map transforms each value of src with fn.
func Map[T, R any](src Observable[T], fn func(T) R) Observable[R] {
	return ObservableFunc[R](func(o Observer[R]) Subscription {
		return src.Subscribe(Observer[T]{
			Next:     func(v T) { o.next(fn(v)) },
			Complete: o.complete,
		})
	})
}

// Skip drops the first n values of every subscription.
func Skip[T any](src Observable[T], n int) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) Subscription {
		var (
			mu      sync.Mutex
			skipped int
		)
		return src.Subscribe(Observer[T]{
			Next: func(v T) {
				mu.Lock()
				if skipped < n {
					skipped++
					mu.Unlock()
					return
				}
				mu.Unlock()
				o.next(v)
			},
			Complete: o.complete,
		})
	})
}

// Distinct suppresses values equal to the previous one.
func Distinct[T comparable](src Observable[T]) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) Subscription {
		var (
			mu   sync.Mutex
			last T
			seen bool
		)
		return src.Subscribe(Observer[T]{
			Next: func(v T) {
				mu.Lock()
				if seen && last == v {
					mu.Unlock()
					return
				}
				last, seen = v, true
				mu.Unlock()
				o.next(v)
			},
			Complete: o.complete,
		})
	})
}

// Merge interleaves the values of every source. The merged stream completes
// once all sources have completed.
func Merge[T any](srcs ...Observable[T]) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) Subscription {
		if len(srcs) == 0 {
			o.complete()
			return noopSubscription
		}

		var mu sync.Mutex
		remaining := len(srcs)
		done := func() {
			mu.Lock()
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				o.complete()
			}
		}

		subs := make([]Subscription, 0, len(srcs))
		for _, src := range srcs {
			subs = append(subs, src.Subscribe(Observer[T]{Next: o.next, Complete: done}))
		}
		return once(func() {
			for _, sub := range subs {
				sub.Unsubscribe()
			}
		})
	})
}

// TakeUntil mirrors src until notifier emits or completes, then completes
// and drops the upstream subscription. A notifier that already completed
// ends the stream before src is subscribed.
func TakeUntil[T, N any](src Observable[T], notifier Observable[N]) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) Subscription {
		var (
			mu       sync.Mutex
			stopped  bool
			upstream Subscription
		)
		stop := func() bool {
			mu.Lock()
			defer mu.Unlock()
			if stopped {
				return false
			}
			stopped = true
			return true
		}
		end := func() {
			if !stop() {
				return
			}
			mu.Lock()
			up := upstream
			mu.Unlock()
			if up != nil {
				up.Unsubscribe()
			}
			o.complete()
		}

		notifierSub := notifier.Subscribe(Observer[N]{
			Next:     func(N) { end() },
			Complete: end,
		})

		mu.Lock()
		if stopped {
			mu.Unlock()
			notifierSub.Unsubscribe()
			return noopSubscription
		}
		mu.Unlock()

		sub := src.Subscribe(Observer[T]{
			Next: func(v T) {
				mu.Lock()
				done := stopped
				mu.Unlock()
				if !done {
					o.next(v)
				}
			},
			Complete: end,
		})

		mu.Lock()
		if stopped {
			mu.Unlock()
			sub.Unsubscribe()
			notifierSub.Unsubscribe()
			return noopSubscription
		}
		upstream = sub
		mu.Unlock()

		return once(func() {
			stop()
			sub.Unsubscribe()
			notifierSub.Unsubscribe()
		})
	})
}

// Audit coalesces bursts. The first value of a burst schedules a flush on
// sched; values arriving before the flush only replace the pending value; the
// flush emits the latest one. Completion or unsubscription drops a pending
// flush, so nothing is emitted afterwards.
func Audit[T any](src Observable[T], sched Scheduler) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) Subscription {
		a := &auditor[T]{out: o, sched: sched}
		upstream := src.Subscribe(Observer[T]{Next: a.push, Complete: a.complete})
		return once(func() {
			a.stop()
			upstream.Unsubscribe()
		})
	})
}

type auditor[T any] struct {
	mu      sync.Mutex
	out     Observer[T]
	sched   Scheduler
	latest  T
	pending bool
	done    bool
}

func (a *auditor[T]) push(v T) {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return
	}
	a.latest = v
	if a.pending {
		a.mu.Unlock()
		return
	}
	a.pending = true
	a.mu.Unlock()

	a.sched.Schedule(a.flush)
}

func (a *auditor[T]) flush() {
	a.mu.Lock()
	if a.done || !a.pending {
		a.mu.Unlock()
		return
	}
	v := a.latest
	a.pending = false
	a.mu.Unlock()

	a.out.next(v)
}

func (a *auditor[T]) stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return false
	}
	a.done = true
	a.pending = false
	return true
}

func (a *auditor[T]) complete() {
	if a.stop() {
		a.out.complete()
	}
}
