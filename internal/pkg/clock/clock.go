package clock

import (
	"sync"
	"time"
)

// Clock is an interface for time operations to enable testability.
type Clock interface {
	Now() time.Time
}

// Scheduler runs deferred work on a later scheduling turn.
// Tasks scheduled during the same turn run in the order they were scheduled.
type Scheduler interface {
	Schedule(task func())
}

// RealClock is the production implementation using actual system time.
// Scheduled tasks run on a zero-delay timer, i.e. as soon as the runtime
// gets to them after the current call returns.
type RealClock struct{}

// NewRealClock creates a new RealClock.
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now returns the current system time.
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Schedule runs task on a zero-delay timer.
func (c *RealClock) Schedule(task func()) {
	time.AfterFunc(0, task)
}

// MockClock is a test implementation that allows setting the current time
// and draining scheduled tasks explicitly.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	queue   []func()
}

// NewMockClock creates a new MockClock starting at the given time.
func NewMockClock(startTime time.Time) *MockClock {
	return &MockClock{current: startTime}
}

// Now returns the mock current time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set sets the mock current time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// Advance advances the mock clock by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}

// Schedule queues task until the next Flush.
func (m *MockClock) Schedule(task func()) {
	m.mu.Lock()
	m.queue = append(m.queue, task)
	m.mu.Unlock()
}

// Pending returns the number of queued tasks.
func (m *MockClock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Flush runs queued tasks until the queue is empty, including tasks
// scheduled by the tasks themselves, and returns how many ran.
func (m *MockClock) Flush() int {
	ran := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return ran
		}
		task := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		task()
		ran++
	}
}
