package testutil

import (
	"time"

	"github.com/light-bringer/dirtycheck-service/internal/pkg/clock"
)

// NewMockClock creates a mock clock that can be controlled in tests.
func NewMockClock() *clock.MockClock {
	return clock.NewMockClock(time.Now())
}
