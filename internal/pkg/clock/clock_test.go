package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClock_Time(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := NewMockClock(start)

	assert.Equal(t, start, clk.Now())

	clk.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), clk.Now())

	later := start.Add(48 * time.Hour)
	clk.Set(later)
	assert.Equal(t, later, clk.Now())
}

func TestMockClock_ScheduleRunsOnFlush(t *testing.T) {
	clk := NewMockClock(time.Now())

	var order []int
	clk.Schedule(func() { order = append(order, 1) })
	clk.Schedule(func() { order = append(order, 2) })

	assert.Empty(t, order, "tasks must not run before Flush")
	assert.Equal(t, 2, clk.Pending())

	ran := clk.Flush()
	assert.Equal(t, 2, ran)
	assert.Equal(t, []int{1, 2}, order)
	assert.Zero(t, clk.Pending())
}

func TestMockClock_FlushRunsNestedTasks(t *testing.T) {
	clk := NewMockClock(time.Now())

	var order []string
	clk.Schedule(func() {
		order = append(order, "outer")
		clk.Schedule(func() { order = append(order, "inner") })
	})

	assert.Equal(t, 2, clk.Flush())
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestRealClock_ScheduleRunsAsynchronously(t *testing.T) {
	clk := NewRealClock()

	done := make(chan struct{})
	clk.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "scheduled task did not run")
	}
}
