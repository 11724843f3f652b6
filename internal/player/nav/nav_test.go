package nav

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/statusplay/statusplay/internal/player/timer"
)

// long durations keep the timer from auto-advancing during these tests.
func newController(exits *int64, changes *[]int) *Controller {
	tm := timer.New(10*time.Millisecond, nil, nil)
	return New(tm, Config{
		DurationFor: func(int) time.Duration { return time.Hour },
		OnIndexChange: func(i int) {
			if changes != nil {
				*changes = append(*changes, i)
			}
		},
		OnExit: func() {
			if exits != nil {
				atomic.AddInt64(exits, 1)
			}
		},
	})
}

func TestController_NextAdvancesAndExitsOnce(t *testing.T) {
	var exits int64
	var changes []int
	c := newController(&exits, &changes)

	c.Begin(3)
	assert.Equal(t, 0, c.Index())

	c.Next()
	c.Next()
	assert.Equal(t, 2, c.Index())
	assert.Equal(t, []int{1, 2}, changes)

	// Rapid repeated Next at the last index: single exit signal.
	c.Next()
	c.Next()
	c.Next()
	assert.True(t, c.Exited())
	assert.Equal(t, int64(1), atomic.LoadInt64(&exits))
}

func TestController_PreviousAtZeroIsNoOp(t *testing.T) {
	var changes []int
	c := newController(nil, &changes)

	c.Begin(3)
	c.Previous()
	assert.Equal(t, 0, c.Index())
	assert.Empty(t, changes)

	c.Next()
	c.Previous()
	assert.Equal(t, 0, c.Index())
	assert.Equal(t, []int{1, 0}, changes)
}

func TestController_HoldPauseResume(t *testing.T) {
	tm := timer.New(10*time.Millisecond, nil, nil)
	c := New(tm, Config{DurationFor: func(int) time.Duration { return time.Hour }})

	c.Begin(2)
	c.HoldStart()
	c.HoldStart() // idempotent
	assert.True(t, c.Held())
	assert.Equal(t, timer.StatePaused, tm.State())

	c.HoldEnd()
	c.HoldEnd()
	assert.False(t, c.Held())
	assert.Equal(t, timer.StatePlaying, tm.State())
}

func TestController_NavigateDuringHoldClearsHold(t *testing.T) {
	tm := timer.New(10*time.Millisecond, nil, nil)
	c := New(tm, Config{DurationFor: func(int) time.Duration { return time.Hour }})

	c.Begin(3)
	c.HoldStart()
	c.Next()

	// No stuck paused timer on the new post.
	assert.False(t, c.Held())
	assert.Equal(t, timer.StatePlaying, tm.State())
	assert.Equal(t, float64(0), tm.Progress())
}

func TestController_RepositionKeepsTimerAndHold(t *testing.T) {
	var changes []int
	tm := timer.New(10*time.Millisecond, nil, nil)
	c := New(tm, Config{
		DurationFor:   func(int) time.Duration { return time.Hour },
		OnIndexChange: func(i int) { changes = append(changes, i) },
	})

	c.Begin(3)
	c.Next() // at index 1
	c.HoldStart()
	seen := len(changes)

	// A post before the cursor went away: same post, one slot earlier.
	c.Reposition(0, 2)

	assert.Equal(t, 0, c.Index())
	assert.True(t, c.Held(), "repositioning must not cancel an active hold")
	assert.Equal(t, timer.StatePaused, tm.State())
	assert.Len(t, changes, seen, "repositioning must not re-signal an index change")

	// The shrunk count still bounds navigation.
	c.HoldEnd()
	c.Next()
	assert.Equal(t, 1, c.Index())
	c.Next()
	assert.True(t, c.Exited())
}

func TestController_BeginEmptyExitsImmediately(t *testing.T) {
	var exits int64
	c := newController(&exits, nil)

	c.Begin(0)
	assert.True(t, c.Exited())
	assert.Equal(t, int64(1), atomic.LoadInt64(&exits))
}

func TestController_RebindAfterRemoval(t *testing.T) {
	var exits int64
	var changes []int
	c := newController(&exits, &changes)

	c.Begin(3)
	c.Next()
	c.Next() // at index 2

	// Last post removed: cursor clamps to the new tail.
	c.Rebind(2, 2)
	assert.Equal(t, 1, c.Index())
	assert.False(t, c.Exited())

	// All posts removed: terminal exit.
	c.Rebind(0, 0)
	assert.True(t, c.Exited())
	assert.Equal(t, int64(1), atomic.LoadInt64(&exits))

	// Intents after exit are ignored.
	c.Next()
	c.Rebind(0, 5)
	assert.True(t, c.Exited())
	assert.Equal(t, int64(1), atomic.LoadInt64(&exits))
}
