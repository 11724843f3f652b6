package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_CompletesExactlyOnce(t *testing.T) {
	var completions int64
	done := make(chan struct{}, 4)

	tm := New(5*time.Millisecond, nil, func() {
		atomic.AddInt64(&completions, 1)
		done <- struct{}{}
	})

	tm.Start(50 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never completed")
	}

	// Give any spurious extra signals a chance to arrive.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&completions))
	assert.Equal(t, StateCompleted, tm.State())
	assert.Equal(t, float64(100), tm.Progress())
}

func TestTimer_ProgressIncreasesWhilePlaying(t *testing.T) {
	ticks := make(chan float64, 256)
	tm := New(5*time.Millisecond, func(p float64) { ticks <- p }, nil)

	tm.Start(time.Second)
	defer tm.Reset()

	var last float64
	for i := 0; i < 5; i++ {
		select {
		case p := <-ticks:
			require.Greater(t, p, last)
			last = p
		case <-time.After(2 * time.Second):
			t.Fatal("no tick received")
		}
	}
}

func TestTimer_PauseFreezesProgress(t *testing.T) {
	ticks := make(chan float64, 256)
	tm := New(5*time.Millisecond, func(p float64) { ticks <- p }, nil)

	tm.Start(time.Second)
	defer tm.Reset()

	// Wait for some progress first.
	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("no tick received")
		}
	}

	tm.Pause()
	require.Equal(t, StatePaused, tm.State())

	frozen := tm.Progress()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, frozen, tm.Progress(), "progress advanced while paused")

	// pause/resume leaves progress unchanged and playing resumes from there
	tm.Resume()
	require.Equal(t, StatePlaying, tm.State())
	assert.GreaterOrEqual(t, tm.Progress(), frozen)
}

func TestTimer_PauseResumeIdempotent(t *testing.T) {
	tm := New(10*time.Millisecond, nil, nil)

	// Pause/Resume on an idle timer is a no-op.
	tm.Pause()
	tm.Resume()
	assert.Equal(t, StateIdle, tm.State())

	tm.Start(time.Second)
	defer tm.Reset()

	tm.Pause()
	tm.Pause()
	assert.Equal(t, StatePaused, tm.State())

	tm.Resume()
	tm.Resume()
	assert.Equal(t, StatePlaying, tm.State())
}

func TestTimer_ResetAbandonsRun(t *testing.T) {
	var completions int64
	tm := New(5*time.Millisecond, nil, func() { atomic.AddInt64(&completions, 1) })

	tm.Start(40 * time.Millisecond)
	tm.Reset()

	assert.Equal(t, StateIdle, tm.State())
	assert.Equal(t, float64(0), tm.Progress())

	// The abandoned run must never fire completion.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&completions))
}

func TestTimer_RestartSupersedesPreviousRun(t *testing.T) {
	done := make(chan struct{}, 4)
	var completions int64
	tm := New(5*time.Millisecond, nil, func() {
		atomic.AddInt64(&completions, 1)
		done <- struct{}{}
	})

	tm.Start(30 * time.Millisecond)
	tm.Start(60 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("restarted timer never completed")
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&completions))
}
