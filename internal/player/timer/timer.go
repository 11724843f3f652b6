// Package timer implements the progress clock that drives status playback.
// It advances a fractional 0-100 progress value for the active post at a
// fixed tick rate and fires a single completion signal when it finishes.
package timer

import (
	"sync"
	"time"
)

// State is the timer lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// DefaultTickInterval is how often progress advances while playing.
const DefaultTickInterval = 50 * time.Millisecond

// ProgressTimer drives playback progress for one post at a time.
//
// Start launches a ticking goroutine; Reset (or a subsequent Start)
// invalidates it through a generation counter, so a completion signal can
// never outlive the run that produced it.
type ProgressTimer struct {
	mu       sync.Mutex
	state    State
	progress float64
	duration time.Duration
	interval time.Duration
	gen      uint64

	onTick     func(progress float64)
	onComplete func()
}

// New creates a timer ticking at interval. Both callbacks are optional and
// are invoked outside the timer's lock; onComplete fires exactly once per
// Start that runs to 100.
func New(interval time.Duration, onTick func(progress float64), onComplete func()) *ProgressTimer {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &ProgressTimer{
		interval:   interval,
		onTick:     onTick,
		onComplete: onComplete,
	}
}

// Start resets progress to zero and begins ticking toward duration.
// Any previous run is abandoned.
func (t *ProgressTimer) Start(duration time.Duration) {
	if duration <= 0 {
		duration = t.interval
	}

	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.duration = duration
	t.progress = 0
	t.state = StatePlaying
	t.mu.Unlock()

	go t.run(gen)
}

func (t *ProgressTimer) run(gen uint64) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for range ticker.C {
		if !t.tick(gen) {
			return
		}
	}
}

// tick advances progress by one interval's worth. It returns false when the
// owning goroutine should stop: the run was superseded or it completed.
func (t *ProgressTimer) tick(gen uint64) bool {
	t.mu.Lock()
	if gen != t.gen || t.state == StateIdle || t.state == StateCompleted {
		t.mu.Unlock()
		return false
	}
	if t.state == StatePaused {
		// Frozen, but the run stays alive for resume.
		t.mu.Unlock()
		return true
	}

	t.progress += float64(t.interval) / float64(t.duration) * 100
	completed := t.progress >= 100
	if completed {
		t.progress = 100
		t.state = StateCompleted
	}
	progress := t.progress
	t.mu.Unlock()

	if t.onTick != nil {
		t.onTick(progress)
	}
	if completed {
		if t.onComplete != nil {
			t.onComplete()
		}
		return false
	}
	return true
}

// Pause suspends ticking without resetting progress. Idempotent.
func (t *ProgressTimer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StatePlaying {
		t.state = StatePaused
	}
}

// Resume continues ticking from the current progress. Idempotent.
func (t *ProgressTimer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StatePaused {
		t.state = StatePlaying
	}
}

// Reset stops ticking and returns to Idle with zero progress. Used when the
// active post changes or the session is torn down.
func (t *ProgressTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	t.state = StateIdle
	t.progress = 0
}

// Progress returns the current progress in [0, 100].
func (t *ProgressTimer) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.progress
}

// State returns the current lifecycle state.
func (t *ProgressTimer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}
