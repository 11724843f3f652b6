// Package nav translates discrete navigation intents (tap, key, hold)
// into cursor changes and timer control for a playback session.
package nav

import (
	"sync"
	"time"

	"github.com/statusplay/statusplay/internal/player/timer"
)

// Config wires the controller to its session.
type Config struct {
	// DurationFor returns the playback duration for the post at index i.
	DurationFor func(i int) time.Duration

	// OnIndexChange fires after the cursor moves to a new index.
	OnIndexChange func(i int)

	// OnExit fires exactly once when the session runs past the last post.
	OnExit func()
}

// Controller owns the session cursor. While the post list is non-empty the
// cursor always satisfies 0 <= index < count; once the controller exits it
// ignores all further intents.
type Controller struct {
	mu     sync.Mutex
	timer  *timer.ProgressTimer
	cfg    Config
	index  int
	count  int
	held   bool
	exited bool
}

// New creates a controller driving the given timer.
func New(t *timer.ProgressTimer, cfg Config) *Controller {
	return &Controller{timer: t, cfg: cfg}
}

// Begin starts playback at index 0 over count posts.
func (c *Controller) Begin(count int) {
	c.mu.Lock()
	if count <= 0 {
		c.exited = true
		c.mu.Unlock()
		c.timer.Reset()
		c.exit()
		return
	}
	c.index = 0
	c.count = count
	c.held = false
	c.exited = false
	c.mu.Unlock()

	c.timer.Start(c.cfg.DurationFor(0))
}

// Next advances to the following post, or exits at the end. Repeated calls
// at the last index produce a single exit signal.
func (c *Controller) Next() {
	c.mu.Lock()
	if c.exited {
		c.mu.Unlock()
		return
	}
	if c.index >= c.count-1 {
		c.exited = true
		c.mu.Unlock()
		c.timer.Reset()
		c.exit()
		return
	}
	c.index++
	c.held = false
	i := c.index
	c.mu.Unlock()

	// Start implies reset, so a hold-pause can never leak onto the new post.
	c.timer.Start(c.cfg.DurationFor(i))
	c.changed(i)
}

// Previous steps back one post; at index 0 it is a no-op.
func (c *Controller) Previous() {
	c.mu.Lock()
	if c.exited || c.index == 0 {
		c.mu.Unlock()
		return
	}
	c.index--
	c.held = false
	i := c.index
	c.mu.Unlock()

	c.timer.Start(c.cfg.DurationFor(i))
	c.changed(i)
}

// HoldStart pauses playback without resetting progress. Idempotent.
func (c *Controller) HoldStart() {
	c.mu.Lock()
	if c.exited || c.held {
		c.mu.Unlock()
		return
	}
	c.held = true
	c.mu.Unlock()

	c.timer.Pause()
}

// HoldEnd resumes playback from the held progress value. Idempotent.
func (c *Controller) HoldEnd() {
	c.mu.Lock()
	if c.exited || !c.held {
		c.mu.Unlock()
		return
	}
	c.held = false
	c.mu.Unlock()

	c.timer.Resume()
}

// HandleTimerComplete is the completion signal path; it behaves like Next.
func (c *Controller) HandleTimerComplete() {
	c.Next()
}

// Rebind repositions the cursor after an external mutation of the post list
// (deletion). The cursor is clamped into the new bounds and playback
// restarts for the post now at that position; an empty list exits.
func (c *Controller) Rebind(index, count int) {
	c.mu.Lock()
	if c.exited {
		c.mu.Unlock()
		return
	}
	if count <= 0 {
		c.exited = true
		c.mu.Unlock()
		c.timer.Reset()
		c.exit()
		return
	}
	if index < 0 {
		index = 0
	}
	if index > count-1 {
		index = count - 1
	}
	c.index = index
	c.count = count
	c.held = false
	c.mu.Unlock()

	c.timer.Start(c.cfg.DurationFor(index))
	c.changed(index)
}

// Reposition moves the cursor after a list mutation that left the displayed
// post in place: only the index and count change. The timer keeps running
// (or stays held) and no index-change signal fires, so progress and an
// active hold survive removals elsewhere in the list.
func (c *Controller) Reposition(index, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exited || count <= 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index > count-1 {
		index = count - 1
	}
	c.index = index
	c.count = count
}

// Index returns the current cursor position.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.index
}

// Held reports whether a hold-pause is active.
func (c *Controller) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.held
}

// Exited reports whether the session has ended.
func (c *Controller) Exited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exited
}

func (c *Controller) changed(i int) {
	if c.cfg.OnIndexChange != nil {
		c.cfg.OnIndexChange(i)
	}
}

func (c *Controller) exit() {
	if c.cfg.OnExit != nil {
		c.cfg.OnExit()
	}
}
