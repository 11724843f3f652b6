// Package session composes the playback engine: it fetches the initial post
// set, wires the progress timer to navigation, funnels realtime events and
// local interactions into the store, and exposes a read-only view model to
// the presentation layer.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/statusplay/statusplay/internal/api"
	"github.com/statusplay/statusplay/internal/player/interact"
	"github.com/statusplay/statusplay/internal/player/nav"
	"github.com/statusplay/statusplay/internal/player/store"
	"github.com/statusplay/statusplay/internal/player/timer"
	"github.com/statusplay/statusplay/internal/types"
)

// DefaultPostDuration applies to image/text/location posts; video and audio
// posts use their media-declared duration when the payload carries one.
const DefaultPostDuration = 5 * time.Second

// DefaultExpirySweep is how often a live session re-checks its posts for
// lapsed display windows. Expiry normally arrives as a post-deleted event;
// the sweep is the fallback when the channel is down.
const DefaultExpirySweep = time.Second

// State is the session lifecycle state.
type State int

const (
	StateLoading State = iota
	StatePlaying
	StateNoContent
	StateFailed
	StateClosed
)

// ExitReason says why a session ended.
type ExitReason int

const (
	ExitCompleted ExitReason = iota // ran past the last post
	ExitNoContent                   // nothing (left) to show; not an error
	ExitClosed                      // viewer navigated away
)

var (
	// ErrNotOwner guards owner-only operations.
	ErrNotOwner = errors.New("viewer does not own this status set")

	// ErrSessionClosed is returned by operations on a finished session.
	ErrSessionClosed = errors.New("session closed")
)

// EventSource is the realtime channel as the session sees it. realtime.Sync
// implements it; tests substitute a stub.
type EventSource interface {
	interact.Notifier
	Connect(ctx context.Context) error
	Close()
}

// Config assembles a session.
type Config struct {
	API      api.Client
	AuthorID string
	ViewerID string

	// NewEvents builds the realtime source once the store exists. May be
	// nil for offline playback.
	NewEvents func(st *store.Store, onPostDeleted func(postID string), onChange func()) EventSource

	// TickInterval, DefaultDuration and ExpirySweep override playback
	// timing; zero values use the package defaults.
	TickInterval    time.Duration
	DefaultDuration time.Duration
	ExpirySweep     time.Duration

	// OnUpdate fires whenever the view model may have changed.
	OnUpdate func()

	// OnExit fires exactly once when the session terminates.
	OnExit func(reason ExitReason)

	Logger *slog.Logger
}

// Session is one playback run over one author's status set.
type Session struct {
	cfg    Config
	logger *slog.Logger

	store    *store.Store
	timer    *timer.ProgressTimer
	nav      *nav.Controller
	interact *interact.Manager
	events   EventSource

	defaultDuration time.Duration
	sweepEvery      time.Duration

	mu        sync.Mutex
	state     State
	nextSweep time.Time
	exitOnce  sync.Once
}

// New creates a session; nothing runs until Start.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg:             cfg,
		logger:          logger,
		store:           store.New(cfg.ViewerID),
		state:           StateLoading,
		defaultDuration: cfg.DefaultDuration,
	}
	if s.defaultDuration <= 0 {
		s.defaultDuration = DefaultPostDuration
	}
	s.sweepEvery = cfg.ExpirySweep
	if s.sweepEvery <= 0 {
		s.sweepEvery = DefaultExpirySweep
	}

	s.timer = timer.New(cfg.TickInterval, s.handleTick, s.handleTimerComplete)
	s.nav = nav.New(s.timer, nav.Config{
		DurationFor:   s.durationFor,
		OnIndexChange: s.handleIndexChange,
		OnExit: func() {
			if s.store.Len() == 0 {
				s.finish(ExitNoContent)
			} else {
				s.finish(ExitCompleted)
			}
		},
	})
	return s
}

// Start fetches the status set and begins playback. A fetch failure leaves
// the session in StateFailed; Start may be called again to retry.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateLoading, StateFailed:
	default:
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	set, err := s.cfg.API.FetchStatusSet(ctx, s.cfg.AuthorID)

	// Close may have raced the fetch; a finished session must never be
	// revived by a late result.
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if err != nil {
		s.state = StateFailed
		s.mu.Unlock()
		return fmt.Errorf("fetch status set: %w", err)
	}
	s.mu.Unlock()

	now := time.Now()
	posts := set.Posts[:0:0]
	for _, p := range set.Posts {
		if !p.Expired(now) {
			posts = append(posts, p)
		}
	}

	if len(posts) == 0 {
		s.mu.Lock()
		if s.state == StateClosed {
			s.mu.Unlock()
			return ErrSessionClosed
		}
		s.state = StateNoContent
		s.mu.Unlock()
		s.finish(ExitNoContent)
		return nil
	}

	s.store.ReplaceAll(set.User, posts)

	var src EventSource
	if s.cfg.NewEvents != nil {
		src = s.cfg.NewEvents(s.store, s.handleRemoteDelete, s.notifyUpdate)
		if err := src.Connect(ctx); err != nil {
			// Playback continues on last-known state; the channel is an
			// enhancement, not a prerequisite.
			s.logger.Warn("realtime channel unavailable", slog.String("error", err.Error()))
		}
	}
	im := interact.New(s.store, s.cfg.API, src, s.logger)

	s.mu.Lock()
	if s.state == StateClosed {
		// The teardown in Close ran before these existed; release them here.
		s.mu.Unlock()
		im.Close()
		if src != nil {
			src.Close()
		}
		return ErrSessionClosed
	}
	s.events = src
	s.interact = im
	s.state = StatePlaying
	s.mu.Unlock()

	s.nav.Begin(s.store.Len())
	s.markViewed(0)
	if !s.playing() {
		// Close raced Begin; stop the timer it kicked off.
		s.timer.Reset()
		return ErrSessionClosed
	}
	s.notifyUpdate()
	return nil
}

// IsOwner reports whether the viewing session belongs to the author.
func (s *Session) IsOwner() bool {
	return s.cfg.ViewerID == s.cfg.AuthorID
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == StatePlaying
}

// Next advances to the following post.
func (s *Session) Next() {
	if s.playing() {
		s.nav.Next()
		s.notifyUpdate()
	}
}

// Previous steps back one post.
func (s *Session) Previous() {
	if s.playing() {
		s.nav.Previous()
		s.notifyUpdate()
	}
}

// HoldStart pauses playback for press-and-hold viewing.
func (s *Session) HoldStart() {
	if s.playing() {
		s.nav.HoldStart()
		s.notifyUpdate()
	}
}

// HoldEnd resumes playback from the held progress.
func (s *Session) HoldEnd() {
	if s.playing() {
		s.nav.HoldEnd()
		s.notifyUpdate()
	}
}

// MediaFinished signals media-driven completion (video/audio playback end).
// It feeds the same path as timer completion.
func (s *Session) MediaFinished() {
	if s.playing() {
		s.nav.HandleTimerComplete()
		s.notifyUpdate()
	}
}

// Like toggles the viewer's like on the current post.
func (s *Session) Like(ctx context.Context) error {
	p, ok := s.current()
	if !ok {
		return ErrSessionClosed
	}
	err := s.interact.Like(ctx, p.ID)
	s.notifyUpdate()
	return err
}

// Comment submits a comment on the current post.
func (s *Session) Comment(ctx context.Context, content string, kind types.CommentKind) error {
	p, ok := s.current()
	if !ok {
		return ErrSessionClosed
	}
	return s.interact.Comment(ctx, p.ID, content, kind)
}

// DeleteCurrent removes the current post. Owner-only.
func (s *Session) DeleteCurrent(ctx context.Context) error {
	if !s.IsOwner() {
		return ErrNotOwner
	}
	p, ok := s.current()
	if !ok {
		return ErrSessionClosed
	}
	if err := s.cfg.API.DeletePost(ctx, p.ID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	s.removePost(p.ID)
	return nil
}

// DownloadCurrent streams the current post's media. Owner-only.
func (s *Session) DownloadCurrent(ctx context.Context) (io.ReadCloser, error) {
	if !s.IsOwner() {
		return nil, ErrNotOwner
	}
	p, ok := s.current()
	if !ok {
		return nil, ErrSessionClosed
	}
	return s.cfg.API.DownloadMedia(ctx, p.ID)
}

// Close tears the session down: timer stopped, realtime channel released,
// late asynchronous results ignored. Idempotent.
func (s *Session) Close() {
	s.finish(ExitClosed)
}

func (s *Session) current() (types.StatusPost, bool) {
	if !s.playing() {
		return types.StatusPost{}, false
	}
	return s.store.At(s.nav.Index())
}

func (s *Session) durationFor(i int) time.Duration {
	p, ok := s.store.At(i)
	if !ok {
		return s.defaultDuration
	}
	switch p.MediaKind {
	case types.MediaVideo, types.MediaAudio:
		if p.Payload.DurationMs > 0 {
			return time.Duration(p.Payload.DurationMs) * time.Millisecond
		}
	}
	return s.defaultDuration
}

func (s *Session) handleTick(float64) {
	s.sweepExpired()
	s.notifyUpdate()
}

func (s *Session) handleTimerComplete() {
	if s.playing() {
		s.nav.HandleTimerComplete()
		s.notifyUpdate()
	}
}

func (s *Session) handleIndexChange(i int) {
	s.markViewed(i)
	s.notifyUpdate()
}

func (s *Session) markViewed(i int) {
	if s.IsOwner() || s.interact == nil {
		return
	}
	if p, ok := s.store.At(i); ok {
		s.interact.View(p.ID)
	}
}

// handleRemoteDelete reacts to an owner deleting a post while this session
// is live.
func (s *Session) handleRemoteDelete(postID string) {
	if !s.playing() {
		return
	}
	s.removePost(postID)
}

// removePost drops the post and re-resolves the cursor by id, never by
// assuming index stability.
func (s *Session) removePost(postID string) {
	currentID := ""
	if p, ok := s.current(); ok {
		currentID = p.ID
	}

	removedIdx, ok := s.store.Remove(postID)
	if !ok {
		return
	}
	s.resolveCursor(currentID, removedIdx)
}

// resolveCursor re-resolves the display target after posts were removed.
// When the displayed post survived, only the cursor position and count
// move; playback and any active hold continue untouched. When it is gone,
// playback restarts at fallbackIdx clamped into the new bounds, which is
// where the next remaining post now sits.
func (s *Session) resolveCursor(currentID string, fallbackIdx int) {
	count := s.store.Len()
	if count == 0 {
		s.mu.Lock()
		s.state = StateNoContent
		s.mu.Unlock()
		s.nav.Rebind(0, 0)
		s.notifyUpdate()
		return
	}

	if currentID != "" {
		if idx := s.store.IndexOf(currentID); idx >= 0 {
			s.nav.Reposition(idx, count)
			s.notifyUpdate()
			return
		}
	}
	s.nav.Rebind(fallbackIdx, count)
	s.notifyUpdate()
}

// sweepExpired drops posts whose display window lapsed while the session
// is live. The realtime channel normally delivers the deletion first; the
// sweep covers the case where it does not.
func (s *Session) sweepExpired() {
	now := time.Now()

	s.mu.Lock()
	if s.state != StatePlaying || now.Before(s.nextSweep) {
		s.mu.Unlock()
		return
	}
	s.nextSweep = now.Add(s.sweepEvery)
	s.mu.Unlock()

	currentID := ""
	fallbackIdx := s.nav.Index()
	if p, ok := s.current(); ok {
		currentID = p.ID
	}
	if s.store.DropExpired(now) == 0 {
		return
	}
	s.resolveCursor(currentID, fallbackIdx)
}

func (s *Session) finish(reason ExitReason) {
	s.exitOnce.Do(func() {
		s.mu.Lock()
		switch s.state {
		case StateNoContent, StateFailed:
			// Keep the terminal state already set.
		default:
			if reason == ExitNoContent {
				s.state = StateNoContent
			} else {
				s.state = StateClosed
			}
		}
		s.mu.Unlock()

		s.timer.Reset()
		if s.interact != nil {
			s.interact.Close()
		}
		if s.events != nil {
			s.events.Close()
		}
		if s.cfg.OnExit != nil {
			s.cfg.OnExit(reason)
		}
	})
}

func (s *Session) notifyUpdate() {
	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate()
	}
}
