// Package interact executes local-origin mutations with
// optimistic-then-reconciled semantics: apply the delta, attempt the remote
// call, and on failure apply the exact inverse delta.
package interact

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/statusplay/statusplay/internal/player/store"
	"github.com/statusplay/statusplay/internal/types"
)

var (
	// ErrUnknownPost is returned for mutations against a post id the
	// session no longer holds.
	ErrUnknownPost = errors.New("unknown post")

	// ErrClosed is returned once the manager has been disposed.
	ErrClosed = errors.New("interaction manager closed")
)

// API is the slice of the remote boundary this manager needs.
type API interface {
	ToggleLike(ctx context.Context, postID string) (types.LikeResult, error)
	AddComment(ctx context.Context, postID, content string, kind types.CommentKind) error
	RecordView(ctx context.Context, postID string) error
}

// Notifier emits advisory realtime notices after successful mutations.
type Notifier interface {
	NotifyLike(postID string)
	NotifyComment(postID string)
	NotifyView(postID string)
}

// Manager performs like/comment/view mutations against the session store.
//
// Likes are coalesced per post: at most one remote toggle is in flight, and
// further Like calls while it is pending just flip the desired final state.
// The flight keeps toggling until the server agrees with the last desired
// state, so LikedByViewer can never drift out of parity with LikeCount.
type Manager struct {
	store    *store.Store
	api      API
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	flights map[string]*likeFlight
	closed  bool
}

type likeFlight struct {
	desired   bool
	baseCount int
	baseLiked bool
	err       error
	done      chan struct{}
}

// New creates a manager mutating st through remote calls on a.
func New(st *store.Store, a API, n Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    st,
		api:      a,
		notifier: n,
		logger:   logger,
		flights:  make(map[string]*likeFlight),
	}
}

// Like toggles the viewer's like on the post. The optimistic state applies
// immediately; the call then blocks until the remote flight settles and
// returns the failure, if any, after rollback.
func (m *Manager) Like(ctx context.Context, postID string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	if f, ok := m.flights[postID]; ok {
		// Coalesce into the pending flight; final desired state wins.
		f.desired = !f.desired
		m.projectLocked(postID, f)
		done := f.done
		m.mu.Unlock()

		select {
		case <-done:
			return f.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p, ok := m.store.Get(postID)
	if !ok {
		m.mu.Unlock()
		return ErrUnknownPost
	}

	f := &likeFlight{
		desired:   !p.LikedByViewer,
		baseCount: p.LikeCount,
		baseLiked: p.LikedByViewer,
		done:      make(chan struct{}),
	}
	m.flights[postID] = f
	m.projectLocked(postID, f)
	m.mu.Unlock()

	go m.runFlight(postID, f)

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// projectLocked writes the optimistic projection of the flight's desired
// state on top of the last authoritative base. Caller holds m.mu.
func (m *Manager) projectLocked(postID string, f *likeFlight) {
	count := f.baseCount
	if f.desired != f.baseLiked {
		if f.desired {
			count++
		} else {
			count--
		}
	}
	m.store.SetLikeState(postID, count, f.desired)
}

func (m *Manager) runFlight(postID string, f *likeFlight) {
	ctx := context.Background()
	for {
		res, err := m.api.ToggleLike(ctx, postID)

		m.mu.Lock()
		if m.closed {
			delete(m.flights, postID)
			f.err = ErrClosed
			m.mu.Unlock()
			close(f.done)
			return
		}
		if err != nil {
			// Revert the exact outstanding delta, not a blind re-fetch.
			m.store.SetLikeState(postID, f.baseCount, f.baseLiked)
			delete(m.flights, postID)
			f.err = err
			m.mu.Unlock()
			close(f.done)
			return
		}

		// The response is the new authoritative base.
		f.baseCount = res.LikeCount
		f.baseLiked = res.LikedByViewer

		if res.LikedByViewer == f.desired {
			m.store.SetLikeState(postID, res.LikeCount, res.LikedByViewer)
			delete(m.flights, postID)
			m.mu.Unlock()
			if m.notifier != nil {
				m.notifier.NotifyLike(postID)
			}
			close(f.done)
			return
		}

		// Desired state flipped while the toggle was in flight; keep the
		// projection on screen and toggle again.
		m.projectLocked(postID, f)
		m.mu.Unlock()
	}
}

// Comment submits a comment. There is no optimistic insert: the server owns
// comment identity and ordering, and the authoritative list arrives through
// the realtime channel.
func (m *Manager) Comment(ctx context.Context, postID, content string, kind types.CommentKind) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if _, ok := m.store.Get(postID); !ok {
		return ErrUnknownPost
	}
	if err := m.api.AddComment(ctx, postID, content, kind); err != nil {
		return err
	}
	if m.notifier != nil {
		m.notifier.NotifyComment(postID)
	}
	return nil
}

// View records the viewer on the post, fire-and-forget. Failures are logged
// and never surfaced; view tracking is best effort.
func (m *Manager) View(postID string) {
	go func() {
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}

		if err := m.api.RecordView(context.Background(), postID); err != nil {
			m.logger.Warn("failed to record view",
				slog.String("post_id", postID),
				slog.String("error", err.Error()))
			return
		}
		if m.notifier != nil {
			m.notifier.NotifyView(postID)
		}
	}()
}

// Close disposes the manager. In-flight results are dropped without touching
// the store, which is being discarded with the session anyway.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
}
