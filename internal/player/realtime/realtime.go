// Package realtime owns the persistent connection of a viewing session.
// Inbound authoritative events are routed into the session store; outbound
// advisory notices are emitted after successful local mutations.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/statusplay/statusplay/internal/types"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	outboundBuffer = 64
)

// ErrSyncClosed is returned by Connect after the sync has been disposed.
var ErrSyncClosed = errors.New("realtime sync closed")

// Store is the slice of the session store this package applies events to.
type Store interface {
	ApplyRemoteLike(postID string, likeCount int, likedBy []string) bool
	ApplyRemoteComments(postID string, comments []types.Comment) bool
	ApplyRemoteViewers(postID string, viewers []types.Viewer) bool
	ApplyRemoteReactions(postID string, reactions []types.Reaction) bool
}

// Config wires a Sync to its session.
type Config struct {
	// URL is the websocket endpoint, token included.
	URL string

	// AuthorID is the feed to watch once connected.
	AuthorID string

	Store  Store
	Logger *slog.Logger

	// OnPostDeleted fires for remote owner-initiated deletions; the
	// session re-resolves its cursor.
	OnPostDeleted func(postID string)

	// OnChange fires after any event has been applied to the store.
	OnChange func()
}

// Sync is one persistent connection per viewing session. It connects
// lazily, reconnects transparently with exponential backoff, and guards
// every handler with a disposed flag so nothing fires after Close.
type Sync struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger

	outbound chan *types.Event

	mu       sync.Mutex
	conn     *websocket.Conn
	disposed bool
	done     chan struct{}
}

// New creates a Sync; no connection is opened until Connect.
func New(cfg Config) *Sync {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sync{
		cfg:      cfg,
		dialer:   websocket.DefaultDialer,
		logger:   logger,
		outbound: make(chan *types.Event, outboundBuffer),
		done:     make(chan struct{}),
	}
}

// Connect establishes the connection and starts the read/write pumps in the
// background. It returns once the first connection attempt has succeeded.
func (s *Sync) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrSyncClosed
	}
	s.mu.Unlock()

	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	s.setConn(conn)

	go s.run(ctx, conn)
	return nil
}

func (s *Sync) dial(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	op := func() error {
		if s.isDisposed() {
			return backoff.Permanent(ErrSyncClosed)
		}
		c, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
		if err != nil {
			s.logger.Warn("realtime dial failed", slog.String("error", err.Error()))
			return err
		}
		conn = c
		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}

	if err := s.watch(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// watch subscribes the fresh connection to the author's feed.
func (s *Sync) watch(conn *websocket.Conn) error {
	ev, err := types.NewEvent(types.EventWatch, types.WatchEvent{AuthorID: s.cfg.AuthorID})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

// run drives the connection lifecycle: pump until the connection drops,
// then redial unless the sync was disposed or the context cancelled.
func (s *Sync) run(ctx context.Context, conn *websocket.Conn) {
	for {
		s.pump(conn)
		conn.Close()

		if s.isDisposed() || ctx.Err() != nil {
			return
		}

		s.logger.Info("realtime connection lost, reconnecting")
		next, err := s.dial(ctx)
		if err != nil {
			if !errors.Is(err, ErrSyncClosed) && ctx.Err() == nil {
				s.logger.Error("realtime reconnect failed", slog.String("error", err.Error()))
			}
			return
		}
		s.setConn(next)
		conn = next
	}
}

// pump reads inbound events and services the outbound queue until the
// connection fails.
func (s *Sync) pump(conn *websocket.Conn) {
	readErr := make(chan struct{})

	go func() {
		defer close(readErr)

		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		for {
			var ev types.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if !s.isDisposed() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warn("realtime read error", slog.String("error", err.Error()))
				}
				return
			}
			s.handle(&ev)
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-readErr:
			return
		case <-s.done:
			return
		case ev := <-s.outbound:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle routes one inbound event to the store. Wholesale-replace and
// last-writer-wins application keeps replays after reconnect idempotent.
func (s *Sync) handle(ev *types.Event) {
	if s.isDisposed() {
		return
	}

	applied := false
	switch ev.Type {
	case types.EventLikeChanged:
		var e types.LikeChangedEvent
		if err := ev.Decode(&e); err != nil {
			s.logger.Warn("bad realtime event", slog.String("error", err.Error()))
			return
		}
		applied = s.cfg.Store.ApplyRemoteLike(e.PostID, e.LikeCount, e.LikedBy)

	case types.EventCommentAdded:
		var e types.CommentAddedEvent
		if err := ev.Decode(&e); err != nil {
			s.logger.Warn("bad realtime event", slog.String("error", err.Error()))
			return
		}
		applied = s.cfg.Store.ApplyRemoteComments(e.PostID, e.Comments)

	case types.EventViewAdded:
		var e types.ViewAddedEvent
		if err := ev.Decode(&e); err != nil {
			s.logger.Warn("bad realtime event", slog.String("error", err.Error()))
			return
		}
		applied = s.cfg.Store.ApplyRemoteViewers(e.PostID, e.Viewers)

	case types.EventReactionAdded:
		var e types.ReactionAddedEvent
		if err := ev.Decode(&e); err != nil {
			s.logger.Warn("bad realtime event", slog.String("error", err.Error()))
			return
		}
		applied = s.cfg.Store.ApplyRemoteReactions(e.PostID, e.Reactions)

	case types.EventPostDeleted:
		var e types.PostDeletedEvent
		if err := ev.Decode(&e); err != nil {
			s.logger.Warn("bad realtime event", slog.String("error", err.Error()))
			return
		}
		if s.cfg.OnPostDeleted != nil {
			s.cfg.OnPostDeleted(e.PostID)
		}
		return

	default:
		s.logger.Debug("ignoring realtime event", slog.String("type", string(ev.Type)))
		return
	}

	if applied && s.cfg.OnChange != nil {
		s.cfg.OnChange()
	}
}

// NotifyLike emits an advisory like notice. Best effort: dropped when the
// outbound queue is full, since the authoritative event follows anyway.
func (s *Sync) NotifyLike(postID string) { s.notify(types.EventNotifyLike, postID) }

// NotifyComment emits an advisory comment notice.
func (s *Sync) NotifyComment(postID string) { s.notify(types.EventNotifyComment, postID) }

// NotifyView emits an advisory view notice.
func (s *Sync) NotifyView(postID string) { s.notify(types.EventNotifyView, postID) }

func (s *Sync) notify(t types.EventType, postID string) {
	if s.isDisposed() {
		return
	}
	ev, err := types.NewEvent(t, types.NotifyEvent{PostID: postID})
	if err != nil {
		return
	}
	select {
	case s.outbound <- ev:
	default:
		s.logger.Warn("outbound queue full, dropping advisory notice",
			slog.String("type", string(t)))
	}
}

// Close disposes the sync: the connection is released and no handler fires
// afterwards. Idempotent.
func (s *Sync) Close() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	conn := s.conn
	close(s.done)
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (s *Sync) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *Sync) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.disposed
}
