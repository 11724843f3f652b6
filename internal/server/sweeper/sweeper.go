package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/statusplay/statusplay/internal/server/events"
	"github.com/statusplay/statusplay/internal/server/storage"
)

// Sweeper soft-deletes expired posts on an interval and announces
// each removal so connected viewers drop the post mid-session.
type Sweeper struct {
	storage   storage.Storage
	publisher events.Publisher
	interval  time.Duration
	logger    *slog.Logger
}

func New(store storage.Storage, publisher events.Publisher, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		storage:   store,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Sweeper started", "interval", s.interval.String())

	// Run once immediately on startup
	s.sweep()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper shutting down")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	startTime := time.Now()

	expired, err := s.storage.SoftDeleteExpired(startTime)
	if err != nil {
		s.logger.Error("Failed to sweep expired posts",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return
	}

	for _, post := range expired {
		if err := s.publisher.PublishPostDeleted(post.AuthorID, "", post.ID); err != nil {
			s.logger.Error("Failed to announce expired post",
				"post_id", post.ID,
				"error", err.Error())
		}
	}

	if len(expired) > 0 {
		s.logger.Info("Swept expired posts",
			"posts_deleted", len(expired),
			"duration_ms", time.Since(startTime).Milliseconds())
	}
}
