package storage

import (
	"errors"
	"time"

	"github.com/statusplay/statusplay/internal/types"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// Storage is the persistence boundary of the status service. Read results
// are viewer-agnostic; handlers scope them to the requesting viewer.
type Storage interface {
	// GetUser returns profile data for a user id.
	GetUser(userID string) (types.StatusUser, error)

	// GetAuthorSet returns the author's live posts in display order plus a
	// postID -> liker ids map for viewer scoping.
	GetAuthorSet(authorID string) (types.StatusUser, []types.StatusPost, map[string][]string, error)

	// GetPost returns a single live post.
	GetPost(postID string) (types.StatusPost, error)

	// ToggleLike flips the viewer's like and returns the authoritative
	// aggregate.
	ToggleLike(postID, viewerID string) (likeCount int, liked bool, likedBy []string, err error)

	// AddComment appends a comment and returns the full authoritative
	// comment list.
	AddComment(postID, viewerID, content string, kind types.CommentKind) ([]types.Comment, error)

	// RecordView marks the post viewed, idempotent per viewer, and returns
	// the full authoritative viewer list.
	RecordView(postID string, viewer types.Viewer) ([]types.Viewer, error)

	// AddReaction appends a reaction and returns the full authoritative
	// reaction list.
	AddReaction(postID, userID, emoji string) ([]types.Reaction, error)

	// DeletePost soft-deletes a post; only the author may delete.
	DeletePost(postID, requesterID string) error

	// SoftDeleteExpired removes posts past their expiry and returns them so
	// live sessions can be told.
	SoftDeleteExpired(now time.Time) ([]types.StatusPost, error)
}
