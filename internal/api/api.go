// Package api is the typed boundary to the remote status service. The
// playback engine only ever talks to the service through this interface.
package api

import (
	"context"
	"errors"
	"io"

	"github.com/statusplay/statusplay/internal/types"
)

var (
	// ErrNotFound maps the service's 404 responses.
	ErrNotFound = errors.New("post not found")

	// ErrForbidden maps owner-only operations attempted by a non-owner.
	ErrForbidden = errors.New("operation not permitted")
)

// Client is the remote collaborator of a viewing session.
type Client interface {
	// FetchStatusSet reads the author's current post set, viewer-scoped.
	FetchStatusSet(ctx context.Context, authorID string) (types.StatusSet, error)

	// RecordView marks the post viewed by the caller. Best effort.
	RecordView(ctx context.Context, postID string) error

	// ToggleLike flips the caller's like and returns the authoritative
	// aggregate.
	ToggleLike(ctx context.Context, postID string) (types.LikeResult, error)

	// AddComment appends a comment; the server owns comment identity and
	// ordering, so no local state is returned.
	AddComment(ctx context.Context, postID, content string, kind types.CommentKind) error

	// DeletePost removes a post. Owner-only.
	DeletePost(ctx context.Context, postID string) error

	// DownloadMedia streams the post's media bytes. Owner-only.
	DownloadMedia(ctx context.Context, postID string) (io.ReadCloser, error)
}
