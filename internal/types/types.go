package types

import "time"

type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaText     MediaKind = "text"
	MediaAudio    MediaKind = "audio"
	MediaLocation MediaKind = "location"
)

type CommentKind string

const (
	CommentText    CommentKind = "text"
	CommentEmoji   CommentKind = "emoji"
	CommentSticker CommentKind = "sticker"
)

// Payload carries the media content of a post. Which fields are set
// depends on the post's MediaKind.
type Payload struct {
	URL        string   `json:"url,omitempty"`
	Text       string   `json:"text,omitempty"`
	Background string   `json:"background,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	// DurationMs is the media length for video/audio posts, when known.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

type Comment struct {
	ID        string      `json:"id"`
	AuthorID  string      `json:"author_id"`
	Content   string      `json:"content"`
	Kind      CommentKind `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
}

type Viewer struct {
	ViewerID string    `json:"viewer_id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	ViewedAt time.Time `json:"viewed_at"`
}

type Reaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	ReactedAt time.Time `json:"reacted_at"`
}

// StatusPost is one ephemeral post in a user's status set.
type StatusPost struct {
	ID            string     `json:"id"`
	AuthorID      string     `json:"author_id"`
	MediaKind     MediaKind  `json:"media_kind"`
	Payload       Payload    `json:"payload"`
	Caption       string     `json:"caption,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	LikeCount     int        `json:"like_count"`
	LikedByViewer bool       `json:"liked_by_viewer"`
	Viewers       []Viewer   `json:"viewers,omitempty"`
	Comments      []Comment  `json:"comments,omitempty"`
	Reactions     []Reaction `json:"reactions,omitempty"`
}

// Expired reports whether the post is past its display window.
func (p *StatusPost) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// StatusUser is the author whose status set is being viewed.
type StatusUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// StatusSet is the initial fetch result for a viewing session.
type StatusSet struct {
	User  StatusUser   `json:"user"`
	Posts []StatusPost `json:"posts"`
}

// LikeResult is the authoritative outcome of a like toggle.
type LikeResult struct {
	LikeCount     int  `json:"like_count"`
	LikedByViewer bool `json:"liked_by_viewer"`
}
