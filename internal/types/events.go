package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of real-time event
type EventType string

const (
	// Inbound (server -> viewer): authoritative state.
	EventLikeChanged   EventType = "status.like_changed"
	EventCommentAdded  EventType = "status.comment_added"
	EventViewAdded     EventType = "status.view_added"
	EventReactionAdded EventType = "status.reaction_added"
	EventPostDeleted   EventType = "status.post_deleted"

	// Outbound (viewer -> server): advisory notices, never authoritative.
	EventNotifyLike    EventType = "notify.like"
	EventNotifyComment EventType = "notify.comment"
	EventNotifyView    EventType = "notify.view"

	// EventWatch subscribes the connection to an author's status feed.
	EventWatch EventType = "watch"
)

// Event is the envelope for everything sent over the realtime channel.
type Event struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return &Event{
		Type:      eventType,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Decode unmarshals the event payload into dst.
func (e *Event) Decode(dst any) error {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decode %s event: %w", e.Type, err)
	}
	return nil
}

// LikeChangedEvent carries the authoritative like aggregate for a post.
type LikeChangedEvent struct {
	PostID    string   `json:"post_id"`
	LikeCount int      `json:"like_count"`
	LikedBy   []string `json:"liked_by"`
}

// CommentAddedEvent carries the full authoritative comment list for a post.
type CommentAddedEvent struct {
	PostID   string    `json:"post_id"`
	Comments []Comment `json:"comments"`
}

// ViewAddedEvent carries the full authoritative viewer list for a post.
type ViewAddedEvent struct {
	PostID  string   `json:"post_id"`
	Viewers []Viewer `json:"viewers"`
}

// ReactionAddedEvent carries the full authoritative reaction list for a post.
type ReactionAddedEvent struct {
	PostID    string     `json:"post_id"`
	Reactions []Reaction `json:"reactions"`
}

// PostDeletedEvent signals owner-initiated removal of a post.
type PostDeletedEvent struct {
	PostID string `json:"post_id"`
}

// NotifyEvent is the lightweight advisory notice a viewer emits after a
// successful local mutation.
type NotifyEvent struct {
	PostID string `json:"post_id"`
}

// WatchEvent subscribes the sending connection to an author's events.
type WatchEvent struct {
	AuthorID string `json:"author_id"`
}
