package events

import (
	"github.com/statusplay/statusplay/internal/types"
)

// Publisher interface for publishing authoritative status events
type Publisher interface {
	PublishLikeChanged(authorID, actorID, postID string, likeCount int, likedBy []string) error
	PublishCommentAdded(authorID, actorID, postID string, comments []types.Comment) error
	PublishViewAdded(authorID, actorID, postID string, viewers []types.Viewer) error
	PublishReactionAdded(authorID, actorID, postID string, reactions []types.Reaction) error
	PublishPostDeleted(authorID, actorID, postID string) error
}

// WebSocketHub interface for the WebSocket hub
type WebSocketHub interface {
	BroadcastToAudience(authorID, excludeUserID string, event *types.Event)
}

// EventPublisher implements the Publisher interface
type EventPublisher struct {
	hub WebSocketHub
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub WebSocketHub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

// publish wraps the payload and fans it out to the author's audience.
// The actor already applied the change optimistically, so they are
// excluded from the broadcast.
func (p *EventPublisher) publish(eventType types.EventType, authorID, actorID string, data any) error {
	event, err := types.NewEvent(eventType, data)
	if err != nil {
		return err
	}
	p.hub.BroadcastToAudience(authorID, actorID, event)
	return nil
}

// PublishLikeChanged publishes the authoritative like aggregate for a post
func (p *EventPublisher) PublishLikeChanged(authorID, actorID, postID string, likeCount int, likedBy []string) error {
	return p.publish(types.EventLikeChanged, authorID, actorID, &types.LikeChangedEvent{
		PostID:    postID,
		LikeCount: likeCount,
		LikedBy:   likedBy,
	})
}

// PublishCommentAdded publishes the full comment list for a post
func (p *EventPublisher) PublishCommentAdded(authorID, actorID, postID string, comments []types.Comment) error {
	return p.publish(types.EventCommentAdded, authorID, actorID, &types.CommentAddedEvent{
		PostID:   postID,
		Comments: comments,
	})
}

// PublishViewAdded publishes the full viewer list for a post
func (p *EventPublisher) PublishViewAdded(authorID, actorID, postID string, viewers []types.Viewer) error {
	return p.publish(types.EventViewAdded, authorID, actorID, &types.ViewAddedEvent{
		PostID:  postID,
		Viewers: viewers,
	})
}

// PublishReactionAdded publishes the full reaction list for a post
func (p *EventPublisher) PublishReactionAdded(authorID, actorID, postID string, reactions []types.Reaction) error {
	return p.publish(types.EventReactionAdded, authorID, actorID, &types.ReactionAddedEvent{
		PostID:    postID,
		Reactions: reactions,
	})
}

// PublishPostDeleted announces owner-initiated removal of a post
func (p *EventPublisher) PublishPostDeleted(authorID, actorID, postID string) error {
	return p.publish(types.EventPostDeleted, authorID, actorID, &types.PostDeletedEvent{
		PostID: postID,
	})
}
