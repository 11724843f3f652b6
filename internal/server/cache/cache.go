package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/statusplay/statusplay/internal/server/storage"
	"github.com/statusplay/statusplay/internal/types"
)

// CacheService wraps storage with Redis caching
type CacheService struct {
	storage storage.Storage
	redis   *redis.Client
}

// NewCacheService creates a new cache service
func NewCacheService(storage storage.Storage, redisClient *redis.Client) *CacheService {
	return &CacheService{
		storage: storage,
		redis:   redisClient,
	}
}

// Cache key patterns
const (
	AuthorSetKey = "status:author:%s" // status:author:authorID
	UserKey      = "status:user:%s"   // status:user:userID
)

// Cache durations
const (
	AuthorSetCacheDuration = 45 * time.Second // Hot status-set cache (30-60s)
	UserCacheDuration      = 5 * time.Minute  // Profiles change rarely
)

// authorSetEntry is the cached form of a full author set. It is
// viewer-agnostic: per-viewer fields are derived by the handler.
type authorSetEntry struct {
	User    types.StatusUser    `json:"user"`
	Posts   []types.StatusPost  `json:"posts"`
	LikedBy map[string][]string `json:"liked_by"`
}

// GetAuthorSet returns the cached author set or fetches from storage.
func (c *CacheService) GetAuthorSet(authorID string) (types.StatusUser, []types.StatusPost, map[string][]string, error) {
	ctx := context.Background()
	key := fmt.Sprintf(AuthorSetKey, authorID)

	// Try cache first
	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var entry authorSetEntry
		if err := json.Unmarshal([]byte(cached), &entry); err == nil {
			return entry.User, entry.Posts, entry.LikedBy, nil
		}
	}

	// Cache miss - fetch from storage
	user, posts, likedBy, err := c.storage.GetAuthorSet(authorID)
	if err != nil {
		return types.StatusUser{}, nil, nil, err
	}

	data, _ := json.Marshal(authorSetEntry{User: user, Posts: posts, LikedBy: likedBy})
	c.redis.Set(ctx, key, data, AuthorSetCacheDuration)

	return user, posts, likedBy, nil
}

func (c *CacheService) GetUser(userID string) (types.StatusUser, error) {
	ctx := context.Background()
	key := fmt.Sprintf(UserKey, userID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var user types.StatusUser
		if err := json.Unmarshal([]byte(cached), &user); err == nil {
			return user, nil
		}
	}

	user, err := c.storage.GetUser(userID)
	if err != nil {
		return types.StatusUser{}, err
	}

	data, _ := json.Marshal(user)
	c.redis.Set(ctx, key, data, UserCacheDuration)

	return user, nil
}

// InvalidateAuthorSet clears the cached set for one author. Every
// mutation that changes a post calls this so readers never see a
// stale set for longer than one fetch.
func (c *CacheService) InvalidateAuthorSet(ctx context.Context, authorID string) {
	c.redis.Del(ctx, fmt.Sprintf(AuthorSetKey, authorID))
}

func (c *CacheService) invalidateForPost(postID string) {
	post, err := c.storage.GetPost(postID)
	if err != nil {
		return
	}
	c.InvalidateAuthorSet(context.Background(), post.AuthorID)
}

func (c *CacheService) GetPost(postID string) (types.StatusPost, error) {
	return c.storage.GetPost(postID)
}

func (c *CacheService) ToggleLike(postID, viewerID string) (int, bool, []string, error) {
	count, liked, likedBy, err := c.storage.ToggleLike(postID, viewerID)
	if err != nil {
		return 0, false, nil, err
	}
	c.invalidateForPost(postID)
	return count, liked, likedBy, nil
}

func (c *CacheService) AddComment(postID, viewerID, content string, kind types.CommentKind) ([]types.Comment, error) {
	comments, err := c.storage.AddComment(postID, viewerID, content, kind)
	if err != nil {
		return nil, err
	}
	c.invalidateForPost(postID)
	return comments, nil
}

func (c *CacheService) RecordView(postID string, viewer types.Viewer) ([]types.Viewer, error) {
	viewers, err := c.storage.RecordView(postID, viewer)
	if err != nil {
		return nil, err
	}
	c.invalidateForPost(postID)
	return viewers, nil
}

func (c *CacheService) AddReaction(postID, userID, emoji string) ([]types.Reaction, error) {
	reactions, err := c.storage.AddReaction(postID, userID, emoji)
	if err != nil {
		return nil, err
	}
	c.invalidateForPost(postID)
	return reactions, nil
}

func (c *CacheService) DeletePost(postID, requesterID string) error {
	// Resolve the author before the row is gone.
	post, err := c.storage.GetPost(postID)
	if err != nil {
		return err
	}

	if err := c.storage.DeletePost(postID, requesterID); err != nil {
		return err
	}

	c.InvalidateAuthorSet(context.Background(), post.AuthorID)
	return nil
}

func (c *CacheService) SoftDeleteExpired(now time.Time) ([]types.StatusPost, error) {
	expired, err := c.storage.SoftDeleteExpired(now)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	seen := make(map[string]bool)
	for _, post := range expired {
		if !seen[post.AuthorID] {
			seen[post.AuthorID] = true
			c.InvalidateAuthorSet(ctx, post.AuthorID)
		}
	}

	return expired, nil
}
