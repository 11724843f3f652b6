package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/statusplay/statusplay/internal/server/storage/memory"
	"github.com/statusplay/statusplay/internal/types"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		DB:   0,
	})

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		t.Fatalf("Failed to connect to test Redis: %v", err)
	}

	cleanup := func() {
		redisClient.Close()
		mr.Close()
	}

	return redisClient, cleanup
}

func seedAuthor(t *testing.T, store *memory.Memory) (string, string) {
	t.Helper()

	author := types.StatusUser{ID: "author-1", Name: "Asha", Avatar: "https://cdn/avatars/asha.png"}
	store.PutUser(author)
	store.PutUser(types.StatusUser{ID: "viewer-1", Name: "Ben"})

	postID := store.PutPost(types.StatusPost{
		AuthorID:  author.ID,
		MediaKind: types.MediaImage,
		Payload:   types.Payload{URL: "https://cdn/media/1.jpg"},
	})

	return author.ID, postID
}

func TestCacheService_GetAuthorSetServesCachedCopy(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	store := memory.New()
	authorID, postID := seedAuthor(t, store)
	svc := NewCacheService(store, redisClient)

	_, posts, _, err := svc.GetAuthorSet(authorID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("Expected 1 post, got %d", len(posts))
	}

	// Mutate storage behind the cache's back. The cached copy should
	// still be served until the entry expires or is invalidated.
	if _, _, _, err := store.ToggleLike(postID, "viewer-1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, posts, likedBy, err := svc.GetAuthorSet(authorID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(likedBy[postID]) != 0 {
		t.Fatalf("Expected stale cached likes, got %v", likedBy[postID])
	}
	if posts[0].LikeCount != 0 {
		t.Fatalf("Expected stale cached like count, got %d", posts[0].LikeCount)
	}
}

func TestCacheService_ToggleLikeInvalidatesAuthorSet(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	store := memory.New()
	authorID, postID := seedAuthor(t, store)
	svc := NewCacheService(store, redisClient)

	// Warm the cache.
	if _, _, _, err := svc.GetAuthorSet(authorID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	count, liked, _, err := svc.ToggleLike(postID, "viewer-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 1 || !liked {
		t.Fatalf("Expected like to land, got count=%d liked=%v", count, liked)
	}

	_, posts, likedBy, err := svc.GetAuthorSet(authorID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(likedBy[postID]) != 1 || likedBy[postID][0] != "viewer-1" {
		t.Fatalf("Expected fresh likes after invalidation, got %v", likedBy[postID])
	}
	if posts[0].LikeCount != 1 {
		t.Fatalf("Expected fresh like count, got %d", posts[0].LikeCount)
	}
}

func TestCacheService_DeletePostInvalidatesAuthorSet(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	store := memory.New()
	authorID, postID := seedAuthor(t, store)
	svc := NewCacheService(store, redisClient)

	if _, _, _, err := svc.GetAuthorSet(authorID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := svc.DeletePost(postID, authorID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, posts, _, err := svc.GetAuthorSet(authorID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("Expected empty set after delete, got %d posts", len(posts))
	}
}

func TestCacheService_SoftDeleteExpiredInvalidatesAuthors(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	store := memory.New()
	authorID, _ := seedAuthor(t, store)
	expiringID := store.PutPost(types.StatusPost{
		AuthorID:  authorID,
		MediaKind: types.MediaText,
		Payload:   types.Payload{Text: "almost gone"},
		ExpiresAt: time.Now().Add(10 * time.Millisecond),
	})
	svc := NewCacheService(store, redisClient)

	if _, _, _, err := svc.GetAuthorSet(authorID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expired, err := svc.SoftDeleteExpired(time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != expiringID {
		t.Fatalf("Expected the expiring post to be swept, got %v", expired)
	}

	_, posts, _, err := svc.GetAuthorSet(authorID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, p := range posts {
		if p.ID == expiringID {
			t.Fatal("Expected swept post to be gone from the refreshed set")
		}
	}
}
