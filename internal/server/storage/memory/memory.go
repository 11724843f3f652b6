// Package memory is an in-memory Storage implementation used by local
// development and handler tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/statusplay/statusplay/internal/server/storage"
	"github.com/statusplay/statusplay/internal/types"
)

type record struct {
	post    types.StatusPost
	likedBy []string
	deleted bool
}

type Memory struct {
	mu    sync.Mutex
	users map[string]types.StatusUser
	posts map[string]*record
}

func New() *Memory {
	return &Memory{
		users: make(map[string]types.StatusUser),
		posts: make(map[string]*record),
	}
}

// PutUser registers or updates a user profile.
func (m *Memory) PutUser(u types.StatusUser) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[u.ID] = u
}

// PutPost stores a post, generating an id when absent.
func (m *Memory) PutPost(p types.StatusPost) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = p.CreatedAt.Add(24 * time.Hour)
	}
	m.posts[p.ID] = &record{post: p}
	return p.ID
}

func (m *Memory) GetUser(userID string) (types.StatusUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return types.StatusUser{}, storage.ErrNotFound
	}
	return u, nil
}

func (m *Memory) GetAuthorSet(authorID string) (types.StatusUser, []types.StatusPost, map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[authorID]
	if !ok {
		return types.StatusUser{}, nil, nil, storage.ErrNotFound
	}

	var posts []types.StatusPost
	likedBy := make(map[string][]string)
	for _, r := range m.posts {
		if r.deleted || r.post.AuthorID != authorID {
			continue
		}
		posts = append(posts, r.post)
		likedBy[r.post.ID] = append([]string(nil), r.likedBy...)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})
	return user, posts, likedBy, nil
}

func (m *Memory) GetPost(postID string) (types.StatusPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.posts[postID]
	if !ok || r.deleted {
		return types.StatusPost{}, storage.ErrNotFound
	}
	return r.post, nil
}

func (m *Memory) ToggleLike(postID, viewerID string) (int, bool, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.posts[postID]
	if !ok || r.deleted {
		return 0, false, nil, storage.ErrNotFound
	}

	liked := false
	kept := r.likedBy[:0]
	for _, id := range r.likedBy {
		if id == viewerID {
			liked = true
			continue
		}
		kept = append(kept, id)
	}
	r.likedBy = kept
	if !liked {
		r.likedBy = append(r.likedBy, viewerID)
	}
	r.post.LikeCount = len(r.likedBy)

	return r.post.LikeCount, !liked, append([]string(nil), r.likedBy...), nil
}

func (m *Memory) AddComment(postID, viewerID, content string, kind types.CommentKind) ([]types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.posts[postID]
	if !ok || r.deleted {
		return nil, storage.ErrNotFound
	}

	r.post.Comments = append(r.post.Comments, types.Comment{
		ID:        uuid.New().String(),
		AuthorID:  viewerID,
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now(),
	})
	return append([]types.Comment(nil), r.post.Comments...), nil
}

func (m *Memory) RecordView(postID string, viewer types.Viewer) ([]types.Viewer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.posts[postID]
	if !ok || r.deleted {
		return nil, storage.ErrNotFound
	}

	for _, v := range r.post.Viewers {
		if v.ViewerID == viewer.ViewerID {
			// One view per viewer.
			return append([]types.Viewer(nil), r.post.Viewers...), nil
		}
	}
	if viewer.ViewedAt.IsZero() {
		viewer.ViewedAt = time.Now()
	}
	r.post.Viewers = append(r.post.Viewers, viewer)
	return append([]types.Viewer(nil), r.post.Viewers...), nil
}

func (m *Memory) AddReaction(postID, userID, emoji string) ([]types.Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.posts[postID]
	if !ok || r.deleted {
		return nil, storage.ErrNotFound
	}

	r.post.Reactions = append(r.post.Reactions, types.Reaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Emoji:     emoji,
		ReactedAt: time.Now(),
	})
	return append([]types.Reaction(nil), r.post.Reactions...), nil
}

func (m *Memory) DeletePost(postID, requesterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.posts[postID]
	if !ok || r.deleted {
		return storage.ErrNotFound
	}
	if r.post.AuthorID != requesterID {
		return storage.ErrForbidden
	}
	r.deleted = true
	return nil
}

func (m *Memory) SoftDeleteExpired(now time.Time) ([]types.StatusPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []types.StatusPost
	for _, r := range m.posts {
		if r.deleted || !r.post.Expired(now) {
			continue
		}
		r.deleted = true
		expired = append(expired, r.post)
	}
	return expired, nil
}
