// Package store holds the single mutable source of truth for a viewing
// session: the fetched post set and its per-post interaction state.
//
// Three asynchronous feeders mutate it (timer-driven navigation, inbound
// realtime events, local interaction results). Every mutation method takes
// the store lock and completes without blocking, so each merge is atomic
// with respect to the other feeders.
package store

import (
	"sync"
	"time"

	"github.com/statusplay/statusplay/internal/types"
)

// Store is the post set for one viewing session.
type Store struct {
	mu       sync.RWMutex
	viewerID string
	user     types.StatusUser
	posts    []types.StatusPost
}

// New creates an empty store scoped to the given viewer.
func New(viewerID string) *Store {
	return &Store{viewerID: viewerID}
}

// ReplaceAll populates the store from the initial fetch.
func (s *Store) ReplaceAll(user types.StatusUser, posts []types.StatusPost) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = user
	s.posts = make([]types.StatusPost, len(posts))
	copy(s.posts, posts)
}

// User returns the author being viewed.
func (s *Store) User() types.StatusUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.user
}

// Len returns the number of posts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.posts)
}

// Posts returns a snapshot copy of the post list.
func (s *Store) Posts() []types.StatusPost {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.StatusPost, len(s.posts))
	copy(out, s.posts)
	return out
}

// Get returns the post with the given id.
func (s *Store) Get(postID string) (types.StatusPost, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(postID); i >= 0 {
		return s.posts[i], true
	}
	return types.StatusPost{}, false
}

// At returns the post at position i.
func (s *Store) At(i int) (types.StatusPost, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.posts) {
		return types.StatusPost{}, false
	}
	return s.posts[i], true
}

// IndexOf returns the current position of the post, or -1. Display targets
// are resolved by id, never by assuming index stability across mutations.
func (s *Store) IndexOf(postID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.indexOf(postID)
}

func (s *Store) indexOf(postID string) int {
	for i := range s.posts {
		if s.posts[i].ID == postID {
			return i
		}
	}
	return -1
}

// ApplyRemoteLike applies an authoritative like aggregate. Last-writer-wins:
// the remote value always overwrites any local optimistic count.
func (s *Store) ApplyRemoteLike(postID string, likeCount int, likedBy []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(postID)
	if i < 0 {
		return false
	}
	if likeCount < 0 {
		likeCount = 0
	}
	s.posts[i].LikeCount = likeCount
	s.posts[i].LikedByViewer = contains(likedBy, s.viewerID)
	return true
}

// ApplyRemoteComments replaces the comment list wholesale with the
// server-provided authoritative list. Replays are idempotent.
func (s *Store) ApplyRemoteComments(postID string, comments []types.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(postID)
	if i < 0 {
		return false
	}
	s.posts[i].Comments = append([]types.Comment(nil), comments...)
	return true
}

// ApplyRemoteViewers replaces the viewer list wholesale, deduplicated by
// viewer id with first occurrence order preserved.
func (s *Store) ApplyRemoteViewers(postID string, viewers []types.Viewer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(postID)
	if i < 0 {
		return false
	}

	seen := make(map[string]bool, len(viewers))
	deduped := make([]types.Viewer, 0, len(viewers))
	for _, v := range viewers {
		if seen[v.ViewerID] {
			continue
		}
		seen[v.ViewerID] = true
		deduped = append(deduped, v)
	}
	s.posts[i].Viewers = deduped
	return true
}

// ApplyRemoteReactions replaces the reaction list wholesale.
func (s *Store) ApplyRemoteReactions(postID string, reactions []types.Reaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(postID)
	if i < 0 {
		return false
	}
	s.posts[i].Reactions = append([]types.Reaction(nil), reactions...)
	return true
}

// SetLikeState applies a locally computed optimistic like state and returns
// the previous values so the caller can roll back the exact delta.
func (s *Store) SetLikeState(postID string, likeCount int, liked bool) (prevCount int, prevLiked bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(postID)
	if i < 0 {
		return 0, false, false
	}
	prevCount = s.posts[i].LikeCount
	prevLiked = s.posts[i].LikedByViewer
	if likeCount < 0 {
		likeCount = 0
	}
	s.posts[i].LikeCount = likeCount
	s.posts[i].LikedByViewer = liked
	return prevCount, prevLiked, true
}

// Remove deletes the post and returns the index it occupied.
func (s *Store) Remove(postID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(postID)
	if i < 0 {
		return -1, false
	}
	s.posts = append(s.posts[:i], s.posts[i+1:]...)
	return i, true
}

// DropExpired removes posts whose display window has passed and reports how
// many were dropped.
func (s *Store) DropExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.posts[:0]
	dropped := 0
	for _, p := range s.posts {
		if p.Expired(now) {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	s.posts = kept
	return dropped
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
