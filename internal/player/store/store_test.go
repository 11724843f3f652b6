package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusplay/statusplay/internal/types"
)

func fixturePosts() []types.StatusPost {
	now := time.Now()
	return []types.StatusPost{
		{ID: "p1", MediaKind: types.MediaImage, LikeCount: 3, ExpiresAt: now.Add(time.Hour)},
		{ID: "p2", MediaKind: types.MediaVideo, LikeCount: 0, ExpiresAt: now.Add(time.Hour)},
		{ID: "p3", MediaKind: types.MediaText, LikeCount: 1, ExpiresAt: now.Add(time.Hour)},
	}
}

func TestStore_ReplaceAllAndLookup(t *testing.T) {
	s := New("viewer-1")
	s.ReplaceAll(types.StatusUser{ID: "author-1", Name: "Author"}, fixturePosts())

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "author-1", s.User().ID)

	p, ok := s.Get("p2")
	require.True(t, ok)
	assert.Equal(t, types.MediaVideo, p.MediaKind)

	assert.Equal(t, 1, s.IndexOf("p2"))
	assert.Equal(t, -1, s.IndexOf("missing"))

	_, ok = s.At(5)
	assert.False(t, ok)
}

func TestStore_ApplyRemoteLikeLastWriterWins(t *testing.T) {
	s := New("viewer-1")
	s.ReplaceAll(types.StatusUser{}, fixturePosts())

	// Local optimistic state first.
	_, _, ok := s.SetLikeState("p1", 4, true)
	require.True(t, ok)

	// Authoritative remote aggregate overwrites it, whatever it says.
	require.True(t, s.ApplyRemoteLike("p1", 7, []string{"someone-else"}))

	p, _ := s.Get("p1")
	assert.Equal(t, 7, p.LikeCount)
	assert.False(t, p.LikedByViewer)

	// Viewer present in likedBy recomputes the flag.
	require.True(t, s.ApplyRemoteLike("p1", 8, []string{"viewer-1", "someone-else"}))
	p, _ = s.Get("p1")
	assert.True(t, p.LikedByViewer)

	// Count never goes negative, even on a malformed event.
	require.True(t, s.ApplyRemoteLike("p1", -2, nil))
	p, _ = s.Get("p1")
	assert.Equal(t, 0, p.LikeCount)

	assert.False(t, s.ApplyRemoteLike("missing", 1, nil))
}

func TestStore_SetLikeStateReturnsPreviousForRollback(t *testing.T) {
	s := New("viewer-1")
	s.ReplaceAll(types.StatusUser{}, fixturePosts())

	prevCount, prevLiked, ok := s.SetLikeState("p1", 4, true)
	require.True(t, ok)
	assert.Equal(t, 3, prevCount)
	assert.False(t, prevLiked)

	// Rolling back with the returned values restores the exact pre-state.
	_, _, ok = s.SetLikeState("p1", prevCount, prevLiked)
	require.True(t, ok)

	p, _ := s.Get("p1")
	assert.Equal(t, 3, p.LikeCount)
	assert.False(t, p.LikedByViewer)

	// Negative counts clamp to zero.
	s.SetLikeState("p2", -1, false)
	p, _ = s.Get("p2")
	assert.Equal(t, 0, p.LikeCount)
}

func TestStore_WholesaleCommentReplaceIsIdempotent(t *testing.T) {
	s := New("viewer-1")
	s.ReplaceAll(types.StatusUser{}, fixturePosts())

	comments := []types.Comment{
		{ID: "c1", AuthorID: "a", Content: "hi", Kind: types.CommentText},
		{ID: "c2", AuthorID: "b", Content: "🔥", Kind: types.CommentEmoji},
	}
	require.True(t, s.ApplyRemoteComments("p1", comments))
	require.True(t, s.ApplyRemoteComments("p1", comments)) // duplicate replay

	p, _ := s.Get("p1")
	assert.Len(t, p.Comments, 2)
	assert.Equal(t, "c1", p.Comments[0].ID)
}

func TestStore_ViewersDedupedByViewerID(t *testing.T) {
	s := New("viewer-1")
	s.ReplaceAll(types.StatusUser{}, fixturePosts())

	viewers := []types.Viewer{
		{ViewerID: "v1", Name: "One"},
		{ViewerID: "v2", Name: "Two"},
		{ViewerID: "v1", Name: "One again"},
	}
	require.True(t, s.ApplyRemoteViewers("p2", viewers))

	p, _ := s.Get("p2")
	require.Len(t, p.Viewers, 2)
	assert.Equal(t, "One", p.Viewers[0].Name)
	assert.Equal(t, "v2", p.Viewers[1].ViewerID)
}

func TestStore_Remove(t *testing.T) {
	s := New("viewer-1")
	s.ReplaceAll(types.StatusUser{}, fixturePosts())

	i, ok := s.Remove("p2")
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.IndexOf("p3"))

	_, ok = s.Remove("p2")
	assert.False(t, ok)
}

func TestStore_DropExpired(t *testing.T) {
	now := time.Now()
	posts := []types.StatusPost{
		{ID: "fresh", ExpiresAt: now.Add(time.Hour)},
		{ID: "stale", ExpiresAt: now.Add(-time.Minute)},
	}

	s := New("viewer-1")
	s.ReplaceAll(types.StatusUser{}, posts)

	assert.Equal(t, 1, s.DropExpired(now))
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("stale")
	assert.False(t, ok)
}
