package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusplay/statusplay/internal/player/store"
	"github.com/statusplay/statusplay/internal/types"
)

type fakeClient struct {
	mu       sync.Mutex
	set      types.StatusSet
	fetchErr error
	views    []string
	deleted  []string
	liked    bool
	count    int

	// fetchEnter/fetchGate let a test park FetchStatusSet mid-flight.
	fetchEnter chan struct{}
	fetchGate  chan struct{}
}

func (f *fakeClient) FetchStatusSet(ctx context.Context, authorID string) (types.StatusSet, error) {
	if f.fetchEnter != nil {
		f.fetchEnter <- struct{}{}
	}
	if f.fetchGate != nil {
		<-f.fetchGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return types.StatusSet{}, f.fetchErr
	}
	return f.set, nil
}

func (f *fakeClient) RecordView(ctx context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, postID)
	return nil
}

func (f *fakeClient) ToggleLike(ctx context.Context, postID string) (types.LikeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liked = !f.liked
	if f.liked {
		f.count++
	} else {
		f.count--
	}
	return types.LikeResult{LikeCount: f.count, LikedByViewer: f.liked}, nil
}

func (f *fakeClient) AddComment(ctx context.Context, postID, content string, kind types.CommentKind) error {
	return nil
}

func (f *fakeClient) DeletePost(ctx context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, postID)
	return nil
}

func (f *fakeClient) DownloadMedia(ctx context.Context, postID string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("media-bytes")), nil
}

func (f *fakeClient) viewCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.views)
}

type stubEvents struct {
	onDeleted func(postID string)
	connected bool
	closed    bool
}

func (e *stubEvents) Connect(ctx context.Context) error { e.connected = true; return nil }
func (e *stubEvents) Close()                            { e.closed = true }
func (e *stubEvents) NotifyLike(string)                 {}
func (e *stubEvents) NotifyComment(string)              {}
func (e *stubEvents) NotifyView(string)                 {}

func threePosts() []types.StatusPost {
	exp := time.Now().Add(time.Hour)
	return []types.StatusPost{
		{ID: "p1", AuthorID: "author-1", MediaKind: types.MediaImage, ExpiresAt: exp},
		{ID: "p2", AuthorID: "author-1", MediaKind: types.MediaText, ExpiresAt: exp},
		{ID: "p3", AuthorID: "author-1", MediaKind: types.MediaImage, ExpiresAt: exp},
	}
}

func newTestSession(t *testing.T, client *fakeClient, viewerID string, exits chan ExitReason) (*Session, *stubEvents) {
	t.Helper()

	ev := &stubEvents{}
	s := New(Config{
		API:      client,
		AuthorID: "author-1",
		ViewerID: viewerID,
		NewEvents: func(st *store.Store, onPostDeleted func(string), onChange func()) EventSource {
			ev.onDeleted = onPostDeleted
			return ev
		},
		TickInterval:    10 * time.Millisecond,
		DefaultDuration: 80 * time.Millisecond,
		ExpirySweep:     20 * time.Millisecond,
		OnExit: func(reason ExitReason) {
			if exits != nil {
				exits <- reason
			}
		},
	})
	t.Cleanup(s.Close)
	return s, ev
}

func TestSession_AutoAdvanceThroughAllPosts(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{User: types.StatusUser{ID: "author-1"}, Posts: threePosts()}}
	exits := make(chan ExitReason, 1)
	s, _ := newTestSession(t, client, "viewer-1", exits)

	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, StatePlaying, s.State())
	assert.Equal(t, 0, s.ViewModel().CurrentIndex)

	// After one full duration the cursor has advanced; earlier posts read
	// as fully played.
	var vm ViewModel
	require.Eventually(t, func() bool {
		vm = s.ViewModel()
		return vm.CurrentIndex >= 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, float64(100), vm.ProgressByIndex[0])

	select {
	case reason := <-exits:
		assert.Equal(t, ExitCompleted, reason)
	case <-time.After(2 * time.Second):
		t.Fatal("session never completed")
	}
}

func TestSession_EmptySetIsNoContentNotError(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{User: types.StatusUser{ID: "author-1"}}}
	exits := make(chan ExitReason, 1)
	s, _ := newTestSession(t, client, "viewer-1", exits)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateNoContent, s.State())

	select {
	case reason := <-exits:
		assert.Equal(t, ExitNoContent, reason)
	case <-time.After(time.Second):
		t.Fatal("no exit signal")
	}
}

func TestSession_ExpiredPostsFilteredOnFetch(t *testing.T) {
	posts := threePosts()
	posts[1].ExpiresAt = time.Now().Add(-time.Minute)
	client := &fakeClient{set: types.StatusSet{Posts: posts}}
	s, _ := newTestSession(t, client, "viewer-1", nil)

	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.ViewModel().Posts, 2)
}

func TestSession_FetchFailureIsRetryable(t *testing.T) {
	client := &fakeClient{fetchErr: errors.New("service unavailable")}
	s, _ := newTestSession(t, client, "viewer-1", nil)

	require.Error(t, s.Start(context.Background()))
	assert.Equal(t, StateFailed, s.State())

	client.mu.Lock()
	client.fetchErr = nil
	client.set = types.StatusSet{Posts: threePosts()}
	client.mu.Unlock()

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StatePlaying, s.State())
}

func TestSession_NonOwnerViewsRecorded(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{Posts: threePosts()}}
	s, _ := newTestSession(t, client, "viewer-1", nil)

	require.NoError(t, s.Start(context.Background()))

	// First post viewed on start, second after manual advance.
	require.Eventually(t, func() bool { return client.viewCount() >= 1 }, 2*time.Second, 5*time.Millisecond)
	s.Next()
	require.Eventually(t, func() bool { return client.viewCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestSession_OwnerDoesNotRecordViews(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{Posts: threePosts()}}
	s, _ := newTestSession(t, client, "author-1", nil)

	require.NoError(t, s.Start(context.Background()))
	s.Next()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, client.viewCount())
}

func TestSession_DeleteOnlyPostEndsWithNoContent(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	client := &fakeClient{set: types.StatusSet{Posts: []types.StatusPost{
		{ID: "only", AuthorID: "author-1", MediaKind: types.MediaImage, ExpiresAt: exp},
	}}}
	exits := make(chan ExitReason, 1)
	s, _ := newTestSession(t, client, "author-1", exits)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.DeleteCurrent(context.Background()))

	assert.Equal(t, StateNoContent, s.State())
	select {
	case reason := <-exits:
		assert.Equal(t, ExitNoContent, reason)
	case <-time.After(time.Second):
		t.Fatal("no exit signal")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, []string{"only"}, client.deleted)
}

func TestSession_DeleteRequiresOwnership(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{Posts: threePosts()}}
	s, _ := newTestSession(t, client, "viewer-1", nil)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.DeleteCurrent(context.Background()), ErrNotOwner)
	_, err := s.DownloadCurrent(context.Background())
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestSession_RemoteDeleteRebindsCursorByID(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{Posts: threePosts()}}
	s, ev := newTestSession(t, client, "viewer-1", nil)

	require.NoError(t, s.Start(context.Background()))
	s.Next() // now on p2

	// The author deletes p1 remotely; the cursor must stay on p2.
	ev.onDeleted("p1")

	vm := s.ViewModel()
	require.NotNil(t, vm.CurrentPost)
	assert.Equal(t, "p2", vm.CurrentPost.ID)
	assert.Equal(t, 0, vm.CurrentIndex)
}

func TestSession_RemoteDeleteOfCurrentShowsNextRemaining(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{Posts: threePosts()}}
	s, ev := newTestSession(t, client, "viewer-1", nil)

	require.NoError(t, s.Start(context.Background()))
	s.Next() // on p2

	ev.onDeleted("p2")

	vm := s.ViewModel()
	require.NotNil(t, vm.CurrentPost)
	assert.Equal(t, "p3", vm.CurrentPost.ID)
}

func TestSession_CloseDuringFetchStaysClosed(t *testing.T) {
	enter := make(chan struct{}, 1)
	gate := make(chan struct{})
	client := &fakeClient{
		set:        types.StatusSet{Posts: threePosts()},
		fetchEnter: enter,
		fetchGate:  gate,
	}
	s, ev := newTestSession(t, client, "viewer-1", nil)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	// Viewer navigates away while the fetch is still in flight, then the
	// fetch returns.
	<-enter
	s.Close()
	close(gate)

	require.ErrorIs(t, <-done, ErrSessionClosed)
	assert.Equal(t, StateClosed, s.State())
	assert.False(t, ev.connected, "a closed session must not open a realtime channel")
}

func TestSession_RemoteDeleteElsewhereKeepsHoldAndProgress(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{Posts: threePosts()}}
	s, ev := newTestSession(t, client, "viewer-1", nil)

	require.NoError(t, s.Start(context.Background()))
	s.Next() // on p2

	// Let both views land and the timer tick once so the frozen progress
	// value is distinguishable from a restart.
	require.Eventually(t, func() bool {
		vm := s.ViewModel()
		return client.viewCount() >= 2 && vm.ProgressByIndex[vm.CurrentIndex] > 0
	}, 2*time.Second, 5*time.Millisecond)
	s.HoldStart()

	vm := s.ViewModel()
	require.True(t, vm.IsPaused)
	frozen := vm.ProgressByIndex[vm.CurrentIndex]
	viewsBefore := client.viewCount()

	// A post other than the displayed one goes away (sweeper expiry on the
	// service side); the viewer must not notice beyond the shorter row.
	ev.onDeleted("p1")

	vm = s.ViewModel()
	require.NotNil(t, vm.CurrentPost)
	assert.Equal(t, "p2", vm.CurrentPost.ID)
	assert.Equal(t, 0, vm.CurrentIndex)
	assert.True(t, vm.IsPaused, "a removal elsewhere must not cancel an active hold")
	assert.Equal(t, frozen, vm.ProgressByIndex[vm.CurrentIndex], "a removal elsewhere must not reset progress")
	assert.Equal(t, viewsBefore, client.viewCount(), "a removal elsewhere must not re-record a view")
}

func TestSession_ExpiryDuringPlaybackDropsPost(t *testing.T) {
	posts := threePosts()
	posts[2].ExpiresAt = time.Now().Add(40 * time.Millisecond)
	client := &fakeClient{set: types.StatusSet{Posts: posts}}
	s, _ := newTestSession(t, client, "viewer-1", nil)

	require.NoError(t, s.Start(context.Background()))
	require.Len(t, s.ViewModel().Posts, 3)

	// No post-deleted event arrives; the local sweep drops the post once
	// its window lapses.
	require.Eventually(t, func() bool {
		return len(s.ViewModel().Posts) == 2
	}, 2*time.Second, 5*time.Millisecond)
	for _, p := range s.ViewModel().Posts {
		assert.NotEqual(t, "p3", p.ID)
	}
}

func TestSession_HoldFreezesProgress(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{Posts: threePosts()}}
	s, _ := newTestSession(t, client, "viewer-1", nil)

	require.NoError(t, s.Start(context.Background()))

	s.HoldStart()
	vm := s.ViewModel()
	require.True(t, vm.IsPaused)
	frozen := vm.ProgressByIndex[vm.CurrentIndex]

	time.Sleep(120 * time.Millisecond)
	vm = s.ViewModel()
	assert.Equal(t, frozen, vm.ProgressByIndex[vm.CurrentIndex])
	assert.Equal(t, 0, vm.CurrentIndex, "paused session must not auto-advance")

	s.HoldEnd()
	assert.False(t, s.ViewModel().IsPaused)
}

func TestSession_LikeFlowsThroughStore(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{Posts: threePosts()}}
	s, _ := newTestSession(t, client, "viewer-1", nil)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Like(context.Background()))

	vm := s.ViewModel()
	require.NotNil(t, vm.CurrentPost)
	assert.True(t, vm.CurrentPost.LikedByViewer)
	assert.Equal(t, 1, vm.CurrentPost.LikeCount)
}

func TestSession_VideoUsesMediaDeclaredDuration(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	client := &fakeClient{set: types.StatusSet{Posts: []types.StatusPost{
		{ID: "v", MediaKind: types.MediaVideo, Payload: types.Payload{DurationMs: 3600000}, ExpiresAt: exp},
		{ID: "p", MediaKind: types.MediaImage, ExpiresAt: exp},
	}}}
	s, _ := newTestSession(t, client, "viewer-1", nil)

	require.NoError(t, s.Start(context.Background()))

	// The hour-long video would never auto-advance in this test; the
	// media-driven completion path must move it along.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, s.ViewModel().CurrentIndex)

	s.MediaFinished()
	assert.Equal(t, 1, s.ViewModel().CurrentIndex)
}

func TestSession_CloseReleasesRealtime(t *testing.T) {
	client := &fakeClient{set: types.StatusSet{Posts: threePosts()}}
	exits := make(chan ExitReason, 1)
	s, ev := newTestSession(t, client, "viewer-1", exits)

	require.NoError(t, s.Start(context.Background()))
	s.Close()
	s.Close() // idempotent

	assert.True(t, ev.closed)
	assert.Equal(t, StateClosed, s.State())
	select {
	case reason := <-exits:
		assert.Equal(t, ExitClosed, reason)
	case <-time.After(time.Second):
		t.Fatal("no exit signal")
	}
}
