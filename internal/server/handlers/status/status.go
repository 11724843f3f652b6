package status

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/minio/minio-go/v7"

	"github.com/statusplay/statusplay/internal/server/events"
	"github.com/statusplay/statusplay/internal/server/middleware"
	"github.com/statusplay/statusplay/internal/server/storage"
	"github.com/statusplay/statusplay/internal/types"
	"github.com/statusplay/statusplay/internal/utils/response"
)

// MediaStore is the slice of the media service the handlers need.
type MediaStore interface {
	ObjectKeyFromURL(mediaURL string) (string, bool)
	PresignedDownloadURL(objectKey string) (*url.URL, error)
	DeleteObject(objectKey string) error
	GetObjectInfo(objectKey string) (minio.ObjectInfo, error)
}

// CommentRequest is the body of POST /posts/{id}/comments
type CommentRequest struct {
	Content string `json:"content" validate:"required,max=500"`
	Kind    string `json:"kind" validate:"required,oneof=text emoji sticker"`
}

// ReactionRequest is the body of POST /posts/{id}/reactions
type ReactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("post not found")))
	case errors.Is(err, storage.ErrForbidden):
		response.WriteJSON(w, http.StatusForbidden, response.GeneralError(errors.New("access denied")))
	default:
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
	}
}

// StatusSet handles GET /status/{id}: the full set of live posts for
// one author, shaped for the requesting viewer.
func StatusSet(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		authorID := r.PathValue("id")
		if authorID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("author ID is required")))
			return
		}

		user, posts, likedBy, err := store.GetAuthorSet(authorID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("user not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		isOwner := viewerID == authorID
		for i := range posts {
			likers := likedBy[posts[i].ID]
			posts[i].LikeCount = len(likers)
			posts[i].LikedByViewer = false
			for _, id := range likers {
				if id == viewerID {
					posts[i].LikedByViewer = true
					break
				}
			}
			// Viewer lists are visible to the author only.
			if !isOwner {
				posts[i].Viewers = nil
			}
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Status set fetched successfully", types.StatusSet{
			User:  user,
			Posts: posts,
		}))
	}
}

// ToggleLike handles POST /posts/{id}/like. The response is the
// authoritative aggregate after the toggle.
func ToggleLike(store storage.Storage, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		postID := r.PathValue("id")
		if postID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("post ID is required")))
			return
		}

		post, err := store.GetPost(postID)
		if err != nil {
			writeStorageError(w, err)
			return
		}

		count, liked, likedBy, err := store.ToggleLike(postID, viewerID)
		if err != nil {
			writeStorageError(w, err)
			return
		}

		if err := publisher.PublishLikeChanged(post.AuthorID, viewerID, postID, count, likedBy); err != nil {
			slog.Error("Failed to publish like event", slog.String("error", err.Error()))
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Like toggled successfully", types.LikeResult{
			LikeCount:     count,
			LikedByViewer: liked,
		}))
	}
}

// AddComment handles POST /posts/{id}/comments
func AddComment(store storage.Storage, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		postID := r.PathValue("id")
		if postID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("post ID is required")))
			return
		}

		var req CommentRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		validate := validator.New()
		if err := validate.Struct(req); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		post, err := store.GetPost(postID)
		if err != nil {
			writeStorageError(w, err)
			return
		}

		comments, err := store.AddComment(postID, viewerID, req.Content, types.CommentKind(req.Kind))
		if err != nil {
			writeStorageError(w, err)
			return
		}

		if err := publisher.PublishCommentAdded(post.AuthorID, viewerID, postID, comments); err != nil {
			slog.Error("Failed to publish comment event", slog.String("error", err.Error()))
		}

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Comment added successfully", comments))
	}
}

// RecordView handles POST /posts/{id}/view. Idempotent: one view per
// viewer per post.
func RecordView(store storage.Storage, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		postID := r.PathValue("id")
		if postID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("post ID is required")))
			return
		}

		post, err := store.GetPost(postID)
		if err != nil {
			writeStorageError(w, err)
			return
		}

		viewer := types.Viewer{ViewerID: viewerID}
		if profile, err := store.GetUser(viewerID); err == nil {
			viewer.Name = profile.Name
			viewer.Avatar = profile.Avatar
		}

		viewers, err := store.RecordView(postID, viewer)
		if err != nil {
			slog.Error("Failed to record view", slog.String("error", err.Error()))
			writeStorageError(w, err)
			return
		}

		if err := publisher.PublishViewAdded(post.AuthorID, viewerID, postID, viewers); err != nil {
			slog.Error("Failed to publish view event", slog.String("error", err.Error()))
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("View recorded successfully", nil))
	}
}

// AddReaction handles POST /posts/{id}/reactions
func AddReaction(store storage.Storage, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		postID := r.PathValue("id")
		if postID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("post ID is required")))
			return
		}

		var req ReactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
			return
		}

		validate := validator.New()
		if err := validate.Struct(req); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		post, err := store.GetPost(postID)
		if err != nil {
			writeStorageError(w, err)
			return
		}

		reactions, err := store.AddReaction(postID, viewerID, req.Emoji)
		if err != nil {
			writeStorageError(w, err)
			return
		}

		if err := publisher.PublishReactionAdded(post.AuthorID, viewerID, postID, reactions); err != nil {
			slog.Error("Failed to publish reaction event", slog.String("error", err.Error()))
		}

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Reaction added successfully", reactions))
	}
}

// DeletePost handles DELETE /posts/{id}. Owner-only; the stored media
// object is cleaned up best-effort.
func DeletePost(store storage.Storage, publisher events.Publisher, mediaStore MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		postID := r.PathValue("id")
		if postID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("post ID is required")))
			return
		}

		post, err := store.GetPost(postID)
		if err != nil {
			writeStorageError(w, err)
			return
		}

		if err := store.DeletePost(postID, userID); err != nil {
			writeStorageError(w, err)
			return
		}
		slog.Info("Post deleted", slog.String("post_id", postID), slog.String("user_id", userID))

		if mediaStore != nil && post.Payload.URL != "" {
			if key, ok := mediaStore.ObjectKeyFromURL(post.Payload.URL); ok {
				if err := mediaStore.DeleteObject(key); err != nil {
					slog.Warn("Failed to delete media object",
						slog.String("object_key", key),
						slog.String("error", err.Error()))
				}
			}
		}

		if err := publisher.PublishPostDeleted(post.AuthorID, userID, postID); err != nil {
			slog.Error("Failed to publish delete event", slog.String("error", err.Error()))
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Post deleted successfully", nil))
	}
}

// MediaDownload handles GET /posts/{id}/media: a presigned download
// URL for the post's stored media. Owner-only.
func MediaDownload(store storage.Storage, mediaStore MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		postID := r.PathValue("id")
		if postID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("post ID is required")))
			return
		}

		post, err := store.GetPost(postID)
		if err != nil {
			writeStorageError(w, err)
			return
		}

		if post.AuthorID != userID {
			response.WriteJSON(w, http.StatusForbidden, response.GeneralError(errors.New("access denied")))
			return
		}

		if mediaStore == nil {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("media storage is not configured")))
			return
		}

		key, ok := mediaStore.ObjectKeyFromURL(post.Payload.URL)
		if !ok {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("post has no stored media")))
			return
		}

		// The object can be gone even while the post row survives, e.g.
		// after a partial cleanup. Stat before presigning so the viewer
		// gets a 404 instead of a signed URL to nothing.
		if _, err := mediaStore.GetObjectInfo(key); err != nil {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("stored media object not found")))
			return
		}

		downloadURL, err := mediaStore.PresignedDownloadURL(key)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to generate download URL")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Download URL generated successfully", map[string]any{
			"download_url": downloadURL.String(),
		}))
	}
}
