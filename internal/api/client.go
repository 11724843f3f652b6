package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/statusplay/statusplay/internal/types"
)

const defaultRequestTimeout = 15 * time.Second

// HTTPClient talks to a status-service over its JSON API.
type HTTPClient struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewHTTPClient creates a client for the service at baseURL, authenticating
// every request with the given bearer token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: defaultRequestTimeout},
	}
}

// envelope mirrors the service's response wrapper.
type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		if env.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, env.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) FetchStatusSet(ctx context.Context, authorID string) (types.StatusSet, error) {
	var set types.StatusSet
	err := c.do(ctx, http.MethodGet, "/status/"+url.PathEscape(authorID), nil, &set)
	return set, err
}

func (c *HTTPClient) RecordView(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/view", nil, nil)
}

func (c *HTTPClient) ToggleLike(ctx context.Context, postID string) (types.LikeResult, error) {
	var res types.LikeResult
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/like", nil, &res)
	return res, err
}

func (c *HTTPClient) AddComment(ctx context.Context, postID, content string, kind types.CommentKind) error {
	body := map[string]string{
		"content": content,
		"kind":    string(kind),
	}
	return c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", body, nil)
}

func (c *HTTPClient) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID), nil, nil)
}

func (c *HTTPClient) DownloadMedia(ctx context.Context, postID string) (io.ReadCloser, error) {
	var payload struct {
		DownloadURL string `json:"download_url"`
	}
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/media", nil, &payload); err != nil {
		return nil, err
	}
	if payload.DownloadURL == "" {
		return nil, errors.New("service returned no download url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download media: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// WebsocketURL derives the realtime endpoint for this service, carrying the
// bearer token as a query parameter the way the ws handler expects it.
func (c *HTTPClient) WebsocketURL() string {
	ws := c.baseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return ws + "/ws?token=" + url.QueryEscape(c.token)
}
