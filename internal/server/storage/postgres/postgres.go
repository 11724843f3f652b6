package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/statusplay/statusplay/internal/config"
	"github.com/statusplay/statusplay/internal/server/storage"
	"github.com/statusplay/statusplay/internal/types"
)

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(cfg *config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PGSQL.Host, cfg.PGSQL.Port, cfg.PGSQL.User, cfg.PGSQL.Password, cfg.PGSQL.DBName, cfg.PGSQL.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	pg := &Postgres{Db: db}
	if err := pg.CreateTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return pg, nil
}

func (p *Postgres) CreateTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT ''
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			media_kind TEXT NOT NULL CHECK (media_kind IN ('image','video','text','audio','location')),
			media_url TEXT NOT NULL DEFAULT '',
			text_content TEXT NOT NULL DEFAULT '',
			background TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			caption TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMPTZ NOT NULL DEFAULT (CURRENT_TIMESTAMP + INTERVAL '24 hours'),
			deleted_at TIMESTAMPTZ
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS post_likes (
			post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			liked_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (post_id, user_id)
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS post_comments (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('text','emoji','sticker')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS post_views (
			post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			viewer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			viewed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (post_id, viewer_id)
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS post_reactions (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			emoji TEXT NOT NULL,
			reacted_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
	}

	for _, q := range queries {
		if _, err := p.Db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

func (p *Postgres) GetUser(userID string) (types.StatusUser, error) {
	var u types.StatusUser
	err := p.Db.QueryRow(`SELECT id, name, avatar FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Name, &u.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StatusUser{}, storage.ErrNotFound
	}
	return u, err
}

func (p *Postgres) GetAuthorSet(authorID string) (types.StatusUser, []types.StatusPost, map[string][]string, error) {
	user, err := p.GetUser(authorID)
	if err != nil {
		return types.StatusUser{}, nil, nil, err
	}

	rows, err := p.Db.Query(`
	SELECT id, author_id, media_kind, media_url, text_content, background,
	       latitude, longitude, duration_ms, caption, created_at, expires_at
	FROM posts
	WHERE author_id = $1 AND deleted_at IS NULL AND expires_at > CURRENT_TIMESTAMP
	ORDER BY created_at ASC
	`, authorID)
	if err != nil {
		return types.StatusUser{}, nil, nil, err
	}
	defer rows.Close()

	var posts []types.StatusPost
	var ids []string
	for rows.Next() {
		var post types.StatusPost
		if err := scanPost(rows, &post); err != nil {
			return types.StatusUser{}, nil, nil, err
		}
		posts = append(posts, post)
		ids = append(ids, post.ID)
	}
	if err := rows.Err(); err != nil {
		return types.StatusUser{}, nil, nil, err
	}

	likedBy, err := p.loadLikes(ids)
	if err != nil {
		return types.StatusUser{}, nil, nil, err
	}
	if err := p.loadCollections(ids, posts); err != nil {
		return types.StatusUser{}, nil, nil, err
	}
	for i := range posts {
		posts[i].LikeCount = len(likedBy[posts[i].ID])
	}

	return user, posts, likedBy, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner, post *types.StatusPost) error {
	var lat, lng sql.NullFloat64
	err := r.Scan(&post.ID, &post.AuthorID, &post.MediaKind, &post.Payload.URL,
		&post.Payload.Text, &post.Payload.Background, &lat, &lng,
		&post.Payload.DurationMs, &post.Caption, &post.CreatedAt, &post.ExpiresAt)
	if err != nil {
		return err
	}
	if lat.Valid {
		post.Payload.Latitude = &lat.Float64
	}
	if lng.Valid {
		post.Payload.Longitude = &lng.Float64
	}
	return nil
}

func (p *Postgres) loadLikes(postIDs []string) (map[string][]string, error) {
	likedBy := make(map[string][]string, len(postIDs))
	if len(postIDs) == 0 {
		return likedBy, nil
	}

	rows, err := p.Db.Query(`
	SELECT post_id, user_id FROM post_likes WHERE post_id = ANY($1) ORDER BY liked_at ASC
	`, pq.Array(postIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var postID, userID string
		if err := rows.Scan(&postID, &userID); err != nil {
			return nil, err
		}
		likedBy[postID] = append(likedBy[postID], userID)
	}
	return likedBy, rows.Err()
}

// loadCollections fills comments, viewers and reactions for the given posts.
func (p *Postgres) loadCollections(postIDs []string, posts []types.StatusPost) error {
	if len(postIDs) == 0 {
		return nil
	}
	byID := make(map[string]*types.StatusPost, len(posts))
	for i := range posts {
		byID[posts[i].ID] = &posts[i]
	}

	rows, err := p.Db.Query(`
	SELECT post_id, id, author_id, content, kind, created_at
	FROM post_comments WHERE post_id = ANY($1) ORDER BY created_at ASC
	`, pq.Array(postIDs))
	if err != nil {
		return err
	}
	for rows.Next() {
		var postID string
		var c types.Comment
		if err := rows.Scan(&postID, &c.ID, &c.AuthorID, &c.Content, &c.Kind, &c.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		if post := byID[postID]; post != nil {
			post.Comments = append(post.Comments, c)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = p.Db.Query(`
	SELECT v.post_id, v.viewer_id, u.name, u.avatar, v.viewed_at
	FROM post_views v JOIN users u ON u.id = v.viewer_id
	WHERE v.post_id = ANY($1) ORDER BY v.viewed_at ASC
	`, pq.Array(postIDs))
	if err != nil {
		return err
	}
	for rows.Next() {
		var postID string
		var v types.Viewer
		if err := rows.Scan(&postID, &v.ViewerID, &v.Name, &v.Avatar, &v.ViewedAt); err != nil {
			rows.Close()
			return err
		}
		if post := byID[postID]; post != nil {
			post.Viewers = append(post.Viewers, v)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = p.Db.Query(`
	SELECT post_id, id, user_id, emoji, reacted_at
	FROM post_reactions WHERE post_id = ANY($1) ORDER BY reacted_at ASC
	`, pq.Array(postIDs))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var postID string
		var re types.Reaction
		if err := rows.Scan(&postID, &re.ID, &re.UserID, &re.Emoji, &re.ReactedAt); err != nil {
			return err
		}
		if post := byID[postID]; post != nil {
			post.Reactions = append(post.Reactions, re)
		}
	}
	return rows.Err()
}

func (p *Postgres) GetPost(postID string) (types.StatusPost, error) {
	var post types.StatusPost
	row := p.Db.QueryRow(`
	SELECT id, author_id, media_kind, media_url, text_content, background,
	       latitude, longitude, duration_ms, caption, created_at, expires_at
	FROM posts WHERE id = $1 AND deleted_at IS NULL
	`, postID)
	if err := scanPost(row, &post); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.StatusPost{}, storage.ErrNotFound
		}
		return types.StatusPost{}, err
	}
	return post, nil
}

func (p *Postgres) ToggleLike(postID, viewerID string) (int, bool, []string, error) {
	if _, err := p.GetPost(postID); err != nil {
		return 0, false, nil, err
	}

	res, err := p.Db.Exec(`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, viewerID)
	if err != nil {
		return 0, false, nil, err
	}
	removed, _ := res.RowsAffected()
	liked := removed == 0
	if liked {
		_, err = p.Db.Exec(`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`, postID, viewerID)
		if err != nil {
			return 0, false, nil, err
		}
	}

	likedBy, err := p.loadLikes([]string{postID})
	if err != nil {
		return 0, false, nil, err
	}
	return len(likedBy[postID]), liked, likedBy[postID], nil
}

func (p *Postgres) AddComment(postID, viewerID, content string, kind types.CommentKind) ([]types.Comment, error) {
	if _, err := p.GetPost(postID); err != nil {
		return nil, err
	}

	_, err := p.Db.Exec(`
	INSERT INTO post_comments (id, post_id, author_id, content, kind)
	VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), postID, viewerID, content, kind)
	if err != nil {
		return nil, err
	}

	return p.comments(postID)
}

func (p *Postgres) comments(postID string) ([]types.Comment, error) {
	rows, err := p.Db.Query(`
	SELECT id, author_id, content, kind, created_at
	FROM post_comments WHERE post_id = $1 ORDER BY created_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Comment
	for rows.Next() {
		var c types.Comment
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.Content, &c.Kind, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) RecordView(postID string, viewer types.Viewer) ([]types.Viewer, error) {
	if _, err := p.GetPost(postID); err != nil {
		return nil, err
	}

	_, err := p.Db.Exec(`
	INSERT INTO post_views (post_id, viewer_id)
	VALUES ($1, $2)
	ON CONFLICT (post_id, viewer_id) DO NOTHING
	`, postID, viewer.ViewerID)
	if err != nil {
		return nil, err
	}

	rows, err := p.Db.Query(`
	SELECT v.viewer_id, u.name, u.avatar, v.viewed_at
	FROM post_views v JOIN users u ON u.id = v.viewer_id
	WHERE v.post_id = $1 ORDER BY v.viewed_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Viewer
	for rows.Next() {
		var v types.Viewer
		if err := rows.Scan(&v.ViewerID, &v.Name, &v.Avatar, &v.ViewedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) AddReaction(postID, userID, emoji string) ([]types.Reaction, error) {
	if _, err := p.GetPost(postID); err != nil {
		return nil, err
	}

	_, err := p.Db.Exec(`
	INSERT INTO post_reactions (id, post_id, user_id, emoji)
	VALUES ($1, $2, $3, $4)
	`, uuid.New().String(), postID, userID, emoji)
	if err != nil {
		return nil, err
	}

	rows, err := p.Db.Query(`
	SELECT id, user_id, emoji, reacted_at
	FROM post_reactions WHERE post_id = $1 ORDER BY reacted_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Reaction
	for rows.Next() {
		var re types.Reaction
		if err := rows.Scan(&re.ID, &re.UserID, &re.Emoji, &re.ReactedAt); err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

func (p *Postgres) DeletePost(postID, requesterID string) error {
	post, err := p.GetPost(postID)
	if err != nil {
		return err
	}
	if post.AuthorID != requesterID {
		return storage.ErrForbidden
	}

	_, err = p.Db.Exec(`UPDATE posts SET deleted_at = CURRENT_TIMESTAMP WHERE id = $1`, postID)
	return err
}

func (p *Postgres) SoftDeleteExpired(now time.Time) ([]types.StatusPost, error) {
	rows, err := p.Db.Query(`
	UPDATE posts SET deleted_at = CURRENT_TIMESTAMP
	WHERE deleted_at IS NULL AND expires_at <= $1
	RETURNING id, author_id, media_kind, media_url, text_content, background,
	          latitude, longitude, duration_ms, caption, created_at, expires_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []types.StatusPost
	for rows.Next() {
		var post types.StatusPost
		if err := scanPost(rows, &post); err != nil {
			return nil, err
		}
		expired = append(expired, post)
	}
	return expired, rows.Err()
}
