package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sushihentaime/writtenwork/internal/common"
)

var (
	ErrDuplicateSlug = errors.New("slug already taken")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var postColumns = []string{
	"p.id", "p.title", "p.slug", "p.excerpt", "p.content", "p.cover_image_url", "p.is_published",
	"p.user_id", "p.created_at", "p.updated_at",
	"pr.username AS author_username",
	"(SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS like_count",
	"(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count",
}

var postSelect = `SELECT ` + strings.Join(postColumns, ", ") + `
		FROM posts p
		LEFT JOIN profiles pr ON pr.id = p.user_id`

func newPostModel(db *sqlx.DB) *PostModel {
	return &PostModel{db: db}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (m *PostModel) selectPosts() sq.SelectBuilder {
	return psql.Select(postColumns...).
		From("posts p").
		LeftJoin("profiles pr ON pr.id = p.user_id")
}

func (m *PostModel) list(ctx context.Context, b sq.SelectBuilder) ([]Post, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	posts := []Post{}
	if err := m.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, err
	}

	return posts, nil
}

func (m *PostModel) get(ctx context.Context, query string, args ...any) (*Post, error) {
	var p Post

	err := m.db.GetContext(ctx, &p, query, args...)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &p, nil
}

// insert only succeeds when the caller is an admin.
func (m *PostModel) insert(ctx context.Context, callerID uuid.UUID, in *PostInput) (*Post, error) {
	query := `
		INSERT INTO posts (title, slug, excerpt, content, cover_image_url, is_published, user_id)
		SELECT $1::text, $2::text, $3::text, $4::text, $5::text, $6::boolean, $7::uuid
		WHERE ` + common.AdminCheck(7) + `
		RETURNING id, created_at, updated_at`

	p := Post{
		Title:       in.Title,
		Slug:        in.Slug,
		Excerpt:     in.Excerpt,
		Content:     in.Content,
		IsPublished: in.IsPublished,
		UserID:      callerID,
	}
	if in.CoverImageURL != "" {
		p.CoverImageURL = &in.CoverImageURL
	}

	args := []any{in.Title, in.Slug, in.Excerpt, in.Content, nullable(in.CoverImageURL), in.IsPublished, callerID}

	err := m.db.QueryRowxContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrPermissionDenied
		case common.IsUniqueViolation(err, "posts_slug_key"):
			return nil, ErrDuplicateSlug
		default:
			return nil, err
		}
	}

	return &p, nil
}

// update applies in to the post when the caller owns it or is an admin. It returns the
// updated post and the slug the post had before.
func (m *PostModel) update(ctx context.Context, callerID, id uuid.UUID, in *PostInput) (*Post, string, error) {
	query := `
		UPDATE posts p
		SET title = $1, slug = $2, excerpt = $3, content = $4, cover_image_url = $5, is_published = $6, updated_at = NOW()
		FROM posts old
		WHERE p.id = $7 AND old.id = p.id AND ` + common.OwnerOrAdmin("p.user_id", 8) + `
		RETURNING p.user_id, p.created_at, p.updated_at, old.slug`

	p := Post{
		ID:          id,
		Title:       in.Title,
		Slug:        in.Slug,
		Excerpt:     in.Excerpt,
		Content:     in.Content,
		IsPublished: in.IsPublished,
	}
	if in.CoverImageURL != "" {
		p.CoverImageURL = &in.CoverImageURL
	}

	args := []any{in.Title, in.Slug, in.Excerpt, in.Content, nullable(in.CoverImageURL), in.IsPublished, id, callerID}

	var previousSlug string

	err := m.db.QueryRowxContext(ctx, query, args...).Scan(&p.UserID, &p.CreatedAt, &p.UpdatedAt, &previousSlug)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, "", common.ErrRecordNotFound
		case common.IsUniqueViolation(err, "posts_slug_key"):
			return nil, "", ErrDuplicateSlug
		default:
			return nil, "", err
		}
	}

	return &p, previousSlug, nil
}

// delete removes the post when the caller owns it or is an admin and returns its slug.
func (m *PostModel) delete(ctx context.Context, callerID, id uuid.UUID) (string, error) {
	query := `
		DELETE FROM posts
		WHERE id = $1 AND ` + common.OwnerOrAdmin("user_id", 2) + `
		RETURNING slug`

	var slug string

	err := m.db.QueryRowxContext(ctx, query, id, callerID).Scan(&slug)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return "", common.ErrRecordNotFound
		default:
			return "", err
		}
	}

	return slug, nil
}

func (m *PostModel) getBySlug(ctx context.Context, viewer uuid.NullUUID, slug string) (*Post, error) {
	query := postSelect + `
		WHERE p.slug = $1 AND ` + common.PublishedOrOwnerOrAdmin("p", 2)

	return m.get(ctx, query, slug, viewer)
}

func (m *PostModel) getByID(ctx context.Context, viewer uuid.NullUUID, id uuid.UUID) (*Post, error) {
	query := postSelect + `
		WHERE p.id = $1 AND ` + common.PublishedOrOwnerOrAdmin("p", 2)

	return m.get(ctx, query, id, viewer)
}

// listVisible returns every post the viewer may see, drafts included, newest first.
func (m *PostModel) listVisible(ctx context.Context, viewer uuid.UUID) ([]Post, error) {
	query := postSelect + `
		WHERE ` + common.PublishedOrOwnerOrAdmin("p", 1) + `
		ORDER BY p.created_at DESC`

	posts := []Post{}
	if err := m.db.SelectContext(ctx, &posts, query, viewer); err != nil {
		return nil, err
	}

	return posts, nil
}

func (m *PostModel) listPublished(ctx context.Context, limit, offset int) ([]Post, error) {
	b := m.selectPosts().
		Where(sq.Eq{"p.is_published": true}).
		OrderBy("p.created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	return m.list(ctx, b)
}

func (m *PostModel) listPublishedByAuthor(ctx context.Context, authorID uuid.UUID) ([]Post, error) {
	b := m.selectPosts().
		Where(sq.Eq{"p.is_published": true, "p.user_id": authorID}).
		OrderBy("p.created_at DESC")

	return m.list(ctx, b)
}
