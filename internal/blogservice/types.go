package blogservice

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Post struct {
	ID    uuid.UUID `db:"id"`
	Title string    `db:"title"`
	Slug  string    `db:"slug"`
	// Content is stored in Markdown format.
	Content       string    `db:"content"`
	Excerpt       string    `db:"excerpt"`
	CoverImageURL *string   `db:"cover_image_url"`
	IsPublished   bool      `db:"is_published"`
	UserID        uuid.UUID `db:"user_id"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`

	AuthorName   *string `db:"author_username"`
	LikeCount    int     `db:"like_count"`
	CommentCount int     `db:"comment_count"`
}

// PostInput carries the editable fields of a post.
type PostInput struct {
	Title         string
	Slug          string
	Excerpt       string
	Content       string
	CoverImageURL string
	IsPublished   bool
}

type PostModel struct {
	db *sqlx.DB
}

type BlogService struct {
	m *PostModel
}
