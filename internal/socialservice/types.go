package socialservice

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/trace"
)

const MaxCommentLength = 1000

type SocialService struct {
	m      *SocialModel
	tracer trace.Tracer
}

type SocialModel struct {
	db *sqlx.DB
}

type Comment struct {
	ID             uuid.UUID `db:"id"`
	UserID         uuid.UUID `db:"user_id"`
	PostID         uuid.UUID `db:"post_id"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
	AuthorUsername *string   `db:"author_username"`
}

// PostRef names the post a like or comment belongs to, for cache invalidation.
type PostRef struct {
	Slug    string    `db:"slug"`
	OwnerID uuid.UUID `db:"user_id"`
}

// LikeState is the result of a like toggle, and the like summary of a post for a viewer.
type LikeState struct {
	Post  PostRef `json:"-"`
	Liked bool    `json:"liked"`
	Count int     `json:"count"`
}

type FollowState struct {
	Following     bool `json:"following"`
	FollowerCount int  `json:"follower_count"`
}

type DashboardPost struct {
	ID           uuid.UUID `db:"id"`
	Title        string    `db:"title"`
	Slug         string    `db:"slug"`
	IsPublished  bool      `db:"is_published"`
	CreatedAt    time.Time `db:"created_at"`
	LikeCount    int       `db:"like_count"`
	CommentCount int       `db:"comment_count"`
}

// Connection is one side of a follow edge.
type Connection struct {
	ID        uuid.UUID `db:"id"`
	Username  *string   `db:"username"`
	AvatarURL *string   `db:"avatar_url"`
	Since     time.Time `db:"created_at"`
}

type DashboardStats struct {
	Posts          []DashboardPost
	TotalPosts     int
	TotalLikes     int
	TotalComments  int
	Followers      []Connection
	Following      []Connection
	FollowerCount  int
	FollowingCount int
}
