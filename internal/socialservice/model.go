package socialservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sushihentaime/writtenwork/internal/common"
)

func newSocialModel(db *sqlx.DB) *SocialModel {
	return &SocialModel{db: db}
}

// visiblePost returns the slug and owner of a post the caller may see.
func (m *SocialModel) visiblePost(ctx context.Context, q sqlx.QueryerContext, callerID, postID uuid.UUID) (PostRef, error) {
	query := `
		SELECT p.slug, p.user_id
		FROM posts p
		WHERE p.id = $1 AND ` + common.PublishedOrOwnerOrAdmin("p", 2)

	var ref PostRef

	err := q.QueryRowxContext(ctx, query, postID, callerID).Scan(&ref.Slug, &ref.OwnerID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return PostRef{}, common.ErrRecordNotFound
		default:
			return PostRef{}, err
		}
	}

	return ref, nil
}

// toggleLike removes the caller's like if present, otherwise adds it. The unique
// (user_id, post_id) constraint keeps concurrent toggles from double counting.
func (m *SocialModel) toggleLike(ctx context.Context, callerID, postID uuid.UUID) (*LikeState, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ref, err := m.visiblePost(ctx, tx, callerID, postID)
	if err != nil {
		return nil, err
	}

	state := LikeState{Post: ref}

	res, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE user_id = $1 AND post_id = $2`, callerID, postID)
	if err != nil {
		return nil, err
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if deleted == 0 {
		query := `
			INSERT INTO likes (user_id, post_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, post_id) DO NOTHING`

		_, err = tx.ExecContext(ctx, query, callerID, postID)
		if err != nil {
			if common.IsForeignKeyViolation(err) {
				return nil, common.ErrRecordNotFound
			}
			return nil, err
		}
		state.Liked = true
	}

	err = tx.GetContext(ctx, &state.Count, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &state, nil
}

func (m *SocialModel) likeState(ctx context.Context, viewer uuid.NullUUID, postID uuid.UUID) (*LikeState, error) {
	query := `
		SELECT COUNT(*) AS count, COALESCE(bool_or(user_id = $2), false) AS liked
		FROM likes
		WHERE post_id = $1`

	var state LikeState

	err := m.db.QueryRowxContext(ctx, query, postID, viewer).Scan(&state.Count, &state.Liked)
	if err != nil {
		return nil, err
	}

	return &state, nil
}

// insertComment adds a comment to a post the caller may see.
func (m *SocialModel) insertComment(ctx context.Context, callerID, postID uuid.UUID, content string) (*Comment, PostRef, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, PostRef{}, err
	}
	defer tx.Rollback()

	ref, err := m.visiblePost(ctx, tx, callerID, postID)
	if err != nil {
		return nil, PostRef{}, err
	}

	query := `
		INSERT INTO comments (user_id, post_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	c := Comment{UserID: callerID, PostID: postID, Content: content}

	err = tx.QueryRowxContext(ctx, query, callerID, postID, content).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		switch {
		case common.IsForeignKeyViolation(err):
			return nil, PostRef{}, common.ErrRecordNotFound
		default:
			return nil, PostRef{}, err
		}
	}

	err = tx.QueryRowxContext(ctx, `SELECT username FROM profiles WHERE id = $1`, callerID).Scan(&c.AuthorUsername)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, PostRef{}, err
	}

	if err := tx.Commit(); err != nil {
		return nil, PostRef{}, err
	}

	return &c, ref, nil
}

// deleteComment removes a comment when the caller wrote it or is an admin and returns its post.
func (m *SocialModel) deleteComment(ctx context.Context, callerID, commentID uuid.UUID) (PostRef, error) {
	query := `
		DELETE FROM comments c
		USING posts p
		WHERE c.id = $1 AND p.id = c.post_id AND ` + common.OwnerOrAdmin("c.user_id", 2) + `
		RETURNING p.slug, p.user_id`

	var ref PostRef

	err := m.db.QueryRowxContext(ctx, query, commentID, callerID).Scan(&ref.Slug, &ref.OwnerID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return PostRef{}, common.ErrRecordNotFound
		default:
			return PostRef{}, err
		}
	}

	return ref, nil
}

func (m *SocialModel) getComments(ctx context.Context, postID uuid.UUID) ([]Comment, error) {
	query := `
		SELECT c.id, c.user_id, c.post_id, c.content, c.created_at, pr.username AS author_username
		FROM comments c
		LEFT JOIN profiles pr ON pr.id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC, c.id`

	comments := []Comment{}
	if err := m.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, err
	}

	return comments, nil
}

func (m *SocialModel) follow(ctx context.Context, followerID, followingID uuid.UUID) error {
	query := `
		INSERT INTO follows (follower_id, following_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, following_id) DO NOTHING`

	_, err := m.db.ExecContext(ctx, query, followerID, followingID)
	if err != nil {
		switch {
		case common.IsForeignKeyViolation(err):
			return common.ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *SocialModel) unfollow(ctx context.Context, followerID, followingID uuid.UUID) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`, followerID, followingID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		var exists bool
		if err := m.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, followingID); err != nil {
			return err
		}
		if !exists {
			return common.ErrRecordNotFound
		}
	}

	return nil
}

func (m *SocialModel) followState(ctx context.Context, viewer uuid.NullUUID, userID uuid.UUID) (*FollowState, error) {
	query := `
		SELECT COUNT(*), COALESCE(bool_or(follower_id = $2), false)
		FROM follows
		WHERE following_id = $1`

	var state FollowState

	err := m.db.QueryRowxContext(ctx, query, userID, viewer).Scan(&state.FollowerCount, &state.Following)
	if err != nil {
		return nil, err
	}

	return &state, nil
}

func (m *SocialModel) postsWithCounts(ctx context.Context, ownerID uuid.UUID) ([]DashboardPost, error) {
	query := `
		SELECT p.id, p.title, p.slug, p.is_published, p.created_at,
			(SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS like_count,
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
		FROM posts p
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC`

	posts := []DashboardPost{}
	if err := m.db.SelectContext(ctx, &posts, query, ownerID); err != nil {
		return nil, err
	}

	return posts, nil
}

func (m *SocialModel) followers(ctx context.Context, userID uuid.UUID) ([]Connection, error) {
	query := `
		SELECT pr.id, pr.username, pr.avatar_url, f.created_at
		FROM follows f
		INNER JOIN profiles pr ON pr.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC`

	conns := []Connection{}
	if err := m.db.SelectContext(ctx, &conns, query, userID); err != nil {
		return nil, err
	}

	return conns, nil
}

func (m *SocialModel) following(ctx context.Context, userID uuid.UUID) ([]Connection, error) {
	query := `
		SELECT pr.id, pr.username, pr.avatar_url, f.created_at
		FROM follows f
		INNER JOIN profiles pr ON pr.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC`

	conns := []Connection{}
	if err := m.db.SelectContext(ctx, &conns, query, userID); err != nil {
		return nil, err
	}

	return conns, nil
}
