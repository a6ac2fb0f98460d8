package socialservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sushihentaime/writtenwork/internal/common"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sushihentaime/writtenwork/internal/socialservice"

func NewSocialService(db *sqlx.DB, tp trace.TracerProvider) *SocialService {
	return &SocialService{
		m:      newSocialModel(db),
		tracer: tp.Tracer(tracerName),
	}
}

// ToggleLike flips the caller's like on a post and returns the new state.
func (s *SocialService) ToggleLike(ctx context.Context, callerID, postID uuid.UUID) (*LikeState, error) {
	return s.m.toggleLike(ctx, callerID, postID)
}

// GetLikeState returns the like count of a post and whether the viewer liked it.
func (s *SocialService) GetLikeState(ctx context.Context, viewer uuid.NullUUID, postID uuid.UUID) (*LikeState, error) {
	return s.m.likeState(ctx, viewer, postID)
}

// AddComment adds a comment by the caller and returns it with the post it belongs to.
func (s *SocialService) AddComment(ctx context.Context, callerID, postID uuid.UUID, content string) (*Comment, PostRef, error) {
	v := common.NewValidator()
	validateComment(v, content)
	if !v.Valid() {
		return nil, PostRef{}, v.ValidationError()
	}

	return s.m.insertComment(ctx, callerID, postID, content)
}

// DeleteComment deletes a comment written by the caller, or any comment for an admin.
func (s *SocialService) DeleteComment(ctx context.Context, callerID, commentID uuid.UUID) (PostRef, error) {
	return s.m.deleteComment(ctx, callerID, commentID)
}

func (s *SocialService) GetComments(ctx context.Context, postID uuid.UUID) ([]Comment, error) {
	return s.m.getComments(ctx, postID)
}

// Follow is idempotent. Following yourself is allowed here; pages hide the button.
func (s *SocialService) Follow(ctx context.Context, callerID, targetID uuid.UUID) (*FollowState, error) {
	if err := s.m.follow(ctx, callerID, targetID); err != nil {
		return nil, err
	}

	return s.m.followState(ctx, uuid.NullUUID{UUID: callerID, Valid: true}, targetID)
}

// Unfollow is idempotent.
func (s *SocialService) Unfollow(ctx context.Context, callerID, targetID uuid.UUID) (*FollowState, error) {
	if err := s.m.unfollow(ctx, callerID, targetID); err != nil {
		return nil, err
	}

	return s.m.followState(ctx, uuid.NullUUID{UUID: callerID, Valid: true}, targetID)
}

func (s *SocialService) GetFollowState(ctx context.Context, viewer uuid.NullUUID, userID uuid.UUID) (*FollowState, error) {
	return s.m.followState(ctx, viewer, userID)
}
