package socialservice

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Dashboard aggregates the owner's posts with their counts and both sides of the follow graph.
// It is recomputed on every call.
func (s *SocialService) Dashboard(ctx context.Context, ownerID uuid.UUID) (*DashboardStats, error) {
	ctx, span := s.tracer.Start(ctx, "socialservice.Dashboard")
	defer span.End()

	span.SetAttributes(attribute.String("user.id", ownerID.String()))

	var stats DashboardStats

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ctx, span := s.tracer.Start(gctx, "socialservice.Dashboard.posts")
		defer span.End()

		posts, err := s.m.postsWithCounts(ctx, ownerID)
		stats.Posts = posts
		return err
	})

	g.Go(func() error {
		ctx, span := s.tracer.Start(gctx, "socialservice.Dashboard.followers")
		defer span.End()

		followers, err := s.m.followers(ctx, ownerID)
		stats.Followers = followers
		return err
	})

	g.Go(func() error {
		ctx, span := s.tracer.Start(gctx, "socialservice.Dashboard.following")
		defer span.End()

		following, err := s.m.following(ctx, ownerID)
		stats.Following = following
		return err
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	stats.TotalPosts = len(stats.Posts)
	for _, p := range stats.Posts {
		stats.TotalLikes += p.LikeCount
		stats.TotalComments += p.CommentCount
	}
	stats.FollowerCount = len(stats.Followers)
	stats.FollowingCount = len(stats.Following)

	return &stats, nil
}
