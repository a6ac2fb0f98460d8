package blogservice

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sushihentaime/writtenwork/internal/common"
)

func NewBlogService(db *sqlx.DB) *BlogService {
	return &BlogService{m: newPostModel(db)}
}

func normalizeInput(in *PostInput) {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.CoverImageURL = strings.TrimSpace(in.CoverImageURL)
	if in.Slug == "" {
		in.Slug = Slugify(in.Title)
	}
}

// CreatePost creates a post authored by the caller. Only admins may create posts.
func (s *BlogService) CreatePost(ctx context.Context, callerID uuid.UUID, in PostInput) (*Post, error) {
	normalizeInput(&in)

	v := common.NewValidator()
	validatePostInput(v, &in)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	return s.m.insert(ctx, callerID, &in)
}

// UpdatePost replaces the editable fields of a post owned by the caller, or of any post for an admin.
// The returned string is the slug before the update.
func (s *BlogService) UpdatePost(ctx context.Context, callerID, id uuid.UUID, in PostInput) (*Post, string, error) {
	normalizeInput(&in)

	v := common.NewValidator()
	validatePostInput(v, &in)
	if !v.Valid() {
		return nil, "", v.ValidationError()
	}

	return s.m.update(ctx, callerID, id, &in)
}

// DeletePost deletes a post owned by the caller, or any post for an admin, and returns its slug.
func (s *BlogService) DeletePost(ctx context.Context, callerID, id uuid.UUID) (string, error) {
	return s.m.delete(ctx, callerID, id)
}

// GetPostBySlug returns a post if it is published or the viewer may see the draft.
func (s *BlogService) GetPostBySlug(ctx context.Context, viewer uuid.NullUUID, slug string) (*Post, error) {
	v := common.NewValidator()
	validateSlug(v, slug)
	if !v.Valid() {
		return nil, common.ErrRecordNotFound
	}

	return s.m.getBySlug(ctx, viewer, slug)
}

func (s *BlogService) GetPostByID(ctx context.Context, viewer uuid.NullUUID, id uuid.UUID) (*Post, error) {
	return s.m.getByID(ctx, viewer, id)
}

// GetPosts returns published posts newest first. Default limit is 20.
func (s *BlogService) GetPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	if limit < 1 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return s.m.listPublished(ctx, limit, offset)
}

// GetPostsByAuthor returns the published posts of one author.
func (s *BlogService) GetPostsByAuthor(ctx context.Context, authorID uuid.UUID) ([]Post, error) {
	return s.m.listPublishedByAuthor(ctx, authorID)
}

// GetVisiblePosts is the admin listing: every post for an admin, otherwise published ones plus the caller's drafts.
func (s *BlogService) GetVisiblePosts(ctx context.Context, callerID uuid.UUID) ([]Post, error) {
	return s.m.listVisible(ctx, callerID)
}
