package blogservice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/sushihentaime/writtenwork/internal/common"
)

type testUsers struct {
	admin  uuid.UUID
	author uuid.UUID
	reader uuid.UUID
}

// setupTestUser inserts a user and its profile with the given role.
func setupTestUser(db *sqlx.DB, email string, role common.Role) (uuid.UUID, error) {
	var id uuid.UUID

	err := db.QueryRow(`INSERT INTO users (email) VALUES ($1) RETURNING id`, email).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}

	_, err = db.Exec(`INSERT INTO profiles (id, username, role) VALUES ($1, $2, $3)`, id, "user_"+id.String()[:8], string(role))
	return id, err
}

func setupTestEnvironment(t *testing.T) (*BlogService, *sqlx.DB, testUsers, func() error) {
	t.Helper()

	db := common.TestDB("file://../../migrations", t)

	var (
		users testUsers
		err   error
	)

	users.admin, err = setupTestUser(db, "admin@example.com", common.RoleAdmin)
	if err != nil {
		t.Fatalf("could not create admin: %v", err)
	}
	users.author, err = setupTestUser(db, "author@example.com", common.RoleUser)
	if err != nil {
		t.Fatalf("could not create author: %v", err)
	}
	users.reader, err = setupTestUser(db, "reader@example.com", common.RoleUser)
	if err != nil {
		t.Fatalf("could not create reader: %v", err)
	}

	cleanup := func() error {
		_, err := db.Exec("DELETE FROM posts")
		return err
	}

	return NewBlogService(db), db, users, cleanup
}

// createTestPost writes a post directly, bypassing the admin-only create path.
func createTestPost(t *testing.T, db *sqlx.DB, userID uuid.UUID, title, slug string, published bool, createdAt time.Time) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := db.QueryRow(`
		INSERT INTO posts (title, slug, content, is_published, user_id, created_at)
		VALUES ($1, $2, 'body', $3, $4, $5)
		RETURNING id`, title, slug, published, userID, createdAt).Scan(&id)
	if err != nil {
		t.Fatalf("could not create post: %v", err)
	}

	return id
}

func testInput() PostInput {
	return PostInput{
		Title:       "Hello World",
		Slug:        "hello-world",
		Excerpt:     "A first post",
		Content:     "# Hello\n\nWorld",
		IsPublished: true,
	}
}

func viewer(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: true}
}

func TestCreatePost(t *testing.T) {
	s, db, users, cleanup := setupTestEnvironment(t)

	testCases := []struct {
		name        string
		caller      uuid.UUID
		input       func() PostInput
		existing    bool
		expectedErr error
		validation  bool
	}{
		{
			name:   "admin creates post",
			caller: users.admin,
			input:  testInput,
		},
		{
			name:        "non admin is denied",
			caller:      users.author,
			input:       testInput,
			expectedErr: common.ErrPermissionDenied,
		},
		{
			name:        "duplicate slug",
			caller:      users.admin,
			input:       testInput,
			existing:    true,
			expectedErr: ErrDuplicateSlug,
		},
		{
			name:   "slug derived from title",
			caller: users.admin,
			input: func() PostInput {
				in := testInput()
				in.Slug = ""
				in.Title = "Derived Slug, Please"
				return in
			},
		},
		{
			name:   "invalid slug",
			caller: users.admin,
			input: func() PostInput {
				in := testInput()
				in.Slug = "Not A Slug"
				return in
			},
			validation: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if tc.existing {
				_, err := s.CreatePost(ctx, users.admin, testInput())
				assert.NoError(t, err)
			}

			post, err := s.CreatePost(ctx, tc.caller, tc.input())

			var count int
			assert.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM posts"))

			switch {
			case tc.validation:
				assert.ErrorAs(t, err, &common.ValidationError{})
				assert.Equal(t, 0, count)
			case tc.expectedErr != nil:
				assert.ErrorIs(t, err, tc.expectedErr)
				if tc.existing {
					assert.Equal(t, 1, count)
				} else {
					assert.Equal(t, 0, count)
				}
			default:
				assert.NoError(t, err)
				assert.Equal(t, 1, count)
				assert.Equal(t, tc.caller, post.UserID)
				assert.NotEqual(t, uuid.Nil, post.ID)
			}

			t.Cleanup(func() {
				assert.NoError(t, cleanup())
			})
		})
	}
}

func TestCreateThenRead(t *testing.T) {
	s, _, users, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() { cleanup() })

	ctx := context.Background()

	in := testInput()
	in.CoverImageURL = "http://localhost:9000/blog-images/cover.png"

	created, err := s.CreatePost(ctx, users.admin, in)
	assert.NoError(t, err)

	got, err := s.GetPostBySlug(ctx, uuid.NullUUID{}, in.Slug)
	assert.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Excerpt, got.Excerpt)
	assert.Equal(t, in.Content, got.Content)
	assert.Equal(t, in.CoverImageURL, *got.CoverImageURL)
	assert.True(t, got.IsPublished)
	assert.NotNil(t, got.AuthorName)
	assert.Equal(t, 0, got.LikeCount)
}

func TestUpdatePost(t *testing.T) {
	s, _, users, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() { cleanup() })

	ctx := context.Background()
	id := createTestPost(t, s.m.db, users.author, "Original", "original", true, time.Now())

	testCases := []struct {
		name        string
		caller      uuid.UUID
		title       string
		expectedErr error
	}{
		{name: "stranger cannot update", caller: users.reader, title: "Hijacked", expectedErr: common.ErrRecordNotFound},
		{name: "owner updates title", caller: users.author, title: "Owner Edit"},
		{name: "admin updates title", caller: users.admin, title: "Admin Edit"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before, err := s.GetPostByID(ctx, viewer(users.author), id)
			assert.NoError(t, err)

			in := PostInput{
				Title:       tc.title,
				Slug:        before.Slug,
				Excerpt:     before.Excerpt,
				Content:     before.Content,
				IsPublished: before.IsPublished,
			}

			_, previousSlug, err := s.UpdatePost(ctx, tc.caller, id, in)

			after, getErr := s.GetPostByID(ctx, viewer(users.author), id)
			assert.NoError(t, getErr)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Equal(t, before.Title, after.Title)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, before.Slug, previousSlug)
			assert.Equal(t, tc.title, after.Title)
			assert.Equal(t, before.Slug, after.Slug)
			assert.Equal(t, before.Content, after.Content)
			assert.Equal(t, before.IsPublished, after.IsPublished)
			assert.Equal(t, before.UserID, after.UserID)
		})
	}
}

func TestUpdatePostSlugChange(t *testing.T) {
	s, _, users, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() { cleanup() })

	ctx := context.Background()
	id := createTestPost(t, s.m.db, users.author, "Original", "original", true, time.Now())
	createTestPost(t, s.m.db, users.author, "Other", "taken", true, time.Now())

	in := PostInput{Title: "Original", Slug: "taken", Content: "body", IsPublished: true}
	_, _, err := s.UpdatePost(ctx, users.author, id, in)
	assert.ErrorIs(t, err, ErrDuplicateSlug)

	in.Slug = "renamed"
	post, previousSlug, err := s.UpdatePost(ctx, users.author, id, in)
	assert.NoError(t, err)
	assert.Equal(t, "original", previousSlug)
	assert.Equal(t, "renamed", post.Slug)
}

func TestDeletePost(t *testing.T) {
	s, _, users, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() { cleanup() })

	ctx := context.Background()

	testCases := []struct {
		name        string
		caller      uuid.UUID
		expectedErr error
	}{
		{name: "stranger cannot delete", caller: users.reader, expectedErr: common.ErrRecordNotFound},
		{name: "owner deletes", caller: users.author},
		{name: "admin deletes", caller: users.admin},
	}

	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			slug := fmt.Sprintf("post-%d", i)
			id := createTestPost(t, s.m.db, users.author, "Post", slug, true, time.Now())

			deleted, err := s.DeletePost(ctx, tc.caller, id)

			_, getErr := s.GetPostByID(ctx, uuid.NullUUID{}, id)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.NoError(t, getErr)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, slug, deleted)
			assert.ErrorIs(t, getErr, common.ErrRecordNotFound)
		})
	}
}

func TestDraftVisibility(t *testing.T) {
	s, _, users, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() { cleanup() })

	ctx := context.Background()
	createTestPost(t, s.m.db, users.author, "Draft", "draft", false, time.Now())

	testCases := []struct {
		name    string
		viewer  uuid.NullUUID
		visible bool
	}{
		{name: "anonymous", viewer: uuid.NullUUID{}, visible: false},
		{name: "other reader", viewer: viewer(users.reader), visible: false},
		{name: "owner", viewer: viewer(users.author), visible: true},
		{name: "admin", viewer: viewer(users.admin), visible: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.GetPostBySlug(ctx, tc.viewer, "draft")
			if tc.visible {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, common.ErrRecordNotFound)
			}
		})
	}

	posts, err := s.GetPosts(ctx, 0, 0)
	assert.NoError(t, err)
	assert.Len(t, posts, 0)

	all, err := s.GetVisiblePosts(ctx, users.admin)
	assert.NoError(t, err)
	assert.Len(t, all, 1)

	mine, err := s.GetVisiblePosts(ctx, users.reader)
	assert.NoError(t, err)
	assert.Len(t, mine, 0)
}

func TestSearch(t *testing.T) {
	s, _, users, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() { cleanup() })

	ctx := context.Background()
	now := time.Now()

	older := createTestPost(t, s.m.db, users.author, "Learning Go", "learning-go", true, now.Add(-time.Hour))
	newer := createTestPost(t, s.m.db, users.author, "More GO patterns", "more-go", true, now)
	draft := createTestPost(t, s.m.db, users.author, "Go draft", "go-draft", false, now)
	createTestPost(t, s.m.db, users.author, "100% coverage", "coverage", true, now)
	createTestPost(t, s.m.db, users.author, "snake_case names", "snake-case", true, now)

	testCases := []struct {
		name     string
		query    string
		expected []uuid.UUID
		count    int
	}{
		{name: "empty query", query: "   ", count: 0},
		{name: "title match is case insensitive and newest first", query: "go", expected: []uuid.UUID{newer, older}, count: 2},
		{name: "published id", query: older.String(), expected: []uuid.UUID{older}, count: 1},
		{name: "uppercase id", query: fmt.Sprintf("%X", older[:4]) + older.String()[8:], expected: []uuid.UUID{older}, count: 1},
		{name: "unpublished id", query: draft.String(), count: 0},
		{name: "unknown id", query: uuid.NewString(), count: 0},
		{name: "percent is literal", query: "%", count: 1},
		{name: "underscore is literal", query: "_", count: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			posts, err := s.Search(ctx, tc.query)
			assert.NoError(t, err)
			assert.Len(t, posts, tc.count)

			for i, id := range tc.expected {
				assert.Equal(t, id, posts[i].ID)
			}
		})
	}
}
