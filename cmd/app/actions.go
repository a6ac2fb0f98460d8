package main

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/writtenwork/internal/common"
	"github.com/sushihentaime/writtenwork/internal/storageservice"
)

// backPath is the page a form was posted from, used to report errors in place.
func backPath(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Host != r.Host {
		return fallback
	}

	ref.RawQuery = ""
	return sanitizeNext(ref.RequestURI(), fallback)
}

func (app *application) actionSuccess(w http.ResponseWriter, r *http.Request, to string, data envelope) {
	if wantsJSON(r) {
		if data == nil {
			data = envelope{}
		}
		data["success"] = true

		err := app.writeJSON(w, http.StatusOK, data, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.redirect(w, r, to)
}

// readIDField parses and validates a uuid form field.
func (app *application) readIDField(w http.ResponseWriter, r *http.Request, field string) (uuid.UUID, error) {
	err := app.parseForm(w, r)
	if err != nil {
		return uuid.Nil, err
	}

	v := common.NewValidator()
	id := v.CheckUUID(r.PostForm.Get(field), field)
	if !v.Valid() {
		return uuid.Nil, v.ValidationError()
	}

	return id, nil
}

func (app *application) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	back := backPath(r, "/admin")

	id, err := app.readIDField(w, r, "post_id")
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	user := app.getUserContext(r)
	if user.IsAnonymous() {
		app.unauthorizedAction(w, r)
		return
	}

	slug, err := app.blogService.DeletePost(r.Context(), user.ID, id)
	app.metrics.recordMutation(r.Context(), "delete_post", err)
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	app.invalidate(r, "/", "/blog", "/blog/"+slug)
	app.invalidatePrefix(r, "/user/")

	app.actionSuccess(w, r, withQuery("/admin", "message", "Post deleted"), nil)
}

func (app *application) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))

	user := app.getUserContext(r)
	if user.IsAnonymous() {
		app.unauthorizedAction(w, r)
		return
	}

	err = app.userService.UpdateUsername(r.Context(), user.ID, username)
	app.metrics.recordMutation(r.Context(), "update_profile", err)
	if err != nil {
		app.actionErrorFor(w, r, "/dashboard", err)
		return
	}

	// usernames appear on every post card and comment
	app.invalidate(r, "/", "/user/"+user.ID.String())
	app.invalidatePrefix(r, "/blog")

	app.actionSuccess(w, r, withQuery("/dashboard", "message", "Username updated"), envelope{"username": username})
}

func (app *application) uploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)
	if user.IsAnonymous() {
		app.unauthorizedAction(w, r)
		return
	}

	up, closeFn, err := app.readUpload(w, r, "avatar", storageservice.MaxAvatarSizeBytes)
	if err != nil {
		app.actionErrorFor(w, r, "/dashboard", err)
		return
	}
	defer closeFn()

	avatarURL, err := app.storageService.UploadAvatar(r.Context(), user.ID, up)
	if err == nil {
		err = app.userService.UpdateAvatarURL(r.Context(), user.ID, avatarURL)
	}
	app.metrics.recordMutation(r.Context(), "upload_avatar", err)
	if err != nil {
		app.actionErrorFor(w, r, "/dashboard", err)
		return
	}

	app.invalidate(r, "/user/"+user.ID.String())

	app.actionSuccess(w, r, withQuery("/dashboard", "message", "Avatar updated"), envelope{"avatar_url": avatarURL})
}

func (app *application) followHandler(w http.ResponseWriter, r *http.Request) {
	app.changeFollow(w, r, true)
}

func (app *application) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	app.changeFollow(w, r, false)
}

func (app *application) changeFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	back := backPath(r, "/")

	targetID, err := app.readIDField(w, r, "user_id")
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	user := app.getUserContext(r)
	if user.IsAnonymous() {
		app.unauthorizedAction(w, r)
		return
	}

	action := "follow"
	call := app.socialService.Follow
	if !follow {
		action = "unfollow"
		call = app.socialService.Unfollow
	}

	state, err := call(r.Context(), user.ID, targetID)
	app.metrics.recordMutation(r.Context(), action, err)
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	// both ends of the edge show a count
	profilePath := "/user/" + targetID.String()
	app.invalidate(r, profilePath, "/user/"+user.ID.String())

	app.actionSuccess(w, r, profilePath, envelope{
		"following":      state.Following,
		"follower_count": state.FollowerCount,
	})
}

func (app *application) toggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	back := backPath(r, "/")

	postID, err := app.readIDField(w, r, "post_id")
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	user := app.getUserContext(r)
	if user.IsAnonymous() {
		app.unauthorizedAction(w, r)
		return
	}

	state, err := app.socialService.ToggleLike(r.Context(), user.ID, postID)
	app.metrics.recordMutation(r.Context(), "toggle_like", err)
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	postPath := "/blog/" + state.Post.Slug
	app.invalidate(r, "/", "/blog", postPath, "/user/"+state.Post.OwnerID.String())

	app.actionSuccess(w, r, postPath, envelope{
		"liked": state.Liked,
		"count": state.Count,
	})
}

func (app *application) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	back := backPath(r, "/")

	postID, err := app.readIDField(w, r, "post_id")
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	content := strings.TrimSpace(r.PostForm.Get("content"))

	user := app.getUserContext(r)
	if user.IsAnonymous() {
		app.unauthorizedAction(w, r)
		return
	}

	comment, post, err := app.socialService.AddComment(r.Context(), user.ID, postID, content)
	app.metrics.recordMutation(r.Context(), "add_comment", err)
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	postPath := "/blog/" + post.Slug
	app.invalidate(r, "/", "/blog", postPath, "/user/"+post.OwnerID.String())

	app.actionSuccess(w, r, postPath, envelope{
		"comment": envelope{
			"id":         comment.ID,
			"content":    comment.Content,
			"author":     user.DisplayName(),
			"created_at": comment.CreatedAt.Format(time.RFC3339),
		},
	})
}

func (app *application) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	back := backPath(r, "/")

	commentID, err := app.readIDField(w, r, "comment_id")
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	user := app.getUserContext(r)
	if user.IsAnonymous() {
		app.unauthorizedAction(w, r)
		return
	}

	post, err := app.socialService.DeleteComment(r.Context(), user.ID, commentID)
	app.metrics.recordMutation(r.Context(), "delete_comment", err)
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	postPath := "/blog/" + post.Slug
	app.invalidate(r, "/", "/blog", postPath, "/user/"+post.OwnerID.String())

	app.actionSuccess(w, r, postPath, nil)
}

// readUpload reads one file of a multipart form. The caller must call the returned close func.
func (app *application) readUpload(w http.ResponseWriter, r *http.Request, field string, maxSize int64) (storageservice.Upload, func(), error) {
	// leave room for the multipart framing so an oversized file reports as too large
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+maxFormBytes)

	err := r.ParseMultipartForm(maxSize)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return storageservice.Upload{}, nil, storageservice.ErrFileTooLarge
		}
		return storageservice.Upload{}, nil, storageservice.ErrEmptyUpload
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return storageservice.Upload{}, nil, storageservice.ErrEmptyUpload
	}

	return storageservice.Upload{Body: file, Size: header.Size}, func() { file.Close() }, nil
}
