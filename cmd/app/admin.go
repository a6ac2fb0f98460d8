package main

import (
	"net/http"

	"github.com/sushihentaime/writtenwork/internal/blogservice"
	"github.com/sushihentaime/writtenwork/internal/storageservice"
)

func readPostInput(r *http.Request) blogservice.PostInput {
	published := r.PostForm.Get("is_published")

	return blogservice.PostInput{
		Title:         r.PostForm.Get("title"),
		Slug:          r.PostForm.Get("slug"),
		Excerpt:       r.PostForm.Get("excerpt"),
		Content:       r.PostForm.Get("content"),
		CoverImageURL: r.PostForm.Get("cover_image_url"),
		IsPublished:   published == "true" || published == "on",
	}
}

func (app *application) createPostHandler(w http.ResponseWriter, r *http.Request) {
	err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input := readPostInput(r)
	user := app.getUserContext(r)

	post, err := app.blogService.CreatePost(r.Context(), user.ID, input)
	app.metrics.recordMutation(r.Context(), "create_post", err)
	if err != nil {
		app.actionErrorFor(w, r, "/admin/create", err)
		return
	}

	app.invalidate(r, "/", "/blog", "/blog/"+post.Slug, "/user/"+user.ID.String())

	app.actionSuccess(w, r, withQuery("/admin", "message", "Post saved successfully!"), envelope{"id": post.ID, "slug": post.Slug})
}

func (app *application) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input := readPostInput(r)
	user := app.getUserContext(r)

	post, previousSlug, err := app.blogService.UpdatePost(r.Context(), user.ID, id, input)
	app.metrics.recordMutation(r.Context(), "update_post", err)
	if err != nil {
		app.actionErrorFor(w, r, "/admin/edit/"+id.String(), err)
		return
	}

	app.invalidate(r, "/", "/blog", "/blog/"+previousSlug, "/blog/"+post.Slug, "/user/"+post.UserID.String())

	app.actionSuccess(w, r, withQuery("/admin", "message", "Post saved successfully!"), envelope{"id": post.ID, "slug": post.Slug})
}

// uploadCoverHandler stores a cover image for the post form and returns its url.
func (app *application) uploadCoverHandler(w http.ResponseWriter, r *http.Request) {
	back := backPath(r, "/admin/create")

	up, closeFn, err := app.readUpload(w, r, "file", storageservice.MaxCoverSizeBytes)
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}
	defer closeFn()

	coverURL, err := app.storageService.UploadCover(r.Context(), up)
	app.metrics.recordMutation(r.Context(), "upload_cover", err)
	if err != nil {
		app.actionErrorFor(w, r, back, err)
		return
	}

	app.actionSuccess(w, r, withQuery(back, "message", "Image uploaded successfully!"), envelope{"url": coverURL})
}
