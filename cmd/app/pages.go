package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/sushihentaime/writtenwork/internal/blogservice"
	"github.com/sushihentaime/writtenwork/internal/common"
)

func (app *application) blogListHandler(w http.ResponseWriter, r *http.Request) {
	page := app.readPageParam(r)

	// one extra row tells us whether an older page exists
	posts, err := app.blogService.GetPosts(r.Context(), blogservice.DefaultPageSize+1, (page-1)*blogservice.DefaultPageSize)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Page = page
	if page > 1 {
		data.PrevPage = page - 1
	}
	if len(posts) > blogservice.DefaultPageSize {
		posts = posts[:blogservice.DefaultPageSize]
		data.NextPage = page + 1
	}
	data.Posts = posts

	app.render(w, r, http.StatusOK, "home.tmpl", data)
}

func (app *application) postHandler(w http.ResponseWriter, r *http.Request) {
	slug := httprouter.ParamsFromContext(r.Context()).ByName("slug")
	user := app.getUserContext(r)

	post, err := app.blogService.GetPostBySlug(r.Context(), viewerID(user), slug)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	likes, err := app.socialService.GetLikeState(r.Context(), viewerID(user), post.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	comments, err := app.socialService.GetComments(r.Context(), post.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Post = post
	data.Likes = likes
	data.Comments = comments

	app.render(w, r, http.StatusOK, "post.tmpl", data)
}

func (app *application) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	posts, err := app.blogService.Search(r.Context(), q)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Query = q
	data.Posts = posts

	app.render(w, r, http.StatusOK, "search.tmpl", data)
}

func (app *application) profileHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	profile, err := app.userService.GetProfile(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	follow, err := app.socialService.GetFollowState(r.Context(), viewerID(app.getUserContext(r)), id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	posts, err := app.blogService.GetPostsByAuthor(r.Context(), id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Profile = profile
	data.Follow = follow
	data.Posts = posts

	app.render(w, r, http.StatusOK, "profile.tmpl", data)
}

func (app *application) aboutHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "about.tmpl", app.newTemplateData(r))
}

func (app *application) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	stats, err := app.socialService.Dashboard(r.Context(), user.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Stats = stats

	app.render(w, r, http.StatusOK, "dashboard.tmpl", data)
}

func (app *application) adminHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	posts, err := app.blogService.GetVisiblePosts(r.Context(), user.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Posts = posts

	app.render(w, r, http.StatusOK, "admin.tmpl", data)
}

func (app *application) createPostPageHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "post_form.tmpl", app.newTemplateData(r))
}

func (app *application) editPostPageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readUUIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	post, err := app.blogService.GetPostByID(r.Context(), viewerID(app.getUserContext(r)), id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	data := app.newTemplateData(r)
	data.Post = post

	app.render(w, r, http.StatusOK, "post_form.tmpl", data)
}
