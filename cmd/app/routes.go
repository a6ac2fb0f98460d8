package main

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	router.ServeFiles("/static/*filepath", http.FS(static))

	router.HandlerFunc(http.MethodGet, "/healthcheck", app.healthCheckHandler)

	// public pages
	router.HandlerFunc(http.MethodGet, "/", app.cachePage(app.blogListHandler))
	router.HandlerFunc(http.MethodGet, "/blog", app.cachePage(app.blogListHandler))
	router.HandlerFunc(http.MethodGet, "/blog/:slug", app.cachePage(app.postHandler))
	router.HandlerFunc(http.MethodGet, "/user/:id", app.cachePage(app.profileHandler))
	router.HandlerFunc(http.MethodGet, "/about", app.cachePage(app.aboutHandler))
	router.HandlerFunc(http.MethodGet, "/search", app.searchHandler)

	// auth
	router.HandlerFunc(http.MethodGet, "/login", app.loginPageHandler)
	router.HandlerFunc(http.MethodPost, "/login", app.rateLimit("login", 6*time.Second, 10, app.loginHandler))
	router.HandlerFunc(http.MethodGet, "/signup", app.signupPageHandler)
	router.HandlerFunc(http.MethodPost, "/signup", app.rateLimit("signup", 12*time.Second, 5, app.signupHandler))
	router.HandlerFunc(http.MethodGet, "/admin/login", app.adminLoginPageHandler)
	router.HandlerFunc(http.MethodPost, "/admin/login", app.rateLimit("login", 6*time.Second, 10, app.adminLoginHandler))
	router.HandlerFunc(http.MethodPost, "/login/otp", app.rateLimit("otp", 20*time.Second, 3, app.requestOTPHandler))
	router.HandlerFunc(http.MethodPost, "/login/otp/verify", app.rateLimit("otp_verify", 6*time.Second, 10, app.verifyOTPHandler))
	router.HandlerFunc(http.MethodGet, "/auth/oauth", app.oauthStartHandler)
	router.HandlerFunc(http.MethodGet, "/auth/callback", app.oauthCallbackHandler)
	router.HandlerFunc(http.MethodGet, "/auth/auth-code-error", app.authCodeErrorHandler)
	router.HandlerFunc(http.MethodPost, "/logout", app.logoutHandler)

	// signed-in pages, gated by requireAuthGate
	router.HandlerFunc(http.MethodGet, "/dashboard", app.dashboardHandler)
	router.HandlerFunc(http.MethodGet, "/admin", app.adminHandler)
	router.HandlerFunc(http.MethodGet, "/admin/create", app.createPostPageHandler)
	router.HandlerFunc(http.MethodGet, "/admin/edit/:id", app.editPostPageHandler)

	// mutations
	router.HandlerFunc(http.MethodPost, "/actions/posts/delete", app.deletePostHandler)
	router.HandlerFunc(http.MethodPost, "/actions/profile", app.updateProfileHandler)
	router.HandlerFunc(http.MethodPost, "/actions/profile/avatar", app.uploadAvatarHandler)
	router.HandlerFunc(http.MethodPost, "/actions/follow", app.followHandler)
	router.HandlerFunc(http.MethodPost, "/actions/unfollow", app.unfollowHandler)
	router.HandlerFunc(http.MethodPost, "/actions/like", app.toggleLikeHandler)
	router.HandlerFunc(http.MethodPost, "/actions/comments", app.addCommentHandler)
	router.HandlerFunc(http.MethodPost, "/actions/comments/delete", app.deleteCommentHandler)
	router.HandlerFunc(http.MethodPost, "/admin/posts", app.createPostHandler)
	router.HandlerFunc(http.MethodPost, "/admin/posts/:id", app.updatePostHandler)
	router.HandlerFunc(http.MethodPost, "/admin/uploads", app.uploadCoverHandler)

	return app.recoverPanic(app.logRequest(app.authenticate(app.requireAuthGate(router))))
}
