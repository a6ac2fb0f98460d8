package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/writtenwork/internal/common"
	"github.com/sushihentaime/writtenwork/internal/userservice"
)

const authErrorPath = "/auth/auth-code-error"

func (app *application) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	data := app.newTemplateData(r)
	data.Next = sanitizeNext(r.URL.Query().Get("next"), "")
	app.render(w, r, http.StatusOK, "login.tmpl", data)
}

func (app *application) signupPageHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "signup.tmpl", app.newTemplateData(r))
}

func (app *application) adminLoginPageHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "admin_login.tmpl", app.newTemplateData(r))
}

func (app *application) authCodeErrorHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "auth_error.tmpl", app.newTemplateData(r))
}

// authFailureMessage keeps sign-in errors generic so they do not reveal which accounts exist.
func authFailureMessage(err error) (string, bool) {
	var validationErr common.ValidationError

	switch {
	case errors.As(err, &validationErr):
		return validationErr.First("email", "password", "code"), true
	case errors.Is(err, userservice.ErrInvalidCredentials):
		return "invalid credentials", true
	case errors.Is(err, userservice.ErrAdminOnly):
		return "Access denied. Admins only.", true
	case errors.Is(err, userservice.ErrDuplicateEmail):
		return "email already registered", true
	}
	return "", false
}

// oauthFailureMessage hides provider and database error text from the browser.
func oauthFailureMessage(err error) string {
	switch {
	case errors.Is(err, userservice.ErrUnverifiedEmail):
		return "Your email address is not verified with the provider."
	case errors.Is(err, userservice.ErrOAuthDisabled):
		return userservice.ErrOAuthDisabled.Error()
	}
	return "Could not sign in with the provider."
}

func (app *application) signIn(w http.ResponseWriter, r *http.Request, back string, session *userservice.Session, user *userservice.User, err error, to func(*userservice.User) string) {
	app.metrics.recordMutation(r.Context(), "sign_in", err)

	if err != nil {
		msg, ok := authFailureMessage(err)
		if !ok {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.redirect(w, r, withQuery(back, "error", msg))
		return
	}

	app.setSessionCookie(w, session)
	app.redirect(w, r, to(user))
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	session, user, err := app.userService.Login(r.Context(), strings.TrimSpace(r.PostForm.Get("email")), r.PostForm.Get("password"))
	app.signIn(w, r, "/login", session, user, err, func(*userservice.User) string {
		return sanitizeNext(r.PostForm.Get("next"), "/")
	})
}

func (app *application) signupHandler(w http.ResponseWriter, r *http.Request) {
	err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	session, user, err := app.userService.SignUp(r.Context(), strings.TrimSpace(r.PostForm.Get("email")), r.PostForm.Get("password"))
	app.signIn(w, r, "/signup", session, user, err, func(*userservice.User) string { return "/" })
}

func (app *application) adminLoginHandler(w http.ResponseWriter, r *http.Request) {
	err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	session, user, err := app.userService.AdminLogin(r.Context(), strings.TrimSpace(r.PostForm.Get("email")), r.PostForm.Get("password"))
	if errors.Is(err, userservice.ErrAdminOnly) {
		// the rejected user must not keep any session in this browser
		app.clearCookie(w, sessionCookieName)
	}

	app.signIn(w, r, "/admin/login", session, user, err, func(*userservice.User) string { return "/admin" })
}

func (app *application) requestOTPHandler(w http.ResponseWriter, r *http.Request) {
	err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	email := strings.TrimSpace(r.PostForm.Get("email"))

	err = app.userService.RequestOTP(r.Context(), email)
	app.metrics.recordMutation(r.Context(), "request_otp", err)
	if err != nil {
		msg, ok := authFailureMessage(err)
		if !ok {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.redirect(w, r, withQuery("/login", "error", msg))
		return
	}

	data := app.newTemplateData(r)
	data.Email = email
	app.render(w, r, http.StatusOK, "otp_verify.tmpl", data)
}

func (app *application) verifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	email := strings.TrimSpace(r.PostForm.Get("email"))

	session, user, err := app.userService.VerifyOTP(r.Context(), email, strings.TrimSpace(r.PostForm.Get("code")))
	if err != nil {
		if msg, ok := authFailureMessage(err); ok {
			app.metrics.recordMutation(r.Context(), "sign_in", err)

			// stay on the code form so the user can retry with the same email
			data := app.newTemplateData(r)
			data.Email = email
			data.Error = msg
			app.render(w, r, http.StatusUnauthorized, "otp_verify.tmpl", data)
			return
		}
	}

	app.signIn(w, r, "/login", session, user, err, homePath)
}

// oauthStartHandler redirects to the provider. The nonce cookie binds the signed state to
// this browser.
func (app *application) oauthStartHandler(w http.ResponseWriter, r *http.Request) {
	if !app.userService.OAuthEnabled() {
		app.redirect(w, r, withQuery(authErrorPath, "error", userservice.ErrOAuthDisabled.Error()))
		return
	}

	next := sanitizeNext(r.URL.Query().Get("next"), "/dashboard")
	nonce := uuid.NewString()

	authURL, err := app.userService.OAuthURL(next, nonce)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     nonceCookieName,
		Value:    nonce,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   app.config.isProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (app *application) oauthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	code := query.Get("code")
	if code == "" {
		app.redirect(w, r, withQuery(authErrorPath, "error", "No code provided"))
		return
	}

	var nonce string
	if cookie, err := r.Cookie(nonceCookieName); err == nil {
		nonce = cookie.Value
	}
	http.SetCookie(w, &http.Cookie{Name: nonceCookieName, Path: "/auth", MaxAge: -1})

	next, err := app.userService.ParseOAuthState(query.Get("state"), nonce)
	if err != nil {
		app.logError(r, err)
		app.redirect(w, r, withQuery(authErrorPath, "error", userservice.ErrInvalidState.Error()))
		return
	}

	if next == "" {
		next = query.Get("next")
	}
	next = sanitizeNext(next, "/dashboard")

	session, _, err := app.userService.LoginWithOAuth(r.Context(), code)
	app.metrics.recordMutation(r.Context(), "sign_in", err)
	if err != nil {
		app.logError(r, err)
		app.redirect(w, r, withQuery(authErrorPath, "error", oauthFailureMessage(err)))
		return
	}

	app.setSessionCookie(w, session)
	app.redirect(w, r, next)
}

func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		err := app.userService.Logout(r.Context(), cookie.Value)
		if err != nil && !errors.As(err, &common.ValidationError{}) {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	app.clearCookie(w, sessionCookieName)
	app.redirect(w, r, "/login")
}
