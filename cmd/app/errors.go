package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sushihentaime/writtenwork/internal/blogservice"
	"github.com/sushihentaime/writtenwork/internal/common"
	"github.com/sushihentaime/writtenwork/internal/storageservice"
	"github.com/sushihentaime/writtenwork/internal/userservice"
)

const serverErrorMessage = "the server encountered a problem and could not process your request"

func (app *application) logError(r *http.Request, err error) {
	var (
		method  = r.Method
		url     = r.URL.RequestURI()
		message = err.Error()
	)

	app.logger.Error(message, slog.String("method", method), slog.String("url", url))
}

// errorResponse answers widgets with JSON and browsers with the error page.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	if wantsJSON(r) {
		err := app.writeJSON(w, status, envelope{"error": message}, nil)
		if err != nil {
			app.logError(r, err)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	text, ok := message.(string)
	if !ok {
		text = http.StatusText(status)
	}

	data := app.newTemplateData(r)
	data.Status = status
	data.Error = text
	app.render(w, r, status, "error.tmpl", data)
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, serverErrorMessage)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// actionError reports a failed mutation: JSON for widgets, a redirect back to the form otherwise.
func (app *application) actionError(w http.ResponseWriter, r *http.Request, back string, status int, message string, fields map[string]string) {
	if wantsJSON(r) {
		env := envelope{"success": false, "error": message}
		if fields != nil {
			env["fields"] = fields
		}

		err := app.writeJSON(w, status, env, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.redirect(w, r, withQuery(back, "error", message))
}

// actionErrorFor maps a service error onto the mutation response.
func (app *application) actionErrorFor(w http.ResponseWriter, r *http.Request, back string, err error) {
	var validationErr common.ValidationError

	switch {
	case errors.As(err, &validationErr):
		app.actionError(w, r, back, http.StatusUnprocessableEntity, validationErr.First(), validationErr.Errors)
	case errors.Is(err, common.ErrRecordNotFound):
		app.actionError(w, r, back, http.StatusNotFound, "not found", nil)
	case errors.Is(err, common.ErrPermissionDenied):
		app.actionError(w, r, back, http.StatusForbidden, "access denied", nil)
	case errors.Is(err, userservice.ErrDuplicateUsername),
		errors.Is(err, userservice.ErrDuplicateEmail),
		errors.Is(err, blogservice.ErrDuplicateSlug):
		app.actionError(w, r, back, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, userservice.ErrInvalidCredentials):
		app.actionError(w, r, back, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, userservice.ErrAdminOnly):
		app.actionError(w, r, back, http.StatusForbidden, "Access denied. Admins only.", nil)
	case errors.Is(err, storageservice.ErrFileTooLarge):
		app.actionError(w, r, back, http.StatusRequestEntityTooLarge, err.Error(), nil)
	case errors.Is(err, storageservice.ErrInvalidImageType),
		errors.Is(err, storageservice.ErrEmptyUpload):
		app.actionError(w, r, back, http.StatusUnprocessableEntity, err.Error(), nil)
	default:
		app.logError(r, err)
		app.actionError(w, r, back, http.StatusInternalServerError, serverErrorMessage, nil)
	}
}

// unauthorizedAction is the response for a mutation without a session.
func (app *application) unauthorizedAction(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		app.actionError(w, r, "", http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	app.redirect(w, r, "/login")
}
