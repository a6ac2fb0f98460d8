package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sushihentaime/writtenwork/internal/common"
	"github.com/sushihentaime/writtenwork/internal/userservice"
	"golang.org/x/time/rate"
)

// pageTTL is how long an anonymous rendering of a public page is served from cache.
const pageTTL = 60 * time.Second

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			ip     = r.RemoteAddr
			method = r.Method
			proto  = r.Proto
			uri    = r.URL.RequestURI()
			start  = time.Now()
		)

		next.ServeHTTP(w, r)

		app.logger.Info("request from", slog.String("method", method), slog.String("uri", uri), slog.String("remote_addr", ip), slog.String("proto", proto), slog.Duration("duration", time.Since(start)))
	})
}

// authenticate resolves the session cookie. A missing, malformed or expired session
// leaves the request anonymous and clears the cookie.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Cookie")

		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			r = app.createUserContext(r, userservice.AnonymousUser)
			next.ServeHTTP(w, r)
			return
		}

		user, err := app.userService.GetUserBySession(r.Context(), cookie.Value)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrRecordNotFound), errors.As(err, &common.ValidationError{}):
				app.clearCookie(w, sessionCookieName)
				r = app.createUserContext(r, userservice.AnonymousUser)
				next.ServeHTTP(w, r)
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}

		r = app.createUserContext(r, user)
		next.ServeHTTP(w, r)
	})
}

func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// gatedPath reports whether the path needs a session, and whether it needs an admin.
func gatedPath(path string) (gated bool, adminOnly bool) {
	switch {
	case path == "/admin/login":
		return false, false
	case hasPathPrefix(path, "/admin"):
		return true, true
	case hasPathPrefix(path, "/dashboard"), hasPathPrefix(path, "/posts"):
		return true, false
	}
	return false, false
}

// requireAuthGate protects the signed-in areas. Anonymous visitors go to /login and
// signed-in non-admins on an admin page go to the home page.
func (app *application) requireAuthGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gated, adminOnly := gatedPath(r.URL.Path)
		if !gated {
			next.ServeHTTP(w, r)
			return
		}

		user := app.getUserContext(r)
		if user.IsAnonymous() {
			app.redirect(w, r, "/login")
			return
		}

		if adminOnly && !user.IsAdmin() {
			app.redirect(w, r, "/")
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type pageRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (p *pageRecorder) WriteHeader(status int) {
	p.status = status
	p.ResponseWriter.WriteHeader(status)
}

func (p *pageRecorder) Write(b []byte) (int, error) {
	if p.status == 0 {
		p.status = http.StatusOK
	}
	p.buf.Write(b)
	return p.ResponseWriter.Write(b)
}

// cachePage serves anonymous GETs of public pages from the page cache. Requests with a
// query string or a session always render fresh.
func (app *application) cachePage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.RawQuery != "" || !app.getUserContext(r).IsAnonymous() {
			next(w, r)
			return
		}

		path := r.URL.Path

		if page, ok := app.pages.GetPage(r.Context(), path); ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("X-Cache", "HIT")
			w.Write(page)
			return
		}

		w.Header().Set("X-Cache", "MISS")
		rec := &pageRecorder{ResponseWriter: w}
		next(rec, r)

		if rec.status != http.StatusOK {
			return
		}

		if err := app.pages.SetPage(r.Context(), path, rec.buf.Bytes(), pageTTL); err != nil {
			app.logError(r, err)
		}
	}
}

// invalidate drops the cached renderings of the given paths. Failures are logged only;
// the cached copy expires on its own.
func (app *application) invalidate(r *http.Request, paths ...string) {
	if err := app.pages.Invalidate(r.Context(), paths...); err != nil {
		app.logError(r, err)
	}
}

func (app *application) invalidatePrefix(r *http.Request, prefix string) {
	if err := app.pages.InvalidatePrefix(r.Context(), prefix); err != nil {
		app.logError(r, err)
	}
}

// rateLimit throttles a sign-in endpoint per client ip. Limiters live in the limiter cache
// and are dropped after a period of inactivity.
func (app *application) rateLimit(scope string, every time.Duration, burst int, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next(w, r)
			return
		}

		key := common.CacheKeyLimiter(scope, clientIP(r))

		var limiter *rate.Limiter
		if v, ok := app.limiters.Get(key); ok {
			limiter = v.(*rate.Limiter)
			// refresh the inactivity expiry
			app.limiters.Set(key, limiter)
		} else {
			limiter = rate.NewLimiter(rate.Every(every), burst)
			// a concurrent first request may have stored its limiter already
			if err := app.limiters.Add(key, limiter); err != nil {
				if v, ok := app.limiters.Get(key); ok {
					limiter = v.(*rate.Limiter)
				}
			}
		}

		if !limiter.Allow() {
			app.rateLimitExceededResponse(w, r)
			return
		}

		next(w, r)
	}
}
