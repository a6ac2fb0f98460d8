package main

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/sushihentaime/writtenwork/internal/common"
	"github.com/sushihentaime/writtenwork/internal/userservice"
)

func TestRecoverPanic(t *testing.T) {
	app := newUnitApplication(t)

	// Create a test HTTP handler that will panic
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went wrong")
	})

	testCases := []struct {
		name   string
		accept string
		want   string
	}{
		{name: "json", accept: "application/json", want: "application/json"},
		{name: "html", accept: "text/html", want: "text/html; charset=utf-8"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept", tc.accept)
			res := httptest.NewRecorder()

			app.recoverPanic(handler).ServeHTTP(res, req)

			assert.Equal(t, http.StatusInternalServerError, res.Code)
			assert.Equal(t, "close", res.Header().Get("Connection"))
			assert.Equal(t, tc.want, res.Header().Get("Content-Type"))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	app := newUnitApplication(t)

	var seen *userservice.User
	handler := app.authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = app.getUserContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	testCases := []struct {
		name          string
		cookie        *http.Cookie
		expectCleared bool
	}{
		{name: "no cookie"},
		{name: "empty cookie", cookie: &http.Cookie{Name: sessionCookieName, Value: ""}},
		{name: "malformed token", cookie: &http.Cookie{Name: sessionCookieName, Value: "short"}, expectCleared: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}
			res := httptest.NewRecorder()

			handler.ServeHTTP(res, req)

			assert.Equal(t, http.StatusOK, res.Code)
			assert.True(t, seen.IsAnonymous())
			assert.Contains(t, res.Header().Values("Vary"), "Cookie")

			cleared := false
			for _, c := range res.Result().Cookies() {
				if c.Name == sessionCookieName && c.MaxAge < 0 {
					cleared = true
				}
			}
			assert.Equal(t, tc.expectCleared, cleared)
		})
	}
}

func TestGatedPath(t *testing.T) {
	testCases := []struct {
		path      string
		gated     bool
		adminOnly bool
	}{
		{path: "/", gated: false},
		{path: "/blog/hello", gated: false},
		{path: "/dashboard", gated: true},
		{path: "/dashboard/settings", gated: true},
		{path: "/dashboards", gated: false},
		{path: "/posts/new", gated: true},
		{path: "/admin", gated: true, adminOnly: true},
		{path: "/admin/edit/123", gated: true, adminOnly: true},
		{path: "/admin/login", gated: false},
		{path: "/administrator", gated: false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			gated, adminOnly := gatedPath(tc.path)
			assert.Equal(t, tc.gated, gated)
			assert.Equal(t, tc.adminOnly, adminOnly)
		})
	}
}

func TestRequireAuthGate(t *testing.T) {
	app := newUnitApplication(t)

	handler := app.requireAuthGate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	reader := &userservice.User{ID: uuid.New(), Role: common.RoleUser}
	admin := &userservice.User{ID: uuid.New(), Role: common.RoleAdmin}

	testCases := []struct {
		name             string
		path             string
		user             *userservice.User
		expectedStatus   int
		expectedLocation string
	}{
		{name: "anonymous on public page", path: "/blog", user: userservice.AnonymousUser, expectedStatus: http.StatusOK},
		{name: "anonymous on dashboard", path: "/dashboard", user: userservice.AnonymousUser, expectedStatus: http.StatusSeeOther, expectedLocation: "/login"},
		{name: "anonymous on posts", path: "/posts/new", user: userservice.AnonymousUser, expectedStatus: http.StatusSeeOther, expectedLocation: "/login"},
		{name: "anonymous on admin", path: "/admin", user: userservice.AnonymousUser, expectedStatus: http.StatusSeeOther, expectedLocation: "/login"},
		{name: "anonymous on admin login", path: "/admin/login", user: userservice.AnonymousUser, expectedStatus: http.StatusOK},
		{name: "reader on dashboard", path: "/dashboard", user: reader, expectedStatus: http.StatusOK},
		{name: "reader on admin", path: "/admin/create", user: reader, expectedStatus: http.StatusSeeOther, expectedLocation: "/"},
		{name: "admin on admin", path: "/admin/create", user: admin, expectedStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req = app.createUserContext(req, tc.user)
			res := httptest.NewRecorder()

			handler.ServeHTTP(res, req)

			assert.Equal(t, tc.expectedStatus, res.Code)
			assert.Equal(t, tc.expectedLocation, res.Header().Get("Location"))
		})
	}
}

func TestCachePage(t *testing.T) {
	app := newUnitApplication(t)

	calls := 0
	status := http.StatusOK
	handler := app.cachePage(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
		w.Write([]byte("<p>page</p>"))
	})

	serve := func(path string, user *userservice.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = app.createUserContext(req, user)
		res := httptest.NewRecorder()
		handler(res, req)
		return res
	}

	t.Run("anonymous hit after miss", func(t *testing.T) {
		calls = 0

		first := serve("/blog", userservice.AnonymousUser)
		second := serve("/blog", userservice.AnonymousUser)

		assert.Equal(t, 1, calls)
		assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
		assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
		assert.Equal(t, "<p>page</p>", second.Body.String())
	})

	t.Run("invalidation forces a render", func(t *testing.T) {
		calls = 0

		serve("/about", userservice.AnonymousUser)
		app.pages.Invalidate(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "/about")
		serve("/about", userservice.AnonymousUser)

		assert.Equal(t, 2, calls)
	})

	t.Run("query strings bypass the cache", func(t *testing.T) {
		calls = 0

		serve("/blog?page=2", userservice.AnonymousUser)
		serve("/blog?page=2", userservice.AnonymousUser)

		assert.Equal(t, 2, calls)
	})

	t.Run("signed in viewers bypass the cache", func(t *testing.T) {
		calls = 0
		user := &userservice.User{ID: uuid.New()}

		serve("/user/abc", user)
		serve("/user/abc", user)

		assert.Equal(t, 2, calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		calls = 0
		status = http.StatusNotFound
		defer func() { status = http.StatusOK }()

		serve("/blog/missing", userservice.AnonymousUser)
		serve("/blog/missing", userservice.AnonymousUser)

		assert.Equal(t, 2, calls)
	})
}

func TestRateLimit(t *testing.T) {
	app := newUnitApplication(t)

	handler := app.rateLimit("login", time.Hour, 2, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	request := func(method, ip string) int {
		req := httptest.NewRequest(method, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		req.Header.Set("Accept", "application/json")
		res := httptest.NewRecorder()
		handler(res, req)
		return res.Code
	}

	assert.Equal(t, http.StatusOK, request(http.MethodPost, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, request(http.MethodPost, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request(http.MethodPost, "10.0.0.1"))

	// other clients and page views are unaffected
	assert.Equal(t, http.StatusOK, request(http.MethodPost, "10.0.0.2"))
	assert.Equal(t, http.StatusOK, request(http.MethodGet, "10.0.0.1"))
}

func TestRateLimitConcurrentFirstRequests(t *testing.T) {
	app := newUnitApplication(t)

	handler := app.rateLimit("otp", time.Hour, 1, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
		start   = make(chan struct{})
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			req := httptest.NewRequest(http.MethodPost, "/login/otp", nil)
			req.RemoteAddr = "10.0.0.9:1234"
			req.Header.Set("Accept", "application/json")
			res := httptest.NewRecorder()
			handler(res, req)

			if res.Code == http.StatusOK {
				allowed.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	// every request shares one limiter, so the burst of one admits a single request
	assert.Equal(t, int32(1), allowed.Load())
}
