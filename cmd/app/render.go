package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sushihentaime/writtenwork/internal/blogservice"
	"github.com/sushihentaime/writtenwork/internal/socialservice"
	"github.com/sushihentaime/writtenwork/internal/userservice"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type templateData struct {
	User         *userservice.User
	CurrentYear  int
	Status       int
	Error        string
	Message      string
	Query        string
	Next         string
	OAuthEnabled bool
	Email        string

	Posts    []blogservice.Post
	Post     *blogservice.Post
	Comments []socialservice.Comment
	Likes    *socialservice.LikeState
	Profile  *userservice.Profile
	Follow   *socialservice.FollowState
	Stats    *socialservice.DashboardStats

	Page     int
	PrevPage int
	NextPage int
}

var templateFuncs = template.FuncMap{
	"markdown": blogservice.RenderMarkdown,
	"ago":      humanize.Time,
	"comma": func(n int) string {
		return humanize.Comma(int64(n))
	},
	"plural": func(n int, singular, plural string) string {
		if n == 1 {
			return singular
		}
		return plural
	},
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// newTemplateCache parses every page together with the layout and partials.
func newTemplateCache() (map[string]*template.Template, error) {
	cache := map[string]*template.Template{}

	pages, err := fs.Glob(templateFS, "templates/pages/*.tmpl")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := filepath.Base(page)

		ts, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/base.tmpl", "templates/partials/*.tmpl", page)
		if err != nil {
			return nil, err
		}

		cache[name] = ts
	}

	return cache, nil
}

func (app *application) newTemplateData(r *http.Request) templateData {
	user := app.getUserContext(r)

	return templateData{
		User:         user,
		CurrentYear:  time.Now().Year(),
		Error:        r.URL.Query().Get("error"),
		Message:      r.URL.Query().Get("message"),
		OAuthEnabled: app.userService.OAuthEnabled(),
	}
}

// render executes the page into a buffer first so a template error still yields a clean 500.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data templateData) {
	ts, ok := app.templates[page]
	if !ok {
		app.logError(r, fmt.Errorf("the template %s does not exist", page))
		http.Error(w, serverErrorMessage, http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)

	err := ts.ExecuteTemplate(buf, "base", data)
	if err != nil {
		app.logError(r, err)
		http.Error(w, serverErrorMessage, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
