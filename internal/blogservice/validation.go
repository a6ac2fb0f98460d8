package blogservice

import (
	"regexp"
	"strings"

	"github.com/sushihentaime/writtenwork/internal/common"
)

var (
	SlugRX     = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	nonSlugRX  = regexp.MustCompile(`[^a-z0-9]+`)
	ImageURLRX = regexp.MustCompile(`^https?://\S+$`)
)

func validateTitle(v *common.Validator, title string) {
	v.Check(strings.TrimSpace(title) != "", "title", "must be provided")
	v.Check(v.CheckStringLength(title, 1, 200), "title", "must not be more than 200 characters long")
}

func validateSlug(v *common.Validator, slug string) {
	v.Check(slug != "", "slug", "must be provided")
	v.Check(v.CheckStringLength(slug, 1, 100), "slug", "must not be more than 100 characters long")
	v.Check(SlugRX.MatchString(slug), "slug", "must only contain lowercase letters, numbers and single hyphens")
}

func validateContent(v *common.Validator, content string) {
	v.Check(strings.TrimSpace(content) != "", "content", "must be provided")
}

func validatePostInput(v *common.Validator, in *PostInput) {
	validateTitle(v, in.Title)
	validateSlug(v, in.Slug)
	validateContent(v, in.Content)
	v.Check(v.CheckStringLength(in.Excerpt, 0, 300), "excerpt", "must not be more than 300 characters long")
	if in.CoverImageURL != "" {
		v.Check(ImageURLRX.MatchString(in.CoverImageURL), "cover_image_url", "must be a valid url")
	}
}

// Slugify derives a slug from a title, e.g. "Hello, World!" becomes "hello-world".
func Slugify(title string) string {
	slug := nonSlugRX.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 100 {
		slug = strings.TrimRight(slug[:100], "-")
	}
	return slug
}
