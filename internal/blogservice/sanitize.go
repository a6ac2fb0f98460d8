package blogservice

import (
	"bytes"
	"html/template"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var (
	scriptTagPattern = regexp.MustCompile(`(?is)<\s*script[^>]*>(.*?)<\s*/\s*script\s*>`)

	// Raw HTML in posts is dropped by goldmark since WithUnsafe is not set.
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
)

func sanitizeMarkdown(md string) string {
	return scriptTagPattern.ReplaceAllString(md, "")
}

// RenderMarkdown converts post content to HTML for the detail page.
func RenderMarkdown(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(sanitizeMarkdown(md)), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
