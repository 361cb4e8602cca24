// Package content turns stored article bodies into safe HTML and excerpts.
package content

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// ExcerptLength is the size of generated excerpts, in characters.
const ExcerptLength = 150

// Renderer converts Markdown (or editor HTML) into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewRenderer creates a Renderer with GFM enabled.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		// Raw HTML from the editor is kept here and sanitized afterwards.
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{md: md, policy: policy, strict: bluemonday.StrictPolicy()}
}

// Render returns the HTML of an article body.
func (r *Renderer) Render(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render content: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// MustRender is Render for templates; errors yield an empty body.
func (r *Renderer) MustRender(source string) template.HTML {
	out, err := r.Render(source)
	if err != nil {
		return ""
	}
	return out
}

// PlainText strips every tag and collapses whitespace.
func (r *Renderer) PlainText(source string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		buf.Reset()
		buf.WriteString(source)
	}
	spaced := strings.ReplaceAll(buf.String(), "<", " <")
	text := html.UnescapeString(r.strict.Sanitize(spaced))
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt returns the first ExcerptLength characters of the plain text.
func (r *Renderer) Excerpt(source string) string {
	return Truncate(r.PlainText(source), ExcerptLength)
}

// Truncate cuts s to at most limit runes, on a word boundary when one
// exists, and appends "...".
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	cut := []rune(s)[:limit]
	out := string(cut)
	if i := strings.LastIndexByte(out, ' '); i > limit/2 {
		out = out[:i]
	}
	return strings.TrimRight(out, " ,.;:") + "..."
}
