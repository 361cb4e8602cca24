package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render("# Title\n\nSome **bold** text.")
	require.NoError(t, err)
	assert.Contains(t, string(out), "Title</h1>")
	assert.Contains(t, string(out), "<strong>bold</strong>")
}

func TestRenderSanitizes(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(`<p onclick="x()">hi</p><script>alert(1)</script>`)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script")
	assert.NotContains(t, string(out), "onclick")
	assert.Contains(t, string(out), "hi")
}

func TestPlainText(t *testing.T) {
	r := NewRenderer()
	assert.Equal(t, "Hello world & friends", r.PlainText("<p>Hello <b>world</b></p>\n\n<p>&amp; friends</p>"))
	assert.Equal(t, "Heading body", r.PlainText("## Heading\n\nbody"))
}

func TestExcerpt(t *testing.T) {
	r := NewRenderer()
	short := "A short body."
	assert.Equal(t, short, r.Excerpt(short))

	long := strings.Repeat("word ", 60)
	ex := r.Excerpt(long)
	assert.True(t, strings.HasSuffix(ex, "..."))
	assert.LessOrEqual(t, len([]rune(ex)), ExcerptLength+3)
	assert.NotContains(t, ex, "wor...")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "hello...", Truncate("hello world", 8))
	assert.Equal(t, "ééééé...", Truncate("éééééééééé", 5))
}
