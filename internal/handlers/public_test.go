package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/search"
)

func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func (app *testApp) get(target string) *httptest.ResponseRecorder {
	return app.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func htmx(req *http.Request, target string) *http.Request {
	req.Header.Set("HX-Request", "true")
	if target != "" {
		req.Header.Set("HX-Target", target)
	}
	return req
}

func TestHomeListsPublishedArticles(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.get("/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Spring knitting")
	assert.NotContains(t, w.Body.String(), "Draft ideas")
}

func TestBlogFiltersByTag(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.get("/blog?tag=wool")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "wool", app.articles.lastFilter.TagSlug)
	assert.Contains(t, w.Body.String(), "Wool")
}

func TestBlogUnknownTagIsNotFound(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.get("/blog?tag=silk")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Tag not found.")
}

func TestArticlePage(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.get("/blog/spring-knitting")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<h1 class=\"text-3xl font-semibold mt-1\">Spring knitting</h1>")
	assert.Contains(t, body, "No comments yet.")
	assert.Contains(t, body, `id="comment-form"`)
}

func TestDraftArticleIsNotFound(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.get("/blog/draft-ideas")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentsLoadMore(t *testing.T) {
	app := newTestApp(t, nil)
	for i := 0; i < 7; i++ {
		app.comments.approved = append(app.comments.approved, models.Comment{ID: int64(i + 1), AuthorName: "Reader", Content: "Nice"})
	}

	w := app.get("/blog/spring-knitting/comments?page=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/blog/spring-knitting/comments?page=2")
	assert.NotContains(t, w.Body.String(), "<html")

	w = app.get("/blog/spring-knitting/comments?page=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, strings.Count(w.Body.String(), "Reader"))
	assert.NotContains(t, w.Body.String(), "Load more comments")
}

func TestPostCommentHTMXInvalidKeepsInput(t *testing.T) {
	app := newTestApp(t, nil)
	form := url.Values{"author_name": {"Jo"}, "author_email": {"jo@example.com"}, "content": {"hi"}}

	w := app.do(htmx(formRequest("/blog/spring-knitting/comments", form), "comment-form"))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Must be at least 5 characters.")
	assert.Contains(t, body, `value="Jo"`)
	assert.NotContains(t, body, "<html")
	assert.Empty(t, app.comments.created)
}

func TestPostCommentHTMXSuccessResetsForm(t *testing.T) {
	app := newTestApp(t, nil)
	form := url.Values{"author_name": {"Jo"}, "author_email": {"jo@example.com"}, "content": {"Lovely pattern"}}

	w := app.do(htmx(formRequest("/blog/spring-knitting/comments", form), "comment-form"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "awaiting moderation")
	assert.NotContains(t, w.Body.String(), "Lovely pattern")
	require.Len(t, app.comments.created, 1)
}

func TestPostCommentPlainFormRedirects(t *testing.T) {
	app := newTestApp(t, nil)
	form := url.Values{"author_name": {"Jo"}, "author_email": {"jo@example.com"}, "content": {"Lovely pattern"}}

	w := app.do(formRequest("/blog/spring-knitting/comments", form))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/blog/spring-knitting#comment-form", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "flash=")
}

func TestPostCommentPlainFormInvalidRerendersArticle(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(formRequest("/blog/spring-knitting/comments", url.Values{"content": {"x"}}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Spring knitting")
	assert.Contains(t, w.Body.String(), "Must be at least 5 characters.")
}

func TestPostCommentAsMemberPassesUser(t *testing.T) {
	member := &models.User{ID: 2, Name: "Jo", Email: "jo@example.com", Roles: []string{models.RoleUser}}
	app := newTestApp(t, member)

	w := app.do(htmx(formRequest("/blog/spring-knitting/comments", url.Values{"content": {"Lovely pattern"}}), ""))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, app.comments.users, 1)
	assert.Equal(t, member, app.comments.users[0])
	assert.NotContains(t, w.Body.String(), `name="author_name"`)
}

func TestSearchPageAndFragment(t *testing.T) {
	app := newTestApp(t, nil)
	app.articles.result = search.Result{
		Page: models.NewPage([]models.Article{app.articles.items[0]}, 1, 1, 10),
		Tier: search.TierPrefixOR,
	}

	w := app.get("/search?q=knit")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<html")
	assert.Contains(t, w.Body.String(), "Spring knitting")
	assert.Equal(t, "knit", app.articles.lastSearch)

	w = app.do(htmx(httptest.NewRequest(http.MethodGet, "/search?q=knit", nil), "search-results-container"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<html")
	assert.Contains(t, w.Body.String(), `id="search-results"`)
	assert.Contains(t, w.Body.String(), "1 result(s)")
}

func TestSearchEmptyQuery(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.get("/search?q=+++")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", app.articles.lastSearch)
	assert.Contains(t, w.Body.String(), "Type something to search")
}

func TestContact(t *testing.T) {
	app := newTestApp(t, nil)
	form := url.Values{"name": {"Jo"}, "email": {"jo@example.com"}, "subject": {"general"}, "message": {"short"}}

	w := app.do(formRequest("/contact", form))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Must be at least 10 characters.")

	form.Set("message", "I would love a pattern for socks.")
	w = app.do(formRequest("/contact", form))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/contact", w.Header().Get("Location"))
	require.Len(t, app.contact.sent, 1)
	assert.Equal(t, "jo@example.com", app.contact.sent[0].Email)
}

func TestSitemap(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.get("/sitemap.xml")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "https://blog.example.com/blog/spring-knitting")
	assert.NotContains(t, w.Body.String(), "draft-ideas")
}

func TestUnknownRouteRendersErrorPage(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.get("/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found.")

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("Accept", "application/json")
	w = app.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Page not found."}`, w.Body.String())
}

func TestUploadsServe(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.get("/uploads/abc/thumbnail.jpg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg-bytes", w.Body.String())
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "immutable")

	assert.Equal(t, http.StatusNotFound, app.get("/uploads/abc/missing.jpg").Code)
	assert.Equal(t, http.StatusNotFound, app.get("/uploads/").Code)
}
