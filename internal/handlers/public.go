package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/middleware"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/services"
	"github.com/kartikbazzad/bunbase/bunpress/internal/web"
)

const (
	homeArticles   = 6
	relatedCount   = 3
	popularTags    = 10
	searchTargetID = "search-results-container"
)

// PublicDeps are the services behind the public site.
type PublicDeps struct {
	Articles      ArticleReader
	Categories    CategoryStore
	Tags          TagStore
	Comments      CommentStore
	Contact       ContactSubmitter
	PerPage       int
	SearchPerPage int
	// BaseURL prefixes sitemap links; empty derives it from the request.
	BaseURL string
}

// PublicHandler serves the blog.
type PublicHandler struct {
	deps PublicDeps
}

func NewPublicHandler(deps PublicDeps) *PublicHandler {
	if deps.PerPage <= 0 {
		deps.PerPage = 9
	}
	if deps.SearchPerPage <= 0 {
		deps.SearchPerPage = 10
	}
	return &PublicHandler{deps: deps}
}

// Home shows the latest articles.
func (h *PublicHandler) Home(c *gin.Context) {
	articles, err := h.deps.Articles.Latest(c.Request.Context(), homeArticles)
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, http.StatusOK, "public/home", "", gin.H{"Articles": articles})
}

// Blog lists published articles, optionally filtered by ?category= or ?tag=.
func (h *PublicHandler) Blog(c *gin.Context) {
	ctx := c.Request.Context()
	filter := services.ArticleFilter{
		CategorySlug: strings.TrimSpace(c.Query("category")),
		TagSlug:      strings.TrimSpace(c.Query("tag")),
	}

	var activeTag *models.Tag
	if filter.TagSlug != "" {
		tag, err := h.deps.Tags.GetBySlug(ctx, filter.TagSlug)
		if err != nil {
			renderError(c, err)
			return
		}
		activeTag = tag
	}

	articles, err := h.deps.Articles.ListPublished(ctx, filter, pageParam(c), h.deps.PerPage)
	if err != nil {
		renderError(c, err)
		return
	}
	categories, err := h.deps.Categories.ListNonEmpty(ctx)
	if err != nil {
		renderError(c, err)
		return
	}
	tags, err := h.deps.Tags.Popular(ctx, popularTags)
	if err != nil {
		renderError(c, err)
		return
	}

	q := url.Values{}
	if filter.CategorySlug != "" {
		q.Set("category", filter.CategorySlug)
	}
	if filter.TagSlug != "" {
		q.Set("tag", filter.TagSlug)
	}
	pageURL := "/blog?"
	if len(q) > 0 {
		pageURL += q.Encode() + "&"
	}

	renderPage(c, http.StatusOK, "public/blog", "Blog", gin.H{
		"Articles":    articles,
		"Categories":  categories,
		"PopularTags": tags,
		"ActiveTag":   activeTag,
		"Filter":      filter,
		"PageURL":     pageURL,
	})
}

func (h *PublicHandler) article(c *gin.Context) (*models.Article, bool) {
	a, err := h.deps.Articles.GetPublishedBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		renderError(c, err)
		return nil, false
	}
	return a, true
}

func (h *PublicHandler) renderArticle(c *gin.Context, status int, a *models.Article, form models.CommentInput, errs apperrors.FieldErrors) {
	ctx := c.Request.Context()
	comments, err := h.deps.Comments.ListApproved(ctx, a.ID, 1)
	if err != nil {
		renderError(c, err)
		return
	}
	latest, err := h.deps.Articles.Latest(ctx, relatedCount+1)
	if err != nil {
		renderError(c, err)
		return
	}
	related := make([]models.Article, 0, relatedCount)
	for _, other := range latest {
		if other.ID != a.ID && len(related) < relatedCount {
			related = append(related, other)
		}
	}
	renderPage(c, status, "public/article", a.Title, gin.H{
		"Article":     a,
		"Comments":    comments,
		"Related":     related,
		"CommentForm": form,
		"Errors":      errs,
	})
}

// Article shows one published article with its first page of comments.
func (h *PublicHandler) Article(c *gin.Context) {
	a, ok := h.article(c)
	if !ok {
		return
	}
	h.renderArticle(c, http.StatusOK, a, models.CommentInput{}, nil)
}

// Comments returns the next page of approved comments for "load more".
func (h *PublicHandler) Comments(c *gin.Context) {
	a, ok := h.article(c)
	if !ok {
		return
	}
	comments, err := h.deps.Comments.ListApproved(c.Request.Context(), a.ID, pageParam(c))
	if err != nil {
		renderError(c, err)
		return
	}
	renderPartial(c, http.StatusOK, "comment_list", gin.H{"Comments": comments, "Slug": a.Slug})
}

// PostComment stores a comment awaiting moderation.
func (h *PublicHandler) PostComment(c *gin.Context) {
	a, ok := h.article(c)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	in := models.CommentInput{
		AuthorName:  c.PostForm("author_name"),
		AuthorEmail: c.PostForm("author_email"),
		Content:     c.PostForm("content"),
	}

	_, err := h.deps.Comments.Create(c.Request.Context(), a.ID, in, user)
	fe, invalid := fieldErrors(err)
	if err != nil && !invalid {
		renderError(c, err)
		return
	}

	if web.IsHTMX(c) {
		data := gin.H{"Slug": a.Slug, "User": user, "Form": in, "Errors": fe, "Sent": !invalid}
		if !invalid {
			data["Form"] = models.CommentInput{}
		}
		// htmx only swaps 2xx responses, so form errors stay 200 here.
		renderPartial(c, http.StatusOK, "comment_form", data)
		return
	}
	if invalid {
		h.renderArticle(c, http.StatusUnprocessableEntity, a, in, fe)
		return
	}
	flashAndRedirect(c, "success", "Thanks! Your comment is awaiting moderation.", "/blog/"+a.Slug+"#comment-form")
}

// Search runs the full-text search. htmx requests aimed at the results
// container get the results fragment only.
func (h *PublicHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	result := h.deps.Articles.Search(c.Request.Context(), query, pageParam(c), h.deps.SearchPerPage)
	data := gin.H{"Query": query, "Result": result}

	if web.Target(c) == searchTargetID {
		renderPartial(c, http.StatusOK, "search_results", data)
		return
	}
	renderPage(c, http.StatusOK, "public/search", "Search", data)
}

// About renders the about page; its content comes from settings.
func (h *PublicHandler) About(c *gin.Context) {
	renderPage(c, http.StatusOK, "public/about", "About", nil)
}

// Legal renders the legal notice and privacy policy.
func (h *PublicHandler) Legal(c *gin.Context) {
	renderPage(c, http.StatusOK, "public/legal", "Legal notice", nil)
}

// ContactForm shows the contact page.
func (h *PublicHandler) ContactForm(c *gin.Context) {
	renderPage(c, http.StatusOK, "public/contact", "Contact", gin.H{
		"Form":     services.ContactInput{Subject: services.ContactSubjects[0].Value},
		"Subjects": services.ContactSubjects,
	})
}

// Contact handles the contact form.
func (h *PublicHandler) Contact(c *gin.Context) {
	var in services.ContactInput
	_ = c.ShouldBind(&in)

	err := h.deps.Contact.Submit(c.Request.Context(), in)
	if fe, ok := fieldErrors(err); ok {
		renderPage(c, http.StatusUnprocessableEntity, "public/contact", "Contact", gin.H{
			"Form":     in,
			"Subjects": services.ContactSubjects,
			"Errors":   fe,
		})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Thank you, your message was sent.", "/contact")
}

// Sitemap serves sitemap.xml.
func (h *PublicHandler) Sitemap(c *gin.Context) {
	ctx := c.Request.Context()
	articles, err := h.deps.Articles.AllPublished(ctx)
	if err != nil {
		renderError(c, err)
		return
	}
	categories, err := h.deps.Categories.ListNonEmpty(ctx)
	if err != nil {
		renderError(c, err)
		return
	}
	body, err := services.BuildSitemap(h.baseURL(c), articles, categories)
	if err != nil {
		renderError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

func (h *PublicHandler) baseURL(c *gin.Context) string {
	if h.deps.BaseURL != "" {
		return strings.TrimRight(h.deps.BaseURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
