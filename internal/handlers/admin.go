package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/middleware"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/web"
)

// AdminDeps are the services behind the back-office.
type AdminDeps struct {
	Articles   ArticleEditor
	Categories CategoryStore
	Tags       TagStore
	Comments   CommentStore
	Media      MediaStore
	Settings   SettingStore
	Stats      StatsProvider
	PerPage    int
}

// AdminHandler serves /admin.
type AdminHandler struct {
	deps AdminDeps
}

func NewAdminHandler(deps AdminDeps) *AdminHandler {
	if deps.PerPage <= 0 {
		deps.PerPage = 20
	}
	return &AdminHandler{deps: deps}
}

// Dashboard shows the counters and the latest articles.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.deps.Stats.Stats(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, http.StatusOK, "admin/dashboard", "Dashboard", gin.H{"Stats": stats})
}

// articleForm mirrors the article editor fields.
type articleForm struct {
	Title           string
	Excerpt         string
	Content         string
	Status          string
	CategoryID      int64
	FeaturedImageID int64
	TagIDs          []int64
}

func articleFormFrom(a *models.Article) articleForm {
	f := articleForm{
		Title:   a.Title,
		Excerpt: a.Excerpt,
		Content: a.Content,
		Status:  string(a.Status),
		TagIDs:  a.TagIDs(),
	}
	if a.CategoryID != nil {
		f.CategoryID = *a.CategoryID
	}
	if a.FeaturedImageID != nil {
		f.FeaturedImageID = *a.FeaturedImageID
	}
	return f
}

func bindArticleForm(c *gin.Context) (articleForm, models.ArticleInput) {
	in := models.ArticleInput{
		Title:           c.PostForm("title"),
		Excerpt:         c.PostForm("excerpt"),
		Content:         c.PostForm("content"),
		Status:          models.ArticleStatus(strings.TrimSpace(c.PostForm("status"))),
		CategoryID:      optionalID(c.PostForm("category_id")),
		FeaturedImageID: optionalID(c.PostForm("featured_image_id")),
		TagIDs:          ids(c.PostFormArray("tag_ids")),
	}
	f := articleForm{
		Title:   in.Title,
		Excerpt: in.Excerpt,
		Content: in.Content,
		Status:  string(in.Status),
		TagIDs:  in.TagIDs,
	}
	if in.CategoryID != nil {
		f.CategoryID = *in.CategoryID
	}
	if in.FeaturedImageID != nil {
		f.FeaturedImageID = *in.FeaturedImageID
	}
	return f, in
}

// Articles lists every article, optionally by ?status=.
func (h *AdminHandler) Articles(c *gin.Context) {
	ctx := c.Request.Context()
	status := models.ArticleStatus(c.Query("status"))
	if !status.Valid() {
		status = ""
	}
	articles, err := h.deps.Articles.ListRecent(ctx, status, pageParam(c), h.deps.PerPage)
	if err != nil {
		renderError(c, err)
		return
	}
	counts, err := h.deps.Articles.CountByStatus(ctx)
	if err != nil {
		renderError(c, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	pageURL := "/admin/articles?"
	if status != "" {
		pageURL += "status=" + string(status) + "&"
	}
	renderPage(c, http.StatusOK, "admin/articles", "Articles", gin.H{
		"Articles": articles,
		"Counts":   counts,
		"Total":    total,
		"Status":   status,
		"PageURL":  pageURL,
	})
}

func (h *AdminHandler) renderArticleForm(c *gin.Context, status int, title, action string, article *models.Article, form articleForm, errs apperrors.FieldErrors) {
	ctx := c.Request.Context()
	categories, err := h.deps.Categories.List(ctx)
	if err != nil {
		renderError(c, err)
		return
	}
	tags, err := h.deps.Tags.List(ctx)
	if err != nil {
		renderError(c, err)
		return
	}
	var featured *models.Media
	if form.FeaturedImageID > 0 {
		// A deleted image simply shows no preview.
		featured, _ = h.deps.Media.GetByID(ctx, form.FeaturedImageID)
	}
	renderPage(c, status, "admin/article_form", title, gin.H{
		"Action":        action,
		"Article":       article,
		"Form":          form,
		"Errors":        errs,
		"Categories":    categories,
		"Tags":          tags,
		"FeaturedImage": featured,
	})
}

// NewArticle shows an empty editor.
func (h *AdminHandler) NewArticle(c *gin.Context) {
	h.renderArticleForm(c, http.StatusOK, "New article", "/admin/articles", nil,
		articleForm{Status: string(models.ArticleDraft)}, nil)
}

// CreateArticle saves a new article written by the current user.
func (h *AdminHandler) CreateArticle(c *gin.Context) {
	form, in := bindArticleForm(c)
	var userID int64
	if user := middleware.CurrentUser(c); user != nil {
		userID = user.ID
	}
	a, err := h.deps.Articles.Create(c.Request.Context(), in, userID)
	if fe, ok := formErrors(err, "title"); ok {
		h.renderArticleForm(c, http.StatusUnprocessableEntity, "New article", "/admin/articles", nil, form, fe)
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Article created.", "/admin/articles/"+strconv.FormatInt(a.ID, 10)+"/edit")
}

// EditArticle shows the editor for an existing article.
func (h *AdminHandler) EditArticle(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	a, err := h.deps.Articles.GetByID(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	h.renderArticleForm(c, http.StatusOK, "Edit article", "/admin/articles/"+c.Param("id"), a, articleFormFrom(a), nil)
}

// UpdateArticle saves the editor.
func (h *AdminHandler) UpdateArticle(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	form, in := bindArticleForm(c)
	a, err := h.deps.Articles.Update(c.Request.Context(), id, in)
	if fe, ok := formErrors(err, "title"); ok {
		current, gerr := h.deps.Articles.GetByID(c.Request.Context(), id)
		if gerr != nil {
			renderError(c, gerr)
			return
		}
		h.renderArticleForm(c, http.StatusUnprocessableEntity, "Edit article", "/admin/articles/"+c.Param("id"), current, form, fe)
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Article saved.", "/admin/articles/"+strconv.FormatInt(a.ID, 10)+"/edit")
}

// statusAction wraps Publish, Unpublish and Archive. htmx gets the
// refreshed table row, plain forms a redirect to the list.
func (h *AdminHandler) statusAction(change func(*gin.Context, int64) (*models.Article, error), message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			renderError(c, err)
			return
		}
		a, err := change(c, id)
		if err != nil {
			renderError(c, err)
			return
		}
		if web.IsHTMX(c) {
			renderPartial(c, http.StatusOK, "article_row", a)
			return
		}
		flashAndRedirect(c, "success", message, "/admin/articles")
	}
}

func (h *AdminHandler) PublishArticle(c *gin.Context) {
	h.statusAction(func(c *gin.Context, id int64) (*models.Article, error) {
		return h.deps.Articles.Publish(c.Request.Context(), id)
	}, "Article published.")(c)
}

func (h *AdminHandler) UnpublishArticle(c *gin.Context) {
	h.statusAction(func(c *gin.Context, id int64) (*models.Article, error) {
		return h.deps.Articles.Unpublish(c.Request.Context(), id)
	}, "Article moved back to drafts.")(c)
}

func (h *AdminHandler) ArchiveArticle(c *gin.Context) {
	h.statusAction(func(c *gin.Context, id int64) (*models.Article, error) {
		return h.deps.Articles.Archive(c.Request.Context(), id)
	}, "Article archived.")(c)
}

// DeleteArticle removes an article with its comments and tag links.
func (h *AdminHandler) DeleteArticle(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := h.deps.Articles.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Article deleted.", "/admin/articles")
}

// ApproveAllComments approves the pending comments of one article.
func (h *AdminHandler) ApproveAllComments(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	n, err := h.deps.Comments.ApproveAllPending(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", strconv.FormatInt(n, 10)+" comment(s) approved.", "/admin/comments?status=pending")
}
