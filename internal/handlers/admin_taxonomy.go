package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/services"
)

// Categories lists every category with its published count.
func (h *AdminHandler) Categories(c *gin.Context) {
	categories, err := h.deps.Categories.List(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, http.StatusOK, "admin/categories", "Categories", gin.H{"Categories": categories})
}

func (h *AdminHandler) NewCategory(c *gin.Context) {
	renderPage(c, http.StatusOK, "admin/category_form", "New category", gin.H{
		"Action": "/admin/categories",
		"Form":   services.CategoryInput{},
	})
}

func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var in services.CategoryInput
	_ = c.ShouldBind(&in)
	_, err := h.deps.Categories.Create(c.Request.Context(), in)
	if fe, ok := formErrors(err, "name"); ok {
		renderPage(c, http.StatusUnprocessableEntity, "admin/category_form", "New category", gin.H{
			"Action": "/admin/categories", "Form": in, "Errors": fe,
		})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Category created.", "/admin/categories")
}

func (h *AdminHandler) EditCategory(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	cat, err := h.deps.Categories.GetByID(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, http.StatusOK, "admin/category_form", "Edit category", gin.H{
		"Action": "/admin/categories/" + c.Param("id"),
		"Form":   services.CategoryInput{Name: cat.Name, Description: cat.Description},
	})
}

func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	var in services.CategoryInput
	_ = c.ShouldBind(&in)
	_, err = h.deps.Categories.Update(c.Request.Context(), id, in)
	if fe, ok := formErrors(err, "name"); ok {
		renderPage(c, http.StatusUnprocessableEntity, "admin/category_form", "Edit category", gin.H{
			"Action": "/admin/categories/" + c.Param("id"), "Form": in, "Errors": fe,
		})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Category saved.", "/admin/categories")
}

// DeleteCategory refuses categories still holding articles.
func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := h.deps.Categories.Delete(c.Request.Context(), id); err != nil {
		if isConflict(err) {
			flashAndRedirect(c, "error", publicMessage(err), "/admin/categories")
			return
		}
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Category deleted.", "/admin/categories")
}

func (h *AdminHandler) Tags(c *gin.Context) {
	tags, err := h.deps.Tags.List(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, http.StatusOK, "admin/tags", "Tags", gin.H{"Tags": tags})
}

func (h *AdminHandler) NewTag(c *gin.Context) {
	renderPage(c, http.StatusOK, "admin/tag_form", "New tag", gin.H{
		"Action": "/admin/tags",
		"Form":   services.TagInput{Color: models.DefaultTagColor},
	})
}

func (h *AdminHandler) CreateTag(c *gin.Context) {
	var in services.TagInput
	_ = c.ShouldBind(&in)
	_, err := h.deps.Tags.Create(c.Request.Context(), in)
	if fe, ok := formErrors(err, "name"); ok {
		renderPage(c, http.StatusUnprocessableEntity, "admin/tag_form", "New tag", gin.H{
			"Action": "/admin/tags", "Form": in, "Errors": fe,
		})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Tag created.", "/admin/tags")
}

func (h *AdminHandler) EditTag(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	tag, err := h.deps.Tags.GetByID(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, http.StatusOK, "admin/tag_form", "Edit tag", gin.H{
		"Action": "/admin/tags/" + c.Param("id"),
		"Form":   services.TagInput{Name: tag.Name, Color: tag.Color},
	})
}

func (h *AdminHandler) UpdateTag(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	var in services.TagInput
	_ = c.ShouldBind(&in)
	_, err = h.deps.Tags.Update(c.Request.Context(), id, in)
	if fe, ok := formErrors(err, "name"); ok {
		renderPage(c, http.StatusUnprocessableEntity, "admin/tag_form", "Edit tag", gin.H{
			"Action": "/admin/tags/" + c.Param("id"), "Form": in, "Errors": fe,
		})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Tag saved.", "/admin/tags")
}

// DeleteTag refuses tags still linked to an article.
func (h *AdminHandler) DeleteTag(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := h.deps.Tags.Delete(c.Request.Context(), id); err != nil {
		if isConflict(err) {
			flashAndRedirect(c, "error", publicMessage(err), "/admin/tags")
			return
		}
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Tag deleted.", "/admin/tags")
}
