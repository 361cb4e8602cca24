package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/middleware"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

const mediaPerPage = 24

// MediaItem is the media picker representation.
type MediaItem struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	OriginalURL string `json:"originalUrl"`
	Alt         string `json:"alt"`
}

func mediaItem(m *models.Media) MediaItem {
	return MediaItem{ID: m.ID, URL: m.ThumbnailURL(), OriginalURL: m.OriginalURL(), Alt: m.Alt}
}

func (h *AdminHandler) renderMedia(c *gin.Context, status int, errs apperrors.FieldErrors) {
	items, err := h.deps.Media.List(c.Request.Context(), pageParam(c), mediaPerPage)
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, status, "admin/media", "Media", gin.H{"Media": items, "Errors": errs})
}

// Media shows the library.
func (h *AdminHandler) Media(c *gin.Context) {
	h.renderMedia(c, http.StatusOK, nil)
}

// UploadMedia stores an uploaded image and its variants.
func (h *AdminHandler) UploadMedia(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.renderMedia(c, http.StatusUnprocessableEntity, apperrors.FieldErrors{"file": "Please choose an image."})
		return
	}
	f, err := fh.Open()
	if err != nil {
		renderError(c, err)
		return
	}
	defer f.Close()

	var userID int64
	if user := middleware.CurrentUser(c); user != nil {
		userID = user.ID
	}
	_, err = h.deps.Media.Upload(c.Request.Context(), fh.Filename, f, c.PostForm("alt"), userID)
	if fe, ok := fieldErrors(err); ok {
		h.renderMedia(c, http.StatusUnprocessableEntity, fe)
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Image uploaded.", "/admin/media")
}

// DeleteMedia removes an image and its files.
func (h *AdminHandler) DeleteMedia(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := h.deps.Media.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Image deleted.", "/admin/media")
}

// MediaPicker lists every image as JSON for the editor.
func (h *AdminHandler) MediaPicker(c *gin.Context) {
	all, err := h.deps.Media.All(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	items := make([]MediaItem, 0, len(all))
	for i := range all {
		items = append(items, mediaItem(&all[i]))
	}
	c.JSON(http.StatusOK, items)
}

type altRequest struct {
	Alt string `json:"alt"`
}

// UpdateMediaAlt changes the alternative text from the library grid.
func (h *AdminHandler) UpdateMediaAlt(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	var req altRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	m, err := h.deps.Media.UpdateAlt(c.Request.Context(), id, req.Alt)
	if fe, ok := fieldErrors(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fe["alt"]})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, mediaItem(m))
}
