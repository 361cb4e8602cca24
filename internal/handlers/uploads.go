package handlers

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
)

// UploadsHandler streams stored media objects under /uploads.
type UploadsHandler struct {
	media MediaStore
}

func NewUploadsHandler(media MediaStore) *UploadsHandler {
	return &UploadsHandler{media: media}
}

// Serve handles GET /uploads/*filepath.
func (h *UploadsHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(path.Clean("/"+c.Param("filepath")), "/")
	if key == "" || strings.Contains(key, "..") {
		renderError(c, apperrors.NotFound("File not found."))
		return
	}
	obj, err := h.media.Open(c.Request.Context(), key)
	if err != nil {
		renderError(c, err)
		return
	}
	defer obj.Reader.Close()

	if obj.ContentType != "" {
		c.Header("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if !obj.LastModified.IsZero() {
		c.Header("Last-Modified", obj.LastModified.UTC().Format(http.TimeFormat))
	}
	// Keys are random per upload, so content never changes under a URL.
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, obj.Reader); err != nil {
		logger.FromContext(c.Request.Context()).Warn("failed to stream upload", "key", key, "error", err)
	}
}
