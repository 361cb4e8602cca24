package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/web"
)

const moderationLimit = 50

// Comments shows the moderation queue, filtered by ?status=.
func (h *AdminHandler) Comments(c *gin.Context) {
	ctx := c.Request.Context()
	status := models.CommentStatus(c.Query("status"))
	if !status.Valid() {
		status = ""
	}
	comments, err := h.deps.Comments.ListRecent(ctx, status, moderationLimit)
	if err != nil {
		renderError(c, err)
		return
	}
	pending, err := h.deps.Comments.CountPending(ctx)
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, http.StatusOK, "admin/comments", "Comments", gin.H{
		"Comments": comments,
		"Status":   status,
		"Pending":  pending,
	})
}

func (h *AdminHandler) moderate(c *gin.Context, change func(*gin.Context, int64) (*models.Comment, error), message string) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	comment, err := change(c, id)
	if err != nil {
		renderError(c, err)
		return
	}
	if web.IsHTMX(c) {
		renderPartial(c, http.StatusOK, "comment_row", comment)
		return
	}
	flashAndRedirect(c, "success", message, "/admin/comments")
}

func (h *AdminHandler) ApproveComment(c *gin.Context) {
	h.moderate(c, func(c *gin.Context, id int64) (*models.Comment, error) {
		return h.deps.Comments.Approve(c.Request.Context(), id)
	}, "Comment approved.")
}

func (h *AdminHandler) RejectComment(c *gin.Context) {
	h.moderate(c, func(c *gin.Context, id int64) (*models.Comment, error) {
		return h.deps.Comments.Reject(c.Request.Context(), id)
	}, "Comment rejected.")
}

func (h *AdminHandler) DeleteComment(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := h.deps.Comments.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Comment deleted.", "/admin/comments")
}
