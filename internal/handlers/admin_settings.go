package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/services"
)

// Settings lists the setting groups.
func (h *AdminHandler) Settings(c *gin.Context) {
	groups, err := h.deps.Settings.Groups(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, http.StatusOK, "admin/settings", "Settings", gin.H{"Groups": groups})
}

func (h *AdminHandler) renderSettingsGroup(c *gin.Context, status int, group string, errs apperrors.FieldErrors) {
	ctx := c.Request.Context()
	settings, err := h.deps.Settings.ByGroup(ctx, group)
	if err != nil {
		renderError(c, err)
		return
	}
	images, err := h.deps.Media.All(ctx)
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, status, "admin/settings_group", services.GroupLabel(group), gin.H{
		"Group":    group,
		"Settings": settings,
		"Media":    images,
		"Errors":   errs,
	})
}

// SettingsGroup shows the editor of one group.
func (h *AdminHandler) SettingsGroup(c *gin.Context) {
	h.renderSettingsGroup(c, http.StatusOK, c.Param("group"), nil)
}

// UpdateSettingsGroup saves every submitted key of the group.
func (h *AdminHandler) UpdateSettingsGroup(c *gin.Context) {
	group := c.Param("group")
	if err := c.Request.ParseForm(); err != nil {
		renderError(c, apperrors.BadRequest("Invalid form."))
		return
	}
	values := make(map[string]string, len(c.Request.PostForm))
	for key := range c.Request.PostForm {
		values[key] = c.Request.PostForm.Get(key)
	}

	err := h.deps.Settings.UpdateGroup(c.Request.Context(), group, values)
	if fe, ok := fieldErrors(err); ok {
		h.renderSettingsGroup(c, http.StatusUnprocessableEntity, group, fe)
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	flashAndRedirect(c, "success", "Settings saved.", "/admin/settings/"+group)
}
