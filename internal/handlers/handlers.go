// Package handlers holds the HTTP handlers of the public site, the member
// area and the back-office.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
	"github.com/kartikbazzad/bunbase/bunpress/internal/middleware"
	"github.com/kartikbazzad/bunbase/bunpress/internal/web"
)

// renderPage renders a full page with the data every layout reads.
func renderPage(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["User"] = middleware.CurrentUser(c)
	data["Flashes"] = web.TakeFlashes(c)
	data["Path"] = c.Request.URL.Path
	c.HTML(status, name, data)
}

// renderPartial renders a fragment for htmx.
func renderPartial(c *gin.Context, status int, name string, data any) {
	c.HTML(status, web.PartialPrefix+name, data)
}

// renderError answers err with the error page, or JSON for API callers.
func renderError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed", "path", c.Request.URL.Path, "error", err)
		_ = c.Error(err)
	}
	message := apperrors.PublicMessage(err)
	if wantsJSON(c) {
		c.AbortWithStatusJSON(status, gin.H{"error": message})
		return
	}
	renderPage(c, status, "public/error", http.StatusText(status), gin.H{"Status": status, "Message": message})
	c.Abort()
}

// Denied renders refusals from the access middleware.
func Denied(c *gin.Context, status int) {
	var err error
	switch status {
	case http.StatusUnauthorized:
		err = apperrors.Unauthorized("Please log in.")
	case http.StatusForbidden:
		err = apperrors.Forbidden("You are not allowed to see this page.")
	case http.StatusTooManyRequests:
		err = apperrors.New(status, "Too many requests, please try again in a minute.", nil)
	default:
		err = apperrors.New(status, http.StatusText(status), nil)
	}
	renderError(c, err)
}

// NotFound is the NoRoute handler.
func NotFound(c *gin.Context) {
	renderError(c, apperrors.NotFound("Page not found."))
}

// TooManyRequests renders the rate limit refusal.
func TooManyRequests(c *gin.Context) {
	Denied(c, http.StatusTooManyRequests)
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.Request.URL.Path, "/api/") ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}

// fieldErrors extracts form validation messages from err.
func fieldErrors(err error) (apperrors.FieldErrors, bool) {
	var fe apperrors.FieldErrors
	if apperrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// formErrors is fieldErrors that also reports a uniqueness conflict on field.
func formErrors(err error, field string) (apperrors.FieldErrors, bool) {
	if fe, ok := fieldErrors(err); ok {
		return fe, true
	}
	if isConflict(err) {
		return apperrors.FieldErrors{field: publicMessage(err)}, true
	}
	return nil, false
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NotFound("Not found.")
	}
	return id, nil
}

// pageParam reads ?page=, defaulting to 1.
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// optionalID parses a select value; empty or invalid means none.
func optionalID(raw string) *int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func ids(raw []string) []int64 {
	out := make([]int64, 0, len(raw))
	for _, r := range raw {
		if id := optionalID(r); id != nil {
			out = append(out, *id)
		}
	}
	return out
}

func flashAndRedirect(c *gin.Context, kind, message, location string) {
	web.AddFlash(c, kind, message)
	web.Redirect(c, location)
}

func isConflict(err error) bool {
	return apperrors.Is(err, apperrors.ErrConflict)
}

func publicMessage(err error) string {
	return apperrors.PublicMessage(err)
}
