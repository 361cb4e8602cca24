package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IsHTMX reports whether the request was sent by htmx.
func IsHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// Target returns the id of the element htmx will swap.
func Target(c *gin.Context) string {
	if !IsHTMX(c) {
		return ""
	}
	return c.GetHeader("HX-Target")
}

// Redirect sends the browser to location; htmx requests get HX-Redirect
// so the whole page navigates instead of swapping a fragment.
func Redirect(c *gin.Context, location string) {
	if IsHTMX(c) {
		c.Header("HX-Redirect", location)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}
