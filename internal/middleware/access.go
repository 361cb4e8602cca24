package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
	"github.com/kartikbazzad/bunbase/bunpress/internal/web"
)

// LoginPath is where anonymous visitors of protected pages are sent.
const LoginPath = "/login"

// AccessChecker answers role based route questions.
type AccessChecker interface {
	Allowed(roles []string, path, method string) (bool, error)
	Protected(path string) (bool, error)
}

// DeniedFunc renders the response for a refused request.
type DeniedFunc func(c *gin.Context, status int)

// RequireAccess enforces the route policies. Anonymous visitors of a
// protected page are redirected to the login form (JSON endpoints get 401);
// logged-in users lacking the role get 403.
func RequireAccess(checker AccessChecker, denied DeniedFunc) gin.HandlerFunc {
	if denied == nil {
		denied = func(c *gin.Context, status int) {
			c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		}
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		protected, err := checker.Protected(path)
		if err != nil {
			logger.FromContext(c.Request.Context()).Error("authz check failed", "path", path, "error", err)
			denied(c, http.StatusInternalServerError)
			c.Abort()
			return
		}
		if !protected {
			c.Next()
			return
		}

		user, ok := GetUser(c)
		if !ok {
			if wantsJSON(c) {
				denied(c, http.StatusUnauthorized)
			} else {
				web.Redirect(c, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			}
			c.Abort()
			return
		}

		allowed, err := checker.Allowed(user.Roles, path, c.Request.Method)
		if err != nil || !allowed {
			if err != nil {
				logger.FromContext(c.Request.Context()).Error("authz check failed", "path", path, "error", err)
			}
			denied(c, http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func wantsJSON(c *gin.Context) bool {
	if strings.Contains(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
