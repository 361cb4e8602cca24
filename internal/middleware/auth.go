// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/bunpress/internal/auth"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

const userContextName = "user"

// SessionValidator resolves a session token to its user.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.User, error)
}

// LoadUser validates the session cookie when present and stores the user in
// the context. Anonymous requests pass through; access rules decide later.
func LoadUser(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := GetSessionToken(c); token != "" {
			if user, err := sessions.ValidateSession(c.Request.Context(), token); err == nil {
				SetUser(c, user)
			}
		}
		c.Next()
	}
}

// SetUser stores the authenticated user in the context.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userContextName, user)
}

// GetUser retrieves the user from the Gin context
func GetUser(c *gin.Context) (*models.User, bool) {
	val, ok := c.Get(userContextName)
	if !ok {
		return nil, false
	}
	user, ok := val.(*models.User)
	return user, ok && user != nil
}

// CurrentUser is GetUser without the flag; nil for anonymous visitors.
func CurrentUser(c *gin.Context) *models.User {
	user, _ := GetUser(c)
	return user
}

// GetSessionToken extracts the session token from the cookie or a Bearer header.
func GetSessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
