package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/bunpress/internal/auth"
	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
	"github.com/kartikbazzad/bunbase/bunpress/internal/middleware"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

// AuthHandler handles login, registration and the member area.
type AuthHandler struct {
	accounts     Accounts
	articles     AuthorArticles
	policy       auth.SessionPolicy
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts Accounts, articles AuthorArticles, policy auth.SessionPolicy, cookieSecure bool) *AuthHandler {
	return &AuthHandler{accounts: accounts, articles: articles, policy: policy, cookieSecure: cookieSecure}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, remember bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   h.policy.CookieMaxAge(remember),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookieSecure,
	})
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookieSecure,
	})
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

func landingFor(user *models.User) string {
	if user.IsAdmin() {
		return "/admin"
	}
	return "/dashboard"
}

// LoginForm shows the login page.
func (h *AuthHandler) LoginForm(c *gin.Context) {
	if user, ok := middleware.GetUser(c); ok {
		c.Redirect(http.StatusSeeOther, landingFor(user))
		return
	}
	renderPage(c, http.StatusOK, "auth/login", "Log in", gin.H{"Next": safeNext(c.Query("next"))})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	next := safeNext(c.PostForm("next"))
	remember := c.PostForm("remember") != ""

	user, token, err := h.accounts.Login(c.Request.Context(), email, c.PostForm("password"), remember)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			renderError(c, err)
			return
		}
		renderPage(c, http.StatusUnauthorized, "auth/login", "Log in", gin.H{
			"Email": email,
			"Next":  next,
			"Error": "Invalid email or password.",
		})
		return
	}

	h.setSessionCookie(c, token, remember)
	logger.FromContext(c.Request.Context()).Info("user logged in", "user_id", user.ID)
	if next == "" {
		next = landingFor(user)
	}
	c.Redirect(http.StatusSeeOther, next)
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.GetSessionToken(c); token != "" {
		if err := h.accounts.Logout(c.Request.Context(), token); err != nil {
			logger.FromContext(c.Request.Context()).Warn("failed to delete session", "error", err)
		}
	}
	h.clearSessionCookie(c)
	flashAndRedirect(c, "info", "You are logged out.", "/")
}

// RegisterForm shows the registration page.
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	renderPage(c, http.StatusOK, "auth/register", "Register", gin.H{"Form": auth.RegisterInput{}})
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var in auth.RegisterInput
	_ = c.ShouldBind(&in)

	user, err := h.accounts.Register(c.Request.Context(), in)
	if fe, ok := fieldErrors(err); ok {
		in.Password, in.PasswordConfirm = "", ""
		renderPage(c, http.StatusUnprocessableEntity, "auth/register", "Register", gin.H{"Form": in, "Errors": fe})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	_, token, err := h.accounts.Login(c.Request.Context(), user.Email, in.Password, false)
	if err != nil {
		flashAndRedirect(c, "success", "Your account was created, you can now log in.", "/login")
		return
	}
	h.setSessionCookie(c, token, false)
	flashAndRedirect(c, "success", "Welcome "+user.Name+"!", "/dashboard")
}

// Dashboard is the member home page.
func (h *AuthHandler) Dashboard(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusSeeOther, middleware.LoginPath)
		return
	}
	articles, err := h.articles.ListByAuthor(c.Request.Context(), user.ID)
	if err != nil {
		renderError(c, err)
		return
	}
	renderPage(c, http.StatusOK, "auth/dashboard", "My account", gin.H{"Articles": articles})
}

// ProfileForm shows the profile editor.
func (h *AuthHandler) ProfileForm(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusSeeOther, middleware.LoginPath)
		return
	}
	renderPage(c, http.StatusOK, "auth/profile", "My profile", gin.H{
		"Form": auth.ProfileInput{Name: user.Name, Email: user.Email},
	})
}

// UpdateProfile saves the profile form.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusSeeOther, middleware.LoginPath)
		return
	}
	var in auth.ProfileInput
	_ = c.ShouldBind(&in)

	updated, err := h.accounts.UpdateProfile(c.Request.Context(), user, in)
	if fe, ok := fieldErrors(err); ok {
		in.CurrentPassword, in.NewPassword, in.PasswordConfirm = "", "", ""
		renderPage(c, http.StatusUnprocessableEntity, "auth/profile", "My profile", gin.H{"Form": in, "Errors": fe})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}
	middleware.SetUser(c, updated)
	flashAndRedirect(c, "success", "Your profile was updated.", "/profile")
}
