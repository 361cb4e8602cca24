package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/kartikbazzad/bunbase/bunpress/internal/auth"
	"github.com/kartikbazzad/bunbase/bunpress/internal/authz"
	"github.com/kartikbazzad/bunbase/bunpress/internal/handlers"
	"github.com/kartikbazzad/bunbase/bunpress/internal/metrics"
	"github.com/kartikbazzad/bunbase/bunpress/internal/middleware"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/web"
)

type tokenSessions map[string]*models.User

func (s tokenSessions) ValidateSession(_ context.Context, token string) (*models.User, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid session")
}

// newTestRouter wires the real router, renderer and policy. Handlers have
// no services behind them, so only requests stopped before reaching a
// handler, or handlers without dependencies, can be exercised.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestRouterWith(t, RouterOptions{
		CommentLimiter: middleware.NewRateLimiter(rate.Limit(0), 0, time.Minute),
		LoginLimiter:   middleware.NewRateLimiter(rate.Limit(0), 0, time.Minute),
	})
}

func newTestRouterWith(t *testing.T, o RouterOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	renderer, err := web.NewRenderer(template.FuncMap{
		"setting":  func(string) string { return "" },
		"markdown": func(s string) template.HTML { return template.HTML(template.HTMLEscapeString(s)) },
		"siteName": func() string { return "Atelier" },
	})
	require.NoError(t, err)
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)

	sessions := tokenSessions{
		"admin":  {ID: 1, Name: "Ada", Roles: []string{models.RoleUser, models.RoleAdmin}},
		"member": {ID: 2, Name: "Jo", Roles: []string{models.RoleUser}},
	}
	h := Handlers{
		Public:  handlers.NewPublicHandler(handlers.PublicDeps{}),
		Admin:   handlers.NewAdminHandler(handlers.AdminDeps{}),
		Auth:    handlers.NewAuthHandler(nil, nil, auth.SessionPolicy{TTL: time.Hour}, false),
		Uploads: handlers.NewUploadsHandler(nil),
		Health: handlers.NewHealthHandler(handlers.HealthCheck{
			Name: "database", Critical: true, Check: func(context.Context) error { return nil },
		}),
	}
	o.HTMLRender = renderer
	o.Sessions = sessions
	o.Access = enforcer
	o.Metrics = metrics.NewRecorder(nil)
	r, err := NewRouter(h, o)
	require.NoError(t, err)
	return r
}

func serve(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnonymousAdminRedirectsToLogin(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/admin/articles?status=draft", "")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?next=%2Fadmin%2Farticles%3Fstatus%3Ddraft", w.Header().Get("Location"))
}

func TestAnonymousAdminAPIGets401(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/admin/api/media", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Please log in."}`, w.Body.String())
}

func TestMemberCannotReachAdmin(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/admin", "member")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "You are not allowed to see this page.")
}

func TestAnonymousDashboardRedirects(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/dashboard", "")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login?next="))
}

func TestPublicPagesWithoutServices(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/about", "/legal", "/contact", "/login", "/register"} {
		w := serve(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestLoginRateLimited(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodPost, "/login", "")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many requests")
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bunpress_http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/does/not/exist", "admin")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found.")
	assert.Contains(t, w.Body.String(), "Ada")
}

func TestSpoofedForwardedForStillLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(rate.Limit(0), 1, time.Minute)
	r := newTestRouterWith(t, RouterOptions{CommentLimiter: limiter, LoginLimiter: limiter})
	// The peer already spent its only token.
	require.True(t, limiter.Allow("203.0.113.7"))

	for _, forged := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodPost, "/register", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", forged)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code, forged)
	}
	assert.Equal(t, 1, limiter.Len())
}

func TestTrustedProxyForwardsClientIP(t *testing.T) {
	limiter := middleware.NewRateLimiter(rate.Limit(0), 0, time.Minute)
	r := newTestRouterWith(t, RouterOptions{
		CommentLimiter: limiter,
		LoginLimiter:   limiter,
		TrustedProxies: []string{"10.0.0.0/8"},
	})

	for _, client := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.1.2.3:4000"
		req.Header.Set("X-Forwarded-For", client)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2, limiter.Len())
}

func TestInvalidTrustedProxy(t *testing.T) {
	_, err := NewRouter(Handlers{}, RouterOptions{TrustedProxies: []string{"not-a-cidr"}})
	assert.Error(t, err)
}
