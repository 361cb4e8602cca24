// Package server wires the HTTP routes and the application lifecycle.
package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/kartikbazzad/bunbase/bunpress/internal/handlers"
	"github.com/kartikbazzad/bunbase/bunpress/internal/metrics"
	"github.com/kartikbazzad/bunbase/bunpress/internal/middleware"
)

// Handlers groups every route handler.
type Handlers struct {
	Public  *handlers.PublicHandler
	Admin   *handlers.AdminHandler
	Auth    *handlers.AuthHandler
	Uploads *handlers.UploadsHandler
	Health  *handlers.HealthHandler
}

// RouterOptions carries the cross-cutting pieces of the router.
type RouterOptions struct {
	HTMLRender     render.HTMLRender
	Sessions       middleware.SessionValidator
	Access         middleware.AccessChecker
	Metrics        *metrics.Recorder // nil disables /metrics
	CommentLimiter *middleware.RateLimiter
	LoginLimiter   *middleware.RateLimiter
	MaxUploadBytes int64
	// TrustedProxies may rewrite the client IP via X-Forwarded-For.
	// nil trusts nobody, so rate limits key on the socket peer.
	TrustedProxies []string
}

// NewRouter builds the gin engine with every route.
func NewRouter(h Handlers, o RouterOptions) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(o.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.HTMLRender = o.HTMLRender
	if o.MaxUploadBytes > 0 {
		// Multipart overhead on top of the file itself.
		router.MaxMultipartMemory = o.MaxUploadBytes + 1<<20
	}

	router.Use(middleware.RequestLogger(), middleware.Recovery())
	if o.Metrics != nil {
		router.Use(o.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(o.Metrics.Handler()))
	}

	router.GET("/api/health", h.Health.Health)
	router.GET("/uploads/*filepath", h.Uploads.Serve)
	router.GET("/sitemap.xml", h.Public.Sitemap)

	site := router.Group("")
	site.Use(middleware.LoadUser(o.Sessions), middleware.RequireAccess(o.Access, handlers.Denied))

	// Public pages
	site.GET("/", h.Public.Home)
	site.GET("/blog", h.Public.Blog)
	site.GET("/blog/:slug", h.Public.Article)
	site.GET("/blog/:slug/comments", h.Public.Comments)
	site.POST("/blog/:slug/comments", middleware.RateLimit(o.CommentLimiter, handlers.TooManyRequests), h.Public.PostComment)
	site.GET("/search", h.Public.Search)
	site.GET("/about", h.Public.About)
	site.GET("/legal", h.Public.Legal)
	site.GET("/contact", h.Public.ContactForm)
	site.POST("/contact", middleware.RateLimit(o.CommentLimiter, handlers.TooManyRequests), h.Public.Contact)

	// Accounts
	loginLimit := middleware.RateLimit(o.LoginLimiter, handlers.TooManyRequests)
	site.GET("/login", h.Auth.LoginForm)
	site.POST("/login", loginLimit, h.Auth.Login)
	site.POST("/logout", h.Auth.Logout)
	site.GET("/register", h.Auth.RegisterForm)
	site.POST("/register", loginLimit, h.Auth.Register)
	site.GET("/dashboard", h.Auth.Dashboard)
	site.GET("/profile", h.Auth.ProfileForm)
	site.POST("/profile", h.Auth.UpdateProfile)

	// Back-office; RequireAccess restricts it to ROLE_ADMIN.
	admin := site.Group("/admin")
	admin.GET("", h.Admin.Dashboard)

	admin.GET("/articles", h.Admin.Articles)
	admin.GET("/articles/new", h.Admin.NewArticle)
	admin.POST("/articles", h.Admin.CreateArticle)
	admin.GET("/articles/:id/edit", h.Admin.EditArticle)
	admin.POST("/articles/:id", h.Admin.UpdateArticle)
	admin.POST("/articles/:id/publish", h.Admin.PublishArticle)
	admin.POST("/articles/:id/unpublish", h.Admin.UnpublishArticle)
	admin.POST("/articles/:id/archive", h.Admin.ArchiveArticle)
	admin.POST("/articles/:id/delete", h.Admin.DeleteArticle)
	admin.POST("/articles/:id/comments/approve", h.Admin.ApproveAllComments)

	admin.GET("/categories", h.Admin.Categories)
	admin.GET("/categories/new", h.Admin.NewCategory)
	admin.POST("/categories", h.Admin.CreateCategory)
	admin.GET("/categories/:id/edit", h.Admin.EditCategory)
	admin.POST("/categories/:id", h.Admin.UpdateCategory)
	admin.POST("/categories/:id/delete", h.Admin.DeleteCategory)

	admin.GET("/tags", h.Admin.Tags)
	admin.GET("/tags/new", h.Admin.NewTag)
	admin.POST("/tags", h.Admin.CreateTag)
	admin.GET("/tags/:id/edit", h.Admin.EditTag)
	admin.POST("/tags/:id", h.Admin.UpdateTag)
	admin.POST("/tags/:id/delete", h.Admin.DeleteTag)

	admin.GET("/comments", h.Admin.Comments)
	admin.POST("/comments/:id/approve", h.Admin.ApproveComment)
	admin.POST("/comments/:id/reject", h.Admin.RejectComment)
	admin.POST("/comments/:id/delete", h.Admin.DeleteComment)

	admin.GET("/media", h.Admin.Media)
	admin.POST("/media", h.Admin.UploadMedia)
	admin.POST("/media/:id/delete", h.Admin.DeleteMedia)
	admin.GET("/api/media", h.Admin.MediaPicker)
	admin.POST("/api/media/:id/alt", h.Admin.UpdateMediaAlt)

	admin.GET("/settings", h.Admin.Settings)
	admin.GET("/settings/:group", h.Admin.SettingsGroup)
	admin.POST("/settings/:group", h.Admin.UpdateSettingsGroup)

	router.NoRoute(middleware.LoadUser(o.Sessions), handlers.NotFound)
	return router, nil
}
