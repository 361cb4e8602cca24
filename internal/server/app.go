package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/bunbase/bunpress/internal/auth"
	"github.com/kartikbazzad/bunbase/bunpress/internal/authz"
	"github.com/kartikbazzad/bunbase/bunpress/internal/config"
	"github.com/kartikbazzad/bunbase/bunpress/internal/content"
	"github.com/kartikbazzad/bunbase/bunpress/internal/database"
	"github.com/kartikbazzad/bunbase/bunpress/internal/events"
	"github.com/kartikbazzad/bunbase/bunpress/internal/handlers"
	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
	"github.com/kartikbazzad/bunbase/bunpress/internal/media"
	"github.com/kartikbazzad/bunbase/bunpress/internal/metrics"
	"github.com/kartikbazzad/bunbase/bunpress/internal/middleware"
	"github.com/kartikbazzad/bunbase/bunpress/internal/scheduler"
	"github.com/kartikbazzad/bunbase/bunpress/internal/services"
	"github.com/kartikbazzad/bunbase/bunpress/internal/storage"
	"github.com/kartikbazzad/bunbase/bunpress/internal/web"
)

const (
	sessionCleanupInterval = time.Hour
	limiterSweepInterval   = 10 * time.Minute
	shutdownTimeout        = 10 * time.Second
)

// App owns every long-lived resource of the server.
type App struct {
	cfg        *config.Config
	httpServer *http.Server
	scheduler  *scheduler.Scheduler
	closers    []func()
}

// NewApp connects the database, the media store and the event bus, then
// builds the services and the router.
func NewApp(ctx context.Context, cfg *config.Config) (app *App, err error) {
	app = &App{cfg: cfg}
	defer func() {
		if err != nil {
			app.Close()
			app = nil
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDB(ctx, cfg.Database)
	if err != nil {
		return app, err
	}
	app.closers = append(app.closers, db.Close)

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return app, fmt.Errorf("failed to open media store: %w", err)
	}

	publisher, closeEvents, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		return app, err
	}
	app.closers = append(app.closers, closeEvents)

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder(nil)
	}

	markdown := content.NewRenderer()
	articles := services.NewArticleService(db.Pool, markdown, publisher)
	categories := services.NewCategoryService(db.Pool)
	tags := services.NewTagService(db.Pool)
	comments := services.NewCommentService(db.Pool, publisher)
	processor := media.NewProcessor(cfg.Media.MaxUploadBytes, cfg.Media.Quality).WithMaxPixels(cfg.Media.MaxPixels)
	if cfg.Media.Workers > 0 {
		resizePool, err := ants.NewPool(cfg.Media.Workers, ants.WithPanicHandler(func(v any) {
			logger.Error("Image resize panic", "panic", v)
		}))
		if err != nil {
			return app, fmt.Errorf("failed to create resize pool: %w", err)
		}
		processor.WithPool(resizePool)
		app.closers = append(app.closers, func() { _ = resizePool.ReleaseTimeout(3 * time.Second) })
	}
	mediaSvc := services.NewMediaService(db.Pool, store, processor, publisher)
	settings := services.NewSettingService(db.Pool)
	mediaSvc.WithCacheClearer(settings)
	contact := services.NewContactService(publisher)
	dashboard := services.NewDashboardService(articles, categories, comments, mediaSvc)
	if recorder != nil {
		articles.WithSearchObserver(recorder)
		mediaSvc.WithUploadObserver(recorder)
	}

	seeded, err := settings.SeedDefaults(ctx)
	if err != nil {
		return app, err
	}
	if seeded > 0 {
		logger.Info("Default settings created", "count", seeded)
	}

	policy := auth.SessionPolicy{TTL: cfg.Security.SessionTTL, RememberTTL: cfg.Security.RememberTTL}
	accounts := auth.NewAuth(db.Pool, policy)
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return app, err
	}

	htmlRender, err := web.NewRenderer(template.FuncMap{
		"setting":  settings.Lookup,
		"markdown": markdown.MustRender,
		"siteName": func() string { return cfg.Server.SiteName },
	})
	if err != nil {
		return app, err
	}

	commentLimiter := middleware.PerMinute(cfg.Security.CommentsPerMinute, cfg.Security.CommentsPerMinute)
	loginLimiter := middleware.PerMinute(cfg.Security.LoginsPerMinute, cfg.Security.LoginsPerMinute)

	app.scheduler, err = scheduler.NewScheduler()
	if err != nil {
		return app, err
	}
	if _, err = app.scheduler.ScheduleSessionCleanup(sessionCleanupInterval, accounts); err != nil {
		return app, err
	}
	if _, err = app.scheduler.ScheduleSweep("rate-limit-sweep", limiterSweepInterval, commentLimiter, loginLimiter); err != nil {
		return app, err
	}

	h := Handlers{
		Public: handlers.NewPublicHandler(handlers.PublicDeps{
			Articles:      articles,
			Categories:    categories,
			Tags:          tags,
			Comments:      comments,
			Contact:       contact,
			SearchPerPage: cfg.Search.PerPage,
			BaseURL:       cfg.Server.BaseURL,
		}),
		Admin: handlers.NewAdminHandler(handlers.AdminDeps{
			Articles:   articles,
			Categories: categories,
			Tags:       tags,
			Comments:   comments,
			Media:      mediaSvc,
			Settings:   settings,
			Stats:      dashboard,
		}),
		Auth:    handlers.NewAuthHandler(accounts, articles, policy, cfg.CookieSecure()),
		Uploads: handlers.NewUploadsHandler(mediaSvc),
		Health: handlers.NewHealthHandler(
			handlers.HealthCheck{Name: "database", Critical: true, Check: db.Ping, Failure: "Database connection failed"},
			handlers.HealthCheck{Name: "storage", Check: mediaSvc.CheckStorage, Failure: "Storage unavailable"},
		),
	}
	router, err := NewRouter(h, RouterOptions{
		HTMLRender:     htmlRender,
		Sessions:       accounts,
		Access:         enforcer,
		Metrics:        recorder,
		CommentLimiter: commentLimiter,
		LoginLimiter:   loginLimiter,
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
		TrustedProxies: cfg.Server.TrustedProxies,
	})
	if err != nil {
		return app, err
	}

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bunpress server starting", "addr", a.httpServer.Addr, "environment", a.cfg.Server.Environment)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// Close stops the scheduler and releases connections, newest first.
func (a *App) Close() {
	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil {
			logger.Warn("failed to stop scheduler", "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
