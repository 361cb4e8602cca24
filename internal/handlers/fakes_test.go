package handlers

import (
	"bytes"
	"context"
	"html/template"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kartikbazzad/bunbase/bunpress/internal/auth"
	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/middleware"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/search"
	"github.com/kartikbazzad/bunbase/bunpress/internal/services"
	"github.com/kartikbazzad/bunbase/bunpress/internal/storage"
	"github.com/kartikbazzad/bunbase/bunpress/internal/web"
)

var testTime = time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)

type fakeArticles struct {
	items      []models.Article
	lastFilter services.ArticleFilter
	lastSearch string
	result     search.Result
	createErr  error
	created    []models.ArticleInput
}

func newFakeArticles() *fakeArticles {
	published := testTime
	return &fakeArticles{items: []models.Article{
		{ID: 1, Title: "Spring knitting", Slug: "spring-knitting", Content: "Wool **all** day",
			Status: models.ArticlePublished, PublishedAt: &published, CreatedAt: testTime, UpdatedAt: testTime},
		{ID: 2, Title: "Draft ideas", Slug: "draft-ideas", Status: models.ArticleDraft, CreatedAt: testTime},
	}}
}

func (f *fakeArticles) find(id int64) (*models.Article, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			a := f.items[i]
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("Article not found.")
}

func (f *fakeArticles) published() []models.Article {
	var out []models.Article
	for _, a := range f.items {
		if a.IsPublished() {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeArticles) ListPublished(_ context.Context, filter services.ArticleFilter, page, perPage int) (models.Page[models.Article], error) {
	f.lastFilter = filter
	items := f.published()
	return models.NewPage(items, len(items), page, perPage), nil
}

func (f *fakeArticles) Latest(context.Context, int) ([]models.Article, error) {
	return f.published(), nil
}

func (f *fakeArticles) GetPublishedBySlug(_ context.Context, slug string) (*models.Article, error) {
	for _, a := range f.published() {
		if a.Slug == slug {
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("Article not found.")
}

func (f *fakeArticles) AllPublished(context.Context) ([]models.Article, error) {
	return f.published(), nil
}

func (f *fakeArticles) Search(_ context.Context, text string, page, perPage int) search.Result {
	f.lastSearch = text
	if f.result.Page.PerPage == 0 {
		return search.Result{Page: models.NewPage[models.Article](nil, 0, page, perPage), Tier: search.TierNone}
	}
	return f.result
}

func (f *fakeArticles) GetByID(_ context.Context, id int64) (*models.Article, error) {
	return f.find(id)
}

func (f *fakeArticles) Create(_ context.Context, in models.ArticleInput, userID int64) (*models.Article, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	a := models.Article{ID: int64(len(f.items) + 1), Title: in.Title, Status: in.Status, UserID: &userID}
	f.items = append(f.items, a)
	return &a, nil
}

func (f *fakeArticles) Update(_ context.Context, id int64, in models.ArticleInput) (*models.Article, error) {
	a, err := f.find(id)
	if err != nil {
		return nil, err
	}
	a.Title = in.Title
	return a, nil
}

func (f *fakeArticles) setStatus(id int64, status models.ArticleStatus) (*models.Article, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Status = status
			if status == models.ArticlePublished {
				now := testTime
				f.items[i].PublishedAt = &now
			} else {
				f.items[i].PublishedAt = nil
			}
			a := f.items[i]
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("Article not found.")
}

func (f *fakeArticles) Publish(_ context.Context, id int64) (*models.Article, error) {
	return f.setStatus(id, models.ArticlePublished)
}

func (f *fakeArticles) Unpublish(_ context.Context, id int64) (*models.Article, error) {
	return f.setStatus(id, models.ArticleDraft)
}

func (f *fakeArticles) Archive(_ context.Context, id int64) (*models.Article, error) {
	return f.setStatus(id, models.ArticleArchived)
}

func (f *fakeArticles) Delete(_ context.Context, id int64) error {
	_, err := f.find(id)
	return err
}

func (f *fakeArticles) ListRecent(_ context.Context, _ models.ArticleStatus, page, perPage int) (models.Page[models.Article], error) {
	return models.NewPage(f.items, len(f.items), page, perPage), nil
}

func (f *fakeArticles) CountByStatus(context.Context) (models.StatusCounts, error) {
	counts := models.StatusCounts{}
	for _, a := range f.items {
		counts[a.Status]++
	}
	return counts, nil
}

func (f *fakeArticles) ListByAuthor(context.Context, int64) ([]models.Article, error) {
	return f.items, nil
}

type fakeCategories struct {
	items     []models.Category
	deleteErr error
}

func (f *fakeCategories) List(context.Context) ([]models.Category, error) { return f.items, nil }
func (f *fakeCategories) ListNonEmpty(context.Context) ([]models.Category, error) {
	return f.items, nil
}

func (f *fakeCategories) GetByID(_ context.Context, id int64) (*models.Category, error) {
	for _, c := range f.items {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("Category not found.")
}

func (f *fakeCategories) Create(_ context.Context, in services.CategoryInput) (*models.Category, error) {
	if len(strings.TrimSpace(in.Name)) < 2 {
		return nil, apperrors.FieldErrors{"name": "Must be at least 2 characters."}
	}
	c := models.Category{ID: int64(len(f.items) + 1), Name: in.Name}
	f.items = append(f.items, c)
	return &c, nil
}

func (f *fakeCategories) Update(ctx context.Context, id int64, in services.CategoryInput) (*models.Category, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeCategories) Delete(context.Context, int64) error { return f.deleteErr }

type fakeTags struct {
	items     []models.Tag
	createErr error
}

func (f *fakeTags) List(context.Context) ([]models.Tag, error)         { return f.items, nil }
func (f *fakeTags) Popular(context.Context, int) ([]models.Tag, error) { return f.items, nil }

func (f *fakeTags) GetByID(_ context.Context, id int64) (*models.Tag, error) {
	for _, t := range f.items {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, apperrors.NotFound("Tag not found.")
}

func (f *fakeTags) GetBySlug(_ context.Context, slug string) (*models.Tag, error) {
	for _, t := range f.items {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, apperrors.NotFound("Tag not found.")
}

func (f *fakeTags) Create(_ context.Context, in services.TagInput) (*models.Tag, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Tag{ID: 9, Name: in.Name, Color: in.Color}, nil
}

func (f *fakeTags) Update(ctx context.Context, id int64, _ services.TagInput) (*models.Tag, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeTags) Delete(context.Context, int64) error { return nil }

type fakeComments struct {
	approved []models.Comment
	created  []models.CommentInput
	users    []*models.User
	status   map[int64]models.CommentStatus
}

func (f *fakeComments) Create(_ context.Context, _ int64, in models.CommentInput, user *models.User) (*models.Comment, error) {
	if len(strings.TrimSpace(in.Content)) < 5 {
		return nil, apperrors.FieldErrors{"content": "Must be at least 5 characters."}
	}
	f.created = append(f.created, in)
	f.users = append(f.users, user)
	return &models.Comment{ID: 1, Content: in.Content, Status: models.CommentPending}, nil
}

func (f *fakeComments) ListApproved(_ context.Context, _ int64, page int) (models.Page[models.Comment], error) {
	start := models.Offset(page, services.CommentsPerPage)
	end := min(start+services.CommentsPerPage, len(f.approved))
	var items []models.Comment
	if start < end {
		items = f.approved[start:end]
	}
	return models.NewPage(items, len(f.approved), page, services.CommentsPerPage), nil
}

func (f *fakeComments) ListRecent(context.Context, models.CommentStatus, int) ([]models.Comment, error) {
	return f.approved, nil
}

func (f *fakeComments) CountPending(context.Context) (int, error) { return 0, nil }

func (f *fakeComments) moderate(id int64, status models.CommentStatus) (*models.Comment, error) {
	if f.status == nil {
		f.status = map[int64]models.CommentStatus{}
	}
	f.status[id] = status
	return &models.Comment{ID: id, Content: "Lovely pattern", AuthorName: "Jo", Status: status, ArticleTitle: "Spring knitting", ArticleSlug: "spring-knitting"}, nil
}

func (f *fakeComments) Approve(_ context.Context, id int64) (*models.Comment, error) {
	return f.moderate(id, models.CommentApproved)
}

func (f *fakeComments) Reject(_ context.Context, id int64) (*models.Comment, error) {
	return f.moderate(id, models.CommentRejected)
}

func (f *fakeComments) Delete(context.Context, int64) error { return nil }

func (f *fakeComments) ApproveAllPending(context.Context, int64) (int64, error) { return 3, nil }

type fakeMedia struct {
	items   []models.Media
	objects map[string][]byte
	altErr  error
}

func (f *fakeMedia) Upload(_ context.Context, name string, r io.Reader, alt string, _ int64) (*models.Media, error) {
	data, _ := io.ReadAll(r)
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		return nil, apperrors.FieldErrors{"file": "Only JPEG, PNG, GIF and WebP images are accepted."}
	}
	m := models.Media{ID: int64(len(f.items) + 1), OriginalName: name, Path: "new", Alt: alt}
	f.items = append(f.items, m)
	return &m, nil
}

func (f *fakeMedia) GetByID(_ context.Context, id int64) (*models.Media, error) {
	for _, m := range f.items {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, apperrors.NotFound("Media not found.")
}

func (f *fakeMedia) List(_ context.Context, page, perPage int) (models.Page[models.Media], error) {
	return models.NewPage(f.items, len(f.items), page, perPage), nil
}

func (f *fakeMedia) All(context.Context) ([]models.Media, error) { return f.items, nil }

func (f *fakeMedia) UpdateAlt(ctx context.Context, id int64, alt string) (*models.Media, error) {
	if f.altErr != nil {
		return nil, f.altErr
	}
	m, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Alt = alt
	return m, nil
}

func (f *fakeMedia) Delete(ctx context.Context, id int64) error {
	_, err := f.GetByID(ctx, id)
	return err
}

func (f *fakeMedia) Open(_ context.Context, key string) (*storage.Object, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, apperrors.NotFound("File not found.")
	}
	return &storage.Object{
		Reader:       io.NopCloser(bytes.NewReader(data)),
		ContentType:  "image/jpeg",
		Size:         int64(len(data)),
		LastModified: testTime,
	}, nil
}

type fakeSettings struct {
	settings []models.Setting
	saved    map[string]string
}

func (f *fakeSettings) Groups(context.Context) ([]models.SettingGroup, error) {
	return []models.SettingGroup{{Name: "home", Label: "Home page", Count: len(f.settings)}}, nil
}

func (f *fakeSettings) ByGroup(_ context.Context, group string) ([]models.Setting, error) {
	if group != "home" {
		return nil, apperrors.NotFound("Settings group not found.")
	}
	return f.settings, nil
}

func (f *fakeSettings) UpdateGroup(_ context.Context, _ string, values map[string]string) error {
	if v, ok := values["home_link"]; ok && !strings.HasPrefix(v, "http") {
		return apperrors.FieldErrors{"home_link": "Must be a valid URL."}
	}
	f.saved = values
	return nil
}

type fakeStats struct{}

func (fakeStats) Stats(context.Context) (*models.DashboardStats, error) {
	return &models.DashboardStats{Articles: 2, Drafts: 1, Categories: 1, Media: 4, PendingComments: 3}, nil
}

type fakeContact struct{ sent []services.ContactInput }

func (f *fakeContact) Submit(_ context.Context, in services.ContactInput) error {
	if len(in.Message) < 10 {
		return apperrors.FieldErrors{"message": "Must be at least 10 characters."}
	}
	f.sent = append(f.sent, in)
	return nil
}

type fakeAccounts struct {
	users     map[string]*models.User
	passwords map[string]string
	loggedOut []string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users: map[string]*models.User{
			"admin@example.com": {ID: 1, Name: "Ada", Email: "admin@example.com", Roles: []string{models.RoleUser, models.RoleAdmin}},
			"jo@example.com":    {ID: 2, Name: "Jo", Email: "jo@example.com", Roles: []string{models.RoleUser}},
		},
		passwords: map[string]string{"admin@example.com": "secret123", "jo@example.com": "secret123"},
	}
}

func (f *fakeAccounts) Register(_ context.Context, in auth.RegisterInput) (*models.User, error) {
	if in.Password != in.PasswordConfirm {
		return nil, apperrors.FieldErrors{"password_confirm": "Passwords do not match."}
	}
	u := &models.User{ID: 3, Name: in.Name, Email: in.Email, Roles: []string{models.RoleUser}}
	f.users[in.Email] = u
	f.passwords[in.Email] = in.Password
	return u, nil
}

func (f *fakeAccounts) Login(_ context.Context, email, password string, _ bool) (*models.User, string, error) {
	u, ok := f.users[email]
	if !ok || f.passwords[email] != password {
		return nil, "", auth.ErrInvalidCredentials
	}
	return u, "token-" + email, nil
}

func (f *fakeAccounts) Logout(_ context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, user *models.User, in auth.ProfileInput) (*models.User, error) {
	if in.NewPassword != "" && in.CurrentPassword != f.passwords[user.Email] {
		return nil, apperrors.FieldErrors{"current_password": "Current password is incorrect."}
	}
	updated := *user
	updated.Name = in.Name
	return &updated, nil
}

// testApp bundles the fakes behind a router.
type testApp struct {
	articles   *fakeArticles
	categories *fakeCategories
	tags       *fakeTags
	comments   *fakeComments
	media      *fakeMedia
	settings   *fakeSettings
	contact    *fakeContact
	accounts   *fakeAccounts
	router     *gin.Engine
}

func newTestApp(t *testing.T, user *models.User) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := &testApp{
		articles:   newFakeArticles(),
		categories: &fakeCategories{items: []models.Category{{ID: 1, Name: "Knitting", Slug: "knitting", ArticlesCount: 1}}},
		tags:       &fakeTags{items: []models.Tag{{ID: 1, Name: "Wool", Slug: "wool", Color: "#C07459"}}},
		comments:   &fakeComments{},
		media: &fakeMedia{
			items:   []models.Media{{ID: 1, OriginalName: "ball.png", Path: "abc", Alt: "A ball of wool"}},
			objects: map[string][]byte{"abc/thumbnail.jpg": []byte("jpeg-bytes")},
		},
		settings: &fakeSettings{settings: []models.Setting{{ID: 1, Key: "home_link", Type: models.SettingURL, Group: "home", Label: "Link"}}},
		contact:  &fakeContact{},
		accounts: newFakeAccounts(),
	}

	renderer, err := web.NewRenderer(template.FuncMap{
		"setting":  func(string) string { return "" },
		"markdown": func(s string) template.HTML { return template.HTML(template.HTMLEscapeString(s)) },
		"siteName": func() string { return "Atelier" },
	})
	require.NoError(t, err)

	public := NewPublicHandler(PublicDeps{
		Articles: app.articles, Categories: app.categories, Tags: app.tags,
		Comments: app.comments, Contact: app.contact, BaseURL: "https://blog.example.com",
	})
	admin := NewAdminHandler(AdminDeps{
		Articles: app.articles, Categories: app.categories, Tags: app.tags, Comments: app.comments,
		Media: app.media, Settings: app.settings, Stats: fakeStats{},
	})
	authH := NewAuthHandler(app.accounts, app.articles, auth.SessionPolicy{TTL: time.Hour, RememberTTL: 30 * 24 * time.Hour}, false)
	uploads := NewUploadsHandler(app.media)

	r := gin.New()
	r.HTMLRender = renderer
	r.Use(func(c *gin.Context) {
		if user != nil {
			middleware.SetUser(c, user)
		}
		c.Next()
	})
	r.GET("/", public.Home)
	r.GET("/blog", public.Blog)
	r.GET("/blog/:slug", public.Article)
	r.GET("/blog/:slug/comments", public.Comments)
	r.POST("/blog/:slug/comments", public.PostComment)
	r.GET("/search", public.Search)
	r.GET("/contact", public.ContactForm)
	r.POST("/contact", public.Contact)
	r.GET("/sitemap.xml", public.Sitemap)
	r.GET("/uploads/*filepath", uploads.Serve)

	r.GET("/login", authH.LoginForm)
	r.POST("/login", authH.Login)
	r.POST("/logout", authH.Logout)
	r.POST("/register", authH.Register)
	r.GET("/dashboard", authH.Dashboard)
	r.POST("/profile", authH.UpdateProfile)

	r.GET("/admin", admin.Dashboard)
	r.GET("/admin/articles", admin.Articles)
	r.GET("/admin/articles/new", admin.NewArticle)
	r.POST("/admin/articles", admin.CreateArticle)
	r.GET("/admin/articles/:id/edit", admin.EditArticle)
	r.POST("/admin/articles/:id/publish", admin.PublishArticle)
	r.POST("/admin/articles/:id/unpublish", admin.UnpublishArticle)
	r.POST("/admin/articles/:id/comments/approve", admin.ApproveAllComments)
	r.GET("/admin/categories", admin.Categories)
	r.POST("/admin/categories", admin.CreateCategory)
	r.POST("/admin/categories/:id/delete", admin.DeleteCategory)
	r.GET("/admin/tags/new", admin.NewTag)
	r.POST("/admin/tags", admin.CreateTag)
	r.GET("/admin/comments", admin.Comments)
	r.POST("/admin/comments/:id/approve", admin.ApproveComment)
	r.GET("/admin/media", admin.Media)
	r.POST("/admin/media", admin.UploadMedia)
	r.GET("/admin/api/media", admin.MediaPicker)
	r.POST("/admin/api/media/:id/alt", admin.UpdateMediaAlt)
	r.GET("/admin/settings", admin.Settings)
	r.GET("/admin/settings/:group", admin.SettingsGroup)
	r.POST("/admin/settings/:group", admin.UpdateSettingsGroup)
	r.NoRoute(NotFound)

	app.router = r
	return app
}
