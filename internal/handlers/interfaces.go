package handlers

import (
	"context"
	"io"

	"github.com/kartikbazzad/bunbase/bunpress/internal/auth"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/search"
	"github.com/kartikbazzad/bunbase/bunpress/internal/services"
	"github.com/kartikbazzad/bunbase/bunpress/internal/storage"
)

// ArticleReader is the public side of the article service.
type ArticleReader interface {
	ListPublished(ctx context.Context, f services.ArticleFilter, page, perPage int) (models.Page[models.Article], error)
	Latest(ctx context.Context, n int) ([]models.Article, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*models.Article, error)
	AllPublished(ctx context.Context) ([]models.Article, error)
	Search(ctx context.Context, text string, page, perPage int) search.Result
}

// ArticleEditor is the back-office side of the article service.
type ArticleEditor interface {
	GetByID(ctx context.Context, id int64) (*models.Article, error)
	Create(ctx context.Context, in models.ArticleInput, userID int64) (*models.Article, error)
	Update(ctx context.Context, id int64, in models.ArticleInput) (*models.Article, error)
	Publish(ctx context.Context, id int64) (*models.Article, error)
	Unpublish(ctx context.Context, id int64) (*models.Article, error)
	Archive(ctx context.Context, id int64) (*models.Article, error)
	Delete(ctx context.Context, id int64) error
	ListRecent(ctx context.Context, status models.ArticleStatus, page, perPage int) (models.Page[models.Article], error)
	CountByStatus(ctx context.Context) (models.StatusCounts, error)
}

// AuthorArticles lists the articles written by a member.
type AuthorArticles interface {
	ListByAuthor(ctx context.Context, userID int64) ([]models.Article, error)
}

type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	ListNonEmpty(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	Create(ctx context.Context, in services.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, id int64, in services.CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, id int64) error
}

type TagStore interface {
	List(ctx context.Context) ([]models.Tag, error)
	Popular(ctx context.Context, n int) ([]models.Tag, error)
	GetByID(ctx context.Context, id int64) (*models.Tag, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tag, error)
	Create(ctx context.Context, in services.TagInput) (*models.Tag, error)
	Update(ctx context.Context, id int64, in services.TagInput) (*models.Tag, error)
	Delete(ctx context.Context, id int64) error
}

type CommentStore interface {
	Create(ctx context.Context, articleID int64, in models.CommentInput, user *models.User) (*models.Comment, error)
	ListApproved(ctx context.Context, articleID int64, page int) (models.Page[models.Comment], error)
	ListRecent(ctx context.Context, status models.CommentStatus, limit int) ([]models.Comment, error)
	CountPending(ctx context.Context) (int, error)
	Approve(ctx context.Context, id int64) (*models.Comment, error)
	Reject(ctx context.Context, id int64) (*models.Comment, error)
	Delete(ctx context.Context, id int64) error
	ApproveAllPending(ctx context.Context, articleID int64) (int64, error)
}

type MediaStore interface {
	Upload(ctx context.Context, originalName string, r io.Reader, alt string, userID int64) (*models.Media, error)
	GetByID(ctx context.Context, id int64) (*models.Media, error)
	List(ctx context.Context, page, perPage int) (models.Page[models.Media], error)
	All(ctx context.Context) ([]models.Media, error)
	UpdateAlt(ctx context.Context, id int64, alt string) (*models.Media, error)
	Delete(ctx context.Context, id int64) error
	Open(ctx context.Context, key string) (*storage.Object, error)
}

type SettingStore interface {
	Groups(ctx context.Context) ([]models.SettingGroup, error)
	ByGroup(ctx context.Context, group string) ([]models.Setting, error)
	UpdateGroup(ctx context.Context, group string, values map[string]string) error
}

type StatsProvider interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

type ContactSubmitter interface {
	Submit(ctx context.Context, in services.ContactInput) error
}

// Accounts is the part of auth.Auth used by the login and profile pages.
type Accounts interface {
	Register(ctx context.Context, in auth.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string, remember bool) (*models.User, string, error)
	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, user *models.User, in auth.ProfileInput) (*models.User, error)
}
