package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kartikbazzad/bunbase/bunpress/internal/content"
	"github.com/kartikbazzad/bunbase/bunpress/internal/database"
	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/events"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/slug"
	"github.com/kartikbazzad/bunbase/bunpress/internal/validation"
)

// ArticleService handles article operations
type ArticleService struct {
	db       database.DBTX
	renderer *content.Renderer
	events   events.Publisher
	observer SearchObserver
	now      func() time.Time
}

// NewArticleService creates a new ArticleService
func NewArticleService(db database.DBTX, renderer *content.Renderer, publisher events.Publisher) *ArticleService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ArticleService{db: db, renderer: renderer, events: publisher, now: time.Now}
}

// articleForm is the validated shape of models.ArticleInput.
type articleForm struct {
	Title   string `form:"title" validate:"required,min=5,max=255"`
	Excerpt string `form:"excerpt" validate:"max=255"`
	Status  string `form:"status" validate:"oneof=draft published archived"`
}

const articleSelect = `SELECT a.id, a.title, a.slug, a.excerpt, a.content, a.featured_image_id,
	a.category_id, a.user_id, a.status, a.published_at, a.created_at, a.updated_at,
	c.name, c.slug, u.name, m.path, m.alt
FROM articles a
LEFT JOIN categories c ON c.id = a.category_id
LEFT JOIN users u ON u.id = a.user_id
LEFT JOIN media m ON m.id = a.featured_image_id`

func scanArticle(row pgx.Row) (*models.Article, error) {
	var (
		a                   models.Article
		status              string
		catName, catSlug    *string
		authorName          *string
		mediaPath, mediaAlt *string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Content, &a.FeaturedImageID,
		&a.CategoryID, &a.UserID, &status, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
		&catName, &catSlug, &authorName, &mediaPath, &mediaAlt)
	if err != nil {
		return nil, err
	}
	a.Status = models.ArticleStatus(status)
	if a.CategoryID != nil && catName != nil {
		a.Category = &models.Category{ID: *a.CategoryID, Name: *catName, Slug: deref(catSlug)}
	}
	if a.UserID != nil && authorName != nil {
		a.Author = &models.Author{ID: *a.UserID, Name: *authorName}
	}
	if a.FeaturedImageID != nil && mediaPath != nil {
		a.FeaturedImage = &models.Media{ID: *a.FeaturedImageID, Path: *mediaPath, Alt: deref(mediaAlt)}
	}
	return &a, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *ArticleService) queryArticles(ctx context.Context, query string, args ...any) ([]models.Article, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}
	if err := s.attachTags(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// attachTags loads the tags of every article in one query.
func (s *ArticleService) attachTags(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}
	ids := make([]int64, len(articles))
	index := make(map[int64]int, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
		index[a.ID] = i
	}
	rows, err := s.db.Query(ctx,
		`SELECT at.article_id, t.id, t.name, t.slug, t.color
		 FROM article_tag at JOIN tags t ON t.id = at.tag_id
		 WHERE at.article_id = ANY($1) ORDER BY t.name`, ids)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var articleID int64
		var t models.Tag
		if err := rows.Scan(&articleID, &t.ID, &t.Name, &t.Slug, &t.Color); err != nil {
			return fmt.Errorf("failed to scan tag: %w", err)
		}
		i := index[articleID]
		articles[i].Tags = append(articles[i].Tags, t)
	}
	return rows.Err()
}

func (s *ArticleService) getOne(ctx context.Context, where string, arg any) (*models.Article, error) {
	a, err := scanArticle(s.db.QueryRow(ctx, articleSelect+" WHERE "+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("Article not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	list := []models.Article{*a}
	if err := s.attachTags(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// GetByID returns an article in any status.
func (s *ArticleService) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	return s.getOne(ctx, "a.id = $1", id)
}

// GetPublishedBySlug returns a published article for the public site.
func (s *ArticleService) GetPublishedBySlug(ctx context.Context, articleSlug string) (*models.Article, error) {
	return s.getOne(ctx, "a.status = 'published' AND a.slug = $1", articleSlug)
}

// prepare validates input and fills derived fields.
func (s *ArticleService) prepare(in *models.ArticleInput) error {
	in.Title = trimmed(in.Title)
	in.Excerpt = trimmed(in.Excerpt)
	if in.Status == "" {
		in.Status = models.ArticleDraft
	}
	in.CategoryID = positiveID(in.CategoryID)
	in.FeaturedImageID = positiveID(in.FeaturedImageID)
	return validation.Struct(articleForm{Title: in.Title, Excerpt: in.Excerpt, Status: string(in.Status)})
}

// Create stores a new article authored by userID.
func (s *ArticleService) Create(ctx context.Context, in models.ArticleInput, userID int64) (*models.Article, error) {
	if err := s.prepare(&in); err != nil {
		return nil, err
	}
	if in.Excerpt == "" && strings.TrimSpace(in.Content) != "" {
		in.Excerpt = s.renderer.Excerpt(in.Content)
	}

	var publishedAt *time.Time
	if in.Status == models.ArticlePublished {
		now := s.now()
		publishedAt = &now
	}

	var id int64
	err := database.InTx(ctx, s.db, func(tx pgx.Tx) error {
		articleSlug, err := slug.Unique(ctx, in.Title, slugExists(tx, "articles", 0))
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO articles (title, slug, excerpt, content, featured_image_id, category_id, user_id, status, published_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
			in.Title, articleSlug, in.Excerpt, in.Content, in.FeaturedImageID, in.CategoryID, userID, string(in.Status), publishedAt,
		).Scan(&id)
		if err != nil {
			return articleWriteError("create", err)
		}
		return syncTags(ctx, tx, id, in.TagIDs)
	})
	if err != nil {
		return nil, err
	}

	article, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.IsPublished() {
		s.publishEvent(ctx, article)
	}
	return article, nil
}

// Update applies in to an existing article. A new title regenerates the
// slug; publishing for the first time stamps published_at.
func (s *ArticleService) Update(ctx context.Context, id int64, in models.ArticleInput) (*models.Article, error) {
	if err := s.prepare(&in); err != nil {
		return nil, err
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Excerpt == "" && strings.TrimSpace(in.Content) != "" {
		in.Excerpt = s.renderer.Excerpt(in.Content)
	}

	publishedAt := current.PublishedAt
	if in.Status == models.ArticlePublished && publishedAt == nil {
		now := s.now()
		publishedAt = &now
	}

	err = database.InTx(ctx, s.db, func(tx pgx.Tx) error {
		articleSlug := current.Slug
		if in.Title != current.Title {
			regenerated, err := slug.Unique(ctx, in.Title, slugExists(tx, "articles", id))
			if err != nil {
				return err
			}
			articleSlug = regenerated
		}
		_, err := tx.Exec(ctx,
			`UPDATE articles SET title = $1, slug = $2, excerpt = $3, content = $4, featured_image_id = $5,
			 category_id = $6, status = $7, published_at = $8, updated_at = NOW() WHERE id = $9`,
			in.Title, articleSlug, in.Excerpt, in.Content, in.FeaturedImageID, in.CategoryID, string(in.Status), publishedAt, id,
		)
		if err != nil {
			return articleWriteError("update", err)
		}
		return syncTags(ctx, tx, id, in.TagIDs)
	})
	if err != nil {
		return nil, err
	}

	article, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.IsPublished() && !current.IsPublished() {
		s.publishEvent(ctx, article)
	}
	return article, nil
}

// articleWriteError turns constraint violations of an article write into
// errors the admin form can show.
func articleWriteError(op string, err error) error {
	if isUniqueViolation(err) {
		return apperrors.Conflict("Another article already uses this title, please pick another one.")
	}
	if constraint, ok := foreignKeyViolation(err); ok {
		switch {
		case strings.Contains(constraint, "category"):
			return apperrors.FieldErrors{"category_id": "This category no longer exists."}
		case strings.Contains(constraint, "featured_image"):
			return apperrors.FieldErrors{"featured_image_id": "This image no longer exists."}
		default:
			return apperrors.Conflict("The author of this article no longer exists.")
		}
	}
	return fmt.Errorf("failed to %s article: %w", op, err)
}

// syncTags replaces the tag links of an article.
func syncTags(ctx context.Context, tx pgx.Tx, articleID int64, tagIDs []int64) error {
	if _, err := tx.Exec(ctx, "DELETE FROM article_tag WHERE article_id = $1", articleID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	ids := make([]int64, 0, len(tagIDs))
	for _, id := range tagIDs {
		if id > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO article_tag (article_id, tag_id)
		 SELECT $1, t.id FROM tags t WHERE t.id = ANY($2)
		 ON CONFLICT DO NOTHING`, articleID, ids)
	if err != nil {
		return fmt.Errorf("failed to link tags: %w", err)
	}
	return nil
}

func (s *ArticleService) setStatus(ctx context.Context, id int64, query string, args ...any) (*models.Article, error) {
	tag, err := s.db.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to change article status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("Article not found.")
	}
	return s.GetByID(ctx, id)
}

// Publish sets the status to published with published_at = now.
func (s *ArticleService) Publish(ctx context.Context, id int64) (*models.Article, error) {
	article, err := s.setStatus(ctx, id,
		"UPDATE articles SET status = 'published', published_at = $2, updated_at = NOW() WHERE id = $1", s.now())
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, article)
	return article, nil
}

// Unpublish returns the article to draft and clears published_at.
func (s *ArticleService) Unpublish(ctx context.Context, id int64) (*models.Article, error) {
	return s.setStatus(ctx, id,
		"UPDATE articles SET status = 'draft', published_at = NULL, updated_at = NOW() WHERE id = $1")
}

// Archive hides the article from the public site.
func (s *ArticleService) Archive(ctx context.Context, id int64) (*models.Article, error) {
	return s.setStatus(ctx, id,
		"UPDATE articles SET status = 'archived', updated_at = NOW() WHERE id = $1")
}

// Delete removes the article; tag links and comments cascade.
func (s *ArticleService) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM articles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("Article not found.")
	}
	return nil
}

// ArticleFilter narrows the public listing.
type ArticleFilter struct {
	CategorySlug string
	TagSlug      string
}

// ListPublished returns published articles, newest first.
func (s *ArticleService) ListPublished(ctx context.Context, f ArticleFilter, page, perPage int) (models.Page[models.Article], error) {
	where := []string{"a.status = 'published'"}
	var args []any
	if f.CategorySlug != "" {
		args = append(args, f.CategorySlug)
		where = append(where, fmt.Sprintf("c.slug = $%d", len(args)))
	}
	if f.TagSlug != "" {
		args = append(args, f.TagSlug)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM article_tag at JOIN tags t ON t.id = at.tag_id WHERE at.article_id = a.id AND t.slug = $%d)", len(args)))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM articles a LEFT JOIN categories c ON c.id = a.category_id" + cond
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return models.Page[models.Article]{}, fmt.Errorf("failed to count articles: %w", err)
	}

	args = append(args, perPage, models.Offset(page, perPage))
	query := fmt.Sprintf("%s%s ORDER BY a.published_at DESC, a.id DESC LIMIT $%d OFFSET $%d",
		articleSelect, cond, len(args)-1, len(args))
	items, err := s.queryArticles(ctx, query, args...)
	if err != nil {
		return models.Page[models.Article]{}, err
	}
	return models.NewPage(items, total, page, perPage), nil
}

// Latest returns the n most recently published articles.
func (s *ArticleService) Latest(ctx context.Context, n int) ([]models.Article, error) {
	return s.queryArticles(ctx,
		articleSelect+" WHERE a.status = 'published' ORDER BY a.published_at DESC, a.id DESC LIMIT $1", n)
}

// AllPublished returns every published article, for the sitemap.
func (s *ArticleService) AllPublished(ctx context.Context) ([]models.Article, error) {
	return s.queryArticles(ctx,
		articleSelect+" WHERE a.status = 'published' ORDER BY a.published_at DESC, a.id DESC")
}

// ListRecent returns articles of every status for the admin, newest first.
func (s *ArticleService) ListRecent(ctx context.Context, status models.ArticleStatus, page, perPage int) (models.Page[models.Article], error) {
	cond := ""
	args := []any{}
	if status.Valid() {
		cond = " WHERE a.status = $1"
		args = append(args, string(status))
	}
	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM articles a"+cond, args...).Scan(&total); err != nil {
		return models.Page[models.Article]{}, fmt.Errorf("failed to count articles: %w", err)
	}
	args = append(args, perPage, models.Offset(page, perPage))
	query := fmt.Sprintf("%s%s ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d",
		articleSelect, cond, len(args)-1, len(args))
	items, err := s.queryArticles(ctx, query, args...)
	if err != nil {
		return models.Page[models.Article]{}, err
	}
	return models.NewPage(items, total, page, perPage), nil
}

// ListByAuthor returns every article written by userID.
func (s *ArticleService) ListByAuthor(ctx context.Context, userID int64) ([]models.Article, error) {
	return s.queryArticles(ctx, articleSelect+" WHERE a.user_id = $1 ORDER BY a.created_at DESC", userID)
}

// CountByStatus returns the number of articles per status.
func (s *ArticleService) CountByStatus(ctx context.Context) (models.StatusCounts, error) {
	rows, err := s.db.Query(ctx, "SELECT status, COUNT(*) FROM articles GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}
	defer rows.Close()

	counts := models.StatusCounts{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.ArticleStatus(status)] = n
	}
	return counts, rows.Err()
}

type articleEvent struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

func (s *ArticleService) publishEvent(ctx context.Context, a *models.Article) {
	events.Emit(ctx, s.events, events.ArticlePublished, articleEvent{ID: a.ID, Title: a.Title, Slug: a.Slug})
}
