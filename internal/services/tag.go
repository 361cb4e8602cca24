package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kartikbazzad/bunbase/bunpress/internal/database"
	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/slug"
	"github.com/kartikbazzad/bunbase/bunpress/internal/validation"
)

// TagService handles tag operations
type TagService struct {
	db database.DBTX
}

func NewTagService(db database.DBTX) *TagService {
	return &TagService{db: db}
}

// TagInput is the tag form. An empty colour falls back to the default.
type TagInput struct {
	Name  string `form:"name" validate:"required,min=2,max=255"`
	Color string `form:"color" validate:"omitempty,hexcolor,len=7"`
}

func (in *TagInput) normalize() {
	in.Name = trimmed(in.Name)
	in.Color = strings.ToUpper(trimmed(in.Color))
}

const tagSelect = `SELECT t.id, t.name, t.slug, t.color, t.created_at,
	(SELECT COUNT(*) FROM article_tag at JOIN articles a ON a.id = at.article_id
	 WHERE at.tag_id = t.id AND a.status = 'published') AS articles_count
FROM tags t`

func scanTag(row pgx.Row) (*models.Tag, error) {
	var t models.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Color, &t.CreatedAt, &t.ArticlesCount)
	return &t, err
}

func (s *TagService) list(ctx context.Context, query string, args ...any) ([]models.Tag, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// List returns every tag by name with its published article count.
func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	return s.list(ctx, tagSelect+" ORDER BY t.name")
}

// Popular returns the n tags used by the most published articles.
func (s *TagService) Popular(ctx context.Context, n int) ([]models.Tag, error) {
	return s.list(ctx, "SELECT * FROM ("+tagSelect+") p WHERE p.articles_count > 0 ORDER BY p.articles_count DESC, p.name LIMIT $1", n)
}

// ForArticle returns the tags linked to an article.
func (s *TagService) ForArticle(ctx context.Context, articleID int64) ([]models.Tag, error) {
	return s.list(ctx, tagSelect+
		" WHERE t.id IN (SELECT tag_id FROM article_tag WHERE article_id = $1) ORDER BY t.name", articleID)
}

func (s *TagService) GetByID(ctx context.Context, id int64) (*models.Tag, error) {
	t, err := scanTag(s.db.QueryRow(ctx, tagSelect+" WHERE t.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("Tag not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return t, nil
}

func (s *TagService) GetBySlug(ctx context.Context, tagSlug string) (*models.Tag, error) {
	t, err := scanTag(s.db.QueryRow(ctx, tagSelect+" WHERE t.slug = $1", tagSlug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("Tag not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return t, nil
}

func (s *TagService) Create(ctx context.Context, in TagInput) (*models.Tag, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Color == "" {
		in.Color = models.DefaultTagColor
	}
	tagSlug, err := slug.Unique(ctx, in.Name, slugExists(s.db, "tags", 0))
	if err != nil {
		return nil, err
	}
	var id int64
	err = s.db.QueryRow(ctx,
		"INSERT INTO tags (name, slug, color) VALUES ($1, $2, $3) RETURNING id",
		in.Name, tagSlug, in.Color).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("A tag with this name already exists.")
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *TagService) Update(ctx context.Context, id int64, in TagInput) (*models.Tag, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Color == "" {
		in.Color = models.DefaultTagColor
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tagSlug := current.Slug
	if in.Name != current.Name {
		if tagSlug, err = slug.Unique(ctx, in.Name, slugExists(s.db, "tags", id)); err != nil {
			return nil, err
		}
	}
	if _, err := s.db.Exec(ctx,
		"UPDATE tags SET name = $1, slug = $2, color = $3 WHERE id = $4",
		in.Name, tagSlug, in.Color, id); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("A tag with this name already exists.")
		}
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete refuses to remove a tag linked to any article.
func (s *TagService) Delete(ctx context.Context, id int64) error {
	var used bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM article_tag WHERE tag_id = $1)", id).Scan(&used); err != nil {
		return fmt.Errorf("failed to check tag usage: %w", err)
	}
	if used {
		return apperrors.Conflict("This tag is still used by articles and cannot be deleted.")
	}
	tag, err := s.db.Exec(ctx, "DELETE FROM tags WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("Tag not found.")
	}
	return nil
}
