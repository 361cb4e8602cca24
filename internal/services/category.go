package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kartikbazzad/bunbase/bunpress/internal/database"
	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/slug"
	"github.com/kartikbazzad/bunbase/bunpress/internal/validation"
)

// CategoryService handles category operations
type CategoryService struct {
	db database.DBTX
}

func NewCategoryService(db database.DBTX) *CategoryService {
	return &CategoryService{db: db}
}

// CategoryInput is the category form.
type CategoryInput struct {
	Name        string `form:"name" validate:"required,min=2,max=255"`
	Description string `form:"description"`
}

const categorySelect = `SELECT c.id, c.name, c.slug, c.description, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM articles a WHERE a.category_id = c.id AND a.status = 'published')
FROM categories c`

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.ArticlesCount)
	return &c, err
}

func (s *CategoryService) list(ctx context.Context, query string) ([]models.Category, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// List returns every category by name with its published article count.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.list(ctx, categorySelect+" ORDER BY c.name")
}

// ListNonEmpty returns the categories holding at least one published article.
func (s *CategoryService) ListNonEmpty(ctx context.Context) ([]models.Category, error) {
	return s.list(ctx, categorySelect+
		" WHERE EXISTS (SELECT 1 FROM articles a WHERE a.category_id = c.id AND a.status = 'published') ORDER BY c.name")
}

func (s *CategoryService) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRow(ctx, categorySelect+" WHERE c.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("Category not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) GetBySlug(ctx context.Context, categorySlug string) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRow(ctx, categorySelect+" WHERE c.slug = $1", categorySlug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("Category not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	in.Name, in.Description = trimmed(in.Name), trimmed(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	categorySlug, err := slug.Unique(ctx, in.Name, slugExists(s.db, "categories", 0))
	if err != nil {
		return nil, err
	}
	var id int64
	err = s.db.QueryRow(ctx,
		"INSERT INTO categories (name, slug, description) VALUES ($1, $2, $3) RETURNING id",
		in.Name, categorySlug, in.Description).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("A category with this name already exists.")
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Update renames the category, regenerating its slug when the name changes.
func (s *CategoryService) Update(ctx context.Context, id int64, in CategoryInput) (*models.Category, error) {
	in.Name, in.Description = trimmed(in.Name), trimmed(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	categorySlug := current.Slug
	if in.Name != current.Name {
		if categorySlug, err = slug.Unique(ctx, in.Name, slugExists(s.db, "categories", id)); err != nil {
			return nil, err
		}
	}
	_, err = s.db.Exec(ctx,
		"UPDATE categories SET name = $1, slug = $2, description = $3, updated_at = NOW() WHERE id = $4",
		in.Name, categorySlug, in.Description, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("A category with this name already exists.")
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete refuses to remove a category still referenced by any article.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	var used bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM articles WHERE category_id = $1)", id).Scan(&used); err != nil {
		return fmt.Errorf("failed to check category usage: %w", err)
	}
	if used {
		return apperrors.Conflict("This category still has articles and cannot be deleted.")
	}
	tag, err := s.db.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("Category not found.")
	}
	return nil
}

// Count returns the number of categories.
func (s *CategoryService) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM categories").Scan(&n)
	return n, err
}
