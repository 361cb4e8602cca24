package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kartikbazzad/bunbase/bunpress/internal/database"
	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/events"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/validation"
)

// CommentsPerPage is the size of one "load more" batch.
const CommentsPerPage = 5

// CommentService handles comment operations
type CommentService struct {
	db     database.DBTX
	events events.Publisher
}

func NewCommentService(db database.DBTX, publisher events.Publisher) *CommentService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &CommentService{db: db, events: publisher}
}

type guestComment struct {
	AuthorName  string `form:"author_name" validate:"required,min=2,max=255"`
	AuthorEmail string `form:"author_email" validate:"required,email,max=255"`
	Content     string `form:"content" validate:"required,min=5"`
}

type memberComment struct {
	Content string `form:"content" validate:"required,min=5"`
}

const commentSelect = `SELECT cm.id, cm.article_id, cm.user_id, cm.author_name, cm.author_email, cm.content,
	cm.status, cm.created_at, a.title, a.slug, COALESCE(u.name, '')
FROM comments cm
JOIN articles a ON a.id = cm.article_id
LEFT JOIN users u ON u.id = cm.user_id`

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	var status string
	err := row.Scan(&c.ID, &c.ArticleID, &c.UserID, &c.AuthorName, &c.AuthorEmail, &c.Content,
		&status, &c.CreatedAt, &c.ArticleTitle, &c.ArticleSlug, &c.UserName)
	c.Status = models.CommentStatus(status)
	return &c, err
}

func (s *CommentService) list(ctx context.Context, query string, args ...any) ([]models.Comment, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// Create stores a pending comment on a published article. A logged-in
// user only supplies content; guests also give a name and email.
func (s *CommentService) Create(ctx context.Context, articleID int64, in models.CommentInput, user *models.User) (*models.Comment, error) {
	in.AuthorName, in.AuthorEmail, in.Content = trimmed(in.AuthorName), trimmed(in.AuthorEmail), trimmed(in.Content)

	var userID *int64
	if user != nil {
		if err := validation.Struct(memberComment{Content: in.Content}); err != nil {
			return nil, err
		}
		userID = &user.ID
		in.AuthorName, in.AuthorEmail = user.Name, user.Email
	} else if err := validation.Struct(guestComment(in)); err != nil {
		return nil, err
	}

	var published bool
	err := s.db.QueryRow(ctx, "SELECT status = 'published' FROM articles WHERE id = $1", articleID).Scan(&published)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && !published) {
		return nil, apperrors.NotFound("Article not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check article: %w", err)
	}

	var id int64
	err = s.db.QueryRow(ctx,
		`INSERT INTO comments (article_id, user_id, author_name, author_email, content, status)
		 VALUES ($1, $2, $3, $4, $5, 'pending') RETURNING id`,
		articleID, userID, in.AuthorName, in.AuthorEmail, in.Content).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	comment, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.events, events.CommentCreated, map[string]any{
		"id": comment.ID, "article_id": comment.ArticleID, "author": comment.DisplayName(),
	})
	return comment, nil
}

func (s *CommentService) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(s.db.QueryRow(ctx, commentSelect+" WHERE cm.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("Comment not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

// ListApproved returns a page of approved comments, newest first.
func (s *CommentService) ListApproved(ctx context.Context, articleID int64, page int) (models.Page[models.Comment], error) {
	var total int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM comments WHERE article_id = $1 AND status = 'approved'", articleID).Scan(&total)
	if err != nil {
		return models.Page[models.Comment]{}, fmt.Errorf("failed to count comments: %w", err)
	}
	items, err := s.list(ctx,
		commentSelect+" WHERE cm.article_id = $1 AND cm.status = 'approved' ORDER BY cm.created_at DESC, cm.id DESC LIMIT $2 OFFSET $3",
		articleID, CommentsPerPage, models.Offset(page, CommentsPerPage))
	if err != nil {
		return models.Page[models.Comment]{}, err
	}
	return models.NewPage(items, total, page, CommentsPerPage), nil
}

// ListRecent returns the latest comments of every status for moderation.
func (s *CommentService) ListRecent(ctx context.Context, status models.CommentStatus, limit int) ([]models.Comment, error) {
	if status.Valid() {
		return s.list(ctx, commentSelect+" WHERE cm.status = $1 ORDER BY cm.created_at DESC LIMIT $2", string(status), limit)
	}
	return s.list(ctx, commentSelect+" ORDER BY cm.created_at DESC LIMIT $1", limit)
}

// ListPending returns comments awaiting moderation, oldest first.
func (s *CommentService) ListPending(ctx context.Context) ([]models.Comment, error) {
	return s.list(ctx, commentSelect+" WHERE cm.status = 'pending' ORDER BY cm.created_at ASC")
}

func (s *CommentService) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM comments WHERE status = 'pending'").Scan(&n)
	return n, err
}

func (s *CommentService) setStatus(ctx context.Context, id int64, status models.CommentStatus) (*models.Comment, error) {
	tag, err := s.db.Exec(ctx, "UPDATE comments SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("Comment not found.")
	}
	return s.GetByID(ctx, id)
}

func (s *CommentService) Approve(ctx context.Context, id int64) (*models.Comment, error) {
	return s.setStatus(ctx, id, models.CommentApproved)
}

func (s *CommentService) Reject(ctx context.Context, id int64) (*models.Comment, error) {
	return s.setStatus(ctx, id, models.CommentRejected)
}

func (s *CommentService) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("Comment not found.")
	}
	return nil
}

// ApproveAllPending approves every pending comment of an article and
// returns how many changed.
func (s *CommentService) ApproveAllPending(ctx context.Context, articleID int64) (int64, error) {
	tag, err := s.db.Exec(ctx,
		"UPDATE comments SET status = 'approved' WHERE article_id = $1 AND status = 'pending'", articleID)
	if err != nil {
		return 0, fmt.Errorf("failed to approve comments: %w", err)
	}
	return tag.RowsAffected(), nil
}
