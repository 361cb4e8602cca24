package services

import (
	"context"

	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

// DashboardService gathers the admin dashboard figures.
type DashboardService struct {
	articles   *ArticleService
	categories *CategoryService
	comments   *CommentService
	media      *MediaService
}

func NewDashboardService(articles *ArticleService, categories *CategoryService, comments *CommentService, media *MediaService) *DashboardService {
	return &DashboardService{articles: articles, categories: categories, comments: comments, media: media}
}

// Stats returns the counters and the five most recent articles.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	counts, err := s.articles.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.DashboardStats{Drafts: counts[models.ArticleDraft]}
	for _, n := range counts {
		stats.Articles += n
	}
	if stats.Categories, err = s.categories.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Media, err = s.media.Count(ctx); err != nil {
		return nil, err
	}
	if stats.PendingComments, err = s.comments.CountPending(ctx); err != nil {
		return nil, err
	}
	recent, err := s.articles.ListRecent(ctx, "", 1, 5)
	if err != nil {
		return nil, err
	}
	stats.RecentArticles = recent.Items
	return stats, nil
}
