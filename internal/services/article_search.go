package services

import (
	"context"
	"fmt"

	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/search"
)

// textSearchConfig must match the configuration used by the
// articles_search_update trigger.
const textSearchConfig = "french"

// SearchObserver records which tier answered a search.
type SearchObserver interface {
	ObserveSearch(tier string)
}

// WithSearchObserver sets the observer notified after every search.
func (s *ArticleService) WithSearchObserver(o SearchObserver) *ArticleService {
	s.observer = o
	return s
}

// Search finds published articles matching text, trying a websearch
// query, then an OR of prefix terms, then a plain ILIKE.
func (s *ArticleService) Search(ctx context.Context, text string, page, perPage int) search.Result {
	q := search.NewQuery(text, page, perPage)
	res := search.Fallback(ctx, q,
		search.Strategy{Tier: search.TierWebsearch, Run: s.tsQueryStrategy("websearch_to_tsquery", func(t string) string { return t })},
		search.Strategy{Tier: search.TierPrefixOR, Run: s.tsQueryStrategy("to_tsquery", search.PrefixORQuery)},
		search.Strategy{Tier: search.TierLike, Run: s.likeStrategy},
	)
	if s.observer != nil && q.Text != "" {
		s.observer.ObserveSearch(string(res.Tier))
	}
	return res
}

// tsQueryStrategy matches search_vector against fn(config, build(text)),
// ranked by cover density then recency.
func (s *ArticleService) tsQueryStrategy(fn string, build func(string) string) search.StrategyFunc {
	tsquery := fmt.Sprintf("%s('%s', $1)", fn, textSearchConfig)
	return func(ctx context.Context, q search.Query) ([]models.Article, int, error) {
		expr := build(q.Text)
		if expr == "" {
			return nil, 0, search.ErrSkip
		}

		var total int
		err := s.db.QueryRow(ctx,
			"SELECT COUNT(*) FROM articles a WHERE a.status = 'published' AND a.search_vector @@ "+tsquery,
			expr).Scan(&total)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count matches: %w", err)
		}
		if total == 0 {
			return nil, 0, nil
		}

		items, err := s.queryArticles(ctx,
			articleSelect+" CROSS JOIN "+tsquery+` AS query
			 WHERE a.status = 'published' AND a.search_vector @@ query
			 ORDER BY ts_rank_cd(a.search_vector, query) DESC, a.published_at DESC
			 LIMIT $2 OFFSET $3`,
			expr, q.PerPage, q.Offset())
		if err != nil {
			return nil, 0, err
		}
		return items, total, nil
	}
}

const likeCondition = `a.status = 'published' AND (a.title ILIKE $1 ESCAPE '\'
	OR a.excerpt ILIKE $1 ESCAPE '\' OR a.content ILIKE $1 ESCAPE '\')`

func (s *ArticleService) likeStrategy(ctx context.Context, q search.Query) ([]models.Article, int, error) {
	pattern := search.LikePattern(q.Text)

	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM articles a WHERE "+likeCondition, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}
	items, err := s.queryArticles(ctx,
		articleSelect+" WHERE "+likeCondition+" ORDER BY a.published_at DESC LIMIT $2 OFFSET $3",
		pattern, q.PerPage, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
