// Package search runs article searches through a chain of strategies,
// from PostgreSQL websearch queries down to plain pattern matching.
package search

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

// Tier names the strategy that produced a result.
type Tier string

const (
	TierWebsearch Tier = "websearch"
	TierPrefixOR  Tier = "or"
	TierLike      Tier = "like"
	TierNone      Tier = "none"
)

// ErrSkip tells Fallback a strategy had nothing to run for this query.
var ErrSkip = errors.New("search strategy skipped")

// Query is a normalised search request.
type Query struct {
	Text    string
	Page    int
	PerPage int
}

// NewQuery trims text and clamps paging.
func NewQuery(text string, page, perPage int) Query {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	return Query{Text: strings.TrimSpace(text), Page: page, PerPage: perPage}
}

func (q Query) Offset() int { return models.Offset(q.Page, q.PerPage) }

// Result is one page of matches.
type Result struct {
	Page models.Page[models.Article]
	Tier Tier
}

// StrategyFunc returns a page of matches and the total match count.
type StrategyFunc func(ctx context.Context, q Query) ([]models.Article, int, error)

// Strategy pairs a tier with its implementation.
type Strategy struct {
	Tier Tier
	Run  StrategyFunc
}

// Fallback tries strategies in order and returns the first one with at
// least one match. Failing strategies are logged and skipped, so a
// broken tsquery never hides results a later tier can find.
func Fallback(ctx context.Context, q Query, strategies ...Strategy) Result {
	empty := Result{Page: models.NewPage[models.Article](nil, 0, q.Page, q.PerPage), Tier: TierNone}
	if q.Text == "" {
		return empty
	}

	log := logger.FromContext(ctx)
	for _, s := range strategies {
		items, total, err := s.Run(ctx, q)
		if errors.Is(err, ErrSkip) {
			continue
		}
		if err != nil {
			log.Warn("search strategy failed", "tier", s.Tier, "query", q.Text, "error", err)
			continue
		}
		if total > 0 {
			return Result{Page: models.NewPage(items, total, q.Page, q.PerPage), Tier: s.Tier}
		}
	}
	return empty
}

// Terms splits text into lowercase runs of letters and digits of at least
// two characters, dropping duplicates.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// PrefixORQuery builds a to_tsquery expression matching any term as a
// prefix ("foo:* | bar:*"). It is empty when text has no usable terms.
func PrefixORQuery(text string) string {
	terms := Terms(text)
	if len(terms) == 0 {
		return ""
	}
	for i, t := range terms {
		terms[i] = t + ":*"
	}
	return strings.Join(terms, " | ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps text for an ILIKE containment match, escaping the
// wildcard characters with a backslash.
func LikePattern(text string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(text)) + "%"
}
