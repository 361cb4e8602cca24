package web

import (
	"errors"
	"html/template"
	"net/url"
	"slices"
	"time"

	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

// RequiredFuncs must be supplied by the caller of NewRenderer.
var RequiredFuncs = []string{"setting", "markdown", "siteName"}

// DefaultFuncs are available in every template.
func DefaultFuncs() template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"datePtr": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"hasID":      func(ids []int64, id int64) bool { return slices.Contains(ids, id) },
		"query":      url.QueryEscape,
		"dict":       dict,
		"mediaURL":   func(m *models.Media, variant string) string { return m.URL(variant) },
		"statuses":   func() []models.ArticleStatus { return models.ArticleStatuses },
		"fieldError": fieldError,
	}
}

// fieldError looks up the message of one form field; errs may be nil.
func fieldError(errs any, field string) string {
	switch e := errs.(type) {
	case apperrors.FieldErrors:
		return e[field]
	case map[string]string:
		return e[field]
	}
	return ""
}

// dict builds a map from alternating keys and values, for passing several
// values to a partial.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict needs key/value pairs")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, errors.New("dict keys must be strings")
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}
