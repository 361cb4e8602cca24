package models

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items   []T
	Total   int
	Page    int
	PerPage int
}

// NewPage clamps page to at least 1.
func NewPage[T any](items []T, total, page, perPage int) Page[T] {
	if page < 1 {
		page = 1
	}
	return Page[T]{Items: items, Total: total, Page: page, PerPage: perPage}
}

func (p Page[T]) Pages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p Page[T]) HasNext() bool { return p.Page < p.Pages() }
func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) NextPage() int { return p.Page + 1 }
func (p Page[T]) PrevPage() int { return p.Page - 1 }

// Offset returns the SQL OFFSET for a 1-based page.
func Offset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}
