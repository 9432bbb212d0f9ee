package domain

const (
	DefaultPageLimit = 20
	MinPageLimit     = 5
	MaxPageLimit     = 100
)

// Page is the envelope every paginated listing returns.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// NormalizePage clamps page to >= 1 and limit to [MinPageLimit, MaxPageLimit].
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit < MinPageLimit:
		limit = MinPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	return page, limit
}

func NewPage[T any](items []T, total, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page[T]{Items: items, Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// Offset returns the row offset for a normalized page.
func Offset(page, limit int) int {
	return (page - 1) * limit
}
