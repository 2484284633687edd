package listing

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is one slice of a filtered list together with its position.
type Page[T any] struct {
	Items      []T
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// NormalizePaging clamps page to at least 1 and limit to 1..MaxPageLimit,
// substituting DefaultPageLimit for a missing limit.
func NormalizePaging(page int, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// Paginate returns the requested page of items. Pages past the end are empty.
func Paginate[T any](items []T, page int, limit int) Page[T] {
	page, limit = NormalizePaging(page, limit)
	total := len(items)
	totalPages := (total + limit - 1) / limit

	start, end := total, total
	if page <= totalPages {
		start = (page - 1) * limit
		end = start + limit
		if end > total {
			end = total
		}
	}

	return Page[T]{
		Items:      append([]T{}, items[start:end]...),
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
