package shared

// ListFilters represents standard list page filters.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
}

const (
	// DefaultPage is the first page served when none is requested.
	DefaultPage = 1
	// DefaultLimit caps list pages when none is requested.
	DefaultLimit = 10

	// SortAsc and SortDesc are the accepted sort directions.
	SortAsc  = "asc"
	SortDesc = "desc"
)
