package shared

// Filter represents query filter options
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "account_no",
		OrderDir: "asc",
		Filters:  make(map[string]interface{}),
	}
}

// Offset returns the row offset implied by the filter's page settings.
func (f Filter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.Limit()
}

// Limit returns the page size, defaulting when unset or out of range.
func (f Filter) Limit() int {
	if f.PageSize < 1 || f.PageSize > 100 {
		return 20
	}
	return f.PageSize
}
