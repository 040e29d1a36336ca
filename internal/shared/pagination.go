package shared

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultPage is used when no page is requested.
	DefaultPage = 1
	// DefaultLimit is the default page size.
	DefaultLimit = 10
	// MaxLimit caps the page size.
	MaxLimit = 100

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters carries the standard list query parameters.
type ListFilters struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
	StartDate *time.Time
	EndDate   *time.Time
	IsActive  *bool
}

// Offset returns the row offset for the current page.
func (f ListFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Normalize applies defaults and caps.
func (f ListFilters) Normalize() ListFilters {
	if f.Page <= 0 {
		f.Page = DefaultPage
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.SortOrder != SortAsc {
		f.SortOrder = SortDesc
	}
	return f
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, limit, total int) Pagination {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if page <= 0 {
		page = DefaultPage
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// OrderClause resolves SortBy against the allowed columns and returns an
// ORDER BY expression. An empty SortBy falls back to fallback.
func (f ListFilters) OrderClause(columns map[string]string, fallback string) (string, error) {
	column := fallback
	if f.SortBy != "" {
		c, ok := columns[f.SortBy]
		if !ok {
			keys := make([]string, 0, len(columns))
			for k := range columns {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return "", Validation("sortBy must be one of [%s]", strings.Join(keys, " "))
		}
		column = c
	}
	dir := "DESC"
	if f.SortOrder == SortAsc {
		dir = "ASC"
	}
	return column + " " + dir, nil
}
