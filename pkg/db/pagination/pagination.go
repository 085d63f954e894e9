package pagination

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

// Pagination carries the standard cursor list parameters.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50"`
}

// Limit clamps the requested page size into [1, MaxPageSize].
func (p Pagination) Limit() int {
	if p.PageSize <= 0 || p.PageSize > MaxPageSize {
		return DefaultPageSize
	}
	return p.PageSize
}

// Cursor parses the page token as the snowflake id the previous page
// ended on. An empty token starts from the beginning.
func (p Pagination) Cursor() (snowflake.ID, error) {
	token := strings.TrimSpace(p.PageToken)
	if token == "" {
		return 0, nil
	}
	return snowflake.ParseString(token)
}

// NextToken trims a result fetched with limit+1 rows back to limit and
// returns the token for the following page, empty when the listing is
// exhausted.
func NextToken[T any](items []T, limit int, id func(T) snowflake.ID) ([]T, string) {
	if len(items) <= limit {
		return items, ""
	}
	items = items[:limit]
	return items, id(items[len(items)-1]).String()
}
