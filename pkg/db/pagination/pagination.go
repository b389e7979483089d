// Package pagination implements opaque cursor paging for list endpoints.
package pagination

import (
	"encoding/base64"
	"encoding/json"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 250
)

// Pagination is the query-string paging contract shared by list endpoints.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Limit clamps the requested page size into [1, MaxPageSize].
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Cursor marks the last row of a page. Callers choose which key they order
// by; the token is opaque to clients.
type Cursor struct {
	Key string `json:"key,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(token string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Trim cuts an over-fetched result set (limit+1 rows) down to the page and
// derives its PageInfo. extractKey yields the cursor key of a row.
func Trim[T any](rows []T, limit int, extractKey func(T) string) ([]T, *PageInfo) {
	if len(rows) == 0 {
		return rows, &PageInfo{}
	}

	info := &PageInfo{}
	if len(rows) > limit {
		info.HasMore = true
		rows = rows[:limit]
	}
	info.NextPageToken = EncodeCursor(Cursor{Key: extractKey(rows[len(rows)-1])})
	return rows, info
}
