package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultParams returns the first page with the default limit.
func DefaultParams() Params {
	return Params{
		Page:   1,
		Limit:  DefaultLimit,
		Offset: 0,
	}
}

// FromRequest extracts page and limit from the query string. Out of range
// values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= MaxLimit {
			p.Limit = v
		}
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	Total       int  `json:"total"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// Result wraps one page of items.
type Result[T any] struct {
	Items []T
	Meta  Meta
}

// NewResult creates a paginated result.
func NewResult[T any](items []T, total int, params Params) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items, Meta: NewMeta(total, params)}
}

// NewMeta computes page counts for total items.
func NewMeta(total int, params Params) Meta {
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	totalPages := total / limit
	if total%limit > 0 {
		totalPages++
	}

	return Meta{
		CurrentPage: params.Page,
		TotalPages:  totalPages,
		Total:       total,
		Limit:       limit,
		HasNextPage: params.Page < totalPages,
		HasPrevPage: params.Page > 1,
	}
}
