// Package pagination computes page windows and the metadata returned by list endpoints.
package pagination

import "math"

// Request is a normalized page request.
type Request struct {
	Page  int
	Limit int
}

// Normalize clamps raw page and limit values. Page defaults to 1 and limit to
// defaultLimit; a positive maxLimit caps the limit. Page is capped so that the end of
// the page window always fits in an int.
func Normalize(page, limit, defaultLimit, maxLimit int) Request {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	if lastPage := math.MaxInt / limit; page > lastPage {
		page = lastPage
	}
	return Request{Page: page, Limit: limit}
}

// Offset returns the zero-based index of the first item on the page.
func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Window returns the half-open [start, end) range of the page clamped to total.
func (r Request) Window(total int) (int, int) {
	start := r.Offset()
	if start > total {
		start = total
	}
	end := start + r.Limit
	if end > total {
		end = total
	}
	return start, end
}

// Pagination is the metadata block embedded in list responses.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// New derives pagination metadata for a request over total items.
func New(r Request, total int) Pagination {
	if total < 0 {
		total = 0
	}
	totalPages := 0
	if r.Limit > 0 {
		totalPages = (total + r.Limit - 1) / r.Limit
	}
	return Pagination{
		Page:       r.Page,
		Limit:      r.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    r.Offset()+r.Limit < total,
		HasPrev:    r.Page > 1,
	}
}

// Slice returns the page of items and the matching metadata.
func Slice[T any](items []T, r Request) ([]T, Pagination) {
	start, end := r.Window(len(items))
	page := make([]T, end-start)
	copy(page, items[start:end])
	return page, New(r, len(items))
}
