package contracts

import "math"

// Default and maximum page sizes for list operations.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a paginated result.
type Page[T any] struct {
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	TotalPages    int  `json:"totalPages"`
	TotalElements int  `json:"totalElements"`
	HasNext       bool `json:"hasNext"`
	HasPrevious   bool `json:"hasPrevious"`
	Content       []T  `json:"content"`
}

// NewPage builds a Page for the 1-based page number. Content is never nil.
func NewPage[T any](content []T, number, size, total int) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}
	return Page[T]{
		Number:        number,
		Size:          size,
		TotalPages:    totalPages,
		TotalElements: total,
		HasNext:       number < totalPages,
		HasPrevious:   number > 1,
		Content:       content,
	}
}

// PageRequest holds 1-based pagination parameters.
type PageRequest struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// Normalize applies defaults and bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	// Keeps Offset from overflowing.
	if p.Page > math.MaxInt/p.Limit {
		p.Page = math.MaxInt / p.Limit
	}
	return p
}

// Offset returns the number of records to skip.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}
