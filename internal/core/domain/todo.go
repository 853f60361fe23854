package domain

import (
	"math"
	"time"
)

const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldCompleted   = "completed"

	QueryPage    = "page"
	QueryPerPage = "per_page"

	NameMaxLength        = 80
	DescriptionMaxLength = 750

	DefaultPage    = 1
	DefaultPerPage = 25
	MaxPerPage     = 1000
)

type Todo struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TodoFilter holds the optional equality filters of a listing. A nil field is not applied.
type TodoFilter struct {
	Name      *string
	Completed *bool
}

func (f TodoFilter) IsEmpty() bool {
	return f.Name == nil && f.Completed == nil
}

type PageRequest struct {
	Page    int
	PerPage int
}

// NewPageRequest falls back to the defaults for values below 1. PerPage is
// capped at MaxPerPage and Page is clamped so that Offset cannot overflow.
func NewPageRequest(page, perPage int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}

	if perPage < 1 {
		perPage = DefaultPerPage
	}

	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}

	return PageRequest{Page: page, PerPage: perPage}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// LastPage is the number of the last page holding rows for total matches, never below 1.
func (p PageRequest) LastPage(total int) int {
	if total <= 0 || p.PerPage <= 0 {
		return 1
	}

	return (total + p.PerPage - 1) / p.PerPage
}
