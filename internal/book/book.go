package book

import (
	"errors"
	"fmt"
	"strings"

	"bookcatalog/internal/platform/validate"
)

var (
	// ErrValidation marks input rejected before any store access.
	ErrValidation = errors.New("invalid input")
	// ErrNoFields is returned by Update when nothing would change.
	ErrNoFields = fmt.Errorf("%w: no fields to update", ErrValidation)
	// ErrConflict is returned when a write would duplicate an existing book.
	ErrConflict = errors.New("this book already exists")
	// ErrNotFound is returned when no book matches the id or search filters.
	ErrNotFound = errors.New("book not found")
)

// ValidationError lists the rejected fields. errors.Is(err, ErrValidation) holds.
type ValidationError struct {
	Fields []validate.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func check(v interface{}) error {
	if fields := validate.Struct(v); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CreateInput is the body of a create request.
type CreateInput struct {
	Title  string `json:"title" validate:"required,max=50"`
	Author string `json:"author" validate:"required,max=30"`
	Year   *int   `json:"year" validate:"omitempty,gte=0"`
}

// ListParams pages through the catalog in id order.
type ListParams struct {
	Limit  int `json:"limit" validate:"gte=1,lte=100"`
	Offset int `json:"offset" validate:"gte=0"`
}

const (
	DefaultLimit  = 10
	DefaultOffset = 0
)

// SearchParams are ANDed together. Nil or empty fields do not filter.
type SearchParams struct {
	Title  *string
	Author *string
	Year   *int
}

// UpdateInput carries the fields to change. Nil fields keep their stored value.
type UpdateInput struct {
	Title  *string `json:"title" validate:"omitempty,min=1,max=50"`
	Author *string `json:"author" validate:"omitempty,min=1,max=30"`
	Year   *int    `json:"year" validate:"omitempty,gte=0"`
}

func (in UpdateInput) empty() bool {
	return in.Title == nil && in.Author == nil && in.Year == nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
