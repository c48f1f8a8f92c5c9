package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the page section for a field is missing.
	ErrNotFound = errors.New("element not found")
	// ErrMalformed indicates a numeric field could not be parsed.
	ErrMalformed = errors.New("malformed value")
)

// FieldError reports why a single field fell back to its default.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
