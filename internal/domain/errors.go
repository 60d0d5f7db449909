package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError reports a field that could not be read as its declared type.
// Row is the 1-based position of the record in a batch, 0 for single records.
type ValidationError struct {
	Row    int    `json:"row,omitempty"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	subject := "record"
	if e.Field != "" {
		subject = "field " + e.Field
	}
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s: %s (got %q)", e.Row, subject, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s: %s (got %q)", subject, e.Reason, e.Value)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// WithRow returns a copy of e tagged with a batch row index.
func (e *ValidationError) WithRow(row int) *ValidationError {
	cp := *e
	cp.Row = row
	return &cp
}
