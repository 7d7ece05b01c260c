package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound marks a missing vehicle, matriculation, reservation or renter.
var ErrNotFound = errors.New("not found")

// ErrConflict marks a date-range overlap or an out-of-service matriculation.
var ErrConflict = errors.New("conflict")

// ErrAmountMismatch is returned when the amount reported by the payment
// gateway does not exactly equal the expected millime amount. This is a
// security rejection, not a tolerance check.
var ErrAmountMismatch = errors.New("payment amount mismatch")

// NotFoundError wraps ErrNotFound with the entity that was looked up.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError wraps ErrConflict with a reason.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ValidationError accumulates per-field input problems detected before any
// mutation happens.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = msg
}

func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
