package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrExpired            = errors.New("link expired")
	ErrLimitExceeded      = errors.New("use limit exceeded")
	ErrInvalidUpdate      = errors.New("invalid update")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCodeSpaceExhausted = errors.New("unable to allocate a unique code")
)

// FieldViolation describes one rejected field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in one validation pass.
// It unwraps to its Kind so callers can match it with errors.Is.
type ValidationError struct {
	Kind       error
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return e.Kind.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Fields returns the violations keyed by field name.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Violations))
	for _, v := range e.Violations {
		out[v.Field] = v.Message
	}
	return out
}

// NewValidationError returns nil when there is nothing to report.
func NewValidationError(kind error, violations []FieldViolation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Kind: kind, Violations: violations}
}

func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsForbidden(err error) bool     { return errors.Is(err, ErrForbidden) }
func IsConflict(err error) bool      { return errors.Is(err, ErrConflict) }
func IsExpired(err error) bool       { return errors.Is(err, ErrExpired) }
func IsLimitExceeded(err error) bool { return errors.Is(err, ErrLimitExceeded) }
func IsInvalidUpdate(err error) bool { return errors.Is(err, ErrInvalidUpdate) }
