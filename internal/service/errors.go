package service

import "errors"

var (
	// ErrNotFound means no record exists with the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden means the record exists but the caller does not own it.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries one message per offending field, keyed by the
// form field name, alongside the original input so forms can re-render.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}
