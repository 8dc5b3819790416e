package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError so the HTTP layer can pick a status code.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindState      ErrorKind = "state"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindNetwork    ErrorKind = "network"
)

// AppError is the error type returned by the fulfillment rules and services.
type AppError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is matches on kind and code so sentinel comparisons survive wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// NewValidationError reports malformed or out-of-range input for a single field.
func NewValidationError(field, message string) *AppError {
	return &AppError{Kind: KindValidation, Code: "VALIDATION_FAILED", Field: field, Message: message}
}

// NewStateError reports an operation that is illegal in the current state.
func NewStateError(code, message string) *AppError {
	return &AppError{Kind: KindState, Code: code, Message: message}
}

var (
	ErrNotFound            = &AppError{Kind: KindNotFound, Code: "NOT_FOUND", Message: "resource not found"}
	ErrConcurrencyConflict = &AppError{Kind: KindConflict, Code: "CONCURRENCY_CONFLICT", Message: "resource was modified by another request"}
	ErrAlreadyExists       = &AppError{Kind: KindConflict, Code: "ALREADY_EXISTS", Message: "resource already exists"}
	ErrDuplicateRequest    = &AppError{Kind: KindConflict, Code: "DUPLICATE_REQUEST", Message: "request with this idempotency key was already processed"}
)

// KindOf returns the kind of the first AppError in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsValidation reports whether err carries a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// NewNetworkError reports a failed or 5xx call to an upstream service; callers may retry.
func NewNetworkError(message string) *AppError {
	return &AppError{Kind: KindNetwork, Code: "NETWORK_ERROR", Message: message}
}

// IsState reports whether err carries an illegal state transition.
func IsState(err error) bool { return KindOf(err) == KindState }
