// Package errors provides domain-specific error types for idsync.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for CLI exit presentation.
type Kind int

const (
	// KindRuntime is an operational failure (API call, unexpected state).
	KindRuntime Kind = iota
	// KindUsage is a precondition failure the operator can fix
	// (missing file, malformed CSV header, bad credentials config).
	KindUsage
)

// Sentinel errors for common failure scenarios.
var (
	ErrNotFound  = errors.New("not found")
	ErrTransient = errors.New("transient error")
)

// AppError is a structured application error with a machine-readable code.
type AppError struct {
	// Code is a machine-readable error code (e.g., "CSV_MISSING_COLUMNS").
	Code string

	// Message is a human-readable error message.
	Message string

	// Kind classifies the error as a usage or runtime failure.
	Kind Kind

	// Err is the wrapped underlying error.
	Err error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string, kind Kind) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// Wrap wraps an existing error into an AppError.
func Wrap(err error, code, message string, kind Kind) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    kind,
		Err:     err,
	}
}

// Common error constructors.

// Usage creates a usage-class error.
func Usage(code, message string) *AppError {
	return New(code, message, KindUsage)
}

// Runtime creates a runtime-class error.
func Runtime(code, message string) *AppError {
	return New(code, message, KindRuntime)
}

// IsAppError checks if an error is an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsUsage reports whether err is a usage-class AppError.
func IsUsage(err error) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Kind == KindUsage
}
