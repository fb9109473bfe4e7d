package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeInvalidIdentifier indicates a drug identifier failed validation
	ErrorTypeInvalidIdentifier ErrorType = "INVALID_IDENTIFIER"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from an external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeRateLimited indicates an external service rejected the call for rate limiting
	ErrorTypeRateLimited ErrorType = "RATE_LIMITED"

	// ErrorTypeCircuitOpen indicates a call was rejected by an open circuit breaker
	ErrorTypeCircuitOpen ErrorType = "CIRCUIT_OPEN"

	// ErrorTypeGeneration indicates the AI content generation step failed
	ErrorTypeGeneration ErrorType = "GENERATION"

	// ErrorTypePersistence indicates a database write failed
	ErrorTypePersistence ErrorType = "PERSISTENCE"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error

	// Retryable marks external failures the caller may retry (network errors,
	// 5xx responses) as opposed to terminal ones (4xx, malformed responses).
	Retryable bool

	// RetryAfter is a suggested wait before retrying, when known
	// (circuit-open rejections, rate-limit responses).
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewInvalidIdentifierError creates a new invalid identifier error
func NewInvalidIdentifierError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInvalidIdentifier,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error, retryable bool) *AppError {
	return &AppError{
		Type:      ErrorTypeExternal,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}

// NewRateLimitedError creates a new rate-limited error with a suggested wait
func NewRateLimitedError(message string, retryAfter time.Duration) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Message:    message,
		Retryable:  true,
		RetryAfter: retryAfter,
	}
}

// NewCircuitOpenError creates a new circuit-open rejection
func NewCircuitOpenError(dependency string, retryAfter time.Duration) *AppError {
	return &AppError{
		Type:       ErrorTypeCircuitOpen,
		Message:    fmt.Sprintf("circuit open for %s, retry after %dms", dependency, retryAfter.Milliseconds()),
		Retryable:  true,
		RetryAfter: retryAfter,
	}
}

// NewGenerationError creates a new AI generation error
func NewGenerationError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeGeneration,
		Message: message,
		Err:     err,
	}
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypePersistence,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsRetryable reports whether err is an AppError marked retryable. Plain
// errors are never retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// TypeOf returns the AppError type of err, or ErrorTypeInternal for plain errors
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}
