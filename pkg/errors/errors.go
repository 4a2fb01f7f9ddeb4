package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures for logging and HTTP mapping
type ErrorType string

const (
	// Caller errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeRateLimit  ErrorType = "RATE_LIMIT"

	// Service errors
	ErrorTypeInternal ErrorType = "INTERNAL"
	ErrorTypeDatabase ErrorType = "DATABASE"

	// Upstream errors: the branch source failed and the tree was left as it was
	ErrorTypeExternal    ErrorType = "EXTERNAL"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:  http.StatusBadRequest,
	ErrorTypeNotFound:    http.StatusNotFound,
	ErrorTypeRateLimit:   http.StatusTooManyRequests,
	ErrorTypeInternal:    http.StatusInternalServerError,
	ErrorTypeDatabase:    http.StatusInternalServerError,
	ErrorTypeExternal:    http.StatusBadGateway,
	ErrorTypeUnavailable: http.StatusServiceUnavailable,
	ErrorTypeTimeout:     http.StatusGatewayTimeout,
}

// HTTPStatus returns the response status for the type
func (t ErrorType) HTTPStatus() int {
	if status, ok := statusByType[t]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// New creates an error of the given type
func New(t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		HTTPStatus: t.HTTPStatus(),
	}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails attaches response details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, resource+" not found")
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(message string) *AppError {
	return New(ErrorTypeRateLimit, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message)
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, err error) *AppError {
	return New(ErrorTypeDatabase, fmt.Sprintf("database operation '%s' failed", operation)).WithCause(err)
}

// NewExternalError creates an upstream failure for the named source
func NewExternalError(source string, err error) *AppError {
	return New(ErrorTypeExternal, fmt.Sprintf("branch source '%s' failed", source)).WithCause(err)
}

// NewUnavailableError creates an error for a source that refuses requests
func NewUnavailableError(source string) *AppError {
	return New(ErrorTypeUnavailable, fmt.Sprintf("branch source '%s' is unavailable", source))
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string) *AppError {
	return New(ErrorTypeTimeout, fmt.Sprintf("operation '%s' timed out", operation))
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsExternal reports upstream failures from an erroring or refusing source
func IsExternal(err error) bool {
	appErr := GetAppError(err)
	if appErr == nil {
		return false
	}
	switch appErr.Type {
	case ErrorTypeExternal, ErrorTypeUnavailable:
		return true
	}
	return false
}

// Wrap prefixes an AppError's message, or turns a plain error into an
// internal one
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = message + ": " + appErr.Message
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}
