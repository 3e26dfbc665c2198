// Package errors provides structured error handling for the intel-agent
// service. It defines error types with codes, messages, causes, and
// contextual information so failures can be categorized at the HTTP layer.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type for structured error handling.
type ErrorCode string

// Error code constants for categorizing application errors.
const (
	ErrCodeConfig      ErrorCode = "CONFIG_ERROR"
	ErrCodeValidation  ErrorCode = "VALIDATION_ERROR"
	ErrCodeStorage     ErrorCode = "STORAGE_ERROR"
	ErrCodeExternalAPI ErrorCode = "EXTERNAL_API_ERROR"
	ErrCodeTimeout     ErrorCode = "TIMEOUT_ERROR"
	ErrCodeRateLimit   ErrorCode = "RATE_LIMIT_ERROR"
	ErrCodeUnknown     ErrorCode = "UNKNOWN_ERROR"
)

// AppError represents a structured application error with code, message,
// cause, and context. It implements the error interface and supports
// error unwrapping.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error returns a string representation of the AppError.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// ConfigError creates an AppError for configuration problems.
func ConfigError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeConfig, Message: message, Cause: cause}
}

// ValidationError creates an AppError for input or contract violations.
func ValidationError(message string, context map[string]interface{}) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Context: context}
}

// StorageError creates an AppError for event store read/write failures.
func StorageError(message string, cause error, context map[string]interface{}) *AppError {
	return &AppError{Code: ErrCodeStorage, Message: message, Cause: cause, Context: context}
}

// ExternalAPIError creates an AppError for external API call failures.
func ExternalAPIError(message string, cause error, context map[string]interface{}) *AppError {
	return &AppError{Code: ErrCodeExternalAPI, Message: message, Cause: cause, Context: context}
}

// TimeoutError creates an AppError for timeout failures.
func TimeoutError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeTimeout, Message: message, Cause: cause}
}

// RateLimitError creates an AppError for cooldown violations.
func RateLimitError(message string) *AppError {
	return &AppError{Code: ErrCodeRateLimit, Message: message}
}

// CodeOf extracts the ErrorCode from err, returning ErrCodeUnknown when err
// is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return ErrCodeUnknown
}
