package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound represents a missing row or referenced row
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation represents malformed input rejected before any state change
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeStore represents an unreachable or failing backing store
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Row Errors

// ErrRowNotFound is returned when a row id does not resolve to a stored row
type ErrRowNotFound struct {
	*BaseError
	RowID string
}

func NewRowNotFound(rowID string) *ErrRowNotFound {
	return &ErrRowNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("row not found: %s", rowID), nil),
		RowID:     rowID,
	}
}

// ErrValidationFailed is returned when row input is malformed
type ErrValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidationFailed(field, reason string) *ErrValidationFailed {
	return &ErrValidationFailed{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Store Errors

// ErrStoreUnavailable is returned when the row or relationship store cannot serve a call.
// The core never retries these; retry policy belongs to the caller.
type ErrStoreUnavailable struct {
	*BaseError
	Operation string
}

func NewStoreUnavailable(operation string, err error) *ErrStoreUnavailable {
	return &ErrStoreUnavailable{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store operation failed: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// ErrConfigValidationFailed is returned when a config value is present but unusable
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Helper functions

// IsErrorType checks if an error, or anything it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var typed interface{ errorType() ErrorType }
	if errors.As(err, &typed) {
		return typed.errorType() == errType
	}
	return false
}

func (e *BaseError) errorType() ErrorType {
	return e.Type
}

// IsNotFound reports whether err is a not-found condition
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool {
	return IsErrorType(err, ErrorTypeValidation)
}

// IsRetryable checks if an error is retryable.
// Only store failures are; not-found and validation errors will fail the same way again.
func IsRetryable(err error) bool {
	return IsErrorType(err, ErrorTypeStore)
}
