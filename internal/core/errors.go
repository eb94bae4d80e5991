package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found or not owned
	ErrCatState      ErrorCategory = "state"      // Illegal lifecycle transition
	ErrCatAuth       ErrorCategory = "auth"       // Missing caller identity
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      CodeRunNotFound,
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrAuth creates an authentication error for a caller without identity.
func ErrAuth(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      CodeOwnerRequired,
		Message:   message,
		Retryable: false,
	}
}

// ErrInternal creates an internal error wrapping cause.
func ErrInternal(message string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatInternal,
		Code:      CodeInternal,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsNotFound reports whether err is a not-found domain error.
func IsNotFound(err error) bool {
	return err != nil && IsCategory(err, ErrCatNotFound)
}

// Predefined error codes
const (
	CodeOwnerRequired      = "OWNER_REQUIRED"
	CodeActionTypeRequired = "ACTION_TYPE_REQUIRED"
	CodeRunNotFound        = "RUN_NOT_FOUND"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeRunNotTerminal     = "RUN_NOT_TERMINAL"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeDuplicateAction    = "DUPLICATE_ACTION"
	CodeInvalidAction      = "INVALID_ACTION"
	CodeInternal           = "INTERNAL"
)
