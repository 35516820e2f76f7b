package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	cause error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that wraps an underlying cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf("%s: %v", message, cause),
		cause:   cause,
	}
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError("ERR_NOT_FOUND", "Resource not found")
	ErrUnauthorized = NewDomainError("ERR_UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden    = NewDomainError("ERR_FORBIDDEN", "Access to this resource is forbidden")
)
