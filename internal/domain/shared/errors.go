package shared

import (
	"errors"
	"strings"
	"time"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Field names the offending input when the error is user-correctable
	Field string `json:"field,omitempty"`
	// RetryAfter is set on rate limit errors so callers can render "try later"
	RetryAfter time.Duration `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// Sentinel errors below can therefore be matched with errors.Is even when
// the returned error carries a different message or field.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Reason returns the stable lower-case reason code used in telemetry and clients
func (e *DomainError) Reason() string {
	return strings.ToLower(e.Code)
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewFieldError creates a domain error attached to an input field
func NewFieldError(code, message, field string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// NewValidationError creates a VALIDATION_ERROR for the given field
func NewValidationError(message, field string) *DomainError {
	return NewFieldError(CodeValidation, message, field)
}

// ReasonCode extracts the reason code of err, or "internal_error" when err is
// not a domain error.
func ReasonCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Reason()
	}
	return "internal_error"
}

// Common error codes
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidState           = "INVALID_STATE"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrValidation             = NewDomainError(CodeValidation, "Validation failed")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrUnauthorized           = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrAuthenticationRequired = NewDomainError(CodeAuthenticationRequired, "Authentication required")
	ErrInvalidCredentials     = NewDomainError(CodeInvalidCredentials, "Invalid credentials")
)
