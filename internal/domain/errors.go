package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeStore         = "STORE_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidTurnRole         = NewDomainError(ErrCodeValidation, "invalid turn role")
	ErrInvalidFeedbackCategory = NewDomainError(ErrCodeValidation, "invalid feedback category")
	ErrInvalidAuditOperation   = NewDomainError(ErrCodeValidation, "invalid audit operation")
	ErrMissingRequiredField    = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrFAQNotFound      = NewDomainError(ErrCodeNotFound, "faq entry not found")
	ErrSessionNotFound  = NewDomainError(ErrCodeNotFound, "conversation session not found")
	ErrQueryLogNotFound = NewDomainError(ErrCodeNotFound, "query log entry not found")
	ErrFeedbackNotFound = NewDomainError(ErrCodeNotFound, "feedback record not found")
)

// Store errors
var (
	ErrFAQAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "faq entry already exists")
)

// Availability errors
var (
	ErrAnswererUnavailable = NewDomainError(ErrCodeUnavailable, "answer generation unavailable")
)

// NewStoreError wraps a persistence failure as a store-level DomainError.
func NewStoreError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStore, message, err)
}
