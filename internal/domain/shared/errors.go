// Package shared holds the error kinds, events and small value objects used by
// the classroom domain and the layers around it.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is; DomainError carries one as Kind.
var (
	ErrNotFound = errors.New("entity not found")

	// Validation kinds; IsValidation matches all of them.
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrNotConfigured      = errors.New("not configured")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "classroom", "report", "storage"
	Op      string // Operation that failed, e.g., "AddStudent", "Generate"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the cause, or the kind when there is none.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches the kind as well as the cause.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Classroom domain errors
var (
	ErrClassNotFound        = NewDomainError("classroom", "FindClass", ErrNotFound, "class not found")
	ErrStudentNotFound      = NewDomainError("classroom", "FindStudent", ErrNotFound, "student not found")
	ErrScheduleItemNotFound = NewDomainError("classroom", "FindScheduleItem", ErrNotFound, "schedule item not found")
	ErrStudentNotInClass    = NewDomainError("classroom", "CheckMembership", ErrInvalidInput, "student does not belong to class")
	ErrInvalidSeverity      = NewDomainError("classroom", "Validate", ErrValueOutOfRange, "severity must be between -1 and 1")
	ErrInvalidWeekday       = NewDomainError("classroom", "Validate", ErrValueOutOfRange, "day of week must be between 0 and 6")
	ErrInvalidCategory      = NewDomainError("classroom", "Validate", ErrInvalidInput, "unknown behavior category")
	ErrIncidentIncomplete   = NewDomainError("classroom", "SubmitIncident", ErrValidation, "student and observation are required")
)

// Storage errors
var (
	ErrBlobNotFound = NewDomainError("storage", "Read", ErrNotFound, "no persisted state")
)

// Report errors
var (
	ErrReportNotConfigured = NewDomainError("report", "Generate", ErrNotConfigured, "API key is not configured")
	ErrReportEmpty         = NewDomainError("report", "Generate", ErrInvalidFormat, "model returned no text")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}
