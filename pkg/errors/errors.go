package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// Search error taxonomy. Match with errors.Is.
var (
	ErrTagNotFound           = stderrors.New("tag not found")
	ErrInvalidCoordinatePair = stderrors.New("latitude and longitude must be supplied together")
	ErrCacheUnavailable      = stderrors.New("cache unavailable")
	ErrCandidateStore        = stderrors.New("candidate store failure")
)

// Machine readable codes returned at the HTTP boundary.
const (
	CodeTagNotFound           = "TAG_NOT_FOUND"
	CodeInvalidCoordinatePair = "INVALID_COORDINATE_PAIR"
	CodeInvalidFilter         = "INVALID_FILTER"
	CodeInternal              = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
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
		Code:    CodeInvalidFilter,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewTagNotFoundError reports tag names that have no persisted tag.
func NewTagNotFoundError(missing []string) *AppError {
	message := "unknown tag filter"
	if len(missing) > 0 {
		message = fmt.Sprintf("unknown tag filter: %s", strings.Join(missing, ", "))
	}
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    CodeTagNotFound,
		Message: message,
		Err:     ErrTagNotFound,
	}
}

// NewInvalidCoordinatePairError is returned when only one of lat/lng is supplied.
func NewInvalidCoordinatePairError() *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    CodeInvalidCoordinatePair,
		Message: "lat and lng must be provided together",
		Err:     ErrInvalidCoordinatePair,
	}
}

// NewCacheUnavailableError wraps a failed cache round-trip.
func NewCacheUnavailableError(operation string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Code:    CodeInternal,
		Message: fmt.Sprintf("cache %s failed", operation),
		Err:     fmt.Errorf("%w: %v", ErrCacheUnavailable, err),
	}
}

// NewCandidateStoreError wraps a failed candidate scan. These are retryable.
func NewCandidateStoreError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternal,
		Message: message,
		Err:     fmt.Errorf("%w: %v", ErrCandidateStore, err),
	}
}

// IsRetryable reports whether the caller may retry the failed request.
func IsRetryable(err error) bool {
	return stderrors.Is(err, ErrCandidateStore)
}

// As extracts the first AppError in the chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
