package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes used across the ledger
const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
	CodeOwnershipViolation = "OWNERSHIP_VIOLATION"
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError is a custom error type for application errors
type AppError struct {
	Code       string
	Message    string
	StatusCode int // Same rule as HTTP status codes
	Err        error
	Details    map[string]interface{}
}

// Error returns a string representation of the error
func (e AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is implements the errors.Is interface
func (e AppError) Is(target error) bool {
	if target, ok := target.(AppError); ok {
		return target.Code == e.Code
	}
	return false
}

// Unwrap returns the underlying error
func (e AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a single detail to the error
func (e AppError) WithDetail(key string, value interface{}) AppError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

// Sentinels for errors.Is comparisons; only the code is compared.
var (
	ErrNotFound           = AppError{Code: CodeNotFound}
	ErrInvariantViolation = AppError{Code: CodeInvariantViolation}
	ErrOwnershipViolation = AppError{Code: CodeOwnershipViolation}
	ErrValidation         = AppError{Code: CodeValidation}
	ErrConflict           = AppError{Code: CodeConflict}
	ErrInternal           = AppError{Code: CodeInternal}
)

// NewValidationError creates a new validation error
func NewValidationError(message string) AppError {
	return AppError{
		Code:       CodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) AppError {
	return AppError{
		Code:       CodeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInvariantViolation reports a broken ledger invariant. The surrounding
// atomic unit must be rolled back.
func NewInvariantViolation(message string) AppError {
	return AppError{
		Code:       CodeInvariantViolation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewOwnershipViolation is returned when the caller edits something it does not own
func NewOwnershipViolation(message string) AppError {
	return AppError{
		Code:       CodeOwnershipViolation,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) AppError {
	return AppError{
		Code:       CodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) AppError {
	return AppError{
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsAbortive reports whether err must abort the atomic unit it was raised in.
// Invariant violations and store failures abort; not-found, ownership,
// validation and conflict errors are recoverable at the request layer.
func IsAbortive(err error) bool {
	if err == nil {
		return false
	}
	var appErr AppError
	if !stderrors.As(err, &appErr) {
		return true
	}
	return appErr.Code == CodeInvariantViolation || appErr.Code == CodeInternal
}

// IsNotFound reports whether err carries the NOT_FOUND code
func IsNotFound(err error) bool {
	return err != nil && stderrors.Is(err, ErrNotFound)
}
