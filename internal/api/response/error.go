package response

import (
	stderrors "errors"
	"io"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success          bool             `json:"success"`
	Error            string           `json:"error"`
	ErrorDescription ErrorDescription `json:"error_description"`
	Metadata         ResponseMetadata `json:"metadata"`
}

// ErrorDescription represents the error details
type ErrorDescription struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// AsAppError converts any error to an AppError; unknown errors become
// internal errors
func AsAppError(err error) errors.AppError {
	var appErr errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.NewInternalError("An unexpected error occurred", err)
}

// Error writes err wrapped in the error envelope; the wrapped cause is
// never printed
func Error(w io.Writer, err error, operationID string) error {
	appErr := AsAppError(err)
	return write(w, ErrorResponse{
		Success: false,
		Error:   appErr.Code,
		ErrorDescription: ErrorDescription{
			Message: appErr.Message,
			Details: appErr.Details,
		},
		Metadata: metadata(operationID),
	})
}

// ExitCode maps an error to a process exit status: 0 for success, 2 for
// caller mistakes and 1 for everything else
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch AsAppError(err).Code {
	case errors.CodeValidation, errors.CodeNotFound, errors.CodeOwnershipViolation, errors.CodeConflict:
		return 2
	default:
		return 1
	}
}
