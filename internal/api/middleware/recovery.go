package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
)

// RecoveryMiddleware is a middleware for recovering from panics
type RecoveryMiddleware struct{}

// NewRecoveryMiddleware creates a new recovery middleware
func NewRecoveryMiddleware() RecoveryMiddleware {
	return RecoveryMiddleware{}
}

// Handle turns a panic into an internal error so the caller still gets an
// error envelope
func (m RecoveryMiddleware) Handle(next Handler) Handler {
	return func(ctx context.Context, logger *slog.Logger, request Request) (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("PANIC", "command", request.Command, "panic", r, "stack", string(debug.Stack()))
				result = nil
				err = errors.NewInternalError("An unexpected error occurred", fmt.Errorf("panic: %v", r))
			}
		}()
		return next(ctx, logger, request)
	}
}
