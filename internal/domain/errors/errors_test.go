package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Is(t *testing.T) {
	err := NewNotFoundError("account 7 not found")

	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.False(t, stderrors.Is(err, ErrOwnershipViolation))

	wrapped := fmt.Errorf("load account: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrNotFound))
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
}

func TestAppError_Error(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewInternalError("failed to query transactions", cause)

	assert.Equal(t, "INTERNAL_ERROR: failed to query transactions: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "VALIDATION_ERROR: bad", NewValidationError("bad").Error())
}

func TestAppError_WithDetail(t *testing.T) {
	base := NewInvariantViolation("transaction has neither account nor recipient")
	withID := base.WithDetail("transactionId", int64(42))

	assert.Nil(t, base.Details)
	assert.Equal(t, int64(42), withID.Details["transactionId"])
}

func TestIsAbortive(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", NewNotFoundError("x"), false},
		{"ownership", NewOwnershipViolation("x"), false},
		{"validation", NewValidationError("x"), false},
		{"conflict", NewConflictError("x"), false},
		{"invariant", NewInvariantViolation("x"), true},
		{"internal", NewInternalError("x", nil), true},
		{"wrapped invariant", fmt.Errorf("save: %w", NewInvariantViolation("x")), true},
		{"foreign error", stderrors.New("driver: bad connection"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAbortive(tt.err))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", NewNotFoundError("rule 9 not found"))))
	assert.False(t, IsNotFound(NewConflictError("x")))
	assert.False(t, IsNotFound(nil))
}
