package response

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
)

func TestSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Paginated(&buf, []int{1, 2}, Pagination{Offset: 10, Limit: 2, Count: 2}, "op-1"))

	var got SuccessResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, "op-1", got.Metadata.OperationID)
	require.NotNil(t, got.Pagination)
	assert.Equal(t, 10, got.Pagination.Offset)
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
		wantExit int
	}{
		{"validation", errors.NewValidationError("bad amount").WithDetail("field", "debit"), errors.CodeValidation, "bad amount", 2},
		{"internal hides cause", errors.NewInternalError("store failed", stderrors.New("dial tcp")), errors.CodeInternal, "store failed", 1},
		{"plain error", stderrors.New("boom"), errors.CodeInternal, "An unexpected error occurred", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Error(&buf, tt.err, ""))

			var got ErrorResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
			assert.False(t, got.Success)
			assert.Equal(t, tt.wantCode, got.Error)
			assert.Equal(t, tt.wantMsg, got.ErrorDescription.Message)
			assert.Equal(t, tt.wantExit, ExitCode(tt.err))
		})
	}
	assert.Equal(t, 0, ExitCode(nil))
}
