package middleware

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
)

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("passes results through", func(t *testing.T) {
		h := Chain(func(ctx context.Context, logger *slog.Logger, r Request) (interface{}, error) {
			return r.Command, nil
		}, NewRecoveryMiddleware(), NewLoggingMiddleware())

		got, err := h(ctx, slog.Default(), Request{Command: "accounts"})
		require.NoError(t, err)
		assert.Equal(t, "accounts", got)
	})

	t.Run("recovers panics", func(t *testing.T) {
		h := Chain(func(ctx context.Context, logger *slog.Logger, r Request) (interface{}, error) {
			panic("nil map")
		}, NewRecoveryMiddleware(), NewLoggingMiddleware())

		got, err := h(ctx, slog.Default(), Request{Command: "summary"})
		assert.Nil(t, got)
		assert.ErrorIs(t, err, errors.ErrInternal)
	})
}

func TestMaskSensitiveFlags(t *testing.T) {
	flags := map[string]string{"dsn": "postgres://u:p@h/db", "account": "3", "secret-id": ""}
	masked := maskSensitiveFlags(flags)
	assert.Equal(t, "***", masked["dsn"])
	assert.Equal(t, "3", masked["account"])
	assert.Equal(t, "", masked["secret-id"])
	assert.Equal(t, "postgres://u:p@h/db", flags["dsn"])
}
