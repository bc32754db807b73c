package rule_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/finance-ledger/internal/domain/category"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
	"github.com/hirosato/finance-ledger/internal/domain/rule"
	"github.com/hirosato/finance-ledger/internal/platform/memstore"
)

const (
	user     int64 = 7
	stranger int64 = 9
)

func newService(t *testing.T) (*rule.Service, *memstore.Store, ledger.Roots) {
	t.Helper()
	roots := ledger.DefaultRoots()
	store := memstore.NewStore(roots, slog.Default())
	resolver := category.NewResolver(roots, slog.Default())
	categories := category.NewService(store, store, resolver, roots, slog.Default())
	return rule.NewService(store, resolver, categories, roots, slog.Default()), store, roots
}

func TestService_CreateRule(t *testing.T) {
	ctx := context.Background()
	svc, store, roots := newService(t)

	var groceries *ledger.Category
	err := store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		var err error
		groceries, err = u.SaveCategory(ctx, &ledger.Category{ParentID: roots.Expense, Name: "Groceries"})
		return err
	})
	require.NoError(t, err)

	created, err := svc.CreateRule(ctx, user, &rule.Request{
		ConditionType:  ledger.PartyContains,
		ConditionValue: "  lidl ",
		CategoryID:     groceries.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "lidl", created.ConditionValue)
	assert.Equal(t, user, created.OwnerID)
	assert.NotEqual(t, groceries.ID, created.CategoryID, "global category is copied for the user")

	views, err := svc.ListRules(ctx, user)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Groceries", views[0].CategoryName)

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			req  rule.Request
		}{
			{"unknown condition", rule.Request{ConditionType: 42, ConditionValue: "x", CategoryID: roots.Expense}},
			{"blank value", rule.Request{ConditionType: ledger.PartyEquals, ConditionValue: " ", CategoryID: roots.Expense}},
			{"no category", rule.Request{ConditionType: ledger.PartyEquals, ConditionValue: "x"}},
			{"correction category", rule.Request{ConditionType: ledger.PartyEquals, ConditionValue: "x", CategoryID: roots.Correction}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.CreateRule(ctx, user, &tt.req)
				assert.ErrorIs(t, err, errors.ErrValidation)
			})
		}
	})
}

func TestService_UpdateDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, roots := newService(t)

	created, err := svc.CreateRule(ctx, user, &rule.Request{ConditionType: ledger.DetailsEquals, ConditionValue: "rent", CategoryID: roots.Expense})
	require.NoError(t, err)

	_, err = svc.UpdateRule(ctx, stranger, created.ID, &rule.Request{ConditionType: ledger.DetailsEquals, ConditionValue: "x", CategoryID: roots.Expense})
	assert.ErrorIs(t, err, errors.ErrOwnershipViolation)
	assert.ErrorIs(t, svc.DeleteRule(ctx, stranger, created.ID), errors.ErrOwnershipViolation)

	updated, err := svc.UpdateRule(ctx, user, created.ID, &rule.Request{ConditionType: ledger.PartyEquals, ConditionValue: "Landlord", CategoryID: roots.Income})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, ledger.PartyEquals, updated.ConditionType)
	assert.Equal(t, roots.Income, updated.CategoryID)

	require.NoError(t, svc.DeleteRule(ctx, user, created.ID))
	assert.ErrorIs(t, svc.DeleteRule(ctx, user, created.ID), errors.ErrNotFound)

	views, err := svc.ListRules(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, views)
}
