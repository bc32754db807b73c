package summary_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/finance-ledger/internal/domain/category"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
	"github.com/hirosato/finance-ledger/internal/domain/summary"
	"github.com/hirosato/finance-ledger/internal/platform/memstore"
)

const (
	user  int64 = 7
	other int64 = 9
)

type fixture struct {
	store   *memstore.Store
	roots   ledger.Roots
	service *summary.Service

	cash, bank, dollars, theirs ledger.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	roots := ledger.DefaultRoots()
	store := memstore.NewStore(roots, slog.Default())
	store.AddGroup(1, user)
	store.AddGroup(2, other)
	resolver := category.NewResolver(roots, slog.Default())
	categories := category.NewService(store, store, resolver, roots, slog.Default())

	f := &fixture{
		store:   store,
		roots:   roots,
		service: summary.NewService(store, store, categories, roots, slog.Default()),
	}
	f.unit(t, func(ctx context.Context, u ledger.Unit) {
		for _, a := range []*ledger.Account{
			{GroupID: 1, Name: "Cash", Currency: "EUR", Scale: 2},
			{GroupID: 1, Name: "Bank", Currency: "EUR", Scale: 2},
			{GroupID: 1, Name: "Dollars", Currency: "USD", Scale: 2},
			{GroupID: 2, Name: "Theirs", Currency: "EUR", Scale: 2},
		} {
			created, err := u.CreateAccount(ctx, a)
			require.NoError(t, err)
			*a = *created
			switch a.Name {
			case "Cash":
				f.cash = *a
			case "Bank":
				f.bank = *a
			case "Dollars":
				f.dollars = *a
			case "Theirs":
				f.theirs = *a
			}
		}
	})
	return f
}

func (f *fixture) unit(t *testing.T, fn func(ctx context.Context, u ledger.Unit)) {
	t.Helper()
	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		fn(ctx, u)
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) book(t *testing.T, txs ...ledger.Transaction) {
	t.Helper()
	f.unit(t, func(ctx context.Context, u ledger.Unit) {
		for i := range txs {
			txs[i].OwnerID = user
			if txs[i].Opdate.IsZero() {
				txs[i].Opdate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
			}
			_, err := u.SaveTransaction(ctx, &txs[i])
			require.NoError(t, err)
		}
	})
}

func (f *fixture) category(t *testing.T, c ledger.Category) ledger.Category {
	t.Helper()
	var saved *ledger.Category
	f.unit(t, func(ctx context.Context, u ledger.Unit) {
		var err error
		saved, err = u.SaveCategory(ctx, &c)
		require.NoError(t, err)
	})
	return *saved
}

func TestService_Summary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.book(t,
		ledger.Transaction{AccountID: f.cash.ID, Debit: 1050, Credit: 1050},
		ledger.Transaction{RecipientID: f.bank.ID, Debit: 300000, Credit: 300000},
		ledger.Transaction{AccountID: f.bank.ID, Debit: 5000, RecipientID: f.cash.ID, Credit: 5000},
		ledger.Transaction{AccountID: f.bank.ID, Debit: 2000, RecipientID: f.theirs.ID, Credit: 2000},
		ledger.Transaction{AccountID: f.theirs.ID, Debit: 700, RecipientID: f.dollars.ID, Credit: 750},
		ledger.Transaction{AccountID: f.dollars.ID, Debit: 99, Credit: 99},
	)

	got, err := f.service.Summary(ctx, user, &summary.Request{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	eur, usd := got[0], got[1]
	assert.Equal(t, "EUR", eur.Currency)
	assert.Equal(t, "10.5", eur.Expenses.String())
	assert.Equal(t, "3000", eur.Income.String())
	assert.Equal(t, "20", eur.TransfersOut.String(), "cash<->bank transfer is internal")
	assert.True(t, eur.TransfersIn.IsZero())

	assert.Equal(t, "USD", usd.Currency)
	assert.Equal(t, "0.99", usd.Expenses.String())
	assert.Equal(t, "7.5", usd.TransfersIn.String())

	t.Run("account filter", func(t *testing.T) {
		got, err := f.service.Summary(ctx, user, &summary.Request{AccountIDs: []int64{f.cash.ID}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "50", got[0].TransfersIn.String(), "bank is outside the selection")
	})

	t.Run("inaccessible accounts", func(t *testing.T) {
		got, err := f.service.Summary(ctx, user, &summary.Request{AccountIDs: []int64{f.theirs.ID}})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestService_Categories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, ledger.Category{OwnerID: user, ParentID: f.roots.Expense, Name: "food"})
	snacks := f.category(t, ledger.Category{OwnerID: user, ParentID: food.ID, Name: "Snacks"})
	auto := f.category(t, ledger.Category{OwnerID: user, ParentID: f.roots.Expense, Name: "Auto"})
	globalFood := f.category(t, ledger.Category{ParentID: f.roots.Expense, Name: "Food"})

	f.book(t,
		ledger.Transaction{AccountID: f.cash.ID, Debit: 1000, Credit: 1000, CategoryID: food.ID},
		ledger.Transaction{AccountID: f.cash.ID, Debit: 250, Credit: 250, CategoryID: snacks.ID},
		ledger.Transaction{AccountID: f.bank.ID, Debit: 100, Credit: 100, CategoryID: globalFood.ID},
		ledger.Transaction{AccountID: f.bank.ID, Debit: 4000, Credit: 4000, CategoryID: auto.ID},
		ledger.Transaction{AccountID: f.dollars.ID, Debit: 500, Credit: 500, CategoryID: auto.ID},
		ledger.Transaction{AccountID: f.cash.ID, Debit: 77, Credit: 77},
		ledger.Transaction{AccountID: f.cash.ID, Debit: 999, Credit: 999, CategoryID: f.roots.Correction},
		ledger.Transaction{RecipientID: f.cash.ID, Debit: 123, Credit: 123},
	)

	got, err := f.service.Categories(ctx, user, ledger.KindExpense, &summary.Request{})
	require.NoError(t, err)

	type row struct {
		name, currency, amount string
	}
	var rows []row
	for _, c := range got {
		rows = append(rows, row{c.Category.FullName, c.Currency, c.Amount.String()})
	}
	assert.Equal(t, []row{
		{"Auto", "EUR", "40"},
		{"Auto", "USD", "5"},
		{"Expense", "EUR", "0.77"},
		{"food", "EUR", "13.5"},
	}, rows)
	assert.Equal(t, food.ID, got[3].Category.ID, "own category preferred over the global one")

	t.Run("income", func(t *testing.T) {
		got, err := f.service.Categories(ctx, user, ledger.KindIncome, &summary.Request{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, f.roots.Income, got[0].Category.ID)
		assert.Equal(t, "1.23", got[0].Amount.String())
	})

	t.Run("transfer kind rejected", func(t *testing.T) {
		_, err := f.service.Categories(ctx, user, ledger.KindTransfer, &summary.Request{})
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}
