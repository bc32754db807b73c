package balance_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/finance-ledger/internal/domain/balance"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
	"github.com/hirosato/finance-ledger/internal/platform/memstore"
)

const owner int64 = 7

type fixture struct {
	store  *memstore.Store
	engine *balance.Engine
	roots  ledger.Roots
	a, b   ledger.Account
}

func newFixture(t *testing.T, startA, startB int64) *fixture {
	t.Helper()
	roots := ledger.DefaultRoots()
	f := &fixture{
		store:  memstore.NewStore(roots, slog.Default()),
		engine: balance.NewEngine(roots, slog.Default()),
		roots:  roots,
	}
	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		a, err := u.CreateAccount(ctx, &ledger.Account{GroupID: 1, Name: "Cash", Currency: "EUR", StartBalance: startA, Scale: 2})
		if err != nil {
			return err
		}
		b, err := u.CreateAccount(ctx, &ledger.Account{GroupID: 1, Name: "Bank", Currency: "EUR", StartBalance: startB, Scale: 2})
		if err != nil {
			return err
		}
		f.a, f.b = *a, *b
		return nil
	})
	require.NoError(t, err)
	return f
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) save(t *testing.T, prev *ledger.Transaction, tx ledger.Transaction) ledger.Transaction {
	t.Helper()
	var saved *ledger.Transaction
	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		var err error
		saved, err = f.engine.Save(ctx, u, prev, &tx)
		return err
	})
	require.NoError(t, err)
	return *saved
}

func (f *fixture) remove(t *testing.T, tx ledger.Transaction) {
	t.Helper()
	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		return f.engine.Delete(ctx, u, &tx)
	})
	require.NoError(t, err)
}

func (f *fixture) checkpoint(t *testing.T, account ledger.Account, at time.Time, target int64) {
	t.Helper()
	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		_, err := f.engine.Checkpoint(ctx, u, owner, &account, at, target)
		return err
	})
	require.NoError(t, err)
}

func (f *fixture) balanceAt(t *testing.T, account ledger.Account, at time.Time) int64 {
	t.Helper()
	var bal int64
	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		var err error
		bal, err = f.engine.BalanceAt(ctx, u, &account, at)
		return err
	})
	require.NoError(t, err)
	return bal
}

func (f *fixture) corrections(t *testing.T, account ledger.Account) []ledger.Transaction {
	t.Helper()
	var out []ledger.Transaction
	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		var err error
		out, err = u.FindTransactions(ctx, ledger.TransactionFilter{
			AccountIDs:  []int64{account.ID},
			CategoryIDs: []int64{f.roots.Correction},
		})
		return err
	})
	require.NoError(t, err)
	return out
}

func TestApplyDelta(t *testing.T) {
	tests := []struct {
		name       string
		correction ledger.Transaction
		amount     int64
		want       ledger.Transaction
	}{
		{
			name:       "expense correction shrinks",
			correction: ledger.Transaction{AccountID: 1, Debit: 100, Credit: 100},
			amount:     40,
			want:       ledger.Transaction{AccountID: 1, Debit: 60, Credit: 60},
		},
		{
			name:       "income correction grows",
			correction: ledger.Transaction{RecipientID: 1, Debit: 100, Credit: 100},
			amount:     40,
			want:       ledger.Transaction{RecipientID: 1, Debit: 140, Credit: 140},
		},
		{
			name:       "expense correction flips to income",
			correction: ledger.Transaction{AccountID: 1, Debit: 100, Credit: 100},
			amount:     150,
			want:       ledger.Transaction{RecipientID: 1, Debit: 50, Credit: 50},
		},
		{
			name:       "income correction flips to expense",
			correction: ledger.Transaction{RecipientID: 1, Debit: 100, Credit: 100},
			amount:     -130,
			want:       ledger.Transaction{AccountID: 1, Debit: 30, Credit: 30},
		},
		{
			name:       "reaches zero",
			correction: ledger.Transaction{AccountID: 1, Debit: 100, Credit: 100},
			amount:     100,
			want:       ledger.Transaction{AccountID: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, balance.ApplyDelta(tt.correction, tt.amount))
		})
	}
}

func TestApplyDelta_RoundTrip(t *testing.T) {
	c := ledger.Transaction{RecipientID: 1, Debit: 100, Credit: 100}
	for _, amount := range []int64{1, 99, 100, 101, 250, -75} {
		assert.Equal(t, c, balance.ApplyDelta(balance.ApplyDelta(c, amount), -amount), "amount %d", amount)
	}
}

func TestFold(t *testing.T) {
	accounts := []ledger.Account{{ID: 1, StartBalance: 1000}, {ID: 2}}
	rows := []ledger.BalanceRow{
		{AccountID: 1, Debit: 300},
		{RecipientID: 1, Credit: 50},
		{AccountID: 1, RecipientID: 2, Debit: 200, Credit: 190},
		{AccountID: 3, RecipientID: 2, Debit: 10, Credit: 10},
	}

	got := balance.Fold(accounts, rows)

	assert.Equal(t, int64(550), got[1])
	assert.Equal(t, int64(200), got[2])
	assert.NotContains(t, got, int64(3))
}

func TestEngine_AccountBalances_Cutoff(t *testing.T) {
	f := newFixture(t, 0, 0)
	first := f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(10), RecipientID: f.a.ID, Credit: 100})
	second := f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(10), AccountID: f.a.ID, Debit: 30})
	f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(11), AccountID: f.a.ID, Debit: 5})

	to := day(10)
	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		got, err := f.engine.AccountBalances(ctx, u, []ledger.Account{f.a}, &to, second.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), got[f.a.ID], "only the same-day row with a lower id counts")

		got, err = f.engine.AccountBalances(ctx, u, []ledger.Account{f.a}, &to, first.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got[f.a.ID])

		got, err = f.engine.AccountBalances(ctx, u, []ledger.Account{f.a}, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(65), got[f.a.ID])
		return nil
	})
	require.NoError(t, err)
}

func TestEngine_RunningBalances(t *testing.T) {
	f := newFixture(t, 1000, 0)
	f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(1), AccountID: f.a.ID, Debit: 100})
	f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(2), AccountID: f.a.ID, Debit: 200, RecipientID: f.b.ID, Credit: 200})
	f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(3), RecipientID: f.a.ID, Credit: 50})
	f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(4), AccountID: f.a.ID, Debit: 25})

	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		page, err := u.FindTransactions(ctx, ledger.TransactionFilter{AccountIDs: []int64{f.a.ID}, Limit: 3})
		require.NoError(t, err)
		require.Len(t, page, 3)

		lines, err := f.engine.RunningBalances(ctx, u, page, []ledger.Account{f.a})
		require.NoError(t, err)

		require.NotNil(t, lines[0].AccountBalance)
		assert.Equal(t, int64(725), *lines[0].AccountBalance)
		require.NotNil(t, lines[1].RecipientBalance)
		assert.Equal(t, int64(750), *lines[1].RecipientBalance)
		require.NotNil(t, lines[2].AccountBalance)
		assert.Equal(t, int64(700), *lines[2].AccountBalance)
		assert.Nil(t, lines[2].RecipientBalance, "recipient outside the requested set")
		return nil
	})
	require.NoError(t, err)
}

func TestEngine_Checkpoint(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(5), RecipientID: f.a.ID, Credit: 400})

	f.checkpoint(t, f.a, day(15), 1000)

	corrections := f.corrections(t, f.a)
	require.Len(t, corrections, 1)
	assert.Equal(t, f.a.ID, corrections[0].RecipientID)
	assert.Equal(t, int64(600), corrections[0].Credit)
	assert.Equal(t, int64(1000), f.balanceAt(t, f.a, day(15)))

	t.Run("adjusts the existing correction", func(t *testing.T) {
		f.checkpoint(t, f.a, day(15), 300)

		corrections := f.corrections(t, f.a)
		require.Len(t, corrections, 1)
		assert.Equal(t, f.a.ID, corrections[0].AccountID)
		assert.Equal(t, int64(100), corrections[0].Debit)
		assert.Equal(t, int64(300), f.balanceAt(t, f.a, day(15)))
	})

	t.Run("earlier checkpoint keeps the later one", func(t *testing.T) {
		f.checkpoint(t, f.a, day(10), 2000)

		assert.Equal(t, int64(2000), f.balanceAt(t, f.a, day(10)))
		assert.Equal(t, int64(300), f.balanceAt(t, f.a, day(15)))
	})

	t.Run("matching target removes the correction", func(t *testing.T) {
		f.checkpoint(t, f.a, day(10), 400)

		assert.Len(t, f.corrections(t, f.a), 1)
		assert.Equal(t, int64(300), f.balanceAt(t, f.a, day(15)))
	})
}

func TestEngine_CorrectionIdempotence(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.checkpoint(t, f.a, day(15), 100)
	require.Len(t, f.corrections(t, f.a), 1)

	tx := f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(10), AccountID: f.a.ID, Debit: 100})

	corrections := f.corrections(t, f.a)
	require.Len(t, corrections, 1)
	assert.Equal(t, int64(200), corrections[0].Credit)
	assert.Equal(t, int64(100), f.balanceAt(t, f.a, day(15)))

	f.remove(t, tx)

	corrections = f.corrections(t, f.a)
	require.Len(t, corrections, 1)
	assert.Equal(t, f.a.ID, corrections[0].RecipientID)
	assert.Equal(t, int64(100), corrections[0].Credit)
	assert.Equal(t, int64(100), corrections[0].Debit)
}

func TestEngine_MoveAcrossCorrection(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.checkpoint(t, f.a, day(15), 100)
	tx := f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(10), AccountID: f.a.ID, Debit: 40})
	require.Equal(t, int64(140), f.corrections(t, f.a)[0].Credit)

	moved := tx
	moved.Opdate = day(20)
	f.save(t, &tx, moved)

	corrections := f.corrections(t, f.a)
	require.Len(t, corrections, 1)
	assert.Equal(t, int64(100), corrections[0].Credit)
	assert.Equal(t, int64(60), f.balanceAt(t, f.a, day(20)))
}

func TestEngine_CorrectionCleanup(t *testing.T) {
	f := newFixture(t, 100, 0)
	f.checkpoint(t, f.a, day(15), 0)

	corrections := f.corrections(t, f.a)
	require.Len(t, corrections, 1)
	assert.Equal(t, f.a.ID, corrections[0].AccountID)
	assert.Equal(t, int64(100), corrections[0].Debit)

	f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(10), AccountID: f.a.ID, Debit: 100})

	assert.Empty(t, f.corrections(t, f.a))
	assert.Equal(t, int64(0), f.balanceAt(t, f.a, day(15)))
}

func TestEngine_StrictlyAfter(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.checkpoint(t, f.a, day(10), 100)
	before := f.corrections(t, f.a)[0]

	// same opdate, higher id: the correction precedes it
	f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(10), AccountID: f.a.ID, Debit: 30})

	after := f.corrections(t, f.a)
	require.Len(t, after, 1)
	assert.Equal(t, before.Credit, after[0].Credit)
	assert.Equal(t, int64(70), f.balanceAt(t, f.a, day(10)))
}

func TestEngine_TransferLegs(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.checkpoint(t, f.a, day(15), 500)
	f.checkpoint(t, f.b, day(20), 500)

	f.save(t, nil, ledger.Transaction{OwnerID: owner, Opdate: day(10), AccountID: f.a.ID, Debit: 200, RecipientID: f.b.ID, Credit: 180})

	ca := f.corrections(t, f.a)
	require.Len(t, ca, 1)
	assert.Equal(t, int64(700), ca[0].Credit)

	cb := f.corrections(t, f.b)
	require.Len(t, cb, 1)
	assert.Equal(t, int64(320), cb[0].Credit)

	assert.Equal(t, int64(500), f.balanceAt(t, f.a, day(15)))
	assert.Equal(t, int64(500), f.balanceAt(t, f.b, day(20)))
}

func TestEngine_InvalidTransactionAbortsUnit(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.checkpoint(t, f.a, day(15), 100)

	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		if _, err := f.engine.Save(ctx, u, nil, &ledger.Transaction{OwnerID: owner, Opdate: day(12), AccountID: f.a.ID, Debit: 10}); err != nil {
			return err
		}
		_, err := f.engine.Save(ctx, u, nil, &ledger.Transaction{OwnerID: owner, Opdate: day(11), Debit: 10})
		return err
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvariantViolation)
	assert.True(t, errors.IsAbortive(err))
	assert.Equal(t, int64(100), f.corrections(t, f.a)[0].Credit, "first save rolled back")
}

func TestEngine_PermutationInvariant(t *testing.T) {
	base := []func(a, b int64) ledger.Transaction{
		func(a, b int64) ledger.Transaction {
			return ledger.Transaction{OwnerID: owner, Opdate: day(5), AccountID: a, Debit: 100}
		},
		func(a, b int64) ledger.Transaction {
			return ledger.Transaction{OwnerID: owner, Opdate: day(10), RecipientID: a, Credit: 300}
		},
		func(a, b int64) ledger.Transaction {
			return ledger.Transaction{OwnerID: owner, Opdate: day(12), AccountID: a, Debit: 200, RecipientID: b, Credit: 200}
		},
		func(a, b int64) ledger.Transaction {
			return ledger.Transaction{OwnerID: owner, Opdate: day(14), AccountID: a, Debit: 50}
		},
		func(a, b int64) ledger.Transaction {
			return ledger.Transaction{OwnerID: owner, Opdate: day(3), RecipientID: a, Credit: 1500}
		},
	}

	var wantCorrection *ledger.Transaction
	for _, order := range permutations(len(base)) {
		f := newFixture(t, 0, 0)
		f.checkpoint(t, f.a, day(20), 1000)
		for _, i := range order {
			f.save(t, nil, base[i](f.a.ID, f.b.ID))
		}

		assert.Equal(t, int64(1000), f.balanceAt(t, f.a, day(20)), "order %v", order)
		corrections := f.corrections(t, f.a)
		require.Len(t, corrections, 1, "order %v", order)
		got := corrections[0]
		if wantCorrection == nil {
			wantCorrection = &got
			continue
		}
		assert.Equal(t, wantCorrection.AccountID, got.AccountID, "order %v", order)
		assert.Equal(t, wantCorrection.RecipientID, got.RecipientID, "order %v", order)
		assert.Equal(t, wantCorrection.Debit, got.Debit, "order %v", order)
	}
	require.NotNil(t, wantCorrection)
	assert.Equal(t, int64(450), wantCorrection.Debit)
	assert.NotZero(t, wantCorrection.AccountID)
}

func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			next := make([]int, 0, n)
			next = append(next, p[:i]...)
			next = append(next, n-1)
			next = append(next, p[i:]...)
			out = append(out, next)
		}
	}
	return out
}
