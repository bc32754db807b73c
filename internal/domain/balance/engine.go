// Package balance computes account balances from the transaction log and
// keeps correction transactions consistent when history changes.
package balance

import (
	"context"
	"log/slog"
	"time"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Engine owns balance arithmetic and the correction invariant
type Engine struct {
	roots  ledger.Roots
	logger *slog.Logger
}

// NewEngine creates a new balance engine
func NewEngine(roots ledger.Roots, logger *slog.Logger) *Engine {
	return &Engine{
		roots:  roots,
		logger: logger,
	}
}

// Roots returns the reserved category ids the engine works with
func (e *Engine) Roots() ledger.Roots {
	return e.roots
}

// Balances aggregates debits and credits per (account, counterpart) pair
func (e *Engine) Balances(ctx context.Context, repo ledger.TransactionRepository, q ledger.BalanceQuery) ([]ledger.BalanceRow, error) {
	return repo.AggregateBalances(ctx, q)
}

// AccountBalances returns the balance of each account over the transactions
// selected by (to, beforeID). A nil to means the whole history.
func (e *Engine) AccountBalances(ctx context.Context, repo ledger.TransactionRepository, accounts []ledger.Account, to *time.Time, beforeID int64) (map[int64]int64, error) {
	if len(accounts) == 0 {
		return map[int64]int64{}, nil
	}
	ids := make([]int64, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	rows, err := repo.AggregateBalances(ctx, ledger.BalanceQuery{AccountIDs: ids, To: to, BeforeID: beforeID})
	if err != nil {
		return nil, err
	}
	return Fold(accounts, rows), nil
}

// BalanceAt returns the balance of one account including every transaction
// dated at or before at.
func (e *Engine) BalanceAt(ctx context.Context, repo ledger.TransactionRepository, account *ledger.Account, at time.Time) (int64, error) {
	to := at.Add(time.Nanosecond)
	balances, err := e.AccountBalances(ctx, repo, []ledger.Account{*account}, &to, 0)
	if err != nil {
		return 0, err
	}
	return balances[account.ID], nil
}

// Fold turns aggregated rows into balances: start balance plus credits
// received minus debits paid.
func Fold(accounts []ledger.Account, rows []ledger.BalanceRow) map[int64]int64 {
	balances := make(map[int64]int64, len(accounts))
	for _, a := range accounts {
		balances[a.ID] = a.StartBalance
	}
	for _, r := range rows {
		if _, ok := balances[r.AccountID]; ok {
			balances[r.AccountID] -= r.Debit
		}
		if _, ok := balances[r.RecipientID]; ok {
			balances[r.RecipientID] += r.Credit
		}
	}
	return balances
}
