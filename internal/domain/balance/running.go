package balance

import (
	"context"
	"slices"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Line is a transaction with the balances of its sides right after it.
// A nil balance means the side is absent or was not requested.
type Line struct {
	ledger.Transaction
	AccountBalance   *int64 `json:"accountBalance,omitempty"`
	RecipientBalance *int64 `json:"recipientBalance,omitempty"`
}

// RunningBalances annotates a newest-first page with running balances of
// the given accounts. The page must hold every transaction of those accounts
// between its oldest and newest line.
func (e *Engine) RunningBalances(ctx context.Context, repo ledger.TransactionRepository, page []ledger.Transaction, accounts []ledger.Account) ([]Line, error) {
	lines := make([]Line, len(page))
	for i := range page {
		lines[i] = Line{Transaction: page[i]}
	}
	if len(page) == 0 || len(accounts) == 0 {
		return lines, nil
	}

	var touched []ledger.Account
	for _, a := range accounts {
		if slices.ContainsFunc(page, func(t ledger.Transaction) bool { return t.Touches(a.ID) }) {
			touched = append(touched, a)
		}
	}
	if len(touched) == 0 {
		return lines, nil
	}

	oldest := page[len(page)-1]
	balances, err := e.AccountBalances(ctx, repo, touched, &oldest.Opdate, oldest.ID)
	if err != nil {
		return nil, err
	}

	for i := len(lines) - 1; i >= 0; i-- {
		t := &lines[i]
		if bal, ok := balances[t.AccountID]; ok && t.AccountID != 0 {
			bal -= t.Debit
			balances[t.AccountID] = bal
			t.AccountBalance = &bal
		}
		if bal, ok := balances[t.RecipientID]; ok && t.RecipientID != 0 {
			bal += t.Credit
			balances[t.RecipientID] = bal
			t.RecipientBalance = &bal
		}
	}
	return lines, nil
}
