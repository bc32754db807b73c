package balance

import (
	"context"
	"time"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Checkpoint makes the balance of account at the end of at equal target by
// inserting or adjusting the account's correction dated at. It returns the
// resulting correction, or nil when none is needed.
func (e *Engine) Checkpoint(ctx context.Context, u ledger.Unit, ownerID int64, account *ledger.Account, at time.Time, target int64) (*ledger.Transaction, error) {
	current, err := e.BalanceAt(ctx, u, account, at)
	if err != nil {
		return nil, err
	}
	diff := target - current

	end := at.Add(time.Nanosecond)
	existing, err := u.FindTransactions(ctx, ledger.TransactionFilter{
		AccountIDs:  []int64{account.ID},
		CategoryIDs: []int64{e.roots.Correction},
		From:        &at,
		To:          &end,
		ForUpdate:   true,
	})
	if err != nil {
		return nil, err
	}

	var prev *ledger.Transaction
	for i := range existing {
		if existing[i].Kind() != ledger.KindTransfer {
			prev = &existing[i]
			break
		}
	}

	if prev == nil {
		if diff == 0 {
			return nil, nil
		}
		next := ApplyDelta(ledger.Transaction{
			OwnerID:    ownerID,
			Opdate:     at,
			AccountID:  account.ID,
			CategoryID: e.roots.Correction,
			Currency:   account.Currency,
		}, diff)
		e.logger.Info("creating correction", "accountId", account.ID, "opdate", at, "amount", diff)
		return e.Save(ctx, u, nil, &next)
	}

	if diff == 0 {
		return prev, nil
	}
	next := ApplyDelta(*prev, diff)
	next.OwnerID = ownerID
	e.logger.Info("adjusting correction", "accountId", account.ID, "correctionId", prev.ID, "amount", diff)
	saved, err := e.Save(ctx, u, prev, &next)
	if err != nil {
		return nil, err
	}
	if saved.Debit == 0 && saved.Credit == 0 {
		return nil, nil
	}
	return saved, nil
}
