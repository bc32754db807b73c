package balance

import (
	"context"
	"fmt"
	"slices"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// ApplyDelta shifts a one-sided correction by the signed effect of another
// transaction on the correction's account. An expense-shaped correction
// shrinks by a positive amount, an income-shaped one grows; a correction
// pushed below zero flips sides.
func ApplyDelta(c ledger.Transaction, amount int64) ledger.Transaction {
	if c.AccountID == 0 {
		amount = -amount
	}
	c.Credit -= amount
	c.Debit = c.Credit
	if c.Credit < 0 {
		c.Credit = -c.Credit
		c.Debit = c.Credit
		c.AccountID, c.RecipientID = c.RecipientID, c.AccountID
	}
	return c
}

// Repair tracks the corrections touched within one atomic unit. Undo must
// run before the changed transaction is persisted and Apply after; Finish
// removes the corrections that ended at zero.
type Repair struct {
	engine  *Engine
	unit    ledger.Unit
	touched []int64
}

// Begin starts a correction repair inside u
func (e *Engine) Begin(u ledger.Unit) *Repair {
	return &Repair{engine: e, unit: u}
}

// Undo removes the effect of t, as stored, from later corrections
func (r *Repair) Undo(ctx context.Context, t *ledger.Transaction) error {
	return r.shift(ctx, t, -1)
}

// Apply adds the effect of t, as persisted, to later corrections
func (r *Repair) Apply(ctx context.Context, t *ledger.Transaction) error {
	if t.Kind() == ledger.KindInvalid {
		return errors.NewInvariantViolation("transaction has neither account nor recipient").
			WithDetail("transactionId", t.ID)
	}
	if r.engine.roots.IsCorrection(t) {
		r.touch(t.ID)
	}
	return r.shift(ctx, t, 1)
}

// Finish deletes every touched correction whose amount returned to zero
func (r *Repair) Finish(ctx context.Context) error {
	for _, id := range r.touched {
		c, err := r.unit.GetTransaction(ctx, id)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		if c.Debit != 0 || c.Credit != 0 {
			continue
		}
		if err := r.unit.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		r.engine.logger.Debug("zero correction removed", "correctionId", id)
	}
	r.touched = nil
	return nil
}

func (r *Repair) shift(ctx context.Context, t *ledger.Transaction, sign int64) error {
	pos := t.Position()
	for _, accountID := range sides(t) {
		delta := sign * t.SignedDelta(accountID)
		if delta == 0 {
			continue
		}
		corrections, err := r.unit.FindTransactions(ctx, ledger.TransactionFilter{
			AccountIDs:  []int64{accountID},
			CategoryIDs: []int64{r.engine.roots.Correction},
			After:       &pos,
			ForUpdate:   true,
		})
		if err != nil {
			return err
		}
		for _, c := range corrections {
			if c.ID == t.ID {
				continue
			}
			if c.Kind() == ledger.KindTransfer {
				return errors.NewInvariantViolation(fmt.Sprintf("correction %d has both sides", c.ID)).
					WithDetail("accountId", accountID)
			}
			next := ApplyDelta(c, delta)
			if _, err := r.unit.SaveTransaction(ctx, &next); err != nil {
				return err
			}
			r.touch(c.ID)
			r.engine.logger.Debug("correction adjusted",
				"correctionId", c.ID, "accountId", accountID, "delta", delta,
				"debit", next.Debit, "credit", next.Credit)
		}
	}
	return nil
}

func (r *Repair) touch(id int64) {
	if !slices.Contains(r.touched, id) {
		r.touched = append(r.touched, id)
	}
}

// sides returns the distinct accounts t debits or credits
func sides(t *ledger.Transaction) []int64 {
	var ids []int64
	if t.AccountID != 0 {
		ids = append(ids, t.AccountID)
	}
	if t.RecipientID != 0 && t.RecipientID != t.AccountID {
		ids = append(ids, t.RecipientID)
	}
	return ids
}

// Save persists t, inserting when prev is nil, with the correction protocol
// run around the write in the caller's unit.
func (e *Engine) Save(ctx context.Context, u ledger.Unit, prev *ledger.Transaction, t *ledger.Transaction) (*ledger.Transaction, error) {
	repair := e.Begin(u)
	if t.Kind() == ledger.KindInvalid {
		return nil, errors.NewInvariantViolation("transaction has neither account nor recipient")
	}
	if prev != nil {
		if err := repair.Undo(ctx, prev); err != nil {
			return nil, err
		}
	}
	saved, err := u.SaveTransaction(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := repair.Apply(ctx, saved); err != nil {
		return nil, err
	}
	if err := repair.Finish(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}

// Delete removes t and takes its effect out of later corrections
func (e *Engine) Delete(ctx context.Context, u ledger.Unit, t *ledger.Transaction) error {
	repair := e.Begin(u)
	if err := repair.Undo(ctx, t); err != nil {
		return err
	}
	if err := u.DeleteTransaction(ctx, t.ID); err != nil {
		return err
	}
	return repair.Finish(ctx)
}
