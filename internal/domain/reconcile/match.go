package reconcile

import (
	"time"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// pool holds the stored transactions a batch may match; a matched
// transaction leaves the pool so it is claimed at most once
type pool struct {
	account    *ledger.Account
	candidates []ledger.Transaction
}

func newPool(account *ledger.Account, candidates []ledger.Transaction) *pool {
	return &pool{account: account, candidates: candidates}
}

// claim removes and returns the first candidate matching rec. ambiguous is
// set when more than one candidate matched.
func (p *pool) claim(rec *ledger.ImportRecord) (t *ledger.Transaction, ambiguous bool) {
	first := -1
	for i := range p.candidates {
		if !p.matches(rec, &p.candidates[i]) {
			continue
		}
		if first >= 0 {
			ambiguous = true
			break
		}
		first = i
	}
	if first < 0 {
		return nil, false
	}
	claimed := p.candidates[first]
	p.candidates = append(p.candidates[:first], p.candidates[first+1:]...)
	return &claimed, ambiguous
}

func (p *pool) matches(rec *ledger.ImportRecord, t *ledger.Transaction) bool {
	if !sameDay(rec.Opdate, t.Opdate) {
		return false
	}
	switch rec.Direction {
	case ledger.Debit:
		return t.AccountID == p.account.ID && ledger.EqualAtScale(rec.Amount, t.Debit, p.account.Scale)
	case ledger.Credit:
		return t.RecipientID == p.account.ID && ledger.EqualAtScale(rec.Amount, t.Credit, p.account.Scale)
	default:
		return false
	}
}

// sameDay compares calendar days in a's zone
func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
