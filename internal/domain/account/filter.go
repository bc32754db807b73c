package account

import (
	"strings"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Filter represents the filtering criteria for accounts
type Filter struct {
	Currency   string
	SearchTerm string
}

func (f *Filter) matches(a *ledger.Account) bool {
	if f.Currency != "" && !strings.EqualFold(f.Currency, a.Currency) {
		return false
	}
	if f.SearchTerm != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.SearchTerm)) {
		return false
	}
	return true
}
