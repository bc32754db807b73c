package account

import (
	"github.com/shopspring/decimal"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// CreateRequest describes a new account. A nil Scale takes the currency's
// default.
type CreateRequest struct {
	GroupID      int64           `json:"groupId"`
	Name         string          `json:"name"`
	Currency     string          `json:"currency"`
	Scale        *int32          `json:"scale,omitempty"`
	StartBalance decimal.Decimal `json:"startBalance"`
	Address      string          `json:"address,omitempty"`
}

// UpdateRequest changes the descriptive fields of an account
type UpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}

// View is an account with its current balance
type View struct {
	ledger.Account
	Balance decimal.Decimal `json:"balance"`
	Display string          `json:"display"`
}

func newView(a ledger.Account, units int64) View {
	return View{
		Account: a,
		Balance: ledger.ToMajor(units, a.Scale),
		Display: ledger.Format(units, a.Currency, a.Scale),
	}
}
