package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Request carries the editable fields of a transaction. Amounts are in
// major units and converted at the scale of the side they belong to.
type Request struct {
	Opdate      time.Time       `json:"opdate"`
	AccountID   int64           `json:"accountId,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	RecipientID int64           `json:"recipientId,omitempty"`
	Credit      decimal.Decimal `json:"credit"`
	CategoryID  int64           `json:"categoryId,omitempty"`
	Currency    string          `json:"currency,omitempty"`
	Party       string          `json:"party,omitempty"`
	Details     string          `json:"details,omitempty"`
}

// ListRequest filters a transaction listing
type ListRequest struct {
	AccountIDs []int64 `json:"accountIds,omitempty"`
	Currency   string  `json:"currency,omitempty"`
	Search     string  `json:"search,omitempty"`
	CategoryID int64   `json:"categoryId,omitempty"`
	// Uncategorized selects the virtual "uncategorized expense" or
	// "uncategorized income" category
	Uncategorized ledger.Kind `json:"uncategorized,omitempty"`
	From          *time.Time  `json:"from,omitempty"`
	To            *time.Time  `json:"to,omitempty"`
	Offset        int         `json:"offset,omitempty"`
	Limit         int         `json:"limit,omitempty"`
}

// withBalances reports whether the listing is a contiguous slice of the
// accounts' history, which running balances need
func (r *ListRequest) withBalances() bool {
	return r.Search == "" && r.Currency == "" && r.CategoryID == 0 && r.Uncategorized == ledger.KindInvalid
}
