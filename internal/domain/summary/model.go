package summary

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirosato/finance-ledger/internal/domain/category"
)

// Request narrows a report. Empty AccountIDs means every accessible account.
type Request struct {
	AccountIDs []int64
	From       *time.Time
	To         *time.Time
}

// CurrencySummary totals one currency's money flow over a period. Scale is
// the largest account scale seen for the currency.
type CurrencySummary struct {
	Currency     string          `json:"currency"`
	Scale        int32           `json:"scale"`
	Expenses     decimal.Decimal `json:"debit"`
	Income       decimal.Decimal `json:"credit"`
	TransfersOut decimal.Decimal `json:"transfersDebit"`
	TransfersIn  decimal.Decimal `json:"transfersCredit"`
}

// CategoryTotal is the amount booked under one top-level category in one
// currency
type CategoryTotal struct {
	Category category.View   `json:"category"`
	Currency string          `json:"currency"`
	Scale    int32           `json:"scale"`
	Amount   decimal.Decimal `json:"sum"`
}
