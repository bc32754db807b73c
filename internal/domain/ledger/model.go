package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a single-currency money container inside an account group
type Account struct {
	ID           int64     `json:"id"`
	GroupID      int64     `json:"groupId"`
	Name         string    `json:"name"`
	Currency     string    `json:"currency"`
	StartBalance int64     `json:"startBalance"` // minor units at Scale
	Scale        int32     `json:"scale"`
	Address      string    `json:"address,omitempty"` // wallet address for blockchain accounts
	Deleted      bool      `json:"deleted"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Transaction is one entry of the ledger. AccountID is the debit side,
// RecipientID the credit side; zero means the side is absent.
type Transaction struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"ownerId"`
	Opdate      time.Time `json:"opdate"`
	AccountID   int64     `json:"accountId,omitempty"`
	Debit       int64     `json:"debit"`
	RecipientID int64     `json:"recipientId,omitempty"`
	Credit      int64     `json:"credit"`
	CategoryID  int64     `json:"categoryId,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Party       string    `json:"party,omitempty"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Position returns the transaction's place in canonical order
func (t *Transaction) Position() Position {
	return Position{Opdate: t.Opdate, ID: t.ID}
}

// Kind classifies the transaction by which sides are populated
func (t *Transaction) Kind() Kind {
	switch {
	case t.AccountID != 0 && t.RecipientID != 0:
		return KindTransfer
	case t.AccountID != 0:
		return KindExpense
	case t.RecipientID != 0:
		return KindIncome
	default:
		return KindInvalid
	}
}

// Touches reports whether the transaction debits or credits accountID
func (t *Transaction) Touches(accountID int64) bool {
	return accountID != 0 && (t.AccountID == accountID || t.RecipientID == accountID)
}

// SignedDelta is the transaction's effect on corrections of accountID:
// the debit when the account pays, minus the credit when it receives.
func (t *Transaction) SignedDelta(accountID int64) int64 {
	var delta int64
	if t.AccountID == accountID {
		delta += t.Debit
	}
	if t.RecipientID == accountID {
		delta -= t.Credit
	}
	return delta
}

// Kind of a transaction
type Kind int

const (
	KindInvalid Kind = iota
	KindExpense
	KindIncome
	KindTransfer
)

func (k Kind) String() string {
	switch k {
	case KindExpense:
		return "expense"
	case KindIncome:
		return "income"
	case KindTransfer:
		return "transfer"
	default:
		return "invalid"
	}
}

// Position is a point in canonical transaction order (opdate desc, id desc)
type Position struct {
	Opdate time.Time
	ID     int64
}

// Before reports whether p comes earlier than q in time, ties broken by id
func (p Position) Before(q Position) bool {
	if p.Opdate.Equal(q.Opdate) {
		return p.ID < q.ID
	}
	return p.Opdate.Before(q.Opdate)
}

// Category is a node of the category tree. OwnerID zero marks a global
// category; ParentID zero marks a root.
type Category struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"ownerId,omitempty"`
	ParentID  int64     `json:"parentId,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsRoot reports whether the category has no parent
func (c *Category) IsRoot() bool {
	return c.ParentID == 0
}

// ConditionType selects what a rule compares against
type ConditionType int

const (
	PartyEquals          ConditionType = 1
	PartyContains        ConditionType = 2
	DetailsEquals        ConditionType = 3
	DetailsContains      ConditionType = 4
	CategoryNameEquals   ConditionType = 5
	CategoryNameContains ConditionType = 6
)

// Valid reports whether c is a known condition type
func (c ConditionType) Valid() bool {
	return c >= PartyEquals && c <= CategoryNameContains
}

func (c ConditionType) String() string {
	switch c {
	case PartyEquals:
		return "party-equals"
	case PartyContains:
		return "party-contains"
	case DetailsEquals:
		return "details-equals"
	case DetailsContains:
		return "details-contains"
	case CategoryNameEquals:
		return "category-name-equals"
	case CategoryNameContains:
		return "category-name-contains"
	default:
		return "unknown"
	}
}

// Rule assigns CategoryID to statement lines matching the condition
type Rule struct {
	ID             int64         `json:"id"`
	OwnerID        int64         `json:"ownerId"`
	ConditionType  ConditionType `json:"conditionType"`
	ConditionValue string        `json:"conditionValue"`
	CategoryID     int64         `json:"categoryId"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Direction of a statement line relative to the imported account
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// ImportRecord is a normalized statement line produced by a parser and
// annotated by reconciliation.
type ImportRecord struct {
	Opdate       time.Time       `json:"opdate"`
	Direction    Direction       `json:"direction"`
	Amount       decimal.Decimal `json:"amount"` // major units, non-negative
	Currency     string          `json:"currency,omitempty"`
	Party        string          `json:"party,omitempty"`
	Details      string          `json:"details,omitempty"`
	CategoryHint string          `json:"categoryHint,omitempty"`

	RuleID        int64 `json:"ruleId,omitempty"`
	CategoryID    int64 `json:"categoryId,omitempty"`
	TransactionID int64 `json:"transactionId,omitempty"`
	Selected      bool  `json:"selected"`

	// Ambiguous marks a match chosen among several same-day candidates
	Ambiguous bool `json:"ambiguous,omitempty"`
	// Problem explains why a record was left out of the batch
	Problem string `json:"problem,omitempty"`
}

// Kind maps the record direction to the transaction kind it would create
func (r *ImportRecord) Kind() Kind {
	if r.Direction == Debit {
		return KindExpense
	}
	return KindIncome
}
