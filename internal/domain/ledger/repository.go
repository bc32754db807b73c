package ledger

import (
	"context"
	"time"
)

// TransactionFilter selects transactions for FindTransactions. Zero values
// mean "no restriction"; results are ordered by opdate desc, id desc.
type TransactionFilter struct {
	// AccountIDs matches transactions whose account or recipient is listed
	AccountIDs []int64
	// From is inclusive, To is exclusive
	From *time.Time
	To   *time.Time
	// After keeps only transactions strictly after the position
	After *Position
	// CategoryIDs matches transactions in any of the categories
	CategoryIDs []int64
	// Kind restricts by populated sides; Uncategorized additionally requires
	// an empty category
	Kind          Kind
	Uncategorized bool
	Currency      string
	// Search is a case-insensitive substring of party, details or category name
	Search string
	// ForUpdate locks the returned rows until the unit ends
	ForUpdate bool
	Offset    int
	Limit     int
}

// BalanceQuery is the input of Contract A aggregation. To is exclusive
// unless BeforeID is set, in which case rows dated exactly To are included
// when their id is below BeforeID.
type BalanceQuery struct {
	AccountIDs []int64
	From       *time.Time
	To         *time.Time
	BeforeID   int64
}

// BalanceRow aggregates transactions of one (account, recipient) pair
type BalanceRow struct {
	AccountID   int64
	RecipientID int64
	Debit       int64
	Credit      int64
	MaxOpdate   time.Time
}

// CategorySumQuery selects one-sided transactions of a kind for reporting
type CategorySumQuery struct {
	AccountIDs        []int64
	Kind              Kind // KindExpense or KindIncome
	From              *time.Time
	To                *time.Time
	ExcludeCategoryID int64
}

// CategorySum is the amount booked to a category from one account
type CategorySum struct {
	CategoryID int64
	AccountID  int64
	Amount     int64
}

// AccountRepository persists accounts
type AccountRepository interface {
	GetAccount(ctx context.Context, id int64) (*Account, error)
	ListAccounts(ctx context.Context, ids []int64) ([]Account, error)
	CreateAccount(ctx context.Context, account *Account) (*Account, error)
	UpdateAccount(ctx context.Context, account *Account) error
}

// TransactionRepository persists transactions and answers the balance queries
type TransactionRepository interface {
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	FindTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	// SaveTransaction inserts when ID is zero and updates otherwise
	SaveTransaction(ctx context.Context, t *Transaction) (*Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	AggregateBalances(ctx context.Context, q BalanceQuery) ([]BalanceRow, error)
	CategorySums(ctx context.Context, q CategorySumQuery) ([]CategorySum, error)
	ReplaceTransactionCategory(ctx context.Context, from, to int64) error
}

// CategoryRepository persists the category tree
type CategoryRepository interface {
	GetCategory(ctx context.Context, id int64) (*Category, error)
	// ListCategories returns the categories owned by any of ownerIDs plus
	// the global ones
	ListCategories(ctx context.Context, ownerIDs []int64) ([]Category, error)
	// FindCategoriesByName matches (owner, parent, lower(name)), oldest first
	FindCategoriesByName(ctx context.Context, ownerID, parentID int64, name string) ([]Category, error)
	SaveCategory(ctx context.Context, c *Category) (*Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ReplaceCategoryParent(ctx context.Context, from, to int64) error
}

// RuleRepository persists categorization rules
type RuleRepository interface {
	GetRule(ctx context.Context, id int64) (*Rule, error)
	ListRules(ctx context.Context, ownerID int64) ([]Rule, error)
	SaveRule(ctx context.Context, r *Rule) (*Rule, error)
	DeleteRule(ctx context.Context, id int64) error
	ReplaceRuleCategory(ctx context.Context, from, to int64) error
	DeleteRulesByCategory(ctx context.Context, categoryID int64) error
}

// Unit is the repository view inside one atomic unit
type Unit interface {
	AccountRepository
	TransactionRepository
	CategoryRepository
	RuleRepository
}

// Store hands out atomic units
type Store interface {
	// WithinUnit runs fn in one atomic unit; a non-nil error rolls it back
	WithinUnit(ctx context.Context, fn func(ctx context.Context, u Unit) error) error
}

// AccessControl answers who may see what. Permission evaluation itself lives
// outside the ledger.
type AccessControl interface {
	AccessibleAccountIDs(ctx context.Context, userID int64) ([]int64, error)
	// VisibleOwnerIDs returns the user plus everyone sharing with them
	VisibleOwnerIDs(ctx context.Context, userID int64) ([]int64, error)
	UserIDByEmail(ctx context.Context, email string) (int64, error)
}
