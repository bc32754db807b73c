package ledger

// Roots holds the ids of the reserved root categories. A zero Transfer id
// means transfers carry no category.
type Roots struct {
	Transfer   int64 `yaml:"transfer"`
	Expense    int64 `yaml:"expense"`
	Income     int64 `yaml:"income"`
	Correction int64 `yaml:"correction"`
}

// DefaultRoots returns the stock root ids
func DefaultRoots() Roots {
	return Roots{Transfer: 0, Expense: 1, Income: 2, Correction: 3}
}

// IsRoot reports whether id is one of the reserved roots
func (r Roots) IsRoot(id int64) bool {
	if id == 0 {
		return false
	}
	return id == r.Expense || id == r.Income || id == r.Correction || id == r.Transfer
}

// KindOf maps a root id to the transaction kind it classifies
func (r Roots) KindOf(rootID int64) Kind {
	switch rootID {
	case r.Expense:
		return KindExpense
	case r.Income:
		return KindIncome
	case r.Transfer:
		return KindTransfer
	default:
		return KindInvalid
	}
}

// RootFor returns the root id for expense and income kinds
func (r Roots) RootFor(kind Kind) int64 {
	switch kind {
	case KindExpense:
		return r.Expense
	case KindIncome:
		return r.Income
	default:
		return r.Transfer
	}
}

// IsCorrection reports whether t is a correction transaction
func (r Roots) IsCorrection(t *Transaction) bool {
	return t.CategoryID != 0 && t.CategoryID == r.Correction
}
