package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

type unit struct {
	d   *dataset
	acl *accessList
	now func() time.Time
}

// Accounts

func (u *unit) GetAccount(ctx context.Context, id int64) (*ledger.Account, error) {
	a, ok := u.d.accounts[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("account %d not found", id))
	}
	return &a, nil
}

func (u *unit) ListAccounts(ctx context.Context, ids []int64) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, a := range u.d.accounts {
		if len(ids) == 0 || slices.Contains(ids, a.ID) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b ledger.Account) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (u *unit) CreateAccount(ctx context.Context, account *ledger.Account) (*ledger.Account, error) {
	a := *account
	a.ID = u.d.nextID()
	a.CreatedAt = u.now()
	a.UpdatedAt = a.CreatedAt
	u.d.accounts[a.ID] = a
	u.acl.trackAccount(a)
	return &a, nil
}

func (u *unit) UpdateAccount(ctx context.Context, account *ledger.Account) error {
	if _, ok := u.d.accounts[account.ID]; !ok {
		return errors.NewNotFoundError(fmt.Sprintf("account %d not found", account.ID))
	}
	a := *account
	a.UpdatedAt = u.now()
	u.d.accounts[a.ID] = a
	u.acl.trackAccount(a)
	return nil
}

// Transactions

func (u *unit) GetTransaction(ctx context.Context, id int64) (*ledger.Transaction, error) {
	t, ok := u.d.transactions[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("transaction %d not found", id))
	}
	return &t, nil
}

func (u *unit) FindTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []ledger.Transaction
	for _, t := range u.d.transactions {
		if len(f.AccountIDs) > 0 && !slices.Contains(f.AccountIDs, t.AccountID) && !slices.Contains(f.AccountIDs, t.RecipientID) {
			continue
		}
		if !inWindow(t.Opdate, f.From, f.To) {
			continue
		}
		if f.After != nil && !f.After.Before(t.Position()) {
			continue
		}
		if len(f.CategoryIDs) > 0 && !slices.Contains(f.CategoryIDs, t.CategoryID) {
			continue
		}
		if f.Kind != ledger.KindInvalid && t.Kind() != f.Kind {
			continue
		}
		if f.Uncategorized && t.CategoryID != 0 {
			continue
		}
		if f.Currency != "" && !strings.EqualFold(u.currencyOf(&t), f.Currency) {
			continue
		}
		if search != "" && !u.matches(&t, search) {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b ledger.Transaction) int {
		if c := b.Opdate.Compare(a.Opdate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return paginate(out, f.Offset, f.Limit), nil
}

func (u *unit) SaveTransaction(ctx context.Context, t *ledger.Transaction) (*ledger.Transaction, error) {
	saved := *t
	now := u.now()
	if saved.ID == 0 {
		saved.ID = u.d.nextID()
		saved.CreatedAt = now
	} else if _, ok := u.d.transactions[saved.ID]; !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("transaction %d not found", saved.ID))
	}
	saved.UpdatedAt = now
	u.d.transactions[saved.ID] = saved
	return &saved, nil
}

func (u *unit) DeleteTransaction(ctx context.Context, id int64) error {
	if _, ok := u.d.transactions[id]; !ok {
		return errors.NewNotFoundError(fmt.Sprintf("transaction %d not found", id))
	}
	delete(u.d.transactions, id)
	return nil
}

func (u *unit) AggregateBalances(ctx context.Context, q ledger.BalanceQuery) ([]ledger.BalanceRow, error) {
	type pair struct{ account, recipient int64 }
	rows := map[pair]*ledger.BalanceRow{}
	for _, t := range u.d.transactions {
		if len(q.AccountIDs) > 0 && !slices.Contains(q.AccountIDs, t.AccountID) && !slices.Contains(q.AccountIDs, t.RecipientID) {
			continue
		}
		if q.From != nil && t.Opdate.Before(*q.From) {
			continue
		}
		if q.To != nil {
			before := t.Opdate.Before(*q.To)
			if q.BeforeID != 0 && t.Opdate.Equal(*q.To) && t.ID < q.BeforeID {
				before = true
			}
			if !before {
				continue
			}
		}
		k := pair{t.AccountID, t.RecipientID}
		row, ok := rows[k]
		if !ok {
			row = &ledger.BalanceRow{AccountID: t.AccountID, RecipientID: t.RecipientID}
			rows[k] = row
		}
		row.Debit += t.Debit
		row.Credit += t.Credit
		if t.Opdate.After(row.MaxOpdate) {
			row.MaxOpdate = t.Opdate
		}
	}
	out := make([]ledger.BalanceRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b ledger.BalanceRow) int {
		if c := cmp.Compare(a.AccountID, b.AccountID); c != 0 {
			return c
		}
		return cmp.Compare(a.RecipientID, b.RecipientID)
	})
	return out, nil
}

func (u *unit) CategorySums(ctx context.Context, q ledger.CategorySumQuery) ([]ledger.CategorySum, error) {
	type key struct{ category, account int64 }
	sums := map[key]int64{}
	for _, t := range u.d.transactions {
		if t.Kind() != q.Kind || !inWindow(t.Opdate, q.From, q.To) {
			continue
		}
		if q.ExcludeCategoryID != 0 && t.CategoryID == q.ExcludeCategoryID {
			continue
		}
		switch q.Kind {
		case ledger.KindExpense:
			if len(q.AccountIDs) == 0 || slices.Contains(q.AccountIDs, t.AccountID) {
				sums[key{t.CategoryID, t.AccountID}] += t.Debit
			}
		case ledger.KindIncome:
			if len(q.AccountIDs) == 0 || slices.Contains(q.AccountIDs, t.RecipientID) {
				sums[key{t.CategoryID, t.RecipientID}] += t.Credit
			}
		}
	}
	out := make([]ledger.CategorySum, 0, len(sums))
	for k, amount := range sums {
		out = append(out, ledger.CategorySum{CategoryID: k.category, AccountID: k.account, Amount: amount})
	}
	slices.SortFunc(out, func(a, b ledger.CategorySum) int {
		if c := cmp.Compare(a.CategoryID, b.CategoryID); c != 0 {
			return c
		}
		return cmp.Compare(a.AccountID, b.AccountID)
	})
	return out, nil
}

func (u *unit) ReplaceTransactionCategory(ctx context.Context, from, to int64) error {
	for id, t := range u.d.transactions {
		if t.CategoryID == from {
			t.CategoryID = to
			t.UpdatedAt = u.now()
			u.d.transactions[id] = t
		}
	}
	return nil
}

// Categories

func (u *unit) GetCategory(ctx context.Context, id int64) (*ledger.Category, error) {
	c, ok := u.d.categories[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("category %d not found", id))
	}
	return &c, nil
}

func (u *unit) ListCategories(ctx context.Context, ownerIDs []int64) ([]ledger.Category, error) {
	var out []ledger.Category
	for _, c := range u.d.categories {
		if c.OwnerID == 0 || slices.Contains(ownerIDs, c.OwnerID) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b ledger.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (u *unit) FindCategoriesByName(ctx context.Context, ownerID, parentID int64, name string) ([]ledger.Category, error) {
	var out []ledger.Category
	for _, c := range u.d.categories {
		if c.OwnerID == ownerID && c.ParentID == parentID && strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b ledger.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (u *unit) SaveCategory(ctx context.Context, c *ledger.Category) (*ledger.Category, error) {
	saved := *c
	now := u.now()
	if saved.ID == 0 {
		saved.ID = u.d.nextID()
		saved.CreatedAt = now
	} else if _, ok := u.d.categories[saved.ID]; !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("category %d not found", saved.ID))
	}
	saved.UpdatedAt = now
	u.d.categories[saved.ID] = saved
	return &saved, nil
}

func (u *unit) DeleteCategory(ctx context.Context, id int64) error {
	if _, ok := u.d.categories[id]; !ok {
		return errors.NewNotFoundError(fmt.Sprintf("category %d not found", id))
	}
	delete(u.d.categories, id)
	return nil
}

func (u *unit) ReplaceCategoryParent(ctx context.Context, from, to int64) error {
	for id, c := range u.d.categories {
		if c.ParentID == from {
			c.ParentID = to
			c.UpdatedAt = u.now()
			u.d.categories[id] = c
		}
	}
	return nil
}

// Rules

func (u *unit) GetRule(ctx context.Context, id int64) (*ledger.Rule, error) {
	r, ok := u.d.rules[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("rule %d not found", id))
	}
	return &r, nil
}

func (u *unit) ListRules(ctx context.Context, ownerID int64) ([]ledger.Rule, error) {
	var out []ledger.Rule
	for _, r := range u.d.rules {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b ledger.Rule) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (u *unit) SaveRule(ctx context.Context, r *ledger.Rule) (*ledger.Rule, error) {
	saved := *r
	now := u.now()
	if saved.ID == 0 {
		saved.ID = u.d.nextID()
		saved.CreatedAt = now
	} else if _, ok := u.d.rules[saved.ID]; !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("rule %d not found", saved.ID))
	}
	saved.UpdatedAt = now
	u.d.rules[saved.ID] = saved
	return &saved, nil
}

func (u *unit) DeleteRule(ctx context.Context, id int64) error {
	if _, ok := u.d.rules[id]; !ok {
		return errors.NewNotFoundError(fmt.Sprintf("rule %d not found", id))
	}
	delete(u.d.rules, id)
	return nil
}

func (u *unit) ReplaceRuleCategory(ctx context.Context, from, to int64) error {
	for id, r := range u.d.rules {
		if r.CategoryID == from {
			r.CategoryID = to
			r.UpdatedAt = u.now()
			u.d.rules[id] = r
		}
	}
	return nil
}

func (u *unit) DeleteRulesByCategory(ctx context.Context, categoryID int64) error {
	for id, r := range u.d.rules {
		if r.CategoryID == categoryID {
			delete(u.d.rules, id)
		}
	}
	return nil
}

// helpers

func (u *unit) currencyOf(t *ledger.Transaction) string {
	if t.Currency != "" {
		return t.Currency
	}
	if a, ok := u.d.accounts[t.AccountID]; ok {
		return a.Currency
	}
	if a, ok := u.d.accounts[t.RecipientID]; ok {
		return a.Currency
	}
	return ""
}

func (u *unit) matches(t *ledger.Transaction, search string) bool {
	if strings.Contains(strings.ToLower(t.Party), search) || strings.Contains(strings.ToLower(t.Details), search) {
		return true
	}
	if c, ok := u.d.categories[t.CategoryID]; ok {
		return strings.Contains(strings.ToLower(c.Name), search)
	}
	return false
}

func inWindow(at time.Time, from, to *time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && !at.Before(*to) {
		return false
	}
	return true
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ ledger.Unit = (*unit)(nil)
