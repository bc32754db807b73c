// Package summary reports money flow per currency and per category.
package summary

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hirosato/finance-ledger/internal/domain/category"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Service builds reports over the accounts a user can see
type Service struct {
	store      ledger.Store
	acl        ledger.AccessControl
	categories *category.Service
	roots      ledger.Roots
	logger     *slog.Logger
}

// NewService creates a new summary service
func NewService(store ledger.Store, acl ledger.AccessControl, categories *category.Service, roots ledger.Roots, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		acl:        acl,
		categories: categories,
		roots:      roots,
		logger:     logger,
	}
}

// Summary returns one entry per currency of the selected accounts.
// Transfers between two selected accounts cancel out and are not counted.
func (s *Service) Summary(ctx context.Context, userID int64, req *Request) ([]CurrencySummary, error) {
	ids, err := s.selectAccounts(ctx, userID, req.AccountIDs)
	if err != nil || len(ids) == 0 {
		return []CurrencySummary{}, err
	}

	var out []CurrencySummary
	err = s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		accounts, err := u.ListAccounts(ctx, ids)
		if err != nil {
			return err
		}
		rows, err := u.AggregateBalances(ctx, ledger.BalanceQuery{AccountIDs: ids, From: req.From, To: req.To})
		if err != nil {
			return err
		}
		out = summarize(accounts, rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func summarize(accounts []ledger.Account, rows []ledger.BalanceRow) []CurrencySummary {
	byID := make(map[int64]ledger.Account, len(accounts))
	byCurrency := map[string]*CurrencySummary{}
	for _, a := range accounts {
		byID[a.ID] = a
		cs, ok := byCurrency[a.Currency]
		if !ok {
			cs = &CurrencySummary{Currency: a.Currency}
			byCurrency[a.Currency] = cs
		}
		cs.Scale = max(cs.Scale, a.Scale)
	}

	for _, r := range rows {
		account, hasAccount := byID[r.AccountID]
		recipient, hasRecipient := byID[r.RecipientID]
		if hasAccount {
			cs := byCurrency[account.Currency]
			debit := ledger.ToMajor(r.Debit, account.Scale)
			switch {
			case r.RecipientID == 0:
				cs.Expenses = cs.Expenses.Add(debit)
			case !hasRecipient:
				cs.TransfersOut = cs.TransfersOut.Add(debit)
			}
		}
		if hasRecipient {
			cs := byCurrency[recipient.Currency]
			credit := ledger.ToMajor(r.Credit, recipient.Scale)
			switch {
			case r.AccountID == 0:
				cs.Income = cs.Income.Add(credit)
			case !hasAccount:
				cs.TransfersIn = cs.TransfersIn.Add(credit)
			}
		}
	}

	out := make([]CurrencySummary, 0, len(byCurrency))
	for _, cs := range byCurrency {
		out = append(out, *cs)
	}
	slices.SortFunc(out, func(a, b CurrencySummary) int { return cmp.Compare(a.Currency, b.Currency) })
	return out
}

// Categories totals expenses or income by top-level category and account
// currency. Uncategorized amounts are reported under the kind's root and
// corrections are left out.
func (s *Service) Categories(ctx context.Context, userID int64, kind ledger.Kind, req *Request) ([]CategoryTotal, error) {
	if kind != ledger.KindExpense && kind != ledger.KindIncome {
		return nil, errors.NewValidationError(fmt.Sprintf("no category summary for %s", kind))
	}
	ids, err := s.selectAccounts(ctx, userID, req.AccountIDs)
	if err != nil || len(ids) == 0 {
		return []CategoryTotal{}, err
	}

	var out []CategoryTotal
	err = s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		accounts, err := u.ListAccounts(ctx, ids)
		if err != nil {
			return err
		}
		tree, err := s.categories.LoadTree(ctx, u, userID)
		if err != nil {
			return err
		}
		sums, err := u.CategorySums(ctx, ledger.CategorySumQuery{
			AccountIDs:        ids,
			Kind:              kind,
			From:              req.From,
			To:                req.To,
			ExcludeCategoryID: s.roots.Correction,
		})
		if err != nil {
			return err
		}
		out = s.rollUp(tree, userID, kind, accounts, sums)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) rollUp(tree *category.Tree, userID int64, kind ledger.Kind, accounts []ledger.Account, sums []ledger.CategorySum) []CategoryTotal {
	byID := make(map[int64]ledger.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	root := s.roots.RootFor(kind)

	type key struct {
		name     string
		currency string
	}
	totals := map[key]*CategoryTotal{}
	for _, sum := range sums {
		account, ok := byID[sum.AccountID]
		if !ok {
			continue
		}
		top := root
		if _, known := tree.Get(sum.CategoryID); known {
			top = tree.TopLevel(sum.CategoryID)
		}
		view := tree.View(top)
		k := key{name: strings.ToLower(view.FullName), currency: account.Currency}
		total, ok := totals[k]
		if !ok {
			total = &CategoryTotal{Category: view, Currency: account.Currency}
			totals[k] = total
		} else if view.OwnerID == userID && total.Category.OwnerID != userID {
			total.Category = view
		}
		total.Scale = max(total.Scale, account.Scale)
		total.Amount = total.Amount.Add(ledger.ToMajor(sum.Amount, account.Scale))
	}

	out := make([]CategoryTotal, 0, len(totals))
	for _, total := range totals {
		if total.Amount.Equal(decimal.Zero) {
			continue
		}
		out = append(out, *total)
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := cmp.Compare(strings.ToLower(a.Category.FullName), strings.ToLower(b.Category.FullName)); c != 0 {
			return c
		}
		return cmp.Compare(a.Currency, b.Currency)
	})
	return out
}

func (s *Service) selectAccounts(ctx context.Context, userID int64, filter []int64) ([]int64, error) {
	accessible, err := s.acl.AccessibleAccountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return accessible, nil
	}
	return slices.DeleteFunc(slices.Clone(accessible), func(id int64) bool {
		return !slices.Contains(filter, id)
	}), nil
}
