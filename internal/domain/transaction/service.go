package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirosato/finance-ledger/internal/domain/balance"
	"github.com/hirosato/finance-ledger/internal/domain/category"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Service provides transaction-related business logic
type Service struct {
	store      ledger.Store
	acl        ledger.AccessControl
	engine     *balance.Engine
	resolver   *category.Resolver
	categories *category.Service
	logger     *slog.Logger
}

// NewService creates a new transaction service
func NewService(store ledger.Store, acl ledger.AccessControl, engine *balance.Engine, resolver *category.Resolver, categories *category.Service, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		acl:        acl,
		engine:     engine,
		resolver:   resolver,
		categories: categories,
		logger:     logger,
	}
}

// GetTransaction returns one transaction with the balances of its sides
// right after it
func (s *Service) GetTransaction(ctx context.Context, userID, id int64) (*balance.Line, error) {
	accessible, err := s.acl.AccessibleAccountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var line balance.Line
	err = s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		t, err := u.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if !slices.Contains(accessible, t.AccountID) && !slices.Contains(accessible, t.RecipientID) {
			return errors.NewNotFoundError(fmt.Sprintf("transaction %d not found", id))
		}

		var sides []int64
		for _, accountID := range []int64{t.AccountID, t.RecipientID} {
			if accountID != 0 && slices.Contains(accessible, accountID) {
				sides = append(sides, accountID)
			}
		}
		accounts, err := u.ListAccounts(ctx, sides)
		if err != nil {
			return err
		}
		balances, err := s.engine.AccountBalances(ctx, u, accounts, &t.Opdate, t.ID+1)
		if err != nil {
			return err
		}

		line = balance.Line{Transaction: *t}
		if bal, ok := balances[t.AccountID]; ok {
			line.AccountBalance = &bal
		}
		if bal, ok := balances[t.RecipientID]; ok {
			line.RecipientBalance = &bal
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ListTransactions returns a newest-first page of transactions on the
// user's accounts. Running balances are filled only for unfiltered pages.
func (s *Service) ListTransactions(ctx context.Context, userID int64, req *ListRequest) ([]balance.Line, error) {
	accessible, err := s.acl.AccessibleAccountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	accountIDs := accessible
	if len(req.AccountIDs) > 0 {
		accountIDs = nil
		for _, id := range req.AccountIDs {
			if slices.Contains(accessible, id) {
				accountIDs = append(accountIDs, id)
			}
		}
	}
	if len(accountIDs) == 0 {
		return []balance.Line{}, nil
	}

	var lines []balance.Line
	err = s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		filter := ledger.TransactionFilter{
			AccountIDs: accountIDs,
			From:       req.From,
			To:         req.To,
			Currency:   req.Currency,
			Search:     req.Search,
			Offset:     req.Offset,
			Limit:      req.Limit,
		}
		if req.Uncategorized != ledger.KindInvalid {
			filter.Kind = req.Uncategorized
			filter.Uncategorized = true
		}
		if req.CategoryID != 0 {
			tree, err := s.categories.LoadTree(ctx, u, userID)
			if err != nil {
				return err
			}
			if _, ok := tree.Get(req.CategoryID); !ok {
				return errors.NewNotFoundError(fmt.Sprintf("category %d not found", req.CategoryID))
			}
			filter.CategoryIDs = tree.Descendants(req.CategoryID)
		}

		page, err := u.FindTransactions(ctx, filter)
		if err != nil {
			return err
		}
		if !req.withBalances() {
			lines = make([]balance.Line, len(page))
			for i := range page {
				lines[i] = balance.Line{Transaction: page[i]}
			}
			return nil
		}
		accounts, err := u.ListAccounts(ctx, accountIDs)
		if err != nil {
			return err
		}
		lines, err = s.engine.RunningBalances(ctx, u, page, accounts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// CreateTransaction books a new transaction and repairs later corrections
func (s *Service) CreateTransaction(ctx context.Context, userID int64, req *Request) (*ledger.Transaction, error) {
	return s.save(ctx, userID, 0, req)
}

// UpdateTransaction replaces the editable fields of transaction id
func (s *Service) UpdateTransaction(ctx context.Context, userID, id int64, req *Request) (*ledger.Transaction, error) {
	if id == 0 {
		return nil, errors.NewValidationError("transaction id is required")
	}
	return s.save(ctx, userID, id, req)
}

func (s *Service) save(ctx context.Context, userID, id int64, req *Request) (*ledger.Transaction, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	accessible, err := s.acl.AccessibleAccountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, accountID := range []int64{req.AccountID, req.RecipientID} {
		if accountID != 0 && !slices.Contains(accessible, accountID) {
			return nil, errors.NewOwnershipViolation(fmt.Sprintf("account %d is not accessible", accountID))
		}
	}

	logger := s.logger.With("operationId", uuid.NewString(), "userId", userID)
	var saved *ledger.Transaction
	err = s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		var prev *ledger.Transaction
		next := &ledger.Transaction{}
		if id != 0 {
			stored, err := u.GetTransaction(ctx, id)
			if err != nil {
				return err
			}
			if !slices.Contains(accessible, stored.AccountID) && !slices.Contains(accessible, stored.RecipientID) {
				return errors.NewOwnershipViolation(fmt.Sprintf("transaction %d is not accessible", id))
			}
			prev = stored
			copied := *stored
			next = &copied
		}

		account, recipient, err := loadSides(ctx, u, req.AccountID, req.RecipientID)
		if err != nil {
			return err
		}
		next.OwnerID = userID
		next.Opdate = req.Opdate
		next.AccountID = req.AccountID
		next.RecipientID = req.RecipientID
		next.Debit = ledger.ToMinor(req.Debit, scaleOf(account, recipient))
		next.Credit = ledger.ToMinor(req.Credit, scaleOf(recipient, account))
		next.Party = strings.TrimSpace(req.Party)
		next.Details = strings.TrimSpace(req.Details)

		if next.Kind() == ledger.KindTransfer {
			next.CategoryID = 0
			next.Currency = ""
		} else {
			if next.CategoryID, err = s.resolver.Resolve(ctx, u, userID, req.CategoryID); err != nil {
				return err
			}
			next.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
			if next.Currency == "" {
				next.Currency = currencyOf(account, recipient)
			}
		}

		if saved, err = s.engine.Save(ctx, u, prev, next); err != nil {
			return err
		}
		logger.Info("transaction saved", "transactionId", saved.ID, "kind", saved.Kind().String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// DeleteTransaction removes transaction id and repairs later corrections
func (s *Service) DeleteTransaction(ctx context.Context, userID, id int64) error {
	accessible, err := s.acl.AccessibleAccountIDs(ctx, userID)
	if err != nil {
		return err
	}
	return s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		t, err := u.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if !slices.Contains(accessible, t.AccountID) && !slices.Contains(accessible, t.RecipientID) {
			return errors.NewOwnershipViolation(fmt.Sprintf("transaction %d is not accessible", id))
		}
		if err := s.engine.Delete(ctx, u, t); err != nil {
			return err
		}
		s.logger.Info("transaction deleted", "transactionId", id, "userId", userID)
		return nil
	})
}

// SetBalance records that accountID held target at the end of opdate by
// inserting or adjusting a correction
func (s *Service) SetBalance(ctx context.Context, userID, accountID int64, opdate time.Time, target decimal.Decimal) (*ledger.Transaction, error) {
	accessible, err := s.acl.AccessibleAccountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(accessible, accountID) {
		return nil, errors.NewOwnershipViolation(fmt.Sprintf("account %d is not accessible", accountID))
	}

	var correction *ledger.Transaction
	err = s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		account, err := u.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		correction, err = s.engine.Checkpoint(ctx, u, userID, account, opdate, ledger.ToMinor(target, account.Scale))
		return err
	})
	if err != nil {
		return nil, err
	}
	return correction, nil
}

func validateRequest(req *Request) error {
	if req.Opdate.IsZero() {
		return errors.NewValidationError("opdate is required")
	}
	if req.AccountID == 0 && req.RecipientID == 0 {
		return errors.NewInvariantViolation("transaction has neither account nor recipient")
	}
	if req.Debit.IsNegative() || req.Credit.IsNegative() {
		return errors.NewValidationError("amounts must not be negative")
	}
	return nil
}

func loadSides(ctx context.Context, u ledger.AccountRepository, accountID, recipientID int64) (*ledger.Account, *ledger.Account, error) {
	var account, recipient *ledger.Account
	var err error
	if accountID != 0 {
		if account, err = u.GetAccount(ctx, accountID); err != nil {
			return nil, nil, err
		}
	}
	if recipientID != 0 {
		if recipient, err = u.GetAccount(ctx, recipientID); err != nil {
			return nil, nil, err
		}
	}
	return account, recipient, nil
}

// scaleOf picks the scale of side, falling back to the other side
func scaleOf(side, other *ledger.Account) int32 {
	if side != nil {
		return side.Scale
	}
	if other != nil {
		return other.Scale
	}
	return ledger.FallbackScale
}

func currencyOf(account, recipient *ledger.Account) string {
	if account != nil {
		return account.Currency
	}
	if recipient != nil {
		return recipient.Currency
	}
	return ""
}
