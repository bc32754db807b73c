// Package account manages the lifecycle of ledger accounts.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/hirosato/finance-ledger/internal/common/utils"
	"github.com/hirosato/finance-ledger/internal/domain/balance"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Service provides account-related business logic
type Service struct {
	store  ledger.Store
	acl    ledger.AccessControl
	groups Groups
	engine *balance.Engine
	logger *slog.Logger
}

// NewService creates a new account service
func NewService(store ledger.Store, acl ledger.AccessControl, groups Groups, engine *balance.Engine, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		acl:    acl,
		groups: groups,
		engine: engine,
		logger: logger,
	}
}

// CreateAccount creates a new account in one of the user's groups
func (s *Service) CreateAccount(ctx context.Context, userID int64, req *CreateRequest) (*View, error) {
	if err := utils.ValidateRequiredString(req.Name, "name"); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := utils.ValidateCurrency(currency); err != nil {
		return nil, err
	}
	scale := ledger.DefaultScale(currency)
	if req.Scale != nil {
		scale = *req.Scale
	}
	if err := utils.ValidateScale(scale); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, userID, req.GroupID); err != nil {
		return nil, err
	}

	var view View
	err := s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		created, err := u.CreateAccount(ctx, &ledger.Account{
			GroupID:      req.GroupID,
			Name:         strings.TrimSpace(req.Name),
			Currency:     currency,
			Scale:        scale,
			StartBalance: ledger.ToMinor(req.StartBalance, scale),
			Address:      strings.TrimSpace(req.Address),
		})
		if err != nil {
			return err
		}
		view = newView(*created, created.StartBalance)
		s.logger.Info("account created", "accountId", created.ID, "userId", userID, "currency", currency, "scale", scale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListAccounts returns the accounts the user can see with their balances
func (s *Service) ListAccounts(ctx context.Context, userID int64, filter *Filter) ([]View, error) {
	ids, err := s.acl.AccessibleAccountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := []View{}
	if len(ids) == 0 {
		return views, nil
	}
	err = s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		accounts, err := u.ListAccounts(ctx, ids)
		if err != nil {
			return err
		}
		accounts = slices.DeleteFunc(accounts, func(a ledger.Account) bool { return !filter.matches(&a) })
		balances, err := s.engine.AccountBalances(ctx, u, accounts, nil, 0)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			views = append(views, newView(a, balances[a.ID]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// UpdateAccount changes the name or wallet address of an account
func (s *Service) UpdateAccount(ctx context.Context, userID, id int64, req *UpdateRequest) (*View, error) {
	var view View
	err := s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		a, err := s.owned(ctx, u, userID, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			if err := utils.ValidateRequiredString(*req.Name, "name"); err != nil {
				return err
			}
			a.Name = strings.TrimSpace(*req.Name)
		}
		if req.Address != nil {
			a.Address = strings.TrimSpace(*req.Address)
		}
		if err := u.UpdateAccount(ctx, a); err != nil {
			return err
		}
		bal, err := s.engine.AccountBalances(ctx, u, []ledger.Account{*a}, nil, 0)
		if err != nil {
			return err
		}
		view = newView(*a, bal[a.ID])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteAccount marks an account deleted. Without force the balance must be
// zero; with force every transaction on the account is removed first and
// transfers keep only their other leg.
func (s *Service) DeleteAccount(ctx context.Context, userID, id int64, force bool) error {
	logger := s.logger.With("operationId", uuid.NewString(), "userId", userID, "accountId", id)
	return s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		a, err := s.owned(ctx, u, userID, id)
		if err != nil {
			return err
		}
		if a.Deleted {
			return nil
		}
		balances, err := s.engine.AccountBalances(ctx, u, []ledger.Account{*a}, nil, 0)
		if err != nil {
			return err
		}
		if bal := balances[a.ID]; bal != 0 {
			if !force {
				return errors.NewConflictError(fmt.Sprintf("account %q has non-zero balance %s", a.Name, ledger.Format(bal, a.Currency, a.Scale)))
			}
			if err := s.detach(ctx, u, a, logger); err != nil {
				return err
			}
		}
		a.Deleted = true
		if err := u.UpdateAccount(ctx, a); err != nil {
			return err
		}
		logger.Info("account deleted", "force", force)
		return nil
	})
}

// detach removes a's one-sided transactions and turns transfers touching a
// into one-sided transactions of the other account
func (s *Service) detach(ctx context.Context, u ledger.Unit, a *ledger.Account, logger *slog.Logger) error {
	txs, err := u.FindTransactions(ctx, ledger.TransactionFilter{AccountIDs: []int64{a.ID}, ForUpdate: true})
	if err != nil {
		return err
	}
	party := a.Address
	if party == "" {
		party = a.Name
	}

	var removed, converted int
	for _, t := range txs {
		if t.AccountID == a.ID {
			t.AccountID = 0
		}
		if t.RecipientID == a.ID {
			t.RecipientID = 0
		}
		if t.Kind() == ledger.KindInvalid {
			if err := u.DeleteTransaction(ctx, t.ID); err != nil {
				return err
			}
			removed++
			continue
		}
		if t.Party == "" {
			t.Party = party
		}
		t.Currency = a.Currency
		if _, err := u.SaveTransaction(ctx, &t); err != nil {
			return err
		}
		converted++
	}
	logger.Info("account transactions detached", "removed", removed, "converted", converted)
	return nil
}

func (s *Service) owned(ctx context.Context, u ledger.AccountRepository, userID, id int64) (*ledger.Account, error) {
	a, err := u.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, userID, a.GroupID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) checkOwner(ctx context.Context, userID, groupID int64) error {
	owner, err := s.groups.GroupOwner(ctx, groupID)
	if err != nil {
		return err
	}
	if owner != userID {
		return errors.NewOwnershipViolation(fmt.Sprintf("account group %d belongs to another user", groupID))
	}
	return nil
}
