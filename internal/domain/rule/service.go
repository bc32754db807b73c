// Package rule manages the categorization rules applied to imported
// statement lines.
package rule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hirosato/finance-ledger/internal/domain/category"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Service provides rule-related business logic
type Service struct {
	store      ledger.Store
	resolver   *category.Resolver
	categories *category.Service
	roots      ledger.Roots
	logger     *slog.Logger
}

// NewService creates a new rule service
func NewService(store ledger.Store, resolver *category.Resolver, categories *category.Service, roots ledger.Roots, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		resolver:   resolver,
		categories: categories,
		roots:      roots,
		logger:     logger,
	}
}

// ListRules returns the user's rules, oldest first
func (s *Service) ListRules(ctx context.Context, userID int64) ([]View, error) {
	var views []View
	err := s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		rules, err := u.ListRules(ctx, userID)
		if err != nil {
			return err
		}
		tree, err := s.categories.LoadTree(ctx, u, userID)
		if err != nil {
			return err
		}
		views = make([]View, len(rules))
		for i, r := range rules {
			views[i] = View{Rule: r, CategoryName: tree.FullName(r.CategoryID)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// CreateRule stores a new rule for the user
func (s *Service) CreateRule(ctx context.Context, userID int64, req *Request) (*ledger.Rule, error) {
	return s.save(ctx, userID, 0, req)
}

// UpdateRule replaces rule id. Only the rule's owner may change it.
func (s *Service) UpdateRule(ctx context.Context, userID, id int64, req *Request) (*ledger.Rule, error) {
	if id == 0 {
		return nil, errors.NewValidationError("rule id is required")
	}
	return s.save(ctx, userID, id, req)
}

func (s *Service) save(ctx context.Context, userID, id int64, req *Request) (*ledger.Rule, error) {
	value := strings.TrimSpace(req.ConditionValue)
	if !req.ConditionType.Valid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown condition type %d", req.ConditionType))
	}
	if value == "" {
		return nil, errors.NewValidationError("condition value is required")
	}
	if req.CategoryID == 0 {
		return nil, errors.NewValidationError("category is required")
	}
	if req.CategoryID == s.roots.Correction {
		return nil, errors.NewValidationError("rules cannot assign the correction category")
	}

	var saved *ledger.Rule
	err := s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		r := &ledger.Rule{OwnerID: userID}
		if id != 0 {
			stored, err := u.GetRule(ctx, id)
			if err != nil {
				return err
			}
			if stored.OwnerID != userID {
				return errors.NewOwnershipViolation(fmt.Sprintf("rule %d belongs to another user", id))
			}
			r = stored
		}
		categoryID, err := s.resolver.Resolve(ctx, u, userID, req.CategoryID)
		if err != nil {
			return err
		}
		r.ConditionType = req.ConditionType
		r.ConditionValue = value
		r.CategoryID = categoryID

		if saved, err = u.SaveRule(ctx, r); err != nil {
			return err
		}
		s.logger.Info("rule saved", "ruleId", saved.ID, "userId", userID, "condition", saved.ConditionType.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// DeleteRule removes rule id. Only the rule's owner may delete it.
func (s *Service) DeleteRule(ctx context.Context, userID, id int64) error {
	return s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		r, err := u.GetRule(ctx, id)
		if err != nil {
			return err
		}
		if r.OwnerID != userID {
			return errors.NewOwnershipViolation(fmt.Sprintf("rule %d belongs to another user", id))
		}
		if err := u.DeleteRule(ctx, id); err != nil {
			return err
		}
		s.logger.Info("rule deleted", "ruleId", id, "userId", userID)
		return nil
	})
}
