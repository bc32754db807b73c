package category

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Service provides category-related business logic
type Service struct {
	store    ledger.Store
	acl      ledger.AccessControl
	resolver *Resolver
	roots    ledger.Roots
	logger   *slog.Logger
}

// NewService creates a new category service
func NewService(store ledger.Store, acl ledger.AccessControl, resolver *Resolver, roots ledger.Roots, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		acl:      acl,
		resolver: resolver,
		roots:    roots,
		logger:   logger,
	}
}

// LoadTree returns the tree of categories visible to userID
func (s *Service) LoadTree(ctx context.Context, u ledger.CategoryRepository, userID int64) (*Tree, error) {
	owners, err := s.acl.VisibleOwnerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	cats, err := u.ListCategories(ctx, owners)
	if err != nil {
		return nil, err
	}
	return NewTree(cats, s.roots), nil
}

// ListCategories returns one category per full name visible to userID,
// preferring the user's own over shared and global ones.
func (s *Service) ListCategories(ctx context.Context, userID int64) ([]View, error) {
	var views []View
	err := s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		tree, err := s.LoadTree(ctx, u, userID)
		if err != nil {
			return err
		}
		for id := range tree.nodes {
			views = append(views, tree.View(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Unique(views, userID), nil
}

// Unique keeps the first view per (root, full name) in listing order
func Unique(views []View, userID int64) []View {
	sortViews(views, userID)
	seen := map[string]bool{}
	out := make([]View, 0, len(views))
	for _, v := range views {
		key := fmt.Sprintf("%d:%s", v.RootID, strings.ToLower(v.FullName))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func sortViews(views []View, userID int64) {
	slices.SortStableFunc(views, func(a, b View) int {
		if c := cmp.Compare(a.RootID, b.RootID); c != 0 {
			return c
		}
		if c := cmp.Compare(min(a.Level, 1), min(b.Level, 1)); c != 0 {
			return c
		}
		if c := cmp.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName)); c != 0 {
			return c
		}
		if c := cmp.Compare(ownRank(a, userID), ownRank(b, userID)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func ownRank(v View, userID int64) int {
	if v.OwnerID == userID {
		return 0
	}
	return 1
}

// SaveCategory resolves req onto the user's tree, renames it when req named
// an existing own category, and merges duplicates.
func (s *Service) SaveCategory(ctx context.Context, userID int64, req *SaveRequest) (*View, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.NewValidationError("category name is required")
	}

	var view View
	err := s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		id, err := s.target(ctx, u, userID, req)
		if err != nil {
			return err
		}

		c, err := u.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if c.IsRoot() {
			return errors.NewOwnershipViolation("root categories cannot be changed")
		}
		if id == req.ID && c.Name != strings.TrimSpace(req.Name) {
			c.Name = strings.TrimSpace(req.Name)
			if c, err = u.SaveCategory(ctx, c); err != nil {
				return err
			}
		}
		if err := s.resolver.Merge(ctx, u, c); err != nil {
			return err
		}

		tree, err := s.LoadTree(ctx, u, userID)
		if err != nil {
			return err
		}
		view = tree.View(c.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// target returns the category req edits. An own category is edited in
// place; a global or shared one is replaced by the user's category under
// the requested parent and name.
func (s *Service) target(ctx context.Context, u ledger.Unit, userID int64, req *SaveRequest) (int64, error) {
	parentID := req.ParentID
	if req.ID != 0 {
		c, err := u.GetCategory(ctx, req.ID)
		if err != nil {
			return 0, err
		}
		if c.IsRoot() || c.OwnerID == userID {
			return c.ID, nil
		}
		if parentID == 0 {
			parentID = c.ParentID
		}
	}
	parentID, err := s.resolver.Resolve(ctx, u, userID, parentID)
	if err != nil {
		return 0, err
	}
	return s.resolver.FindOrCreate(ctx, u, userID, parentID, req.Name)
}

// DeleteCategory removes one of the user's non-root categories. Children,
// transactions and rules move to its parent.
func (s *Service) DeleteCategory(ctx context.Context, userID, id int64) error {
	return s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		c, err := u.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if c.IsRoot() {
			return errors.NewOwnershipViolation("root categories cannot be deleted").WithDetail("categoryId", id)
		}
		if c.OwnerID != userID {
			return errors.NewOwnershipViolation(fmt.Sprintf("category %d belongs to another user", id))
		}

		parent, err := u.GetCategory(ctx, c.ParentID)
		if err != nil {
			return err
		}
		// a rule pointing at a root categorizes nothing
		if parent.IsRoot() {
			if err := u.DeleteRulesByCategory(ctx, id); err != nil {
				return err
			}
		}
		if err := s.resolver.fold(ctx, u, id, parent.ID); err != nil {
			return err
		}
		if err := u.DeleteCategory(ctx, id); err != nil {
			return err
		}
		s.logger.Info("category deleted", "categoryId", id, "parentId", parent.ID)

		all, err := u.ListCategories(ctx, []int64{userID})
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for i := range all {
			child := all[i]
			if child.ParentID != parent.ID || child.OwnerID != userID || seen[strings.ToLower(child.Name)] {
				continue
			}
			seen[strings.ToLower(child.Name)] = true
			if err := s.resolver.Merge(ctx, u, &child); err != nil {
				return err
			}
		}
		return nil
	})
}

// CategoryFilter expands categoryID to itself plus all its descendants
// among the categories visible to userID.
func (s *Service) CategoryFilter(ctx context.Context, userID, categoryID int64) ([]int64, error) {
	var ids []int64
	err := s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		tree, err := s.LoadTree(ctx, u, userID)
		if err != nil {
			return err
		}
		if _, ok := tree.Get(categoryID); !ok {
			return errors.NewNotFoundError(fmt.Sprintf("category %d not found", categoryID))
		}
		ids = tree.Descendants(categoryID)
		return nil
	})
	return ids, err
}
