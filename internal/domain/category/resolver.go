package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Resolver maps categories onto the caller's own copy of the tree. Global
// and shared categories are copied on first use; duplicates are merged.
type Resolver struct {
	roots  ledger.Roots
	logger *slog.Logger
}

// NewResolver creates a new category resolver
func NewResolver(roots ledger.Roots, logger *slog.Logger) *Resolver {
	return &Resolver{
		roots:  roots,
		logger: logger,
	}
}

// Resolve returns the id ownerID should book against for categoryID. Roots
// and the owner's own categories are returned unchanged; anything else is
// replaced by the owner's category with the same path, created if missing.
// Zero resolves to zero.
func (r *Resolver) Resolve(ctx context.Context, u ledger.Unit, ownerID, categoryID int64) (int64, error) {
	return r.resolve(ctx, u, ownerID, categoryID, 0)
}

func (r *Resolver) resolve(ctx context.Context, u ledger.Unit, ownerID, categoryID int64, depth int) (int64, error) {
	if categoryID == 0 {
		return 0, nil
	}
	if depth > maxDepth {
		return 0, errors.NewInvariantViolation(fmt.Sprintf("category %d has a cyclic ancestry", categoryID))
	}
	c, err := u.GetCategory(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	if c.IsRoot() || c.OwnerID == ownerID {
		return c.ID, nil
	}
	parentID, err := r.resolve(ctx, u, ownerID, c.ParentID, depth+1)
	if err != nil {
		return 0, err
	}
	return r.FindOrCreate(ctx, u, ownerID, parentID, c.Name)
}

// FindOrCreate returns the owner's category (parentID, name), matching the
// name case-insensitively, and merges any duplicates of it.
func (r *Resolver) FindOrCreate(ctx context.Context, u ledger.Unit, ownerID, parentID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.NewValidationError("category name is required")
	}
	if parentID == 0 {
		return 0, errors.NewValidationError("category parent is required")
	}

	existing, err := u.FindCategoriesByName(ctx, ownerID, parentID, name)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		keep := existing[0]
		if err := r.Merge(ctx, u, &keep); err != nil {
			return 0, err
		}
		return keep.ID, nil
	}

	created, err := u.SaveCategory(ctx, &ledger.Category{OwnerID: ownerID, ParentID: parentID, Name: name})
	if err != nil {
		return 0, err
	}
	r.logger.Debug("category created", "categoryId", created.ID, "ownerId", ownerID, "parentId", parentID)
	return created.ID, nil
}

// Merge folds every other category with keep's (owner, parent, name) into
// keep: transactions and rules are repointed, children reparented and the
// duplicate deleted. Children that collide after reparenting are merged too.
func (r *Resolver) Merge(ctx context.Context, u ledger.Unit, keep *ledger.Category) error {
	if keep.IsRoot() {
		return nil
	}
	dups, err := u.FindCategoriesByName(ctx, keep.OwnerID, keep.ParentID, keep.Name)
	if err != nil {
		return err
	}

	merged := false
	for _, d := range dups {
		if d.ID == keep.ID {
			continue
		}
		if err := r.fold(ctx, u, d.ID, keep.ID); err != nil {
			return err
		}
		if err := u.DeleteCategory(ctx, d.ID); err != nil {
			return err
		}
		merged = true
		r.logger.Info("category merged", "duplicateId", d.ID, "categoryId", keep.ID)
	}
	if !merged {
		return nil
	}

	all, err := u.ListCategories(ctx, []int64{keep.OwnerID})
	if err != nil {
		return err
	}
	seen := map[string]bool{}
	for i := range all {
		child := all[i]
		if child.ParentID != keep.ID || child.OwnerID != keep.OwnerID {
			continue
		}
		key := strings.ToLower(child.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := r.Merge(ctx, u, &child); err != nil {
			return err
		}
	}
	return nil
}

// fold repoints everything referencing from to to
func (r *Resolver) fold(ctx context.Context, u ledger.Unit, from, to int64) error {
	if err := u.ReplaceTransactionCategory(ctx, from, to); err != nil {
		return err
	}
	if err := u.ReplaceRuleCategory(ctx, from, to); err != nil {
		return err
	}
	return u.ReplaceCategoryParent(ctx, from, to)
}
