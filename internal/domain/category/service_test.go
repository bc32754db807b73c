package category_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/finance-ledger/internal/domain/category"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
	"github.com/hirosato/finance-ledger/internal/platform/memstore"
)

const (
	user  int64 = 7
	other int64 = 8
)

type fixture struct {
	store    *memstore.Store
	roots    ledger.Roots
	resolver *category.Resolver
	service  *category.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	roots := ledger.DefaultRoots()
	store := memstore.NewStore(roots, slog.Default())
	resolver := category.NewResolver(roots, slog.Default())
	return &fixture{
		store:    store,
		roots:    roots,
		resolver: resolver,
		service:  category.NewService(store, store, resolver, roots, slog.Default()),
	}
}

func (f *fixture) unit(t *testing.T, fn func(ctx context.Context, u ledger.Unit)) {
	t.Helper()
	err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
		fn(ctx, u)
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) put(t *testing.T, c ledger.Category) ledger.Category {
	t.Helper()
	var saved *ledger.Category
	f.unit(t, func(ctx context.Context, u ledger.Unit) {
		var err error
		saved, err = u.SaveCategory(ctx, &c)
		require.NoError(t, err)
	})
	return *saved
}

func (f *fixture) owned(t *testing.T, ownerID int64) []ledger.Category {
	t.Helper()
	var out []ledger.Category
	f.unit(t, func(ctx context.Context, u ledger.Unit) {
		all, err := u.ListCategories(ctx, []int64{ownerID})
		require.NoError(t, err)
		for _, c := range all {
			if c.OwnerID == ownerID {
				out = append(out, c)
			}
		}
	})
	return out
}

func TestTree(t *testing.T) {
	roots := ledger.DefaultRoots()
	tree := category.NewTree([]ledger.Category{
		{ID: 1, Name: "Expense"},
		{ID: 2, Name: "Income"},
		{ID: 10, ParentID: 1, Name: "Food"},
		{ID: 11, ParentID: 10, Name: "Restaurants"},
		{ID: 12, ParentID: 11, Name: "Lunch"},
		{ID: 20, ParentID: 2, Name: "Salary"},
		{ID: 30, ParentID: 31, Name: "Loop"},
		{ID: 31, ParentID: 30, Name: "Back"},
	}, roots)

	assert.Equal(t, "Food / Restaurants / Lunch", tree.FullName(12))
	assert.Equal(t, "Expense", tree.FullName(1))
	assert.Equal(t, 3, tree.Level(12))
	assert.Equal(t, 0, tree.Level(1))
	assert.Equal(t, ledger.KindExpense, tree.Kind(12))
	assert.Equal(t, ledger.KindIncome, tree.Kind(20))
	assert.Equal(t, int64(10), tree.TopLevel(12))
	assert.Equal(t, int64(20), tree.TopLevel(20))
	assert.Equal(t, int64(1), tree.TopLevel(1))
	assert.Equal(t, []int64{10, 11, 12}, tree.Descendants(10))
	assert.Equal(t, []int64{2, 20}, tree.Descendants(2))

	// cyclic chains terminate
	assert.Len(t, tree.Ancestors(30), 2)
	assert.Equal(t, ledger.KindInvalid, tree.Kind(30))
}

func TestResolver_Resolve(t *testing.T) {
	f := newFixture(t)
	food := f.put(t, ledger.Category{ParentID: f.roots.Expense, Name: "Food"})
	restaurants := f.put(t, ledger.Category{ParentID: food.ID, Name: "Restaurants"})

	t.Run("root is returned unchanged", func(t *testing.T) {
		f.unit(t, func(ctx context.Context, u ledger.Unit) {
			id, err := f.resolver.Resolve(ctx, u, user, f.roots.Expense)
			require.NoError(t, err)
			assert.Equal(t, f.roots.Expense, id)
		})
	})

	t.Run("zero resolves to zero", func(t *testing.T) {
		f.unit(t, func(ctx context.Context, u ledger.Unit) {
			id, err := f.resolver.Resolve(ctx, u, user, 0)
			require.NoError(t, err)
			assert.Zero(t, id)
		})
	})

	t.Run("global category is copied with its path", func(t *testing.T) {
		var first, second int64
		f.unit(t, func(ctx context.Context, u ledger.Unit) {
			var err error
			first, err = f.resolver.Resolve(ctx, u, user, restaurants.ID)
			require.NoError(t, err)
			second, err = f.resolver.Resolve(ctx, u, user, restaurants.ID)
			require.NoError(t, err)
		})
		assert.NotEqual(t, restaurants.ID, first)
		assert.Equal(t, first, second)

		mine := f.owned(t, user)
		require.Len(t, mine, 2)
		tree := category.NewTree(append(mine, ledger.Category{ID: f.roots.Expense, Name: "Expense"}), f.roots)
		assert.Equal(t, "Food / Restaurants", tree.FullName(first))
	})

	t.Run("own category is returned unchanged", func(t *testing.T) {
		mine := f.owned(t, user)
		f.unit(t, func(ctx context.Context, u ledger.Unit) {
			id, err := f.resolver.Resolve(ctx, u, user, mine[0].ID)
			require.NoError(t, err)
			assert.Equal(t, mine[0].ID, id)
		})
	})

	t.Run("name matches ignoring case", func(t *testing.T) {
		f.unit(t, func(ctx context.Context, u ledger.Unit) {
			id, err := f.resolver.FindOrCreate(ctx, u, user, f.roots.Expense, "FOOD")
			require.NoError(t, err)
			c, err := u.GetCategory(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "Food", c.Name)
			assert.Equal(t, user, c.OwnerID)
		})
	})

	t.Run("missing category", func(t *testing.T) {
		err := f.store.WithinUnit(context.Background(), func(ctx context.Context, u ledger.Unit) error {
			_, err := f.resolver.Resolve(ctx, u, user, 9999)
			return err
		})
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})
}

func TestResolver_MergeKeepsUniqueness(t *testing.T) {
	f := newFixture(t)
	first := f.put(t, ledger.Category{OwnerID: user, ParentID: f.roots.Expense, Name: "Travel"})
	dup := f.put(t, ledger.Category{OwnerID: user, ParentID: f.roots.Expense, Name: "travel"})
	f.put(t, ledger.Category{OwnerID: user, ParentID: first.ID, Name: "Hotels"})
	dupChild := f.put(t, ledger.Category{OwnerID: user, ParentID: dup.ID, Name: "HOTELS"})
	onlyChild := f.put(t, ledger.Category{OwnerID: user, ParentID: dup.ID, Name: "Trains"})

	var txID, ruleID int64
	f.unit(t, func(ctx context.Context, u ledger.Unit) {
		account, err := u.CreateAccount(ctx, &ledger.Account{GroupID: 1, Currency: "EUR", Scale: 2})
		require.NoError(t, err)
		tx, err := u.SaveTransaction(ctx, &ledger.Transaction{OwnerID: user, AccountID: account.ID, Debit: 10, CategoryID: dupChild.ID})
		require.NoError(t, err)
		txID = tx.ID
		rule, err := u.SaveRule(ctx, &ledger.Rule{OwnerID: user, ConditionType: ledger.PartyEquals, ConditionValue: "DB", CategoryID: dup.ID})
		require.NoError(t, err)
		ruleID = rule.ID
	})

	f.unit(t, func(ctx context.Context, u ledger.Unit) {
		id, err := f.resolver.FindOrCreate(ctx, u, user, f.roots.Expense, "TRAVEL")
		require.NoError(t, err)
		assert.Equal(t, first.ID, id)
	})

	mine := f.owned(t, user)
	seen := map[[2]any]bool{}
	for _, c := range mine {
		key := [2]any{c.ParentID, strings.ToLower(c.Name)}
		assert.False(t, seen[key], "duplicate %v", key)
		seen[key] = true
	}
	assert.Len(t, mine, 3)

	f.unit(t, func(ctx context.Context, u ledger.Unit) {
		tx, err := u.GetTransaction(ctx, txID)
		require.NoError(t, err)
		hotels, err := u.FindCategoriesByName(ctx, user, first.ID, "hotels")
		require.NoError(t, err)
		require.Len(t, hotels, 1)
		assert.Equal(t, hotels[0].ID, tx.CategoryID)

		rule, err := u.GetRule(ctx, ruleID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, rule.CategoryID)

		trains, err := u.GetCategory(ctx, onlyChild.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, trains.ParentID)
	})
}

func TestService_SaveCategory(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.SaveCategory(context.Background(), user, &category.SaveRequest{ParentID: f.roots.Expense, Name: "Books"})
	require.NoError(t, err)
	assert.Equal(t, "Books", created.FullName)
	assert.Equal(t, ledger.KindExpense, created.Kind)
	assert.Equal(t, 1, created.Level)

	t.Run("rename merges into the existing name", func(t *testing.T) {
		music, err := f.service.SaveCategory(context.Background(), user, &category.SaveRequest{ParentID: f.roots.Expense, Name: "Music"})
		require.NoError(t, err)

		renamed, err := f.service.SaveCategory(context.Background(), user, &category.SaveRequest{ID: music.ID, ParentID: f.roots.Expense, Name: "books"})
		require.NoError(t, err)
		assert.Len(t, f.owned(t, user), 1)
		assert.Equal(t, music.ID, renamed.ID)
		assert.Equal(t, "books", renamed.Name)
	})

	t.Run("renaming a global category copies it under the new name", func(t *testing.T) {
		g := newFixture(t)
		food := g.put(t, ledger.Category{ParentID: g.roots.Expense, Name: "Food"})

		got, err := g.service.SaveCategory(context.Background(), user, &category.SaveRequest{ID: food.ID, Name: "Groceries"})
		require.NoError(t, err)
		assert.NotEqual(t, food.ID, got.ID)
		assert.Equal(t, "Groceries", got.Name)
		assert.Equal(t, "Groceries", got.FullName)

		mine := g.owned(t, user)
		require.Len(t, mine, 1)
		assert.Equal(t, "Groceries", mine[0].Name)
		assert.Equal(t, g.roots.Expense, mine[0].ParentID)

		g.unit(t, func(ctx context.Context, u ledger.Unit) {
			kept, err := u.GetCategory(ctx, food.ID)
			require.NoError(t, err)
			assert.Equal(t, "Food", kept.Name)
		})
	})

	t.Run("roots cannot be saved", func(t *testing.T) {
		_, err := f.service.SaveCategory(context.Background(), user, &category.SaveRequest{ID: f.roots.Income, Name: "Salary"})
		assert.ErrorIs(t, err, errors.ErrOwnershipViolation)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := f.service.SaveCategory(context.Background(), user, &category.SaveRequest{ParentID: f.roots.Expense, Name: "  "})
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}

func TestService_DeleteCategory(t *testing.T) {
	f := newFixture(t)
	food := f.put(t, ledger.Category{OwnerID: user, ParentID: f.roots.Expense, Name: "Food"})
	sweets := f.put(t, ledger.Category{OwnerID: user, ParentID: food.ID, Name: "Sweets"})
	candy := f.put(t, ledger.Category{OwnerID: user, ParentID: sweets.ID, Name: "Candy"})
	foreign := f.put(t, ledger.Category{OwnerID: other, ParentID: f.roots.Expense, Name: "Rent"})

	var txID int64
	f.unit(t, func(ctx context.Context, u ledger.Unit) {
		tx, err := u.SaveTransaction(ctx, &ledger.Transaction{OwnerID: user, AccountID: 1, Debit: 5, CategoryID: sweets.ID})
		require.NoError(t, err)
		txID = tx.ID
		_, err = u.SaveRule(ctx, &ledger.Rule{OwnerID: user, ConditionType: ledger.DetailsContains, ConditionValue: "candy", CategoryID: sweets.ID})
		require.NoError(t, err)
		_, err = u.SaveRule(ctx, &ledger.Rule{OwnerID: user, ConditionType: ledger.PartyEquals, ConditionValue: "Market", CategoryID: food.ID})
		require.NoError(t, err)
	})

	t.Run("other user's category", func(t *testing.T) {
		err := f.service.DeleteCategory(context.Background(), user, foreign.ID)
		assert.ErrorIs(t, err, errors.ErrOwnershipViolation)
	})

	t.Run("root", func(t *testing.T) {
		err := f.service.DeleteCategory(context.Background(), user, f.roots.Expense)
		assert.ErrorIs(t, err, errors.ErrOwnershipViolation)
	})

	t.Run("moves everything to the parent", func(t *testing.T) {
		require.NoError(t, f.service.DeleteCategory(context.Background(), user, sweets.ID))

		f.unit(t, func(ctx context.Context, u ledger.Unit) {
			tx, err := u.GetTransaction(ctx, txID)
			require.NoError(t, err)
			assert.Equal(t, food.ID, tx.CategoryID)

			c, err := u.GetCategory(ctx, candy.ID)
			require.NoError(t, err)
			assert.Equal(t, food.ID, c.ParentID)

			rules, err := u.ListRules(ctx, user)
			require.NoError(t, err)
			require.Len(t, rules, 2)
			assert.Equal(t, food.ID, rules[0].CategoryID)
		})
	})

	t.Run("rules on a top-level category are dropped", func(t *testing.T) {
		require.NoError(t, f.service.DeleteCategory(context.Background(), user, food.ID))

		f.unit(t, func(ctx context.Context, u ledger.Unit) {
			rules, err := u.ListRules(ctx, user)
			require.NoError(t, err)
			assert.Empty(t, rules)

			tx, err := u.GetTransaction(ctx, txID)
			require.NoError(t, err)
			assert.Equal(t, f.roots.Expense, tx.CategoryID)
		})
	})
}

func TestService_ListCategories(t *testing.T) {
	f := newFixture(t)
	f.store.Share(other, user)
	f.put(t, ledger.Category{ParentID: f.roots.Expense, Name: "Food"})
	mine := f.put(t, ledger.Category{OwnerID: user, ParentID: f.roots.Expense, Name: "food"})
	f.put(t, ledger.Category{OwnerID: other, ParentID: f.roots.Expense, Name: "Food"})
	shared := f.put(t, ledger.Category{OwnerID: other, ParentID: f.roots.Income, Name: "Salary"})
	f.put(t, ledger.Category{OwnerID: 99, ParentID: f.roots.Income, Name: "Hidden"})

	views, err := f.service.ListCategories(context.Background(), user)
	require.NoError(t, err)

	var names []string
	byName := map[string]category.View{}
	for _, v := range views {
		names = append(names, v.FullName)
		byName[strings.ToLower(v.FullName)] = v
	}
	assert.Equal(t, []string{"Expense", "food", "Income", "Salary", "Correction"}, names)
	assert.Equal(t, mine.ID, byName["food"].ID)
	assert.Equal(t, shared.ID, byName["salary"].ID)
}

func TestService_CategoryFilter(t *testing.T) {
	f := newFixture(t)
	food := f.put(t, ledger.Category{OwnerID: user, ParentID: f.roots.Expense, Name: "Food"})
	fast := f.put(t, ledger.Category{OwnerID: user, ParentID: food.ID, Name: "Fast"})
	f.put(t, ledger.Category{OwnerID: user, ParentID: f.roots.Expense, Name: "Foodstuff"})
	f.put(t, ledger.Category{OwnerID: user, ParentID: f.roots.Income, Name: "Food"})

	ids, err := f.service.CategoryFilter(context.Background(), user, food.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{food.ID, fast.ID}, ids)

	_, err = f.service.CategoryFilter(context.Background(), user, 12345)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
