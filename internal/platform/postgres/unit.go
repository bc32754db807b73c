package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

type unit struct {
	tx pgx.Tx
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(what string, id int64) error {
	return errors.NewNotFoundError(fmt.Sprintf("%s %d not found", what, id))
}

// getOne runs a single-row query and maps pgx.ErrNoRows to NotFound
func getOne[T any](ctx context.Context, tx pgx.Tx, scan func(scanner) (T, error), what string, id int64, sql string, args ...any) (*T, error) {
	v, err := scan(tx.QueryRow(ctx, sql, args...))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(what, id)
		}
		return nil, storeError("failed to load "+what, err)
	}
	return &v, nil
}

func list[T any](ctx context.Context, tx pgx.Tx, scan func(scanner) (T, error), what, sql string, args ...any) ([]T, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError("failed to query "+what, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) { return scan(row) })
	if err != nil {
		return nil, storeError("failed to read "+what, err)
	}
	return out, nil
}

// exec runs a statement that must touch at least one row
func (u *unit) exec(ctx context.Context, what string, id int64, sql string, args ...any) error {
	tag, err := u.tx.Exec(ctx, sql, args...)
	if err != nil {
		return storeError("failed to write "+what, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(what, id)
	}
	return nil
}

func (u *unit) execAll(ctx context.Context, what, sql string, args ...any) error {
	if _, err := u.tx.Exec(ctx, sql, args...); err != nil {
		return storeError("failed to write "+what, err)
	}
	return nil
}

// Accounts

const accountColumns = `id, group_id, name, currency, start_balance, scale, address, deleted, created_at, updated_at`

func scanAccount(row scanner) (ledger.Account, error) {
	var a ledger.Account
	err := row.Scan(&a.ID, &a.GroupID, &a.Name, &a.Currency, &a.StartBalance, &a.Scale,
		&a.Address, &a.Deleted, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (u *unit) GetAccount(ctx context.Context, id int64) (*ledger.Account, error) {
	return getOne(ctx, u.tx, scanAccount, "account", id,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (u *unit) ListAccounts(ctx context.Context, ids []int64) ([]ledger.Account, error) {
	if len(ids) == 0 {
		return list(ctx, u.tx, scanAccount, "accounts", `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	}
	return list(ctx, u.tx, scanAccount, "accounts",
		`SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1) ORDER BY id`, ids)
}

func (u *unit) CreateAccount(ctx context.Context, a *ledger.Account) (*ledger.Account, error) {
	created, err := scanAccount(u.tx.QueryRow(ctx, `
		INSERT INTO accounts (group_id, name, currency, start_balance, scale, address, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+accountColumns,
		a.GroupID, a.Name, a.Currency, a.StartBalance, a.Scale, a.Address, a.Deleted))
	if err != nil {
		return nil, storeError("failed to create account", err)
	}
	return &created, nil
}

func (u *unit) UpdateAccount(ctx context.Context, a *ledger.Account) error {
	return u.exec(ctx, "account", a.ID, `
		UPDATE accounts
		SET group_id = $2, name = $3, currency = $4, start_balance = $5, scale = $6,
		    address = $7, deleted = $8, updated_at = now()
		WHERE id = $1`,
		a.ID, a.GroupID, a.Name, a.Currency, a.StartBalance, a.Scale, a.Address, a.Deleted)
}

// Transactions

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var t ledger.Transaction
	err := row.Scan(&t.ID, &t.OwnerID, &t.Opdate, &t.AccountID, &t.Debit, &t.RecipientID,
		&t.Credit, &t.CategoryID, &t.Currency, &t.Party, &t.Details, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (u *unit) GetTransaction(ctx context.Context, id int64) (*ledger.Transaction, error) {
	return getOne(ctx, u.tx, scanTransaction, "transaction", id,
		`SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1`, id)
}

func (u *unit) FindTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	sql, args := buildFindTransactions(f)
	return list(ctx, u.tx, scanTransaction, "transactions", sql, args...)
}

func (u *unit) SaveTransaction(ctx context.Context, t *ledger.Transaction) (*ledger.Transaction, error) {
	args := []any{t.OwnerID, t.Opdate, t.AccountID, t.Debit, t.RecipientID, t.Credit,
		t.CategoryID, t.Currency, t.Party, t.Details}
	if t.ID == 0 {
		saved, err := scanTransaction(u.tx.QueryRow(ctx, `
			INSERT INTO transactions AS t (owner_id, opdate, account_id, debit, recipient_id, credit,
			    category_id, currency, party, details)
			VALUES ($1, $2, NULLIF($3::BIGINT, 0), $4, NULLIF($5::BIGINT, 0), $6,
			    NULLIF($7::BIGINT, 0), $8, $9, $10)
			RETURNING `+transactionColumns, args...))
		if err != nil {
			return nil, storeError("failed to insert transaction", err)
		}
		return &saved, nil
	}
	return getOne(ctx, u.tx, scanTransaction, "transaction", t.ID, `
		UPDATE transactions AS t
		SET owner_id = $2, opdate = $3, account_id = NULLIF($4::BIGINT, 0), debit = $5,
		    recipient_id = NULLIF($6::BIGINT, 0), credit = $7, category_id = NULLIF($8::BIGINT, 0),
		    currency = $9, party = $10, details = $11, updated_at = now()
		WHERE t.id = $1
		RETURNING `+transactionColumns, append([]any{t.ID}, args...)...)
}

func (u *unit) DeleteTransaction(ctx context.Context, id int64) error {
	return u.exec(ctx, "transaction", id, `DELETE FROM transactions WHERE id = $1`, id)
}

func (u *unit) AggregateBalances(ctx context.Context, q ledger.BalanceQuery) ([]ledger.BalanceRow, error) {
	sql, args := buildAggregateBalances(q)
	return list(ctx, u.tx, func(row scanner) (ledger.BalanceRow, error) {
		var r ledger.BalanceRow
		err := row.Scan(&r.AccountID, &r.RecipientID, &r.Debit, &r.Credit, &r.MaxOpdate)
		return r, err
	}, "balances", sql, args...)
}

func (u *unit) CategorySums(ctx context.Context, q ledger.CategorySumQuery) ([]ledger.CategorySum, error) {
	sql, args, err := buildCategorySums(q)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	return list(ctx, u.tx, func(row scanner) (ledger.CategorySum, error) {
		var s ledger.CategorySum
		err := row.Scan(&s.CategoryID, &s.AccountID, &s.Amount)
		return s, err
	}, "category sums", sql, args...)
}

func (u *unit) ReplaceTransactionCategory(ctx context.Context, from, to int64) error {
	return u.execAll(ctx, "transactions", `
		UPDATE transactions SET category_id = NULLIF($2::BIGINT, 0), updated_at = now()
		WHERE category_id = $1`, from, to)
}

// Categories

const categoryColumns = `id, COALESCE(owner_id, 0), COALESCE(parent_id, 0), name, created_at, updated_at`

func scanCategory(row scanner) (ledger.Category, error) {
	var c ledger.Category
	err := row.Scan(&c.ID, &c.OwnerID, &c.ParentID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (u *unit) GetCategory(ctx context.Context, id int64) (*ledger.Category, error) {
	return getOne(ctx, u.tx, scanCategory, "category", id,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
}

func (u *unit) ListCategories(ctx context.Context, ownerIDs []int64) ([]ledger.Category, error) {
	return list(ctx, u.tx, scanCategory, "categories",
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id IS NULL OR owner_id = ANY($1) ORDER BY id`, ownerIDs)
}

func (u *unit) FindCategoriesByName(ctx context.Context, ownerID, parentID int64, name string) ([]ledger.Category, error) {
	return list(ctx, u.tx, scanCategory, "categories", `
		SELECT `+categoryColumns+` FROM categories
		WHERE COALESCE(owner_id, 0) = $1 AND COALESCE(parent_id, 0) = $2 AND lower(name) = lower($3)
		ORDER BY id`, ownerID, parentID, name)
}

func (u *unit) SaveCategory(ctx context.Context, c *ledger.Category) (*ledger.Category, error) {
	if c.ID == 0 {
		saved, err := scanCategory(u.tx.QueryRow(ctx, `
			INSERT INTO categories (owner_id, parent_id, name)
			VALUES (NULLIF($1::BIGINT, 0), NULLIF($2::BIGINT, 0), $3)
			RETURNING `+categoryColumns, c.OwnerID, c.ParentID, c.Name))
		if err != nil {
			return nil, storeError("failed to insert category", err)
		}
		return &saved, nil
	}
	return getOne(ctx, u.tx, scanCategory, "category", c.ID, `
		UPDATE categories
		SET owner_id = NULLIF($2::BIGINT, 0), parent_id = NULLIF($3::BIGINT, 0), name = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+categoryColumns, c.ID, c.OwnerID, c.ParentID, c.Name)
}

func (u *unit) DeleteCategory(ctx context.Context, id int64) error {
	return u.exec(ctx, "category", id, `DELETE FROM categories WHERE id = $1`, id)
}

func (u *unit) ReplaceCategoryParent(ctx context.Context, from, to int64) error {
	return u.execAll(ctx, "categories", `
		UPDATE categories SET parent_id = NULLIF($2::BIGINT, 0), updated_at = now()
		WHERE parent_id = $1`, from, to)
}

// Rules

const ruleColumns = `id, owner_id, condition_type, condition_value, category_id, created_at, updated_at`

func scanRule(row scanner) (ledger.Rule, error) {
	var (
		r    ledger.Rule
		cond int16
	)
	err := row.Scan(&r.ID, &r.OwnerID, &cond, &r.ConditionValue, &r.CategoryID, &r.CreatedAt, &r.UpdatedAt)
	r.ConditionType = ledger.ConditionType(cond)
	return r, err
}

func (u *unit) GetRule(ctx context.Context, id int64) (*ledger.Rule, error) {
	return getOne(ctx, u.tx, scanRule, "rule", id, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id)
}

func (u *unit) ListRules(ctx context.Context, ownerID int64) ([]ledger.Rule, error) {
	return list(ctx, u.tx, scanRule, "rules",
		`SELECT `+ruleColumns+` FROM rules WHERE owner_id = $1 ORDER BY id`, ownerID)
}

func (u *unit) SaveRule(ctx context.Context, r *ledger.Rule) (*ledger.Rule, error) {
	if r.ID == 0 {
		saved, err := scanRule(u.tx.QueryRow(ctx, `
			INSERT INTO rules (owner_id, condition_type, condition_value, category_id)
			VALUES ($1, $2, $3, $4)
			RETURNING `+ruleColumns, r.OwnerID, int16(r.ConditionType), r.ConditionValue, r.CategoryID))
		if err != nil {
			return nil, storeError("failed to insert rule", err)
		}
		return &saved, nil
	}
	return getOne(ctx, u.tx, scanRule, "rule", r.ID, `
		UPDATE rules
		SET owner_id = $2, condition_type = $3, condition_value = $4, category_id = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+ruleColumns, r.ID, r.OwnerID, int16(r.ConditionType), r.ConditionValue, r.CategoryID)
}

func (u *unit) DeleteRule(ctx context.Context, id int64) error {
	return u.exec(ctx, "rule", id, `DELETE FROM rules WHERE id = $1`, id)
}

func (u *unit) ReplaceRuleCategory(ctx context.Context, from, to int64) error {
	return u.execAll(ctx, "rules",
		`UPDATE rules SET category_id = $2, updated_at = now() WHERE category_id = $1`, from, to)
}

func (u *unit) DeleteRulesByCategory(ctx context.Context, categoryID int64) error {
	return u.execAll(ctx, "rules", `DELETE FROM rules WHERE category_id = $1`, categoryID)
}

var _ ledger.Unit = (*unit)(nil)
