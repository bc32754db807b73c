package postgres

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
)

// ACL lookups run on the pool, outside any unit

func (s *Store) ids(ctx context.Context, what, sql string, args ...any) ([]int64, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError("failed to query "+what, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, storeError("failed to read "+what, err)
	}
	return ids, nil
}

// AccessibleAccountIDs implements ledger.AccessControl
func (s *Store) AccessibleAccountIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.ids(ctx, "accessible accounts", `
		SELECT a.id FROM accounts a
		JOIN account_groups g ON g.id = a.group_id
		WHERE NOT a.deleted
		  AND (g.owner_id = $1 OR g.owner_id IN (SELECT owner_id FROM shares WHERE user_id = $1))
		ORDER BY a.id`, userID)
}

// VisibleOwnerIDs implements ledger.AccessControl
func (s *Store) VisibleOwnerIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.ids(ctx, "visible owners", `
		SELECT $1::BIGINT
		UNION
		SELECT owner_id FROM shares WHERE user_id = $1
		ORDER BY 1`, userID)
}

// UserIDByEmail implements ledger.AccessControl
func (s *Store) UserIDByEmail(ctx context.Context, email string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM users WHERE lower(email) = lower($1)`, email).Scan(&id)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return 0, errors.NewNotFoundError("user not found").WithDetail("email", email)
		}
		return 0, storeError("failed to look up user", err)
	}
	return id, nil
}

// GroupOwner implements account.Groups
func (s *Store) GroupOwner(ctx context.Context, groupID int64) (int64, error) {
	var owner int64
	err := s.pool.QueryRow(ctx, `SELECT owner_id FROM account_groups WHERE id = $1`, groupID).Scan(&owner)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return 0, errors.NewNotFoundError("account group not found").WithDetail("groupId", groupID)
		}
		return 0, storeError("failed to look up account group", err)
	}
	return owner, nil
}
