// Package postgres is the production ledger.Store backed by a pgx pool.
// Every unit is one READ COMMITTED transaction; corrections lock the rows
// they rewrite with FOR UPDATE.
package postgres

import (
	"context"
	_ "embed"
	stderrors "errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

//go:embed schema.sql
var schema string

// Store implements ledger.Store and ledger.AccessControl
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore connects a pool to dsn
func NewStore(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.NewValidationError("invalid database connection string")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.NewInternalError("failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewInternalError("failed to reach database", err)
	}
	logger.Info("connected to postgres", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates missing tables and seeds the reserved root categories
func (s *Store) Migrate(ctx context.Context, roots ledger.Roots) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return errors.NewInternalError("failed to apply schema", err)
	}
	for name, id := range map[string]int64{
		"Transfer":   roots.Transfer,
		"Expense":    roots.Expense,
		"Income":     roots.Income,
		"Correction": roots.Correction,
	} {
		if id == 0 {
			continue
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO categories (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, id, name)
		if err != nil {
			return errors.NewInternalError("failed to seed root category", err)
		}
	}
	// explicit root ids must not collide with generated ones
	_, err := s.pool.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('categories', 'id'), GREATEST((SELECT MAX(id) FROM categories), 100))`)
	if err != nil {
		return errors.NewInternalError("failed to advance category ids", err)
	}
	return nil
}

// WithinUnit implements ledger.Store
func (s *Store) WithinUnit(ctx context.Context, fn func(ctx context.Context, u ledger.Unit) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.NewInternalError("failed to begin unit", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &unit{tx: tx}); err != nil {
		s.logger.Debug("unit rolled back", "error", err)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storeError("failed to commit unit", err)
	}
	return nil
}

// storeError maps driver errors onto the ledger taxonomy
func storeError(message string, err error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return errors.NewValidationError("referenced record does not exist").WithDetail("constraint", pgErr.ConstraintName)
		case "23505":
			return errors.NewConflictError("record already exists").WithDetail("constraint", pgErr.ConstraintName)
		case "40001", "40P01":
			return errors.NewConflictError("concurrent update, retry the operation")
		}
	}
	return errors.NewInternalError(message, err)
}

var _ ledger.Store = (*Store)(nil)
var _ ledger.AccessControl = (*Store)(nil)
