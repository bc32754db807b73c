// Package memstore keeps the whole ledger in process memory. Units are
// serialized by a single mutex and rolled back by restoring a snapshot.
package memstore

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

type dataset struct {
	accounts     map[int64]ledger.Account
	transactions map[int64]ledger.Transaction
	categories   map[int64]ledger.Category
	rules        map[int64]ledger.Rule
	seq          int64
}

func newDataset() *dataset {
	return &dataset{
		accounts:     map[int64]ledger.Account{},
		transactions: map[int64]ledger.Transaction{},
		categories:   map[int64]ledger.Category{},
		rules:        map[int64]ledger.Rule{},
		seq:          100,
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		accounts:     maps.Clone(d.accounts),
		transactions: maps.Clone(d.transactions),
		categories:   maps.Clone(d.categories),
		rules:        maps.Clone(d.rules),
		seq:          d.seq,
	}
}

func (d *dataset) nextID() int64 {
	d.seq++
	return d.seq
}

// Store is an in-memory ledger.Store and ledger.AccessControl
type Store struct {
	mu     sync.Mutex
	data   *dataset
	acl    *accessList
	now    func() time.Time
	logger *slog.Logger
}

// NewStore creates an empty store with the reserved root categories
func NewStore(roots ledger.Roots, logger *slog.Logger) *Store {
	s := &Store{
		data:   newDataset(),
		acl:    newAccessList(),
		now:    time.Now,
		logger: logger,
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
		s.data.categories[id] = ledger.Category{ID: id, Name: name}
	}
	return s
}

// WithinUnit implements ledger.Store
func (s *Store) WithinUnit(ctx context.Context, fn func(ctx context.Context, u ledger.Unit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	u := &unit{d: s.data, acl: s.acl, now: s.now}
	if err := fn(ctx, u); err != nil {
		s.data = snapshot
		s.acl.resetAccounts(snapshot.accounts)
		s.logger.Debug("unit rolled back", "error", err)
		return err
	}
	return nil
}

var _ ledger.Store = (*Store)(nil)
var _ ledger.AccessControl = (*Store)(nil)
