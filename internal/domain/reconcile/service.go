// Package reconcile matches imported statement lines against the ledger and
// books the lines the user accepts.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/hirosato/finance-ledger/internal/domain/balance"
	"github.com/hirosato/finance-ledger/internal/domain/category"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Service provides statement reconciliation
type Service struct {
	store      ledger.Store
	acl        ledger.AccessControl
	engine     *balance.Engine
	resolver   *category.Resolver
	categories *category.Service
	sessions   SessionRepository
	sessionTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewService creates a new reconciliation service
func NewService(store ledger.Store, acl ledger.AccessControl, engine *balance.Engine, resolver *category.Resolver, categories *category.Service, sessions SessionRepository, sessionTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		acl:        acl,
		engine:     engine,
		resolver:   resolver,
		categories: categories,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Propose annotates records with rule categories and matches against
// transactions already booked on accountID. The returned slice is a copy.
func (s *Service) Propose(ctx context.Context, userID, accountID int64, records []ledger.ImportRecord) ([]ledger.ImportRecord, error) {
	if err := s.checkAccess(ctx, userID, accountID); err != nil {
		return nil, err
	}
	out := slices.Clone(records)
	if len(out) == 0 {
		return out, nil
	}

	err := s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		account, err := u.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		tree, err := s.categories.LoadTree(ctx, u, userID)
		if err != nil {
			return err
		}
		rules, err := u.ListRules(ctx, userID)
		if err != nil {
			return err
		}
		ruleSet := NewRuleSet(rules, tree)

		p, err := s.loadPool(ctx, u, account, out)
		if err != nil {
			return err
		}

		var matched, ambiguous int
		for i := range out {
			rec := &out[i]
			resetAnnotations(rec)
			if problem := checkRecord(rec); problem != "" {
				rec.Problem = problem
				continue
			}
			if r := ruleSet.Match(rec); r != nil {
				rec.RuleID = r.ID
				rec.CategoryID = r.CategoryID
			}
			t, amb := p.claim(rec)
			if t == nil {
				rec.Selected = true
				continue
			}
			matched++
			if amb {
				ambiguous++
			}
			rec.TransactionID = t.ID
			rec.CategoryID = t.CategoryID
			rec.RuleID = 0
			rec.Ambiguous = amb
		}
		s.logger.Info("statement proposed",
			"userId", userID, "accountId", accountID,
			"records", len(out), "matched", matched, "ambiguous", ambiguous)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// loadPool fetches the non-correction transactions on account from the
// first day of the batch onwards
func (s *Service) loadPool(ctx context.Context, u ledger.Unit, account *ledger.Account, records []ledger.ImportRecord) (*pool, error) {
	var from time.Time
	for _, rec := range records {
		if rec.Opdate.IsZero() {
			continue
		}
		if from.IsZero() || rec.Opdate.Before(from) {
			from = rec.Opdate
		}
	}
	if from.IsZero() {
		return newPool(account, nil), nil
	}
	from = startOfDay(from)
	found, err := u.FindTransactions(ctx, ledger.TransactionFilter{
		AccountIDs: []int64{account.ID},
		From:       &from,
	})
	if err != nil {
		return nil, err
	}
	roots := s.engine.Roots()
	candidates := slices.DeleteFunc(found, func(t ledger.Transaction) bool {
		return roots.IsCorrection(&t)
	})
	return newPool(account, candidates), nil
}

// Commit books the selected records on accountID and back-fills the
// matched ones, all in one atomic unit. Records that cannot be booked are
// reported in the result and do not fail the batch.
func (s *Service) Commit(ctx context.Context, userID, accountID int64, records []ledger.ImportRecord) (*CommitResult, error) {
	accessible, err := s.acl.AccessibleAccountIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(accessible, accountID) {
		return nil, errors.NewOwnershipViolation(fmt.Sprintf("account %d is not accessible", accountID))
	}

	logger := s.logger.With("operationId", uuid.NewString(), "userId", userID, "accountId", accountID)
	result := &CommitResult{Created: []int64{}, Updated: []int64{}}
	err = s.store.WithinUnit(ctx, func(ctx context.Context, u ledger.Unit) error {
		account, err := u.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		c := &committer{
			service:    s,
			unit:       u,
			repair:     s.engine.Begin(u),
			userID:     userID,
			account:    account,
			accessible: accessible,
		}
		for i := range records {
			rec := &records[i]
			id, created, err := c.commit(ctx, rec)
			if err != nil {
				if errors.IsAbortive(err) {
					return err
				}
				rec.Problem = err.Error()
				result.Skipped = append(result.Skipped, i)
				logger.Warn("import record skipped", "index", i, "error", err)
				continue
			}
			switch {
			case id == 0:
			case created:
				result.Created = append(result.Created, id)
			default:
				result.Updated = append(result.Updated, id)
			}
		}
		return c.repair.Finish(ctx)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("statement committed",
		"created", len(result.Created), "updated", len(result.Updated), "skipped", len(result.Skipped))
	return result, nil
}

// ProposeSession proposes records and stages the result for a later commit
func (s *Service) ProposeSession(ctx context.Context, userID, accountID int64, records []ledger.ImportRecord) (*Session, error) {
	proposed, err := s.Propose(ctx, userID, accountID, records)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	session := &Session{
		ID:        ulid.Make().String(),
		UserID:    userID,
		AccountID: accountID,
		Records:   proposed,
		CreatedAt: now,
	}
	if s.sessionTTL > 0 {
		session.ExpiresAt = now.Add(s.sessionTTL)
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Debug("import session staged", "sessionId", session.ID, "records", len(proposed))
	return session, nil
}

// CommitSession applies edits to a staged session, commits it and drops it
func (s *Service) CommitSession(ctx context.Context, userID int64, sessionID string, edits []Edit) (*CommitResult, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, errors.NewOwnershipViolation(fmt.Sprintf("import session %s belongs to another user", sessionID))
	}
	if session.Expired(s.now()) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("import session %s has expired", sessionID))
	}
	if err := applyEdits(session.Records, edits); err != nil {
		return nil, err
	}

	result, err := s.Commit(ctx, userID, session.AccountID, session.Records)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		s.logger.Warn("failed to delete import session", "sessionId", sessionID, "error", err)
	}
	return result, nil
}

// ListSessions returns the user's staged sessions that have not expired
func (s *Service) ListSessions(ctx context.Context, userID int64) ([]Session, error) {
	sessions, err := s.sessions.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return slices.DeleteFunc(sessions, func(session Session) bool { return session.Expired(now) }), nil
}

func (s *Service) checkAccess(ctx context.Context, userID, accountID int64) error {
	accessible, err := s.acl.AccessibleAccountIDs(ctx, userID)
	if err != nil {
		return err
	}
	if !slices.Contains(accessible, accountID) {
		return errors.NewOwnershipViolation(fmt.Sprintf("account %d is not accessible", accountID))
	}
	return nil
}

func applyEdits(records []ledger.ImportRecord, edits []Edit) error {
	for _, e := range edits {
		if e.Index < 0 || e.Index >= len(records) {
			return errors.NewValidationError(fmt.Sprintf("record index %d out of range", e.Index))
		}
		rec := &records[e.Index]
		if e.Selected != nil {
			rec.Selected = *e.Selected
		}
		if e.CategoryID != nil {
			rec.CategoryID = *e.CategoryID
		}
		if e.TransactionID != nil {
			rec.TransactionID = *e.TransactionID
		}
	}
	return nil
}

func resetAnnotations(rec *ledger.ImportRecord) {
	rec.RuleID = 0
	rec.CategoryID = 0
	rec.TransactionID = 0
	rec.Selected = false
	rec.Ambiguous = false
	rec.Problem = ""
}

// checkRecord returns why rec cannot take part in the batch, or ""
func checkRecord(rec *ledger.ImportRecord) string {
	switch {
	case rec.Opdate.IsZero():
		return "missing operation date"
	case rec.Direction != ledger.Debit && rec.Direction != ledger.Credit:
		return fmt.Sprintf("unknown direction %q", rec.Direction)
	case rec.Amount.IsNegative():
		return "negative amount"
	}
	return ""
}

// committer books one batch inside a unit, sharing one correction repair
type committer struct {
	service    *Service
	unit       ledger.Unit
	repair     *balance.Repair
	userID     int64
	account    *ledger.Account
	accessible []int64
}

// commit handles one record and returns the id of the transaction it
// created or changed, if any
func (c *committer) commit(ctx context.Context, rec *ledger.ImportRecord) (int64, bool, error) {
	if rec.Selected {
		if problem := checkRecord(rec); problem != "" {
			return 0, false, errors.NewValidationError(problem)
		}
		id, err := c.create(ctx, rec)
		return id, true, err
	}
	if rec.TransactionID == 0 {
		return 0, false, nil
	}
	id, err := c.update(ctx, rec)
	return id, false, err
}

func (c *committer) create(ctx context.Context, rec *ledger.ImportRecord) (int64, error) {
	categoryID, err := c.service.resolver.Resolve(ctx, c.unit, c.userID, rec.CategoryID)
	if err != nil {
		return 0, err
	}
	units := ledger.ToMinor(rec.Amount, c.account.Scale)
	t := &ledger.Transaction{
		OwnerID:    c.userID,
		Opdate:     rec.Opdate,
		Debit:      units,
		Credit:     units,
		CategoryID: categoryID,
		Currency:   strings.ToUpper(strings.TrimSpace(rec.Currency)),
		Party:      strings.TrimSpace(rec.Party),
		Details:    strings.TrimSpace(rec.Details),
	}
	if rec.Kind() == ledger.KindExpense {
		t.AccountID = c.account.ID
	} else {
		t.RecipientID = c.account.ID
	}
	if t.Currency == "" {
		t.Currency = c.account.Currency
	}

	saved, err := c.unit.SaveTransaction(ctx, t)
	if err != nil {
		return 0, err
	}
	if err := c.repair.Apply(ctx, saved); err != nil {
		return 0, err
	}
	rec.TransactionID = saved.ID
	rec.CategoryID = saved.CategoryID
	return saved.ID, nil
}

// update re-attaches a dangling transfer leg to the account or back-fills
// blank party and details of the matched transaction
func (c *committer) update(ctx context.Context, rec *ledger.ImportRecord) (int64, error) {
	stored, err := c.unit.GetTransaction(ctx, rec.TransactionID)
	if err != nil {
		return 0, err
	}
	if !slices.Contains(c.accessible, stored.AccountID) && !slices.Contains(c.accessible, stored.RecipientID) {
		return 0, errors.NewOwnershipViolation(fmt.Sprintf("transaction %d is not accessible", stored.ID))
	}

	next := *stored
	changed := false
	if c.reattach(&next, rec) {
		changed = true
	} else if strings.TrimSpace(next.Party) == "" && strings.TrimSpace(rec.Party) != "" {
		next.Party = strings.TrimSpace(rec.Party)
		changed = true
	}
	if strings.TrimSpace(next.Details) == "" && strings.TrimSpace(rec.Details) != "" {
		next.Details = strings.TrimSpace(rec.Details)
		changed = true
	}
	if !changed {
		return 0, nil
	}
	next.OwnerID = c.userID

	amountsMoved := next.AccountID != stored.AccountID || next.RecipientID != stored.RecipientID
	if amountsMoved {
		if err := c.repair.Undo(ctx, stored); err != nil {
			return 0, err
		}
	}
	saved, err := c.unit.SaveTransaction(ctx, &next)
	if err != nil {
		return 0, err
	}
	if amountsMoved {
		if err := c.repair.Apply(ctx, saved); err != nil {
			return 0, err
		}
	}
	rec.CategoryID = saved.CategoryID
	return saved.ID, nil
}

// reattach turns a one-sided transaction addressed to the account's wallet
// into a transfer to or from the account
func (c *committer) reattach(t *ledger.Transaction, rec *ledger.ImportRecord) bool {
	address := strings.TrimSpace(c.account.Address)
	if address == "" || strings.TrimSpace(t.Party) != address {
		return false
	}
	units := ledger.ToMinor(rec.Amount, c.account.Scale)
	switch {
	case rec.Kind() == ledger.KindIncome && t.RecipientID == 0 && t.AccountID != c.account.ID:
		t.RecipientID = c.account.ID
		t.Credit = units
	case rec.Kind() == ledger.KindExpense && t.AccountID == 0 && t.RecipientID != c.account.ID:
		t.AccountID = c.account.ID
		t.Debit = units
	default:
		return false
	}
	t.Party = ""
	t.CategoryID = 0
	t.Currency = ""
	return true
}
