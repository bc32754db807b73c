package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/reconcile"
)

// Sessions is an in-memory reconcile.SessionRepository
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]reconcile.Session
}

// NewSessions creates an empty session store
func NewSessions() *Sessions {
	return &Sessions{sessions: map[string]reconcile.Session{}}
}

func (s *Sessions) SaveSession(ctx context.Context, session *reconcile.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	copied.Records = slices.Clone(session.Records)
	s.sessions[session.ID] = copied
	return nil
}

func (s *Sessions) GetSession(ctx context.Context, id string) (*reconcile.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("import session %s not found", id))
	}
	session.Records = slices.Clone(session.Records)
	return &session, nil
}

func (s *Sessions) ListSessions(ctx context.Context, userID int64) ([]reconcile.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []reconcile.Session{}
	for _, session := range s.sessions {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	slices.SortFunc(out, func(a, b reconcile.Session) int { return strings.Compare(b.ID, a.ID) })
	return out, nil
}

func (s *Sessions) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

var _ reconcile.SessionRepository = (*Sessions)(nil)
