package reconcile

import (
	"context"
	"time"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// Session is an annotated statement batch staged between propose and commit
type Session struct {
	ID        string                `json:"id"`
	UserID    int64                 `json:"userId"`
	AccountID int64                 `json:"accountId"`
	Records   []ledger.ImportRecord `json:"records"`
	CreatedAt time.Time             `json:"createdAt"`
	ExpiresAt time.Time             `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Edit is a user's change to one proposed record, addressed by position
type Edit struct {
	Index         int    `json:"index"`
	Selected      *bool  `json:"selected,omitempty"`
	CategoryID    *int64 `json:"categoryId,omitempty"`
	TransactionID *int64 `json:"transactionId,omitempty"`
}

// CommitResult lists what a commit changed
type CommitResult struct {
	Created []int64 `json:"created"`
	Updated []int64 `json:"updated"`
	// Skipped holds the indexes of records left out, see their Problem
	Skipped []int `json:"skipped,omitempty"`
}

// SessionRepository stores staged import batches
type SessionRepository interface {
	SaveSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// ListSessions returns the user's sessions, newest first
	ListSessions(ctx context.Context, userID int64) ([]Session, error)
	DeleteSession(ctx context.Context, id string) error
}
