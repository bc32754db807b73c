package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// accessList has its own lock so ACL lookups work while a unit is open
type accessList struct {
	mu       sync.RWMutex
	users    map[string]int64  // email -> user id
	groups   map[int64]int64   // account group -> owner
	shares   map[int64][]int64 // owner -> users the owner shares with
	accounts map[int64]ledger.Account
}

func newAccessList() *accessList {
	return &accessList{
		users:    map[string]int64{},
		groups:   map[int64]int64{},
		shares:   map[int64][]int64{},
		accounts: map[int64]ledger.Account{},
	}
}

func (a *accessList) trackAccount(acc ledger.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[acc.ID] = acc
}

func (a *accessList) resetAccounts(accounts map[int64]ledger.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts = make(map[int64]ledger.Account, len(accounts))
	for id, acc := range accounts {
		a.accounts[id] = acc
	}
}

// AddUser registers a user and its email
func (s *Store) AddUser(id int64, email string) {
	s.acl.mu.Lock()
	defer s.acl.mu.Unlock()
	s.acl.users[strings.ToLower(email)] = id
}

// AddGroup registers an account group owned by ownerID
func (s *Store) AddGroup(groupID, ownerID int64) {
	s.acl.mu.Lock()
	defer s.acl.mu.Unlock()
	s.acl.groups[groupID] = ownerID
}

// Share makes everything ownerID owns visible to userID
func (s *Store) Share(ownerID, userID int64) {
	s.acl.mu.Lock()
	defer s.acl.mu.Unlock()
	if !slices.Contains(s.acl.shares[ownerID], userID) {
		s.acl.shares[ownerID] = append(s.acl.shares[ownerID], userID)
	}
}

// VisibleOwnerIDs implements ledger.AccessControl
func (s *Store) VisibleOwnerIDs(ctx context.Context, userID int64) ([]int64, error) {
	s.acl.mu.RLock()
	defer s.acl.mu.RUnlock()
	return s.acl.visibleOwners(userID), nil
}

// AccessibleAccountIDs implements ledger.AccessControl
func (s *Store) AccessibleAccountIDs(ctx context.Context, userID int64) ([]int64, error) {
	s.acl.mu.RLock()
	defer s.acl.mu.RUnlock()

	owners := s.acl.visibleOwners(userID)
	var ids []int64
	for _, a := range s.acl.accounts {
		if a.Deleted {
			continue
		}
		if owner, ok := s.acl.groups[a.GroupID]; ok && slices.Contains(owners, owner) {
			ids = append(ids, a.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// UserIDByEmail implements ledger.AccessControl
func (s *Store) UserIDByEmail(ctx context.Context, email string) (int64, error) {
	s.acl.mu.RLock()
	defer s.acl.mu.RUnlock()
	id, ok := s.acl.users[strings.ToLower(email)]
	if !ok {
		return 0, errors.NewNotFoundError("user not found").WithDetail("email", email)
	}
	return id, nil
}

func (a *accessList) visibleOwners(userID int64) []int64 {
	owners := []int64{userID}
	for owner, users := range a.shares {
		if owner != userID && slices.Contains(users, userID) {
			owners = append(owners, owner)
		}
	}
	slices.Sort(owners)
	return owners
}

// GroupOwner implements account.Groups
func (s *Store) GroupOwner(ctx context.Context, groupID int64) (int64, error) {
	s.acl.mu.RLock()
	defer s.acl.mu.RUnlock()
	owner, ok := s.acl.groups[groupID]
	if !ok {
		return 0, errors.NewNotFoundError("account group not found").WithDetail("groupId", groupID)
	}
	return owner, nil
}
