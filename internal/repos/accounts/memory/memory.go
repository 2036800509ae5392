// Package memory is a process-local account store. Balances are guarded by a
// mutex, so the increment is atomic within one process only; use it for tests
// and single-instance local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastprodman/topup/internal/repos/accounts"
)

var _ accounts.Accounts = (*Store)(nil)

type record struct {
	account      accounts.Account
	passwordHash string
}

type Store struct {
	mu       sync.RWMutex
	accounts map[string]*record
}

func New() *Store {
	return &Store{accounts: make(map[string]*record)}
}

// Seed inserts or replaces an account with the given balance.
func (s *Store) Seed(id string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[id] = &record{account: accounts.Account{
		ID:           id,
		BalanceMinor: balance,
		Role:         accounts.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}}
}

func (s *Store) FindAccount(_ context.Context, id string) (accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.accounts[id]
	if !ok {
		return accounts.Account{}, accounts.ErrAccountNotFound
	}

	return r.account, nil
}

func (s *Store) IncrementBalance(_ context.Context, id string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.accounts[id]
	if !ok {
		return 0, accounts.ErrAccountNotFound
	}

	r.account.BalanceMinor += delta

	return r.account.BalanceMinor, nil
}

func (s *Store) Create(_ context.Context, na accounts.NewAccount) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[na.ID]; ok {
		return accounts.Account{}, accounts.ErrAccountExists
	}

	role := na.Role
	if role == "" {
		role = accounts.RoleUser
	}

	r := &record{
		account:      accounts.Account{ID: na.ID, Role: role, CreatedAt: time.Now().UTC()},
		passwordHash: na.PasswordHash,
	}
	s.accounts[na.ID] = r

	return r.account, nil
}

func (s *Store) GetCredentials(_ context.Context, id string) (accounts.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.accounts[id]
	if !ok {
		return accounts.Credentials{}, accounts.ErrAccountNotFound
	}

	return accounts.Credentials{AccountID: id, PasswordHash: r.passwordHash, Role: r.account.Role}, nil
}
