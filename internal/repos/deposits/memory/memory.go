// Package memory is a process-local deposit store with the same conditional
// transition contract as the database-backed stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/repos/deposits"
	"github.com/google/uuid"
)

var _ deposits.Deposits = (*Store)(nil)

type Store struct {
	mu       sync.RWMutex
	deposits map[string]deposits.Deposit
	now      func() time.Time
}

func New() *Store {
	return &Store{
		deposits: make(map[string]deposits.Deposit),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Create(_ context.Context, nd deposits.NewDeposit) (deposits.Deposit, error) {
	err := nd.Validate()
	if err != nil {
		return deposits.Deposit{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := deposits.Deposit{
		ID:          uuid.NewString(),
		AccountID:   nd.AccountID,
		AmountMinor: nd.AmountMinor,
		ContactRef:  nd.ContactRef,
		Status:      deposits.StatusPending,
		CreatedAt:   s.now(),
	}
	s.deposits[d.ID] = d

	return d, nil
}

func (s *Store) Get(_ context.Context, id string) (deposits.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deposits[id]
	if !ok {
		return deposits.Deposit{}, deposits.ErrDepositNotFound
	}

	return d, nil
}

func (s *Store) TransitionStatus(_ context.Context, id string, from, to deposits.Status) (deposits.Deposit, error) {
	if !deposits.ValidTransition(from, to) {
		return deposits.Deposit{}, fmt.Errorf("%w: transition %s -> %s", apperrors.ErrValidation, from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deposits[id]
	if !ok {
		return deposits.Deposit{}, deposits.ErrDepositNotFound
	}

	if d.Status != from {
		return deposits.Deposit{}, deposits.ErrStatusConflict
	}

	settled := s.now()
	d.Status = to
	d.SettledAt = &settled
	s.deposits[id] = d

	return d, nil
}

func (s *Store) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]deposits.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []deposits.Deposit

	for _, d := range s.deposits {
		if d.AccountID == accountID {
			all = append(all, d)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []deposits.Deposit{}, nil
	}

	end := min(offset+limit, len(all))

	return all[offset:end], nil
}
