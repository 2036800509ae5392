// Package status is the read path clients poll to learn whether a deposit has settled.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/topup/internal/repos/deposits"
)

type Snapshot struct {
	DepositID string
	AccountID string
	Status    deposits.Status
	SettledAt *time.Time
}

type Service struct {
	deposits deposits.Deposits
}

func New(deps deposits.Deposits) *Service {
	return &Service{deposits: deps}
}

// PollStatus returns the last committed status of a deposit. It never writes.
func (s *Service) PollStatus(ctx context.Context, depositID string) (Snapshot, error) {
	d, err := s.deposits.Get(ctx, depositID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("poll status: %w", err)
	}

	return Snapshot{
		DepositID: d.ID,
		AccountID: d.AccountID,
		Status:    d.Status,
		SettledAt: d.SettledAt,
	}, nil
}
