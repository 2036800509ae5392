package deposits

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/topup/internal/apperrors"
)

var (
	ErrDepositNotFound = fmt.Errorf("deposit: %w", apperrors.ErrNotFound)
	ErrStatusConflict  = fmt.Errorf("deposit status: %w", apperrors.ErrConflict)
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

type Deposit struct {
	ID          string
	AccountID   string
	AmountMinor int64 // cents
	ContactRef  string
	Status      Status
	CreatedAt   time.Time
	SettledAt   *time.Time
}

type NewDeposit struct {
	AccountID   string
	AmountMinor int64
	ContactRef  string
}

// Deposits is the deposit record store boundary.
//
// TransitionStatus is a compare-and-swap: it writes only when the stored status equals
// from, and returns ErrStatusConflict (no mutation) otherwise.
type Deposits interface {
	Create(ctx context.Context, d NewDeposit) (Deposit, error)
	Get(ctx context.Context, id string) (Deposit, error)
	TransitionStatus(ctx context.Context, id string, from, to Status) (Deposit, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]Deposit, error)
}
