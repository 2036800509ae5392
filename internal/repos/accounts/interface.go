package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/topup/internal/apperrors"
)

var (
	ErrAccountNotFound = fmt.Errorf("account: %w", apperrors.ErrNotFound)
	ErrAccountExists   = fmt.Errorf("account: %w", apperrors.ErrDuplicate)
)

type Role string

const (
	RoleUser     Role = "user"
	RoleOperator Role = "operator"
)

type Account struct {
	ID           string
	BalanceMinor int64
	Role         Role
	CreatedAt    time.Time
}

// Credentials is what the auth adapter needs to verify a login.
type Credentials struct {
	AccountID    string
	PasswordHash string
	Role         Role
}

type NewAccount struct {
	ID           string
	PasswordHash string
	Role         Role
}

// Accounts is the account store boundary. IncrementBalance must be atomic at the
// storage layer; callers never read-modify-write a balance.
type Accounts interface {
	FindAccount(ctx context.Context, id string) (Account, error)
	IncrementBalance(ctx context.Context, id string, delta int64) (int64, error)
	Create(ctx context.Context, acc NewAccount) (Account, error)
	GetCredentials(ctx context.Context, id string) (Credentials, error)
}
