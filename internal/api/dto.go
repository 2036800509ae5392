package api

import (
	"fmt"
	"math"
	"time"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/repos/deposits"
	"github.com/fastprodman/topup/internal/services/status"
	"github.com/shopspring/decimal"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type registerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Amount accepts either a JSON number or a decimal string.
type submitDepositRequest struct {
	Account    string           `json:"account" validate:"required"`
	Amount     *decimal.Decimal `json:"amount" validate:"required"`
	ContactRef string           `json:"contactRef" validate:"required"`
}

// Decision is parsed by lifecycle.ParseDecision, the same rule the settler applies.
type settleRequest struct {
	Decision string `json:"decision" validate:"required"`
}

type depositResponse struct {
	DepositID  string     `json:"depositId"`
	Account    string     `json:"account"`
	Amount     string     `json:"amount"`
	ContactRef string     `json:"contactRef"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	SettledAt  *time.Time `json:"settledAt,omitempty"`
}

type statusResponse struct {
	DepositID string     `json:"depositId"`
	Status    string     `json:"status"`
	SettledAt *time.Time `json:"settledAt,omitempty"`
}

type balanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   string `json:"balance"`
}

type depositListResponse struct {
	Deposits []depositResponse `json:"deposits"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// toMinor converts a wire amount with at most two decimals to minor units.
// Sign is not checked here; non-positive amounts are rejected by the store.
func toMinor(amount decimal.Decimal) (int64, error) {
	if !amount.Round(2).Equal(amount) {
		return 0, fmt.Errorf("%w: amount supports up to 2 decimals", apperrors.ErrValidation)
	}

	shifted := amount.Shift(2)
	if shifted.Abs().GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: amount out of range", apperrors.ErrValidation)
	}

	return shifted.IntPart(), nil
}

func formatMinor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

func toDepositResponse(d deposits.Deposit) depositResponse {
	return depositResponse{
		DepositID:  d.ID,
		Account:    d.AccountID,
		Amount:     formatMinor(d.AmountMinor),
		ContactRef: d.ContactRef,
		Status:     string(d.Status),
		CreatedAt:  d.CreatedAt,
		SettledAt:  d.SettledAt,
	}
}

func toStatusResponse(s status.Snapshot) statusResponse {
	return statusResponse{
		DepositID: s.DepositID,
		Status:    string(s.Status),
		SettledAt: s.SettledAt,
	}
}
