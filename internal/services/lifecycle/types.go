package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fastprodman/topup/internal/apperrors"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision accepts approve/reject in any case.
func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionReject:
		return DecisionReject, nil
	default:
		return "", fmt.Errorf("%w: unknown decision %q", apperrors.ErrValidation, s)
	}
}

// PartialFailureError means the deposit is Completed but its credit was not applied.
// The record must be reconciled by an operator; the engine never retries the credit.
type PartialFailureError struct {
	DepositID   string
	AccountID   string
	AmountMinor int64
	Cause       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("deposit %s completed but credit of %d to %s failed: %v",
		e.DepositID, e.AmountMinor, e.AccountID, e.Cause)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Cause
}

func (e *PartialFailureError) Is(target error) bool {
	return target == apperrors.ErrPartialFailure
}

// AsPartialFailure extracts a *PartialFailureError from err's chain.
func AsPartialFailure(err error) (*PartialFailureError, bool) {
	var pf *PartialFailureError
	ok := errors.As(err, &pf)
	return pf, ok
}
