package deposits

import (
	"fmt"
	"unicode/utf8"

	"github.com/fastprodman/topup/internal/apperrors"
)

// ContactRefLength is the required length of a submitted contact reference.
const ContactRefLength = 11

// Validate checks a deposit request before it is persisted. Every store calls it
// first so that invalid input never produces a record.
func (d NewDeposit) Validate() error {
	if d.AccountID == "" {
		return fmt.Errorf("%w: account id required", apperrors.ErrValidation)
	}

	if d.AmountMinor <= 0 {
		return fmt.Errorf("%w: amount must be > 0", apperrors.ErrValidation)
	}

	if utf8.RuneCountInString(d.ContactRef) != ContactRefLength {
		return fmt.Errorf("%w: contact reference must be %d characters", apperrors.ErrValidation, ContactRefLength)
	}

	return nil
}

// ValidTransition reports whether from -> to is an allowed lifecycle step.
func ValidTransition(from, to Status) bool {
	return from == StatusPending && to.Terminal()
}
