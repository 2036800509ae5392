package deposits

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/topup/internal/repos/deposits"
	"github.com/google/uuid"
)

var _ deposits.Deposits = (*depositsRepo)(nil)

const depositColumns = `id, account_id, amount, contact_ref, status, created_at, settled_at`

type depositsRepo struct{ db *sql.DB }

func New(db *sql.DB) *depositsRepo {
	return &depositsRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeposit(row rowScanner) (deposits.Deposit, error) {
	var (
		d         deposits.Deposit
		settledAt sql.NullTime
	)

	err := row.Scan(&d.ID, &d.AccountID, &d.AmountMinor, &d.ContactRef, &d.Status, &d.CreatedAt, &settledAt)
	if err != nil {
		return deposits.Deposit{}, err
	}

	if settledAt.Valid {
		t := settledAt.Time.UTC()
		d.SettledAt = &t
	}

	d.CreatedAt = d.CreatedAt.UTC()

	return d, nil
}

// parseID rejects malformed ids up front; postgres would otherwise fail the uuid cast
// with an error indistinguishable from a real fault.
func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", deposits.ErrDepositNotFound, id)
	}

	return u, nil
}

func now() time.Time {
	return time.Now().UTC()
}
