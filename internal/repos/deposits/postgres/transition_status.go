package deposits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/repos/deposits"
)

// TransitionStatus moves a deposit from -> to in one conditional UPDATE. Under READ
// COMMITTED a concurrent caller blocked on the row lock re-evaluates the status
// predicate after the winner commits and matches zero rows.
func (r *depositsRepo) TransitionStatus(ctx context.Context, id string, from, to deposits.Status) (deposits.Deposit, error) {
	if !deposits.ValidTransition(from, to) {
		return deposits.Deposit{}, fmt.Errorf("%w: transition %s -> %s", apperrors.ErrValidation, from, to)
	}

	uid, err := parseID(id)
	if err != nil {
		return deposits.Deposit{}, err
	}

	d, err := scanDeposit(r.db.QueryRowContext(ctx, `
		UPDATE deposits
		SET status = $3, settled_at = $4
		WHERE id = $1
		  AND status = $2
		RETURNING `+depositColumns,
		uid, from, to, now(),
	))
	if err == nil {
		return d, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return deposits.Deposit{}, fmt.Errorf("transition status: %w", err)
	}

	// Zero rows: either the id is unknown or the predicate failed.
	var exists bool

	err = r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM deposits WHERE id = $1)
	`, uid).Scan(&exists)
	if err != nil {
		return deposits.Deposit{}, fmt.Errorf("check exists: %w", err)
	}

	if !exists {
		return deposits.Deposit{}, deposits.ErrDepositNotFound
	}

	return deposits.Deposit{}, deposits.ErrStatusConflict
}
