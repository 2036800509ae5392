package deposits

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/repos/deposits"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func (r *depositsRepo) Create(ctx context.Context, nd deposits.NewDeposit) (deposits.Deposit, error) {
	err := nd.Validate()
	if err != nil {
		return deposits.Deposit{}, err
	}

	d, err := scanDeposit(r.db.QueryRowContext(ctx, `
		INSERT INTO deposits (id, account_id, amount, contact_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+depositColumns,
		uuid.New(), nd.AccountID, nd.AmountMinor, nd.ContactRef, deposits.StatusPending, now(),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503": // foreign_key_violation
				return deposits.Deposit{}, fmt.Errorf("account %q: %w", nd.AccountID, apperrors.ErrNotFound)
			case "23514": // check_violation
				return deposits.Deposit{}, fmt.Errorf("%w: %s", apperrors.ErrValidation, pgErr.ConstraintName)
			}
		}

		return deposits.Deposit{}, fmt.Errorf("insert deposit: %w", err)
	}

	return d, nil
}
