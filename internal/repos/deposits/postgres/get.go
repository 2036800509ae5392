package deposits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/topup/internal/repos/deposits"
)

func (r *depositsRepo) Get(ctx context.Context, id string) (deposits.Deposit, error) {
	uid, err := parseID(id)
	if err != nil {
		return deposits.Deposit{}, err
	}

	d, err := scanDeposit(r.db.QueryRowContext(ctx, `
		SELECT `+depositColumns+`
		FROM deposits
		WHERE id = $1
	`, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return deposits.Deposit{}, deposits.ErrDepositNotFound
		}

		return deposits.Deposit{}, fmt.Errorf("get deposit: %w", err)
	}

	return d, nil
}
