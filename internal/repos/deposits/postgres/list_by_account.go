package deposits

import (
	"context"
	"fmt"

	"github.com/fastprodman/topup/internal/repos/deposits"
)

func (r *depositsRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]deposits.Deposit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+depositColumns+`
		FROM deposits
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]deposits.Deposit, 0, limit)

	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}

		out = append(out, d)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate deposits: %w", err)
	}

	return out, nil
}
