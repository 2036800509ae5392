package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/topup/internal/repos/accounts"
)

// IncrementBalance adds delta in a single statement and returns the new balance.
// The row lock taken by UPDATE serializes concurrent credits to the same account.
func (r *accountsRepo) IncrementBalance(ctx context.Context, id string, delta int64) (int64, error) {
	var balance int64

	err := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET balance = balance + $2
		WHERE id = $1
		RETURNING balance
	`, id, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, accounts.ErrAccountNotFound
		}

		return 0, fmt.Errorf("increment balance: %w", err)
	}

	return balance, nil
}
