package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastprodman/topup/internal/repos/accounts"
	"github.com/jackc/pgx/v5/pgconn"
)

func (r *accountsRepo) Create(ctx context.Context, na accounts.NewAccount) (accounts.Account, error) {
	role := na.Role
	if role == "" {
		role = accounts.RoleUser
	}

	acc := accounts.Account{ID: na.ID, Role: role}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING balance, created_at
	`, na.ID, na.PasswordHash, role).Scan(&acc.BalanceMinor, &acc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return accounts.Account{}, accounts.ErrAccountExists
			}
		}

		return accounts.Account{}, fmt.Errorf("insert account: %w", err)
	}

	return acc, nil
}
