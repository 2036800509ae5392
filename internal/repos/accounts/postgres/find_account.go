package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/topup/internal/repos/accounts"
)

func (r *accountsRepo) FindAccount(ctx context.Context, id string) (accounts.Account, error) {
	var acc accounts.Account

	err := r.db.QueryRowContext(ctx, `
		SELECT id, balance, role, created_at
		FROM accounts
		WHERE id = $1
	`, id).Scan(&acc.ID, &acc.BalanceMinor, &acc.Role, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}

		return accounts.Account{}, fmt.Errorf("find account: %w", err)
	}

	return acc, nil
}

func (r *accountsRepo) GetCredentials(ctx context.Context, id string) (accounts.Credentials, error) {
	var c accounts.Credentials

	err := r.db.QueryRowContext(ctx, `
		SELECT id, password_hash, role
		FROM accounts
		WHERE id = $1
	`, id).Scan(&c.AccountID, &c.PasswordHash, &c.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Credentials{}, accounts.ErrAccountNotFound
		}

		return accounts.Credentials{}, fmt.Errorf("get credentials: %w", err)
	}

	return c, nil
}
