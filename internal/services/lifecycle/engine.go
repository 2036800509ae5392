package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/infra/logging"
	"github.com/fastprodman/topup/internal/repos/accounts"
	"github.com/fastprodman/topup/internal/repos/deposits"
)

const creditTimeout = 5 * time.Second

// Engine owns deposit status changes and the balance credit that follows an approval.
type Engine struct {
	accounts accounts.Accounts
	deposits deposits.Deposits
}

func New(acc accounts.Accounts, deps deposits.Deposits) *Engine {
	return &Engine{
		accounts: acc,
		deposits: deps,
	}
}

// Submit records a Pending deposit for an existing account. Balances are untouched.
func (e *Engine) Submit(ctx context.Context, accountID string, amountMinor int64, contactRef string) (deposits.Deposit, error) {
	_, err := e.accounts.FindAccount(ctx, accountID)
	if err != nil {
		return deposits.Deposit{}, fmt.Errorf("find account: %w", err)
	}

	d, err := e.deposits.Create(ctx, deposits.NewDeposit{
		AccountID:   accountID,
		AmountMinor: amountMinor,
		ContactRef:  contactRef,
	})
	if err != nil {
		return deposits.Deposit{}, fmt.Errorf("create deposit: %w", err)
	}

	logging.FromContext(ctx).Info("deposit submitted",
		slog.String("deposit_id", d.ID),
		slog.String("owner_account_id", d.AccountID),
		slog.Int64("amount_minor", d.AmountMinor),
	)

	return d, nil
}

// Settle applies an operator decision to a Pending deposit:
//
// 1) Conditionally move Pending -> Completed/Rejected. Only one caller can win.
// 2) On approval, credit the account once with the deposit amount.
//
// A deposit that is already terminal yields ErrAlreadySettled together with its
// current record. A failed credit after a committed transition yields a
// *PartialFailureError.
func (e *Engine) Settle(ctx context.Context, depositID string, decision Decision) (deposits.Deposit, error) {
	var target deposits.Status

	switch decision {
	case DecisionApprove:
		target = deposits.StatusCompleted
	case DecisionReject:
		target = deposits.StatusRejected
	default:
		return deposits.Deposit{}, fmt.Errorf("settle: %w: unknown decision %q", apperrors.ErrValidation, decision)
	}

	current, err := e.deposits.Get(ctx, depositID)
	if err != nil {
		return deposits.Deposit{}, fmt.Errorf("get deposit: %w", err)
	}

	if current.Status.Terminal() {
		return current, fmt.Errorf("settle %s: %w", depositID, apperrors.ErrAlreadySettled)
	}

	settled, err := e.deposits.TransitionStatus(ctx, depositID, deposits.StatusPending, target)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// lost the race; report whatever the winner wrote
			latest, getErr := e.deposits.Get(ctx, depositID)
			if getErr != nil {
				latest = current
			}
			return latest, fmt.Errorf("settle %s: %w", depositID, apperrors.ErrAlreadySettled)
		}
		return deposits.Deposit{}, fmt.Errorf("transition status: %w", err)
	}

	log := logging.FromContext(ctx).With(
		slog.String("deposit_id", settled.ID),
		slog.String("owner_account_id", settled.AccountID),
		slog.Int64("amount_minor", settled.AmountMinor),
	)

	if target == deposits.StatusRejected {
		log.Info("deposit rejected")
		return settled, nil
	}

	creditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), creditTimeout)
	defer cancel()

	balance, err := e.accounts.IncrementBalance(creditCtx, settled.AccountID, settled.AmountMinor)
	if err != nil {
		log.Error("deposit completed but credit failed",
			slog.Bool("reconcile", true),
			slog.Any("error", err),
		)
		return settled, &PartialFailureError{
			DepositID:   settled.ID,
			AccountID:   settled.AccountID,
			AmountMinor: settled.AmountMinor,
			Cause:       err,
		}
	}

	log.Info("deposit completed", slog.Int64("balance_minor", balance))

	return settled, nil
}

// Balance returns the account's current balance in minor units.
func (e *Engine) Balance(ctx context.Context, accountID string) (int64, error) {
	acc, err := e.accounts.FindAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	return acc.BalanceMinor, nil
}

// History lists an account's deposits, newest first.
func (e *Engine) History(ctx context.Context, accountID string, limit, offset int) ([]deposits.Deposit, error) {
	_, err := e.accounts.FindAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}

	list, err := e.deposits.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}

	return list, nil
}
