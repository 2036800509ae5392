package deposits

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/infra/mongotestutil"
	"github.com/fastprodman/topup/internal/repos/deposits"
	"github.com/google/uuid"
)

func TestDeposits_Mongo_Lifecycle(t *testing.T) {
	t.Parallel()

	repo := New(mongotestutil.NewTestDB(t))
	ctx := t.Context()

	_, err := repo.Create(ctx, deposits.NewDeposit{AccountID: "alice", AmountMinor: 0, ContactRef: "01012345678"})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("zero amount: want ErrValidation, got %v", err)
	}

	d, err := repo.Create(ctx, deposits.NewDeposit{AccountID: "alice", AmountMinor: 100, ContactRef: "01012345678"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != deposits.StatusPending || !got.CreatedAt.Equal(d.CreatedAt) {
		t.Fatalf("unexpected deposit: %+v", got)
	}

	_, err = repo.Get(ctx, uuid.NewString())
	if !errors.Is(err, deposits.ErrDepositNotFound) {
		t.Fatalf("unknown id: want ErrDepositNotFound, got %v", err)
	}

	done, err := repo.TransitionStatus(ctx, d.ID, deposits.StatusPending, deposits.StatusRejected)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if done.Status != deposits.StatusRejected || done.SettledAt == nil {
		t.Fatalf("unexpected transition result: %+v", done)
	}

	_, err = repo.TransitionStatus(ctx, d.ID, deposits.StatusPending, deposits.StatusCompleted)
	if !errors.Is(err, deposits.ErrStatusConflict) {
		t.Fatalf("approve after reject: want ErrStatusConflict, got %v", err)
	}

	_, err = repo.TransitionStatus(ctx, uuid.NewString(), deposits.StatusPending, deposits.StatusCompleted)
	if !errors.Is(err, deposits.ErrDepositNotFound) {
		t.Fatalf("unknown transition: want ErrDepositNotFound, got %v", err)
	}

	list, err := repo.ListByAccount(ctx, "alice", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != d.ID {
		t.Fatalf("unexpected listing: %+v", list)
	}
}

func TestDeposits_Mongo_ConcurrentTransitionSingleWinner(t *testing.T) {
	t.Parallel()

	repo := New(mongotestutil.NewTestDB(t))
	ctx := t.Context()

	d, err := repo.Create(ctx, deposits.NewDeposit{AccountID: "alice", AmountMinor: 100, ContactRef: "01012345678"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg        sync.WaitGroup
		success   atomic.Int32
		conflicts atomic.Int32
	)

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.TransitionStatus(ctx, d.ID, deposits.StatusPending, deposits.StatusCompleted)
			switch {
			case err == nil:
				success.Add(1)
			case errors.Is(err, deposits.ErrStatusConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if success.Load() != 1 || conflicts.Load() != 9 {
		t.Fatalf("want 1 winner and 9 conflicts, got %d/%d", success.Load(), conflicts.Load())
	}
}
