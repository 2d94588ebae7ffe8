package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/core-bank/core_bank/internal/ledger"
	"github.com/core-bank/core_bank/internal/notification"
)

type testNotifier struct {
	mu   sync.Mutex
	last notification.Message
	sent int
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = msg
	n.sent++
	return nil
}

func mkAccount(t *testing.T, store ledger.Store, id, owner string, balance int64) {
	t.Helper()
	err := store.CreateAccount(context.Background(), ledger.Account{
		ID:        id,
		OwnerID:   owner,
		Number:    "90000000" + id,
		Type:      ledger.TypeCurrent,
		Balance:   balance,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create account %s: %v", id, err)
	}
}

func balanceOf(t *testing.T, store ledger.Store, id string) int64 {
	t.Helper()
	acct, err := store.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return acct.Balance
}

func TestTransferSuccess(t *testing.T) {
	store := ledger.NewInMemory()
	notifier := &testNotifier{}
	svc := NewService(store, notifier, 0)
	ctx := context.Background()

	mkAccount(t, store, "a", "alice", 1_000)
	mkAccount(t, store, "b", "bob", 500)

	rec, err := svc.Transfer(ctx, TransferInput{
		RequestorID:   "alice",
		FromAccountID: "a",
		ToAccountID:   "b",
		Amount:        300,
		Description:   "rent",
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if rec.Status != ledger.StatusCompleted {
		t.Fatalf("expected completed record, got %s", rec.Status)
	}
	if rec.Amount != 300 || rec.Type != ledger.TxTransfer {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if got := balanceOf(t, store, "a"); got != 700 {
		t.Fatalf("expected a=700, got %d", got)
	}
	if got := balanceOf(t, store, "b"); got != 800 {
		t.Fatalf("expected b=800, got %d", got)
	}

	stored, err := store.GetTransaction(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if stored.Status != ledger.StatusCompleted {
		t.Fatalf("stored record not completed: %s", stored.Status)
	}
	if notifier.sent != 1 || notifier.last.Kind != notification.KindTransferCompleted {
		t.Fatalf("expected one completion notification, got %+v", notifier.last)
	}
	if notifier.last.Destination != "bob" {
		t.Fatalf("notification should target recipient, got %s", notifier.last.Destination)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	mkAccount(t, store, "a", "alice", 700)
	mkAccount(t, store, "b", "bob", 500)

	rec, err := svc.Transfer(ctx, TransferInput{
		FromAccountID: "a", ToAccountID: "b", Amount: 5_000,
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if rec.Status != ledger.StatusFailed {
		t.Fatalf("expected failed record, got %s", rec.Status)
	}
	if balanceOf(t, store, "a") != 700 || balanceOf(t, store, "b") != 500 {
		t.Fatal("balances changed on failed transfer")
	}
}

func TestTransferSameAccount(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	mkAccount(t, store, "a", "alice", 700)

	if _, err := svc.Transfer(ctx, TransferInput{
		FromAccountID: "a", ToAccountID: "a", Amount: 100,
	}); !errors.Is(err, ledger.ErrSameAccount) {
		t.Fatalf("expected same account error, got %v", err)
	}

	if balanceOf(t, store, "a") != 700 {
		t.Fatal("balance changed on rejected transfer")
	}
	// Rejected before the atomic phase: nothing was appended.
	recs, _ := store.TransactionsForAccount(ctx, "a", 1, 10)
	if len(recs) != 0 {
		t.Fatalf("expected empty history, got %d records", len(recs))
	}
}

func TestTransferInvalidAmount(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	mkAccount(t, store, "a", "alice", 700)
	mkAccount(t, store, "b", "bob", 0)

	for _, amount := range []int64{0, -50} {
		if _, err := svc.Transfer(ctx, TransferInput{
			FromAccountID: "a", ToAccountID: "b", Amount: amount,
		}); !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected invalid amount, got %v", amount, err)
		}
	}
}

func TestTransferUnknownAccounts(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	mkAccount(t, store, "a", "alice", 700)

	if _, err := svc.Transfer(ctx, TransferInput{
		FromAccountID: "ghost", ToAccountID: "a", Amount: 100,
	}); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected account not found for source, got %v", err)
	}
	if _, err := svc.Transfer(ctx, TransferInput{
		FromAccountID: "a", ToAccountID: "ghost", Amount: 100,
	}); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected account not found for destination, got %v", err)
	}
	if balanceOf(t, store, "a") != 700 {
		t.Fatal("balance changed on rejected transfer")
	}
}

func TestTransferNotOwner(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	mkAccount(t, store, "a", "alice", 700)
	mkAccount(t, store, "b", "bob", 0)

	if _, err := svc.Transfer(ctx, TransferInput{
		RequestorID: "mallory", FromAccountID: "a", ToAccountID: "b", Amount: 100,
	}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not-owner error, got %v", err)
	}
}

func TestConcurrentTransfersDrainSourceExactly(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, 50)
	ctx := context.Background()

	const workers = 8
	const amount = int64(250)
	mkAccount(t, store, "x", "alice", 0)
	mkAccount(t, store, "y", "bob", 0)
	ledger.SeedBalance(store, "x", workers*amount)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Transfer(ctx, TransferInput{
				FromAccountID: "x", ToAccountID: "y", Amount: amount,
				Description: fmt.Sprintf("leg-%d", i),
			}); err != nil {
				t.Errorf("transfer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := balanceOf(t, store, "x"); got != 0 {
		t.Fatalf("expected x drained to 0, got %d", got)
	}
	if got := balanceOf(t, store, "y"); got != workers*amount {
		t.Fatalf("expected y=%d, got %d", workers*amount, got)
	}
}

func TestConcurrentOverdraftOnlyOneSucceeds(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, 50)
	ctx := context.Background()

	mkAccount(t, store, "a", "alice", 700)
	mkAccount(t, store, "b", "bob", 500)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transfer(ctx, TransferInput{
				FromAccountID: "a", ToAccountID: "b", Amount: 400,
			})
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ledger.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one success and one insufficient-funds, got ok=%d insufficient=%d", ok, insufficient)
	}
	if balanceOf(t, store, "a") != 300 || balanceOf(t, store, "b") != 1_200 {
		t.Fatalf("unexpected balances: a=%d b=%d", balanceOf(t, store, "a"), balanceOf(t, store, "b"))
	}
}

// conflictStore forces every two-account commit to report a version conflict.
type conflictStore struct {
	ledger.Store
}

func (s conflictStore) CommitTransfer(context.Context, ledger.Account, ledger.Account, int64, int64) error {
	return ledger.ErrVersionConflict
}

func TestTransferRetryExhaustionSurfacesConflict(t *testing.T) {
	base := ledger.NewInMemory()
	svc := NewService(conflictStore{base}, nil, 3)
	ctx := context.Background()

	mkAccount(t, base, "a", "alice", 1_000)
	mkAccount(t, base, "b", "bob", 0)

	rec, err := svc.Transfer(ctx, TransferInput{
		FromAccountID: "a", ToAccountID: "b", Amount: 100,
	})
	if !errors.Is(err, ledger.ErrTransferConflict) {
		t.Fatalf("expected transfer conflict, got %v", err)
	}
	if rec.Status != ledger.StatusFailed {
		t.Fatalf("expected failed record, got %s", rec.Status)
	}
	if balanceOf(t, base, "a") != 1_000 || balanceOf(t, base, "b") != 0 {
		t.Fatal("balances changed despite exhausted retries")
	}
}

func TestTransferClientRefIdempotent(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	mkAccount(t, store, "a", "alice", 1_000)
	mkAccount(t, store, "b", "bob", 0)

	first, err := svc.Transfer(ctx, TransferInput{
		FromAccountID: "a", ToAccountID: "b", Amount: 300, ClientRef: "ref-1",
	})
	if err != nil {
		t.Fatalf("first transfer: %v", err)
	}

	replay, err := svc.Transfer(ctx, TransferInput{
		FromAccountID: "a", ToAccountID: "b", Amount: 300, ClientRef: "ref-1",
	})
	if !errors.Is(err, ErrDuplicateRef) {
		t.Fatalf("expected duplicate ref, got %v", err)
	}
	if replay.ID != first.ID {
		t.Fatalf("expected original record %s, got %s", first.ID, replay.ID)
	}
	if balanceOf(t, store, "a") != 700 || balanceOf(t, store, "b") != 300 {
		t.Fatal("funds moved twice for the same client reference")
	}
}

func TestTransferStuckPendingResubmitDoesNotDoubleSpend(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, nil, 0)
	ctx := context.Background()

	mkAccount(t, store, "a", "alice", 1_000)
	mkAccount(t, store, "b", "bob", 0)

	// The commit lands but the status write fails: the record stays pending
	// and the caller sees a store failure.
	ledger.FailNextStatusUpdate(store)
	rec, err := svc.Transfer(ctx, TransferInput{
		FromAccountID: "a", ToAccountID: "b", Amount: 300, ClientRef: "ref-2",
	})
	if !errors.Is(err, ledger.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if balanceOf(t, store, "a") != 700 {
		t.Fatal("commit should have landed before the status failure")
	}
	stored, _ := store.GetTransaction(ctx, rec.ID)
	if stored.Status != ledger.StatusPending {
		t.Fatalf("expected stuck pending record, got %s", stored.Status)
	}

	// Resubmitting with the same anchor must not move funds again.
	replay, err := svc.Transfer(ctx, TransferInput{
		FromAccountID: "a", ToAccountID: "b", Amount: 300, ClientRef: "ref-2",
	})
	if !errors.Is(err, ErrDuplicateRef) {
		t.Fatalf("expected duplicate ref on resubmit, got %v", err)
	}
	if replay.ID != rec.ID {
		t.Fatalf("expected the original record back, got %s", replay.ID)
	}
	if balanceOf(t, store, "a") != 700 || balanceOf(t, store, "b") != 300 {
		t.Fatal("funds moved twice after resubmission")
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	store := ledger.NewInMemory()
	notifier := &testNotifier{}
	svc := NewService(store, notifier, 0)
	ctx := context.Background()

	mkAccount(t, store, "a", "alice", 100)

	dep, err := svc.Deposit(ctx, DepositInput{RequestorID: "alice", AccountID: "a", Amount: 500})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if dep.Type != ledger.TxDeposit || dep.FromAccountID != "" || dep.ToAccountID != "a" {
		t.Fatalf("unexpected deposit record: %+v", dep)
	}
	if notifier.sent != 1 || notifier.last.Kind != notification.KindDepositReceived {
		t.Fatalf("expected deposit notification, got %+v", notifier.last)
	}
	if balanceOf(t, store, "a") != 600 {
		t.Fatalf("expected 600 after deposit, got %d", balanceOf(t, store, "a"))
	}

	wd, err := svc.Withdraw(ctx, WithdrawInput{RequestorID: "alice", AccountID: "a", Amount: 200})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if wd.Type != ledger.TxWithdrawal || wd.FromAccountID != "a" || wd.ToAccountID != "" {
		t.Fatalf("unexpected withdrawal record: %+v", wd)
	}
	if balanceOf(t, store, "a") != 400 {
		t.Fatalf("expected 400 after withdrawal, got %d", balanceOf(t, store, "a"))
	}

	if _, err := svc.Withdraw(ctx, WithdrawInput{RequestorID: "alice", AccountID: "a", Amount: 10_000}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if balanceOf(t, store, "a") != 400 {
		t.Fatal("balance changed on failed withdrawal")
	}

	if _, err := svc.Withdraw(ctx, WithdrawInput{RequestorID: "mallory", AccountID: "a", Amount: 1}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not-owner error, got %v", err)
	}
}
