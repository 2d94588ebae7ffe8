package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newAccount(id, owner string, balance int64) Account {
	return Account{
		ID:        id,
		OwnerID:   owner,
		Number:    "10000000" + id,
		Type:      TypeCurrent,
		Balance:   balance,
		CreatedAt: time.Now().UTC(),
	}
}

func TestInMemoryStore_PutAccountIfVersionMatches(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if err := s.CreateAccount(ctx, newAccount("a", "owner-1", 1_000)); err != nil {
		t.Fatalf("create account: %v", err)
	}

	acct, err := s.GetAccount(ctx, "a")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}

	acct.Balance = 700
	if err := s.PutAccountIfVersionMatches(ctx, acct, acct.Version); err != nil {
		t.Fatalf("guarded put failed: %v", err)
	}

	updated, _ := s.GetAccount(ctx, "a")
	if updated.Balance != 700 || updated.Version != acct.Version+1 {
		t.Fatalf("unexpected state after put: balance=%d version=%d", updated.Balance, updated.Version)
	}

	// stale token must be rejected
	acct.Balance = 100
	if err := s.PutAccountIfVersionMatches(ctx, acct, acct.Version); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	if err := s.PutAccountIfVersionMatches(ctx, newAccount("ghost", "owner-1", 0), 0); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestInMemoryStore_CommitTransferMaintainsBalance(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateAccount(ctx, newAccount("a", "owner-1", 10_000))
	s.CreateAccount(ctx, newAccount("b", "owner-2", 0))

	from, _ := s.GetAccount(ctx, "a")
	to, _ := s.GetAccount(ctx, "b")
	expF, expT := from.Version, to.Version
	from.Balance -= 1_500
	to.Balance += 1_500

	if err := s.CommitTransfer(ctx, from, to, expF, expT); err != nil {
		t.Fatalf("commit transfer: %v", err)
	}

	a, _ := s.GetAccount(ctx, "a")
	b, _ := s.GetAccount(ctx, "b")
	if a.Balance != 8_500 || b.Balance != 1_500 {
		t.Fatalf("unexpected balances: a=%d b=%d", a.Balance, b.Balance)
	}
	if a.Balance+b.Balance != 10_000 {
		t.Fatalf("ledger not balanced, total=%d", a.Balance+b.Balance)
	}
	if a.Version != expF+1 || b.Version != expT+1 {
		t.Fatalf("versions not advanced: a=%d b=%d", a.Version, b.Version)
	}
}

func TestInMemoryStore_CommitTransferVersionConflict(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateAccount(ctx, newAccount("a", "owner-1", 5_000))
	s.CreateAccount(ctx, newAccount("b", "owner-2", 0))

	from, _ := s.GetAccount(ctx, "a")
	to, _ := s.GetAccount(ctx, "b")

	// Another writer advances the source account first.
	bump := from
	bump.Balance = 4_000
	if err := s.PutAccountIfVersionMatches(ctx, bump, from.Version); err != nil {
		t.Fatalf("bump: %v", err)
	}

	from.Balance -= 1_000
	to.Balance += 1_000
	if err := s.CommitTransfer(ctx, from, to, from.Version, to.Version); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	// Neither side may have moved.
	a, _ := s.GetAccount(ctx, "a")
	b, _ := s.GetAccount(ctx, "b")
	if a.Balance != 4_000 || b.Balance != 0 {
		t.Fatalf("conflict leaked a partial write: a=%d b=%d", a.Balance, b.Balance)
	}
}

func TestInMemoryStore_ConcurrentGuardedTransfers(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateAccount(ctx, newAccount("a", "owner-1", 100_000))
	s.CreateAccount(ctx, newAccount("b", "owner-2", 0))

	const workers = 10
	const amount = int64(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				from, err := s.GetAccount(ctx, "a")
				if err != nil {
					t.Errorf("read a: %v", err)
					return
				}
				to, err := s.GetAccount(ctx, "b")
				if err != nil {
					t.Errorf("read b: %v", err)
					return
				}
				expF, expT := from.Version, to.Version
				from.Balance -= amount
				to.Balance += amount
				err = s.CommitTransfer(ctx, from, to, expF, expT)
				if errors.Is(err, ErrVersionConflict) {
					continue
				}
				if err != nil {
					t.Errorf("commit %d: %v", i, err)
				}
				return
			}
		}(i)
	}
	wg.Wait()

	a, _ := s.GetAccount(ctx, "a")
	b, _ := s.GetAccount(ctx, "b")
	if a.Balance+b.Balance != 100_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", a.Balance+b.Balance)
	}
	if b.Balance != workers*amount {
		t.Fatalf("expected b=%d, got %d", workers*amount, b.Balance)
	}
}

func TestInMemoryStore_AppendAssignsMonotonicSequence(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	var lastSeq int64
	for i := 0; i < 5; i++ {
		rec, err := s.AppendTransaction(ctx, TransactionRecord{
			FromAccountID: "a",
			ToAccountID:   "b",
			Amount:        100,
			Type:          TxTransfer,
			Status:        StatusPending,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if rec.ID == "" {
			t.Fatalf("append %d: no id assigned", i)
		}
		if rec.Seq <= lastSeq {
			t.Fatalf("sequence not monotonic: %d after %d", rec.Seq, lastSeq)
		}
		lastSeq = rec.Seq
	}
}

func TestInMemoryStore_StatusTransitionsAreTerminal(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec, err := s.AppendTransaction(ctx, TransactionRecord{
		FromAccountID: "a", ToAccountID: "b", Amount: 100,
		Type: TxTransfer, Status: StatusPending,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.UpdateTransactionStatus(ctx, rec.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.UpdateTransactionStatus(ctx, rec.ID, StatusFailed); err == nil {
		t.Fatal("expected terminal status to be immutable")
	}
	if err := s.UpdateTransactionStatus(ctx, "missing", StatusFailed); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected transaction not found, got %v", err)
	}

	got, _ := s.GetTransaction(ctx, rec.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status mutated after terminal: %s", got.Status)
	}
}

func TestInMemoryStore_HistoryNewestFirstAndPaged(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		from, to := "a", "b"
		if i%2 == 1 {
			from, to = "b", "a"
		}
		if _, err := s.AppendTransaction(ctx, TransactionRecord{
			FromAccountID: from,
			ToAccountID:   to,
			Amount:        int64(100 + i),
			Type:          TxTransfer,
			Status:        StatusCompleted,
			Description:   fmt.Sprintf("tx-%d", i),
		}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	// Unrelated account must not appear in a's history.
	s.AppendTransaction(ctx, TransactionRecord{
		FromAccountID: "c", ToAccountID: "d", Amount: 1,
		Type: TxTransfer, Status: StatusCompleted,
	})

	page1, err := s.TransactionsForAccount(ctx, "a", 1, 5)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1) != 5 {
		t.Fatalf("expected 5 records, got %d", len(page1))
	}
	if page1[0].Description != "tx-6" {
		t.Fatalf("expected newest record first, got %s", page1[0].Description)
	}
	for i := 1; i < len(page1); i++ {
		if page1[i].Seq >= page1[i-1].Seq {
			t.Fatalf("page not ordered newest first at index %d", i)
		}
	}

	page2, err := s.TransactionsForAccount(ctx, "a", 2, 5)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("expected 2 records on page 2, got %d", len(page2))
	}
	if page2[len(page2)-1].Description != "tx-0" {
		t.Fatalf("expected oldest record last, got %s", page2[len(page2)-1].Description)
	}
}

func TestInMemoryStore_ClientRefLookup(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec, err := s.AppendTransaction(ctx, TransactionRecord{
		ClientRef:     "client-1",
		FromAccountID: "a",
		ToAccountID:   "b",
		Amount:        250,
		Type:          TxTransfer,
		Status:        StatusPending,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	found, ok, err := s.FindTransactionByClientRef(ctx, "client-1")
	if err != nil || !ok {
		t.Fatalf("lookup failed: ok=%v err=%v", ok, err)
	}
	if found.ID != rec.ID {
		t.Fatalf("expected record %s, got %s", rec.ID, found.ID)
	}

	if _, ok, _ := s.FindTransactionByClientRef(ctx, "unknown"); ok {
		t.Fatal("unexpected hit for unknown ref")
	}
}
