package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryStore struct {
	mu         sync.RWMutex
	accounts   map[string]Account
	acctOrder  []string
	numbers    map[string]struct{}
	records    []TransactionRecord
	recordIdx  map[string]int
	refIdx     map[string]string
	seq        int64
	failStatus bool
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit
// tests and local development without Postgres.
func NewInMemory() Store {
	return &inMemoryStore{
		accounts:  make(map[string]Account),
		numbers:   make(map[string]struct{}),
		recordIdx: make(map[string]int),
		refIdx:    make(map[string]string),
	}
}

func (s *inMemoryStore) CreateAccount(_ context.Context, acct Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acct.ID]; exists {
		return fmt.Errorf("account %s already exists", acct.ID)
	}
	s.accounts[acct.ID] = acct
	s.acctOrder = append(s.acctOrder, acct.ID)
	s.numbers[acct.Number] = struct{}{}
	return nil
}

func (s *inMemoryStore) GetAccount(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acct, nil
}

func (s *inMemoryStore) AccountsForOwner(_ context.Context, ownerID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Account
	for _, id := range s.acctOrder {
		if acct := s.accounts[id]; acct.OwnerID == ownerID {
			out = append(out, acct)
		}
	}
	return out, nil
}

func (s *inMemoryStore) NumberExists(_ context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.numbers[number]
	return ok, nil
}

func (s *inMemoryStore) PutAccountIfVersionMatches(_ context.Context, acct Account, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[acct.ID]
	if !ok {
		return ErrAccountNotFound
	}
	if stored.Version != expected {
		return ErrVersionConflict
	}
	stored.Balance = acct.Balance
	stored.Version = expected + 1
	s.accounts[acct.ID] = stored
	return nil
}

func (s *inMemoryStore) CommitTransfer(_ context.Context, from, to Account, expectedFrom, expectedTo int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	storedFrom, ok := s.accounts[from.ID]
	if !ok {
		return ErrAccountNotFound
	}
	storedTo, ok := s.accounts[to.ID]
	if !ok {
		return ErrAccountNotFound
	}
	if storedFrom.Version != expectedFrom || storedTo.Version != expectedTo {
		return ErrVersionConflict
	}

	storedFrom.Balance = from.Balance
	storedFrom.Version = expectedFrom + 1
	storedTo.Balance = to.Balance
	storedTo.Version = expectedTo + 1
	s.accounts[from.ID] = storedFrom
	s.accounts[to.ID] = storedTo
	return nil
}

func (s *inMemoryStore) AppendTransaction(_ context.Context, rec TransactionRecord) (TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rec.ID = uuid.NewString()
	rec.Seq = s.seq
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.recordIdx[rec.ID] = len(s.records)
	if rec.ClientRef != "" {
		s.refIdx[rec.ClientRef] = rec.ID
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *inMemoryStore) UpdateTransactionStatus(_ context.Context, id string, status TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failStatus {
		s.failStatus = false
		return fmt.Errorf("%w: injected failure", ErrStoreUnavailable)
	}
	idx, ok := s.recordIdx[id]
	if !ok {
		return ErrTransactionNotFound
	}
	rec := s.records[idx]
	if rec.Status != StatusPending && rec.Status != status {
		return fmt.Errorf("transaction %s already terminal (%s)", id, rec.Status)
	}
	rec.Status = status
	s.records[idx] = rec
	return nil
}

func (s *inMemoryStore) GetTransaction(_ context.Context, id string) (TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.recordIdx[id]
	if !ok {
		return TransactionRecord{}, ErrTransactionNotFound
	}
	return s.records[idx], nil
}

func (s *inMemoryStore) FindTransactionByClientRef(_ context.Context, ref string) (TransactionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.refIdx[ref]
	if !ok {
		return TransactionRecord{}, false, nil
	}
	return s.records[s.recordIdx[id]], true, nil
}

func (s *inMemoryStore) TransactionsForAccount(_ context.Context, accountID string, page, pageSize int) ([]TransactionRecord, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	skip := (page - 1) * pageSize
	out := make([]TransactionRecord, 0, pageSize)
	for i := len(s.records) - 1; i >= 0 && len(out) < pageSize; i-- {
		rec := s.records[i]
		if rec.FromAccountID != accountID && rec.ToAccountID != accountID {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
