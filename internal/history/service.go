package history

import (
	"context"

	"github.com/core-bank/core_bank/internal/ledger"
)

// DefaultPageSize caps unbounded history reads.
const DefaultPageSize = 20

// Service provides read-only projections of an account's transaction
// history. History is append-only, so reads take no locks against writers.
type Service struct {
	store ledger.Store
}

// NewService builds a history service.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// ForAccount returns one page of the account's records, newest first.
// Accounts outside the caller's scope are reported as not found.
func (s *Service) ForAccount(ctx context.Context, ownerID, accountID string, page, pageSize int) ([]ledger.TransactionRecord, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && acct.OwnerID != ownerID {
		return nil, ledger.ErrAccountNotFound
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}
	return s.store.TransactionsForAccount(ctx, accountID, page, pageSize)
}
