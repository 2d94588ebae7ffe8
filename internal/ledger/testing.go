package ledger

// SeedBalance is a test helper that sets an account balance directly when
// using the in-memory store, bypassing the version-guarded write path.
func SeedBalance(s Store, accountID string, amount int64) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		acct := mem.accounts[accountID]
		acct.Balance = amount
		mem.accounts[accountID] = acct
	}
}

// FailNextStatusUpdate makes the in-memory store's next UpdateTransactionStatus
// call return ErrStoreUnavailable. Used to exercise the stuck-pending path.
func FailNextStatusUpdate(s Store) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.failStatus = true
	}
}
