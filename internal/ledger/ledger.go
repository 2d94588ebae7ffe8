package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidAmount occurs when an operation is requested with a zero or
	// negative amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSameAccount occurs when a transfer names the same account on both sides.
	ErrSameAccount = errors.New("same account on both sides of transfer")

	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds occurs when the source account lacks available
	// balance to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrVersionConflict indicates a conditional write found the stored account
	// version no longer matches the value read before recomputing. Callers
	// re-read and retry.
	ErrVersionConflict = errors.New("account version conflict")

	// ErrTransferConflict surfaces when the bounded retry loop for version
	// conflicts is exhausted. Safe for the client to retry.
	ErrTransferConflict = errors.New("transfer conflict, retry")

	// ErrTransactionNotFound indicates the referenced transaction record does
	// not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrStoreUnavailable wraps backend I/O failures. The engine does not retry
	// these; the client may.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// AccountType enumerates the supported account products.
type AccountType string

const (
	// TypeCurrent is a checking account.
	TypeCurrent AccountType = "current"
	// TypeSavings is a savings account.
	TypeSavings AccountType = "savings"
)

// ValidAccountType reports whether t names a known account product.
func ValidAccountType(t AccountType) bool {
	return t == TypeCurrent || t == TypeSavings
}

// Account is the balance-bearing entity. Balance is held in integer minor
// units and mutates only through version-guarded store writes; Version is the
// optimistic-concurrency token, advanced on every balance mutation.
type Account struct {
	ID        string
	OwnerID   string
	Number    string
	Type      AccountType
	Balance   int64
	Version   int64
	CreatedAt time.Time
}

// TransactionType enumerates funds-movement kinds.
type TransactionType string

const (
	TxTransfer   TransactionType = "transfer"
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
)

// TransactionStatus enumerates record lifecycle states. A record is created
// pending and transitions exactly once to completed or failed.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// TransactionRecord is one immutable funds movement. FromAccountID is empty
// for deposits, ToAccountID for withdrawals. The record is direction-neutral:
// debit/credit presentation is derived by the reader comparing FromAccountID
// against the account being viewed.
type TransactionRecord struct {
	ID            string
	Seq           int64
	ClientRef     string
	FromAccountID string
	ToAccountID   string
	Amount        int64
	Type          TransactionType
	Status        TransactionStatus
	Description   string
	CreatedAt     time.Time
}

// Store defines the contract implemented by ledger backends (in-memory,
// Postgres). Every method is individually atomic against the backing store:
// no call may partially apply.
type Store interface {
	// CreateAccount persists a new account snapshot.
	CreateAccount(ctx context.Context, acct Account) error
	// GetAccount fetches an account by id, ErrAccountNotFound if absent.
	GetAccount(ctx context.Context, id string) (Account, error)
	// AccountsForOwner lists an owner's accounts in creation order.
	AccountsForOwner(ctx context.Context, ownerID string) ([]Account, error)
	// NumberExists reports whether an account number is already taken.
	NumberExists(ctx context.Context, number string) (bool, error)

	// PutAccountIfVersionMatches writes acct.Balance and advances the version
	// to expected+1, but only if the stored version still equals expected.
	// ErrVersionConflict otherwise.
	PutAccountIfVersionMatches(ctx context.Context, acct Account, expected int64) error
	// CommitTransfer applies both sides of a transfer as one consistency
	// boundary: each write is guarded by the version read beforehand, rows are
	// acquired in ascending account-id order regardless of direction, and
	// either both balances land or neither does.
	CommitTransfer(ctx context.Context, from, to Account, expectedFrom, expectedTo int64) error

	// AppendTransaction persists a record and returns it with its assigned
	// monotonic sequence.
	AppendTransaction(ctx context.Context, rec TransactionRecord) (TransactionRecord, error)
	// UpdateTransactionStatus moves a pending record to its terminal status.
	UpdateTransactionStatus(ctx context.Context, id string, status TransactionStatus) error
	// GetTransaction fetches a record by id.
	GetTransaction(ctx context.Context, id string) (TransactionRecord, error)
	// FindTransactionByClientRef resolves a caller-supplied idempotency
	// anchor to the record it already produced, if any.
	FindTransactionByClientRef(ctx context.Context, ref string) (TransactionRecord, bool, error)

	// TransactionsForAccount returns one page of the account's history, newest
	// first, covering records where the account is either side. Pages are
	// 1-based.
	TransactionsForAccount(ctx context.Context, accountID string, page, pageSize int) ([]TransactionRecord, error)
}
