package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/core-bank/core_bank/internal/ledger"
	"github.com/core-bank/core_bank/internal/notification"
)

const defaultRetryLimit = 5

var (
	// ErrNotOwner indicates the caller does not own the source account.
	ErrNotOwner = errors.New("not owner of source account")

	// ErrDuplicateRef indicates the client reference was already used; the
	// previously produced record is returned alongside.
	ErrDuplicateRef = errors.New("duplicate client reference")
)

// Service executes funds movements as single atomic operations over the
// ledger store. Contended commits use optimistic versioning: a conflicting
// write is re-read and recomputed from scratch up to retryLimit times, then
// surfaced as ErrTransferConflict.
type Service struct {
	store      ledger.Store
	notifier   notification.Notifier
	retryLimit int
}

// NewService constructs a transfer engine. retryLimit bounds version-conflict
// retries per operation; values below 1 fall back to the default.
func NewService(store ledger.Store, notifier notification.Notifier, retryLimit int) *Service {
	if retryLimit < 1 {
		retryLimit = defaultRetryLimit
	}
	return &Service{store: store, notifier: notifier, retryLimit: retryLimit}
}

// TransferInput captures the data needed to move funds between accounts.
// RequestorID, when set, must own the source account. ClientRef is an
// optional caller-supplied idempotency anchor: resubmitting with the same
// reference returns the original record instead of moving funds again.
type TransferInput struct {
	RequestorID   string
	FromAccountID string
	ToAccountID   string
	Amount        int64
	Description   string
	ClientRef     string
}

// Transfer validates and executes a two-account transfer.
//
// Precondition failures (same account, bad amount, unknown accounts) are
// rejected before any record is written. After the pending record is
// appended, every outcome is terminal: the record ends completed with both
// balances updated, or failed with both accounts exactly as they were.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (ledger.TransactionRecord, error) {
	if input.FromAccountID == input.ToAccountID {
		return ledger.TransactionRecord{}, ledger.ErrSameAccount
	}
	if input.Amount <= 0 {
		return ledger.TransactionRecord{}, ledger.ErrInvalidAmount
	}

	if input.ClientRef != "" {
		if prior, ok, err := s.store.FindTransactionByClientRef(ctx, input.ClientRef); err != nil {
			return ledger.TransactionRecord{}, err
		} else if ok {
			return prior, ErrDuplicateRef
		}
	}

	from, err := s.store.GetAccount(ctx, input.FromAccountID)
	if err != nil {
		return ledger.TransactionRecord{}, err
	}
	if input.RequestorID != "" && from.OwnerID != input.RequestorID {
		return ledger.TransactionRecord{}, ErrNotOwner
	}
	to, err := s.store.GetAccount(ctx, input.ToAccountID)
	if err != nil {
		return ledger.TransactionRecord{}, err
	}

	rec, err := s.store.AppendTransaction(ctx, ledger.TransactionRecord{
		ClientRef:     input.ClientRef,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        input.Amount,
		Type:          ledger.TxTransfer,
		Status:        ledger.StatusPending,
		Description:   input.Description,
	})
	if err != nil {
		return ledger.TransactionRecord{}, err
	}

	if err := s.commitTransfer(ctx, from.ID, to.ID, input.Amount); err != nil {
		return s.finish(ctx, rec, ledger.StatusFailed, err)
	}

	rec, err = s.finish(ctx, rec, ledger.StatusCompleted, nil)
	if err != nil {
		return rec, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferCompleted,
			Destination: to.OwnerID,
			Amount:      input.Amount,
			Body:        fmt.Sprintf("You received %d from account %s", input.Amount, from.Number),
		})
	}
	return rec, nil
}

// commitTransfer runs the optimistic read-recompute-commit loop. Each attempt
// re-reads both accounts, re-checks the balance precondition, and asks the
// store to apply both version-guarded writes as one unit.
func (s *Service) commitTransfer(ctx context.Context, fromID, toID string, amount int64) error {
	for attempt := 0; attempt < s.retryLimit; attempt++ {
		from, err := s.store.GetAccount(ctx, fromID)
		if err != nil {
			return err
		}
		to, err := s.store.GetAccount(ctx, toID)
		if err != nil {
			return err
		}
		if from.Balance < amount {
			return ledger.ErrInsufficientFunds
		}

		expFrom, expTo := from.Version, to.Version
		from.Balance -= amount
		to.Balance += amount

		err = s.store.CommitTransfer(ctx, from, to, expFrom, expTo)
		if err == nil {
			return nil
		}
		if errors.Is(err, ledger.ErrVersionConflict) {
			continue
		}
		return err
	}
	return ledger.ErrTransferConflict
}

// DepositInput captures a cash-in to a single account.
type DepositInput struct {
	RequestorID string
	AccountID   string
	Amount      int64
	Description string
	ClientRef   string
}

// Deposit credits an account. Recorded as a one-sided transaction with the
// from slot empty.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (ledger.TransactionRecord, error) {
	return s.singleSided(ctx, singleSidedOp{
		requestorID: input.RequestorID,
		accountID:   input.AccountID,
		amount:      input.Amount,
		description: input.Description,
		clientRef:   input.ClientRef,
		txType:      ledger.TxDeposit,
	})
}

// WithdrawInput captures a cash-out from a single account.
type WithdrawInput struct {
	RequestorID string
	AccountID   string
	Amount      int64
	Description string
	ClientRef   string
}

// Withdraw debits an account, refusing to take the balance below zero.
// Recorded as a one-sided transaction with the to slot empty.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (ledger.TransactionRecord, error) {
	return s.singleSided(ctx, singleSidedOp{
		requestorID: input.RequestorID,
		accountID:   input.AccountID,
		amount:      input.Amount,
		description: input.Description,
		clientRef:   input.ClientRef,
		txType:      ledger.TxWithdrawal,
	})
}

type singleSidedOp struct {
	requestorID string
	accountID   string
	amount      int64
	description string
	clientRef   string
	txType      ledger.TransactionType
}

func (s *Service) singleSided(ctx context.Context, op singleSidedOp) (ledger.TransactionRecord, error) {
	if op.amount <= 0 {
		return ledger.TransactionRecord{}, ledger.ErrInvalidAmount
	}

	if op.clientRef != "" {
		if prior, ok, err := s.store.FindTransactionByClientRef(ctx, op.clientRef); err != nil {
			return ledger.TransactionRecord{}, err
		} else if ok {
			return prior, ErrDuplicateRef
		}
	}

	acct, err := s.store.GetAccount(ctx, op.accountID)
	if err != nil {
		return ledger.TransactionRecord{}, err
	}
	if op.requestorID != "" && acct.OwnerID != op.requestorID {
		return ledger.TransactionRecord{}, ErrNotOwner
	}

	pending := ledger.TransactionRecord{
		ClientRef:   op.clientRef,
		Amount:      op.amount,
		Type:        op.txType,
		Status:      ledger.StatusPending,
		Description: op.description,
	}
	if op.txType == ledger.TxWithdrawal {
		pending.FromAccountID = acct.ID
	} else {
		pending.ToAccountID = acct.ID
	}
	rec, err := s.store.AppendTransaction(ctx, pending)
	if err != nil {
		return ledger.TransactionRecord{}, err
	}

	if err := s.commitSingle(ctx, acct.ID, op.amount, op.txType); err != nil {
		return s.finish(ctx, rec, ledger.StatusFailed, err)
	}
	rec, err = s.finish(ctx, rec, ledger.StatusCompleted, nil)
	if err != nil {
		return rec, err
	}

	if s.notifier != nil && op.txType == ledger.TxDeposit {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindDepositReceived,
			Destination: acct.OwnerID,
			Amount:      op.amount,
			Body:        fmt.Sprintf("Deposit of %d credited to account %s", op.amount, acct.Number),
		})
	}
	return rec, nil
}

func (s *Service) commitSingle(ctx context.Context, accountID string, amount int64, txType ledger.TransactionType) error {
	for attempt := 0; attempt < s.retryLimit; attempt++ {
		acct, err := s.store.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		expected := acct.Version
		if txType == ledger.TxWithdrawal {
			if acct.Balance < amount {
				return ledger.ErrInsufficientFunds
			}
			acct.Balance -= amount
		} else {
			acct.Balance += amount
		}

		err = s.store.PutAccountIfVersionMatches(ctx, acct, expected)
		if err == nil {
			return nil
		}
		if errors.Is(err, ledger.ErrVersionConflict) {
			continue
		}
		return err
	}
	return ledger.ErrTransferConflict
}

// finish writes the terminal status and returns the record reflecting it.
// If the status write itself fails the record stays pending in the store;
// the caller sees ErrStoreUnavailable and may resubmit with the same client
// reference without funds moving twice.
func (s *Service) finish(ctx context.Context, rec ledger.TransactionRecord, status ledger.TransactionStatus, cause error) (ledger.TransactionRecord, error) {
	if err := s.store.UpdateTransactionStatus(ctx, rec.ID, status); err != nil {
		if cause != nil {
			return rec, cause
		}
		return rec, err
	}
	rec.Status = status
	return rec, cause
}
