package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/core-bank/core_bank/internal/ledger"
)

const (
	numberLength      = 10
	numberGenAttempts = 5
)

// ErrNumberExhausted indicates account number generation kept colliding.
var ErrNumberExhausted = errors.New("could not allocate unique account number")

// Service manages account lifecycle and balance reads on top of the ledger
// store. Balance mutation is the transfer engine's job; this service never
// writes balances after creation.
type Service struct {
	store ledger.Store
}

// NewService builds an account service instance.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// CreateInput captures data required to open an account.
type CreateInput struct {
	OwnerID        string
	Type           ledger.AccountType
	InitialBalance int64
}

// Create opens an account with a fresh collision-checked account number and
// version 0.
func (s *Service) Create(ctx context.Context, input CreateInput) (ledger.Account, error) {
	if input.OwnerID == "" {
		return ledger.Account{}, errors.New("owner id is required")
	}
	if input.Type == "" {
		input.Type = ledger.TypeCurrent
	}
	if !ledger.ValidAccountType(input.Type) {
		return ledger.Account{}, fmt.Errorf("unknown account type %q", input.Type)
	}
	if input.InitialBalance < 0 {
		return ledger.Account{}, ledger.ErrInvalidAmount
	}

	number, err := s.allocateNumber(ctx)
	if err != nil {
		return ledger.Account{}, err
	}

	acct := ledger.Account{
		ID:        uuid.NewString(),
		OwnerID:   input.OwnerID,
		Number:    number,
		Type:      input.Type,
		Balance:   input.InitialBalance,
		Version:   0,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return ledger.Account{}, err
	}
	return acct, nil
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, id string) (ledger.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// ListForOwner returns the owner's accounts in creation order.
func (s *Service) ListForOwner(ctx context.Context, ownerID string) ([]ledger.Account, error) {
	return s.store.AccountsForOwner(ctx, ownerID)
}

// Balance returns the current balance for an account in the caller's scope.
// Accounts outside the scope are reported as not found rather than leaked.
func (s *Service) Balance(ctx context.Context, ownerID, accountID string) (int64, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if acct.OwnerID != ownerID {
		return 0, ledger.ErrAccountNotFound
	}
	return acct.Balance, nil
}

func (s *Service) allocateNumber(ctx context.Context) (string, error) {
	for i := 0; i < numberGenAttempts; i++ {
		number, err := randomNumber()
		if err != nil {
			return "", err
		}
		taken, err := s.store.NumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", ErrNumberExhausted
}

// randomNumber produces a numeric account number with a non-zero leading digit.
func randomNumber() (string, error) {
	buf := make([]byte, numberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	digits := make([]byte, numberLength)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	if digits[0] == '0' {
		digits[0] = '1' + buf[0]%9
	}
	return string(digits), nil
}
