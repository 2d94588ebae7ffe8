package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/core-bank/core_bank/internal/ledger"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	AccountType    string `json:"account_type"`
	InitialBalance int64  `json:"initial_balance"`
}

type accountResponse struct {
	ID            string    `json:"id"`
	AccountNumber string    `json:"account_number"`
	AccountType   string    `json:"account_type"`
	Balance       int64     `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
}

func toResponse(acct ledger.Account) accountResponse {
	return accountResponse{
		ID:            acct.ID,
		AccountNumber: acct.Number,
		AccountType:   string(acct.Type),
		Balance:       acct.Balance,
		CreatedAt:     acct.CreatedAt,
	}
}

// Create opens an account for the authenticated owner.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ownerID, _ := c.Locals("user_id").(string)

	acct, err := h.service.Create(c.UserContext(), CreateInput{
		OwnerID:        ownerID,
		Type:           ledger.AccountType(req.AccountType),
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(acct))
}

// List returns the caller's accounts in creation order.
func (h *Handler) List(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	accounts, err := h.service.ListForOwner(c.UserContext(), ownerID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, acct := range accounts {
		out = append(out, toResponse(acct))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Balance returns the authoritative balance for one of the caller's accounts.
func (h *Handler) Balance(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	accountID := c.Params("accountId")

	balance, err := h.service.Balance(c.UserContext(), ownerID, accountID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": accountID,
		"balance":    balance,
		"as_of":      time.Now().UTC(),
	})
}
