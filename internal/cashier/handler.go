package cashier

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/core-bank/core_bank/internal/ledger"
	"github.com/core-bank/core_bank/internal/transfer"
)

// Handler exposes cash-in/cash-out endpoints over the transfer engine.
type Handler struct {
	engine *transfer.Service
}

// NewHandler builds a cashier handler.
func NewHandler(engine *transfer.Service) *Handler {
	return &Handler{engine: engine}
}

type movementRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ClientRef   string `json:"client_ref"`
}

type movementResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message"`
}

// Deposit credits the caller's account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	rec, err := h.engine.Deposit(c.UserContext(), transfer.DepositInput{
		RequestorID: uid,
		AccountID:   c.Params("accountId"),
		Amount:      req.Amount,
		Description: req.Description,
		ClientRef:   req.ClientRef,
	})
	if err != nil {
		return respondError(c, rec, err)
	}
	return c.Status(http.StatusOK).JSON(movementResponse{
		Status:        string(rec.Status),
		TransactionID: rec.ID,
		Message:       "deposit completed",
	})
}

// Withdraw debits the caller's account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	rec, err := h.engine.Withdraw(c.UserContext(), transfer.WithdrawInput{
		RequestorID: uid,
		AccountID:   c.Params("accountId"),
		Amount:      req.Amount,
		Description: req.Description,
		ClientRef:   req.ClientRef,
	})
	if err != nil {
		return respondError(c, rec, err)
	}
	return c.Status(http.StatusOK).JSON(movementResponse{
		Status:        string(rec.Status),
		TransactionID: rec.ID,
		Message:       "withdrawal completed",
	})
}

func respondError(c *fiber.Ctx, rec ledger.TransactionRecord, err error) error {
	status := string(rec.Status)
	if status == "" {
		status = string(ledger.StatusFailed)
	}
	switch {
	case errors.Is(err, transfer.ErrDuplicateRef):
		code := http.StatusConflict
		if rec.Status == ledger.StatusCompleted {
			code = http.StatusOK
		}
		return c.Status(code).JSON(movementResponse{
			Status:        status,
			TransactionID: rec.ID,
			Message:       "duplicate client_ref",
		})
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, transfer.ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrTransferConflict):
		return c.Status(http.StatusConflict).JSON(movementResponse{
			Status:        status,
			TransactionID: rec.ID,
			Message:       err.Error(),
		})
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return c.Status(http.StatusServiceUnavailable).JSON(movementResponse{
			Status:        status,
			TransactionID: rec.ID,
			Message:       "store unavailable, safe to retry with the same client_ref",
		})
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
