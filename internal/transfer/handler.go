package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/core-bank/core_bank/internal/ledger"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ClientRef   string `json:"client_ref"`
}

type transferResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message"`
}

// Move processes an account-to-account transfer. Error kinds map to distinct
// statuses so clients can tell retry-safe failures (conflict) from final ones
// (insufficient funds).
func (h *Handler) Move(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	rec, err := h.service.Transfer(c.UserContext(), TransferInput{
		RequestorID:   uid,
		FromAccountID: req.FromAccount,
		ToAccountID:   req.ToAccount,
		Amount:        req.Amount,
		Description:   req.Description,
		ClientRef:     req.ClientRef,
	})
	if err != nil {
		return respondError(c, rec, err)
	}

	return c.Status(http.StatusOK).JSON(transferResponse{
		Status:        string(rec.Status),
		TransactionID: rec.ID,
		Message:       "transfer completed",
	})
}

// respondError maps engine errors onto the HTTP surface. Shared with the
// cashier endpoints.
func respondError(c *fiber.Ctx, rec ledger.TransactionRecord, err error) error {
	if rec.Status == "" {
		// Rejected before a record was appended.
		rec.Status = ledger.StatusFailed
	}
	switch {
	case errors.Is(err, ErrDuplicateRef):
		// Replay of a previous submission: report its recorded outcome.
		if rec.Status == ledger.StatusCompleted {
			return c.Status(http.StatusOK).JSON(transferResponse{
				Status:        string(rec.Status),
				TransactionID: rec.ID,
				Message:       "duplicate client_ref, original result returned",
			})
		}
		return c.Status(http.StatusConflict).JSON(transferResponse{
			Status:        string(rec.Status),
			TransactionID: rec.ID,
			Message:       "duplicate client_ref",
		})
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrSameAccount),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrTransferConflict),
		errors.Is(err, ledger.ErrVersionConflict):
		return c.Status(http.StatusConflict).JSON(transferResponse{
			Status:        string(rec.Status),
			TransactionID: rec.ID,
			Message:       err.Error(),
		})
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return c.Status(http.StatusServiceUnavailable).JSON(transferResponse{
			Status:        string(rec.Status),
			TransactionID: rec.ID,
			Message:       "store unavailable, safe to retry with the same client_ref",
		})
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
