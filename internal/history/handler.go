package history

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/core-bank/core_bank/internal/ledger"
)

// Handler exposes the transaction history endpoint.
type Handler struct {
	service *Service
}

// NewHandler builds a history handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type recordResponse struct {
	ID          string    `json:"id"`
	FromAccount string    `json:"from_account,omitempty"`
	ToAccount   string    `json:"to_account,omitempty"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Direction   string    `json:"direction"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// List returns a page of the account's history. Records are stored
// direction-neutral; the debit/credit label is derived here by comparing the
// record's source against the queried account.
func (h *Handler) List(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	accountID := c.Params("accountId")
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("pageSize", DefaultPageSize)

	records, err := h.service.ForAccount(c.UserContext(), ownerID, accountID, page, pageSize)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		direction := "credit"
		if rec.FromAccountID == accountID {
			direction = "debit"
		}
		out = append(out, recordResponse{
			ID:          rec.ID,
			FromAccount: rec.FromAccountID,
			ToAccount:   rec.ToAccountID,
			Amount:      rec.Amount,
			Type:        string(rec.Type),
			Status:      string(rec.Status),
			Direction:   direction,
			Description: rec.Description,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id":   accountID,
		"page":         page,
		"page_size":    pageSize,
		"transactions": out,
	})
}
