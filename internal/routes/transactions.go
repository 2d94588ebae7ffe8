package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/core-bank/core_bank/internal/history"
)

// RegisterTransactionRoutes wires the transaction history endpoint.
func RegisterTransactionRoutes(r fiber.Router, h *history.Handler) {
	r.Get("/transactions/:accountId", h.List)
}
