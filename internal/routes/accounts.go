package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/core-bank/core_bank/internal/account"
	"github.com/core-bank/core_bank/internal/cashier"
)

// RegisterAccountRoutes wires account lifecycle, balance and cash movement
// endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler, ch *cashier.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts", h.List)
	r.Get("/accounts/:accountId/balance", h.Balance)
	r.Post("/accounts/:accountId/deposit", ch.Deposit)
	r.Post("/accounts/:accountId/withdraw", ch.Withdraw)
}
