package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/core-bank/core_bank/internal/transfer"
)

// RegisterTransferRoutes wires the money movement endpoint.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/transfer", h.Move)
}
