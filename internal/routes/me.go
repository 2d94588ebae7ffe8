package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/core-bank/core_bank/internal/account"
	"github.com/core-bank/core_bank/internal/identity"
)

// RegisterMeRoute exposes the current user's profile together with their
// accounts, the shape the dashboard renders.
func RegisterMeRoute(r fiber.Router, accounts *account.Service, idRepo identity.Repository) {
	r.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		user, err := idRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		owned, err := accounts.ListForOwner(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		acctList := make([]fiber.Map, 0, len(owned))
		for _, acct := range owned {
			acctList = append(acctList, fiber.Map{
				"id":             acct.ID,
				"account_number": acct.Number,
				"account_type":   string(acct.Type),
				"balance":        acct.Balance,
				"created_at":     acct.CreatedAt,
			})
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"user": fiber.Map{
				"id":         user.ID,
				"username":   user.Username,
				"email":      user.Email,
				"created_at": user.CreatedAt,
				"last_login": user.LastLogin,
			},
			"accounts": acctList,
		})
	})
}
