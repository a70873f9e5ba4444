package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/GerGh0stface/GhostyPlaytime/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AdminTokenHeader carries the admin token on admin routes
const AdminTokenHeader = "X-Admin-Token"

// AdminRequired rejects requests whose X-Admin-Token does not match token.
// An empty token leaves admin routes open.
func AdminRequired(token string) fiber.Handler {
	if token == "" {
		log.Println("⚠️  ADMIN_TOKEN not set, admin routes are open")
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	expected := []byte(token)
	return func(c *fiber.Ctx) error {
		got := []byte(c.Get(AdminTokenHeader))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			log.Printf("⚠️  Admin access denied for %s %s from %s", c.Method(), c.Path(), c.IP())
			return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{
				Error:   "Forbidden",
				Message: "Admin access required",
			})
		}
		return c.Next()
	}
}
