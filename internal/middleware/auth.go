package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"taskdeck/pkg/auth"
)

// JWTMiddleware validates the bearer token and stores the signed-in identity
// in request locals. The webhook endpoints use their own shared-secret check
// and skip this.
func JWTMiddleware(jwtAuth *auth.JWTAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ExtractToken(c.Get("Authorization"))
		if err != nil {
			// WebSocket upgrades can't set headers; allow ?token= there
			token = c.Query("token")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		user, err := jwtAuth.ValidateToken(token)
		if err != nil {
			log.Printf("❌ [AUTH] Token rejected: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", user.ID)
		c.Locals("user_email", user.Email)

		return c.Next()
	}
}
