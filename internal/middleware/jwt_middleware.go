package middleware

import (
	"log"
	"strings"

	"microblog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// TokenCookie is the cookie the client may carry the JWT in when no
// Authorization header is present.
const TokenCookie = "token"

// AuthRequired is a Fiber middleware that resolves the caller's identity
// from a JWT. The Authorization header is preferred; the token cookie is
// the fallback. On success user_id and username are stored in the request
// locals; on any failure the request is rejected before the handler runs.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""

		authHeader := c.Get("Authorization")
		if authHeader != "" {
			// Expected format: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if !(len(parts) == 2 && parts[0] == "Bearer") {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": "Authorization header format must be 'Bearer <token>'",
				})
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Cookies(TokenCookie)
		}

		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication token is required",
			})
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		userID, ok := claims["user_id"].(string)
		username, uok := claims["username"].(string)
		if !ok || !uok || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid token payload",
			})
		}

		// Store the resolved identity for subsequent handlers.
		c.Locals("user_id", userID)
		c.Locals("username", username)

		return c.Next()
	}
}
