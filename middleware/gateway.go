// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// bearerToken accepts "Bearer <token>" as well as a raw token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// GatewayAuthMiddleware admits only requests carrying the ledger service token. The ledger
// moves escrowed funds, so every route, reads included, sits behind it.
func GatewayAuthMiddleware(serviceToken string) fiber.Handler {
	if serviceToken == "" {
		log.Fatal("❌ LEDGER_SERVICE_TOKEN is not set, ledger cannot authenticate Gateway")
	}
	expected := []byte(serviceToken)

	reject := func(c *fiber.Ctx, reason string) error {
		log.Printf("🚫 [GATEWAY_AUTH] %s %s from %s rejected: %s (caller=%q)",
			c.Method(), c.Path(), c.IP(), reason, c.Get("X-User-ID"))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": reason,
			"code":  "unauthenticated",
		})
	}

	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get("Authorization"))
		if token == "" {
			return reject(c, "gateway authentication token missing")
		}
		if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			return reject(c, "invalid gateway authentication token")
		}
		return c.Next()
	}
}
