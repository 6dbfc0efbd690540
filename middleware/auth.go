// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CallerLocalsKey is where CallerContextMiddleware stores the caller identity.
const CallerLocalsKey = "caller"

// CallerContextMiddleware extracts the authenticated caller identity set by the Gateway.
// Mutating routes act on behalf of this identity, so it is mandatory.
func CallerContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := strings.TrimSpace(c.Get("X-User-ID"))
		if caller == "" {
			log.Printf("❌ [CALLER] X-User-ID required but missing on %s %s", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID, request must come through gateway with auth context",
				"code":  "unauthenticated",
			})
		}

		c.Locals(CallerLocalsKey, caller)
		log.Printf("👤 [CALLER] %s | %s %s", caller, c.Method(), c.Path())
		return c.Next()
	}
}

// Caller returns the identity stored by CallerContextMiddleware, or "" outside it.
func Caller(c *fiber.Ctx) string {
	caller, _ := c.Locals(CallerLocalsKey).(string)
	return caller
}
