// handlers/errors.go
package handlers

import (
	"errors"
	"log"
	"strconv"

	"bounty-escrow-system/services"

	"github.com/gofiber/fiber/v2"
)

var errBadParam = errors.New("bad request parameter")

// statusFor maps a ledger error kind to its HTTP status.
func statusFor(kind string) int {
	switch kind {
	case "not_found", "out_of_range":
		return fiber.StatusNotFound
	case "invalid_amount":
		return fiber.StatusBadRequest
	case "unauthorized":
		return fiber.StatusForbidden
	case "self_submission":
		return fiber.StatusUnprocessableEntity
	case "invalid_state", "bounty_closed", "already_paid":
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errBadParam) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "bad_request",
		})
	}

	kind := services.ErrorKind(err)
	status := statusFor(kind)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [LEDGER] %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{
			"error": "internal error",
			"code":  kind,
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  kind,
	})
}

func uintParam(c *fiber.Ctx, name string) (uint64, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, errors.Join(errBadParam, errors.New(name+" must be a non-negative integer"))
	}
	return v, nil
}
