// handlers/bounty_routes.go
package handlers

import (
	"context"
	"strings"

	"bounty-escrow-system/middleware"
	"bounty-escrow-system/services"

	"github.com/gofiber/fiber/v2"
)

type createBountyRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type createSubmissionRequest struct {
	Description string `json:"description"`
}

// SetupBountyRoutes exposes the ledger's query and mutating surfaces.
// Static segments are registered before parameterized ones.
func SetupBountyRoutes(app *fiber.App, ledger *services.Ledger, limiter *middleware.CallerLimiter) {
	callerCtx := middleware.CallerContextMiddleware()
	rateLimit := middleware.RateLimitMiddleware(limiter)

	// --- Bounties ---

	app.Get("/bounties", func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		bounties, err := ledger.ListBounties(c.UserContext(), offset, limit)
		if err != nil {
			return respondError(c, err)
		}
		total, err := ledger.CountBounties(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"bounties": bounties,
			"total":    total,
			"offset":   offset,
			"limit":    limit,
		})
	})

	app.Get("/bounties/count", func(c *fiber.Ctx) error {
		n, err := ledger.CountBounties(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"count": n})
	})

	app.Get("/bounties/:id", func(c *fiber.Ctx) error {
		id, err := uintParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		b, err := ledger.GetBounty(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(b)
	})

	app.Get("/bounties/:id/escrow", func(c *fiber.Ctx) error {
		id, err := uintParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		hold, err := ledger.GetEscrow(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(hold)
	})

	app.Get("/bounties/:id/submissions", func(c *fiber.Ctx) error {
		id, err := uintParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		// Unknown bounties surface as not_found from the listing itself.
		subs, err := ledger.ListBountySubmissions(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"submissions": subs})
	})

	app.Get("/bounties/:id/submissions/count", func(c *fiber.Ctx) error {
		id, err := uintParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		n, err := ledger.BountySubmissionCount(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"count": n})
	})

	app.Get("/bounties/:id/submissions/:index", func(c *fiber.Ctx) error {
		id, err := uintParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		index, err := uintParam(c, "index")
		if err != nil {
			return respondError(c, err)
		}
		submissionID, err := ledger.BountySubmissionIDAt(c.UserContext(), id, index)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"submission_id": submissionID})
	})

	// 🔐 Mutations act on behalf of the gateway-authenticated caller.
	app.Post("/bounties", callerCtx, rateLimit, func(c *fiber.Ctx) error {
		var req createBountyRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
				"code":  "bad_request",
			})
		}
		receipt, err := ledger.CreateBounty(c.UserContext(), middleware.Caller(c), req.Amount, strings.TrimSpace(req.Description))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(receipt)
	})

	app.Post("/bounties/:id/submissions", callerCtx, rateLimit, func(c *fiber.Ctx) error {
		id, err := uintParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		var req createSubmissionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
				"code":  "bad_request",
			})
		}
		receipt, err := ledger.CreateSubmission(c.UserContext(), id, middleware.Caller(c), strings.TrimSpace(req.Description))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(receipt)
	})

	app.Post("/bounties/:id/submissions/:submission_id/accept", callerCtx, rateLimit, func(c *fiber.Ctx) error {
		return adjudicate(c, ledger.AcceptSubmission)
	})

	app.Post("/bounties/:id/submissions/:submission_id/reject", callerCtx, rateLimit, func(c *fiber.Ctx) error {
		return adjudicate(c, ledger.RejectSubmission)
	})

	// --- Submissions ---

	app.Get("/submissions/count", func(c *fiber.Ctx) error {
		n, err := ledger.CountSubmissions(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"count": n})
	})

	app.Get("/submissions/:id", func(c *fiber.Ctx) error {
		id, err := uintParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		s, err := ledger.GetSubmission(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(s)
	})

	app.Post("/submissions/:id/withdraw", callerCtx, rateLimit, func(c *fiber.Ctx) error {
		id, err := uintParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		receipt, err := ledger.WithdrawBountyAmount(c.UserContext(), id, middleware.Caller(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(receipt)
	})

	// --- Users & accounts ---

	app.Get("/users/:owner/bounties", func(c *fiber.Ctx) error {
		bounties, err := ledger.ListUserBounties(c.UserContext(), c.Params("owner"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"bounties": bounties})
	})

	app.Get("/users/:owner/bounties/count", func(c *fiber.Ctx) error {
		n, err := ledger.UserBountyCount(c.UserContext(), c.Params("owner"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"count": n})
	})

	app.Get("/users/:owner/bounties/:index", func(c *fiber.Ctx) error {
		index, err := uintParam(c, "index")
		if err != nil {
			return respondError(c, err)
		}
		bountyID, err := ledger.UserBountyIDAt(c.UserContext(), c.Params("owner"), index)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"bounty_id": bountyID})
	})

	app.Get("/accounts/:identity", func(c *fiber.Ctx) error {
		account, err := ledger.GetAccount(c.UserContext(), c.Params("identity"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(account)
	})
}

type adjudicateFunc func(ctx context.Context, bountyID, submissionID uint64, caller string) (*services.Receipt, error)

func adjudicate(c *fiber.Ctx, fn adjudicateFunc) error {
	bountyID, err := uintParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	submissionID, err := uintParam(c, "submission_id")
	if err != nil {
		return respondError(c, err)
	}
	receipt, err := fn(c.UserContext(), bountyID, submissionID, middleware.Caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(receipt)
}
