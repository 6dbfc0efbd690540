// handlers/event_routes.go
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"bounty-escrow-system/models"
	"bounty-escrow-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const streamKeepAlive = 15 * time.Second

// SetupEventRoutes exposes the event log, the live event stream, the escrow audit and metrics.
func SetupEventRoutes(app *fiber.App, ledger *services.Ledger, gatherer prometheus.Gatherer) {
	app.Get("/events", func(c *fiber.Ctx) error {
		since := sinceParam(c)
		limit := c.QueryInt("limit", 100)
		if limit <= 0 || limit > 1000 {
			limit = 100
		}
		events, err := ledger.Events(c.UserContext(), since, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"events": events})
	})

	app.Get("/events/stream", func(c *fiber.Ctx) error {
		since := sinceParam(c)

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		// Subscribe before the backfill so nothing committed in between is missed.
		live, cancel := ledger.Subscribe(256)
		done := c.Context().Done()

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()
			streamEvents(w, ledger, since, live, done)
		})
		return nil
	})

	app.Get("/escrow/audit", func(c *fiber.Ctx) error {
		report, err := ledger.AuditEscrow(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// streamEvents replays the log after since, then forwards live events until the client
// goes away. Live events already covered by the replay are skipped by Seq.
func streamEvents(w *bufio.Writer, ledger *services.Ledger, since uint64, live <-chan models.LedgerEvent, done <-chan struct{}) {
	last := since
	for {
		backlog, err := ledger.Events(context.Background(), last, 500)
		if err != nil {
			log.Printf("SSE backfill error after seq %d: %v", last, err)
			return
		}
		for _, ev := range backlog {
			if err := writeEvent(w, ev); err != nil {
				return
			}
			last = ev.Seq
		}
		if len(backlog) < 500 {
			break
		}
	}

	// Initial keepalive (comment event)
	w.WriteString(":\n\n")
	if err := w.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-live:
			if !ok {
				return
			}
			if ev.Seq <= last {
				continue
			}
			if ev.Seq > last+1 {
				// Dropped while the buffer was full; fill the gap from the log.
				gap, err := ledger.Events(context.Background(), last, int(ev.Seq-last-1))
				if err != nil {
					log.Printf("SSE gap fill error after seq %d: %v", last, err)
					return
				}
				for _, g := range gap {
					if err := writeEvent(w, g); err != nil {
						return
					}
				}
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
			last = ev.Seq
			if err := w.Flush(); err != nil {
				// Client disconnected
				return
			}

		case <-ticker.C:
			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

func sinceParam(c *fiber.Ctx) uint64 {
	since := c.QueryInt("since", 0)
	if since < 0 {
		return 0
	}
	return uint64(since)
}

// writeEvent writes one event as an SSE frame; the Seq doubles as the Last-Event-ID.
func writeEvent(w io.Writer, ev models.LedgerEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Kind, payload)
	return err
}
