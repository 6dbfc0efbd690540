// workers/event_webhook_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"bounty-escrow-system/models"
)

const webhookCheckpoint = "webhook"

// EventWebhookWorker pushes committed ledger events to an external receiver.
// Delivery is at-least-once: the checkpoint only moves after a 2xx response,
// so receivers deduplicate on event_id.
type EventWebhookWorker struct {
	events       EventLog
	interval     time.Duration
	url          string
	serviceToken string
	batchSize    int
	httpClient   *http.Client
}

func NewEventWebhookWorker(events EventLog, webhookURL, serviceToken string, interval time.Duration, httpClient *http.Client) *EventWebhookWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &EventWebhookWorker{
		events:       events,
		interval:     interval,
		url:          webhookURL,
		serviceToken: serviceToken,
		batchSize:    100,
		httpClient:   httpClient,
	}
}

func (w *EventWebhookWorker) Start(ctx context.Context) {
	log.Printf("🔁 Starting Event Webhook Worker (ledger_events → %s)…", w.url)
	go w.run(ctx)
}

func (w *EventWebhookWorker) run(ctx context.Context) {
	if _, err := w.Dispatch(ctx); err != nil {
		log.Printf("⚠️ [WEBHOOK] Initial dispatch failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Dispatch(ctx); err != nil {
				log.Printf("❌ [WEBHOOK] Dispatch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Event Webhook Worker stopped")
			return
		}
	}
}

// Dispatch delivers every event after the checkpoint, one batch per request, and
// returns how many were acknowledged.
func (w *EventWebhookWorker) Dispatch(ctx context.Context) (int, error) {
	delivered := 0
	for {
		since, err := w.events.Checkpoint(ctx, webhookCheckpoint)
		if err != nil {
			return delivered, fmt.Errorf("failed to read webhook checkpoint: %w", err)
		}
		batch, err := w.events.Events(ctx, since, w.batchSize)
		if err != nil {
			return delivered, fmt.Errorf("failed to read events after seq %d: %w", since, err)
		}
		if len(batch) == 0 {
			return delivered, nil
		}

		if err := w.post(ctx, batch); err != nil {
			return delivered, err
		}

		last := batch[len(batch)-1].Seq
		if err := w.events.SaveCheckpoint(ctx, webhookCheckpoint, last); err != nil {
			return delivered, fmt.Errorf("failed to advance webhook checkpoint to %d: %w", last, err)
		}
		delivered += len(batch)
		log.Printf("[WEBHOOK] ✅ Delivered %d event(s), seq %d..%d", len(batch), batch[0].Seq, last)

		if len(batch) < w.batchSize {
			return delivered, nil
		}
	}
}

func (w *EventWebhookWorker) post(ctx context.Context, batch []models.LedgerEvent) error {
	payload, err := json.Marshal(struct {
		Events []models.LedgerEvent `json:"events"`
	}{Events: batch})
	if err != nil {
		return fmt.Errorf("failed to encode event batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", w.url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request to %s failed: %w", w.url, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[WEBHOOK] ❌ Receiver returned %d for %s: %s", resp.StatusCode, w.url, string(body))
		return fmt.Errorf("webhook receiver returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
