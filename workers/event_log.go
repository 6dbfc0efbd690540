// workers/event_log.go
package workers

import (
	"context"

	"bounty-escrow-system/models"
)

// EventLog is the part of the ledger the event consumers read from.
type EventLog interface {
	Events(ctx context.Context, since uint64, limit int) ([]models.LedgerEvent, error)
	Checkpoint(ctx context.Context, name string) (uint64, error)
	SaveCheckpoint(ctx context.Context, name string, seq uint64) error
}
