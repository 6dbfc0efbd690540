package models

import "time"

type EventKind string

const (
	EventOpen      EventKind = "Open"
	EventClosed    EventKind = "Closed"
	EventSubmitted EventKind = "Submitted"
	EventAccepted  EventKind = "Accepted"
	EventRejected  EventKind = "Rejected"
	EventPaid      EventKind = "Paid"
)

// LedgerEvent is an immutable notification row, written in the same transaction as the
// mutation that produced it. Seq gives the total commit order.
type LedgerEvent struct {
	Seq          uint64    `gorm:"primaryKey;autoIncrement" json:"seq"`
	EventID      string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"event_id"`
	Kind         EventKind `gorm:"type:varchar(16);not null;index" json:"kind"`
	BountyID     *uint64   `gorm:"index" json:"bounty_id,omitempty"`
	SubmissionID *uint64   `json:"submission_id,omitempty"`
	Account      string    `gorm:"type:varchar(128)" json:"account,omitempty"`
	Amount       int64     `json:"amount,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// EventCheckpoint remembers how far a named consumer (webhook, archive) has read the event log.
type EventCheckpoint struct {
	Name      string    `gorm:"primaryKey;type:varchar(32)" json:"name"`
	Seq       uint64    `gorm:"not null;default:0" json:"seq"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
