package models

import "time"

// SubmissionState: 0 = Submitted, 1 = Accepted, 2 = Rejected. Accepted and Rejected are terminal.
type SubmissionState uint8

const (
	SubmissionStateSubmitted SubmissionState = iota
	SubmissionStateAccepted
	SubmissionStateRejected
)

func (s SubmissionState) String() string {
	switch s {
	case SubmissionStateSubmitted:
		return "Submitted"
	case SubmissionStateAccepted:
		return "Accepted"
	case SubmissionStateRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Submission is a candidate solution filed against an open bounty.
// Ids are global across all bounties, sequential from 0.
type Submission struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	BountyID    uint64          `gorm:"not null;index" json:"bounty_id"`
	Submitter   string          `gorm:"type:varchar(128);not null;index" json:"submitter"`
	Description string          `gorm:"type:text;not null" json:"description"`
	State       SubmissionState `gorm:"not null;default:0" json:"state"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
}
