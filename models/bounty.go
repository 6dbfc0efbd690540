package models

import "time"

// BountyState is persisted as a small integer: 0 = Open, 1 = Closed.
type BountyState uint8

const (
	BountyStateOpen BountyState = iota
	BountyStateClosed
)

func (s BountyState) String() string {
	switch s {
	case BountyStateOpen:
		return "Open"
	case BountyStateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Bounty is a funded task posted by a creator. Ids are sequential from 0 and never reused.
type Bounty struct {
	ID             uint64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Creator        string      `gorm:"type:varchar(128);not null;index" json:"creator"`
	Amount         int64       `gorm:"not null" json:"amount"`
	Description    string      `gorm:"type:text;not null" json:"description"`
	Slug           string      `gorm:"type:varchar(100);index" json:"slug"`
	NumSubmissions uint64      `gorm:"not null;default:0" json:"num_submissions"`
	State          BountyState `gorm:"not null;default:0" json:"state"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
	ClosedAt       *time.Time  `json:"closed_at,omitempty"`
}

func (b *Bounty) IsOpen() bool {
	return b.State == BountyStateOpen
}
