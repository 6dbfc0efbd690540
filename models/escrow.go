package models

import "time"

// EscrowHold is the deposit held for one bounty. Paid flips to true exactly once.
type EscrowHold struct {
	BountyID  uint64     `gorm:"primaryKey;autoIncrement:false" json:"bounty_id"`
	Amount    int64      `gorm:"not null" json:"amount"`
	Paid      bool       `gorm:"not null;default:false;index" json:"paid"`
	PaidTo    string     `gorm:"type:varchar(128)" json:"paid_to,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
