package models

import "time"

// Participant is any identity that has created a bounty or received a payout.
// NumBounties doubles as the next free position in the user bounty index.
type Participant struct {
	Identity    string    `gorm:"primaryKey;type:varchar(128)" json:"identity"`
	NumBounties uint64    `gorm:"not null;default:0" json:"num_bounties"`
	Balance     int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
