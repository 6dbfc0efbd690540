package models

// UserBountyIndexEntry maps (creator, position) to the bounty created at that position.
// Positions start at 0 and are never reused or shifted.
type UserBountyIndexEntry struct {
	Owner    string `gorm:"primaryKey;type:varchar(128)" json:"owner"`
	Position uint64 `gorm:"primaryKey;autoIncrement:false" json:"position"`
	BountyID uint64 `gorm:"not null" json:"bounty_id"`
}

func (UserBountyIndexEntry) TableName() string {
	return "user_bounty_index"
}

// BountySubmissionIndexEntry maps (bounty, position) to the submission filed at that position.
type BountySubmissionIndexEntry struct {
	BountyID     uint64 `gorm:"primaryKey;autoIncrement:false" json:"bounty_id"`
	Position     uint64 `gorm:"primaryKey;autoIncrement:false" json:"position"`
	SubmissionID uint64 `gorm:"not null" json:"submission_id"`
}

func (BountySubmissionIndexEntry) TableName() string {
	return "bounty_submission_index"
}
