package models

// LedgerCounterID is the id of the single counters row.
const LedgerCounterID = 1

// LedgerCounter holds the global record counts. The next bounty id is NumBounties,
// the next submission id is NumSubmissions.
type LedgerCounter struct {
	ID             uint   `gorm:"primaryKey"`
	NumBounties    uint64 `gorm:"not null;default:0"`
	NumSubmissions uint64 `gorm:"not null;default:0"`
}
