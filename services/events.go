package services

import (
	"errors"
	"log"
	"sync"

	"bounty-escrow-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Receipt is what a committed mutation returns: the ids it touched and the events it emitted, in order.
type Receipt struct {
	BountyID     uint64               `json:"bounty_id"`
	SubmissionID *uint64              `json:"submission_id,omitempty"`
	Amount       int64                `json:"amount,omitempty"`
	Events       []models.LedgerEvent `json:"events"`
}

func u64(v uint64) *uint64 {
	return &v
}

// appendEvent writes one event row in the current transaction.
func (s *LedgerStore) appendEvent(ev *models.LedgerEvent) error {
	ev.EventID = uuid.NewString()
	return s.DB.Create(ev).Error
}

// EventsSince returns up to limit events with Seq > since, in commit order.
func (s *LedgerStore) EventsSince(since uint64, limit int) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	err := s.DB.Where("seq > ?", since).Order("seq ASC").Limit(limit).Find(&events).Error
	return events, err
}

// Checkpoint returns how far the named consumer has read; 0 when it never ran.
func (s *LedgerStore) Checkpoint(name string) (uint64, error) {
	var cp models.EventCheckpoint
	if err := s.DB.Where("name = ?", name).First(&cp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return cp.Seq, nil
}

func (s *LedgerStore) SaveCheckpoint(name string, seq uint64) error {
	cp := models.EventCheckpoint{Name: name, Seq: seq}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"seq", "updated_at"}),
	}).Create(&cp).Error
}

// eventHub fans committed events out to in-process subscribers.
type eventHub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan models.LedgerEvent
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[int]chan models.LedgerEvent)}
}

func (h *eventHub) subscribe(buffer int) (<-chan models.LedgerEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan models.LedgerEvent, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish never blocks; a full subscriber drops the event and has to re-read the log.
func (h *eventHub) publish(events []models.LedgerEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ev := range events {
		for id, ch := range h.subs {
			select {
			case ch <- ev:
			default:
				log.Printf("⚠️ [LEDGER] subscriber %d is full, dropped event seq=%d", id, ev.Seq)
			}
		}
	}
}
