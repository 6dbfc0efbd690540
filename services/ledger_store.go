package services

import (
	"errors"
	"fmt"
	"time"

	"bounty-escrow-system/models"
	"bounty-escrow-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ledgerTables = []interface{}{
	&models.LedgerCounter{},
	&models.Bounty{},
	&models.Submission{},
	&models.UserBountyIndexEntry{},
	&models.BountySubmissionIndexEntry{},
	&models.EscrowHold{},
	&models.Participant{},
	&models.LedgerEvent{},
	&models.EventCheckpoint{},
}

// MigrateLedger creates the ledger tables and seeds the counters row. Safe to call on every start.
func MigrateLedger(db *gorm.DB) error {
	if err := db.AutoMigrate(ledgerTables...); err != nil {
		return fmt.Errorf("failed to migrate ledger tables: %w", err)
	}
	seed := models.LedgerCounter{ID: models.LedgerCounterID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return fmt.Errorf("failed to seed ledger counters: %w", err)
	}
	return nil
}

// LedgerStore is the persistent record of bounties, submissions and their reverse indexes.
// Mutating methods must run inside a transaction (see WithTx); the ledger serializes them.
type LedgerStore struct {
	DB *gorm.DB
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{DB: db}
}

// WithTx returns a store bound to tx.
func (s *LedgerStore) WithTx(tx *gorm.DB) *LedgerStore {
	return &LedgerStore{DB: tx}
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *LedgerStore) counters(lock bool) (*models.LedgerCounter, error) {
	q := s.DB
	if lock {
		q = forUpdate(q)
	}
	var c models.LedgerCounter
	if err := q.Where("id = ?", models.LedgerCounterID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("ledger counters missing, run MigrateLedger")
		}
		return nil, err
	}
	return &c, nil
}

// CreateBountyRecord allocates the next bounty id (the pre-creation count) and stores an Open bounty.
func (s *LedgerStore) CreateBountyRecord(creator string, amount int64, description string) (uint64, error) {
	c, err := s.counters(true)
	if err != nil {
		return 0, err
	}
	id := c.NumBounties

	bounty := models.Bounty{
		ID:          id,
		Creator:     creator,
		Amount:      amount,
		Description: description,
		Slug:        utils.DescriptionSlug(description),
		State:       models.BountyStateOpen,
	}
	if err := s.DB.Create(&bounty).Error; err != nil {
		return 0, fmt.Errorf("failed to create bounty record: %w", err)
	}
	if err := s.DB.Model(&models.LedgerCounter{}).
		Where("id = ?", models.LedgerCounterID).
		Update("num_bounties", id+1).Error; err != nil {
		return 0, err
	}
	return id, nil
}

// CreateSubmissionRecord allocates the next global submission id and stores a Submitted submission.
func (s *LedgerStore) CreateSubmissionRecord(bountyID uint64, submitter, description string) (uint64, error) {
	c, err := s.counters(true)
	if err != nil {
		return 0, err
	}
	id := c.NumSubmissions

	submission := models.Submission{
		ID:          id,
		BountyID:    bountyID,
		Submitter:   submitter,
		Description: description,
		State:       models.SubmissionStateSubmitted,
	}
	if err := s.DB.Create(&submission).Error; err != nil {
		return 0, fmt.Errorf("failed to create submission record: %w", err)
	}
	if err := s.DB.Model(&models.LedgerCounter{}).
		Where("id = ?", models.LedgerCounterID).
		Update("num_submissions", id+1).Error; err != nil {
		return 0, err
	}
	return id, nil
}

func (s *LedgerStore) getBounty(id uint64, lock bool) (*models.Bounty, error) {
	q := s.DB
	if lock {
		q = forUpdate(q)
	}
	var b models.Bounty
	if err := q.Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bounty %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &b, nil
}

func (s *LedgerStore) getSubmission(id uint64, lock bool) (*models.Submission, error) {
	q := s.DB
	if lock {
		q = forUpdate(q)
	}
	var sub models.Submission
	if err := q.Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &sub, nil
}

func (s *LedgerStore) GetBounty(id uint64) (*models.Bounty, error) {
	return s.getBounty(id, false)
}

func (s *LedgerStore) GetSubmission(id uint64) (*models.Submission, error) {
	return s.getSubmission(id, false)
}

func (s *LedgerStore) ensureParticipant(identity string) error {
	p := models.Participant{Identity: identity}
	return s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error
}

// AppendToUserBountyIndex stores id at the creator's next position.
func (s *LedgerStore) AppendToUserBountyIndex(creator string, id uint64) error {
	if err := s.ensureParticipant(creator); err != nil {
		return err
	}
	var p models.Participant
	if err := forUpdate(s.DB).Where("identity = ?", creator).First(&p).Error; err != nil {
		return err
	}
	entry := models.UserBountyIndexEntry{Owner: creator, Position: p.NumBounties, BountyID: id}
	if err := s.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append user bounty index: %w", err)
	}
	return s.DB.Model(&models.Participant{}).
		Where("identity = ?", creator).
		Update("num_bounties", p.NumBounties+1).Error
}

// AppendToBountySubmissionIndex stores id at the bounty's next position. The bounty's
// NumSubmissions is the index length, so it is advanced here.
func (s *LedgerStore) AppendToBountySubmissionIndex(bountyID, id uint64) error {
	b, err := s.getBounty(bountyID, true)
	if err != nil {
		return err
	}
	entry := models.BountySubmissionIndexEntry{BountyID: bountyID, Position: b.NumSubmissions, SubmissionID: id}
	if err := s.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append bounty submission index: %w", err)
	}
	return s.DB.Model(&models.Bounty{}).
		Where("id = ?", bountyID).
		Update("num_submissions", b.NumSubmissions+1).Error
}

func (s *LedgerStore) CountBounties() (uint64, error) {
	c, err := s.counters(false)
	if err != nil {
		return 0, err
	}
	return c.NumBounties, nil
}

func (s *LedgerStore) CountSubmissions() (uint64, error) {
	c, err := s.counters(false)
	if err != nil {
		return 0, err
	}
	return c.NumSubmissions, nil
}

// UserBountyCount is 0 for identities that never created a bounty.
func (s *LedgerStore) UserBountyCount(creator string) (uint64, error) {
	var p models.Participant
	if err := s.DB.Where("identity = ?", creator).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return p.NumBounties, nil
}

func (s *LedgerStore) UserBountyIDAt(creator string, index uint64) (uint64, error) {
	n, err := s.UserBountyCount(creator)
	if err != nil {
		return 0, err
	}
	if index >= n {
		return 0, fmt.Errorf("%w: %s has %d bounties, asked for %d", ErrOutOfRange, creator, n, index)
	}
	var entry models.UserBountyIndexEntry
	if err := s.DB.Where("owner = ? AND position = ?", creator, index).First(&entry).Error; err != nil {
		return 0, err
	}
	return entry.BountyID, nil
}

func (s *LedgerStore) BountySubmissionCount(bountyID uint64) (uint64, error) {
	b, err := s.GetBounty(bountyID)
	if err != nil {
		return 0, err
	}
	return b.NumSubmissions, nil
}

func (s *LedgerStore) BountySubmissionIDAt(bountyID, index uint64) (uint64, error) {
	n, err := s.BountySubmissionCount(bountyID)
	if err != nil {
		return 0, err
	}
	if index >= n {
		return 0, fmt.Errorf("%w: bounty %d has %d submissions, asked for %d", ErrOutOfRange, bountyID, n, index)
	}
	var entry models.BountySubmissionIndexEntry
	if err := s.DB.Where("bounty_id = ? AND position = ?", bountyID, index).First(&entry).Error; err != nil {
		return 0, err
	}
	return entry.SubmissionID, nil
}

// ListBounties returns bounties newest first.
func (s *LedgerStore) ListBounties(offset, limit int) ([]models.Bounty, error) {
	var bounties []models.Bounty
	err := s.DB.Order("id DESC").Offset(offset).Limit(limit).Find(&bounties).Error
	return bounties, err
}

// ListUserBounties returns the creator's bounties in index order.
func (s *LedgerStore) ListUserBounties(creator string) ([]models.Bounty, error) {
	var bounties []models.Bounty
	err := s.DB.Model(&models.Bounty{}).
		Select("bounties.*").
		Joins("JOIN user_bounty_index ON user_bounty_index.bounty_id = bounties.id").
		Where("user_bounty_index.owner = ?", creator).
		Order("user_bounty_index.position ASC").
		Find(&bounties).Error
	return bounties, err
}

// ListBountySubmissions returns the bounty's submissions in index order.
func (s *LedgerStore) ListBountySubmissions(bountyID uint64) ([]models.Submission, error) {
	if _, err := s.GetBounty(bountyID); err != nil {
		return nil, err
	}
	var submissions []models.Submission
	err := s.DB.Model(&models.Submission{}).
		Select("submissions.*").
		Joins("JOIN bounty_submission_index ON bounty_submission_index.submission_id = submissions.id").
		Where("bounty_submission_index.bounty_id = ?", bountyID).
		Order("bounty_submission_index.position ASC").
		Find(&submissions).Error
	return submissions, err
}

func (s *LedgerStore) setBountyState(id uint64, state models.BountyState) error {
	updates := map[string]interface{}{"state": state}
	if state == models.BountyStateClosed {
		updates["closed_at"] = time.Now()
	}
	return s.DB.Model(&models.Bounty{}).Where("id = ?", id).Updates(updates).Error
}

func (s *LedgerStore) setSubmissionState(id uint64, state models.SubmissionState) error {
	return s.DB.Model(&models.Submission{}).Where("id = ?", id).Updates(map[string]interface{}{
		"state":      state,
		"decided_at": time.Now(),
	}).Error
}

// GetParticipant returns a zero-valued participant for unknown identities.
func (s *LedgerStore) GetParticipant(identity string) (*models.Participant, error) {
	var p models.Participant
	if err := s.DB.Where("identity = ?", identity).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Participant{Identity: identity}, nil
		}
		return nil, err
	}
	return &p, nil
}
