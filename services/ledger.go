// services/ledger.go
package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"bounty-escrow-system/models"

	"gorm.io/gorm"
)

// Ledger is the bounty/submission ledger. Every mutation runs to completion under one
// lock and one database transaction, so mutations are totally ordered and all-or-nothing.
// Queries read committed state and never take the lock.
type Ledger struct {
	DB *gorm.DB

	store    *LedgerStore
	hub      *eventHub
	metrics  *Metrics
	transfer Transferer
	payouts  *payoutGuard

	mu sync.Mutex
}

type LedgerOption func(*Ledger)

func WithMetrics(m *Metrics) LedgerOption {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithTransferer replaces the default BalanceTransferer used on payout.
func WithTransferer(t Transferer) LedgerOption {
	return func(l *Ledger) {
		l.transfer = t
	}
}

// NewLedger migrates the ledger tables (empty on first run) and returns the ledger.
func NewLedger(db *gorm.DB, opts ...LedgerOption) (*Ledger, error) {
	if err := MigrateLedger(db); err != nil {
		return nil, err
	}
	l := &Ledger{
		DB:       db,
		store:    NewLedgerStore(db),
		hub:      newEventHub(),
		transfer: BalanceTransferer{},
		payouts:  newPayoutGuard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Ledger) commit(ctx context.Context, op, caller string, fn func(t *ledgerTx) error) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	receipt := &Receipt{}
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{
			ctx:      ctx,
			store:    l.store.WithTx(tx),
			receipt:  receipt,
			transfer: l.transfer,
		})
	})
	l.metrics.observe(op, err)
	if err != nil {
		log.Printf("❌ [LEDGER] %s by %q rejected (%s): %v", op, caller, ErrorKind(err), err)
		return nil, err
	}

	l.metrics.committed(receipt.Events)
	l.hub.publish(receipt.Events)
	log.Printf("✅ [LEDGER] %s by %q committed: bounty=%d events=%d", op, caller, receipt.BountyID, len(receipt.Events))
	return receipt, nil
}

func (l *Ledger) reader(ctx context.Context) *LedgerStore {
	return l.store.WithTx(l.DB.WithContext(ctx))
}

// --- Mutating surface ---

// CreateBounty escrows deposit under a new Open bounty owned by creator. Emits Open.
func (l *Ledger) CreateBounty(ctx context.Context, creator string, deposit int64, description string) (*Receipt, error) {
	return l.commit(ctx, "create_bounty", creator, func(t *ledgerTx) error {
		return t.createBounty(creator, deposit, description)
	})
}

// CreateSubmission files a submission against an Open bounty. Emits Submitted.
func (l *Ledger) CreateSubmission(ctx context.Context, bountyID uint64, submitter, description string) (*Receipt, error) {
	return l.commit(ctx, "create_submission", submitter, func(t *ledgerTx) error {
		return t.createSubmission(bountyID, submitter, description)
	})
}

// AcceptSubmission accepts a pending submission and closes its bounty. Emits Accepted then Closed.
func (l *Ledger) AcceptSubmission(ctx context.Context, bountyID, submissionID uint64, caller string) (*Receipt, error) {
	return l.commit(ctx, "accept_submission", caller, func(t *ledgerTx) error {
		return t.acceptSubmission(bountyID, submissionID, caller)
	})
}

// RejectSubmission rejects a pending submission; the bounty stays as it is. Emits Rejected.
func (l *Ledger) RejectSubmission(ctx context.Context, bountyID, submissionID uint64, caller string) (*Receipt, error) {
	return l.commit(ctx, "reject_submission", caller, func(t *ledgerTx) error {
		return t.rejectSubmission(bountyID, submissionID, caller)
	})
}

// WithdrawBountyAmount pays the bounty's escrow to the accepted submitter, once. Emits Paid.
// While a payout for the submission is running, including from inside its own transfer,
// further calls return ErrAlreadyPaid without waiting for the ledger lock.
func (l *Ledger) WithdrawBountyAmount(ctx context.Context, submissionID uint64, caller string) (*Receipt, error) {
	const op = "withdraw_bounty_amount"
	if !l.payouts.begin(submissionID) {
		err := fmt.Errorf("%w: payout for submission %d is in progress", ErrAlreadyPaid, submissionID)
		l.metrics.observe(op, err)
		log.Printf("❌ [LEDGER] %s by %q rejected (%s): %v", op, caller, ErrorKind(err), err)
		return nil, err
	}
	defer l.payouts.end(submissionID)

	return l.commit(ctx, op, caller, func(t *ledgerTx) error {
		return t.withdraw(submissionID, caller)
	})
}

// --- Query surface ---

func (l *Ledger) GetBounty(ctx context.Context, id uint64) (*models.Bounty, error) {
	return l.reader(ctx).GetBounty(id)
}

func (l *Ledger) GetSubmission(ctx context.Context, id uint64) (*models.Submission, error) {
	return l.reader(ctx).GetSubmission(id)
}

func (l *Ledger) CountBounties(ctx context.Context) (uint64, error) {
	return l.reader(ctx).CountBounties()
}

func (l *Ledger) CountSubmissions(ctx context.Context) (uint64, error) {
	return l.reader(ctx).CountSubmissions()
}

func (l *Ledger) UserBountyCount(ctx context.Context, owner string) (uint64, error) {
	return l.reader(ctx).UserBountyCount(owner)
}

func (l *Ledger) UserBountyIDAt(ctx context.Context, owner string, index uint64) (uint64, error) {
	return l.reader(ctx).UserBountyIDAt(owner, index)
}

func (l *Ledger) BountySubmissionCount(ctx context.Context, bountyID uint64) (uint64, error) {
	return l.reader(ctx).BountySubmissionCount(bountyID)
}

func (l *Ledger) BountySubmissionIDAt(ctx context.Context, bountyID, index uint64) (uint64, error) {
	return l.reader(ctx).BountySubmissionIDAt(bountyID, index)
}

func (l *Ledger) ListBounties(ctx context.Context, offset, limit int) ([]models.Bounty, error) {
	return l.reader(ctx).ListBounties(offset, limit)
}

func (l *Ledger) ListUserBounties(ctx context.Context, owner string) ([]models.Bounty, error) {
	return l.reader(ctx).ListUserBounties(owner)
}

func (l *Ledger) ListBountySubmissions(ctx context.Context, bountyID uint64) ([]models.Submission, error) {
	return l.reader(ctx).ListBountySubmissions(bountyID)
}

func (l *Ledger) GetAccount(ctx context.Context, identity string) (*models.Participant, error) {
	return l.reader(ctx).GetParticipant(identity)
}

func (l *Ledger) GetEscrow(ctx context.Context, bountyID uint64) (*models.EscrowHold, error) {
	return l.reader(ctx).GetEscrowHold(bountyID)
}

// Events returns up to limit committed events after seq since.
func (l *Ledger) Events(ctx context.Context, since uint64, limit int) ([]models.LedgerEvent, error) {
	return l.reader(ctx).EventsSince(since, limit)
}

// Subscribe delivers events committed from now on. Call cancel to release the channel.
func (l *Ledger) Subscribe(buffer int) (<-chan models.LedgerEvent, func()) {
	return l.hub.subscribe(buffer)
}

// Checkpoint and SaveCheckpoint track named event-log consumers.
func (l *Ledger) Checkpoint(ctx context.Context, name string) (uint64, error) {
	return l.reader(ctx).Checkpoint(name)
}

func (l *Ledger) SaveCheckpoint(ctx context.Context, name string, seq uint64) error {
	return l.reader(ctx).SaveCheckpoint(name, seq)
}
