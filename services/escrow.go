package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bounty-escrow-system/models"

	"gorm.io/gorm"
)

// Transferer moves released escrow to the payee inside the payout transaction.
// A returned error rolls the whole payout back, including the paid flag.
type Transferer interface {
	Transfer(ctx context.Context, tx *gorm.DB, to string, amount int64) error
}

// TransferFunc adapts a function to Transferer.
type TransferFunc func(ctx context.Context, tx *gorm.DB, to string, amount int64) error

func (f TransferFunc) Transfer(ctx context.Context, tx *gorm.DB, to string, amount int64) error {
	return f(ctx, tx, to, amount)
}

// payoutGuard tracks submissions whose payout is running. It is consulted before the
// ledger lock, so a transfer that calls back into the ledger fails fast instead of
// waiting on the payout that is calling it.
type payoutGuard struct {
	mu       sync.Mutex
	inFlight map[uint64]struct{}
}

func newPayoutGuard() *payoutGuard {
	return &payoutGuard{inFlight: make(map[uint64]struct{})}
}

// begin reports false when a payout for submissionID is already running.
func (g *payoutGuard) begin(submissionID uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[submissionID]; busy {
		return false
	}
	g.inFlight[submissionID] = struct{}{}
	return true
}

func (g *payoutGuard) end(submissionID uint64) {
	g.mu.Lock()
	delete(g.inFlight, submissionID)
	g.mu.Unlock()
}

// BalanceTransferer credits the payee's participant balance kept in the ledger database.
type BalanceTransferer struct{}

func (BalanceTransferer) Transfer(_ context.Context, tx *gorm.DB, to string, amount int64) error {
	return NewLedgerStore(tx).CreditBalance(to, amount)
}

func (s *LedgerStore) CreditBalance(identity string, amount int64) error {
	if err := s.ensureParticipant(identity); err != nil {
		return err
	}
	return s.DB.Model(&models.Participant{}).
		Where("identity = ?", identity).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
}

func (s *LedgerStore) GetEscrowHold(bountyID uint64) (*models.EscrowHold, error) {
	return s.escrowHold(bountyID, false)
}

func (s *LedgerStore) escrowHold(bountyID uint64, lock bool) (*models.EscrowHold, error) {
	q := s.DB
	if lock {
		q = forUpdate(q)
	}
	var hold models.EscrowHold
	if err := q.Where("bounty_id = ?", bountyID).First(&hold).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: escrow for bounty %d", ErrNotFound, bountyID)
		}
		return nil, err
	}
	return &hold, nil
}

// markPaid flips the paid flag only if it is still unset. It reports whether this call did the flip.
func (s *LedgerStore) markPaid(bountyID uint64, payee string) (bool, error) {
	now := time.Now()
	res := s.DB.Model(&models.EscrowHold{}).
		Where("bounty_id = ? AND paid = ?", bountyID, false).
		Updates(map[string]interface{}{
			"paid":    true,
			"paid_to": payee,
			"paid_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *ledgerTx) holdEscrow(bountyID uint64, amount int64) error {
	hold := models.EscrowHold{BountyID: bountyID, Amount: amount}
	if err := t.store.DB.Create(&hold).Error; err != nil {
		return fmt.Errorf("failed to hold escrow for bounty %d: %w", bountyID, err)
	}
	return nil
}

// withdraw releases the escrow of the submission's bounty to its accepted submitter.
// The paid flag is committed to the transaction before the transfer runs, so any
// re-entry from the transfer sees AlreadyPaid.
func (t *ledgerTx) withdraw(submissionID uint64, caller string) error {
	s, err := t.store.getSubmission(submissionID, true)
	if err != nil {
		return err
	}
	if caller == "" || caller != s.Submitter {
		return fmt.Errorf("%w: only the submitter of submission %d may withdraw", ErrUnauthorized, submissionID)
	}
	if s.State != models.SubmissionStateAccepted {
		return fmt.Errorf("%w: submission %d is %s", ErrInvalidState, submissionID, s.State)
	}

	hold, err := t.store.escrowHold(s.BountyID, true)
	if err != nil {
		return err
	}
	if hold.Paid {
		return fmt.Errorf("%w: bounty %d was paid to %s", ErrAlreadyPaid, s.BountyID, hold.PaidTo)
	}
	flipped, err := t.store.markPaid(s.BountyID, caller)
	if err != nil {
		return err
	}
	if !flipped {
		return fmt.Errorf("%w: bounty %d", ErrAlreadyPaid, s.BountyID)
	}

	if err := t.transfer.Transfer(t.ctx, t.store.DB, caller, hold.Amount); err != nil {
		return fmt.Errorf("failed to transfer %d to %s: %w", hold.Amount, caller, err)
	}

	t.receipt.BountyID = s.BountyID
	t.receipt.SubmissionID = u64(submissionID)
	t.receipt.Amount = hold.Amount
	return t.emit(models.EventPaid, s.BountyID, u64(submissionID), caller, hold.Amount)
}
