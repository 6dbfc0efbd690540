package services

import (
	"context"
	"fmt"

	"bounty-escrow-system/models"
	"bounty-escrow-system/utils"
)

// ledgerTx carries one in-flight mutation: a store bound to the open transaction and
// the receipt that collects what the mutation emitted.
type ledgerTx struct {
	ctx      context.Context
	store    *LedgerStore
	receipt  *Receipt
	transfer Transferer
}

func (t *ledgerTx) emit(kind models.EventKind, bountyID uint64, submissionID *uint64, account string, amount int64) error {
	ev := models.LedgerEvent{
		Kind:         kind,
		BountyID:     u64(bountyID),
		SubmissionID: submissionID,
		Account:      account,
		Amount:       amount,
	}
	if err := t.store.appendEvent(&ev); err != nil {
		return fmt.Errorf("failed to record %s event: %w", kind, err)
	}
	t.receipt.Events = append(t.receipt.Events, ev)
	return nil
}

func (t *ledgerTx) createBounty(creator string, deposit int64, description string) error {
	if creator == "" {
		return fmt.Errorf("%w: creator identity is required", ErrUnauthorized)
	}
	if deposit <= 0 {
		return fmt.Errorf("%w: deposit must be positive, got %d", ErrInvalidAmount, deposit)
	}

	id, err := t.store.CreateBountyRecord(creator, deposit, utils.NormalizeDescription(description))
	if err != nil {
		return err
	}
	if err := t.store.AppendToUserBountyIndex(creator, id); err != nil {
		return err
	}
	if err := t.holdEscrow(id, deposit); err != nil {
		return err
	}

	t.receipt.BountyID = id
	return t.emit(models.EventOpen, id, nil, creator, deposit)
}

// closeBounty is only reached through acceptance.
func (t *ledgerTx) closeBounty(b *models.Bounty) error {
	if !b.IsOpen() {
		return fmt.Errorf("%w: bounty %d is already %s", ErrInvalidState, b.ID, b.State)
	}
	if err := t.store.setBountyState(b.ID, models.BountyStateClosed); err != nil {
		return err
	}
	b.State = models.BountyStateClosed
	return t.emit(models.EventClosed, b.ID, nil, b.Creator, 0)
}
