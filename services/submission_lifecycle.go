package services

import (
	"fmt"

	"bounty-escrow-system/models"
	"bounty-escrow-system/utils"
)

func (t *ledgerTx) createSubmission(bountyID uint64, submitter, description string) error {
	if submitter == "" {
		return fmt.Errorf("%w: submitter identity is required", ErrUnauthorized)
	}

	b, err := t.store.getBounty(bountyID, true)
	if err != nil {
		return err
	}
	if !b.IsOpen() {
		return fmt.Errorf("%w: bounty %d", ErrBountyClosed, bountyID)
	}
	if submitter == b.Creator {
		return fmt.Errorf("%w: %s created bounty %d", ErrSelfSubmission, submitter, bountyID)
	}

	id, err := t.store.CreateSubmissionRecord(bountyID, submitter, utils.NormalizeDescription(description))
	if err != nil {
		return err
	}
	if err := t.store.AppendToBountySubmissionIndex(bountyID, id); err != nil {
		return err
	}

	t.receipt.BountyID = bountyID
	t.receipt.SubmissionID = u64(id)
	return t.emit(models.EventSubmitted, bountyID, u64(id), submitter, 0)
}

// adjudicable loads and locks the pair and checks that caller may decide on the submission.
func (t *ledgerTx) adjudicable(bountyID, submissionID uint64, caller string) (*models.Bounty, *models.Submission, error) {
	b, err := t.store.getBounty(bountyID, true)
	if err != nil {
		return nil, nil, err
	}
	s, err := t.store.getSubmission(submissionID, true)
	if err != nil {
		return nil, nil, err
	}
	if s.BountyID != bountyID {
		return nil, nil, fmt.Errorf("%w: submission %d is not filed against bounty %d", ErrNotFound, submissionID, bountyID)
	}
	if caller == "" || caller != b.Creator {
		return nil, nil, fmt.Errorf("%w: only the creator of bounty %d may decide on its submissions", ErrUnauthorized, bountyID)
	}
	// Unreachable while self-submission is refused at filing time; checked again here.
	if caller == s.Submitter {
		return nil, nil, fmt.Errorf("%w: submitter cannot decide on submission %d", ErrUnauthorized, submissionID)
	}
	if s.State != models.SubmissionStateSubmitted {
		return nil, nil, fmt.Errorf("%w: submission %d is %s", ErrInvalidState, submissionID, s.State)
	}
	return b, s, nil
}

func (t *ledgerTx) acceptSubmission(bountyID, submissionID uint64, caller string) error {
	b, s, err := t.adjudicable(bountyID, submissionID, caller)
	if err != nil {
		return err
	}
	if err := t.store.setSubmissionState(s.ID, models.SubmissionStateAccepted); err != nil {
		return err
	}

	t.receipt.BountyID = bountyID
	t.receipt.SubmissionID = u64(submissionID)
	if err := t.emit(models.EventAccepted, bountyID, u64(submissionID), s.Submitter, 0); err != nil {
		return err
	}
	// Siblings stay Submitted.
	return t.closeBounty(b)
}

func (t *ledgerTx) rejectSubmission(bountyID, submissionID uint64, caller string) error {
	_, s, err := t.adjudicable(bountyID, submissionID, caller)
	if err != nil {
		return err
	}
	if err := t.store.setSubmissionState(s.ID, models.SubmissionStateRejected); err != nil {
		return err
	}

	t.receipt.BountyID = bountyID
	t.receipt.SubmissionID = u64(submissionID)
	return t.emit(models.EventRejected, bountyID, u64(submissionID), s.Submitter, 0)
}
