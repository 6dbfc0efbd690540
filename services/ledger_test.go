package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bounty-escrow-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	alice   = "0xalice"
	bob     = "0xbob"
	charlie = "0xcharlie"
	dave    = "0xdave"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func newTestLedger(t *testing.T, opts ...LedgerOption) *Ledger {
	t.Helper()

	l, err := NewLedger(newTestDB(t), opts...)
	require.NoError(t, err)
	return l
}

func eventKinds(events []models.LedgerEvent) []models.EventKind {
	kinds := make([]models.EventKind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func mustCreateBounty(t *testing.T, l *Ledger, creator string, amount int64) uint64 {
	t.Helper()
	r, err := l.CreateBounty(context.Background(), creator, amount, "My description")
	require.NoError(t, err)
	return r.BountyID
}

func mustSubmit(t *testing.T, l *Ledger, bountyID uint64, submitter string) uint64 {
	t.Helper()
	r, err := l.CreateSubmission(context.Background(), bountyID, submitter, "My description")
	require.NoError(t, err)
	require.NotNil(t, r.SubmissionID)
	return *r.SubmissionID
}

func TestCreateBountyAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	for want := uint64(0); want < 3; want++ {
		before, err := l.CountBounties(ctx)
		require.NoError(t, err)
		require.Equal(t, want, before)

		r, err := l.CreateBounty(ctx, alice, 1, "My description")
		require.NoError(t, err)
		assert.Equal(t, before, r.BountyID)
		require.Len(t, r.Events, 1)
		assert.Equal(t, models.EventOpen, r.Events[0].Kind)
		assert.Equal(t, before, *r.Events[0].BountyID)

		after, err := l.CountBounties(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	}

	b, err := l.GetBounty(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, alice, b.Creator)
	assert.Equal(t, int64(1), b.Amount)
	assert.Equal(t, "My description", b.Description)
	assert.Equal(t, "my-description", b.Slug)
	assert.Equal(t, uint64(0), b.NumSubmissions)
	assert.Equal(t, models.BountyStateOpen, b.State)

	hold, err := l.GetEscrow(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hold.Amount)
	assert.False(t, hold.Paid)
}

func TestCreateBountyRejectsNonPositiveDeposit(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	for _, deposit := range []int64{0, -5} {
		r, err := l.CreateBounty(ctx, alice, deposit, "free work")
		require.ErrorIs(t, err, ErrInvalidAmount)
		assert.Nil(t, r)
	}

	n, err := l.CountBounties(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = l.UserBountyCount(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, n)

	events, err := l.Events(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateBountyRequiresCreator(t *testing.T) {
	_, err := newTestLedger(t).CreateBounty(context.Background(), "", 1, "d")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateSubmission(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	bountyID := mustCreateBounty(t, l, alice, 1)

	r, err := l.CreateSubmission(ctx, bountyID, bob, "My description")
	require.NoError(t, err)
	require.NotNil(t, r.SubmissionID)
	assert.Equal(t, uint64(0), *r.SubmissionID)
	assert.Equal(t, []models.EventKind{models.EventSubmitted}, eventKinds(r.Events))

	s, err := l.GetSubmission(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, bountyID, s.BountyID)
	assert.Equal(t, bob, s.Submitter)
	assert.Equal(t, "My description", s.Description)
	assert.Equal(t, models.SubmissionStateSubmitted, s.State)

	n, err := l.CountSubmissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	b, err := l.GetBounty(ctx, bountyID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b.NumSubmissions)
}

func TestCreateSubmissionRejectsSelfSubmission(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	bountyID := mustCreateBounty(t, l, alice, 1)

	_, err := l.CreateSubmission(ctx, bountyID, alice, "my own work")
	require.ErrorIs(t, err, ErrSelfSubmission)

	n, err := l.CountSubmissions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = l.BountySubmissionCount(ctx, bountyID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateSubmissionUnknownBounty(t *testing.T) {
	_, err := newTestLedger(t).CreateSubmission(context.Background(), 42, bob, "d")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBountySubmissionIndexKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	bounty1 := mustCreateBounty(t, l, alice, 1)
	bounty2 := mustCreateBounty(t, l, alice, 1)
	submission1 := mustSubmit(t, l, bounty1, bob)
	submission2 := mustSubmit(t, l, bounty2, bob)
	submission3 := mustSubmit(t, l, bounty1, charlie)

	n, err := l.BountySubmissionCount(ctx, bounty1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	n, err = l.BountySubmissionCount(ctx, bounty2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	for i, want := range []uint64{submission1, submission3} {
		got, err := l.BountySubmissionIDAt(ctx, bounty1, uint64(i))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := l.BountySubmissionIDAt(ctx, bounty2, 0)
	require.NoError(t, err)
	assert.Equal(t, submission2, got)

	listed, err := l.ListBountySubmissions(ctx, bounty1)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, submission1, listed[0].ID)
	assert.Equal(t, submission3, listed[1].ID)
}

func TestUserBountyIndexKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	user1bounty1 := mustCreateBounty(t, l, charlie, 1)
	user2bounty1 := mustCreateBounty(t, l, dave, 1)
	user1bounty2 := mustCreateBounty(t, l, charlie, 1)

	n, err := l.UserBountyCount(ctx, charlie)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	n, err = l.UserBountyCount(ctx, dave)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	id, err := l.UserBountyIDAt(ctx, charlie, 0)
	require.NoError(t, err)
	assert.Equal(t, user1bounty1, id)
	id, err = l.UserBountyIDAt(ctx, charlie, 1)
	require.NoError(t, err)
	assert.Equal(t, user1bounty2, id)
	id, err = l.UserBountyIDAt(ctx, dave, 0)
	require.NoError(t, err)
	assert.Equal(t, user2bounty1, id)

	listed, err := l.ListUserBounties(ctx, charlie)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, user1bounty1, listed[0].ID)
	assert.Equal(t, user1bounty2, listed[1].ID)

	newest, err := l.ListBounties(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, user1bounty2, newest[0].ID)
	assert.Equal(t, user2bounty1, newest[1].ID)
}

func TestIndexLookupsOutOfRange(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	bountyID := mustCreateBounty(t, l, alice, 1)
	mustSubmit(t, l, bountyID, bob)

	_, err := l.UserBountyIDAt(ctx, alice, 1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = l.UserBountyIDAt(ctx, "0xnobody", 0)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = l.BountySubmissionIDAt(ctx, bountyID, 1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = l.BountySubmissionIDAt(ctx, 99, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptSubmissionOnlyByCreator(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	bountyID := mustCreateBounty(t, l, charlie, 1)
	submissionID := mustSubmit(t, l, bountyID, dave)

	for _, caller := range []string{dave, bob, ""} {
		_, err := l.AcceptSubmission(ctx, bountyID, submissionID, caller)
		require.ErrorIs(t, err, ErrUnauthorized, "caller %q", caller)
	}

	b, err := l.GetBounty(ctx, bountyID)
	require.NoError(t, err)
	assert.Equal(t, models.BountyStateOpen, b.State)
	s, err := l.GetSubmission(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStateSubmitted, s.State)

	r, err := l.AcceptSubmission(ctx, bountyID, submissionID, charlie)
	require.NoError(t, err)
	assert.Equal(t, []models.EventKind{models.EventAccepted, models.EventClosed}, eventKinds(r.Events))

	b, err = l.GetBounty(ctx, bountyID)
	require.NoError(t, err)
	assert.Equal(t, models.BountyStateClosed, b.State)
	assert.NotNil(t, b.ClosedAt)
	s, err = l.GetSubmission(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStateAccepted, s.State)
}

func TestRejectSubmissionKeepsBountyOpen(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	bountyID := mustCreateBounty(t, l, charlie, 1)
	submissionID := mustSubmit(t, l, bountyID, dave)

	_, err := l.RejectSubmission(ctx, bountyID, submissionID, dave)
	require.ErrorIs(t, err, ErrUnauthorized)

	r, err := l.RejectSubmission(ctx, bountyID, submissionID, charlie)
	require.NoError(t, err)
	assert.Equal(t, []models.EventKind{models.EventRejected}, eventKinds(r.Events))

	s, err := l.GetSubmission(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStateRejected, s.State)
	b, err := l.GetBounty(ctx, bountyID)
	require.NoError(t, err)
	assert.Equal(t, models.BountyStateOpen, b.State)

	// Rejected is terminal.
	_, err = l.RejectSubmission(ctx, bountyID, submissionID, charlie)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = l.AcceptSubmission(ctx, bountyID, submissionID, charlie)
	require.ErrorIs(t, err, ErrInvalidState)

	// The bounty still takes new work.
	mustSubmit(t, l, bountyID, bob)
}

func TestAcceptLeavesSiblingSubmissionsPending(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	bountyID := mustCreateBounty(t, l, alice, 5)
	first := mustSubmit(t, l, bountyID, bob)
	second := mustSubmit(t, l, bountyID, charlie)

	_, err := l.AcceptSubmission(ctx, bountyID, first, alice)
	require.NoError(t, err)

	s, err := l.GetSubmission(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStateSubmitted, s.State)

	_, err = l.CreateSubmission(ctx, bountyID, dave, "late")
	require.ErrorIs(t, err, ErrBountyClosed)

	// A second acceptance would close a closed bounty; the whole call rolls back.
	_, err = l.AcceptSubmission(ctx, bountyID, second, alice)
	require.ErrorIs(t, err, ErrInvalidState)
	s, err = l.GetSubmission(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStateSubmitted, s.State)

	// Accepted is terminal.
	_, err = l.RejectSubmission(ctx, bountyID, first, alice)
	require.ErrorIs(t, err, ErrInvalidState)

	events, err := l.Events(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []models.EventKind{
		models.EventOpen, models.EventSubmitted, models.EventSubmitted, models.EventAccepted, models.EventClosed,
	}, eventKinds(events))
}

func TestAdjudicationRequiresMatchingBounty(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	bounty1 := mustCreateBounty(t, l, alice, 1)
	bounty2 := mustCreateBounty(t, l, alice, 1)
	submissionID := mustSubmit(t, l, bounty1, bob)

	_, err := l.AcceptSubmission(ctx, bounty2, submissionID, alice)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = l.AcceptSubmission(ctx, bounty1, 77, alice)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = l.RejectSubmission(ctx, 77, submissionID, alice)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWithdrawPaysAcceptedSubmitterOnce(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	const amount = int64(500_000_000_000_000_000)
	bountyID := mustCreateBounty(t, l, "0xhelen", amount)
	submissionID := mustSubmit(t, l, bountyID, "0xsusan")

	_, err := l.WithdrawBountyAmount(ctx, submissionID, "0xsusan")
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = l.AcceptSubmission(ctx, bountyID, submissionID, "0xhelen")
	require.NoError(t, err)

	for _, caller := range []string{"0xhelen", bob, ""} {
		_, err = l.WithdrawBountyAmount(ctx, submissionID, caller)
		require.ErrorIs(t, err, ErrUnauthorized, "caller %q", caller)
	}

	before, err := l.GetAccount(ctx, "0xsusan")
	require.NoError(t, err)

	r, err := l.WithdrawBountyAmount(ctx, submissionID, "0xsusan")
	require.NoError(t, err)
	assert.Equal(t, amount, r.Amount)
	require.Len(t, r.Events, 1)
	assert.Equal(t, models.EventPaid, r.Events[0].Kind)
	assert.Equal(t, "0xsusan", r.Events[0].Account)
	assert.Equal(t, amount, r.Events[0].Amount)

	after, err := l.GetAccount(ctx, "0xsusan")
	require.NoError(t, err)
	assert.Equal(t, before.Balance+amount, after.Balance)

	_, err = l.WithdrawBountyAmount(ctx, submissionID, "0xsusan")
	require.ErrorIs(t, err, ErrAlreadyPaid)

	again, err := l.GetAccount(ctx, "0xsusan")
	require.NoError(t, err)
	assert.Equal(t, after.Balance, again.Balance)

	hold, err := l.GetEscrow(ctx, bountyID)
	require.NoError(t, err)
	assert.True(t, hold.Paid)
	assert.Equal(t, "0xsusan", hold.PaidTo)
}

func TestWithdrawConcurrentCallsPayOnce(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	bountyID := mustCreateBounty(t, l, alice, 7)
	submissionID := mustSubmit(t, l, bountyID, bob)
	_, err := l.AcceptSubmission(ctx, bountyID, submissionID, alice)
	require.NoError(t, err)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.WithdrawBountyAmount(ctx, submissionID, bob)
		}(i)
	}
	wg.Wait()

	paid := 0
	for _, err := range errs {
		if err == nil {
			paid++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	}
	assert.Equal(t, 1, paid)

	account, err := l.GetAccount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(7), account.Balance)
}

func TestWithdrawReentrantTransferSeesAlreadyPaid(t *testing.T) {
	ctx := context.Background()

	var (
		l            *Ledger
		submissionID uint64
		nestedErr    error
	)
	l = newTestLedger(t, WithTransferer(TransferFunc(func(ctx context.Context, tx *gorm.DB, to string, amount int64) error {
		nested := make(chan error, 1)
		go func() {
			_, err := l.WithdrawBountyAmount(ctx, submissionID, to)
			nested <- err
		}()
		select {
		case nestedErr = <-nested:
		case <-time.After(2 * time.Second):
			return errors.New("nested withdraw did not return while the payout was running")
		}
		return BalanceTransferer{}.Transfer(ctx, tx, to, amount)
	})))

	bountyID := mustCreateBounty(t, l, alice, 3)
	submissionID = mustSubmit(t, l, bountyID, bob)
	_, err := l.AcceptSubmission(ctx, bountyID, submissionID, alice)
	require.NoError(t, err)

	r, err := l.WithdrawBountyAmount(ctx, submissionID, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.Amount)
	require.ErrorIs(t, nestedErr, ErrAlreadyPaid)

	account, err := l.GetAccount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(3), account.Balance)

	// The guard is released after commit; later calls see the stored paid flag.
	_, err = l.WithdrawBountyAmount(ctx, submissionID, bob)
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestWithdrawInsideTransactionSeesPaidFlag(t *testing.T) {
	ctx := context.Background()

	var submissionID uint64
	var nestedErr error
	l := newTestLedger(t, WithTransferer(TransferFunc(func(ctx context.Context, tx *gorm.DB, to string, amount int64) error {
		nested := &ledgerTx{ctx: ctx, store: NewLedgerStore(tx), receipt: &Receipt{}, transfer: BalanceTransferer{}}
		nestedErr = nested.withdraw(submissionID, to)
		return BalanceTransferer{}.Transfer(ctx, tx, to, amount)
	})))

	bountyID := mustCreateBounty(t, l, alice, 3)
	submissionID = mustSubmit(t, l, bountyID, bob)
	_, err := l.AcceptSubmission(ctx, bountyID, submissionID, alice)
	require.NoError(t, err)

	_, err = l.WithdrawBountyAmount(ctx, submissionID, bob)
	require.NoError(t, err)
	require.ErrorIs(t, nestedErr, ErrAlreadyPaid)
}

func TestPayoutGuard(t *testing.T) {
	g := newPayoutGuard()
	require.True(t, g.begin(1))
	assert.False(t, g.begin(1))
	assert.True(t, g.begin(2))
	g.end(1)
	assert.True(t, g.begin(1))
}

func TestWithdrawTransferFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	failing := true
	l := newTestLedger(t, WithTransferer(TransferFunc(func(ctx context.Context, tx *gorm.DB, to string, amount int64) error {
		if failing {
			return errors.New("payee unreachable")
		}
		return BalanceTransferer{}.Transfer(ctx, tx, to, amount)
	})))

	bountyID := mustCreateBounty(t, l, alice, 4)
	submissionID := mustSubmit(t, l, bountyID, bob)
	_, err := l.AcceptSubmission(ctx, bountyID, submissionID, alice)
	require.NoError(t, err)

	_, err = l.WithdrawBountyAmount(ctx, submissionID, bob)
	require.Error(t, err)
	assert.Equal(t, "internal", ErrorKind(err))

	hold, err := l.GetEscrow(ctx, bountyID)
	require.NoError(t, err)
	assert.False(t, hold.Paid)

	failing = false
	r, err := l.WithdrawBountyAmount(ctx, submissionID, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(4), r.Amount)
}

func TestEndToEndBountyLifecycle(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	const a, b, c = "0xA", "0xB", "0xC"

	r, err := l.CreateBounty(ctx, a, 1, "d")
	require.NoError(t, err)
	require.Equal(t, uint64(0), r.BountyID)
	bounty, err := l.GetBounty(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, models.BountyStateOpen, bounty.State)
	assert.Zero(t, bounty.NumSubmissions)

	r, err = l.CreateSubmission(ctx, 0, b, "d")
	require.NoError(t, err)
	require.Equal(t, uint64(0), *r.SubmissionID)

	_, err = l.RejectSubmission(ctx, 0, 0, a)
	require.NoError(t, err)
	sub, err := l.GetSubmission(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStateRejected, sub.State)
	bounty, err = l.GetBounty(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, models.BountyStateOpen, bounty.State)

	r, err = l.CreateSubmission(ctx, 0, c, "d")
	require.NoError(t, err)
	require.Equal(t, uint64(1), *r.SubmissionID)

	_, err = l.AcceptSubmission(ctx, 0, 1, a)
	require.NoError(t, err)
	sub, err = l.GetSubmission(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStateAccepted, sub.State)
	bounty, err = l.GetBounty(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, models.BountyStateClosed, bounty.State)

	_, err = l.WithdrawBountyAmount(ctx, 1, c)
	require.NoError(t, err)
	account, err := l.GetAccount(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, int64(1), account.Balance)

	_, err = l.WithdrawBountyAmount(ctx, 1, c)
	require.ErrorIs(t, err, ErrAlreadyPaid)

	report, err := l.AuditEscrow(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK(), report.Discrepancies)
	assert.Equal(t, int64(0), report.HeldAmount)
	assert.Equal(t, int64(1), report.PaidAmount)
}

func TestSubscribeReceivesCommittedEventsInOrder(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	events, cancel := l.Subscribe(16)
	defer cancel()

	bountyID := mustCreateBounty(t, l, alice, 2)
	_, err := l.CreateSubmission(ctx, bountyID, alice, "self")
	require.ErrorIs(t, err, ErrSelfSubmission)
	submissionID := mustSubmit(t, l, bountyID, bob)
	_, err = l.AcceptSubmission(ctx, bountyID, submissionID, alice)
	require.NoError(t, err)

	var got []models.LedgerEvent
	for i := 0; i < 4; i++ {
		got = append(got, <-events)
	}
	assert.Equal(t, []models.EventKind{
		models.EventOpen, models.EventSubmitted, models.EventAccepted, models.EventClosed,
	}, eventKinds(got))
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Seq, got[i-1].Seq)
	}
	assert.NotEmpty(t, got[0].EventID)

	logged, err := l.Events(ctx, got[1].Seq, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.EventKind{models.EventAccepted, models.EventClosed}, eventKinds(logged))

	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestCheckpoints(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	seq, err := l.Checkpoint(ctx, "webhook")
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, l.SaveCheckpoint(ctx, "webhook", 5))
	require.NoError(t, l.SaveCheckpoint(ctx, "webhook", 9))
	seq, err = l.Checkpoint(ctx, "webhook")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), seq)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "already_paid", ErrorKind(ErrAlreadyPaid))
	assert.Equal(t, "not_found", ErrorKind(errors.Join(errors.New("ctx"), ErrNotFound)))
	assert.Equal(t, "internal", ErrorKind(errors.New("boom")))
}
