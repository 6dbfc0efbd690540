// services/escrow_audit.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"bounty-escrow-system/models"

	"github.com/go-co-op/gocron/v2"
)

// AuditReport is a point-in-time reconciliation of escrow against bounty state.
type AuditReport struct {
	Bounties       int64    `json:"bounties"`
	ClosedBounties int64    `json:"closed_bounties"`
	HeldAmount     int64    `json:"held_amount"`
	PaidAmount     int64    `json:"paid_amount"`
	Discrepancies  []string `json:"discrepancies"`
}

func (r *AuditReport) OK() bool {
	return len(r.Discrepancies) == 0
}

// AuditEscrow checks that every bounty has a hold matching its amount, every closed
// bounty has exactly one accepted submission and no hold was paid for an open bounty.
func (l *Ledger) AuditEscrow(ctx context.Context) (*AuditReport, error) {
	db := l.DB.WithContext(ctx)
	report := &AuditReport{}

	if err := db.Model(&models.Bounty{}).Count(&report.Bounties).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Bounty{}).Where("state = ?", models.BountyStateClosed).
		Count(&report.ClosedBounties).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.EscrowHold{}).Where("paid = ?", false).
		Select("COALESCE(SUM(amount), 0)").Scan(&report.HeldAmount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.EscrowHold{}).Where("paid = ?", true).
		Select("COALESCE(SUM(amount), 0)").Scan(&report.PaidAmount).Error; err != nil {
		return nil, err
	}

	var unbacked []uint64
	if err := db.Raw(`
		SELECT b.id FROM bounties b
		LEFT JOIN escrow_holds e ON e.bounty_id = b.id
		WHERE e.bounty_id IS NULL OR e.amount <> b.amount
		ORDER BY b.id`).Scan(&unbacked).Error; err != nil {
		return nil, err
	}
	for _, id := range unbacked {
		report.Discrepancies = append(report.Discrepancies,
			fmt.Sprintf("bounty %d: escrow hold missing or amount mismatch", id))
	}

	var badClosed []uint64
	if err := db.Raw(`
		SELECT b.id FROM bounties b
		WHERE b.state = ? AND (
			SELECT COUNT(*) FROM submissions s WHERE s.bounty_id = b.id AND s.state = ?
		) <> 1
		ORDER BY b.id`, models.BountyStateClosed, models.SubmissionStateAccepted).Scan(&badClosed).Error; err != nil {
		return nil, err
	}
	for _, id := range badClosed {
		report.Discrepancies = append(report.Discrepancies,
			fmt.Sprintf("bounty %d: closed without exactly one accepted submission", id))
	}

	var paidOpen []uint64
	if err := db.Raw(`
		SELECT e.bounty_id FROM escrow_holds e
		JOIN bounties b ON b.id = e.bounty_id
		WHERE e.paid = ? AND b.state <> ?
		ORDER BY e.bounty_id`, true, models.BountyStateClosed).Scan(&paidOpen).Error; err != nil {
		return nil, err
	}
	for _, id := range paidOpen {
		report.Discrepancies = append(report.Discrepancies,
			fmt.Sprintf("bounty %d: escrow paid while bounty is open", id))
	}

	l.metrics.setEscrowHeld(report.HeldAmount)
	return report, nil
}

// ScheduleEscrowAudit registers the periodic audit on sched. It first runs as soon as sched starts.
func (l *Ledger) ScheduleEscrowAudit(sched gocron.Scheduler, interval time.Duration) error {
	_, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			report, err := l.AuditEscrow(context.Background())
			if err != nil {
				log.Printf("[ESCROW_AUDIT] DB error: %v", err)
				return
			}
			if !report.OK() {
				for _, d := range report.Discrepancies {
					log.Printf("🚨 [ESCROW_AUDIT] %s", d)
				}
				return
			}
			log.Printf("✅ [ESCROW_AUDIT] %d bounties, held=%d paid=%d", report.Bounties, report.HeldAmount, report.PaidAmount)
		}),
		// The first run seeds the escrow gauge after a restart.
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}
