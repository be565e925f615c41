package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"refund-billing-service/internal/models"
	"refund-billing-service/internal/repository"
	"refund-billing-service/internal/subscription"
)

const (
	// DefaultSweepInterval is how often the background sweeps run.
	DefaultSweepInterval = 1 * time.Hour

	sweepBatchSize = 200
)

// Sweeper runs the periodic maintenance passes: expiring merchants whose
// renewal never arrived, and applying downgrades whose cycle boundary has
// passed.
type Sweeper struct {
	merchants repository.MerchantRepositoryInterface
	interval  time.Duration
	log       *logrus.Entry
}

// NewSweeper creates a new sweeper
func NewSweeper(merchants repository.MerchantRepositoryInterface, interval time.Duration, logger *logrus.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		merchants: merchants,
		interval:  interval,
		log:       logger.WithField("component", "jobs.sweeper"),
	}
}

// Run executes sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval).Info("Sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs both passes a single time. Failures on individual merchants
// are logged and skipped so one bad row never stalls the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := time.Now()
	s.expireOverdue(ctx, now)
	s.applyDueDowngrades(ctx, now)
}

func (s *Sweeper) expireOverdue(ctx context.Context, now time.Time) {
	// Keyset pages over the whole candidate set: a single fixed page would
	// let an overdue merchant hide behind rows that never leave the page.
	cutoff := now.Add(-(models.BillingCycle + subscription.RenewalGracePeriod))

	expired := 0
	afterID := ""
	for {
		merchants, err := s.merchants.ListRenewalOverdue(ctx, cutoff, afterID, sweepBatchSize)
		if err != nil {
			s.log.WithError(err).Error("Failed to list overdue merchants")
			return
		}
		if len(merchants) == 0 {
			break
		}
		afterID = merchants[len(merchants)-1].ID

		for i := range merchants {
			m := &merchants[i]
			if !subscription.RenewalOverdue(m, now) {
				continue
			}
			if err := subscription.Transition(m, models.SubscriptionExpired); err != nil {
				s.log.WithError(err).WithField("merchant_id", m.ID).Warn("Skipping expiry")
				continue
			}
			if err := s.merchants.Update(ctx, m); err != nil {
				s.log.WithError(err).WithField("merchant_id", m.ID).Error("Failed to expire merchant")
				continue
			}
			expired++
			s.log.WithFields(logrus.Fields{
				"merchant_id": m.ID,
				"cycle_end":   m.CycleEnd(),
			}).Info("Merchant expired, renewal overdue")
		}

		if len(merchants) < sweepBatchSize {
			break
		}
	}

	if expired > 0 {
		s.log.WithField("count", expired).Info("Expiry sweep complete")
	}
}

func (s *Sweeper) applyDueDowngrades(ctx context.Context, now time.Time) {
	afterID := ""
	for {
		merchants, err := s.merchants.ListWithDueDowngrade(ctx, now, afterID, sweepBatchSize)
		if err != nil {
			s.log.WithError(err).Error("Failed to list due downgrades")
			return
		}
		if len(merchants) == 0 {
			break
		}
		afterID = merchants[len(merchants)-1].ID

		for i := range merchants {
			m := &merchants[i]
			if m.UpcomingPlan == nil {
				continue
			}
			from := m.PlanType
			m.PlanType = *m.UpcomingPlan
			m.UpcomingPlan = nil
			m.UpcomingPlanDate = nil
			if err := s.merchants.Update(ctx, m); err != nil {
				s.log.WithError(err).WithField("merchant_id", m.ID).Error("Failed to apply downgrade")
				continue
			}
			s.log.WithFields(logrus.Fields{
				"merchant_id": m.ID,
				"from":        from,
				"to":          m.PlanType,
			}).Info("Scheduled downgrade applied")
		}

		if len(merchants) < sweepBatchSize {
			break
		}
	}
}
