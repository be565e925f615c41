package scoreboard

import (
	"context"

	"github.com/sirupsen/logrus"

	"refund-billing-service/internal/models"
	"refund-billing-service/internal/repository"
)

// Aggregator maintains the per-merchant scoreboard through incremental atomic
// updates. It is best-effort by design: the scoreboard is a cache of truth,
// not the truth itself, and the Reconciler is the recovery path for drift.
type Aggregator struct {
	repo repository.ScoreboardRepositoryInterface
	log  *logrus.Entry
}

// NewAggregator creates a new scoreboard aggregator
func NewAggregator(repo repository.ScoreboardRepositoryInterface, logger *logrus.Logger) *Aggregator {
	return &Aggregator{
		repo: repo,
		log:  logger.WithField("component", "scoreboard.aggregator"),
	}
}

// ApplyEvent atomically adjusts the merchant's scoreboard for a refund
// lifecycle event. Failures are logged and swallowed: a scoreboard write must
// never block or roll back the refund mutation that triggered it.
func (a *Aggregator) ApplyEvent(ctx context.Context, merchantID string, event models.ScoreboardEvent, amount float64) {
	if merchantID == "" {
		return
	}

	delta, err := models.DeltaForEvent(event, amount)
	if err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"merchant_id": merchantID,
			"event":       event,
		}).Error("Dropping scoreboard event")
		return
	}

	if err := a.repo.ApplyDelta(ctx, merchantID, delta); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"merchant_id": merchantID,
			"event":       event,
			"amount":      amount,
		}).Error("Failed to update scoreboard")
		return
	}

	a.log.WithFields(logrus.Fields{
		"merchant_id": merchantID,
		"event":       event,
	}).Debug("Scoreboard updated")
}

// Get returns the current scoreboard for a merchant.
func (a *Aggregator) Get(ctx context.Context, merchantID string) (*models.Scoreboard, error) {
	return a.repo.Get(ctx, merchantID)
}
