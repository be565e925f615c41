package subscription

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"refund-billing-service/internal/models"
	"refund-billing-service/internal/repository"
)

// Poller defaults: 2s interval, 20 attempts, ~40 seconds total.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxAttempts  = 20
)

// VerificationOutcome is the result of a payment verification poll.
type VerificationOutcome string

const (
	// VerificationConfirmed means the server-confirmed status became active.
	VerificationConfirmed VerificationOutcome = "confirmed"
	// VerificationTimeout means attempts were exhausted without observing
	// activation. This is ambiguous, not a failure: funds may have moved and
	// the asynchronous webhook will self-correct the status.
	VerificationTimeout VerificationOutcome = "timeout"
)

// Poller bridges the gap between a completed checkout and the authoritative
// server-side status change. The gateway's client callback carries no trusted
// payment details, so the only success signal is the persisted merchant
// status flipping to active once the webhook lands.
type Poller struct {
	merchants   repository.MerchantRepositoryInterface
	interval    time.Duration
	maxAttempts int
	log         *logrus.Entry
}

// NewPoller creates a verification poller with the given bounds. Zero values
// select the defaults.
func NewPoller(merchants repository.MerchantRepositoryInterface, interval time.Duration, maxAttempts int, logger *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Poller{
		merchants:   merchants,
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         logger.WithField("component", "subscription.poller"),
	}
}

// AwaitActivation polls the persisted merchant status until it becomes
// active, the attempt ceiling is reached, or ctx is cancelled. It stops
// immediately on success; no orphaned loops survive the return.
func (p *Poller) AwaitActivation(ctx context.Context, merchantID string) (VerificationOutcome, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return VerificationTimeout, ctx.Err()
		case <-ticker.C:
		}

		merchant, err := p.merchants.Get(ctx, merchantID)
		if err != nil {
			// Transient read failures consume an attempt but do not abort:
			// the status may still flip before the ceiling.
			p.log.WithError(err).WithFields(logrus.Fields{
				"merchant_id": merchantID,
				"attempt":     attempt,
			}).Warn("Verification poll read failed")
			continue
		}

		if merchant.SubscriptionStatus == models.SubscriptionActive {
			p.log.WithFields(logrus.Fields{
				"merchant_id": merchantID,
				"attempt":     attempt,
			}).Info("Payment verified, subscription active")
			return VerificationConfirmed, nil
		}
	}

	p.log.WithField("merchant_id", merchantID).
		Warn("Payment verification timed out; status will self-correct when the webhook arrives")
	return VerificationTimeout, nil
}
