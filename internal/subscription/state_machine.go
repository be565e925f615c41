package subscription

import (
	"fmt"
	"time"

	"refund-billing-service/internal/models"
)

// ErrInvalidTransition is returned for a status change outside the transition
// table.
type ErrInvalidTransition struct {
	From models.SubscriptionStatus
	To   models.SubscriptionStatus
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid subscription transition: %s -> %s", e.From, e.To)
}

// transitions is the closed transition table. A merchant is always in exactly
// one of the allowed states; the only way forward out of a terminal state is a
// full re-subscription back to active.
var transitions = map[models.SubscriptionStatus][]models.SubscriptionStatus{
	models.SubscriptionPendingPayment: {models.SubscriptionActive, models.SubscriptionCancelled},
	models.SubscriptionActive: {
		models.SubscriptionActive, // plan change while active
		models.SubscriptionSuspended,
		models.SubscriptionCancelled,
		models.SubscriptionExpired,
		models.SubscriptionHalted,
	},
	models.SubscriptionSuspended: {models.SubscriptionActive},
	models.SubscriptionCancelled: {models.SubscriptionActive},
	models.SubscriptionExpired:   {models.SubscriptionActive},
	models.SubscriptionHalted:    {models.SubscriptionActive},
}

// CanTransition reports whether the status change is allowed.
func CanTransition(from, to models.SubscriptionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition applies a validated status change to the merchant. The merchant
// is left in a well-defined state or not changed at all.
func Transition(m *models.Merchant, to models.SubscriptionStatus) error {
	if !models.ValidSubscriptionStatus(to) {
		return ErrInvalidTransition{From: m.SubscriptionStatus, To: to}
	}
	if !CanTransition(m.SubscriptionStatus, to) {
		return ErrInvalidTransition{From: m.SubscriptionStatus, To: to}
	}
	m.SubscriptionStatus = to
	return nil
}

// CanAccessDashboard reports whether a merchant in this status may see refund
// data. Only active merchants have access; cancellation revokes it
// immediately, with no grace period.
func CanAccessDashboard(status models.SubscriptionStatus) bool {
	return status == models.SubscriptionActive
}

// RenewalGracePeriod is how long past the cycle end a renewal payment may
// still arrive before the subscription is expired.
const RenewalGracePeriod = 3 * 24 * time.Hour

// RenewalOverdue reports whether an active merchant's renewal window has
// lapsed as of now.
func RenewalOverdue(m *models.Merchant, now time.Time) bool {
	if m.SubscriptionStatus != models.SubscriptionActive {
		return false
	}
	if m.LastPaymentDate == nil {
		return false
	}
	return now.After(m.CycleEnd().Add(RenewalGracePeriod))
}
