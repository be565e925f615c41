package subscription

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"refund-billing-service/internal/models"
)

func TestCanTransition_Table(t *testing.T) {
	tests := []struct {
		from    models.SubscriptionStatus
		to      models.SubscriptionStatus
		allowed bool
	}{
		{models.SubscriptionPendingPayment, models.SubscriptionActive, true},
		{models.SubscriptionPendingPayment, models.SubscriptionCancelled, true},
		{models.SubscriptionPendingPayment, models.SubscriptionSuspended, false},
		{models.SubscriptionPendingPayment, models.SubscriptionExpired, false},

		{models.SubscriptionActive, models.SubscriptionActive, true},
		{models.SubscriptionActive, models.SubscriptionSuspended, true},
		{models.SubscriptionActive, models.SubscriptionCancelled, true},
		{models.SubscriptionActive, models.SubscriptionExpired, true},
		{models.SubscriptionActive, models.SubscriptionHalted, true},
		{models.SubscriptionActive, models.SubscriptionPendingPayment, false},

		// Re-subscription is the only way forward out of a lapsed state
		{models.SubscriptionSuspended, models.SubscriptionActive, true},
		{models.SubscriptionSuspended, models.SubscriptionExpired, false},
		{models.SubscriptionCancelled, models.SubscriptionActive, true},
		{models.SubscriptionCancelled, models.SubscriptionSuspended, false},
		{models.SubscriptionExpired, models.SubscriptionActive, true},
		{models.SubscriptionExpired, models.SubscriptionCancelled, false},
		{models.SubscriptionHalted, models.SubscriptionActive, true},
		{models.SubscriptionHalted, models.SubscriptionCancelled, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTransition_AppliesOrLeavesUntouched(t *testing.T) {
	m := &models.Merchant{SubscriptionStatus: models.SubscriptionActive}

	err := Transition(m, models.SubscriptionHalted)
	assert.NoError(t, err)
	assert.Equal(t, models.SubscriptionHalted, m.SubscriptionStatus)

	err = Transition(m, models.SubscriptionCancelled)
	assert.Error(t, err)
	assert.Equal(t, models.SubscriptionHalted, m.SubscriptionStatus)

	var invalid ErrInvalidTransition
	assert.True(t, errors.As(err, &invalid))
	assert.Equal(t, models.SubscriptionHalted, invalid.From)
	assert.Equal(t, models.SubscriptionCancelled, invalid.To)
}

func TestTransition_RejectsUnknownStatus(t *testing.T) {
	m := &models.Merchant{SubscriptionStatus: models.SubscriptionActive}

	err := Transition(m, "paused")
	assert.Error(t, err)
	assert.Equal(t, models.SubscriptionActive, m.SubscriptionStatus)
}

func TestCanAccessDashboard_OnlyActive(t *testing.T) {
	assert.True(t, CanAccessDashboard(models.SubscriptionActive))

	for _, status := range []models.SubscriptionStatus{
		models.SubscriptionPendingPayment,
		models.SubscriptionSuspended,
		models.SubscriptionCancelled,
		models.SubscriptionExpired,
		models.SubscriptionHalted,
	} {
		assert.False(t, CanAccessDashboard(status), "%s must not see the dashboard", status)
	}
}

func TestRenewalOverdue(t *testing.T) {
	now := time.Now()

	paid := now.Add(-31 * 24 * time.Hour)
	inGrace := &models.Merchant{
		SubscriptionStatus: models.SubscriptionActive,
		LastPaymentDate:    &paid,
	}
	// 31 days since payment: cycle lapsed but inside the 3-day grace window
	assert.False(t, RenewalOverdue(inGrace, now))

	paidLong := now.Add(-34 * 24 * time.Hour)
	overdue := &models.Merchant{
		SubscriptionStatus: models.SubscriptionActive,
		LastPaymentDate:    &paidLong,
	}
	assert.True(t, RenewalOverdue(overdue, now))

	// Non-active merchants are never swept here
	halted := &models.Merchant{
		SubscriptionStatus: models.SubscriptionHalted,
		LastPaymentDate:    &paidLong,
	}
	assert.False(t, RenewalOverdue(halted, now))

	// No payment history means no renewal to be overdue on
	neverPaid := &models.Merchant{SubscriptionStatus: models.SubscriptionActive}
	assert.False(t, RenewalOverdue(neverPaid, now))
}
