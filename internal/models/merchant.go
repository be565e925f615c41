package models

import (
	"errors"
	"time"
)

// Merchant configuration errors
var (
	ErrMerchantNotFound      = errors.New("merchant not found")
	ErrMissingRequiredField  = errors.New("merchant is missing a required field")
	ErrSubscriptionActive    = errors.New("merchant already has an active subscription")
	ErrNoGatewaySubscription = errors.New("merchant has no gateway subscription reference")
)

// PlanType identifies a subscription tier in the plan catalog
type PlanType string

const (
	PlanStartup PlanType = "startup"
	PlanGrowth  PlanType = "growth"
	PlanScale   PlanType = "scale"
)

// SubscriptionStatus represents the merchant subscription lifecycle state
type SubscriptionStatus string

const (
	SubscriptionPendingPayment SubscriptionStatus = "pending_payment"
	SubscriptionActive         SubscriptionStatus = "active"
	SubscriptionSuspended      SubscriptionStatus = "suspended"
	SubscriptionCancelled      SubscriptionStatus = "cancelled"
	SubscriptionExpired        SubscriptionStatus = "expired"
	SubscriptionHalted         SubscriptionStatus = "halted"
)

// ValidSubscriptionStatus reports whether s is a member of the closed status set.
func ValidSubscriptionStatus(s SubscriptionStatus) bool {
	switch s {
	case SubscriptionPendingPayment, SubscriptionActive, SubscriptionSuspended,
		SubscriptionCancelled, SubscriptionExpired, SubscriptionHalted:
		return true
	}
	return false
}

// Merchant represents a tenant of the refund platform. Merchants are created on
// first authentication and are never hard-deleted; lifecycle changes are status
// transitions only.
type Merchant struct {
	ID        string `gorm:"type:varchar(128);primaryKey" json:"id"`
	BrandName string `gorm:"type:varchar(255)" json:"brandName"`
	Email     string `gorm:"type:varchar(255)" json:"email,omitempty"`

	PlanType           PlanType           `gorm:"type:varchar(50);default:'startup'" json:"planType"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:varchar(50);not null;default:'pending_payment';index:idx_merchants_status" json:"subscriptionStatus"`

	// LastPaymentDate anchors the current billing cycle. Nil means no payment
	// has ever been collected.
	LastPaymentDate *time.Time `json:"lastPaymentDate,omitempty"`

	// Scheduled downgrade, applied at the next cycle boundary.
	UpcomingPlan     *PlanType  `gorm:"type:varchar(50)" json:"upcomingPlan,omitempty"`
	UpcomingPlanDate *time.Time `json:"upcomingPlanDate,omitempty"`

	// External gateway subscription reference (swapped on re-subscription).
	GatewaySubscriptionID string `gorm:"type:varchar(255);index:idx_merchants_gateway_sub" json:"gatewaySubscriptionId,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Merchant
func (Merchant) TableName() string {
	return "merchants"
}

// CycleStart returns the start of the current billing cycle. Merchants with no
// payment history fall back to their creation time so usage windows are still
// well defined.
func (m *Merchant) CycleStart() time.Time {
	if m.LastPaymentDate != nil {
		return *m.LastPaymentDate
	}
	return m.CreatedAt
}

// CycleEnd returns the end of the current billing cycle (30-day cycles).
func (m *Merchant) CycleEnd() time.Time {
	return m.CycleStart().Add(BillingCycle)
}

// BillingCycle is the fixed subscription cycle length.
const BillingCycle = 30 * 24 * time.Hour
