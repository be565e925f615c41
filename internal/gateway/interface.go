package gateway

import (
	"context"
	"errors"

	"refund-billing-service/internal/models"
)

// GatewayType identifies a subscription gateway provider
type GatewayType string

const (
	GatewayRazorpay GatewayType = "RAZORPAY"
	GatewayStripe   GatewayType = "STRIPE"
)

// Named gateway errors surfaced to callers as user-actionable failures. No
// automatic retry is attempted on any of them.
var (
	ErrPlanNotMapped           = errors.New("plan has no gateway plan mapping")
	ErrPaymentMethodRestricted = errors.New("current payment method does not allow plan changes")
	ErrSubscriptionNotFound    = errors.New("gateway subscription not found")
)

// CreateSubscriptionRequest carries what the gateway needs to start a
// subscription checkout
type CreateSubscriptionRequest struct {
	MerchantID string
	PlanType   models.PlanType
}

// SubscriptionResult is the gateway's reference for a created subscription.
// It carries no payment details: payment confirmation only ever arrives
// through the webhook path.
type SubscriptionResult struct {
	SubscriptionID string
	PublicKey      string
	Status         string
}

// PlanChangeMode distinguishes immediate from scheduled plan changes
type PlanChangeMode string

const (
	PlanChangeImmediate  PlanChangeMode = "immediate"
	PlanChangeAtCycleEnd PlanChangeMode = "cycle_end"
)

// SubscriptionGateway is the contract the billing core depends on. The
// checkout widget a gateway may also provide is strictly a UI affordance;
// nothing here trusts its callbacks.
type SubscriptionGateway interface {
	GetType() GatewayType

	// CreateSubscription creates a new gateway subscription for checkout.
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*SubscriptionResult, error)

	// UpdateSubscription switches an existing subscription to another plan,
	// immediately or at the cycle boundary.
	UpdateSubscription(ctx context.Context, subscriptionID string, plan models.PlanType, mode PlanChangeMode) error

	// CancelSubscription cancels a subscription at the gateway.
	CancelSubscription(ctx context.Context, subscriptionID string) error

	// VerifyWebhookSignature authenticates an incoming webhook body.
	VerifyWebhookSignature(body []byte, signature string) error

	// PlanTypeForGatewayPlan maps a gateway plan reference back onto the
	// catalog key, for plan sync on renewal webhooks.
	PlanTypeForGatewayPlan(gatewayPlanID string) (models.PlanType, bool)
}
