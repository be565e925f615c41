package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	razorpayLib "github.com/razorpay/razorpay-go"

	"refund-billing-service/internal/models"
)

// subscriptionTotalCount is how many cycles a gateway subscription runs for
// before it completes on its own (120 monthly cycles = 10 years).
const subscriptionTotalCount = 120

// RazorpayGateway implements SubscriptionGateway for Razorpay
type RazorpayGateway struct {
	client        *razorpayLib.Client
	keyID         string
	webhookSecret string
	planIDs       map[models.PlanType]string
}

// NewRazorpayGateway creates a new Razorpay gateway instance. planIDs maps
// catalog plan keys onto the plan IDs configured in the Razorpay dashboard.
func NewRazorpayGateway(keyID, keySecret, webhookSecret string, planIDs map[models.PlanType]string) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("razorpay key ID and secret are required")
	}

	return &RazorpayGateway{
		client:        razorpayLib.NewClient(keyID, keySecret),
		keyID:         keyID,
		webhookSecret: webhookSecret,
		planIDs:       planIDs,
	}, nil
}

// GetType returns the gateway type
func (g *RazorpayGateway) GetType() GatewayType {
	return GatewayRazorpay
}

// CreateSubscription creates a Razorpay subscription. The merchant ID travels
// in the subscription notes so webhooks can be correlated back.
func (g *RazorpayGateway) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*SubscriptionResult, error) {
	planID, ok := g.planIDs[req.PlanType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotMapped, req.PlanType)
	}

	data := map[string]interface{}{
		"plan_id":         planID,
		"total_count":     subscriptionTotalCount,
		"quantity":        1,
		"customer_notify": 1,
		"notes": map[string]interface{}{
			"merchant_id": req.MerchantID,
		},
	}

	sub, err := g.client.Subscription.Create(data, nil)
	if err != nil {
		return nil, g.wrapError(err)
	}

	subID, _ := sub["id"].(string)
	status, _ := sub["status"].(string)
	if subID == "" {
		return nil, fmt.Errorf("razorpay returned no subscription id")
	}

	return &SubscriptionResult{
		SubscriptionID: subID,
		PublicKey:      g.keyID,
		Status:         status,
	}, nil
}

// UpdateSubscription switches the subscription's plan. Immediate changes
// produce a prorated charge on the gateway side; cycle-end changes take
// effect at renewal.
func (g *RazorpayGateway) UpdateSubscription(ctx context.Context, subscriptionID string, plan models.PlanType, mode PlanChangeMode) error {
	planID, ok := g.planIDs[plan]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlanNotMapped, plan)
	}

	scheduleChangeAt := "now"
	if mode == PlanChangeAtCycleEnd {
		scheduleChangeAt = "cycle_end"
	}

	data := map[string]interface{}{
		"plan_id":            planID,
		"schedule_change_at": scheduleChangeAt,
	}

	if _, err := g.client.Subscription.Update(subscriptionID, data, nil); err != nil {
		return g.wrapError(err)
	}
	return nil
}

// CancelSubscription cancels the subscription immediately
func (g *RazorpayGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	data := map[string]interface{}{
		"cancel_at_cycle_end": 0,
	}
	if _, err := g.client.Subscription.Cancel(subscriptionID, data, nil); err != nil {
		return g.wrapError(err)
	}
	return nil
}

// VerifyWebhookSignature verifies the Razorpay webhook HMAC
func (g *RazorpayGateway) VerifyWebhookSignature(body []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return errors.New("invalid webhook signature")
	}
	return nil
}

// PlanTypeForGatewayPlan maps a Razorpay plan ID back onto the catalog key
func (g *RazorpayGateway) PlanTypeForGatewayPlan(gatewayPlanID string) (models.PlanType, bool) {
	for planType, id := range g.planIDs {
		if id != "" && id == gatewayPlanID {
			return planType, true
		}
	}
	return "", false
}

// wrapError maps known Razorpay failure descriptions onto named errors so
// callers can show actionable messages instead of raw gateway text.
func (g *RazorpayGateway) wrapError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "payment method") || strings.Contains(msg, "emandate") || strings.Contains(msg, "upi"):
		return fmt.Errorf("%w: %v", ErrPaymentMethodRestricted, err)
	case strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %v", ErrSubscriptionNotFound, err)
	}
	return fmt.Errorf("razorpay API error: %w", err)
}
