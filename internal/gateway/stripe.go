package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	stripeclient "github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"refund-billing-service/internal/models"
)

// StripeGateway implements SubscriptionGateway for Stripe. It exists for
// deployments outside Razorpay's coverage; the core treats both providers
// identically through the SubscriptionGateway contract.
type StripeGateway struct {
	api           *stripeclient.API
	publicKey     string
	webhookSecret string
	priceIDs      map[models.PlanType]string
}

// NewStripeGateway creates a new Stripe gateway instance. priceIDs maps
// catalog plan keys onto Stripe recurring price IDs.
func NewStripeGateway(publicKey, secretKey, webhookSecret string, priceIDs map[models.PlanType]string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	api := &stripeclient.API{}
	api.Init(secretKey, nil)

	return &StripeGateway{
		api:           api,
		publicKey:     publicKey,
		webhookSecret: webhookSecret,
		priceIDs:      priceIDs,
	}, nil
}

// GetType returns the gateway type
func (g *StripeGateway) GetType() GatewayType {
	return GatewayStripe
}

// CreateSubscription creates a Stripe customer and an incomplete subscription
// for checkout. The merchant ID travels in the subscription metadata.
func (g *StripeGateway) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*SubscriptionResult, error) {
	priceID, ok := g.priceIDs[req.PlanType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotMapped, req.PlanType)
	}

	cust, err := g.api.Customers.New(&stripe.CustomerParams{
		Params: stripe.Params{
			Context:  ctx,
			Metadata: map[string]string{"merchant_id": req.MerchantID},
		},
	})
	if err != nil {
		return nil, g.wrapError(err)
	}

	sub, err := g.api.Subscriptions.New(&stripe.SubscriptionParams{
		Params: stripe.Params{
			Context:  ctx,
			Metadata: map[string]string{"merchant_id": req.MerchantID},
		},
		Customer: stripe.String(cust.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	})
	if err != nil {
		return nil, g.wrapError(err)
	}

	return &SubscriptionResult{
		SubscriptionID: sub.ID,
		PublicKey:      g.publicKey,
		Status:         string(sub.Status),
	}, nil
}

// UpdateSubscription switches the subscription's price
func (g *StripeGateway) UpdateSubscription(ctx context.Context, subscriptionID string, plan models.PlanType, mode PlanChangeMode) error {
	priceID, ok := g.priceIDs[plan]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlanNotMapped, plan)
	}

	sub, err := g.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return g.wrapError(err)
	}
	if len(sub.Items.Data) == 0 {
		return fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	prorationBehavior := "always_invoice"
	if mode == PlanChangeAtCycleEnd {
		prorationBehavior = "none"
	}

	_, err = g.api.Subscriptions.Update(subscriptionID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(priceID),
			},
		},
		ProrationBehavior: stripe.String(prorationBehavior),
	})
	if err != nil {
		return g.wrapError(err)
	}
	return nil
}

// CancelSubscription cancels the subscription immediately
func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	_, err := g.api.Subscriptions.Cancel(subscriptionID, &stripe.SubscriptionCancelParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return g.wrapError(err)
	}
	return nil
}

// VerifyWebhookSignature verifies the Stripe webhook signature
func (g *StripeGateway) VerifyWebhookSignature(body []byte, signature string) error {
	if _, err := webhook.ConstructEvent(body, signature, g.webhookSecret); err != nil {
		return fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return nil
}

// PlanTypeForGatewayPlan maps a Stripe price ID back onto the catalog key
func (g *StripeGateway) PlanTypeForGatewayPlan(gatewayPlanID string) (models.PlanType, bool) {
	for planType, id := range g.priceIDs {
		if id != "" && id == gatewayPlanID {
			return planType, true
		}
	}
	return "", false
}

func (g *StripeGateway) wrapError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "payment method"):
		return fmt.Errorf("%w: %v", ErrPaymentMethodRestricted, err)
	case strings.Contains(msg, "no such subscription"):
		return fmt.Errorf("%w: %v", ErrSubscriptionNotFound, err)
	}
	return fmt.Errorf("stripe API error: %w", err)
}
