package gateway

import (
	"fmt"
	"strings"

	"refund-billing-service/internal/config"
)

// NewFromConfig builds the configured subscription gateway. Razorpay is the
// primary provider; Stripe is selectable for deployments it cannot serve.
func NewFromConfig(cfg *config.Config) (SubscriptionGateway, error) {
	switch GatewayType(strings.ToUpper(cfg.GatewayType)) {
	case GatewayRazorpay, "":
		return NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret, cfg.RazorpayPlanIDs)
	case GatewayStripe:
		return NewStripeGateway(cfg.StripePublicKey, cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripePriceIDs)
	}
	return nil, fmt.Errorf("unsupported gateway type: %s", cfg.GatewayType)
}
