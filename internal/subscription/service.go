package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"refund-billing-service/internal/billing"
	"refund-billing-service/internal/gateway"
	"refund-billing-service/internal/models"
	"refund-billing-service/internal/repository"
)

// Service governs merchant subscription lifecycle: checkout, plan changes,
// cancellation and administrative overrides. All money math is delegated to
// the billing calculator; all state changes go through the transition table.
type Service struct {
	merchants  repository.MerchantRepositoryInterface
	checkouts  repository.CheckoutStoreInterface
	catalog    *billing.Catalog
	calculator *billing.Calculator
	gateway    gateway.SubscriptionGateway
	log        *logrus.Entry
}

// NewService creates a new subscription service
func NewService(
	merchants repository.MerchantRepositoryInterface,
	checkouts repository.CheckoutStoreInterface,
	catalog *billing.Catalog,
	calculator *billing.Calculator,
	gw gateway.SubscriptionGateway,
	logger *logrus.Logger,
) *Service {
	return &Service{
		merchants:  merchants,
		checkouts:  checkouts,
		catalog:    catalog,
		calculator: calculator,
		gateway:    gw,
		log:        logger.WithField("component", "subscription.service"),
	}
}

// CreateCheckout starts a gateway subscription for the merchant and returns
// the checkout reference. Blocked while a subscription is already active; any
// terminal state (cancelled, expired, halted, suspended) may re-subscribe.
// The merchant's stored gateway reference is NOT swapped here: that happens
// only when the charge is confirmed through the webhook path.
func (s *Service) CreateCheckout(ctx context.Context, merchantID string, planType models.PlanType) (*models.CreateSubscriptionResponse, error) {
	if _, err := s.catalog.Lookup(planType); err != nil {
		return nil, err
	}

	merchant, err := s.merchants.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if merchant.SubscriptionStatus == models.SubscriptionActive {
		return nil, models.ErrSubscriptionActive
	}

	result, err := s.gateway.CreateSubscription(ctx, &gateway.CreateSubscriptionRequest{
		MerchantID: merchantID,
		PlanType:   planType,
	})
	if err != nil {
		return nil, err
	}

	if err := s.checkouts.MarkPending(ctx, merchantID, result.SubscriptionID); err != nil {
		// Marker is cosmetic (drives the "processing" hint in status polls);
		// checkout proceeds without it.
		s.log.WithError(err).WithField("merchant_id", merchantID).Warn("Failed to mark checkout pending")
	}

	s.log.WithFields(logrus.Fields{
		"merchant_id":     merchantID,
		"plan":            planType,
		"subscription_id": result.SubscriptionID,
	}).Info("Checkout created")

	return &models.CreateSubscriptionResponse{
		SubscriptionID: result.SubscriptionID,
		GatewayType:    string(s.gateway.GetType()),
		PublicKey:      result.PublicKey,
	}, nil
}

// ChangePlan upgrades immediately (prorated charge at the gateway) or
// schedules a downgrade for the next cycle boundary. Downgrades never charge
// now.
func (s *Service) ChangePlan(ctx context.Context, merchantID string, newPlan models.PlanType) (*models.UpdatePlanResponse, error) {
	merchant, err := s.merchants.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if merchant.SubscriptionStatus != models.SubscriptionActive {
		return nil, fmt.Errorf("subscription is %s, only active subscriptions can change plan", merchant.SubscriptionStatus)
	}
	if merchant.GatewaySubscriptionID == "" {
		return nil, models.ErrNoGatewaySubscription
	}

	current, err := s.catalog.Lookup(merchant.PlanType)
	if err != nil {
		return nil, err
	}
	target, err := s.catalog.Lookup(newPlan)
	if err != nil {
		return nil, err
	}
	if target.Key == current.Key {
		return nil, fmt.Errorf("merchant is already on plan %s", newPlan)
	}

	if target.BasePrice > current.BasePrice {
		return s.upgrade(ctx, merchant, newPlan)
	}
	return s.downgrade(ctx, merchant, newPlan)
}

func (s *Service) upgrade(ctx context.Context, merchant *models.Merchant, newPlan models.PlanType) (*models.UpdatePlanResponse, error) {
	proration, err := s.calculator.UpgradeProration(merchant, newPlan, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.gateway.UpdateSubscription(ctx, merchant.GatewaySubscriptionID, newPlan, gateway.PlanChangeImmediate); err != nil {
		return nil, err
	}

	merchant.PlanType = newPlan
	merchant.UpcomingPlan = nil
	merchant.UpcomingPlanDate = nil
	if err := s.merchants.Update(ctx, merchant); err != nil {
		return nil, fmt.Errorf("gateway updated but failed to persist plan change: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"merchant_id": merchant.ID,
		"plan":        newPlan,
		"prorated":    proration.Bill.Total,
	}).Info("Plan upgraded")

	due := proration.Bill.Total
	return &models.UpdatePlanResponse{Mode: "upgrade", ProratedDue: &due}, nil
}

func (s *Service) downgrade(ctx context.Context, merchant *models.Merchant, newPlan models.PlanType) (*models.UpdatePlanResponse, error) {
	scheduled, err := s.calculator.ScheduleDowngrade(merchant, newPlan)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.UpdateSubscription(ctx, merchant.GatewaySubscriptionID, newPlan, gateway.PlanChangeAtCycleEnd); err != nil {
		return nil, err
	}

	plan := scheduled.TargetPlan.Key
	effective := scheduled.EffectiveDate
	merchant.UpcomingPlan = &plan
	merchant.UpcomingPlanDate = &effective
	if err := s.merchants.Update(ctx, merchant); err != nil {
		return nil, fmt.Errorf("gateway updated but failed to persist scheduled downgrade: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"merchant_id": merchant.ID,
		"plan":        newPlan,
		"effective":   effective,
	}).Info("Downgrade scheduled")

	return &models.UpdatePlanResponse{Mode: "downgrade", EffectiveDate: &effective}, nil
}

// Cancel cancels the subscription at the gateway and revokes access
// immediately.
func (s *Service) Cancel(ctx context.Context, merchantID string) error {
	merchant, err := s.merchants.Get(ctx, merchantID)
	if err != nil {
		return err
	}
	if merchant.GatewaySubscriptionID == "" {
		return models.ErrNoGatewaySubscription
	}

	if err := s.gateway.CancelSubscription(ctx, merchant.GatewaySubscriptionID); err != nil {
		// Already-gone subscriptions still cancel locally; anything else
		// blocks so gateway and local state cannot silently diverge.
		if !errors.Is(err, gateway.ErrSubscriptionNotFound) {
			return err
		}
	}

	if err := Transition(merchant, models.SubscriptionCancelled); err != nil {
		return err
	}
	if err := s.merchants.Update(ctx, merchant); err != nil {
		return err
	}

	s.log.WithField("merchant_id", merchantID).Info("Subscription cancelled")
	return nil
}

// AdminSuspend force-suspends an active merchant. No billing side effect.
func (s *Service) AdminSuspend(ctx context.Context, merchantID string) error {
	return s.adminFlip(ctx, merchantID, models.SubscriptionSuspended)
}

// AdminActivate re-activates a suspended merchant. No billing side effect.
func (s *Service) AdminActivate(ctx context.Context, merchantID string) error {
	return s.adminFlip(ctx, merchantID, models.SubscriptionActive)
}

func (s *Service) adminFlip(ctx context.Context, merchantID string, to models.SubscriptionStatus) error {
	merchant, err := s.merchants.Get(ctx, merchantID)
	if err != nil {
		return err
	}
	if err := Transition(merchant, to); err != nil {
		return err
	}
	if err := s.merchants.Update(ctx, merchant); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"merchant_id": merchantID,
		"status":      to,
	}).Info("Admin status change")
	return nil
}

// RescueFields are the backfills ForceRescue may apply.
type RescueFields struct {
	PlanType  models.PlanType
	BrandName string
}

// ForceRescue is an administrative repair: it sets the merchant active and
// backfills missing required fields, bypassing the transition table. It is
// not a business transition and is logged as a manual override.
func (s *Service) ForceRescue(ctx context.Context, merchantID string, fields RescueFields) error {
	merchant, err := s.merchants.Get(ctx, merchantID)
	if err != nil {
		return err
	}

	if merchant.PlanType == "" {
		planType := fields.PlanType
		if planType == "" {
			planType = models.PlanStartup
		}
		if _, err := s.catalog.Lookup(planType); err != nil {
			return err
		}
		merchant.PlanType = planType
	}
	if merchant.BrandName == "" {
		if fields.BrandName == "" {
			return fmt.Errorf("%w: brand_name", models.ErrMissingRequiredField)
		}
		merchant.BrandName = fields.BrandName
	}
	if merchant.LastPaymentDate == nil {
		now := time.Now()
		merchant.LastPaymentDate = &now
	}
	merchant.SubscriptionStatus = models.SubscriptionActive

	if err := s.merchants.Update(ctx, merchant); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"merchant_id": merchantID,
		"operator":    "admin",
	}).Warn("MANUAL OVERRIDE: merchant force-rescued to active")
	return nil
}

// Status returns the polling bridge payload for a merchant.
func (s *Service) Status(ctx context.Context, merchantID string) (*models.SubscriptionStatusResponse, error) {
	merchant, err := s.merchants.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	_, pending, err := s.checkouts.PendingSubscription(ctx, merchantID)
	if err != nil {
		// The pending marker is advisory; status polls must not fail with it.
		s.log.WithError(err).WithField("merchant_id", merchantID).Warn("Failed to read checkout marker")
		pending = false
	}
	if merchant.SubscriptionStatus == models.SubscriptionActive {
		pending = false
	}

	return &models.SubscriptionStatusResponse{
		MerchantID:         merchant.ID,
		SubscriptionStatus: merchant.SubscriptionStatus,
		PlanType:           merchant.PlanType,
		CheckoutPending:    pending,
	}, nil
}
