package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"refund-billing-service/internal/billing"
	"refund-billing-service/internal/clients"
	"refund-billing-service/internal/events"
	"refund-billing-service/internal/gateway"
	"refund-billing-service/internal/models"
	"refund-billing-service/internal/repository"
	"refund-billing-service/internal/subscription"
)

// Razorpay event names handled by this service.
const (
	eventSubscriptionAuthenticated = "subscription.authenticated"
	eventSubscriptionCharged       = "subscription.charged"
	eventSubscriptionHalted        = "subscription.halted"
	eventSubscriptionCancelled     = "subscription.cancelled"
)

// razorpayEnvelope is the subset of the webhook body this service reads.
type razorpayEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Subscription struct {
			Entity struct {
				ID     string            `json:"id"`
				PlanID string            `json:"plan_id"`
				Status string            `json:"status"`
				Notes  map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"subscription"`
		Payment struct {
			Entity struct {
				ID     string `json:"id"`
				Amount int64  `json:"amount"` // paise
				Method string `json:"method"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// WebhookService processes gateway webhook deliveries. The charged event is
// the single trusted source for activation and renewal; checkout callbacks
// never touch billing state.
type WebhookService struct {
	merchants    repository.MerchantRepositoryInterface
	billingRepo  repository.BillingRepositoryInterface
	checkouts    repository.CheckoutStoreInterface
	calculator   *billing.Calculator
	gateway      gateway.SubscriptionGateway
	publisher    *events.Publisher
	notification *clients.NotificationClient
	log          *logrus.Entry
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	merchants repository.MerchantRepositoryInterface,
	billingRepo repository.BillingRepositoryInterface,
	checkouts repository.CheckoutStoreInterface,
	calculator *billing.Calculator,
	gw gateway.SubscriptionGateway,
	publisher *events.Publisher,
	notification *clients.NotificationClient,
	logger *logrus.Logger,
) *WebhookService {
	return &WebhookService{
		merchants:    merchants,
		billingRepo:  billingRepo,
		checkouts:    checkouts,
		calculator:   calculator,
		gateway:      gw,
		publisher:    publisher,
		notification: notification,
		log:          logger.WithField("component", "services.webhook"),
	}
}

// Process verifies and handles one webhook delivery. eventID comes from the
// delivery header and deduplicates redelivered events.
func (s *WebhookService) Process(ctx context.Context, eventID string, body []byte, signature string) error {
	if err := s.gateway.VerifyWebhookSignature(body, signature); err != nil {
		return err
	}

	var envelope razorpayEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse webhook body: %w", err)
	}

	gatewayType := string(s.gateway.GetType())
	if eventID == "" {
		eventID = uuid.New().String()
	}

	var payload models.JSONB
	_ = json.Unmarshal(body, &payload)
	record := &models.WebhookEvent{
		GatewayType: gatewayType,
		EventID:     eventID,
		EventType:   envelope.Event,
		Payload:     payload,
	}

	if existing, err := s.billingRepo.GetWebhookEvent(ctx, gatewayType, eventID); err == nil {
		if existing.Processed {
			s.log.WithField("event_id", eventID).Info("Webhook already processed, skipping")
			return nil
		}
		// Redelivery of an event whose earlier attempt failed; reprocess
		// under the stored row.
		record = existing
		record.ProcessingError = ""
	} else if err := s.billingRepo.CreateWebhookEvent(ctx, record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The (gateway_type, event_id) insert arbitrates concurrent
			// deliveries; losing it means another worker owns this event.
			s.log.WithField("event_id", eventID).Info("Webhook event claimed by a concurrent delivery, skipping")
			return nil
		}
		s.log.WithError(err).WithField("event_id", eventID).Warn("Failed to store webhook event")
	}

	err := s.dispatch(ctx, &envelope)

	now := time.Now()
	record.ProcessedAt = &now
	if err != nil {
		record.ProcessingError = err.Error()
	} else {
		record.Processed = true
	}
	if updateErr := s.billingRepo.UpdateWebhookEvent(ctx, record); updateErr != nil {
		s.log.WithError(updateErr).WithField("event_id", eventID).Warn("Failed to update webhook event state")
	}

	return err
}

func (s *WebhookService) dispatch(ctx context.Context, envelope *razorpayEnvelope) error {
	switch envelope.Event {
	case eventSubscriptionAuthenticated:
		// Authentication means the mandate exists, not that money moved.
		// Activation waits for subscription.charged.
		s.log.WithField("subscription_id", envelope.Payload.Subscription.Entity.ID).
			Info("Subscription authenticated, awaiting first charge")
		return nil
	case eventSubscriptionCharged:
		return s.handleCharged(ctx, envelope)
	case eventSubscriptionHalted:
		return s.handleHalted(ctx, envelope)
	case eventSubscriptionCancelled:
		return s.handleCancelled(ctx, envelope)
	default:
		s.log.WithField("event", envelope.Event).Debug("Ignoring unhandled webhook event")
		return nil
	}
}

// handleCharged is the renewal commit point: plan sync, activation, ledger
// append and cycle reset happen here, exactly once per gateway payment.
func (s *WebhookService) handleCharged(ctx context.Context, envelope *razorpayEnvelope) error {
	sub := envelope.Payload.Subscription.Entity
	payment := envelope.Payload.Payment.Entity

	if payment.ID != "" {
		if _, err := s.billingRepo.GetPaymentByGatewayID(ctx, payment.ID); err == nil {
			s.log.WithField("gateway_payment_id", payment.ID).Info("Payment already recorded, skipping")
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	merchant, err := s.resolveMerchant(ctx, sub.Notes, sub.ID)
	if err != nil {
		return err
	}

	// Plan sync: the gateway's plan reference wins over local state, so a
	// plan change completed at the gateway is reflected even if our own
	// update was missed.
	if planType, ok := s.gateway.PlanTypeForGatewayPlan(sub.PlanID); ok {
		merchant.PlanType = planType
	} else if sub.PlanID != "" {
		s.log.WithFields(logrus.Fields{
			"merchant_id": merchant.ID,
			"plan_id":     sub.PlanID,
		}).Warn("Gateway plan not mapped to any catalog plan, keeping local plan")
	}

	// Usage must be read against the closing cycle, before the payment date
	// moves the window.
	charge, err := s.calculator.RenewalDue(ctx, merchant)
	if err != nil {
		return err
	}

	if merchant.SubscriptionStatus != models.SubscriptionActive {
		if err := subscription.Transition(merchant, models.SubscriptionActive); err != nil {
			// Charged is authoritative: whatever the local state says, money
			// moved. Force active rather than strand a paying merchant.
			s.log.WithError(err).WithField("merchant_id", merchant.ID).Warn("Forcing active on charge")
			merchant.SubscriptionStatus = models.SubscriptionActive
		}
	}

	now := time.Now()
	merchant.LastPaymentDate = &now
	merchant.UpcomingPlan = nil
	merchant.UpcomingPlanDate = nil
	if sub.ID != "" && sub.ID != merchant.GatewaySubscriptionID {
		// Plan changes create a replacement subscription at the gateway;
		// adopt the one that actually charged.
		merchant.GatewaySubscriptionID = sub.ID
	}

	if err := s.merchants.Update(ctx, merchant); err != nil {
		return fmt.Errorf("failed to persist renewal: %w", err)
	}

	amount := charge.Bill.Total
	if payment.Amount > 0 {
		amount = float64(payment.Amount) / 100
	}

	ledgerEntry := &models.PaymentRecord{
		ID:                    uuid.New(),
		MerchantID:            merchant.ID,
		Amount:                amount,
		BasePrice:             charge.Plan.BasePrice,
		UsageCount:            charge.Usage,
		UsageLimit:            charge.Plan.IncludedRefunds,
		ExcessRate:            charge.Plan.ExcessRate,
		PlanName:              charge.Plan.Name,
		Status:                models.PaymentRecordPaid,
		GatewayPaymentID:      payment.ID,
		GatewaySubscriptionID: sub.ID,
		InvoiceNumber:         newInvoiceNumber(now),
		Method:                payment.Method,
	}
	if err := s.billingRepo.CreatePaymentRecord(ctx, ledgerEntry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent delivery already appended this payment; the ledger
			// stays single-entry per gateway payment.
			s.log.WithField("gateway_payment_id", payment.ID).Info("Payment already recorded concurrently")
			return nil
		}
		return fmt.Errorf("failed to append payment record: %w", err)
	}

	if err := s.checkouts.Clear(ctx, merchant.ID); err != nil {
		s.log.WithError(err).WithField("merchant_id", merchant.ID).Warn("Failed to clear checkout marker")
	}

	if err := s.publisher.PublishSubscriptionCharged(ctx, merchant.ID, string(merchant.PlanType), sub.ID, amount); err != nil {
		s.log.WithError(err).Warn("Failed to publish subscription charged event")
	}
	go func(merchantID, email, planName, invoice string, amount float64) {
		nctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = s.notification.SubscriptionChargedNotification(nctx, merchantID, email, planName, amount, invoice)
	}(merchant.ID, merchant.Email, charge.Plan.Name, ledgerEntry.InvoiceNumber, amount)

	s.log.WithFields(logrus.Fields{
		"merchant_id":        merchant.ID,
		"plan":               merchant.PlanType,
		"amount":             amount,
		"usage":              charge.Usage,
		"gateway_payment_id": payment.ID,
	}).Info("Subscription charged, cycle renewed")

	return nil
}

func (s *WebhookService) handleHalted(ctx context.Context, envelope *razorpayEnvelope) error {
	sub := envelope.Payload.Subscription.Entity
	merchant, err := s.resolveMerchant(ctx, sub.Notes, sub.ID)
	if err != nil {
		return err
	}

	if err := subscription.Transition(merchant, models.SubscriptionHalted); err != nil {
		s.log.WithError(err).WithField("merchant_id", merchant.ID).Warn("Halted webhook on non-active merchant")
		return nil
	}
	if err := s.merchants.Update(ctx, merchant); err != nil {
		return err
	}

	if err := s.publisher.PublishSubscriptionHalted(ctx, merchant.ID, string(merchant.PlanType), sub.ID); err != nil {
		s.log.WithError(err).Warn("Failed to publish subscription halted event")
	}
	go func(merchantID, email string) {
		nctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = s.notification.SubscriptionHaltedNotification(nctx, merchantID, email)
	}(merchant.ID, merchant.Email)

	s.log.WithField("merchant_id", merchant.ID).Warn("Subscription halted by gateway")
	return nil
}

func (s *WebhookService) handleCancelled(ctx context.Context, envelope *razorpayEnvelope) error {
	sub := envelope.Payload.Subscription.Entity
	merchant, err := s.resolveMerchant(ctx, sub.Notes, sub.ID)
	if err != nil {
		return err
	}

	if merchant.SubscriptionStatus == models.SubscriptionCancelled {
		return nil
	}
	if err := subscription.Transition(merchant, models.SubscriptionCancelled); err != nil {
		s.log.WithError(err).WithField("merchant_id", merchant.ID).Warn("Cancelled webhook on merchant in terminal state")
		return nil
	}
	if err := s.merchants.Update(ctx, merchant); err != nil {
		return err
	}

	s.log.WithField("merchant_id", merchant.ID).Info("Subscription cancelled by gateway")
	return nil
}

// resolveMerchant finds the merchant for a subscription event: the merchant_id
// note stamped at creation wins, then the stored gateway reference.
func (s *WebhookService) resolveMerchant(ctx context.Context, notes map[string]string, subscriptionID string) (*models.Merchant, error) {
	if merchantID := notes["merchant_id"]; merchantID != "" {
		merchant, err := s.merchants.Get(ctx, merchantID)
		if err == nil {
			return merchant, nil
		}
		if !errors.Is(err, models.ErrMerchantNotFound) {
			return nil, err
		}
	}
	if subscriptionID != "" {
		return s.merchants.GetByGatewaySubscription(ctx, subscriptionID)
	}
	return nil, models.ErrMerchantNotFound
}

func newInvoiceNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("INV-%s-%s", at.Format("200601"), suffix)
}
