package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Subjects published by this service.
const (
	SubjectRefundCreated       = "refund.created"
	SubjectRefundStatusChanged = "refund.status_changed"
	SubjectBillingCharged      = "billing.subscription_charged"
	SubjectBillingHalted       = "billing.subscription_halted"
)

// RefundEvent is the payload for refund.* subjects
type RefundEvent struct {
	EventID    string    `json:"eventId"`
	MerchantID string    `json:"merchantId"`
	RefundID   string    `json:"refundId"`
	Status     string    `json:"status"`
	Amount     float64   `json:"amount"`
	OccurredAt time.Time `json:"occurredAt"`
}

// BillingEvent is the payload for billing.* subjects
type BillingEvent struct {
	EventID        string    `json:"eventId"`
	MerchantID     string    `json:"merchantId"`
	PlanType       string    `json:"planType"`
	Amount         float64   `json:"amount,omitempty"`
	SubscriptionID string    `json:"subscriptionId,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Publisher publishes refund and billing events to NATS. A publisher whose
// connection failed at startup stays usable: publishes become logged no-ops so
// the billing path never depends on the broker being up.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS. Connection failure is reported but does not
// return an error; the caller gets a degraded publisher.
func NewPublisher(natsURL string, logger *logrus.Logger) *Publisher {
	log := logger.WithField("component", "events.publisher")

	conn, err := nats.Connect(natsURL,
		nats.Name("refund-billing-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		log.WithError(err).Warn("Failed to connect to NATS, events will be dropped")
		conn = nil
	}

	return &Publisher{conn: conn, logger: log}
}

// PublishRefundCreated publishes a refund created event
func (p *Publisher) PublishRefundCreated(ctx context.Context, merchantID, refundID string, amount float64) error {
	return p.publish(SubjectRefundCreated, RefundEvent{
		EventID:    uuid.New().String(),
		MerchantID: merchantID,
		RefundID:   refundID,
		Status:     "GATHERING",
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	})
}

// PublishRefundStatusChanged publishes a refund status change event
func (p *Publisher) PublishRefundStatusChanged(ctx context.Context, merchantID, refundID, status string, amount float64) error {
	return p.publish(SubjectRefundStatusChanged, RefundEvent{
		EventID:    uuid.New().String(),
		MerchantID: merchantID,
		RefundID:   refundID,
		Status:     status,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	})
}

// PublishSubscriptionCharged publishes a successful renewal event
func (p *Publisher) PublishSubscriptionCharged(ctx context.Context, merchantID, planType, subscriptionID string, amount float64) error {
	return p.publish(SubjectBillingCharged, BillingEvent{
		EventID:        uuid.New().String(),
		MerchantID:     merchantID,
		PlanType:       planType,
		Amount:         amount,
		SubscriptionID: subscriptionID,
		OccurredAt:     time.Now().UTC(),
	})
}

// PublishSubscriptionHalted publishes a renewal failure event
func (p *Publisher) PublishSubscriptionHalted(ctx context.Context, merchantID, planType, subscriptionID string) error {
	return p.publish(SubjectBillingHalted, BillingEvent{
		EventID:        uuid.New().String(),
		MerchantID:     merchantID,
		PlanType:       planType,
		SubscriptionID: subscriptionID,
		OccurredAt:     time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, payload interface{}) error {
	if p.conn == nil {
		p.logger.WithField("subject", subject).Debug("NATS unavailable, dropping event")
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
		return err
	}
	return nil
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close drains and closes the connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
