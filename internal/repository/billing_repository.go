package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"refund-billing-service/internal/models"
)

// BillingRepositoryInterface defines payment ledger and webhook event operations
type BillingRepositoryInterface interface {
	CreatePaymentRecord(ctx context.Context, record *models.PaymentRecord) error
	GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.PaymentRecord, error)
	ListPaymentsByMerchant(ctx context.Context, merchantID string, limit int) ([]models.PaymentRecord, error)
	CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error
	GetWebhookEvent(ctx context.Context, gatewayType, eventID string) (*models.WebhookEvent, error)
	UpdateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error
}

// BillingRepository handles the append-only payment ledger and stored webhook
// events
type BillingRepository struct {
	db *gorm.DB
}

var _ BillingRepositoryInterface = (*BillingRepository)(nil)

// NewBillingRepository creates a new billing repository
func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// CreatePaymentRecord appends a payment record to the ledger
func (r *BillingRepository) CreatePaymentRecord(ctx context.Context, record *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetPaymentByGatewayID gets a payment record by the gateway payment reference.
// Used as the idempotency check for duplicate webhook deliveries.
func (r *BillingRepository) GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).Where("gateway_payment_id = ?", gatewayPaymentID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListPaymentsByMerchant lists payment records for a merchant, newest first
func (r *BillingRepository) ListPaymentsByMerchant(ctx context.Context, merchantID string, limit int) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CreateWebhookEvent stores a received webhook event
func (r *BillingRepository) CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// GetWebhookEvent gets a webhook event by gateway and event ID
func (r *BillingRepository) GetWebhookEvent(ctx context.Context, gatewayType, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.WithContext(ctx).Where("gateway_type = ? AND event_id = ?", gatewayType, eventID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateWebhookEvent updates a webhook event's processing state
func (r *BillingRepository) UpdateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}
