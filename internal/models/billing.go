package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentRecordStatus represents the state of a recorded billing transaction
type PaymentRecordStatus string

const (
	PaymentRecordPaid PaymentRecordStatus = "paid"
)

// PaymentRecord is one completed billing transaction appended under a
// merchant. The ledger is append-only; rows are never mutated after creation.
type PaymentRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MerchantID string    `gorm:"type:varchar(128);not null;index:idx_payment_records_merchant" json:"merchantId"`

	Amount    float64 `gorm:"type:decimal(12,2);not null" json:"amount"`
	BasePrice float64 `gorm:"type:decimal(12,2)" json:"basePrice"`

	// Usage metadata captured at charge time, for receipts and audits.
	UsageCount int64   `json:"usageCount"`
	UsageLimit int64   `json:"usageLimit"`
	ExcessRate float64 `gorm:"type:decimal(12,2)" json:"excessRate"`

	PlanName string              `gorm:"type:varchar(100)" json:"planName"`
	Status   PaymentRecordStatus `gorm:"type:varchar(20);default:'paid'" json:"status"`

	// Unique where set, so a redelivered charge can never append twice.
	GatewayPaymentID      string `gorm:"type:varchar(255);uniqueIndex:idx_payment_records_gateway_payment,where:gateway_payment_id <> ''" json:"gatewayPaymentId,omitempty"`
	GatewaySubscriptionID string `gorm:"type:varchar(255)" json:"gatewaySubscriptionId,omitempty"`
	InvoiceNumber         string `gorm:"type:varchar(100)" json:"invoiceNumber,omitempty"`
	Method                string `gorm:"type:varchar(50)" json:"method,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_payment_records_created" json:"createdAt"`
}

// TableName specifies the table name for PaymentRecord
func (PaymentRecord) TableName() string {
	return "payment_records"
}

// WebhookEvent represents a received gateway webhook event. Stored before
// processing so duplicate deliveries can be detected and failures replayed.
type WebhookEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	// The pair is unique so concurrent deliveries of one event race on the
	// insert instead of both processing.
	GatewayType string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_webhook_events_gateway_event" json:"gatewayType"`
	EventID     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_webhook_events_gateway_event" json:"eventId"`
	EventType   string    `gorm:"type:varchar(100);not null;index:idx_webhook_events_type" json:"eventType"`

	MerchantID string `gorm:"type:varchar(128);index:idx_webhook_events_merchant" json:"merchantId,omitempty"`

	Payload JSONB `gorm:"type:jsonb" json:"payload"`

	Processed       bool       `gorm:"default:false;index:idx_webhook_events_processed" json:"processed"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processingError,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_webhook_events_created" json:"createdAt"`
}

// TableName specifies the table name for WebhookEvent
func (WebhookEvent) TableName() string {
	return "billing_webhook_events"
}
