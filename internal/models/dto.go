package models

import (
	"time"

	"github.com/google/uuid"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CreateRefundRequest represents a request to log a new refund
type CreateRefundRequest struct {
	Amount        float64    `json:"amount" binding:"required,gt=0"`
	CustomerName  string     `json:"customerName"`
	CustomerEmail string     `json:"customerEmail"`
	Reference     string     `json:"reference"`
	SLADueDate    *time.Time `json:"slaDueDate"`
}

// UpdateRefundStatusRequest represents a refund pipeline transition
type UpdateRefundStatusRequest struct {
	Status RefundStatus `json:"status" binding:"required"`
}

// CreateSubscriptionRequest represents a checkout initiation
type CreateSubscriptionRequest struct {
	PlanType PlanType `json:"planType" binding:"required"`
}

// CreateSubscriptionResponse returns the gateway checkout reference
type CreateSubscriptionResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	GatewayType    string `json:"gatewayType"`
	PublicKey      string `json:"publicKey,omitempty"`
}

// UpdatePlanRequest represents an upgrade/downgrade request
type UpdatePlanRequest struct {
	NewPlanType PlanType `json:"newPlanType" binding:"required"`
}

// UpdatePlanResponse describes the outcome of a plan change
type UpdatePlanResponse struct {
	Mode          string     `json:"mode"` // upgrade or downgrade
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
	ProratedDue   *float64   `json:"proratedDue,omitempty"`
}

// SubscriptionStatusResponse is the polling bridge payload. Clients poll this
// after checkout until the webhook-confirmed status lands.
type SubscriptionStatusResponse struct {
	MerchantID         string             `json:"merchantId"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	PlanType           PlanType           `json:"planType"`
	CheckoutPending    bool               `json:"checkoutPending"`
}

// BillingPreviewResponse is the GST-inclusive estimate for the current cycle
type BillingPreviewResponse struct {
	PlanName        string    `json:"planName"`
	BasePrice       float64   `json:"basePrice"`
	Usage           int64     `json:"usage"`
	IncludedRefunds int64     `json:"includedRefunds"`
	OverageCount    int64     `json:"overageCount"`
	OverageFee      float64   `json:"overageFee"`
	Subtotal        float64   `json:"subtotal"`
	GSTAmount       float64   `json:"gstAmount"`
	Total           float64   `json:"total"`
	CycleStart      time.Time `json:"cycleStart"`
	CycleEnd        time.Time `json:"cycleEnd"`
}

// ReconcileRequest controls a scoreboard rebuild run
type ReconcileRequest struct {
	MerchantID string `json:"merchantId"` // empty = all merchants
	DryRun     bool   `json:"dryRun"`
}

// ReconcileSummary reports the outcome of a reconciliation run
type ReconcileSummary struct {
	Merchants  int  `json:"merchants"`
	Refunds    int  `json:"refunds"`
	Written    int  `json:"written"`
	DryRun     bool `json:"dryRun"`
	Normalized int  `json:"normalized"` // legacy statuses mapped onto the enum
}

// RefundResponse is the API shape of a refund record
type RefundResponse struct {
	ID         uuid.UUID    `json:"id"`
	MerchantID string       `json:"merchantId"`
	Amount     float64      `json:"amount"`
	Status     RefundStatus `json:"status"`
	SLADueDate *time.Time   `json:"slaDueDate,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}
