package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRefundNotFound          = errors.New("refund not found")
	ErrInvalidRefundStatus     = errors.New("invalid refund status")
	ErrRefundAlreadyFinal      = errors.New("refund is already settled or failed")
	ErrInvalidStatusTransition = errors.New("invalid refund status transition")
)

// RefundStatus represents the refund pipeline state
type RefundStatus string

const (
	RefundGathering  RefundStatus = "GATHERING"
	RefundInitiated  RefundStatus = "INITIATED"
	RefundProcessing RefundStatus = "PROCESSING"
	RefundSettled    RefundStatus = "SETTLED"
	RefundFailed     RefundStatus = "FAILED"
	RefundVoid       RefundStatus = "VOID"
)

// NormalizeRefundStatus maps a stored status value, including legacy free-text
// variants, onto the closed RefundStatus set. Reconciliation uses this so old
// records written before the enum existed still bucket correctly.
func NormalizeRefundStatus(raw string) (RefundStatus, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "GATHER"):
		return RefundGathering, nil
	case strings.Contains(s, "INITIAT"):
		return RefundInitiated, nil
	case strings.Contains(s, "PROCESS"):
		return RefundProcessing, nil
	case strings.Contains(s, "SETTLED") || s == "PAID" || s == "COMPLETED":
		return RefundSettled, nil
	case strings.Contains(s, "FAIL") || strings.Contains(s, "STUCK"):
		return RefundFailed, nil
	case strings.Contains(s, "VOID") || strings.Contains(s, "CANCEL"):
		return RefundVoid, nil
	}
	return "", ErrInvalidRefundStatus
}

// ValidRefundStatus checks if the given status is a known pipeline state
func ValidRefundStatus(status RefundStatus) bool {
	switch status {
	case RefundGathering, RefundInitiated, RefundProcessing, RefundSettled, RefundFailed, RefundVoid:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the refund pipeline.
func (s RefundStatus) IsTerminal() bool {
	return s == RefundSettled || s == RefundFailed || s == RefundVoid
}

// RefundRecord is a single customer refund request owned by exactly one
// merchant. It is the raw source of truth for usage counting; once settled or
// failed the record is immutable apart from corrective audit entries.
type RefundRecord struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MerchantID string       `gorm:"type:varchar(128);not null;index:idx_refunds_merchant" json:"merchantId"`
	Amount     float64      `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status     RefundStatus `gorm:"type:varchar(50);not null;index:idx_refunds_status" json:"status"`

	CustomerName  string `gorm:"type:varchar(255)" json:"customerName,omitempty"`
	CustomerEmail string `gorm:"type:varchar(255)" json:"customerEmail,omitempty"`
	Reference     string `gorm:"type:varchar(255)" json:"reference,omitempty"`

	SLADueDate *time.Time `json:"slaDueDate,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_refunds_created" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for RefundRecord
func (RefundRecord) TableName() string {
	return "refund_records"
}
