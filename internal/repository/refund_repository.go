package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"refund-billing-service/internal/models"
)

// RefundRepositoryInterface defines refund record persistence operations
type RefundRepositoryInterface interface {
	Create(ctx context.Context, refund *models.RefundRecord) error
	Get(ctx context.Context, refundID uuid.UUID) (*models.RefundRecord, error)
	Update(ctx context.Context, refund *models.RefundRecord) error
	ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]models.RefundRecord, error)
	CountBillableRefunds(ctx context.Context, merchantID string, since time.Time) (int64, error)
	ScanPage(ctx context.Context, afterID uuid.UUID, merchantID string, batchSize int) ([]models.RefundRecord, error)
}

// RefundRepository handles refund record data operations
type RefundRepository struct {
	db *gorm.DB
}

var _ RefundRepositoryInterface = (*RefundRepository)(nil)

// NewRefundRepository creates a new refund repository
func NewRefundRepository(db *gorm.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create creates a new refund record
func (r *RefundRepository) Create(ctx context.Context, refund *models.RefundRecord) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

// Get gets a refund record by ID
func (r *RefundRepository) Get(ctx context.Context, refundID uuid.UUID) (*models.RefundRecord, error) {
	var refund models.RefundRecord
	err := r.db.WithContext(ctx).First(&refund, "id = ?", refundID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRefundNotFound
		}
		return nil, err
	}
	return &refund, nil
}

// Update updates a refund record
func (r *RefundRepository) Update(ctx context.Context, refund *models.RefundRecord) error {
	refund.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(refund).Error
}

// ListByMerchant lists refund records for a merchant, newest first
func (r *RefundRepository) ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]models.RefundRecord, error) {
	var refunds []models.RefundRecord
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

// CountBillableRefunds counts refunds created in the window starting at since,
// excluding voids. This range query is the authority for billing usage.
func (r *RefundRepository) CountBillableRefunds(ctx context.Context, merchantID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RefundRecord{}).
		Where("merchant_id = ? AND created_at >= ? AND status <> ?", merchantID, since, models.RefundVoid).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ScanPage returns one keyset-paginated page of refund records ordered by
// primary key. Passing the last ID of the previous page resumes the scan;
// uuid.Nil starts from the beginning. An empty merchantID scans the whole
// collection.
func (r *RefundRepository) ScanPage(ctx context.Context, afterID uuid.UUID, merchantID string, batchSize int) ([]models.RefundRecord, error) {
	var refunds []models.RefundRecord
	query := r.db.WithContext(ctx).Order("id ASC").Limit(batchSize)
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	if merchantID != "" {
		query = query.Where("merchant_id = ?", merchantID)
	}
	if err := query.Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}
