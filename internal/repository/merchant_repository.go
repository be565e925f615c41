package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"refund-billing-service/internal/models"
)

// MerchantRepositoryInterface defines merchant persistence operations
type MerchantRepositoryInterface interface {
	Get(ctx context.Context, merchantID string) (*models.Merchant, error)
	GetByGatewaySubscription(ctx context.Context, subscriptionID string) (*models.Merchant, error)
	Create(ctx context.Context, merchant *models.Merchant) error
	Update(ctx context.Context, merchant *models.Merchant) error
	ListRenewalOverdue(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]models.Merchant, error)
	ListWithDueDowngrade(ctx context.Context, asOf time.Time, afterID string, limit int) ([]models.Merchant, error)
}

// MerchantRepository handles merchant data operations
type MerchantRepository struct {
	db *gorm.DB
}

var _ MerchantRepositoryInterface = (*MerchantRepository)(nil)

// NewMerchantRepository creates a new merchant repository
func NewMerchantRepository(db *gorm.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

// Get gets a merchant by ID
func (r *MerchantRepository) Get(ctx context.Context, merchantID string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).First(&merchant, "id = ?", merchantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrMerchantNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

// GetByGatewaySubscription gets a merchant by its gateway subscription reference
func (r *MerchantRepository) GetByGatewaySubscription(ctx context.Context, subscriptionID string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).Where("gateway_subscription_id = ?", subscriptionID).First(&merchant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrMerchantNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

// Create creates a new merchant
func (r *MerchantRepository) Create(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Create(merchant).Error
}

// Update updates a merchant
func (r *MerchantRepository) Update(ctx context.Context, merchant *models.Merchant) error {
	merchant.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(merchant).Error
}

// ListRenewalOverdue lists active merchants whose last payment is at or
// before cutoff, keyed by id after afterID so callers can page through the
// whole table regardless of how many rows match.
func (r *MerchantRepository) ListRenewalOverdue(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]models.Merchant, error) {
	var merchants []models.Merchant
	err := r.db.WithContext(ctx).
		Where("subscription_status = ? AND last_payment_date IS NOT NULL AND last_payment_date <= ? AND id > ?",
			models.SubscriptionActive, cutoff, afterID).
		Order("id ASC").Limit(limit).Find(&merchants).Error
	if err != nil {
		return nil, err
	}
	return merchants, nil
}

// ListWithDueDowngrade lists merchants whose scheduled downgrade has reached
// its effective date, keyed by id after afterID
func (r *MerchantRepository) ListWithDueDowngrade(ctx context.Context, asOf time.Time, afterID string, limit int) ([]models.Merchant, error) {
	var merchants []models.Merchant
	err := r.db.WithContext(ctx).
		Where("upcoming_plan IS NOT NULL AND upcoming_plan_date <= ? AND id > ?", asOf, afterID).
		Order("id ASC").Limit(limit).Find(&merchants).Error
	if err != nil {
		return nil, err
	}
	return merchants, nil
}
