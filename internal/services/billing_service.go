package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"refund-billing-service/internal/billing"
	"refund-billing-service/internal/models"
	"refund-billing-service/internal/repository"
)

// BillingService serves read-side billing views: the current-cycle preview and
// the payment ledger. It never charges; charging is webhook-driven.
type BillingService struct {
	merchants   repository.MerchantRepositoryInterface
	billingRepo repository.BillingRepositoryInterface
	calculator  *billing.Calculator
	log         *logrus.Entry
}

// NewBillingService creates a new billing service
func NewBillingService(
	merchants repository.MerchantRepositoryInterface,
	billingRepo repository.BillingRepositoryInterface,
	calculator *billing.Calculator,
	logger *logrus.Logger,
) *BillingService {
	return &BillingService{
		merchants:   merchants,
		billingRepo: billingRepo,
		calculator:  calculator,
		log:         logger.WithField("component", "services.billing"),
	}
}

// Preview estimates the upcoming renewal from the same calculation the charge
// path uses.
func (s *BillingService) Preview(ctx context.Context, merchantID string) (*models.BillingPreviewResponse, error) {
	merchant, err := s.merchants.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	charge, err := s.calculator.RenewalDue(ctx, merchant)
	if err != nil {
		return nil, err
	}

	return &models.BillingPreviewResponse{
		PlanName:        charge.Plan.Name,
		BasePrice:       charge.Plan.BasePrice,
		Usage:           charge.Usage,
		IncludedRefunds: charge.Plan.IncludedRefunds,
		OverageCount:    charge.OverageCount,
		OverageFee:      charge.OverageFee,
		Subtotal:        charge.Bill.Subtotal,
		GSTAmount:       charge.Bill.GSTAmount,
		Total:           charge.Bill.Total,
		CycleStart:      charge.CycleStart,
		CycleEnd:        charge.CycleEnd,
	}, nil
}

// Payments returns the merchant's payment ledger, newest first.
func (s *BillingService) Payments(ctx context.Context, merchantID string, limit int) ([]models.PaymentRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 24
	}
	return s.billingRepo.ListPaymentsByMerchant(ctx, merchantID, limit)
}
