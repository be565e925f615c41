package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"refund-billing-service/internal/clients"
	"refund-billing-service/internal/events"
	"refund-billing-service/internal/models"
	"refund-billing-service/internal/repository"
	"refund-billing-service/internal/scoreboard"
)

// DefaultRefundSLA is applied when a created refund carries no explicit due
// date.
const DefaultRefundSLA = 7 * 24 * time.Hour

// refundTransitions is the allowed forward pipeline. VOID is reachable from
// every non-terminal state and is handled separately.
var refundTransitions = map[models.RefundStatus][]models.RefundStatus{
	models.RefundGathering:  {models.RefundInitiated},
	models.RefundInitiated:  {models.RefundProcessing},
	models.RefundProcessing: {models.RefundSettled, models.RefundFailed},
}

// RefundService owns the refund record pipeline. Every mutation updates the
// source-of-truth record first; the scoreboard is advised afterwards and is
// never allowed to fail the request.
type RefundService struct {
	refunds      repository.RefundRepositoryInterface
	merchants    repository.MerchantRepositoryInterface
	aggregator   *scoreboard.Aggregator
	publisher    *events.Publisher
	notification *clients.NotificationClient
	log          *logrus.Entry
}

// NewRefundService creates a new refund service
func NewRefundService(
	refunds repository.RefundRepositoryInterface,
	merchants repository.MerchantRepositoryInterface,
	aggregator *scoreboard.Aggregator,
	publisher *events.Publisher,
	notification *clients.NotificationClient,
	logger *logrus.Logger,
) *RefundService {
	return &RefundService{
		refunds:      refunds,
		merchants:    merchants,
		aggregator:   aggregator,
		publisher:    publisher,
		notification: notification,
		log:          logger.WithField("component", "services.refund"),
	}
}

// Create opens a new refund in GATHERING and advises the scoreboard.
func (s *RefundService) Create(ctx context.Context, merchantID string, req *models.CreateRefundRequest) (*models.RefundRecord, error) {
	if _, err := s.merchants.Get(ctx, merchantID); err != nil {
		return nil, err
	}

	due := req.SLADueDate
	if due == nil {
		d := time.Now().Add(DefaultRefundSLA)
		due = &d
	}

	refund := &models.RefundRecord{
		ID:            uuid.New(),
		MerchantID:    merchantID,
		Amount:        req.Amount,
		Status:        models.RefundGathering,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Reference:     req.Reference,
		SLADueDate:    due,
	}

	if err := s.refunds.Create(ctx, refund); err != nil {
		return nil, fmt.Errorf("failed to create refund: %w", err)
	}

	s.aggregator.ApplyEvent(ctx, merchantID, models.EventNewRefund, refund.Amount)

	if err := s.publisher.PublishRefundCreated(ctx, merchantID, refund.ID.String(), refund.Amount); err != nil {
		s.log.WithError(err).WithField("refund_id", refund.ID).Warn("Failed to publish refund created event")
	}

	s.log.WithFields(logrus.Fields{
		"merchant_id": merchantID,
		"refund_id":   refund.ID,
		"amount":      refund.Amount,
	}).Info("Refund created")

	return refund, nil
}

// Get returns a refund, scoped to the owning merchant.
func (s *RefundService) Get(ctx context.Context, merchantID string, refundID uuid.UUID) (*models.RefundRecord, error) {
	refund, err := s.refunds.Get(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if refund.MerchantID != merchantID {
		return nil, models.ErrRefundNotFound
	}
	return refund, nil
}

// List returns the merchant's refunds, newest first.
func (s *RefundService) List(ctx context.Context, merchantID string, limit, offset int) ([]models.RefundRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.refunds.ListByMerchant(ctx, merchantID, limit, offset)
}

// UpdateStatus moves a refund through the pipeline and advises the scoreboard
// of settle, fail and void events.
func (s *RefundService) UpdateStatus(ctx context.Context, merchantID string, refundID uuid.UUID, newStatus models.RefundStatus) (*models.RefundRecord, error) {
	refund, err := s.Get(ctx, merchantID, refundID)
	if err != nil {
		return nil, err
	}

	if !models.ValidRefundStatus(newStatus) {
		return nil, models.ErrInvalidRefundStatus
	}
	if refund.Status.IsTerminal() {
		return nil, models.ErrRefundAlreadyFinal
	}
	if !canTransitionRefund(refund.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidStatusTransition, refund.Status, newStatus)
	}

	refund.Status = newStatus
	refund.UpdatedAt = time.Now()
	if err := s.refunds.Update(ctx, refund); err != nil {
		return nil, fmt.Errorf("failed to update refund: %w", err)
	}

	switch newStatus {
	case models.RefundSettled:
		s.aggregator.ApplyEvent(ctx, merchantID, models.EventSettleRefund, refund.Amount)
		s.notifySettled(ctx, refund)
	case models.RefundFailed:
		s.aggregator.ApplyEvent(ctx, merchantID, models.EventFailRefund, refund.Amount)
	case models.RefundVoid:
		s.aggregator.ApplyEvent(ctx, merchantID, models.EventVoidRefund, refund.Amount)
	}

	if err := s.publisher.PublishRefundStatusChanged(ctx, merchantID, refund.ID.String(), string(newStatus), refund.Amount); err != nil {
		s.log.WithError(err).WithField("refund_id", refund.ID).Warn("Failed to publish refund status event")
	}

	s.log.WithFields(logrus.Fields{
		"merchant_id": merchantID,
		"refund_id":   refund.ID,
		"status":      newStatus,
	}).Info("Refund status updated")

	return refund, nil
}

func canTransitionRefund(from, to models.RefundStatus) bool {
	if to == models.RefundVoid {
		return !from.IsTerminal()
	}
	for _, allowed := range refundTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *RefundService) notifySettled(ctx context.Context, refund *models.RefundRecord) {
	merchant, err := s.merchants.Get(ctx, refund.MerchantID)
	if err != nil {
		return
	}
	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notification.RefundSettledNotification(nctx, merchant.ID, merchant.Email, refund.ID.String(), refund.Amount); err != nil {
			s.log.WithError(err).WithField("refund_id", refund.ID).Warn("Failed to send refund settled notification")
		}
	}()
}

// Scoreboard returns the merchant's cached counters.
func (s *RefundService) Scoreboard(ctx context.Context, merchantID string) (*models.Scoreboard, error) {
	return s.aggregator.Get(ctx, merchantID)
}
