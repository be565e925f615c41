package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"refund-billing-service/internal/clients"
	"refund-billing-service/internal/events"
	"refund-billing-service/internal/models"
	"refund-billing-service/internal/scoreboard"
)

type refundFixture struct {
	refunds    *MockRefundRepository
	merchants  *MockMerchantRepository
	boards     *MockScoreboardRepository
	service    *RefundService
}

func newRefundFixture() *refundFixture {
	logger := quietLogger()
	f := &refundFixture{
		refunds:   new(MockRefundRepository),
		merchants: new(MockMerchantRepository),
		boards:    new(MockScoreboardRepository),
	}
	aggregator := scoreboard.NewAggregator(f.boards, logger)
	publisher := events.NewPublisher("nats://127.0.0.1:1", logger)
	notification := clients.NewNotificationClient("http://127.0.0.1:1")
	f.service = NewRefundService(f.refunds, f.merchants, aggregator, publisher, notification, logger)
	return f
}

func activeMerchant() *models.Merchant {
	return &models.Merchant{
		ID:                 "m-1",
		PlanType:           models.PlanStartup,
		SubscriptionStatus: models.SubscriptionActive,
	}
}

func TestCreateRefund_OpensGatheringAndCountsIt(t *testing.T) {
	ctx := context.Background()
	f := newRefundFixture()

	f.merchants.On("Get", ctx, "m-1").Return(activeMerchant(), nil)
	f.refunds.On("Create", ctx, mock.MatchedBy(func(r *models.RefundRecord) bool {
		return r.MerchantID == "m-1" &&
			r.Status == models.RefundGathering &&
			r.Amount == 750 &&
			r.SLADueDate != nil
	})).Return(nil)
	f.boards.On("ApplyDelta", ctx, "m-1", models.ScoreboardDelta{
		TotalRefundsCount:     1,
		ActiveLiabilityAmount: 750,
	}).Return(nil)

	refund, err := f.service.Create(ctx, "m-1", &models.CreateRefundRequest{Amount: 750})

	assert.NoError(t, err)
	assert.Equal(t, models.RefundGathering, refund.Status)
	f.refunds.AssertExpectations(t)
	f.boards.AssertExpectations(t)
}

func TestCreateRefund_UnknownMerchant(t *testing.T) {
	ctx := context.Background()
	f := newRefundFixture()

	f.merchants.On("Get", ctx, "ghost").Return(nil, models.ErrMerchantNotFound)

	_, err := f.service.Create(ctx, "ghost", &models.CreateRefundRequest{Amount: 100})

	assert.ErrorIs(t, err, models.ErrMerchantNotFound)
	f.refunds.AssertNotCalled(t, "Create")
}

func TestUpdateStatus_SettleFlow(t *testing.T) {
	ctx := context.Background()
	f := newRefundFixture()

	id := uuid.New()
	refund := &models.RefundRecord{
		ID:         id,
		MerchantID: "m-1",
		Amount:     300,
		Status:     models.RefundProcessing,
	}

	f.refunds.On("Get", ctx, id).Return(refund, nil)
	f.refunds.On("Update", ctx, refund).Return(nil)
	f.boards.On("ApplyDelta", ctx, "m-1", models.ScoreboardDelta{
		ActiveLiabilityAmount: -300,
		TotalSettledAmount:    300,
	}).Return(nil)
	f.merchants.On("Get", mock.Anything, "m-1").Return(activeMerchant(), nil)

	updated, err := f.service.UpdateStatus(ctx, "m-1", id, models.RefundSettled)

	assert.NoError(t, err)
	assert.Equal(t, models.RefundSettled, updated.Status)
	f.boards.AssertExpectations(t)
}

func TestUpdateStatus_RejectsSkippingPipelineStages(t *testing.T) {
	ctx := context.Background()
	f := newRefundFixture()

	id := uuid.New()
	f.refunds.On("Get", ctx, id).Return(&models.RefundRecord{
		ID: id, MerchantID: "m-1", Status: models.RefundGathering,
	}, nil)

	_, err := f.service.UpdateStatus(ctx, "m-1", id, models.RefundSettled)

	assert.ErrorIs(t, err, models.ErrInvalidStatusTransition)
	f.refunds.AssertNotCalled(t, "Update")
}

func TestUpdateStatus_TerminalRefundIsImmutable(t *testing.T) {
	ctx := context.Background()
	f := newRefundFixture()

	id := uuid.New()
	f.refunds.On("Get", ctx, id).Return(&models.RefundRecord{
		ID: id, MerchantID: "m-1", Status: models.RefundSettled,
	}, nil)

	_, err := f.service.UpdateStatus(ctx, "m-1", id, models.RefundVoid)

	assert.ErrorIs(t, err, models.ErrRefundAlreadyFinal)
}

func TestUpdateStatus_VoidFromAnyOpenState(t *testing.T) {
	ctx := context.Background()

	for _, from := range []models.RefundStatus{
		models.RefundGathering, models.RefundInitiated, models.RefundProcessing,
	} {
		f := newRefundFixture()
		id := uuid.New()
		refund := &models.RefundRecord{ID: id, MerchantID: "m-1", Amount: 120, Status: from}

		f.refunds.On("Get", ctx, id).Return(refund, nil)
		f.refunds.On("Update", ctx, refund).Return(nil)
		f.boards.On("ApplyDelta", ctx, "m-1", models.ScoreboardDelta{
			TotalRefundsCount:     -1,
			ActiveLiabilityAmount: -120,
		}).Return(nil)

		updated, err := f.service.UpdateStatus(ctx, "m-1", id, models.RefundVoid)

		assert.NoError(t, err, "void from %s", from)
		assert.Equal(t, models.RefundVoid, updated.Status)
	}
}

func TestUpdateStatus_ScoreboardFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	f := newRefundFixture()

	id := uuid.New()
	refund := &models.RefundRecord{ID: id, MerchantID: "m-1", Amount: 80, Status: models.RefundProcessing}

	f.refunds.On("Get", ctx, id).Return(refund, nil)
	f.refunds.On("Update", ctx, refund).Return(nil)
	f.boards.On("ApplyDelta", ctx, "m-1", mock.Anything).Return(assert.AnError)

	_, err := f.service.UpdateStatus(ctx, "m-1", id, models.RefundFailed)

	assert.NoError(t, err)
}

func TestGetRefund_ScopedToOwningMerchant(t *testing.T) {
	ctx := context.Background()
	f := newRefundFixture()

	id := uuid.New()
	f.refunds.On("Get", ctx, id).Return(&models.RefundRecord{
		ID: id, MerchantID: "m-2", Status: models.RefundGathering,
	}, nil)

	_, err := f.service.Get(ctx, "m-1", id)

	assert.ErrorIs(t, err, models.ErrRefundNotFound)
}
