package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"refund-billing-service/internal/gateway"
	"refund-billing-service/internal/models"
	"refund-billing-service/internal/repository"
)

// MockMerchantRepository is a mock implementation of MerchantRepositoryInterface
type MockMerchantRepository struct {
	mock.Mock
}

var _ repository.MerchantRepositoryInterface = (*MockMerchantRepository)(nil)

func (m *MockMerchantRepository) Get(ctx context.Context, merchantID string) (*models.Merchant, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) GetByGatewaySubscription(ctx context.Context, subscriptionID string) (*models.Merchant, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) Create(ctx context.Context, merchant *models.Merchant) error {
	args := m.Called(ctx, merchant)
	return args.Error(0)
}

func (m *MockMerchantRepository) Update(ctx context.Context, merchant *models.Merchant) error {
	args := m.Called(ctx, merchant)
	return args.Error(0)
}

func (m *MockMerchantRepository) ListRenewalOverdue(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]models.Merchant, error) {
	args := m.Called(ctx, cutoff, afterID, limit)
	return args.Get(0).([]models.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) ListWithDueDowngrade(ctx context.Context, asOf time.Time, afterID string, limit int) ([]models.Merchant, error) {
	args := m.Called(ctx, asOf, afterID, limit)
	return args.Get(0).([]models.Merchant), args.Error(1)
}

// MockRefundRepository is a mock implementation of RefundRepositoryInterface
type MockRefundRepository struct {
	mock.Mock
}

var _ repository.RefundRepositoryInterface = (*MockRefundRepository)(nil)

func (m *MockRefundRepository) Create(ctx context.Context, refund *models.RefundRecord) error {
	args := m.Called(ctx, refund)
	return args.Error(0)
}

func (m *MockRefundRepository) Get(ctx context.Context, refundID uuid.UUID) (*models.RefundRecord, error) {
	args := m.Called(ctx, refundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefundRecord), args.Error(1)
}

func (m *MockRefundRepository) Update(ctx context.Context, refund *models.RefundRecord) error {
	args := m.Called(ctx, refund)
	return args.Error(0)
}

func (m *MockRefundRepository) ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]models.RefundRecord, error) {
	args := m.Called(ctx, merchantID, limit, offset)
	return args.Get(0).([]models.RefundRecord), args.Error(1)
}

func (m *MockRefundRepository) CountBillableRefunds(ctx context.Context, merchantID string, since time.Time) (int64, error) {
	args := m.Called(ctx, merchantID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRefundRepository) ScanPage(ctx context.Context, afterID uuid.UUID, merchantID string, batchSize int) ([]models.RefundRecord, error) {
	args := m.Called(ctx, afterID, merchantID, batchSize)
	return args.Get(0).([]models.RefundRecord), args.Error(1)
}

// MockScoreboardRepository is a mock implementation of ScoreboardRepositoryInterface
type MockScoreboardRepository struct {
	mock.Mock
}

var _ repository.ScoreboardRepositoryInterface = (*MockScoreboardRepository)(nil)

func (m *MockScoreboardRepository) ApplyDelta(ctx context.Context, merchantID string, delta models.ScoreboardDelta) error {
	args := m.Called(ctx, merchantID, delta)
	return args.Error(0)
}

func (m *MockScoreboardRepository) Get(ctx context.Context, merchantID string) (*models.Scoreboard, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scoreboard), args.Error(1)
}

func (m *MockScoreboardRepository) Overwrite(ctx context.Context, scoreboard *models.Scoreboard) error {
	args := m.Called(ctx, scoreboard)
	return args.Error(0)
}

// MockBillingRepository is a mock implementation of BillingRepositoryInterface
type MockBillingRepository struct {
	mock.Mock
}

var _ repository.BillingRepositoryInterface = (*MockBillingRepository)(nil)

func (m *MockBillingRepository) CreatePaymentRecord(ctx context.Context, record *models.PaymentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockBillingRepository) GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.PaymentRecord, error) {
	args := m.Called(ctx, gatewayPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentRecord), args.Error(1)
}

func (m *MockBillingRepository) ListPaymentsByMerchant(ctx context.Context, merchantID string, limit int) ([]models.PaymentRecord, error) {
	args := m.Called(ctx, merchantID, limit)
	return args.Get(0).([]models.PaymentRecord), args.Error(1)
}

func (m *MockBillingRepository) CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockBillingRepository) GetWebhookEvent(ctx context.Context, gatewayType, eventID string) (*models.WebhookEvent, error) {
	args := m.Called(ctx, gatewayType, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookEvent), args.Error(1)
}

func (m *MockBillingRepository) UpdateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockCheckoutStore is a mock implementation of CheckoutStoreInterface
type MockCheckoutStore struct {
	mock.Mock
}

var _ repository.CheckoutStoreInterface = (*MockCheckoutStore)(nil)

func (m *MockCheckoutStore) MarkPending(ctx context.Context, merchantID, subscriptionID string) error {
	args := m.Called(ctx, merchantID, subscriptionID)
	return args.Error(0)
}

func (m *MockCheckoutStore) PendingSubscription(ctx context.Context, merchantID string) (string, bool, error) {
	args := m.Called(ctx, merchantID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCheckoutStore) Clear(ctx context.Context, merchantID string) error {
	args := m.Called(ctx, merchantID)
	return args.Error(0)
}

// MockGateway is a mock implementation of SubscriptionGateway
type MockGateway struct {
	mock.Mock
}

var _ gateway.SubscriptionGateway = (*MockGateway)(nil)

func (m *MockGateway) GetType() gateway.GatewayType {
	return gateway.GatewayRazorpay
}

func (m *MockGateway) CreateSubscription(ctx context.Context, req *gateway.CreateSubscriptionRequest) (*gateway.SubscriptionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.SubscriptionResult), args.Error(1)
}

func (m *MockGateway) UpdateSubscription(ctx context.Context, subscriptionID string, plan models.PlanType, mode gateway.PlanChangeMode) error {
	args := m.Called(ctx, subscriptionID, plan, mode)
	return args.Error(0)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func (m *MockGateway) VerifyWebhookSignature(body []byte, signature string) error {
	args := m.Called(body, signature)
	return args.Error(0)
}

func (m *MockGateway) PlanTypeForGatewayPlan(gatewayPlanID string) (models.PlanType, bool) {
	args := m.Called(gatewayPlanID)
	return args.Get(0).(models.PlanType), args.Bool(1)
}
