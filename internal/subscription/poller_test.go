package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

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

func newTestPoller(repo repository.MerchantRepositoryInterface, attempts int) *Poller {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewPoller(repo, time.Millisecond, attempts, logger)
}

func TestAwaitActivation_ConfirmsWhenActive(t *testing.T) {
	ctx := context.Background()
	repo := new(MockMerchantRepository)
	repo.On("Get", mock.Anything, "m-1").
		Return(&models.Merchant{ID: "m-1", SubscriptionStatus: models.SubscriptionActive}, nil)

	outcome, err := newTestPoller(repo, 5).AwaitActivation(ctx, "m-1")

	assert.NoError(t, err)
	assert.Equal(t, VerificationConfirmed, outcome)
	// Stops on first success; never burns the remaining attempts
	repo.AssertNumberOfCalls(t, "Get", 1)
}

func TestAwaitActivation_ConfirmsOnLaterAttempt(t *testing.T) {
	ctx := context.Background()
	repo := new(MockMerchantRepository)
	pending := &models.Merchant{ID: "m-1", SubscriptionStatus: models.SubscriptionPendingPayment}
	active := &models.Merchant{ID: "m-1", SubscriptionStatus: models.SubscriptionActive}

	repo.On("Get", mock.Anything, "m-1").Return(pending, nil).Twice()
	repo.On("Get", mock.Anything, "m-1").Return(active, nil).Once()

	outcome, err := newTestPoller(repo, 10).AwaitActivation(ctx, "m-1")

	assert.NoError(t, err)
	assert.Equal(t, VerificationConfirmed, outcome)
	repo.AssertNumberOfCalls(t, "Get", 3)
}

func TestAwaitActivation_TimeoutIsAmbiguousNotError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockMerchantRepository)
	repo.On("Get", mock.Anything, "m-1").
		Return(&models.Merchant{ID: "m-1", SubscriptionStatus: models.SubscriptionPendingPayment}, nil)

	outcome, err := newTestPoller(repo, 3).AwaitActivation(ctx, "m-1")

	// Exhausting attempts is not a failure: the webhook may still land.
	assert.NoError(t, err)
	assert.Equal(t, VerificationTimeout, outcome)
	repo.AssertNumberOfCalls(t, "Get", 3)
}

func TestAwaitActivation_ReadErrorsConsumeAttempts(t *testing.T) {
	ctx := context.Background()
	repo := new(MockMerchantRepository)
	repo.On("Get", mock.Anything, "m-1").Return(nil, errors.New("connection refused")).Twice()
	repo.On("Get", mock.Anything, "m-1").
		Return(&models.Merchant{ID: "m-1", SubscriptionStatus: models.SubscriptionActive}, nil).Once()

	outcome, err := newTestPoller(repo, 5).AwaitActivation(ctx, "m-1")

	assert.NoError(t, err)
	assert.Equal(t, VerificationConfirmed, outcome)
}

func TestAwaitActivation_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := new(MockMerchantRepository)

	outcome, err := newTestPoller(repo, 5).AwaitActivation(ctx, "m-1")

	assert.Error(t, err)
	assert.Equal(t, VerificationTimeout, outcome)
	repo.AssertNotCalled(t, "Get")
}

func TestPollerDefaults(t *testing.T) {
	logger := logrus.New()
	p := NewPoller(new(MockMerchantRepository), 0, 0, logger)

	assert.Equal(t, DefaultPollInterval, p.interval)
	assert.Equal(t, DefaultMaxAttempts, p.maxAttempts)
}
