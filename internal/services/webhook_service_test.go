package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"refund-billing-service/internal/billing"
	"refund-billing-service/internal/clients"
	"refund-billing-service/internal/events"
	"refund-billing-service/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type webhookFixture struct {
	merchants  *MockMerchantRepository
	billing    *MockBillingRepository
	refunds    *MockRefundRepository
	checkouts  *MockCheckoutStore
	gateway    *MockGateway
	service    *WebhookService
}

func newWebhookFixture() *webhookFixture {
	logger := quietLogger()
	f := &webhookFixture{
		merchants: new(MockMerchantRepository),
		billing:   new(MockBillingRepository),
		refunds:   new(MockRefundRepository),
		checkouts: new(MockCheckoutStore),
		gateway:   new(MockGateway),
	}
	calculator := billing.NewCalculator(billing.DefaultCatalog(), f.refunds, logger)
	publisher := events.NewPublisher("nats://127.0.0.1:1", logger)
	notification := clients.NewNotificationClient("http://127.0.0.1:1")
	f.service = NewWebhookService(f.merchants, f.billing, f.checkouts, calculator, f.gateway, publisher, notification, logger)
	return f
}

const chargedBody = `{
	"event": "subscription.charged",
	"payload": {
		"subscription": {"entity": {"id": "sub_new", "plan_id": "plan_startup", "notes": {"merchant_id": "m-1"}}},
		"payment": {"entity": {"id": "pay_123", "amount": 117900, "method": "upi"}}
	}
}`

func (f *webhookFixture) expectEventStorage() {
	f.billing.On("GetWebhookEvent", mock.Anything, "RAZORPAY", mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	f.billing.On("CreateWebhookEvent", mock.Anything, mock.Anything).Return(nil)
	f.billing.On("UpdateWebhookEvent", mock.Anything, mock.Anything).Return(nil)
}

func TestProcess_RejectsBadSignature(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "bad").Return(errors.New("signature mismatch"))

	err := f.service.Process(context.Background(), "evt-1", []byte(chargedBody), "bad")

	assert.Error(t, err)
	f.billing.AssertNotCalled(t, "CreateWebhookEvent")
	f.merchants.AssertNotCalled(t, "Update")
}

func TestProcess_ChargedActivatesAndAppendsLedger(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(nil)
	f.gateway.On("PlanTypeForGatewayPlan", "plan_startup").Return(models.PlanStartup, true)
	f.expectEventStorage()

	created := time.Now().Add(-3 * 24 * time.Hour)
	merchant := &models.Merchant{
		ID:                    "m-1",
		PlanType:              models.PlanStartup,
		SubscriptionStatus:    models.SubscriptionPendingPayment,
		GatewaySubscriptionID: "sub_old",
		CreatedAt:             created,
	}

	f.billing.On("GetPaymentByGatewayID", mock.Anything, "pay_123").Return(nil, gorm.ErrRecordNotFound)
	f.merchants.On("Get", mock.Anything, "m-1").Return(merchant, nil)
	f.refunds.On("CountBillableRefunds", mock.Anything, "m-1", created).Return(int64(40), nil)
	f.merchants.On("Update", mock.Anything, mock.MatchedBy(func(m *models.Merchant) bool {
		return m.SubscriptionStatus == models.SubscriptionActive &&
			m.LastPaymentDate != nil &&
			m.GatewaySubscriptionID == "sub_new" &&
			m.UpcomingPlan == nil
	})).Return(nil)
	f.billing.On("CreatePaymentRecord", mock.Anything, mock.MatchedBy(func(r *models.PaymentRecord) bool {
		return r.MerchantID == "m-1" &&
			r.GatewayPaymentID == "pay_123" &&
			r.Amount == 1179.0 && // gateway amount in paise wins
			r.UsageCount == 40 &&
			r.InvoiceNumber != "" &&
			r.Method == "upi"
	})).Return(nil)
	f.checkouts.On("Clear", mock.Anything, "m-1").Return(nil)

	err := f.service.Process(context.Background(), "evt-1", []byte(chargedBody), "sig")

	assert.NoError(t, err)
	f.merchants.AssertExpectations(t)
	f.billing.AssertExpectations(t)
	f.checkouts.AssertExpectations(t)
}

func TestProcess_ChargedIsIdempotentByPaymentID(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(nil)
	f.expectEventStorage()

	f.billing.On("GetPaymentByGatewayID", mock.Anything, "pay_123").
		Return(&models.PaymentRecord{GatewayPaymentID: "pay_123"}, nil)

	err := f.service.Process(context.Background(), "evt-2", []byte(chargedBody), "sig")

	assert.NoError(t, err)
	f.merchants.AssertNotCalled(t, "Update")
	f.billing.AssertNotCalled(t, "CreatePaymentRecord")
}

func TestProcess_ConcurrentDeliveryLosesInsertRace(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(nil)
	f.billing.On("GetWebhookEvent", mock.Anything, "RAZORPAY", "evt-1").Return(nil, gorm.ErrRecordNotFound)
	f.billing.On("CreateWebhookEvent", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

	err := f.service.Process(context.Background(), "evt-1", []byte(chargedBody), "sig")

	// Losing the event-row insert means another worker owns the delivery;
	// nothing downstream may run.
	assert.NoError(t, err)
	f.billing.AssertNotCalled(t, "GetPaymentByGatewayID")
	f.billing.AssertNotCalled(t, "UpdateWebhookEvent")
	f.merchants.AssertNotCalled(t, "Get")
}

func TestProcess_FailedDeliveryIsReprocessed(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(nil)

	stored := &models.WebhookEvent{
		GatewayType:     "RAZORPAY",
		EventID:         "evt-1",
		EventType:       "subscription.charged",
		ProcessingError: "db down",
	}
	f.billing.On("GetWebhookEvent", mock.Anything, "RAZORPAY", "evt-1").Return(stored, nil)
	f.billing.On("GetPaymentByGatewayID", mock.Anything, "pay_123").
		Return(&models.PaymentRecord{GatewayPaymentID: "pay_123"}, nil)
	f.billing.On("UpdateWebhookEvent", mock.Anything, mock.MatchedBy(func(e *models.WebhookEvent) bool {
		return e.EventID == "evt-1" && e.Processed && e.ProcessingError == ""
	})).Return(nil)

	err := f.service.Process(context.Background(), "evt-1", []byte(chargedBody), "sig")

	assert.NoError(t, err)
	f.billing.AssertNotCalled(t, "CreateWebhookEvent")
	f.billing.AssertExpectations(t)
}

func TestProcess_ConcurrentChargeCannotDoubleAppendLedger(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(nil)
	f.gateway.On("PlanTypeForGatewayPlan", "plan_startup").Return(models.PlanStartup, true)
	f.expectEventStorage()

	created := time.Now().Add(-3 * 24 * time.Hour)
	merchant := &models.Merchant{
		ID:                 "m-1",
		PlanType:           models.PlanStartup,
		SubscriptionStatus: models.SubscriptionPendingPayment,
		CreatedAt:          created,
	}

	f.billing.On("GetPaymentByGatewayID", mock.Anything, "pay_123").Return(nil, gorm.ErrRecordNotFound)
	f.merchants.On("Get", mock.Anything, "m-1").Return(merchant, nil)
	f.refunds.On("CountBillableRefunds", mock.Anything, "m-1", created).Return(int64(40), nil)
	f.merchants.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.billing.On("CreatePaymentRecord", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

	err := f.service.Process(context.Background(), "evt-1", []byte(chargedBody), "sig")

	// The unique gateway-payment index arbitrated a concurrent charge; that
	// is a clean outcome, not a processing failure.
	assert.NoError(t, err)
	f.billing.AssertNumberOfCalls(t, "CreatePaymentRecord", 1)
}

func TestProcess_DuplicateEventIDSkipsEntirely(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(nil)
	f.billing.On("GetWebhookEvent", mock.Anything, "RAZORPAY", "evt-1").
		Return(&models.WebhookEvent{EventID: "evt-1", Processed: true}, nil)

	err := f.service.Process(context.Background(), "evt-1", []byte(chargedBody), "sig")

	assert.NoError(t, err)
	f.billing.AssertNotCalled(t, "GetPaymentByGatewayID")
}

func TestProcess_AuthenticatedDoesNotActivate(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(nil)
	f.expectEventStorage()

	body := `{
		"event": "subscription.authenticated",
		"payload": {"subscription": {"entity": {"id": "sub_new", "notes": {"merchant_id": "m-1"}}}}
	}`

	err := f.service.Process(context.Background(), "evt-3", []byte(body), "sig")

	assert.NoError(t, err)
	// Mandate approval moves no money: the merchant stays as-is until charged
	f.merchants.AssertNotCalled(t, "Get")
	f.merchants.AssertNotCalled(t, "Update")
}

func TestProcess_HaltedLocksMerchant(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(nil)
	f.expectEventStorage()

	merchant := &models.Merchant{
		ID:                 "m-1",
		PlanType:           models.PlanStartup,
		SubscriptionStatus: models.SubscriptionActive,
	}
	f.merchants.On("Get", mock.Anything, "m-1").Return(merchant, nil)
	f.merchants.On("Update", mock.Anything, mock.MatchedBy(func(m *models.Merchant) bool {
		return m.SubscriptionStatus == models.SubscriptionHalted
	})).Return(nil)

	body := `{
		"event": "subscription.halted",
		"payload": {"subscription": {"entity": {"id": "sub_new", "notes": {"merchant_id": "m-1"}}}}
	}`

	err := f.service.Process(context.Background(), "evt-4", []byte(body), "sig")

	assert.NoError(t, err)
	f.merchants.AssertExpectations(t)
}

func TestProcess_ResolvesMerchantBySubscriptionID(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(nil)
	f.expectEventStorage()

	merchant := &models.Merchant{
		ID:                    "m-9",
		PlanType:              models.PlanGrowth,
		SubscriptionStatus:    models.SubscriptionActive,
		GatewaySubscriptionID: "sub_x",
	}
	f.merchants.On("GetByGatewaySubscription", mock.Anything, "sub_x").Return(merchant, nil)
	f.merchants.On("Update", mock.Anything, mock.Anything).Return(nil)

	body := `{
		"event": "subscription.cancelled",
		"payload": {"subscription": {"entity": {"id": "sub_x"}}}
	}`

	err := f.service.Process(context.Background(), "evt-5", []byte(body), "sig")

	assert.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, merchant.SubscriptionStatus)
}

func TestProcess_IgnoresUnknownEvents(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.On("VerifyWebhookSignature", mock.Anything, "sig").Return(nil)
	f.expectEventStorage()

	body := `{"event": "invoice.generated", "payload": {}}`

	err := f.service.Process(context.Background(), "evt-6", []byte(body), "sig")

	assert.NoError(t, err)
	f.merchants.AssertNotCalled(t, "Update")
}
