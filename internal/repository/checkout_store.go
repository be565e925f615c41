package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkout markers expire on their own; a dismissed checkout modal must not
// leave the merchant in "processing" forever.
const checkoutMarkerTTL = 15 * time.Minute

// CheckoutStoreInterface tracks in-flight checkout sessions for the polling
// bridge
type CheckoutStoreInterface interface {
	MarkPending(ctx context.Context, merchantID, subscriptionID string) error
	PendingSubscription(ctx context.Context, merchantID string) (string, bool, error)
	Clear(ctx context.Context, merchantID string) error
}

// CheckoutStore is a Redis-backed store of pending checkout markers
type CheckoutStore struct {
	client *redis.Client
}

var _ CheckoutStoreInterface = (*CheckoutStore)(nil)

// NewCheckoutStore creates a new checkout store
func NewCheckoutStore(client *redis.Client) *CheckoutStore {
	return &CheckoutStore{client: client}
}

func checkoutKey(merchantID string) string {
	return fmt.Sprintf("billing:checkout:%s", merchantID)
}

// MarkPending records that a checkout was initiated for the merchant
func (s *CheckoutStore) MarkPending(ctx context.Context, merchantID, subscriptionID string) error {
	return s.client.Set(ctx, checkoutKey(merchantID), subscriptionID, checkoutMarkerTTL).Err()
}

// PendingSubscription returns the gateway subscription ID of an in-flight
// checkout, if any
func (s *CheckoutStore) PendingSubscription(ctx context.Context, merchantID string) (string, bool, error) {
	val, err := s.client.Get(ctx, checkoutKey(merchantID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Clear removes the pending marker once the subscription is confirmed
func (s *CheckoutStore) Clear(ctx context.Context, merchantID string) error {
	return s.client.Del(ctx, checkoutKey(merchantID)).Err()
}
