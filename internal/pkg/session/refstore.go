package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key format for the server-side copy of a payment reference.
// Format: payment:ref:<paymentId>
const PaymentRefKeyFormat = "payment:ref:%s"

// PaymentRefTTL bounds how long an unresolved reference survives.
const PaymentRefTTL = 24 * time.Hour

// PaymentRefStore keeps the payment reference keys in Redis so the
// side-effect driver can purge them outside the request that created them.
// It implements paymentwatch.ReferenceStore for one payment id.
type PaymentRefStore struct {
	client    *redis.Client
	paymentID string
}

// NewPaymentRefStore binds a reference store to one payment id.
func NewPaymentRefStore(client *redis.Client, paymentID string) *PaymentRefStore {
	return &PaymentRefStore{client: client, paymentID: paymentID}
}

func (s *PaymentRefStore) key() string {
	return fmt.Sprintf(PaymentRefKeyFormat, s.paymentID)
}

// Save writes the three payment keys as one hash.
func (s *PaymentRefStore) Save(ctx context.Context, orderID, cartID string) error {
	if err := s.client.HSet(ctx, s.key(), map[string]interface{}{
		KeyCurrentPaymentID: s.paymentID,
		KeyLastOrderID:      orderID,
		KeyCheckoutCartID:   cartID,
	}).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, s.key(), PaymentRefTTL).Err()
}

// Load reads back the stored order and cart ids.
func (s *PaymentRefStore) Load(ctx context.Context) (orderID, cartID string, err error) {
	vals, err := s.client.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return "", "", err
	}
	return vals[KeyLastOrderID], vals[KeyCheckoutCartID], nil
}

// Purge removes all three keys together.
func (s *PaymentRefStore) Purge(ctx context.Context) error {
	return s.client.Del(ctx, s.key()).Err()
}
