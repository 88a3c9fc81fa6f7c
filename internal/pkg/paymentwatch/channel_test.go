package paymentwatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSubscriptionLatestWins tests that an undelivered event is replaced by
// the newer one instead of blocking the producer.
func TestSubscriptionLatestWins(t *testing.T) {
	sub := newSubscription(nil)

	sub.deliver(RawStatusEvent{Status: "PROCESSING"})
	sub.deliver(RawStatusEvent{Status: "SUCCEEDED"})

	ev := <-sub.Events()
	assert.Equal(t, "SUCCEEDED", ev.Status)

	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected second event: %v", extra)
	default:
	}
}

// TestSubscriptionStatusLatestWins tests the same replacement for connection
// status updates.
func TestSubscriptionStatusLatestWins(t *testing.T) {
	sub := newSubscription(nil)

	sub.setStatus(ConnConnecting)
	sub.setStatus(ConnConnected)

	assert.Equal(t, ConnConnected, <-sub.Status())
}

// TestDisabledSubscription tests that the disabled subscription reports
// disconnected and closes cleanly.
func TestDisabledSubscription(t *testing.T) {
	sub := NewDisabledSubscription()

	assert.Equal(t, ConnDisconnected, <-sub.Status())
	select {
	case ev := <-sub.Events():
		t.Fatalf("disabled subscription produced an event: %v", ev)
	default:
	}
	assert.NoError(t, sub.Close())
}

// TestRedisPublishRequiresPaymentID tests that an event without a payment id
// is rejected before the transport is touched.
func TestRedisPublishRequiresPaymentID(t *testing.T) {
	ch := NewRedisChannel(nil)
	err := ch.Publish(context.Background(), RawStatusEvent{Status: "SUCCEEDED"})
	assert.ErrorContains(t, err, "payment id is required")
}

// TestNATSPublishUnavailable tests the publish guards on the NATS transport:
// a missing payment id and a missing connection both error without panicking.
func TestNATSPublishUnavailable(t *testing.T) {
	ch := NewNATSChannel(nil)

	err := ch.Publish(context.Background(), RawStatusEvent{Status: "SUCCEEDED"})
	assert.ErrorContains(t, err, "payment id is required")

	err = ch.Publish(context.Background(), RawStatusEvent{Status: "SUCCEEDED", PaymentID: "pay_1"})
	assert.ErrorContains(t, err, "nats connection is not available")
}

// TestSubscriptionCloseFn tests that Close delegates to the transport hook.
func TestSubscriptionCloseFn(t *testing.T) {
	closed := false
	sub := newSubscription(func() error {
		closed = true
		return nil
	})
	assert.NoError(t, sub.Close())
	assert.True(t, closed)
}
