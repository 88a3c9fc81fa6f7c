package paymentwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// EventChannelKeyFormat is the Pub/Sub channel the provider bridge publishes
// payment events to. Format: payment:events:<paymentId>
const EventChannelKeyFormat = "payment:events:%s"

// EventChannelKey returns the Pub/Sub channel name for a payment id.
func EventChannelKey(paymentID string) string {
	return fmt.Sprintf(EventChannelKeyFormat, paymentID)
}

// RedisChannel delivers push events over Redis Pub/Sub.
type RedisChannel struct {
	client *redis.Client
}

// NewRedisChannel creates a push channel backed by the given Redis client.
func NewRedisChannel(client *redis.Client) *RedisChannel {
	return &RedisChannel{client: client}
}

// Subscribe attaches to the payment's event channel. The returned
// subscription reports connecting until the server confirms the
// subscription, then connected; transport failures surface as error so the
// caller can fall back to polling.
func (c *RedisChannel) Subscribe(paymentID string) (Subscription, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return NewDisabledSubscription(), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	pubsub := c.client.Subscribe(ctx, EventChannelKey(id))

	sub := newSubscription(func() error {
		cancel()
		return pubsub.Close()
	})
	sub.setStatus(ConnConnecting)

	go func() {
		// Receive blocks until the server acknowledges the subscription.
		if _, err := pubsub.Receive(ctx); err != nil {
			if ctx.Err() == nil {
				log.Errorf("[PaymentWatch] Push subscription for %s failed: %v", id, err)
				sub.setStatus(ConnError)
			}
			return
		}
		sub.setStatus(ConnConnected)

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				sub.setStatus(ConnDisconnected)
				return
			case msg, ok := <-msgs:
				if !ok {
					if ctx.Err() == nil {
						sub.setStatus(ConnError)
					} else {
						sub.setStatus(ConnDisconnected)
					}
					return
				}
				var ev RawStatusEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warnf("[PaymentWatch] Dropping malformed push event for %s: %v", id, err)
					continue
				}
				ev.Source = SourcePush
				if ev.Timestamp.IsZero() {
					ev.Timestamp = time.Now()
				}
				sub.deliver(ev)
			}
		}
	}()

	return sub, nil
}

// Publish sends a payment event to all subscribers of the payment's channel.
// Used by the webhook bridge when provider callbacks arrive.
func (c *RedisChannel) Publish(ctx context.Context, ev RawStatusEvent) error {
	payload, err := marshalEvent(&ev)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, EventChannelKey(ev.PaymentID), payload).Err()
}

// marshalEvent validates and encodes an event for the wire, stamping it when
// the producer left the timestamp empty.
func marshalEvent(ev *RawStatusEvent) ([]byte, error) {
	if strings.TrimSpace(ev.PaymentID) == "" {
		return nil, fmt.Errorf("payment id is required to publish an event")
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment event: %w", err)
	}
	return payload, nil
}
