package paymentwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/nats-io/nats.go"
)

// EventSubjectFormat is the NATS subject payment events arrive on when the
// provider bridge runs over NATS instead of Redis Pub/Sub.
// Format: shopfox.payments.<paymentId>
const EventSubjectFormat = "shopfox.payments.%s"

// NATSChannel delivers push events over a NATS subject per payment.
type NATSChannel struct {
	conn *nats.Conn
}

// NewNATSChannel creates a push channel backed by an established NATS
// connection.
func NewNATSChannel(conn *nats.Conn) *NATSChannel {
	return &NATSChannel{conn: conn}
}

// Subscribe attaches to the payment's subject. NATS subscriptions are
// confirmed synchronously, so the status moves straight to connected; a
// closed or draining connection surfaces as error.
func (c *NATSChannel) Subscribe(paymentID string) (Subscription, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return NewDisabledSubscription(), nil
	}

	sub := newSubscription(nil)
	sub.setStatus(ConnConnecting)

	if c.conn == nil || c.conn.IsClosed() {
		sub.setStatus(ConnError)
		return sub, fmt.Errorf("nats connection is not available")
	}

	ns, err := c.conn.Subscribe(fmt.Sprintf(EventSubjectFormat, id), func(msg *nats.Msg) {
		var ev RawStatusEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Warnf("[PaymentWatch] Dropping malformed NATS event for %s: %v", id, err)
			return
		}
		ev.Source = SourcePush
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		sub.deliver(ev)
	})
	if err != nil {
		sub.setStatus(ConnError)
		return sub, fmt.Errorf("failed to subscribe to payment subject: %w", err)
	}

	sub.closeFn = func() error {
		err := ns.Unsubscribe()
		sub.setStatus(ConnDisconnected)
		return err
	}
	sub.setStatus(ConnConnected)
	return sub, nil
}

// Publish sends a payment event to the payment's subject so NATS-attached
// watchers receive it.
func (c *NATSChannel) Publish(_ context.Context, ev RawStatusEvent) error {
	payload, err := marshalEvent(&ev)
	if err != nil {
		return err
	}
	if c.conn == nil || c.conn.IsClosed() {
		return fmt.Errorf("nats connection is not available")
	}
	return c.conn.Publish(fmt.Sprintf(EventSubjectFormat, ev.PaymentID), payload)
}
