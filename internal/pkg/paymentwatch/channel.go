package paymentwatch

import "context"

// ConnectionStatus describes the push channel transport, independent of the
// reconciled payment state. The watcher uses it to decide whether polling
// results are authoritative.
type ConnectionStatus string

const (
	ConnConnected    ConnectionStatus = "connected"
	ConnConnecting   ConnectionStatus = "connecting"
	ConnDisconnected ConnectionStatus = "disconnected"
	ConnError        ConnectionStatus = "error"
)

// Subscription is a live attachment to the push channel for one payment id.
// Both channels carry only the most recent value; stale entries are dropped
// because reconciliation is last-write-wins once statuses are canonical.
type Subscription interface {
	Events() <-chan RawStatusEvent
	Status() <-chan ConnectionStatus
	Close() error
}

// Channel opens push subscriptions keyed by payment id. Implementations must
// return a subscription that never opens a transport for an empty id.
type Channel interface {
	Subscribe(paymentID string) (Subscription, error)
}

// Publisher fans a payment event out to the subscribers of its payment id.
// The webhook bridge must publish on the same transport watchers subscribe
// on; both channel implementations are publishers.
type Publisher interface {
	Publish(ctx context.Context, ev RawStatusEvent) error
}

// subscription is the shared latest-value implementation used by all
// transports.
type subscription struct {
	events  chan RawStatusEvent
	status  chan ConnectionStatus
	closeFn func() error
}

func newSubscription(closeFn func() error) *subscription {
	return &subscription{
		events:  make(chan RawStatusEvent, 1),
		status:  make(chan ConnectionStatus, 1),
		closeFn: closeFn,
	}
}

func (s *subscription) Events() <-chan RawStatusEvent   { return s.events }
func (s *subscription) Status() <-chan ConnectionStatus { return s.status }

func (s *subscription) Close() error {
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

// deliver replaces any undelivered event with the newer one.
func (s *subscription) deliver(ev RawStatusEvent) {
	for {
		select {
		case s.events <- ev:
			return
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}

// setStatus replaces any undelivered connection status update.
func (s *subscription) setStatus(st ConnectionStatus) {
	for {
		select {
		case s.status <- st:
			return
		default:
			select {
			case <-s.status:
			default:
			}
		}
	}
}

// NewDisabledSubscription returns a subscription that stays disconnected and
// never opens a transport. Used when the payment id is absent or the push
// channel is switched off for the screen.
func NewDisabledSubscription() Subscription {
	sub := newSubscription(nil)
	sub.setStatus(ConnDisconnected)
	return sub
}
