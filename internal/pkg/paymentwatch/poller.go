package paymentwatch

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// DefaultPollInterval is how often the fallback asks the provider for the
// payment status when the push channel is unavailable or unconfirmed.
const DefaultPollInterval = 4 * time.Second

// StatusFetcher retrieves the provider's current view of a payment. The
// provider client implements this.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, paymentID string) (RawStatusEvent, error)
}

// Poller periodically fetches the payment status and hands results to the
// watcher. It keeps a single request in flight, swallows transient errors and
// stops itself once it observes a terminal outcome: polling past a terminal
// state risks stale overwrites, so self-termination is a correctness
// requirement rather than an optimization.
type Poller struct {
	fetch    StatusFetcher
	interval time.Duration
	events   chan RawStatusEvent
}

// NewPoller creates a poller with the given interval (DefaultPollInterval if
// zero or negative).
func NewPoller(fetch StatusFetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		fetch:    fetch,
		interval: interval,
		events:   make(chan RawStatusEvent, 1),
	}
}

// Events returns the stream of poll results. Only the most recent result is
// retained if the consumer lags.
func (p *Poller) Events() <-chan RawStatusEvent {
	return p.events
}

// Run polls until a terminal outcome is observed or ctx is cancelled. Fetch
// calls are synchronous, so there is never more than one in-flight request
// per payment.
func (p *Poller) Run(ctx context.Context, paymentID string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev, err := p.fetch.FetchStatus(ctx, paymentID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// Transient errors keep the loop alive until the deadline.
				log.Debugf("[PaymentWatch] Poll for %s failed: %v", paymentID, err)
				continue
			}
			ev.Source = SourcePoll
			if ev.Timestamp.IsZero() {
				ev.Timestamp = time.Now()
			}
			p.deliver(ev)
			if Normalize(ev).Terminal() {
				return
			}
		}
	}
}

// deliver replaces any unconsumed result with the newer one.
func (p *Poller) deliver(ev RawStatusEvent) {
	for {
		select {
		case p.events <- ev:
			return
		default:
			select {
			case <-p.events:
			default:
			}
		}
	}
}
