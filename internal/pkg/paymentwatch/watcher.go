package paymentwatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// State is the single authoritative UI state for a payment check.
type State string

const (
	StateChecking State = "checking"
	StatePending  State = "pending"
	StateSuccess  State = "success"
	StateFailed   State = "failed"
	StateTimeout  State = "timeout"
)

// Terminal reports whether no further transition is allowed out of the state.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateTimeout
}

// DefaultDeadline is how long an unresolved payment check runs before it is
// abandoned as timed out.
const DefaultDeadline = 120 * time.Second

// MissingPaymentInfoMessage is the fast-fail reason shown when the callback
// screen has neither a URL status nor a usable payment id.
const MissingPaymentInfoMessage = "missing payment information"

// Snapshot is the watcher state as rendered by the UI.
type Snapshot struct {
	State      State            `json:"state"`
	Message    string           `json:"message"`
	Connection ConnectionStatus `json:"connection"`
	Redirect   *Redirect        `json:"redirect,omitempty"`
}

// Config wires the watcher's collaborators. Channel and Fetcher may be nil;
// a watcher without producers resolves via the seed event or the deadline.
type Config struct {
	Channel      Channel
	Fetcher      StatusFetcher
	Driver       *Driver
	Deadline     time.Duration
	PollInterval time.Duration
}

// Watcher reconciles push events and poll results into one authoritative
// payment state. It is the single serialization point: all transitions are
// computed inside one goroutine, so no transition can be derived from a
// stale read of the state.
//
// Transitions move forward only: checking -> {pending <-> checking} ->
// {success|failed|timeout}. Terminal states absorb all later events.
type Watcher struct {
	ref PaymentReference
	cfg Config

	mu         sync.RWMutex
	state      State
	message    string
	conn       ConnectionStatus
	redirect   *Redirect
	finishedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher starts watching one payment attempt. seed carries the status the
// provider redirect placed on the callback URL, if any.
//
// Fast-fail guard: with no seed and no usable payment id there is nothing to
// watch, so the watcher resolves to failed synchronously without starting
// timers or opening transports.
func NewWatcher(ref PaymentReference, seed *RawStatusEvent, cfg Config) *Watcher {
	w := &Watcher{
		ref:     ref,
		cfg:     cfg,
		state:   StateChecking,
		message: "checking payment status",
		conn:    ConnDisconnected,
		done:    make(chan struct{}),
	}

	if seed == nil && !ref.Usable() {
		w.finish(StateFailed, MissingPaymentInfoMessage, MissingPaymentInfoMessage)
		close(w.done)
		return w
	}

	// A URL-carried status is applied synchronously so the first render of
	// the callback screen already reflects it. When it is terminal, no
	// timers or transports are ever opened.
	if seed != nil {
		ev := *seed
		if ev.Source == "" {
			ev.Source = SourceSeed
		}
		if w.apply(ev) {
			close(w.done)
			return w
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.run(ctx)
	return w
}

// run owns every transition. All producers, the deadline timer and the push
// subscription are torn down together on each exit path.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.cancel()

	deadline := time.NewTimer(w.deadline())
	defer deadline.Stop()

	var (
		events   <-chan RawStatusEvent
		statuses <-chan ConnectionStatus
	)
	if w.cfg.Channel != nil && w.ref.Usable() {
		sub, err := w.cfg.Channel.Subscribe(w.ref.PaymentID)
		if err != nil {
			log.Warnf("[PaymentWatch] Push channel unavailable for %s, relying on polling: %v", w.ref.PaymentID, err)
		}
		if sub != nil {
			defer sub.Close()
			events = sub.Events()
			statuses = sub.Status()
		}
	}

	// Tie-break: the push channel wins while it is live. The poller's ticker
	// runs only while the channel is not connected, but its result channel
	// stays attached, so a status fetched right as the channel connected is
	// still applied instead of dropped. After the ticker stops at most one
	// such result can arrive, and terminal states are immutable, so a stale
	// poll result can never overwrite a push outcome.
	var (
		pollEvents <-chan RawStatusEvent
		pollCancel context.CancelFunc
	)
	startPolling := func() bool {
		if w.cfg.Fetcher == nil || !w.ref.Usable() || pollCancel != nil {
			return false
		}
		// Pick up a result the previous poller delivered after it was paused.
		if pollEvents != nil {
			select {
			case ev := <-pollEvents:
				if w.apply(ev) {
					return true
				}
			default:
			}
		}
		pctx, cancel := context.WithCancel(ctx)
		pollCancel = cancel
		poller := NewPoller(w.cfg.Fetcher, w.cfg.PollInterval)
		pollEvents = poller.Events()
		go poller.Run(pctx, w.ref.PaymentID)
		return false
	}
	stopPolling := func() {
		if pollCancel != nil {
			pollCancel()
			pollCancel = nil
		}
	}
	if startPolling() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case st := <-statuses:
			w.setConnection(st)
			if st == ConnConnected {
				stopPolling()
			} else if startPolling() {
				return
			}
		case ev := <-events:
			if w.apply(ev) {
				return
			}
		case ev := <-pollEvents:
			if w.apply(ev) {
				return
			}
		case <-deadline.C:
			w.finish(StateTimeout, "payment status check timed out", "")
			return
		}
	}
}

// apply normalizes one event and advances the state machine. Returns true
// once the state is terminal.
func (w *Watcher) apply(ev RawStatusEvent) bool {
	if w.State().Terminal() {
		return true
	}

	switch Normalize(ev) {
	case OutcomeSuccess:
		w.finish(StateSuccess, messageOrDefault(ev, "payment completed successfully"), "")
		return true
	case OutcomeFailed:
		w.finish(StateFailed, messageOrDefault(ev, "payment failed"), failureReason(ev))
		return true
	default:
		w.setPending(messageOrDefault(ev, "payment is being processed"))
		return false
	}
}

// finish performs the single terminal transition and fires the side-effect
// driver. It is reachable once: the terminal check under the lock bars
// re-entry even if a late caller races the deadline.
func (w *Watcher) finish(state State, message, reason string) {
	w.mu.Lock()
	if w.state.Terminal() {
		w.mu.Unlock()
		return
	}
	w.state = state
	w.message = message
	w.finishedAt = time.Now()
	w.mu.Unlock()

	if w.cfg.Driver == nil {
		return
	}
	redirect := w.cfg.Driver.OnTerminal(context.Background(), state, w.ref, reason)
	w.mu.Lock()
	w.redirect = redirect
	w.mu.Unlock()
}

func (w *Watcher) setPending(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Terminal() {
		return
	}
	w.state = StatePending
	w.message = message
}

func (w *Watcher) setConnection(st ConnectionStatus) {
	w.mu.Lock()
	w.conn = st
	w.mu.Unlock()
}

// Reference returns the payment reference the watcher was mounted with.
func (w *Watcher) Reference() PaymentReference {
	return w.ref
}

// State returns the current reconciled state.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Connection returns the push channel's transport status.
func (w *Watcher) Connection() ConnectionStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.conn
}

// Snapshot returns the state as the UI should render it.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Snapshot{
		State:      w.state,
		Message:    w.message,
		Connection: w.conn,
		Redirect:   w.redirect,
	}
}

// TerminalSince reports when the watcher reached a terminal state.
func (w *Watcher) TerminalSince() (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.state.Terminal() {
		return time.Time{}, false
	}
	return w.finishedAt, true
}

// Done is closed once the watcher goroutine has exited and all resources are
// released.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Close cancels the poll loop, the deadline timer and the push subscription
// together and waits for the watcher goroutine to exit. Safe to call from any
// exit path, any number of times.
func (w *Watcher) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
}

func (w *Watcher) deadline() time.Duration {
	if w.cfg.Deadline <= 0 {
		return DefaultDeadline
	}
	return w.cfg.Deadline
}

func messageOrDefault(ev RawStatusEvent, def string) string {
	if strings.TrimSpace(ev.Message) != "" {
		return ev.Message
	}
	return def
}

// failureReason picks the value carried to the failure screen's reason query
// parameter: the provider's raw code when present, verbatim apart from
// casing.
func failureReason(ev RawStatusEvent) string {
	if s := strings.ToUpper(strings.TrimSpace(ev.Status)); s != "" {
		return s
	}
	if strings.TrimSpace(ev.Message) != "" {
		return ev.Message
	}
	return "FAILED"
}
