package paymentwatch

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	sub *subscription
	err error
}

func (f *fakeChannel) Subscribe(paymentID string) (Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	event RawStatusEvent
	err   error
	calls int
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, paymentID string) (RawStatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.event, f.err
}

func (f *fakeFetcher) set(ev RawStatusEvent, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.event = ev
	f.err = err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCart struct {
	clears  atomic.Int32
	lastID  atomic.Value
	failErr error
}

func (f *fakeCart) ClearCart(ctx context.Context, cartID string) error {
	f.clears.Add(1)
	f.lastID.Store(cartID)
	return f.failErr
}

type fakeRefs struct {
	purges atomic.Int32
}

func (f *fakeRefs) Purge(ctx context.Context) error {
	f.purges.Add(1)
	return nil
}

func testRef() PaymentReference {
	return PaymentReference{PaymentID: "pay_123", OrderID: "ord_456", CartID: "cart_789"}
}

func waitDone(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not finish in time")
	}
}

// TestWatcherSeedSuccess tests that a terminal status carried on the callback
// URL resolves the watcher synchronously, with the success side effects run
// exactly once.
func TestWatcherSeedSuccess(t *testing.T) {
	cart := &fakeCart{}
	refs := &fakeRefs{}
	driver := &Driver{Cart: cart, Refs: refs, Delay: 50 * time.Millisecond}

	seed := &RawStatusEvent{Status: "SUCCEEDED", PaymentID: "pay_123"}
	w := NewWatcher(testRef(), seed, Config{Driver: driver})
	waitDone(t, w)

	snap := w.Snapshot()
	assert.Equal(t, StateSuccess, snap.State)
	assert.Equal(t, int32(1), cart.clears.Load())
	assert.Equal(t, "cart_789", cart.lastID.Load())
	assert.Equal(t, int32(1), refs.purges.Load())

	require.NotNil(t, snap.Redirect)
	u, err := url.Parse(snap.Redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, SuccessPath, u.Path)
	assert.Equal(t, "ord_456", u.Query().Get("orderId"))
	assert.Equal(t, "pay_123", u.Query().Get("paymentId"))
	assert.Equal(t, 50*time.Millisecond, snap.Redirect.After)
}

// TestWatcherFastFail tests the synchronous failure when the callback carries
// neither a status nor a payment id. No timers or transports may be opened.
func TestWatcherFastFail(t *testing.T) {
	cart := &fakeCart{}
	w := NewWatcher(PaymentReference{}, nil, Config{Driver: NewDriver(cart, nil)})
	waitDone(t, w)

	snap := w.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, MissingPaymentInfoMessage, snap.Message)
	assert.Equal(t, int32(0), cart.clears.Load(), "fast-fail must not touch the cart")

	require.NotNil(t, snap.Redirect)
	u, err := url.Parse(snap.Redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, FailedPath, u.Path)
	assert.Equal(t, MissingPaymentInfoMessage, u.Query().Get("reason"))

	// Close on an already finished watcher must not block.
	w.Close()
	w.Close()
}

// TestWatcherPushDeclined tests that a declined push event resolves to failed
// and carries the uppercased provider code as the failure reason.
func TestWatcherPushDeclined(t *testing.T) {
	sub := newSubscription(nil)
	ch := &fakeChannel{sub: sub}
	cart := &fakeCart{}
	w := NewWatcher(testRef(), nil, Config{
		Channel: ch,
		Driver:  NewDriver(cart, nil),
	})
	defer w.Close()

	sub.deliver(RawStatusEvent{Status: "declined", Source: SourcePush})
	waitDone(t, w)

	snap := w.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, int32(0), cart.clears.Load(), "failure must leave the cart intact")

	require.NotNil(t, snap.Redirect)
	u, err := url.Parse(snap.Redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, "DECLINED", u.Query().Get("reason"))
	assert.Equal(t, "ord_456", u.Query().Get("orderId"))
}

// TestWatcherTerminalImmutable tests that a terminal state absorbs every later
// event without re-firing side effects.
func TestWatcherTerminalImmutable(t *testing.T) {
	cart := &fakeCart{}
	refs := &fakeRefs{}
	sub := newSubscription(nil)
	w := NewWatcher(testRef(), nil, Config{
		Channel: &fakeChannel{sub: sub},
		Driver:  &Driver{Cart: cart, Refs: refs, Delay: time.Millisecond},
	})

	sub.deliver(RawStatusEvent{Status: "SUCCEEDED", Source: SourcePush})
	waitDone(t, w)
	require.Equal(t, StateSuccess, w.State())
	first := w.Snapshot()

	// The run loop has exited; a direct apply simulates any late caller.
	assert.True(t, w.apply(RawStatusEvent{Status: "DECLINED"}))
	assert.Equal(t, StateSuccess, w.State())
	assert.Equal(t, first.Redirect, w.Snapshot().Redirect)
	assert.Equal(t, int32(1), cart.clears.Load())
	assert.Equal(t, int32(1), refs.purges.Load())
}

// TestWatcherPendingThenSuccess tests the checking -> pending -> success walk
// driven by push events, including an unrecognized vendor code.
func TestWatcherPendingThenSuccess(t *testing.T) {
	sub := newSubscription(nil)
	w := NewWatcher(testRef(), nil, Config{
		Channel: &fakeChannel{sub: sub},
		Driver:  &Driver{Delay: time.Millisecond},
	})
	defer w.Close()

	assert.Equal(t, StateChecking, w.State())

	sub.deliver(RawStatusEvent{Status: "REVIEWING", Source: SourcePush})
	assert.Eventually(t, func() bool { return w.State() == StatePending },
		time.Second, 5*time.Millisecond)

	sub.deliver(RawStatusEvent{Status: "SUCCEEDED", Source: SourcePush})
	waitDone(t, w)
	assert.Equal(t, StateSuccess, w.State())
}

// TestWatcherPushWinsOverPoll tests the tie-break: polling pauses while the
// push channel is connected and resumes once it degrades.
func TestWatcherPushWinsOverPoll(t *testing.T) {
	sub := newSubscription(nil)
	// Buffer the connected status before the watcher starts so the first poll
	// never races it.
	sub.setStatus(ConnConnected)

	fetcher := &fakeFetcher{}
	fetcher.set(RawStatusEvent{Status: "SUCCEEDED"}, nil)

	w := NewWatcher(testRef(), nil, Config{
		Channel:      &fakeChannel{sub: sub},
		Fetcher:      fetcher,
		PollInterval: 10 * time.Millisecond,
		Driver:       &Driver{Delay: time.Millisecond},
	})
	defer w.Close()

	require.Eventually(t, func() bool { return w.Connection() == ConnConnected },
		time.Second, time.Millisecond)

	// Polling is paused; at most a fetch that was already in flight when the
	// channel connected may land.
	base := fetcher.callCount()
	time.Sleep(60 * time.Millisecond)
	assert.LessOrEqual(t, fetcher.callCount(), base+1, "poller kept running while push channel connected")
	assert.False(t, w.State().Terminal())

	// Once the channel drops, polling resumes and resolves the payment.
	sub.setStatus(ConnDisconnected)
	waitDone(t, w)
	assert.Equal(t, StateSuccess, w.State())
}

// connectRacingFetcher confirms the push channel from inside the fetch, so
// the watcher pauses polling at the exact moment a terminal result is
// produced.
type connectRacingFetcher struct {
	sub *subscription
}

func (f *connectRacingFetcher) FetchStatus(ctx context.Context, paymentID string) (RawStatusEvent, error) {
	f.sub.setStatus(ConnConnected)
	return RawStatusEvent{Status: "SUCCEEDED", PaymentID: paymentID}, nil
}

// TestWatcherConnectKeepsInFlightPollResult tests that a terminal result
// fetched while the push channel connects is applied rather than discarded
// with the paused poller.
func TestWatcherConnectKeepsInFlightPollResult(t *testing.T) {
	sub := newSubscription(nil)
	w := NewWatcher(testRef(), nil, Config{
		Channel:      &fakeChannel{sub: sub},
		Fetcher:      &connectRacingFetcher{sub: sub},
		PollInterval: 10 * time.Millisecond,
		Deadline:     time.Second,
		Driver:       &Driver{Delay: time.Millisecond},
	})
	defer w.Close()

	waitDone(t, w)
	assert.Equal(t, StateSuccess, w.State())
}

// TestWatcherPollResolves tests the polling fallback end to end, including
// tolerance of transient fetch errors.
func TestWatcherPollResolves(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(RawStatusEvent{}, errors.New("connection refused"))

	w := NewWatcher(testRef(), nil, Config{
		Fetcher:      fetcher,
		PollInterval: 10 * time.Millisecond,
		Driver:       &Driver{Delay: time.Millisecond},
	})
	defer w.Close()

	require.Eventually(t, func() bool { return fetcher.callCount() >= 2 },
		time.Second, time.Millisecond)
	assert.False(t, w.State().Terminal())

	fetcher.set(RawStatusEvent{Status: "COMPLETED"}, nil)
	waitDone(t, w)
	assert.Equal(t, StateSuccess, w.State())
}

// TestWatcherTimeout tests that an unresolved check times out at the deadline
// with no navigation scheduled.
func TestWatcherTimeout(t *testing.T) {
	cart := &fakeCart{}
	refs := &fakeRefs{}
	var outcomes []State
	w := NewWatcher(testRef(), nil, Config{
		Deadline: 30 * time.Millisecond,
		Driver: &Driver{
			Cart:    cart,
			Refs:    refs,
			Delay:   time.Millisecond,
			Outcome: func(state State) { outcomes = append(outcomes, state) },
		},
	})
	waitDone(t, w)

	snap := w.Snapshot()
	assert.Equal(t, StateTimeout, snap.State)
	assert.Equal(t, []State{StateTimeout}, outcomes)
	assert.Nil(t, snap.Redirect, "timeout must not navigate away from recovery actions")
	assert.Equal(t, int32(0), cart.clears.Load())
	assert.Equal(t, int32(0), refs.purges.Load())

	since, terminal := w.TerminalSince()
	assert.True(t, terminal)
	assert.False(t, since.IsZero())
}

// TestWatcherPendingSeedKeepsDeadline tests that a non-terminal seed does not
// resolve the watcher and the deadline still fires.
func TestWatcherPendingSeedKeepsDeadline(t *testing.T) {
	seed := &RawStatusEvent{Status: "open"}
	w := NewWatcher(testRef(), seed, Config{
		Deadline: 30 * time.Millisecond,
		Driver:   &Driver{Delay: time.Millisecond},
	})

	assert.Equal(t, StatePending, w.State())
	waitDone(t, w)
	assert.Equal(t, StateTimeout, w.State())
}

// TestWatcherClose tests that Close tears the watcher down without a terminal
// transition being forced.
func TestWatcherClose(t *testing.T) {
	w := NewWatcher(testRef(), nil, Config{
		Deadline: time.Hour,
	})
	require.Equal(t, StateChecking, w.State())

	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, StateChecking, w.State())
}

// TestWatcherSubscribeErrorFallsBack tests that a broken push channel does not
// prevent the polling fallback from resolving the payment.
func TestWatcherSubscribeErrorFallsBack(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(RawStatusEvent{Status: "APPROVED"}, nil)

	w := NewWatcher(testRef(), nil, Config{
		Channel:      &fakeChannel{err: errors.New("redis down")},
		Fetcher:      fetcher,
		PollInterval: 10 * time.Millisecond,
		Driver:       &Driver{Delay: time.Millisecond},
	})
	waitDone(t, w)
	assert.Equal(t, StateSuccess, w.State())
}

// TestWatcherCartClearErrorAbsorbed tests that a failing cart clear neither
// blocks the redirect nor flips the outcome.
func TestWatcherCartClearErrorAbsorbed(t *testing.T) {
	cart := &fakeCart{failErr: errors.New("redis down")}
	seed := &RawStatusEvent{Status: "SUCCEEDED"}
	w := NewWatcher(testRef(), seed, Config{
		Driver: &Driver{Cart: cart, Delay: time.Millisecond},
	})
	waitDone(t, w)

	snap := w.Snapshot()
	assert.Equal(t, StateSuccess, snap.State)
	assert.NotNil(t, snap.Redirect)
	assert.Equal(t, int32(1), cart.clears.Load())
}
