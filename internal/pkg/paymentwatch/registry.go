package paymentwatch

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Terminal watchers hold no transports or timers anymore; the registry keeps
// them around briefly so late status polls from the UI still see the outcome.
const (
	DefaultSweepInterval = 1 * time.Minute
	DefaultRetention     = 10 * time.Minute
)

// Registry tracks the live watcher per payment id so all HTTP requests for
// one payment attempt share a single state machine.
type Registry struct {
	mu       sync.Mutex
	watchers map[string]*Watcher

	sweepTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	running     bool
}

// NewRegistry creates an empty watcher registry.
func NewRegistry() *Registry {
	return &Registry{
		watchers: make(map[string]*Watcher),
	}
}

// GetOrCreate returns the watcher for the payment id, creating it with the
// given constructor when none is live yet.
func (r *Registry) GetOrCreate(paymentID string, create func() *Watcher) *Watcher {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.watchers[paymentID]; ok {
		return w
	}
	w := create()
	r.watchers[paymentID] = w
	return w
}

// Get returns the live watcher for the payment id, if any.
func (r *Registry) Get(paymentID string) (*Watcher, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watchers[paymentID]
	return w, ok
}

// Remove closes and forgets the watcher for the payment id.
func (r *Registry) Remove(paymentID string) {
	r.mu.Lock()
	w, ok := r.watchers[paymentID]
	if ok {
		delete(r.watchers, paymentID)
	}
	r.mu.Unlock()

	if ok {
		w.Close()
	}
}

// Len returns the number of tracked watchers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// Start launches the background sweeper that evicts watchers which have been
// terminal for longer than the retention window.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	r.stopCh = make(chan struct{})
	r.sweepTicker = time.NewTicker(DefaultSweepInterval)
	r.running = true

	r.wg.Add(1)
	go r.sweeper()
	log.Info("[PaymentWatch] Registry sweeper started")
}

// Stop halts the sweeper and closes every tracked watcher.
func (r *Registry) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.sweepTicker.Stop()
	close(r.stopCh)
	r.running = false

	remaining := make([]*Watcher, 0, len(r.watchers))
	for id, w := range r.watchers {
		remaining = append(remaining, w)
		delete(r.watchers, id)
	}
	r.mu.Unlock()

	r.wg.Wait()
	for _, w := range remaining {
		w.Close()
	}
	log.Info("[PaymentWatch] Registry sweeper stopped")
}

func (r *Registry) sweeper() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopCh:
			return
		case <-r.sweepTicker.C:
			r.sweepOnce(DefaultRetention)
		}
	}
}

func (r *Registry) sweepOnce(retention time.Duration) {
	now := time.Now()

	r.mu.Lock()
	expired := make([]*Watcher, 0)
	for id, w := range r.watchers {
		since, terminal := w.TerminalSince()
		if terminal && now.Sub(since) > retention {
			expired = append(expired, w)
			delete(r.watchers, id)
		}
	}
	r.mu.Unlock()

	for _, w := range expired {
		w.Close()
		log.Debugf("[PaymentWatch] Swept finished watcher for %s", w.Reference().PaymentID)
	}
}
