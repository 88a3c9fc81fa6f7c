package paymentwatch

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Navigation targets for terminal outcomes.
const (
	SuccessPath = "/checkout/success"
	FailedPath  = "/checkout/failed"
)

// DefaultRedirectDelay gives the terminal screen time to display before the
// shopper is navigated away.
const DefaultRedirectDelay = 2 * time.Second

// CartClearer empties a shopper's cart. Called at most once per successful
// payment.
type CartClearer interface {
	ClearCart(ctx context.Context, cartID string) error
}

// ReferenceStore persists the payment identifiers that survive the provider
// redirect. Purge removes all of them together.
type ReferenceStore interface {
	Purge(ctx context.Context) error
}

// Redirect describes a scheduled navigation: the UI should load URL once
// After has elapsed.
type Redirect struct {
	URL   string        `json:"url"`
	After time.Duration `json:"after"`
}

// Driver performs the side effects of a terminal transition. It owns the
// cart contents and the stored payment reference during that transition; no
// other component writes them. Exactly-once execution is guaranteed by the
// watcher's terminal-state invariant, not re-checked here.
//
// Outcome, when set, is called once per terminal transition with the state
// reached, covering every resolution path: seed, push, poll and the deadline.
type Driver struct {
	Cart    CartClearer
	Refs    ReferenceStore
	Delay   time.Duration
	Outcome func(state State)
}

// NewDriver creates a driver with the default redirect delay.
func NewDriver(cart CartClearer, refs ReferenceStore) *Driver {
	return &Driver{Cart: cart, Refs: refs, Delay: DefaultRedirectDelay}
}

// OnTerminal runs the side effects for the state just entered and returns the
// navigation to schedule, if any.
//
//   - success: clear the cart, purge the stored reference, navigate to the
//     success screen.
//   - failed: navigate to the failure screen with the reason; the cart is
//     left untouched so the shopper can retry.
//   - timeout: no navigation. An ambiguous outcome must not pull the shopper
//     away from the manual recovery actions.
//
// Side-effect errors are logged and absorbed; a failed cart clear must not
// crash the screen or block the redirect.
func (d *Driver) OnTerminal(ctx context.Context, state State, ref PaymentReference, reason string) *Redirect {
	if d.Outcome != nil {
		d.Outcome(state)
	}
	switch state {
	case StateSuccess:
		if d.Cart != nil && strings.TrimSpace(ref.CartID) != "" {
			if err := d.Cart.ClearCart(ctx, ref.CartID); err != nil {
				log.Errorf("[PaymentWatch] Failed to clear cart %s: %v", ref.CartID, err)
			}
		}
		if d.Refs != nil {
			if err := d.Refs.Purge(ctx); err != nil {
				log.Errorf("[PaymentWatch] Failed to purge payment reference %s: %v", ref.PaymentID, err)
			}
		}
		return &Redirect{URL: d.successURL(ref), After: d.delay()}
	case StateFailed:
		return &Redirect{URL: d.failedURL(ref, reason), After: d.delay()}
	default:
		return nil
	}
}

func (d *Driver) delay() time.Duration {
	if d.Delay <= 0 {
		return DefaultRedirectDelay
	}
	return d.Delay
}

func (d *Driver) successURL(ref PaymentReference) string {
	q := url.Values{}
	if ref.OrderID != "" {
		q.Set("orderId", ref.OrderID)
	}
	if ref.PaymentID != "" {
		q.Set("paymentId", ref.PaymentID)
	}
	return buildURL(SuccessPath, q)
}

func (d *Driver) failedURL(ref PaymentReference, reason string) string {
	q := url.Values{}
	if reason != "" {
		q.Set("reason", reason)
	}
	if ref.OrderID != "" {
		q.Set("orderId", ref.OrderID)
	}
	return buildURL(FailedPath, q)
}

func buildURL(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
