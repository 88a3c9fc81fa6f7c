package paymentwatch

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDriverOnTerminal tests the side effects and navigation per terminal
// state.
func TestDriverOnTerminal(t *testing.T) {
	ref := PaymentReference{PaymentID: "pay_1", OrderID: "ord_1", CartID: "cart_1"}

	tests := []struct {
		name         string
		state        State
		reason       string
		wantPath     string
		wantRedirect bool
		wantClears   int32
		wantPurges   int32
	}{
		{"Success clears cart and navigates", StateSuccess, "", SuccessPath, true, 1, 1},
		{"Failure keeps cart", StateFailed, "DECLINED", FailedPath, true, 0, 0},
		{"Timeout stays put", StateTimeout, "", "", false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := &fakeCart{}
			refs := &fakeRefs{}
			d := NewDriver(cart, refs)

			redirect := d.OnTerminal(context.Background(), tt.state, ref, tt.reason)

			assert.Equal(t, tt.wantClears, cart.clears.Load())
			assert.Equal(t, tt.wantPurges, refs.purges.Load())

			if !tt.wantRedirect {
				assert.Nil(t, redirect)
				return
			}
			require.NotNil(t, redirect)
			u, err := url.Parse(redirect.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, u.Path)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, u.Query().Get("reason"))
			}
			assert.Equal(t, DefaultRedirectDelay, redirect.After)
		})
	}
}

// TestDriverSuccessURLParams tests that the success navigation carries both
// identifiers.
func TestDriverSuccessURLParams(t *testing.T) {
	d := NewDriver(nil, nil)
	redirect := d.OnTerminal(context.Background(), StateSuccess,
		PaymentReference{PaymentID: "pay_1", OrderID: "ord_1"}, "")

	require.NotNil(t, redirect)
	u, err := url.Parse(redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", u.Query().Get("paymentId"))
	assert.Equal(t, "ord_1", u.Query().Get("orderId"))
}

// TestDriverSkipsEmptyCart tests that success without a cart id never calls
// the cart service.
func TestDriverSkipsEmptyCart(t *testing.T) {
	cart := &fakeCart{}
	d := NewDriver(cart, nil)
	d.OnTerminal(context.Background(), StateSuccess, PaymentReference{PaymentID: "pay_1"}, "")
	assert.Equal(t, int32(0), cart.clears.Load())
}

// TestDriverOutcomeHook tests that every terminal state is reported through
// the outcome hook, including timeout which schedules no navigation.
func TestDriverOutcomeHook(t *testing.T) {
	var got []State
	d := &Driver{
		Delay:   time.Millisecond,
		Outcome: func(state State) { got = append(got, state) },
	}
	ref := PaymentReference{PaymentID: "pay_1"}

	d.OnTerminal(context.Background(), StateSuccess, ref, "")
	d.OnTerminal(context.Background(), StateFailed, ref, "DECLINED")
	d.OnTerminal(context.Background(), StateTimeout, ref, "")

	assert.Equal(t, []State{StateSuccess, StateFailed, StateTimeout}, got)
}

// TestDriverDelayFallback tests the redirect delay fallback.
func TestDriverDelayFallback(t *testing.T) {
	d := &Driver{Delay: 0}
	redirect := d.OnTerminal(context.Background(), StateFailed, PaymentReference{}, "FAILED")
	require.NotNil(t, redirect)
	assert.Equal(t, DefaultRedirectDelay, redirect.After)

	d = &Driver{Delay: 500 * time.Millisecond}
	redirect = d.OnTerminal(context.Background(), StateFailed, PaymentReference{}, "FAILED")
	require.NotNil(t, redirect)
	assert.Equal(t, 500*time.Millisecond, redirect.After)
}
