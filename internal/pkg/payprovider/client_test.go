package payprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCreatePayment tests the payment creation call against a stub provider.
func TestCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req CreatePaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ord_1", req.OrderID)
		assert.Equal(t, int64(1999), req.AmountCents)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PaymentDetails{
			PaymentID:   "pay_1",
			Status:      "OPEN",
			CheckoutURL: "https://pay.example.com/pay_1",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	details, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID:     "ord_1",
		AmountCents: 1999,
		Currency:    "EUR",
		RedirectURL: "https://shop.example.com/checkout/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", details.PaymentID)
	assert.Equal(t, "https://pay.example.com/pay_1", details.CheckoutURL)
}

// TestCreatePaymentValidation tests the client-side guards.
func TestCreatePaymentValidation(t *testing.T) {
	client := NewClient("http://localhost:0", "")

	_, err := client.CreatePayment(context.Background(), CreatePaymentRequest{AmountCents: 100})
	assert.Error(t, err)

	_, err = client.CreatePayment(context.Background(), CreatePaymentRequest{OrderID: "ord_1"})
	assert.Error(t, err)
}

// TestCreatePaymentServerError tests that an error status becomes a Go error.
func TestCreatePaymentServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID:     "ord_1",
		AmountCents: 100,
	})
	assert.Error(t, err)
}

// TestGetPaymentStatus tests the status poll call.
func TestGetPaymentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/pay_1", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PaymentDetails{
			PaymentID: "pay_1",
			Status:    "SUCCEEDED",
			Success:   true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	details, err := client.GetPaymentStatus(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "SUCCEEDED", details.Status)
	assert.True(t, details.Success)

	_, err = client.GetPaymentStatus(context.Background(), "  ")
	assert.Error(t, err)
}

// TestFetchStatus tests the StatusFetcher adapter used by the polling
// fallback.
func TestFetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PaymentDetails{
			PaymentID:     "pay_1",
			Status:        "DECLINED",
			Message:       "card declined",
			TransactionID: "tx_9",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	ev, err := client.FetchStatus(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "DECLINED", ev.Status)
	assert.Equal(t, "card declined", ev.Message)
	assert.Equal(t, "tx_9", ev.TransactionID)
	assert.False(t, ev.Timestamp.IsZero())
}
