package payprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ManuelReschke/ShopFox/internal/pkg/env"
	"github.com/ManuelReschke/ShopFox/internal/pkg/paymentwatch"
)

const defaultAPIBaseURL = "https://api.payprovider.example.com"

// Client talks to the payment provider's REST API.
type Client struct {
	http *resty.Client
}

// PaymentDetails is the provider's view of one payment.
type PaymentDetails struct {
	PaymentID     string `json:"paymentId"`
	OrderID       string `json:"orderId,omitempty"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Success       bool   `json:"success,omitempty"`
	CheckoutURL   string `json:"checkoutUrl,omitempty"`
	AmountCents   int64  `json:"amountCents,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

// CreatePaymentRequest starts a provider payment for an order.
type CreatePaymentRequest struct {
	OrderID     string `json:"orderId"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	RedirectURL string `json:"redirectUrl"`
	WebhookURL  string `json:"webhookUrl,omitempty"`
}

// NewClient creates a provider client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15 * time.Second).
		SetHeader("Accept", "application/json")
	if strings.TrimSpace(apiKey) != "" {
		http.SetAuthToken(strings.TrimSpace(apiKey))
	}
	return &Client{http: http}
}

// NewClientFromEnv creates a provider client from PAYMENT_API_* settings.
func NewClientFromEnv() *Client {
	return NewClient(
		env.GetEnv("PAYMENT_API_BASE_URL", defaultAPIBaseURL),
		env.GetEnv("PAYMENT_API_KEY", ""),
	)
}

// CreatePayment opens a payment at the provider and returns the checkout URL
// the shopper is redirected to.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentDetails, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, errors.New("order id is required")
	}
	if req.AmountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}

	var out PaymentDetails
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/v1/payments")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create payment failed: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	if strings.TrimSpace(out.PaymentID) == "" {
		return nil, errors.New("provider returned no payment id")
	}
	return &out, nil
}

// GetPaymentStatus fetches the current status of a payment by id.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return nil, errors.New("payment id is required")
	}

	var out PaymentDetails
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("id", id).
		Get("/v1/payments/{id}")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("payment status request failed: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	if out.PaymentID == "" {
		out.PaymentID = id
	}
	return &out, nil
}

// FetchStatus implements paymentwatch.StatusFetcher so the client can serve
// as the polling fallback.
func (c *Client) FetchStatus(ctx context.Context, paymentID string) (paymentwatch.RawStatusEvent, error) {
	details, err := c.GetPaymentStatus(ctx, paymentID)
	if err != nil {
		return paymentwatch.RawStatusEvent{}, err
	}
	return paymentwatch.RawStatusEvent{
		Status:        details.Status,
		Message:       details.Message,
		PaymentID:     details.PaymentID,
		TransactionID: details.TransactionID,
		Success:       details.Success,
		Timestamp:     time.Now(),
	}, nil
}
