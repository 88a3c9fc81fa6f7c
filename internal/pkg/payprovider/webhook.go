package payprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/ShopFox/internal/pkg/paymentwatch"
)

// WebhookEvent is the provider's payment callback payload.
type WebhookEvent struct {
	EventID       string    `json:"eventId" validate:"required"`
	PaymentID     string    `json:"paymentId" validate:"required"`
	OrderID       string    `json:"orderId,omitempty"`
	Status        string    `json:"status" validate:"required"`
	Message       string    `json:"message,omitempty"`
	TransactionID string    `json:"transactionId,omitempty"`
	Success       bool      `json:"success,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

var webhookValidator = validator.New()

// ParseWebhookEvent decodes and validates a webhook payload.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	if err := webhookValidator.Struct(&ev); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return &ev, nil
}

// ToRawStatusEvent converts the webhook payload into the event shape the
// watch subsystem consumes.
func (ev *WebhookEvent) ToRawStatusEvent() paymentwatch.RawStatusEvent {
	return paymentwatch.RawStatusEvent{
		Status:        ev.Status,
		Message:       ev.Message,
		PaymentID:     ev.PaymentID,
		TransactionID: ev.TransactionID,
		Success:       ev.Success,
		Timestamp:     ev.Timestamp,
	}
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 signature the provider
// sends in its signature header.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}
