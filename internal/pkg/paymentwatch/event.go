package paymentwatch

import (
	"strings"
	"time"
)

// EventSource identifies which producer delivered a status event.
type EventSource string

const (
	SourceSeed EventSource = "seed" // status carried on the callback URL
	SourcePush EventSource = "push" // push channel message
	SourcePoll EventSource = "poll" // polling fallback response
)

// RawStatusEvent is an inbound status notification before normalization. The
// JSON shape matches what the provider publishes on the push channel and
// returns from status polls.
type RawStatusEvent struct {
	Status        string      `json:"status"`
	Message       string      `json:"message,omitempty"`
	PaymentID     string      `json:"paymentId,omitempty"`
	TransactionID string      `json:"transactionId,omitempty"`
	Success       bool        `json:"success,omitempty"`
	Timestamp     time.Time   `json:"timestamp,omitempty"`
	Source        EventSource `json:"-"`
}

// PaymentReference identifies one payment attempt for the lifetime of a
// callback screen. PaymentID keys the push subscription and status polls,
// OrderID and CartID feed navigation and the success side effects.
type PaymentReference struct {
	PaymentID string
	OrderID   string
	CartID    string
}

// Usable reports whether the reference can drive a subscription or poll.
func (r PaymentReference) Usable() bool {
	return strings.TrimSpace(r.PaymentID) != ""
}
