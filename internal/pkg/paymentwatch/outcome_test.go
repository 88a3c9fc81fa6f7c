package paymentwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNormalize tests the provider status vocabulary mapping
func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		event    RawStatusEvent
		expected Outcome
	}{
		{"Succeeded", RawStatusEvent{Status: "SUCCEEDED"}, OutcomeSuccess},
		{"Approved", RawStatusEvent{Status: "APPROVED"}, OutcomeSuccess},
		{"Completed lowercase", RawStatusEvent{Status: "completed"}, OutcomeSuccess},
		{"Success flag overrides status", RawStatusEvent{Status: "WEIRD", Success: true}, OutcomeSuccess},
		{"Declined", RawStatusEvent{Status: "DECLINED"}, OutcomeFailed},
		{"Rejected", RawStatusEvent{Status: "REJECTED"}, OutcomeFailed},
		{"Cancelled both spellings", RawStatusEvent{Status: "CANCELED"}, OutcomeFailed},
		{"Expired", RawStatusEvent{Status: "expired"}, OutcomeFailed},
		{"Processing", RawStatusEvent{Status: "PROCESSING"}, OutcomePending},
		{"Requires action", RawStatusEvent{Status: "REQUIRES_ACTION"}, OutcomePending},
		{"Whitespace is trimmed", RawStatusEvent{Status: "  failed  "}, OutcomeFailed},
		{"Empty status", RawStatusEvent{}, OutcomePending},
		// Unrecognized vendor codes must never become a false negative.
		{"Unknown vendor code", RawStatusEvent{Status: "REVIEWING"}, OutcomePending},
		{"Garbage", RawStatusEvent{Status: "???"}, OutcomePending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.event))
		})
	}
}

func TestOutcomeTerminal(t *testing.T) {
	assert.True(t, OutcomeSuccess.Terminal())
	assert.True(t, OutcomeFailed.Terminal())
	assert.False(t, OutcomePending.Terminal())
	assert.False(t, OutcomeUnknown.Terminal())
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateSuccess.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateTimeout.Terminal())
	assert.False(t, StateChecking.Terminal())
	assert.False(t, StatePending.Terminal())
}

func TestPaymentReferenceUsable(t *testing.T) {
	assert.True(t, PaymentReference{PaymentID: "pay_1"}.Usable())
	assert.False(t, PaymentReference{OrderID: "ord_1"}.Usable())
	assert.False(t, PaymentReference{PaymentID: "   "}.Usable())
}
