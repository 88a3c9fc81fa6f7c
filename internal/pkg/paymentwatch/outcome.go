package paymentwatch

import "strings"

// Outcome is the canonical payment status used internally regardless of the
// provider's vocabulary.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomePending Outcome = "pending"
	OutcomeUnknown Outcome = "unknown"
)

// Terminal reports whether the outcome ends the payment check.
func (o Outcome) Terminal() bool {
	return o == OutcomeSuccess || o == OutcomeFailed
}

var successStatuses = map[string]struct{}{
	"SUCCEEDED": {},
	"SUCCESS":   {},
	"APPROVED":  {},
	"COMPLETED": {},
}

var failureStatuses = map[string]struct{}{
	"DECLINED":  {},
	"REJECTED":  {},
	"FAILED":    {},
	"CANCELLED": {},
	"CANCELED":  {},
	"EXPIRED":   {},
}

// Normalize maps a raw provider event onto the canonical outcome set.
// Unrecognized vendor codes map to pending rather than failed so an odd
// status string never produces a false negative for the shopper.
func Normalize(ev RawStatusEvent) Outcome {
	status := strings.ToUpper(strings.TrimSpace(ev.Status))

	if ev.Success {
		return OutcomeSuccess
	}
	if _, ok := successStatuses[status]; ok {
		return OutcomeSuccess
	}
	if _, ok := failureStatuses[status]; ok {
		return OutcomeFailed
	}
	return OutcomePending
}
