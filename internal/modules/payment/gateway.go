package payment

import (
	"context"
	"strings"
)

// Gateway is the provider-agnostic read interface the verifier needs.
type Gateway interface {
	// GetPaymentIntent retrieves a payment intent by id.
	GetPaymentIntent(ctx context.Context, id string) (*Record, error)
	// GetCheckoutSession retrieves a hosted checkout session by id.
	GetCheckoutSession(ctx context.Context, id string) (*Record, error)
}

// ── Status Normaliser ─────────────────────────────────────────────────────────
// Maps processor status strings to our internal TxStatus. Only "succeeded"
// (payment intents) and "paid" (checkout sessions) count as completed.

func NormaliseStatus(kind Kind, status string) TxStatus {
	s := strings.ToLower(strings.TrimSpace(status))
	switch kind {
	case KindPaymentIntent:
		switch s {
		case "succeeded":
			return TxCompleted
		case "canceled":
			return TxCancelled
		case "requires_payment_method":
			return TxFailed
		default: // processing, requires_action, requires_confirmation, requires_capture
			return TxProcessing
		}
	case KindCheckoutSession:
		switch s {
		case "paid":
			return TxCompleted
		default: // unpaid, no_payment_required
			return TxProcessing
		}
	default:
		return TxProcessing
	}
}
