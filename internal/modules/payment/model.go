package payment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Provider represents a supported payment processor.
type Provider string

const ProviderStripe Provider = "stripe"

// Kind is the type of processor object a payment reference points at.
type Kind string

const (
	KindPaymentIntent   Kind = "payment_intent"
	KindCheckoutSession Kind = "checkout_session"
)

// TxStatus is the internal view of a processor status.
type TxStatus string

const (
	TxProcessing TxStatus = "PROCESSING"
	TxCompleted  TxStatus = "COMPLETED"
	TxFailed     TxStatus = "FAILED"
	TxCancelled  TxStatus = "CANCELLED"
)

var (
	ErrMissingIdentifier   = errors.New("paymentIntentId or sessionId is required")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrUpstreamUnavailable = errors.New("payment processor unavailable")
)

// NotCompletedError carries the processor status that blocked the order.
type NotCompletedError struct {
	Reference string
	Kind      Kind
	Status    string
}

func (e *NotCompletedError) Error() string {
	return fmt.Sprintf("%s: %s %s has status %q", ErrPaymentNotCompleted, e.Kind, e.Reference, e.Status)
}

func (e *NotCompletedError) Unwrap() error { return ErrPaymentNotCompleted }

// Record is the processor's read-only view of a payment.
type Record struct {
	Reference   string
	Kind        Kind
	Status      string
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

// Request identifies the payment to reconcile. Exactly one id is expected;
// when both are sent the payment intent wins.
type Request struct {
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	SessionID       string `json:"sessionId,omitempty"`
}

// Reference returns the id the request resolves to and its kind.
func (r Request) Reference() (string, Kind) {
	if id := strings.TrimSpace(r.PaymentIntentID); id != "" {
		return id, KindPaymentIntent
	}
	if id := strings.TrimSpace(r.SessionID); id != "" {
		return id, KindCheckoutSession
	}
	return "", ""
}

// Verified is a completed payment ready for order creation.
type Verified struct {
	Reference string
	Kind      Kind
	Provider  Provider
	Amount    decimal.Decimal
	Currency  string
	Metadata  map[string]string
}
