package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// Verifier confirms a payment completed and extracts its metadata and amount.
type Verifier struct {
	gateway Gateway
	log     *slog.Logger
}

func NewVerifier(gateway Gateway, log *slog.Logger) *Verifier {
	return &Verifier{gateway: gateway, log: log}
}

func (v *Verifier) Verify(ctx context.Context, req Request) (*Verified, error) {
	ref, kind := req.Reference()
	if ref == "" {
		return nil, ErrMissingIdentifier
	}

	var (
		rec *Record
		err error
	)
	switch kind {
	case KindPaymentIntent:
		rec, err = v.gateway.GetPaymentIntent(ctx, ref)
	default:
		rec, err = v.gateway.GetCheckoutSession(ctx, ref)
	}
	if err == nil && rec == nil {
		err = fmt.Errorf("empty response")
	}
	if err != nil {
		v.log.Error("payment lookup failed", "stage", "verify_payment", "payment_ref", ref, "kind", kind, "error", err)
		return nil, fmt.Errorf("%w: retrieve %s %s: %w", ErrUpstreamUnavailable, kind, ref, err)
	}

	if NormaliseStatus(kind, rec.Status) != TxCompleted {
		v.log.Warn("payment not completed", "stage", "verify_payment", "payment_ref", ref, "status", rec.Status)
		return nil, &NotCompletedError{Reference: ref, Kind: kind, Status: rec.Status}
	}

	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	amount := decimal.New(rec.AmountMinor, -2)

	v.log.Info("payment verified",
		"stage", "verify_payment",
		"payment_ref", ref,
		"kind", kind,
		"amount", amount.StringFixed(2),
		"metadata_keys", len(metadata))

	return &Verified{
		Reference: ref,
		Kind:      kind,
		Provider:  ProviderStripe,
		Amount:    amount,
		Currency:  rec.Currency,
		Metadata:  metadata,
	}, nil
}
