package order

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAmountMismatch            = errors.New("amount mismatch")
	ErrExternalOrderCreateFailed = errors.New("shopify order creation failed")
	ErrNotFound                  = errors.New("order record not found")
	ErrDuplicatePaymentReference = errors.New("payment reference already has an order")
)

// AmountMismatchError reports a paid amount that does not match the cart.
// Booked is set when the total matched but the order's parts do not add up
// to it.
type AmountMismatchError struct {
	Paid     decimal.Decimal
	Expected decimal.Decimal
	Diff     decimal.Decimal
	Booked   decimal.NullDecimal
}

func (e *AmountMismatchError) Error() string {
	if e.Booked.Valid {
		return fmt.Sprintf("%s: paid $%s, order total $%s, but parts add up to $%s (difference $%s)",
			ErrAmountMismatch, e.Paid.StringFixed(2), e.Expected.StringFixed(2),
			e.Booked.Decimal.StringFixed(2), e.Diff.StringFixed(2))
	}
	return fmt.Sprintf("%s: paid $%s, order total $%s (difference $%s)",
		ErrAmountMismatch, e.Paid.StringFixed(2), e.Expected.StringFixed(2), e.Diff.StringFixed(2))
}

func (e *AmountMismatchError) Unwrap() error { return ErrAmountMismatch }

// ExternalOrderCreateError carries the platform's raw response for diagnosis.
type ExternalOrderCreateError struct {
	Status int
	Body   string
	Err    error
}

func (e *ExternalOrderCreateError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", ErrExternalOrderCreateFailed, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: %v", ErrExternalOrderCreateFailed, e.Err)
}

func (e *ExternalOrderCreateError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalOrderCreateFailed}
	}
	return []error{ErrExternalOrderCreateFailed, e.Err}
}
