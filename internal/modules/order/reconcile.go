package order

import (
	"github.com/shopspring/decimal"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/draft"
)

// Tolerance absorbs rounding in multi-party fee splits.
var Tolerance = decimal.RequireFromString("0.02")

// Reconcile checks the paid amount against the resolved order total.
func Reconcile(paid, total decimal.Decimal) error {
	diff := paid.Sub(total).Abs()
	if diff.GreaterThan(Tolerance) {
		return &AmountMismatchError{Paid: paid, Expected: total, Diff: diff}
	}
	return nil
}

// ReconcileOrder runs Reconcile and then checks that the total the platform
// order will be booked with agrees with the resolved total.
func ReconcileOrder(paid decimal.Decimal, items []draft.CartItem, a draft.Amounts) error {
	if err := Reconcile(paid, a.TotalAmount); err != nil {
		return err
	}
	booked := BookedTotal(items, a)
	if diff := booked.Sub(a.TotalAmount).Abs(); diff.GreaterThan(Tolerance) {
		return &AmountMismatchError{
			Paid:     paid,
			Expected: a.TotalAmount,
			Diff:     diff,
			Booked:   decimal.NewNullDecimal(booked),
		}
	}
	return nil
}

// BookedTotal is subtotal + delivery + tip + tax as BuildPayload writes it.
// A zero subtotal falls back to the sum of the line items.
func BookedTotal(items []draft.CartItem, a draft.Amounts) decimal.Decimal {
	return bookedSubtotal(items, a).Add(a.DeliveryFee).Add(a.TipAmount).Add(a.SalesTax)
}

func bookedSubtotal(items []draft.CartItem, a draft.Amounts) decimal.Decimal {
	if !a.Subtotal.IsZero() {
		return a.Subtotal
	}
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}
