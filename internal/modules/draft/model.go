package draft

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/address"
)

var (
	// ErrEmptyCart aborts the flow: an order cannot be created without line items.
	ErrEmptyCart = errors.New("no cart items found in draft or payment metadata")

	ErrDraftNotFound = errors.New("order draft not found")
)

// Source records where the authoritative cart came from.
type Source string

const (
	SourceDraft    Source = "draft"
	SourcePayload  Source = "payload"
	SourceMetadata Source = "metadata"
)

// CartItem is one product line as captured by the checkout flow.
type CartItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	VariantID string          `json:"variant_id,omitempty"`
	ProductID string          `json:"product_id,omitempty"`
	Image     string          `json:"image,omitempty"`
}

// UnmarshalJSON accepts the shapes the storefront has produced over time:
// numeric or string ids and prices, "name" for "title", "variant" objects.
func (c *CartItem) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("cart item: %w", err)
	}
	*c = CartItem{
		ID:        text(raw["id"]),
		Title:     firstText(raw, "title", "name"),
		Price:     amount(raw["price"]),
		Quantity:  1,
		VariantID: firstText(raw, "variant_id", "variantId", "variant"),
		ProductID: firstText(raw, "product_id", "productId"),
		Image:     firstText(raw, "image", "imageUrl"),
	}
	if q := amount(firstOf(raw, "quantity", "qty")); q.IsPositive() {
		c.Quantity = int(q.IntPart())
	}
	return nil
}

// LineTotal is price × quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// Amounts is the reconciled price breakdown of an order.
type Amounts struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	SalesTax    decimal.Decimal `json:"sales_tax"`
	TipAmount   decimal.Decimal `json:"tip_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// normalized rounds the tip to cents so float artifacts from the storefront
// never reach the external order.
func (a Amounts) normalized() Amounts {
	a.TipAmount = a.TipAmount.Round(2)
	return a
}

// PartsTotal is subtotal + delivery + tax + tip.
func (a Amounts) PartsTotal() decimal.Decimal {
	return a.Subtotal.Add(a.DeliveryFee).Add(a.SalesTax).Add(a.TipAmount)
}

// Data is the draft_data column of an order draft.
type Data struct {
	CartItems   []CartItem
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	SalesTax    decimal.Decimal
	TipAmount   decimal.Decimal
	TotalAmount decimal.NullDecimal
}

func (d *Data) UnmarshalJSON(b []byte) error {
	var aux struct {
		CartItems   []CartItem `json:"cart_items"`
		Subtotal    any        `json:"subtotal"`
		DeliveryFee any        `json:"delivery_fee"`
		SalesTax    any        `json:"sales_tax"`
		TipAmount   any        `json:"tip_amount"`
		TotalAmount any        `json:"total_amount"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&aux); err != nil {
		return err
	}
	*d = Data{
		CartItems:   aux.CartItems,
		Subtotal:    amount(aux.Subtotal),
		DeliveryFee: amount(aux.DeliveryFee),
		SalesTax:    amount(aux.SalesTax),
		TipAmount:   amount(aux.TipAmount),
	}
	if aux.TotalAmount != nil {
		d.TotalAmount = decimal.NewNullDecimal(amount(aux.TotalAmount))
	}
	return nil
}

// Draft is a persisted snapshot of the cart written before payment.
type Draft struct {
	ID          string
	Data        Data
	TotalAmount decimal.NullDecimal
}

// Amounts returns the draft's breakdown. The total prefers the row column,
// then draft_data.total_amount, then the sum of the parts.
func (d *Draft) Amounts() Amounts {
	a := Amounts{
		Subtotal:    d.Data.Subtotal,
		DeliveryFee: d.Data.DeliveryFee,
		SalesTax:    d.Data.SalesTax,
		TipAmount:   d.Data.TipAmount,
	}
	switch {
	case d.TotalAmount.Valid:
		a.TotalAmount = d.TotalAmount.Decimal
	case d.Data.TotalAmount.Valid:
		a.TotalAmount = d.Data.TotalAmount.Decimal
	default:
		a.TotalAmount = a.PartsTotal()
	}
	return a
}

// Details is the customer and delivery context that travels with an order.
type Details struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	DeliveryDate  string
	DeliveryTime  string
	Instructions  string
	AffiliateCode string
	// Address is set only when the versioned payload carried a structured address.
	Address *address.Fields
}

// Resolved is the cart and breakdown the order will be built from.
type Resolved struct {
	CartItems []CartItem
	Amounts   Amounts
	Source    Source
	DraftID   string
	Details   Details
}

// ── lenient scalar helpers ───────────────────────────────────────────────────

func amount(v any) decimal.Decimal {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(t)
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(t), "$")
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// parseAmount reads a metadata string, defaulting to zero when unparseable.
func parseAmount(s string) decimal.Decimal { return amount(s) }

func text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		return text(t["id"])
	}
	return ""
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstText(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := text(m[k]); s != "" {
			return s
		}
	}
	return ""
}
