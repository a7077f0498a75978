package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/address"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/draft"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/shopify"
)

// Status is the lifecycle state of a local order record.
type Status string

const (
	// StatusPending marks a payment reference reserved while the platform
	// order is being created.
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Origin records which path wrote the local record.
type Origin string

const (
	OriginCheckout Origin = "checkout"
	OriginBackfill Origin = "backfill"
)

// Record is the local mirror of a platform order, one per payment reference.
type Record struct {
	ID                  uuid.UUID
	OrderNumber         string
	ShopifyOrderID      int64
	PaymentReference    string
	Status              Status
	Origin              Origin
	Amounts             draft.Amounts
	DeliveryAddress     address.Address
	LineItems           []shopify.LineItem
	SpecialInstructions string
	AffiliateCode       string
	CustomerEmail       string
	CustomerName        string
	DeliveryDate        string
	DeliveryTime        string
	CreatedAt           time.Time
}

// Result is the JSON body returned to the checkout UI.
type Result struct {
	Success            bool            `json:"success"`
	ShopifyOrderID     int64           `json:"shopify_order_id"`
	OrderNumber        string          `json:"order_number"`
	TotalAmount        float64         `json:"total_amount"`
	Subtotal           float64         `json:"subtotal"`
	DeliveryFee        float64         `json:"delivery_fee"`
	SalesTax           float64         `json:"sales_tax"`
	TipAmount          float64         `json:"tip_amount"`
	ShippingAddress    address.Address `json:"shipping_address"`
	Message            string          `json:"message"`
	DuplicatePrevented bool            `json:"duplicate_prevented,omitempty"`
}

// ErrorResponse is the JSON body for any failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func resultFrom(r *Record, msg string) *Result {
	return &Result{
		Success:         true,
		ShopifyOrderID:  r.ShopifyOrderID,
		OrderNumber:     r.OrderNumber,
		TotalAmount:     money(r.Amounts.TotalAmount),
		Subtotal:        money(r.Amounts.Subtotal),
		DeliveryFee:     money(r.Amounts.DeliveryFee),
		SalesTax:        money(r.Amounts.SalesTax),
		TipAmount:       money(r.Amounts.TipAmount),
		ShippingAddress: r.DeliveryAddress,
		Message:         msg,
	}
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
