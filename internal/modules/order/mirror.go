package order

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/address"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/draft"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/shopify"
)

// NewRecord captures a freshly created platform order for the local mirror.
func NewRecord(created *shopify.Order, in PayloadInput, sent shopify.Order) *Record {
	amounts := in.Amounts
	amounts.Subtotal = decimalOr(sent.SubtotalPrice, amounts.Subtotal)
	amounts.TotalAmount = decimalOr(sent.TotalPrice, amounts.TotalAmount)
	return &Record{
		ID:                  uuid.New(),
		OrderNumber:         orderNumber(created),
		ShopifyOrderID:      created.ID,
		PaymentReference:    in.PaymentReference,
		Status:              StatusConfirmed,
		Origin:              OriginCheckout,
		Amounts:             amounts,
		DeliveryAddress:     in.Address,
		LineItems:           sent.LineItems,
		SpecialInstructions: in.Details.Instructions,
		AffiliateCode:       in.Details.AffiliateCode,
		CustomerEmail:       in.Details.CustomerEmail,
		CustomerName:        in.Details.CustomerName,
		DeliveryDate:        in.Details.DeliveryDate,
		DeliveryTime:        in.Details.DeliveryTime,
		CreatedAt:           time.Now().UTC(),
	}
}

// RecordFromShopify reconstructs a local record from an order read back from
// the platform. ok is false when the order carries no payment reference.
func RecordFromShopify(o shopify.Order) (rec *Record, ok bool) {
	ref := strings.TrimSpace(o.Attribute(AttrPaymentReference))
	if ref == "" {
		for _, tx := range o.Transactions {
			if tx.Authorization != "" {
				ref = tx.Authorization
				break
			}
		}
	}
	if ref == "" {
		return nil, false
	}

	var amounts draft.Amounts
	for _, sl := range o.ShippingLines {
		switch sl.Title {
		case DeliveryLineTitle:
			amounts.DeliveryFee = amounts.DeliveryFee.Add(decimalOr(sl.Price, decimal.Zero))
		case TipLineTitle:
			amounts.TipAmount = amounts.TipAmount.Add(decimalOr(sl.Price, decimal.Zero))
		}
	}
	amounts.Subtotal = decimalOr(o.SubtotalPrice, decimal.Zero)
	amounts.SalesTax = decimalOr(o.TotalTax, decimal.Zero)
	amounts.TotalAmount = decimalOr(o.TotalPrice, amounts.PartsTotal())

	rec = &Record{
		ID:                  uuid.New(),
		OrderNumber:         orderNumber(&o),
		ShopifyOrderID:      o.ID,
		PaymentReference:    ref,
		Status:              StatusConfirmed,
		Origin:              OriginBackfill,
		Amounts:             amounts,
		DeliveryAddress:     shippingAddress(o),
		LineItems:           o.LineItems,
		SpecialInstructions: o.Attribute(AttrInstructions),
		AffiliateCode:       o.Attribute(AttrAffiliateCode),
		CustomerEmail:       o.Email,
		DeliveryDate:        o.Attribute(AttrDeliveryDate),
		DeliveryTime:        o.Attribute(AttrDeliveryTime),
		CreatedAt:           time.Now().UTC(),
	}
	if o.ShippingAddress != nil {
		rec.CustomerName = strings.TrimSpace(o.ShippingAddress.FirstName + " " + o.ShippingAddress.LastName)
	}
	if o.CreatedAt != nil {
		rec.CreatedAt = o.CreatedAt.UTC()
	}
	return rec, true
}

func shippingAddress(o shopify.Order) address.Address {
	full := o.Attribute(AttrDeliveryAddress)
	if o.ShippingAddress == nil {
		if full == "" {
			return address.Normalize(nil, nil)
		}
		return address.FromString(full)
	}
	a := address.FromFields(address.Fields{
		Street: o.ShippingAddress.Address1,
		City:   o.ShippingAddress.City,
		State:  o.ShippingAddress.Province,
		Zip:    o.ShippingAddress.Zip,
	})
	if full != "" {
		a.Full = full
	}
	return a
}

func orderNumber(o *shopify.Order) string {
	if o.OrderNumber > 0 {
		return strconv.FormatInt(o.OrderNumber, 10)
	}
	return strings.TrimPrefix(o.Name, "#")
}

func decimalOr(s string, fallback decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return d
}
