package order

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/address"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/customer"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/draft"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/shopify"
)

// Shipping line, note attribute and tag names the fulfilment team filters on.
const (
	DeliveryLineTitle = "Delivery Service"
	TipLineTitle      = "Driver Tip"
	TaxLineTitle      = "Sales Tax"

	AttrDeliveryDate     = "Delivery Date"
	AttrDeliveryTime     = "Delivery Time"
	AttrDeliveryAddress  = "Delivery Address"
	AttrInstructions     = "Special Instructions"
	AttrDriverTip        = "Driver Tip"
	AttrPaymentReference = "Payment Reference"
	AttrAffiliateCode    = "Affiliate Code"

	TagDeliveryOrder = "delivery-order"

	defaultCurrency = "USD"
	defaultCountry  = "US"
)

var (
	variantGID = regexp.MustCompile(`gid://shopify/ProductVariant/(\d+)`)
	productGID = regexp.MustCompile(`gid://shopify/Product/(\d+)`)
)

// PayloadInput is everything the order payload is assembled from.
type PayloadInput struct {
	Items            []draft.CartItem
	Amounts          draft.Amounts
	Address          address.Address
	Details          draft.Details
	CustomerID       int64
	PaymentReference string
	PaymentGateway   string
	Currency         string
}

// BuildPayload maps a reconciled checkout onto the platform's order schema.
// The tip travels as a shipping line, never as a product line item.
func BuildPayload(in PayloadInput) shopify.Order {
	a := in.Amounts
	items := make([]shopify.LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, lineItem(it))
	}

	subtotal := bookedSubtotal(in.Items, a)
	shipping := a.DeliveryFee.Add(a.TipAmount)
	total := subtotal.Add(shipping).Add(a.SalesTax)

	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	gateway := in.PaymentGateway
	if gateway == "" {
		gateway = "stripe"
	}

	d := in.Details
	first, last := customer.SplitName(d.CustomerName)
	billing := shopify.Address{
		FirstName: first,
		LastName:  last,
		Address1:  in.Address.Street,
		City:      in.Address.City,
		Province:  in.Address.State,
		Zip:       in.Address.Zip,
		Country:   defaultCountry,
		Phone:     d.CustomerPhone,
	}
	ship := billing
	ship.Company = deliveryWindow(d.DeliveryDate, d.DeliveryTime)
	ship.Address2 = d.Instructions

	o := shopify.Order{
		Email:              d.CustomerEmail,
		Phone:              d.CustomerPhone,
		LineItems:          items,
		ShippingLines:      shippingLines(a),
		TaxLines:           taxLines(a.SalesTax, subtotal),
		BillingAddress:     &billing,
		ShippingAddress:    &ship,
		Currency:           currency,
		SubtotalPrice:      subtotal.StringFixed(2),
		TotalShipping:      shipping.StringFixed(2),
		TotalTax:           a.SalesTax.StringFixed(2),
		TotalPrice:         total.StringFixed(2),
		FinancialStatus:    "paid",
		InventoryBehaviour: "decrement_obeying_policy",
		SendReceipt:        true,
		NoteAttributes:     noteAttributes(in),
		Note:               note(in),
		Tags:               strings.Join(tags(in), ", "),
		Transactions: []shopify.Transaction{{
			Kind:          "sale",
			Status:        "success",
			Amount:        total.StringFixed(2),
			Gateway:       gateway,
			Authorization: in.PaymentReference,
			Currency:      currency,
		}},
	}
	if in.CustomerID > 0 {
		o.Customer = &shopify.CustomerRef{ID: in.CustomerID}
	}
	return o
}

func lineItem(it draft.CartItem) shopify.LineItem {
	qty := it.Quantity
	if qty < 1 {
		qty = 1
	}
	li := shopify.LineItem{
		Title:            it.Title,
		Price:            it.Price.StringFixed(2),
		Quantity:         qty,
		RequiresShipping: true,
		Taxable:          true,
	}
	if li.Title == "" {
		li.Title = "Item " + it.ID
	}
	if v := externalID(variantGID, it.VariantID, it.ID); v > 0 {
		li.VariantID = v
	} else if p := externalID(productGID, it.ProductID, it.ID); p > 0 {
		li.ProductID = p
	}
	return li
}

// externalID returns the numeric platform id from an explicit field (bare
// number or gid) or, failing that, from a gid embedded in the item id.
func externalID(gid *regexp.Regexp, explicit, itemID string) int64 {
	explicit = strings.TrimSpace(explicit)
	if n, err := strconv.ParseInt(explicit, 10, 64); err == nil && n > 0 {
		return n
	}
	for _, s := range []string{explicit, itemID} {
		if m := gid.FindStringSubmatch(s); m != nil {
			n, _ := strconv.ParseInt(m[1], 10, 64)
			return n
		}
	}
	return 0
}

func shippingLines(a draft.Amounts) []shopify.ShippingLine {
	var lines []shopify.ShippingLine
	if a.DeliveryFee.IsPositive() {
		lines = append(lines, shopify.ShippingLine{
			Title: DeliveryLineTitle, Price: a.DeliveryFee.StringFixed(2), Code: "DELIVERY", Source: "premier-party-cruises",
		})
	}
	if a.TipAmount.IsPositive() {
		lines = append(lines, shopify.ShippingLine{
			Title: TipLineTitle, Price: a.TipAmount.StringFixed(2), Code: "DRIVER_TIP", Source: "premier-party-cruises",
		})
	}
	return lines
}

func taxLines(tax, subtotal decimal.Decimal) []shopify.TaxLine {
	if !tax.IsPositive() {
		return nil
	}
	base := subtotal
	if base.IsZero() {
		base = decimal.NewFromInt(1)
	}
	rate, _ := tax.DivRound(base, 4).Float64()
	return []shopify.TaxLine{{Title: TaxLineTitle, Price: tax.StringFixed(2), Rate: rate}}
}

func noteAttributes(in PayloadInput) []shopify.NoteAttribute {
	d := in.Details
	all := []shopify.NoteAttribute{
		{Name: AttrDeliveryDate, Value: d.DeliveryDate},
		{Name: AttrDeliveryTime, Value: d.DeliveryTime},
		{Name: AttrDeliveryAddress, Value: in.Address.Full},
		{Name: AttrInstructions, Value: d.Instructions},
		{Name: AttrDriverTip, Value: "$" + in.Amounts.TipAmount.StringFixed(2)},
		{Name: AttrPaymentReference, Value: in.PaymentReference},
		{Name: AttrAffiliateCode, Value: d.AffiliateCode},
	}
	out := all[:0]
	for _, na := range all {
		if blank(na.Value) {
			continue
		}
		out = append(out, na)
	}
	return out
}

func note(in PayloadInput) string {
	d := in.Details
	var b strings.Builder
	b.WriteString("DELIVERY ORDER\n")
	line := func(label, v string) {
		if !blank(v) {
			b.WriteString(label + ": " + v + "\n")
		}
	}
	line("Customer", d.CustomerName)
	line("Delivery Date", d.DeliveryDate)
	line("Delivery Time", d.DeliveryTime)
	line("Address", in.Address.Full)
	line("Instructions", d.Instructions)
	line("Delivery Fee", "$"+in.Amounts.DeliveryFee.StringFixed(2))
	line("Driver Tip", "$"+in.Amounts.TipAmount.StringFixed(2))
	line("Sales Tax", "$"+in.Amounts.SalesTax.StringFixed(2))
	line("Affiliate", d.AffiliateCode)
	line("Payment", in.PaymentReference)
	return strings.TrimRight(b.String(), "\n")
}

func tags(in PayloadInput) []string {
	gateway := in.PaymentGateway
	if gateway == "" {
		gateway = "stripe"
	}
	t := []string{TagDeliveryOrder, gateway + "-payment"}
	if in.Amounts.TipAmount.IsPositive() {
		t = append(t, "has-tip", "tip-$"+in.Amounts.TipAmount.StringFixed(2))
	} else {
		t = append(t, "no-tip")
	}
	if !blank(in.Details.DeliveryDate) {
		t = append(t, "delivery-"+strings.TrimSpace(in.Details.DeliveryDate))
	}
	if !blank(in.Details.AffiliateCode) {
		t = append(t, "affiliate-"+strings.TrimSpace(in.Details.AffiliateCode))
	}
	return t
}

func deliveryWindow(date, time string) string {
	when := strings.TrimSpace(strings.TrimSpace(date) + " " + strings.TrimSpace(time))
	if blank(when) {
		return ""
	}
	return "Delivery: " + when
}

func blank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "None"
}
