package shopify

import "time"

// Order mirrors the Admin REST order resource. The same type is sent on
// create and read back from list calls; read-only fields are omitted on create.
type Order struct {
	ID          int64      `json:"id,omitempty"`
	OrderNumber int64      `json:"order_number,omitempty"`
	Name        string     `json:"name,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`

	Email    string       `json:"email,omitempty"`
	Phone    string       `json:"phone,omitempty"`
	Customer *CustomerRef `json:"customer,omitempty"`

	LineItems     []LineItem     `json:"line_items"`
	ShippingLines []ShippingLine `json:"shipping_lines,omitempty"`
	TaxLines      []TaxLine      `json:"tax_lines,omitempty"`

	BillingAddress  *Address `json:"billing_address,omitempty"`
	ShippingAddress *Address `json:"shipping_address,omitempty"`

	Currency      string `json:"currency,omitempty"`
	SubtotalPrice string `json:"subtotal_price,omitempty"`
	TotalShipping string `json:"total_shipping,omitempty"`
	TotalTax      string `json:"total_tax,omitempty"`
	TotalPrice    string `json:"total_price,omitempty"`
	TaxesIncluded bool   `json:"taxes_included"`

	FinancialStatus    string `json:"financial_status,omitempty"`
	InventoryBehaviour string `json:"inventory_behaviour,omitempty"`
	SendReceipt        bool   `json:"send_receipt,omitempty"`
	SourceName         string `json:"source_name,omitempty"`

	Note           string          `json:"note,omitempty"`
	NoteAttributes []NoteAttribute `json:"note_attributes,omitempty"`
	Tags           string          `json:"tags,omitempty"`
	Transactions   []Transaction   `json:"transactions,omitempty"`
}

// Attribute returns the value of the named note attribute, or "".
func (o Order) Attribute(name string) string {
	for _, a := range o.NoteAttributes {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

type CustomerRef struct {
	ID int64 `json:"id"`
}

type LineItem struct {
	Title            string `json:"title"`
	Price            string `json:"price"`
	Quantity         int    `json:"quantity"`
	VariantID        int64  `json:"variant_id,omitempty"`
	ProductID        int64  `json:"product_id,omitempty"`
	SKU              string `json:"sku,omitempty"`
	RequiresShipping bool   `json:"requires_shipping"`
	Taxable          bool   `json:"taxable"`
}

type ShippingLine struct {
	Title  string `json:"title"`
	Price  string `json:"price"`
	Code   string `json:"code,omitempty"`
	Source string `json:"source,omitempty"`
}

type TaxLine struct {
	Title string  `json:"title"`
	Price string  `json:"price"`
	Rate  float64 `json:"rate"`
}

type Address struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Company     string `json:"company,omitempty"`
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	Zip         string `json:"zip,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Transaction struct {
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Gateway       string `json:"gateway"`
	Authorization string `json:"authorization,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

// Customer mirrors the Admin REST customer resource.
type Customer struct {
	ID            int64     `json:"id,omitempty"`
	Email         string    `json:"email,omitempty"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Note          string    `json:"note,omitempty"`
	VerifiedEmail bool      `json:"verified_email,omitempty"`
	Addresses     []Address `json:"addresses,omitempty"`
}

// ListOrdersParams filters an orders listing. Zero values are omitted.
type ListOrdersParams struct {
	CreatedAtMin time.Time
	SinceID      int64
	Status       string
	Limit        int
}
