package draft

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/address"
)

// PayloadMetadataKey holds the versioned checkout payload in payment metadata.
const PayloadMetadataKey = "order_payload"

// PayloadVersion is the only payload schema this service understands.
const PayloadVersion = 1

// CheckoutPayload is the single structured object the checkout flow attaches
// to a payment. It replaces probing several metadata spellings per field.
type CheckoutPayload struct {
	Version       int             `json:"v"`
	DraftID       string          `json:"draft_id,omitempty"`
	Customer      PayloadContact  `json:"customer"`
	Delivery      PayloadDelivery `json:"delivery"`
	Cart          []CartItem      `json:"cart,omitempty"`
	Amounts       *Amounts        `json:"amounts,omitempty"`
	AffiliateCode string          `json:"affiliate_code,omitempty"`
}

type PayloadContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type PayloadDelivery struct {
	Date         string          `json:"date,omitempty"`
	Time         string          `json:"time,omitempty"`
	Instructions string          `json:"instructions,omitempty"`
	Address      *address.Fields `json:"address,omitempty"`
}

// DecodePayload returns (nil, nil) when the metadata carries no payload.
func DecodePayload(metadata map[string]string) (*CheckoutPayload, error) {
	raw := strings.TrimSpace(metadata[PayloadMetadataKey])
	if raw == "" {
		return nil, nil
	}
	var p CheckoutPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", PayloadMetadataKey, err)
	}
	if p.Version != PayloadVersion {
		return nil, fmt.Errorf("unsupported %s version %d", PayloadMetadataKey, p.Version)
	}
	return &p, nil
}

// legacy metadata spellings, used only when no payload is present
var (
	nameKeys         = []string{"customer_name", "name"}
	emailKeys        = []string{"customer_email", "email"}
	phoneKeys        = []string{"customer_phone", "phone"}
	instructionsKeys = []string{"delivery_instructions", "special_instructions", "instructions"}
	affiliateKeys    = []string{"affiliate_code", "affiliate"}
	draftKeys        = []string{"draft_id", "draft_order_id"}
)

// DetailsFrom extracts customer and delivery details, preferring the payload.
func DetailsFrom(metadata map[string]string, p *CheckoutPayload) Details {
	if p != nil {
		return Details{
			CustomerName:  strings.TrimSpace(p.Customer.Name),
			CustomerEmail: strings.TrimSpace(p.Customer.Email),
			CustomerPhone: strings.TrimSpace(p.Customer.Phone),
			DeliveryDate:  strings.TrimSpace(p.Delivery.Date),
			DeliveryTime:  strings.TrimSpace(p.Delivery.Time),
			Instructions:  strings.TrimSpace(p.Delivery.Instructions),
			AffiliateCode: strings.TrimSpace(p.AffiliateCode),
			Address:       p.Delivery.Address,
		}
	}
	return Details{
		CustomerName:  lookup(metadata, nameKeys...),
		CustomerEmail: lookup(metadata, emailKeys...),
		CustomerPhone: lookup(metadata, phoneKeys...),
		DeliveryDate:  lookup(metadata, "delivery_date"),
		DeliveryTime:  lookup(metadata, "delivery_time"),
		Instructions:  lookup(metadata, instructionsKeys...),
		AffiliateCode: lookup(metadata, affiliateKeys...),
	}
}

func lookup(metadata map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(metadata[k]); v != "" {
			return v
		}
	}
	return ""
}
