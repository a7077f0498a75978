package draft

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	drafts map[string]*Draft
	err    error
	asked  []string
}

func (r *fakeRepo) GetDraft(_ context.Context, id string) (*Draft, error) {
	r.asked = append(r.asked, id)
	if r.err != nil {
		return nil, r.err
	}
	d, ok := r.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return d, nil
}

func newResolver(repo Repository) *Resolver {
	return NewResolver(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

const twoItems = `[{"id":"gid://shopify/ProductVariant/111","title":"Party Pack","price":29.99,"quantity":1},` +
	`{"id":"ice-1","name":"Ice","price":"24.99","qty":2}]`

func TestResolve_DraftIsAuthoritative(t *testing.T) {
	var data Data
	require.NoError(t, data.UnmarshalJSON([]byte(`{"cart_items":`+twoItems+`,"subtotal":79.97,"delivery_fee":15,"sales_tax":0,"tip_amount":0}`)))
	repo := &fakeRepo{drafts: map[string]*Draft{
		"d-1": {ID: "d-1", Data: data, TotalAmount: decimal.NewNullDecimal(dec("94.97"))},
	}}

	got, err := newResolver(repo).Resolve(context.Background(), map[string]string{
		"draft_id":     "d-1",
		"cart_items":   `[{"id":"stale","price":1}]`,
		"total_amount": "1.00",
	})
	require.NoError(t, err)
	assert.Equal(t, SourceDraft, got.Source)
	require.Len(t, got.CartItems, 2)
	assert.Equal(t, "Ice", got.CartItems[1].Title)
	assert.Equal(t, 2, got.CartItems[1].Quantity)
	assert.True(t, got.Amounts.TotalAmount.Equal(dec("94.97")))
	assert.True(t, got.Amounts.Subtotal.Equal(dec("79.97")))
	assert.True(t, got.Amounts.DeliveryFee.Equal(dec("15")))
}

func TestResolve_DraftTotalFallsBackToParts(t *testing.T) {
	var data Data
	require.NoError(t, data.UnmarshalJSON([]byte(`{"cart_items":`+twoItems+`,"subtotal":"79.97","delivery_fee":"15.00","sales_tax":"6.60","tip_amount":"5"}`)))
	repo := &fakeRepo{drafts: map[string]*Draft{"d-2": {ID: "d-2", Data: data}}}

	got, err := newResolver(repo).Resolve(context.Background(), map[string]string{"draft_order_id": "d-2"})
	require.NoError(t, err)
	assert.Equal(t, "106.57", got.Amounts.TotalAmount.StringFixed(2))
}

func TestResolve_EmptyDraftFallsBackToMetadata(t *testing.T) {
	repo := &fakeRepo{drafts: map[string]*Draft{"d-3": {ID: "d-3"}}}
	got, err := newResolver(repo).Resolve(context.Background(), map[string]string{
		"draft_id":     "d-3",
		"cart_items":   twoItems,
		"subtotal":     "79.97",
		"delivery_fee": "15",
		"sales_tax":    "not-a-number",
		"total_amount": "94.97",
	})
	require.NoError(t, err)
	assert.Equal(t, SourceMetadata, got.Source)
	assert.True(t, got.Amounts.SalesTax.IsZero())
	assert.True(t, got.Amounts.TipAmount.IsZero())
	assert.Equal(t, "94.97", got.Amounts.TotalAmount.StringFixed(2))
}

func TestResolve_DraftLookupErrorIsNotFatal(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	got, err := newResolver(repo).Resolve(context.Background(), map[string]string{
		"draft_id":   "d-4",
		"cart_items": twoItems,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d-4"}, repo.asked)
	assert.Len(t, got.CartItems, 2)
}

func TestResolve_EmptyCart(t *testing.T) {
	repo := &fakeRepo{drafts: map[string]*Draft{"d-5": {ID: "d-5", Data: Data{CartItems: []CartItem{}}}}}
	_, err := newResolver(repo).Resolve(context.Background(), map[string]string{
		"draft_id":   "d-5",
		"cart_items": "[{\"id\": \"truncated",
	})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = newResolver(&fakeRepo{}).Resolve(context.Background(), map[string]string{"cart_items": "[]"})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestResolve_TipRoundedToCents(t *testing.T) {
	got, err := newResolver(&fakeRepo{}).Resolve(context.Background(), map[string]string{
		"cart_items": twoItems,
		"tip_amount": "5.123",
	})
	require.NoError(t, err)
	assert.Equal(t, "5.12", got.Amounts.TipAmount.String())

	got, err = newResolver(&fakeRepo{}).Resolve(context.Background(), map[string]string{
		"cart_items": twoItems,
		"tip_amount": "2.675",
	})
	require.NoError(t, err)
	assert.Equal(t, "2.68", got.Amounts.TipAmount.String())
}

func TestResolve_VersionedPayload(t *testing.T) {
	md := map[string]string{
		PayloadMetadataKey: `{"v":1,"customer":{"name":"Jo Doe","email":"jo@example.com"},` +
			`"delivery":{"date":"2026-10-20","time":"2pm-4pm","address":{"street":"1 Main St","city":"Austin","state":"TX","zip":"78701"}},` +
			`"cart":[{"id":"x","title":"Cooler","price":"10.00","quantity":3}],` +
			`"amounts":{"subtotal":"30.00","delivery_fee":"5.00","sales_tax":"0","tip_amount":"1.005","total_amount":"36.01"},` +
			`"affiliate_code":"LAKE10"}`,
		"customer_name": "ignored legacy name",
	}
	got, err := newResolver(&fakeRepo{}).Resolve(context.Background(), md)
	require.NoError(t, err)
	assert.Equal(t, SourcePayload, got.Source)
	assert.Equal(t, "Jo Doe", got.Details.CustomerName)
	assert.Equal(t, "LAKE10", got.Details.AffiliateCode)
	require.NotNil(t, got.Details.Address)
	assert.Equal(t, "Austin", got.Details.Address.City)
	assert.Equal(t, "1.01", got.Amounts.TipAmount.String())
	assert.Equal(t, 3, got.CartItems[0].Quantity)
}

func TestResolve_UnknownPayloadVersionUsesLegacyKeys(t *testing.T) {
	got, err := newResolver(&fakeRepo{}).Resolve(context.Background(), map[string]string{
		PayloadMetadataKey: `{"v":2,"cart":[{"id":"x","price":1}]}`,
		"cart_items":       twoItems,
		"customer_email":   "legacy@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, SourceMetadata, got.Source)
	assert.Equal(t, "legacy@example.com", got.Details.CustomerEmail)
}

func TestCartItem_LenientDecoding(t *testing.T) {
	var item CartItem
	require.NoError(t, item.UnmarshalJSON([]byte(`{"id":12345,"name":"Keg","price":"$199.5","variant":{"id":"gid://shopify/ProductVariant/9"}}`)))
	assert.Equal(t, "12345", item.ID)
	assert.Equal(t, "Keg", item.Title)
	assert.Equal(t, "199.50", item.Price.StringFixed(2))
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, "gid://shopify/ProductVariant/9", item.VariantID)
	assert.Equal(t, "399.00", CartItem{Price: dec("199.5"), Quantity: 2}.LineTotal().StringFixed(2))
}
