package order

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/customer"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/draft"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/payment"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/shopify"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeGateway struct {
	records map[string]*payment.Record
}

func (g *fakeGateway) GetPaymentIntent(_ context.Context, id string) (*payment.Record, error) {
	if r, ok := g.records[id]; ok {
		return r, nil
	}
	return nil, errors.New("no such payment_intent")
}

func (g *fakeGateway) GetCheckoutSession(ctx context.Context, id string) (*payment.Record, error) {
	return g.GetPaymentIntent(ctx, id)
}

type fakeDrafts struct{ drafts map[string]*draft.Draft }

func (f *fakeDrafts) GetDraft(_ context.Context, id string) (*draft.Draft, error) {
	if d, ok := f.drafts[id]; ok {
		return d, nil
	}
	return nil, draft.ErrDraftNotFound
}

// fakeShop records every call made to the commerce platform.
type fakeShop struct {
	mu        sync.Mutex
	calls     int
	orders    []shopify.Order
	createErr error
	nextID    int64
}

func (s *fakeShop) SearchCustomerByEmail(_ context.Context, _ string) (*shopify.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil, shopify.ErrNotFound
}

func (s *fakeShop) CreateCustomer(_ context.Context, in shopify.Customer) (*shopify.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	in.ID = 77
	return &in, nil
}

func (s *fakeShop) UpdateCustomer(_ context.Context, in shopify.Customer) (*shopify.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return &in, nil
}

func (s *fakeShop) CreateOrder(_ context.Context, o shopify.Order) (*shopify.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	s.orders = append(s.orders, o)
	o.ID = 5000 + s.nextID
	o.OrderNumber = 1000 + s.nextID
	return &o, nil
}

// failingRepo wraps a Repository and injects errors per method.
type failingRepo struct {
	Repository
	getErr     error
	reserveErr error
	saveErr    error
}

func (r *failingRepo) GetByPaymentReference(ctx context.Context, ref string) (*Record, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.Repository.GetByPaymentReference(ctx, ref)
}

func (r *failingRepo) Reserve(ctx context.Context, ref string) error {
	if r.reserveErr != nil {
		return r.reserveErr
	}
	return r.Repository.Reserve(ctx, ref)
}

func (r *failingRepo) Complete(ctx context.Context, rec *Record) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.Repository.Complete(ctx, rec)
}

func (r *failingRepo) Create(ctx context.Context, rec *Record) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.Repository.Create(ctx, rec)
}

// ── harness ──────────────────────────────────────────────────────────────────

type harness struct {
	gw     *fakeGateway
	drafts *fakeDrafts
	shop   *fakeShop
	repo   Repository
	svc    Service
}

func newHarness(t *testing.T, repo Repository) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		gw:     &fakeGateway{records: map[string]*payment.Record{}},
		drafts: &fakeDrafts{drafts: map[string]*draft.Draft{}},
		shop:   &fakeShop{},
		repo:   repo,
	}
	if h.repo == nil {
		h.repo = NewMemoryRepository()
	}
	h.svc = NewService(
		payment.NewVerifier(h.gw, log),
		draft.NewResolver(h.drafts, log),
		customer.NewUpserter(h.shop, log),
		h.shop,
		h.repo,
		log,
	)
	return h
}

// scenario: $94.97 paid for a draft of 79.97 + 15.00 delivery.
func (h *harness) scenario(t *testing.T, ref string, paidMinor int64) {
	t.Helper()
	var data draft.Data
	require.NoError(t, data.UnmarshalJSON([]byte(`{"cart_items":[`+
		`{"id":"gid://shopify/ProductVariant/4411","title":"Party Pack","price":29.99,"quantity":1},`+
		`{"id":"ice-1","title":"Ice","price":24.99,"quantity":2}],`+
		`"subtotal":79.97,"delivery_fee":15,"sales_tax":0,"tip_amount":0,"total_amount":94.97}`)))
	h.drafts.drafts["d-1"] = &draft.Draft{ID: "d-1", Data: data}
	h.gw.records[ref] = &payment.Record{
		Reference:   ref,
		Kind:        payment.KindPaymentIntent,
		Status:      "succeeded",
		AmountMinor: paidMinor,
		Currency:    "usd",
		Metadata: map[string]string{
			"draft_id":         "d-1",
			"customer_name":    "Jo Doe",
			"customer_email":   "jo@example.com",
			"delivery_address": "123 Main St, Austin, TX 78701",
			"delivery_date":    "2026-10-20",
		},
	}
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestCreateFromPayment_Scenario(t *testing.T) {
	h := newHarness(t, nil)
	h.scenario(t, "pi_1", 9497)

	res, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.DuplicatePrevented)
	assert.EqualValues(t, 5001, res.ShopifyOrderID)
	assert.Equal(t, "1001", res.OrderNumber)
	assert.Equal(t, 94.97, res.TotalAmount)
	assert.Equal(t, 79.97, res.Subtotal)
	assert.Equal(t, 15.0, res.DeliveryFee)
	assert.Equal(t, "Austin", res.ShippingAddress.City)

	require.Len(t, h.shop.orders, 1)
	sent := h.shop.orders[0]
	require.Len(t, sent.ShippingLines, 1)
	assert.Equal(t, DeliveryLineTitle, sent.ShippingLines[0].Title)
	assert.Empty(t, sent.TaxLines)
	require.NotNil(t, sent.Customer)
	assert.EqualValues(t, 77, sent.Customer.ID)

	rec, err := h.repo.GetByPaymentReference(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, rec.Status)
	assert.EqualValues(t, 5001, rec.ShopifyOrderID)
	assert.Len(t, rec.LineItems, 2)
}

func TestCreateFromPayment_Idempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.scenario(t, "pi_1", 9497)

	first, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	calls := h.shop.calls

	second, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	assert.True(t, second.DuplicatePrevented)
	assert.Equal(t, first.ShopifyOrderID, second.ShopifyOrderID)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)
	assert.Equal(t, calls, h.shop.calls, "no platform calls on a duplicate")
	assert.Len(t, h.shop.orders, 1)
}

func TestCreateFromPayment_ConcurrentDuplicates(t *testing.T) {
	h := newHarness(t, nil)
	h.scenario(t, "pi_1", 9497)

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Len(t, h.shop.orders, 1)
	created := 0
	for _, r := range results {
		if r != nil && !r.DuplicatePrevented {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

func TestCreateFromPayment_AmountMismatch(t *testing.T) {
	h := newHarness(t, nil)
	h.scenario(t, "pi_1", 9500)

	_, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
	var mismatch *AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "0.03", mismatch.Diff.StringFixed(2))
	assert.Zero(t, h.shop.calls)

	_, err = h.repo.GetByPaymentReference(context.Background(), "pi_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFromPayment_PartsDisagreeWithTotal(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.records["pi_4"] = &payment.Record{
		Reference: "pi_4", Kind: payment.KindPaymentIntent, Status: "succeeded", AmountMinor: 9497,
		Metadata: map[string]string{
			"cart_items":     `[{"id":"x","title":"Party Pack","price":"79.97","quantity":1}]`,
			"customer_email": "jo@example.com",
			"subtotal":       "79.97",
			"delivery_fee":   "15.00",
			"tip_amount":     "5.00",
			"total_amount":   "94.97",
		},
	}

	_, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_4"})
	var mismatch *AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.True(t, mismatch.Booked.Valid)
	assert.Equal(t, "99.97", mismatch.Booked.Decimal.StringFixed(2))
	assert.Equal(t, "5.00", mismatch.Diff.StringFixed(2))
	assert.Contains(t, err.Error(), "94.97")
	assert.Contains(t, err.Error(), "99.97")
	assert.Zero(t, h.shop.calls, "no customer or order calls")

	_, err = h.repo.GetByPaymentReference(context.Background(), "pi_4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFromPayment_WithinTolerance(t *testing.T) {
	h := newHarness(t, nil)
	h.scenario(t, "pi_1", 9499)

	res, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, 94.97, res.TotalAmount)
}

func TestCreateFromPayment_EmptyCartMakesNoPlatformCalls(t *testing.T) {
	h := newHarness(t, nil)
	h.drafts.drafts["d-empty"] = &draft.Draft{ID: "d-empty"}
	h.gw.records["pi_2"] = &payment.Record{
		Reference: "pi_2", Status: "succeeded", AmountMinor: 1000,
		Metadata: map[string]string{"draft_id": "d-empty", "cart_items": "not json"},
	}

	_, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_2"})
	assert.ErrorIs(t, err, draft.ErrEmptyCart)
	assert.Zero(t, h.shop.calls)
}

func TestCreateFromPayment_PaymentErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.records["pi_3"] = &payment.Record{Reference: "pi_3", Status: "requires_action"}

	_, err := h.svc.CreateFromPayment(context.Background(), payment.Request{})
	assert.ErrorIs(t, err, payment.ErrMissingIdentifier)

	_, err = h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_3"})
	assert.ErrorIs(t, err, payment.ErrPaymentNotCompleted)
	assert.Zero(t, h.shop.calls)
}

func TestCreateFromPayment_ExternalCreateFailureReleasesReservation(t *testing.T) {
	h := newHarness(t, nil)
	h.scenario(t, "pi_1", 9497)
	h.shop.createErr = &shopify.APIError{Method: "POST", Path: "/orders.json", Status: 422, Body: `{"errors":"bad"}`}

	_, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
	var createErr *ExternalOrderCreateError
	require.ErrorAs(t, err, &createErr)
	assert.ErrorIs(t, err, ErrExternalOrderCreateFailed)
	assert.Equal(t, `{"errors":"bad"}`, createErr.Body)

	_, err = h.repo.GetByPaymentReference(context.Background(), "pi_1")
	assert.ErrorIs(t, err, ErrNotFound, "reservation must be released")

	h.shop.createErr = nil
	res, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	assert.False(t, res.DuplicatePrevented)
}

func TestCreateFromPayment_StorageFailuresAreNonFatal(t *testing.T) {
	repo := &failingRepo{
		Repository: NewMemoryRepository(),
		getErr:     errors.New("connection refused"),
		reserveErr: errors.New("connection refused"),
		saveErr:    errors.New("connection refused"),
	}
	h := newHarness(t, repo)
	h.scenario(t, "pi_1", 9497)

	res, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	assert.EqualValues(t, 5001, res.ShopifyOrderID)
	assert.Len(t, h.shop.orders, 1)
}

func TestCreateFromPayment_PendingReservationShortCircuits(t *testing.T) {
	h := newHarness(t, nil)
	h.scenario(t, "pi_1", 9497)
	require.NoError(t, h.repo.Reserve(context.Background(), "pi_1"))

	res, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	assert.True(t, res.DuplicatePrevented)
	assert.Equal(t, msgInProgress, res.Message)
	assert.Empty(t, h.shop.orders)
}

func TestCreateFromPayment_StaleReservationIsTakenOver(t *testing.T) {
	repo := NewMemoryRepository().(*memoryRepo)
	repo.now = func() time.Time { return time.Now().Add(-2 * ReservationTTL) }
	require.NoError(t, repo.Reserve(context.Background(), "pi_1"))
	repo.now = time.Now

	h := newHarness(t, repo)
	h.scenario(t, "pi_1", 9497)
	res, err := h.svc.CreateFromPayment(context.Background(), payment.Request{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	assert.False(t, res.DuplicatePrevented)
	assert.Len(t, h.shop.orders, 1)
}

func TestCreateFromPayment_TipRoundedOnPayload(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.records["cs_1"] = &payment.Record{
		Reference: "cs_1", Kind: payment.KindCheckoutSession, Status: "paid", AmountMinor: 3512,
		Metadata: map[string]string{
			"cart_items":   `[{"id":"x","title":"Cooler","price":"10.00","quantity":2}]`,
			"subtotal":     "20.00",
			"delivery_fee": "10.00",
			"tip_amount":   "5.123",
			"total_amount": "35.12",
		},
	}
	res, err := h.svc.CreateFromPayment(context.Background(), payment.Request{SessionID: "cs_1"})
	require.NoError(t, err)
	assert.Equal(t, 5.12, res.TipAmount)
	require.Len(t, h.shop.orders, 1)
	sent := h.shop.orders[0]
	require.Len(t, sent.ShippingLines, 2)
	assert.Equal(t, "5.12", sent.ShippingLines[1].Price)
	assert.Equal(t, "35.12", sent.TotalPrice)
	assert.Contains(t, res.ShippingAddress.Street, "MISSING")
	assert.Nil(t, sent.Customer, "no email means no linked customer")
}
