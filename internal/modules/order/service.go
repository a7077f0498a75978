package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/address"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/customer"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/draft"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/payment"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/shopify"
)

// Service turns a completed payment into exactly one platform order.
type Service interface {
	// CreateFromPayment runs the reconciliation flow for one payment reference.
	CreateFromPayment(ctx context.Context, req payment.Request) (*Result, error)
}

// PaymentVerifier confirms the payment reference is captured.
type PaymentVerifier interface {
	Verify(ctx context.Context, req payment.Request) (*payment.Verified, error)
}

// CartResolver recovers the cart and amounts attached to a payment.
type CartResolver interface {
	Resolve(ctx context.Context, metadata map[string]string) (*draft.Resolved, error)
}

// CustomerLinker finds or creates the platform customer for the buyer.
type CustomerLinker interface {
	Upsert(ctx context.Context, in customer.Input) (int64, bool)
}

// OrderCreator submits an order to the commerce platform.
type OrderCreator interface {
	CreateOrder(ctx context.Context, o shopify.Order) (*shopify.Order, error)
}

const (
	msgCreated    = "Order created successfully"
	msgDuplicate  = "Order already exists for this payment"
	msgInProgress = "Order for this payment is already being created"
)

type service struct {
	payments  PaymentVerifier
	carts     CartResolver
	customers CustomerLinker
	orders    OrderCreator
	repo      Repository
	log       *slog.Logger
}

// NewService wires the flow stages together.
func NewService(payments PaymentVerifier, carts CartResolver, customers CustomerLinker,
	orders OrderCreator, repo Repository, log *slog.Logger) Service {
	return &service{
		payments:  payments,
		carts:     carts,
		customers: customers,
		orders:    orders,
		repo:      repo,
		log:       log,
	}
}

func (s *service) CreateFromPayment(ctx context.Context, req payment.Request) (res *Result, err error) {
	// ── 1. Verify payment ────────────────────────────────────────────────────
	paid, err := s.payments.Verify(ctx, req)
	if err != nil {
		return nil, err
	}
	ref := paid.Reference
	log := s.log.With("payment_reference", ref)

	// ── 2. Resolve cart ──────────────────────────────────────────────────────
	cart, err := s.carts.Resolve(ctx, paid.Metadata)
	if err != nil {
		return nil, err
	}

	// ── 3. Duplicate guard ───────────────────────────────────────────────────
	if dup := s.existing(ctx, log, ref); dup != nil {
		return dup, nil
	}

	// ── 4. Reconcile amounts ─────────────────────────────────────────────────
	if err := ReconcileOrder(paid.Amount, cart.CartItems, cart.Amounts); err != nil {
		log.Error("amount mismatch", "stage", "reconcile", "error", err,
			"paid", paid.Amount.StringFixed(2), "expected", cart.Amounts.TotalAmount.StringFixed(2))
		return nil, err
	}
	log.Info("amounts reconciled", "stage", "reconcile", "total", paid.Amount.StringFixed(2))

	// Claim the reference before any platform write. A concurrent request
	// that lost the race is answered like a retry.
	reserved := true
	switch rerr := s.repo.Reserve(ctx, ref); {
	case errors.Is(rerr, ErrDuplicatePaymentReference):
		log.Warn("payment reference already reserved", "stage", "duplicate_guard")
		if dup := s.existing(ctx, log, ref); dup != nil {
			return dup, nil
		}
		return &Result{Success: true, Message: msgInProgress, DuplicatePrevented: true}, nil
	case rerr != nil:
		reserved = false
		log.Warn("reservation failed, continuing without it", "stage", "duplicate_guard", "error", rerr)
	}
	defer func() {
		if err != nil && reserved {
			if rerr := s.repo.Release(context.WithoutCancel(ctx), ref); rerr != nil {
				log.Warn("release reservation failed", "stage", "duplicate_guard", "error", rerr)
			}
		}
	}()

	// ── 5. Normalise address ─────────────────────────────────────────────────
	details := cart.Details
	addr := address.Normalize(paid.Metadata, details.Address)
	if addr.IsSentinel() {
		log.Warn("delivery address unusable", "stage", "normalize_address", "street", addr.Street)
	}

	// ── 6. Upsert customer ───────────────────────────────────────────────────
	customerID, linked := s.customers.Upsert(ctx, customer.Input{
		Name:         details.CustomerName,
		Email:        details.CustomerEmail,
		Phone:        details.CustomerPhone,
		DeliveryDate: details.DeliveryDate,
		DeliveryTime: details.DeliveryTime,
		Instructions: details.Instructions,
		Address:      addr,
	})
	if !linked {
		customerID = 0
	}

	// ── 7. Build payload ─────────────────────────────────────────────────────
	in := PayloadInput{
		Items:            cart.CartItems,
		Amounts:          cart.Amounts,
		Address:          addr,
		Details:          details,
		CustomerID:       customerID,
		PaymentReference: ref,
		PaymentGateway:   string(paid.Provider),
		Currency:         paid.Currency,
	}
	payload := BuildPayload(in)

	// ── 8. Persist ───────────────────────────────────────────────────────────
	created, err := s.orders.CreateOrder(ctx, payload)
	if err != nil {
		log.Error("shopify order create failed", "stage", "persist", "error", err)
		return nil, externalCreateError(err)
	}
	rec := NewRecord(created, in, payload)
	log.Info("shopify order created", "stage", "persist",
		"shopify_order_id", rec.ShopifyOrderID, "order_number", rec.OrderNumber)

	save := s.repo.Create
	if reserved {
		save = s.repo.Complete
	}
	switch serr := save(ctx, rec); {
	case errors.Is(serr, ErrDuplicatePaymentReference):
		log.Warn("concurrent duplicate detected on insert", "stage", "persist", "shopify_order_id", rec.ShopifyOrderID)
	case serr != nil:
		log.Warn("local order record not saved", "stage", "persist", "shopify_order_id", rec.ShopifyOrderID, "error", serr)
	}

	return resultFrom(rec, msgCreated), nil
}

// existing returns a duplicate response when ref already has a record.
func (s *service) existing(ctx context.Context, log *slog.Logger, ref string) *Result {
	rec, err := s.repo.GetByPaymentReference(ctx, ref)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		log.Warn("duplicate lookup failed, continuing", "stage", "duplicate_guard", "error", err)
		return nil
	case rec.Status == StatusPending:
		if rec.CreatedAt.IsZero() || time.Since(rec.CreatedAt) >= ReservationTTL {
			return nil
		}
		log.Info("order creation in progress", "stage", "duplicate_guard")
		return &Result{Success: true, Message: msgInProgress, DuplicatePrevented: true}
	}
	log.Info("duplicate prevented", "stage", "duplicate_guard",
		"shopify_order_id", rec.ShopifyOrderID, "order_number", rec.OrderNumber)
	res := resultFrom(rec, msgDuplicate)
	res.DuplicatePrevented = true
	return res
}

func externalCreateError(err error) error {
	var apiErr *shopify.APIError
	if errors.As(err, &apiErr) {
		return &ExternalOrderCreateError{Status: apiErr.Status, Body: apiErr.Body}
	}
	return &ExternalOrderCreateError{Err: fmt.Errorf("submit order: %w", err)}
}
