package draft

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
)

// Resolver recovers the authoritative cart and price breakdown for a payment.
type Resolver struct {
	repo Repository
	log  *slog.Logger
}

func NewResolver(repo Repository, log *slog.Logger) *Resolver {
	return &Resolver{repo: repo, log: log}
}

// Resolve prefers a persisted draft, then the versioned payload, then the
// legacy cart_items and amount keys. ErrEmptyCart is returned when none of
// them yields a line item.
func (r *Resolver) Resolve(ctx context.Context, metadata map[string]string) (*Resolved, error) {
	payload, err := DecodePayload(metadata)
	if err != nil {
		r.log.Warn("ignoring checkout payload", "stage", "resolve_draft", "error", err)
		payload = nil
	}
	details := DetailsFrom(metadata, payload)

	draftID := lookup(metadata, draftKeys...)
	if payload != nil && payload.DraftID != "" {
		draftID = payload.DraftID
	}

	if draftID != "" {
		d, err := r.repo.GetDraft(ctx, draftID)
		switch {
		case errors.Is(err, ErrDraftNotFound):
			r.log.Warn("draft not found, falling back to metadata", "stage", "resolve_draft", "draft_id", draftID)
		case err != nil:
			r.log.Warn("draft lookup failed, falling back to metadata", "stage", "resolve_draft", "draft_id", draftID, "error", err)
		case len(d.Data.CartItems) == 0:
			r.log.Warn("draft has no cart items, falling back to metadata", "stage", "resolve_draft", "draft_id", draftID)
		default:
			return r.resolved(d.Data.CartItems, d.Amounts(), SourceDraft, draftID, details), nil
		}
	}

	if payload != nil && len(payload.Cart) > 0 {
		amounts := amountsFromMetadata(metadata)
		if payload.Amounts != nil {
			amounts = *payload.Amounts
		}
		return r.resolved(payload.Cart, amounts, SourcePayload, draftID, details), nil
	}

	items, err := cartFromMetadata(metadata)
	if err != nil {
		r.log.Warn("cart_items metadata unparseable", "stage", "resolve_draft", "error", err)
	}
	if len(items) == 0 {
		r.log.Error("no cart items available", "stage", "resolve_draft", "draft_id", draftID)
		return nil, ErrEmptyCart
	}
	return r.resolved(items, amountsFromMetadata(metadata), SourceMetadata, draftID, details), nil
}

func (r *Resolver) resolved(items []CartItem, amounts Amounts, src Source, draftID string, details Details) *Resolved {
	amounts = amounts.normalized()
	r.log.Info("cart resolved",
		"stage", "resolve_draft",
		"source", src,
		"draft_id", draftID,
		"items", len(items),
		"subtotal", amounts.Subtotal.StringFixed(2),
		"delivery_fee", amounts.DeliveryFee.StringFixed(2),
		"sales_tax", amounts.SalesTax.StringFixed(2),
		"tip_amount", amounts.TipAmount.StringFixed(2),
		"total_amount", amounts.TotalAmount.StringFixed(2))
	return &Resolved{
		CartItems: items,
		Amounts:   amounts,
		Source:    src,
		DraftID:   draftID,
		Details:   details,
	}
}

func cartFromMetadata(metadata map[string]string) ([]CartItem, error) {
	raw := strings.TrimSpace(metadata["cart_items"])
	if raw == "" {
		return nil, nil
	}
	var items []CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func amountsFromMetadata(metadata map[string]string) Amounts {
	return Amounts{
		Subtotal:    parseAmount(metadata["subtotal"]),
		DeliveryFee: parseAmount(metadata["delivery_fee"]),
		SalesTax:    parseAmount(metadata["sales_tax"]),
		TipAmount:   parseAmount(metadata["tip_amount"]),
		TotalAmount: parseAmount(metadata["total_amount"]),
	}
}
