package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/order"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/shopify"
)

const (
	defaultPageSize = 250
	defaultOverlap  = 10 * time.Minute
)

// OrderLister pages through platform orders.
type OrderLister interface {
	ListOrders(ctx context.Context, p shopify.ListOrdersParams) ([]shopify.Order, error)
}

// Job restores local order records for platform orders created by the
// checkout flow whose local write never landed.
type Job struct {
	orders      OrderLister
	records     order.Repository
	checkpoints Repository
	log         *slog.Logger

	Lookback time.Duration
	Overlap  time.Duration
	PageSize int
	now      func() time.Time
}

func NewJob(orders OrderLister, records order.Repository, checkpoints Repository, lookback time.Duration, log *slog.Logger) *Job {
	return &Job{
		orders:      orders,
		records:     records,
		checkpoints: checkpoints,
		log:         log,
		Lookback:    lookback,
		Overlap:     defaultOverlap,
		PageSize:    defaultPageSize,
		now:         time.Now,
	}
}

// RunOnce scans orders created since the last checkpoint (less Overlap) and
// mirrors any that carry a payment reference with no confirmed local record.
func (j *Job) RunOnce(ctx context.Context) (Report, error) {
	rep := Report{RunID: uuid.New()}
	log := j.log.With("stage", "backfill", "run_id", rep.RunID)

	cp, err := j.checkpoints.GetCheckpoint(ctx, CheckpointName)
	if err != nil {
		return rep, fmt.Errorf("load checkpoint: %w", err)
	}
	rep.Since = j.now().Add(-j.Lookback)
	if cp != nil {
		rep.Since = cp.CreatedAt.Add(-j.Overlap)
	}
	log.Info("backfill started", "since", rep.Since)

	next := Checkpoint{Name: CheckpointName, RunID: rep.RunID}
	if cp != nil {
		next.CreatedAt, next.LastOrderID = cp.CreatedAt, cp.LastOrderID
	}

	var sinceID int64
	for {
		page, err := j.orders.ListOrders(ctx, shopify.ListOrdersParams{
			CreatedAtMin: rep.Since,
			SinceID:      sinceID,
			Limit:        j.PageSize,
		})
		if err != nil {
			return rep, fmt.Errorf("list orders since id %d: %w", sinceID, err)
		}
		for _, o := range page {
			rep.Scanned++
			if o.ID > sinceID {
				sinceID = o.ID
			}
			if o.CreatedAt != nil && o.CreatedAt.After(next.CreatedAt) {
				next.CreatedAt, next.LastOrderID = *o.CreatedAt, o.ID
			}
			if err := j.mirror(ctx, log, o, &rep); err != nil {
				return rep, err
			}
		}
		if len(page) < j.PageSize {
			break
		}
	}

	if next.CreatedAt.IsZero() {
		log.Info("backfill finished, no orders seen", "scanned", rep.Scanned)
		return rep, nil
	}
	if err := j.checkpoints.SaveCheckpoint(ctx, &next); err != nil {
		return rep, err
	}
	log.Info("backfill finished",
		"scanned", rep.Scanned, "inserted", rep.Inserted, "completed", rep.Completed, "skipped", rep.Skipped,
		"checkpoint", next.CreatedAt)
	return rep, nil
}

func (j *Job) mirror(ctx context.Context, log *slog.Logger, o shopify.Order, rep *Report) error {
	if !hasTag(o.Tags, order.TagDeliveryOrder) {
		rep.Skipped++
		return nil
	}
	rec, ok := order.RecordFromShopify(o)
	if !ok {
		rep.Skipped++
		return nil
	}

	existing, err := j.records.GetByPaymentReference(ctx, rec.PaymentReference)
	switch {
	case errors.Is(err, order.ErrNotFound):
		err = j.records.Create(ctx, rec)
		if errors.Is(err, order.ErrDuplicatePaymentReference) {
			rep.Skipped++
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert record for order %d: %w", o.ID, err)
		}
		rep.Inserted++
		log.Info("local record restored", "shopify_order_id", o.ID, "payment_reference", rec.PaymentReference)
	case err != nil:
		return fmt.Errorf("lookup %s: %w", rec.PaymentReference, err)
	case existing.Status == order.StatusPending:
		if err := j.records.Complete(ctx, rec); err != nil {
			return fmt.Errorf("complete record for order %d: %w", o.ID, err)
		}
		rep.Completed++
		log.Info("pending record completed", "shopify_order_id", o.ID, "payment_reference", rec.PaymentReference)
	default:
		rep.Skipped++
	}
	return nil
}

// Run calls RunOnce immediately and then every interval until ctx is done.
func (j *Job) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := j.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			j.log.Error("backfill run failed", "stage", "backfill", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func hasTag(tags, want string) bool {
	for _, t := range strings.Split(tags, ",") {
		if strings.EqualFold(strings.TrimSpace(t), want) {
			return true
		}
	}
	return false
}
