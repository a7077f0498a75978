package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Schema creates the local mirror table. The unique index on
// payment_reference is what makes duplicate prevention atomic.
const Schema = `
CREATE TABLE IF NOT EXISTS customer_orders (
	id                   UUID PRIMARY KEY,
	order_number         TEXT,
	shopify_order_id     BIGINT,
	payment_reference    TEXT NOT NULL,
	status               TEXT NOT NULL,
	origin               TEXT NOT NULL DEFAULT 'checkout',
	subtotal             NUMERIC(12,2) NOT NULL DEFAULT 0,
	delivery_fee         NUMERIC(12,2) NOT NULL DEFAULT 0,
	sales_tax            NUMERIC(12,2) NOT NULL DEFAULT 0,
	tip_amount           NUMERIC(12,2) NOT NULL DEFAULT 0,
	total_amount         NUMERIC(12,2) NOT NULL DEFAULT 0,
	delivery_address     JSONB,
	line_items           JSONB,
	special_instructions TEXT,
	affiliate_code       TEXT,
	customer_email       TEXT,
	customer_name        TEXT,
	delivery_date        TEXT,
	delivery_time        TEXT,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS customer_orders_payment_reference_key
	ON customer_orders (payment_reference);
`

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// EnsureSchema applies Schema; safe to run on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure customer_orders schema: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetByPaymentReference(ctx context.Context, ref string) (*Record, error) {
	rec := &Record{}
	var addr, items []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(order_number,''), COALESCE(shopify_order_id,0), payment_reference,
		       status, origin, subtotal, delivery_fee, sales_tax, tip_amount, total_amount,
		       delivery_address, line_items,
		       COALESCE(special_instructions,''), COALESCE(affiliate_code,''),
		       COALESCE(customer_email,''), COALESCE(customer_name,''),
		       COALESCE(delivery_date,''), COALESCE(delivery_time,''), created_at
		FROM customer_orders WHERE payment_reference=$1`, ref).Scan(
		&rec.ID, &rec.OrderNumber, &rec.ShopifyOrderID, &rec.PaymentReference,
		&rec.Status, &rec.Origin,
		&rec.Amounts.Subtotal, &rec.Amounts.DeliveryFee, &rec.Amounts.SalesTax,
		&rec.Amounts.TipAmount, &rec.Amounts.TotalAmount,
		&addr, &items,
		&rec.SpecialInstructions, &rec.AffiliateCode,
		&rec.CustomerEmail, &rec.CustomerName,
		&rec.DeliveryDate, &rec.DeliveryTime, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &rec.DeliveryAddress); err != nil {
			return nil, fmt.Errorf("decode delivery_address for %s: %w", ref, err)
		}
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &rec.LineItems); err != nil {
			return nil, fmt.Errorf("decode line_items for %s: %w", ref, err)
		}
	}
	return rec, nil
}

// Reserve inserts a pending row, or takes over a pending row whose holder
// has been silent for longer than ReservationTTL.
func (r *postgresRepo) Reserve(ctx context.Context, ref string) error {
	now := time.Now().UTC()
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customer_orders (id, payment_reference, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (payment_reference) DO UPDATE
		   SET id = EXCLUDED.id, created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at
		 WHERE customer_orders.status = $3 AND customer_orders.updated_at < $5
		RETURNING id`,
		uuid.New(), ref, StatusPending, now, now.Add(-ReservationTTL)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicatePaymentReference
	}
	if err != nil {
		return fmt.Errorf("reserve %s: %w", ref, err)
	}
	return nil
}

func (r *postgresRepo) Complete(ctx context.Context, rec *Record) error {
	addr, items, err := encodeJSONColumns(rec)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE customer_orders
		   SET id=$1, order_number=$2, shopify_order_id=$3, status=$4, origin=$5,
		       subtotal=$6, delivery_fee=$7, sales_tax=$8, tip_amount=$9, total_amount=$10,
		       delivery_address=$11, line_items=$12, special_instructions=$13, affiliate_code=$14,
		       customer_email=$15, customer_name=$16, delivery_date=$17, delivery_time=$18,
		       created_at=$19, updated_at=now()
		 WHERE payment_reference=$20 AND status=$21`,
		rec.ID, rec.OrderNumber, rec.ShopifyOrderID, rec.Status, rec.Origin,
		rec.Amounts.Subtotal, rec.Amounts.DeliveryFee, rec.Amounts.SalesTax,
		rec.Amounts.TipAmount, rec.Amounts.TotalAmount,
		addr, items, rec.SpecialInstructions, rec.AffiliateCode,
		rec.CustomerEmail, rec.CustomerName, rec.DeliveryDate, rec.DeliveryTime,
		rec.CreatedAt, rec.PaymentReference, StatusPending)
	if err != nil {
		return fmt.Errorf("complete %s: %w", rec.PaymentReference, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.Create(ctx, rec)
	}
	return nil
}

func (r *postgresRepo) Release(ctx context.Context, ref string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM customer_orders WHERE payment_reference=$1 AND status=$2`, ref, StatusPending)
	return err
}

func (r *postgresRepo) Create(ctx context.Context, rec *Record) error {
	addr, items, err := encodeJSONColumns(rec)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO customer_orders
		  (id, order_number, shopify_order_id, payment_reference, status, origin,
		   subtotal, delivery_fee, sales_tax, tip_amount, total_amount,
		   delivery_address, line_items, special_instructions, affiliate_code,
		   customer_email, customer_name, delivery_date, delivery_time, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,now())`,
		rec.ID, rec.OrderNumber, rec.ShopifyOrderID, rec.PaymentReference, rec.Status, rec.Origin,
		rec.Amounts.Subtotal, rec.Amounts.DeliveryFee, rec.Amounts.SalesTax,
		rec.Amounts.TipAmount, rec.Amounts.TotalAmount,
		addr, items, rec.SpecialInstructions, rec.AffiliateCode,
		rec.CustomerEmail, rec.CustomerName, rec.DeliveryDate, rec.DeliveryTime, rec.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicatePaymentReference
	}
	if err != nil {
		return fmt.Errorf("insert customer_order: %w", err)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func encodeJSONColumns(rec *Record) (addr, items []byte, err error) {
	addr, err = json.Marshal(rec.DeliveryAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("encode delivery_address: %w", err)
	}
	items, err = json.Marshal(rec.LineItems)
	if err != nil {
		return nil, nil, fmt.Errorf("encode line_items: %w", err)
	}
	return addr, items, nil
}
