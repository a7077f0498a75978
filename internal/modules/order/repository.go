package order

import (
	"context"
	"time"
)

// ReservationTTL bounds how long a pending reservation blocks a retry. A
// process that dies between Reserve and Complete frees the reference after it.
const ReservationTTL = 10 * time.Minute

// Repository defines data access for local order records. payment_reference
// is unique across all rows, pending or confirmed.
type Repository interface {
	// GetByPaymentReference returns the record for ref or ErrNotFound.
	GetByPaymentReference(ctx context.Context, ref string) (*Record, error)

	// Reserve claims ref with a pending row before the platform order is
	// created. It returns ErrDuplicatePaymentReference when another request
	// holds or has completed ref.
	Reserve(ctx context.Context, ref string) error

	// Complete turns the pending row for r.PaymentReference into a confirmed
	// record, inserting it when no reservation exists.
	Complete(ctx context.Context, r *Record) error

	// Release drops a pending reservation after a failed platform create.
	Release(ctx context.Context, ref string) error

	// Create inserts a confirmed record, returning ErrDuplicatePaymentReference
	// on a unique violation.
	Create(ctx context.Context, r *Record) error
}
