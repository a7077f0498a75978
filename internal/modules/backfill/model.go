package backfill

import (
	"time"

	"github.com/google/uuid"
)

// CheckpointName identifies the platform order stream in order_sync_checkpoints.
const CheckpointName = "shopify_orders"

// Checkpoint is the high-water mark of the last completed sync.
type Checkpoint struct {
	Name        string
	CreatedAt   time.Time
	LastOrderID int64
	RunID       uuid.UUID
	UpdatedAt   time.Time
}

// Report summarises one sync pass.
type Report struct {
	RunID     uuid.UUID
	Since     time.Time
	Scanned   int
	Inserted  int
	Completed int
	Skipped   int
}
