package backfill

import "context"

// Repository stores sync checkpoints.
type Repository interface {
	// GetCheckpoint returns nil, nil when no sync has completed yet.
	GetCheckpoint(ctx context.Context, name string) (*Checkpoint, error)

	// SaveCheckpoint upserts the checkpoint by name.
	SaveCheckpoint(ctx context.Context, c *Checkpoint) error
}
