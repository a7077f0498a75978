package backfill

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const Schema = `
CREATE TABLE IF NOT EXISTS order_sync_checkpoints (
	name          TEXT PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	last_order_id BIGINT NOT NULL DEFAULT 0,
	run_id        UUID NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure order_sync_checkpoints schema: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetCheckpoint(ctx context.Context, name string) (*Checkpoint, error) {
	c := &Checkpoint{}
	err := r.db.QueryRowContext(ctx, `
		SELECT name, created_at, last_order_id, run_id, updated_at
		FROM order_sync_checkpoints WHERE name=$1`, name).
		Scan(&c.Name, &c.CreatedAt, &c.LastOrderID, &c.RunID, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *postgresRepo) SaveCheckpoint(ctx context.Context, c *Checkpoint) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_sync_checkpoints (name, created_at, last_order_id, run_id, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (name) DO UPDATE
		   SET created_at=EXCLUDED.created_at, last_order_id=EXCLUDED.last_order_id,
		       run_id=EXCLUDED.run_id, updated_at=now()`,
		c.Name, c.CreatedAt, c.LastOrderID, c.RunID)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", c.Name, err)
	}
	return nil
}
