package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetDraft(ctx context.Context, id string) (*Draft, error) {
	d := &Draft{}
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, draft_data, total_amount FROM order_drafts WHERE id=$1`, id).
		Scan(&d.ID, &data, &d.TotalAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &d.Data); err != nil {
			return nil, fmt.Errorf("decode draft_data for %s: %w", id, err)
		}
	}
	return d, nil
}
