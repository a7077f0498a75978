package draft

import "context"

// Repository defines read access to order drafts. Drafts are written by the
// checkout flow; this service never mutates them.
type Repository interface {
	// GetDraft returns ErrDraftNotFound when no row matches.
	GetDraft(ctx context.Context, id string) (*Draft, error)
}
