package order

import (
	"context"
	"sync"
	"time"
)

// memoryRepo keeps records in process with the same uniqueness rules as
// the postgres table.
type memoryRepo struct {
	mu    sync.Mutex
	byRef map[string]*Record
	now   func() time.Time
}

func NewMemoryRepository() Repository {
	return &memoryRepo{byRef: map[string]*Record{}, now: time.Now}
}

func (r *memoryRepo) GetByPaymentReference(_ context.Context, ref string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byRef[ref]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memoryRepo) Reserve(_ context.Context, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if rec, ok := r.byRef[ref]; ok {
		if rec.Status != StatusPending || now.Sub(rec.CreatedAt) < ReservationTTL {
			return ErrDuplicatePaymentReference
		}
	}
	r.byRef[ref] = &Record{PaymentReference: ref, Status: StatusPending, CreatedAt: now}
	return nil
}

func (r *memoryRepo) Complete(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byRef[rec.PaymentReference]; ok && cur.Status != StatusPending {
		return ErrDuplicatePaymentReference
	}
	cp := *rec
	r.byRef[rec.PaymentReference] = &cp
	return nil
}

func (r *memoryRepo) Release(_ context.Context, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byRef[ref]; ok && rec.Status == StatusPending {
		delete(r.byRef, ref)
	}
	return nil
}

func (r *memoryRepo) Create(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRef[rec.PaymentReference]; ok {
		return ErrDuplicatePaymentReference
	}
	cp := *rec
	r.byRef[rec.PaymentReference] = &cp
	return nil
}
