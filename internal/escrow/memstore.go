package escrow

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-process Store. One mutex serializes all mutations, which
// satisfies the check-then-set requirement; snapshots are copies, so callers
// never observe a torn record or mutate ledger state from outside.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*Record)}
}

func (s *MemStore) Create(ctx context.Context, rec *Record, fund func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.PaymentID]; exists {
		return ErrDuplicatePaymentID
	}
	if err := fund(ctx); err != nil {
		return err
	}

	stored := *rec
	s.records[rec.PaymentID] = &stored
	return nil
}

func (s *MemStore) Get(ctx context.Context, paymentID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[paymentID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	snapshot := *rec
	return &snapshot, nil
}

func (s *MemStore) Resolve(ctx context.Context, paymentID, to string, resolvedAt time.Time, guard func(ctx context.Context, rec *Record) error) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[paymentID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	if rec.Status != StatusPending {
		return nil, ErrAlreadyResolved
	}

	snapshot := *rec
	if err := guard(ctx, &snapshot); err != nil {
		return nil, err
	}

	rec.Status = to
	rec.ResolvedAt = &resolvedAt
	updated := *rec
	return &updated, nil
}
