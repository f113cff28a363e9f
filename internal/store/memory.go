package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tournevent/courierhub/pkg/courier"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	quotations map[string]*courier.Quotation
	orders     map[string]*courier.Order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotations: make(map[string]*courier.Quotation),
		orders:     make(map[string]*courier.Order),
	}
}

func (s *MemoryStore) SaveQuotation(ctx context.Context, q *courier.Quotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *q
	s.quotations[q.ID] = &cp
	return nil
}

func (s *MemoryStore) GetQuotation(ctx context.Context, id string) (*courier.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *MemoryStore) LatestQuotation(ctx context.Context, docType, docID, providerCode string) (*courier.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *courier.Quotation
	for _, q := range s.quotations {
		if q.SourceDocumentType != docType || q.SourceDocumentID != docID || q.ProviderCode != providerCode {
			continue
		}
		if latest == nil || q.IssuedAt.After(latest.IssuedAt) {
			latest = q
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) InvalidateQuotation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.quotations[id]; ok {
		q.Valid = false
	}
	return nil
}

func (s *MemoryStore) SaveOrder(ctx context.Context, o *courier.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*courier.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) UpdateOrder(ctx context.Context, o *courier.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; !ok {
		return ErrNotFound
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) RekeyOrder(ctx context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[oldID]
	if !ok {
		return ErrNotFound
	}
	delete(s.orders, oldID)
	o.ID = newID
	s.orders[newID] = o
	return nil
}

func (s *MemoryStore) OrdersByDocument(ctx context.Context, docType, docID string) ([]*courier.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*courier.Order
	for _, o := range s.orders {
		if o.SourceDocumentType != docType || o.SourceDocumentID != docID {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
