package memory

import (
	"context"
	"sort"
	"sync"

	"cooler-indexer/internal/domain"
	"cooler-indexer/internal/storage"
)

// RequestStore is an in-memory implementation of storage.RequestStore.
type RequestStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LoanRequest
}

// NewRequestStore creates a new in-memory request store.
func NewRequestStore() *RequestStore {
	return &RequestStore{
		data: make(map[string]*domain.LoanRequest),
	}
}

// Compile-time interface check.
var _ storage.RequestStore = (*RequestStore)(nil)

// Upsert writes the request, replacing any existing row with the same id.
func (s *RequestStore) Upsert(_ context.Context, r *domain.LoanRequest) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *r
	s.data[r.ID] = &copy
	return nil
}

// GetByID retrieves a request by its derived id.
func (s *RequestStore) GetByID(_ context.Context, id string) (*domain.LoanRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByCooler retrieves all requests for a cooler, ordered by creation.
func (s *RequestStore) GetByCooler(_ context.Context, cooler string) ([]*domain.LoanRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.LoanRequest
	for _, r := range s.data {
		if r.Cooler == cooler {
			copy := *r
			out = append(out, &copy)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedBlock != out[j].CreatedBlock {
			return out[i].CreatedBlock < out[j].CreatedBlock
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}
