package memory

import (
	"context"
	"sort"
	"sync"

	"cooler-indexer/internal/domain"
	"cooler-indexer/internal/storage"
)

// LoanStore is an in-memory implementation of storage.LoanStore.
type LoanStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Loan
}

// NewLoanStore creates a new in-memory loan store.
func NewLoanStore() *LoanStore {
	return &LoanStore{
		data: make(map[string]*domain.Loan),
	}
}

// Compile-time interface check.
var _ storage.LoanStore = (*LoanStore)(nil)

// Upsert writes the loan, replacing any existing row with the same id.
func (s *LoanStore) Upsert(_ context.Context, l *domain.Loan) error {
	if l == nil || l.ID == "" || l.RequestID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *l
	s.data[l.ID] = &copy
	return nil
}

// GetByID retrieves a loan by its derived id.
func (s *LoanStore) GetByID(_ context.Context, id string) (*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *l
	return &copy, nil
}

// GetByCooler retrieves all loans for a cooler, ordered by creation.
func (s *LoanStore) GetByCooler(_ context.Context, cooler string) ([]*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Loan
	for _, l := range s.data {
		if l.Cooler == cooler {
			copy := *l
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
