package memory

import (
	"context"
	"sort"
	"sync"

	"cooler-indexer/internal/domain"
	"cooler-indexer/internal/storage"
)

// RecordStore is an in-memory implementation of storage.RecordStore.
// Each record kind has its own keyspace, matching the per-kind id schemes.
type RecordStore struct {
	mu       sync.RWMutex
	creates  map[string]*domain.RequestLoanRecord
	clears   map[string]*domain.ClearRequestRecord
	rescinds map[string]*domain.RescindRequestRecord
	repays   map[string]*domain.RepayLoanRecord
	extends  map[string]*domain.ExtendLoanRecord
	defaults map[string]*domain.DefaultClaimRecord
}

// NewRecordStore creates a new in-memory lifecycle record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		creates:  make(map[string]*domain.RequestLoanRecord),
		clears:   make(map[string]*domain.ClearRequestRecord),
		rescinds: make(map[string]*domain.RescindRequestRecord),
		repays:   make(map[string]*domain.RepayLoanRecord),
		extends:  make(map[string]*domain.ExtendLoanRecord),
		defaults: make(map[string]*domain.DefaultClaimRecord),
	}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

// InsertRequestLoan adds a creation record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertRequestLoan(_ context.Context, rec *domain.RequestLoanRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.creates[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *rec
	s.creates[rec.ID] = &copy
	return nil
}

// InsertClearRequest adds a clear record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertClearRequest(_ context.Context, rec *domain.ClearRequestRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clears[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *rec
	s.clears[rec.ID] = &copy
	return nil
}

// InsertRescindRequest adds a rescind record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertRescindRequest(_ context.Context, rec *domain.RescindRequestRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rescinds[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *rec
	s.rescinds[rec.ID] = &copy
	return nil
}

// InsertRepayLoan adds a repayment record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertRepayLoan(_ context.Context, rec *domain.RepayLoanRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.repays[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *rec
	s.repays[rec.ID] = &copy
	return nil
}

// InsertExtendLoan adds an extension record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertExtendLoan(_ context.Context, rec *domain.ExtendLoanRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.extends[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *rec
	s.extends[rec.ID] = &copy
	return nil
}

// InsertDefaultClaim adds a default-claim record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertDefaultClaim(_ context.Context, rec *domain.DefaultClaimRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.defaults[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *rec
	s.defaults[rec.ID] = &copy
	return nil
}

// GetRepaymentsByLoan retrieves all repayment records for a loan, ordered
// by block ASC.
func (s *RecordStore) GetRepaymentsByLoan(_ context.Context, loanID string) ([]*domain.RepayLoanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RepayLoanRecord
	for _, rec := range s.repays {
		if rec.LoanID == loanID {
			copy := *rec
			out = append(out, &copy)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Block < out[j].Block })
	return out, nil
}

// GetDefaultClaim retrieves the default-claim record for a loan. Returns
// ErrNotFound if the loan never defaulted.
func (s *RecordStore) GetDefaultClaim(_ context.Context, loanID string) (*domain.DefaultClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.defaults[loanID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *rec
	return &copy, nil
}

// GetExtensionsByLoan retrieves all extension records for a loan, ordered
// by block ASC.
func (s *RecordStore) GetExtensionsByLoan(_ context.Context, loanID string) ([]*domain.ExtendLoanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ExtendLoanRecord
	for _, rec := range s.extends {
		if rec.LoanID == loanID {
			copy := *rec
			out = append(out, &copy)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Block < out[j].Block })
	return out, nil
}
