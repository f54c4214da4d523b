package storage

import (
	"context"

	"cooler-indexer/internal/domain"
)

// RequestStore provides access to loan_requests storage. Requests are
// long-lived mutable state: Upsert overwrites every field by id.
type RequestStore interface {
	// Upsert writes the request, replacing any existing row with the same id.
	Upsert(ctx context.Context, r *domain.LoanRequest) error

	// GetByID retrieves a request by its derived id. Returns ErrNotFound if
	// not exists.
	GetByID(ctx context.Context, id string) (*domain.LoanRequest, error)

	// GetByCooler retrieves all requests for a cooler, ordered by creation.
	GetByCooler(ctx context.Context, cooler string) ([]*domain.LoanRequest, error)
}

// LoanStore provides access to loans storage. Loans are created exactly
// once on clear and re-written wholesale if the same clear is re-processed.
type LoanStore interface {
	// Upsert writes the loan, replacing any existing row with the same id.
	Upsert(ctx context.Context, l *domain.Loan) error

	// GetByID retrieves a loan by its derived id. Returns ErrNotFound if
	// not exists.
	GetByID(ctx context.Context, id string) (*domain.Loan, error)

	// GetByCooler retrieves all loans for a cooler, ordered by creation.
	GetByCooler(ctx context.Context, cooler string) ([]*domain.Loan, error)
}

// RecordStore provides access to lifecycle_events storage. Records are
// append-only snapshots; inserting an existing id returns ErrDuplicateKey.
type RecordStore interface {
	InsertRequestLoan(ctx context.Context, rec *domain.RequestLoanRecord) error
	InsertClearRequest(ctx context.Context, rec *domain.ClearRequestRecord) error
	InsertRescindRequest(ctx context.Context, rec *domain.RescindRequestRecord) error
	InsertRepayLoan(ctx context.Context, rec *domain.RepayLoanRecord) error
	InsertExtendLoan(ctx context.Context, rec *domain.ExtendLoanRecord) error
	InsertDefaultClaim(ctx context.Context, rec *domain.DefaultClaimRecord) error

	// GetRepaymentsByLoan retrieves all repayment records for a loan,
	// ordered by block ASC.
	GetRepaymentsByLoan(ctx context.Context, loanID string) ([]*domain.RepayLoanRecord, error)

	// GetExtensionsByLoan retrieves all extension records for a loan,
	// ordered by block ASC.
	GetExtensionsByLoan(ctx context.Context, loanID string) ([]*domain.ExtendLoanRecord, error)

	// GetDefaultClaim retrieves the default-claim record for a loan.
	// Returns ErrNotFound if the loan never defaulted.
	GetDefaultClaim(ctx context.Context, loanID string) (*domain.DefaultClaimRecord, error)
}
