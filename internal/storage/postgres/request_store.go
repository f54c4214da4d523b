package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cooler-indexer/internal/domain"
	"cooler-indexer/internal/storage"
)

// RequestStore implements storage.RequestStore using PostgreSQL.
type RequestStore struct {
	pool *Pool
}

// NewRequestStore creates a new RequestStore.
func NewRequestStore(pool *Pool) *RequestStore {
	return &RequestStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RequestStore = (*RequestStore)(nil)

// Upsert writes the request, replacing any existing row with the same id.
// Full overwrite keeps re-processing of the same event idempotent.
func (s *RequestStore) Upsert(ctx context.Context, r *domain.LoanRequest) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO loan_requests (
			id, cooler, borrower, created_block, created_timestamp, created_tx,
			amount, interest_pct, loan_to_collateral, duration_seconds, is_rescinded
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			cooler = EXCLUDED.cooler,
			borrower = EXCLUDED.borrower,
			created_block = EXCLUDED.created_block,
			created_timestamp = EXCLUDED.created_timestamp,
			created_tx = EXCLUDED.created_tx,
			amount = EXCLUDED.amount,
			interest_pct = EXCLUDED.interest_pct,
			loan_to_collateral = EXCLUDED.loan_to_collateral,
			duration_seconds = EXCLUDED.duration_seconds,
			is_rescinded = EXCLUDED.is_rescinded
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID,
		r.Cooler,
		r.Borrower,
		r.CreatedBlock,
		r.CreatedTimestamp,
		r.CreatedTx,
		r.Amount,
		r.InterestPct,
		r.LoanToCollateral,
		r.DurationSeconds,
		r.IsRescinded,
	)
	if err != nil {
		return fmt.Errorf("upsert loan request: %w", err)
	}
	return nil
}

// GetByID retrieves a request by its derived id.
func (s *RequestStore) GetByID(ctx context.Context, id string) (*domain.LoanRequest, error) {
	query := `
		SELECT id, cooler, borrower, created_block, created_timestamp, created_tx,
		       amount, interest_pct, loan_to_collateral, duration_seconds, is_rescinded
		FROM loan_requests
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	r, err := scanRequest(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get loan request by id: %w", err)
	}
	return r, nil
}

// GetByCooler retrieves all requests for a cooler, ordered by creation.
func (s *RequestStore) GetByCooler(ctx context.Context, cooler string) ([]*domain.LoanRequest, error) {
	query := `
		SELECT id, cooler, borrower, created_block, created_timestamp, created_tx,
		       amount, interest_pct, loan_to_collateral, duration_seconds, is_rescinded
		FROM loan_requests
		WHERE cooler = $1
		ORDER BY created_block ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, cooler)
	if err != nil {
		return nil, fmt.Errorf("get loan requests by cooler: %w", err)
	}
	defer rows.Close()

	var requests []*domain.LoanRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan request row: %w", err)
		}
		requests = append(requests, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loan request rows: %w", err)
	}

	return requests, nil
}

// scanRequest scans one row into a LoanRequest.
func scanRequest(row pgx.Row) (*domain.LoanRequest, error) {
	var r domain.LoanRequest

	err := row.Scan(
		&r.ID,
		&r.Cooler,
		&r.Borrower,
		&r.CreatedBlock,
		&r.CreatedTimestamp,
		&r.CreatedTx,
		&r.Amount,
		&r.InterestPct,
		&r.LoanToCollateral,
		&r.DurationSeconds,
		&r.IsRescinded,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}
