package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cooler-indexer/internal/domain"
	"cooler-indexer/internal/storage"
)

// LoanStore implements storage.LoanStore using PostgreSQL.
type LoanStore struct {
	pool *Pool
}

// NewLoanStore creates a new LoanStore.
func NewLoanStore(pool *Pool) *LoanStore {
	return &LoanStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LoanStore = (*LoanStore)(nil)

// Upsert writes the loan, replacing any existing row with the same id.
func (s *LoanStore) Upsert(ctx context.Context, l *domain.Loan) error {
	if l == nil || l.ID == "" || l.RequestID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO loans (
			id, request_id, cooler, borrower, lender, collateral_token, debt_token,
			created_block, created_timestamp, created_tx,
			principal, interest, collateral, expiry_timestamp, has_callback
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			request_id = EXCLUDED.request_id,
			cooler = EXCLUDED.cooler,
			borrower = EXCLUDED.borrower,
			lender = EXCLUDED.lender,
			collateral_token = EXCLUDED.collateral_token,
			debt_token = EXCLUDED.debt_token,
			created_block = EXCLUDED.created_block,
			created_timestamp = EXCLUDED.created_timestamp,
			created_tx = EXCLUDED.created_tx,
			principal = EXCLUDED.principal,
			interest = EXCLUDED.interest,
			collateral = EXCLUDED.collateral,
			expiry_timestamp = EXCLUDED.expiry_timestamp,
			has_callback = EXCLUDED.has_callback
	`

	_, err := s.pool.Exec(ctx, query,
		l.ID,
		l.RequestID,
		l.Cooler,
		l.Borrower,
		l.Lender,
		l.CollateralToken,
		l.DebtToken,
		l.CreatedBlock,
		l.CreatedTimestamp,
		l.CreatedTx,
		l.Principal,
		l.Interest,
		l.Collateral,
		l.ExpiryTimestamp,
		l.HasCallback,
	)
	if err != nil {
		return fmt.Errorf("upsert loan: %w", err)
	}
	return nil
}

// GetByID retrieves a loan by its derived id.
func (s *LoanStore) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	query := `
		SELECT id, request_id, cooler, borrower, lender, collateral_token, debt_token,
		       created_block, created_timestamp, created_tx,
		       principal, interest, collateral, expiry_timestamp, has_callback
		FROM loans
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	l, err := scanLoan(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get loan by id: %w", err)
	}
	return l, nil
}

// GetByCooler retrieves all loans for a cooler, ordered by creation.
func (s *LoanStore) GetByCooler(ctx context.Context, cooler string) ([]*domain.Loan, error) {
	query := `
		SELECT id, request_id, cooler, borrower, lender, collateral_token, debt_token,
		       created_block, created_timestamp, created_tx,
		       principal, interest, collateral, expiry_timestamp, has_callback
		FROM loans
		WHERE cooler = $1
		ORDER BY created_block ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, cooler)
	if err != nil {
		return nil, fmt.Errorf("get loans by cooler: %w", err)
	}
	defer rows.Close()

	var loans []*domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan row: %w", err)
		}
		loans = append(loans, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loan rows: %w", err)
	}

	return loans, nil
}

// scanLoan scans one row into a Loan.
func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var l domain.Loan

	err := row.Scan(
		&l.ID,
		&l.RequestID,
		&l.Cooler,
		&l.Borrower,
		&l.Lender,
		&l.CollateralToken,
		&l.DebtToken,
		&l.CreatedBlock,
		&l.CreatedTimestamp,
		&l.CreatedTx,
		&l.Principal,
		&l.Interest,
		&l.Collateral,
		&l.ExpiryTimestamp,
		&l.HasCallback,
	)
	if err != nil {
		return nil, err
	}

	return &l, nil
}
