package clickhouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"cooler-indexer/internal/domain"
	"cooler-indexer/internal/storage"
)

// RecordStore implements storage.RecordStore using ClickHouse. All record
// kinds share the lifecycle_events table, discriminated by kind.
// MergeTree does not enforce uniqueness, so duplicates are rejected with an
// explicit existence check before insert.
type RecordStore struct {
	conn *Conn
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(conn *Conn) *RecordStore {
	return &RecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

const insertQuery = `
	INSERT INTO lifecycle_events (
		kind, id, request_id, loan_id, tx, block, timestamp, date,
		amount_paid, principal_payable, interest_payable, collateral_deposited,
		seconds_to_expiry, periods_extended, new_expiry, interest_due,
		collateral_claimed, collateral_price, collateral_value, seconds_since_expiry
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// row is the full column set of lifecycle_events; unused columns stay zero.
type row struct {
	kind      string
	meta      domain.RecordMeta
	requestID string
	loanID    string

	amountPaid          decimal.Decimal
	principalPayable    decimal.Decimal
	interestPayable     decimal.Decimal
	collateralDeposited decimal.Decimal
	secondsToExpiry     int64
	periodsExtended     uint8
	newExpiry           int64
	interestDue         decimal.Decimal
	collateralClaimed   decimal.Decimal
	collateralPrice     decimal.Decimal
	collateralValue     decimal.Decimal
	secondsSinceExpiry  int64
}

func (s *RecordStore) insert(ctx context.Context, r row) error {
	if r.meta.ID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, r.kind, r.meta.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	err = s.conn.Exec(ctx, insertQuery,
		r.kind, r.meta.ID, r.requestID, r.loanID,
		r.meta.Tx, r.meta.Block, r.meta.Timestamp, r.meta.Date,
		r.amountPaid, r.principalPayable, r.interestPayable, r.collateralDeposited,
		r.secondsToExpiry, r.periodsExtended, r.newExpiry, r.interestDue,
		r.collateralClaimed, r.collateralPrice, r.collateralValue, r.secondsSinceExpiry,
	)
	if err != nil {
		return fmt.Errorf("insert %s record: %w", r.kind, err)
	}
	return nil
}

func (s *RecordStore) exists(ctx context.Context, kind, id string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM lifecycle_events WHERE kind = ? AND id = ?`,
		kind, id,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertRequestLoan adds a creation record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertRequestLoan(ctx context.Context, rec *domain.RequestLoanRecord) error {
	if rec == nil {
		return storage.ErrInvalidInput
	}
	return s.insert(ctx, row{
		kind:      domain.RecordKindRequestLoan,
		meta:      rec.RecordMeta,
		requestID: rec.RequestID,
	})
}

// InsertClearRequest adds a clear record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertClearRequest(ctx context.Context, rec *domain.ClearRequestRecord) error {
	if rec == nil {
		return storage.ErrInvalidInput
	}
	return s.insert(ctx, row{
		kind:      domain.RecordKindClearRequest,
		meta:      rec.RecordMeta,
		requestID: rec.RequestID,
		loanID:    rec.LoanID,
	})
}

// InsertRescindRequest adds a rescind record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertRescindRequest(ctx context.Context, rec *domain.RescindRequestRecord) error {
	if rec == nil {
		return storage.ErrInvalidInput
	}
	return s.insert(ctx, row{
		kind:      domain.RecordKindRescindRequest,
		meta:      rec.RecordMeta,
		requestID: rec.RequestID,
	})
}

// InsertRepayLoan adds a repayment record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertRepayLoan(ctx context.Context, rec *domain.RepayLoanRecord) error {
	if rec == nil {
		return storage.ErrInvalidInput
	}
	return s.insert(ctx, row{
		kind:                domain.RecordKindRepayLoan,
		meta:                rec.RecordMeta,
		loanID:              rec.LoanID,
		amountPaid:          rec.AmountPaid,
		principalPayable:    rec.PrincipalPayable,
		interestPayable:     rec.InterestPayable,
		collateralDeposited: rec.CollateralDeposited,
		secondsToExpiry:     rec.SecondsToExpiry,
	})
}

// InsertExtendLoan adds an extension record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertExtendLoan(ctx context.Context, rec *domain.ExtendLoanRecord) error {
	if rec == nil {
		return storage.ErrInvalidInput
	}
	return s.insert(ctx, row{
		kind:            domain.RecordKindExtendLoan,
		meta:            rec.RecordMeta,
		loanID:          rec.LoanID,
		periodsExtended: rec.PeriodsExtended,
		newExpiry:       rec.NewExpiry,
		interestDue:     rec.InterestDue,
	})
}

// InsertDefaultClaim adds a default-claim record. Returns ErrDuplicateKey if exists.
func (s *RecordStore) InsertDefaultClaim(ctx context.Context, rec *domain.DefaultClaimRecord) error {
	if rec == nil {
		return storage.ErrInvalidInput
	}
	return s.insert(ctx, row{
		kind:               domain.RecordKindDefaultClaim,
		meta:               rec.RecordMeta,
		loanID:             rec.LoanID,
		collateralClaimed:  rec.CollateralClaimed,
		collateralPrice:    rec.CollateralPrice,
		collateralValue:    rec.CollateralValue,
		secondsSinceExpiry: rec.SecondsSinceExpiry,
	})
}

// GetRepaymentsByLoan retrieves all repayment records for a loan, ordered
// by block ASC.
func (s *RecordStore) GetRepaymentsByLoan(ctx context.Context, loanID string) ([]*domain.RepayLoanRecord, error) {
	query := `
		SELECT id, tx, block, timestamp, date,
		       amount_paid, principal_payable, interest_payable,
		       collateral_deposited, seconds_to_expiry
		FROM lifecycle_events
		WHERE kind = ? AND loan_id = ?
		ORDER BY block ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.RecordKindRepayLoan, loanID)
	if err != nil {
		return nil, fmt.Errorf("get repayments by loan: %w", err)
	}
	defer rows.Close()

	var records []*domain.RepayLoanRecord
	for rows.Next() {
		rec := &domain.RepayLoanRecord{LoanID: loanID}
		err := rows.Scan(
			&rec.ID, &rec.Tx, &rec.Block, &rec.Timestamp, &rec.Date,
			&rec.AmountPaid, &rec.PrincipalPayable, &rec.InterestPayable,
			&rec.CollateralDeposited, &rec.SecondsToExpiry,
		)
		if err != nil {
			return nil, fmt.Errorf("scan repayment row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repayment rows: %w", err)
	}
	return records, nil
}

// GetDefaultClaim retrieves the default-claim record for a loan. Returns
// ErrNotFound if the loan never defaulted.
func (s *RecordStore) GetDefaultClaim(ctx context.Context, loanID string) (*domain.DefaultClaimRecord, error) {
	query := `
		SELECT id, tx, block, timestamp, date,
		       collateral_claimed, collateral_price, collateral_value,
		       seconds_since_expiry
		FROM lifecycle_events
		WHERE kind = ? AND loan_id = ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, domain.RecordKindDefaultClaim, loanID)
	if err != nil {
		return nil, fmt.Errorf("get default claim: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate default claim rows: %w", err)
		}
		return nil, storage.ErrNotFound
	}

	rec := &domain.DefaultClaimRecord{LoanID: loanID}
	err = rows.Scan(
		&rec.ID, &rec.Tx, &rec.Block, &rec.Timestamp, &rec.Date,
		&rec.CollateralClaimed, &rec.CollateralPrice, &rec.CollateralValue,
		&rec.SecondsSinceExpiry,
	)
	if err != nil {
		return nil, fmt.Errorf("scan default claim row: %w", err)
	}
	return rec, nil
}

// GetExtensionsByLoan retrieves all extension records for a loan, ordered
// by block ASC.
func (s *RecordStore) GetExtensionsByLoan(ctx context.Context, loanID string) ([]*domain.ExtendLoanRecord, error) {
	query := `
		SELECT id, tx, block, timestamp, date,
		       periods_extended, new_expiry, interest_due
		FROM lifecycle_events
		WHERE kind = ? AND loan_id = ?
		ORDER BY block ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.RecordKindExtendLoan, loanID)
	if err != nil {
		return nil, fmt.Errorf("get extensions by loan: %w", err)
	}
	defer rows.Close()

	var records []*domain.ExtendLoanRecord
	for rows.Next() {
		rec := &domain.ExtendLoanRecord{LoanID: loanID}
		err := rows.Scan(
			&rec.ID, &rec.Tx, &rec.Block, &rec.Timestamp, &rec.Date,
			&rec.PeriodsExtended, &rec.NewExpiry, &rec.InterestDue,
		)
		if err != nil {
			return nil, fmt.Errorf("scan extension row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extension rows: %w", err)
	}
	return records, nil
}
