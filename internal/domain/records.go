package domain

import "github.com/shopspring/decimal"

// RecordMeta is the ambient context shared by every lifecycle record.
// Records are append-only: once written they are never updated.
type RecordMeta struct {
	ID        string // derivation depends on the record kind, see recordid
	Tx        string // triggering transaction hash
	Block     uint64 // block number
	Timestamp int64  // block Unix timestamp, seconds
	Date      string // UTC calendar date, YYYY-MM-DD
}

// Record kind tags stored alongside each row in the lifecycle_events table.
const (
	RecordKindRequestLoan    = "request_loan"
	RecordKindClearRequest   = "clear_request"
	RecordKindRescindRequest = "rescind_request"
	RecordKindRepayLoan      = "repay_loan"
	RecordKindExtendLoan     = "extend_loan"
	RecordKindDefaultClaim   = "default_claim"
)

// RequestLoanRecord marks a borrower opening a new request. The request
// row itself carries the terms; this is the creation event alone.
// At most one per request; id equals the request id.
type RequestLoanRecord struct {
	RecordMeta
	RequestID string
}

// ClearRequestRecord marks a request being cleared into a loan.
// At most one per loan; id equals the loan id.
type ClearRequestRecord struct {
	RecordMeta
	RequestID string
	LoanID    string
}

// RescindRequestRecord marks a borrower cancelling an open request.
// At most one per request; id equals the request id.
type RescindRequestRecord struct {
	RecordMeta
	RequestID string
}

// RepayLoanRecord snapshots a loan after a repayment. A loan can be repaid
// many times, so the id carries the block number.
type RepayLoanRecord struct {
	RecordMeta
	LoanID              string
	AmountPaid          decimal.Decimal // debt-token units
	PrincipalPayable    decimal.Decimal // remaining principal after this payment
	InterestPayable     decimal.Decimal // remaining interest after this payment
	CollateralDeposited decimal.Decimal // collateral still locked
	SecondsToExpiry     int64           // expiry - blockTime, negative when late
}

// ExtendLoanRecord snapshots a loan after a maturity extension. The id
// carries the block number since a loan can be extended repeatedly.
type ExtendLoanRecord struct {
	RecordMeta
	LoanID          string
	PeriodsExtended uint8           // number of duration periods applied
	NewExpiry       int64           // expiry after the extension
	InterestDue     decimal.Decimal // interest due after the extension
}

// DefaultClaimRecord marks a lender seizing collateral from an expired
// loan, valued in USD at claim time. At most one per loan.
type DefaultClaimRecord struct {
	RecordMeta
	LoanID             string
	CollateralClaimed  decimal.Decimal // quantity seized, collateral-token units
	CollateralPrice    decimal.Decimal // USD price per collateral unit
	CollateralValue    decimal.Decimal // CollateralClaimed * CollateralPrice
	SecondsSinceExpiry int64           // blockTime - expiry, recorded as-is
}
