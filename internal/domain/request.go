package domain

import "github.com/shopspring/decimal"

// LoanRequest represents a borrower's open offer to take a loan from a
// Cooler contract. One row per (cooler, requestID).
// Corresponds to loan_requests table in PostgreSQL.
type LoanRequest struct {
	ID               string          // lowercase hex cooler + "-" + requestID
	Cooler           string          // cooler contract address, lowercase hex
	Borrower         string          // cooler owner at request time
	CreatedBlock     uint64          // block number of the RequestLoan log
	CreatedTimestamp int64           // Unix timestamp of the block, seconds
	CreatedTx        string          // transaction hash
	Amount           decimal.Decimal // requested amount, debt-token units
	InterestPct      decimal.Decimal // annual interest as a percentage (0.5 = 0.5%)
	LoanToCollateral decimal.Decimal // debt per unit of collateral
	DurationSeconds  int64           // loan duration offered
	IsRescinded      bool            // terminal once true
}

// Loan represents an active, lender-accepted credit position created from a
// LoanRequest. One row per (cooler, loanID), created exactly once on clear.
// Corresponds to loans table in PostgreSQL.
type Loan struct {
	ID               string          // lowercase hex cooler + "-" + loanID
	RequestID        string          // originating LoanRequest id
	Cooler           string          // cooler contract address, lowercase hex
	Borrower         string          // cooler owner
	Lender           string          // address that cleared the request
	CollateralToken  string          // collateral ERC-20 address
	DebtToken        string          // debt ERC-20 address
	CreatedBlock     uint64          // block number of the ClearRequest log
	CreatedTimestamp int64           // Unix timestamp of the block, seconds
	CreatedTx        string          // transaction hash
	Principal        decimal.Decimal // principal at clearing, debt-token units
	Interest         decimal.Decimal // interest due at clearing, debt-token units
	Collateral       decimal.Decimal // collateral locked, collateral-token units
	ExpiryTimestamp  int64           // Unix timestamp the loan matures
	HasCallback      bool            // lender requested a repayment callback
}
