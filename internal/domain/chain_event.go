package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BlockContext carries the ambient block/transaction frame of a decoded log.
type BlockContext struct {
	Number    uint64      // block number
	Timestamp int64       // block Unix timestamp, seconds
	TxHash    common.Hash // transaction that emitted the log
	LogIndex  uint        // position of the log within the block
}

// Decoded Cooler factory events. One struct per log signature; payloads are
// kept raw (big.Int) - normalization happens in the handlers once token
// decimals are known.

// RequestLoanEvent is emitted when a borrower opens a new loan request.
type RequestLoanEvent struct {
	BlockContext
	Cooler    common.Address
	RequestID *big.Int
	Amount    *big.Int // raw, debt-token fixed point
}

// RescindRequestEvent is emitted when a borrower cancels an open request.
type RescindRequestEvent struct {
	BlockContext
	Cooler    common.Address
	RequestID *big.Int
}

// ClearRequestEvent is emitted when a lender accepts a request, creating a loan.
type ClearRequestEvent struct {
	BlockContext
	Cooler    common.Address
	RequestID *big.Int
	LoanID    *big.Int
}

// RepayLoanEvent is emitted on every repayment against an active loan.
type RepayLoanEvent struct {
	BlockContext
	Cooler common.Address
	LoanID *big.Int
	Amount *big.Int // raw amount paid, debt-token fixed point
}

// ExtendLoanEvent is emitted when a borrower extends a loan's maturity.
type ExtendLoanEvent struct {
	BlockContext
	Cooler common.Address
	LoanID *big.Int
	Times  uint8 // number of duration periods added
}

// DefaultLoanEvent is emitted when a lender claims collateral from an
// expired loan.
type DefaultLoanEvent struct {
	BlockContext
	Cooler common.Address
	LoanID *big.Int
	Amount *big.Int // raw collateral quantity claimed, collateral-token fixed point
}
