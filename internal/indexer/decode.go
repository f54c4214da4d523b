package indexer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"cooler-indexer/internal/domain"
)

// Factory event signatures. All arguments are emitted unindexed, so the
// whole payload lives in the log data.
const factoryABIJSON = `[
	{"type":"event","name":"RequestLoan","inputs":[
		{"name":"cooler","type":"address","indexed":false},
		{"name":"collateral","type":"address","indexed":false},
		{"name":"debt","type":"address","indexed":false},
		{"name":"reqID","type":"uint256","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"RescindRequest","inputs":[
		{"name":"cooler","type":"address","indexed":false},
		{"name":"reqID","type":"uint256","indexed":false}]},
	{"type":"event","name":"ClearRequest","inputs":[
		{"name":"cooler","type":"address","indexed":false},
		{"name":"reqID","type":"uint256","indexed":false},
		{"name":"loanID","type":"uint256","indexed":false}]},
	{"type":"event","name":"RepayLoan","inputs":[
		{"name":"cooler","type":"address","indexed":false},
		{"name":"loanID","type":"uint256","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"ExtendLoan","inputs":[
		{"name":"cooler","type":"address","indexed":false},
		{"name":"loanID","type":"uint256","indexed":false},
		{"name":"times","type":"uint8","indexed":false}]},
	{"type":"event","name":"DefaultLoan","inputs":[
		{"name":"cooler","type":"address","indexed":false},
		{"name":"loanID","type":"uint256","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

var factoryABI = mustParseFactoryABI()

func mustParseFactoryABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		panic(fmt.Sprintf("parse factory abi: %v", err))
	}
	return parsed
}

// ErrUnknownEvent is returned by DecodeLog for logs whose first topic does
// not match any factory event. Such logs are skipped upstream.
var ErrUnknownEvent = fmt.Errorf("unknown event signature")

// DecodeLog matches a raw log against the factory event set and returns the
// corresponding decoded event struct. blockTimestamp is the Unix timestamp
// of the log's block, fetched separately because logs do not carry it.
func DecodeLog(lg types.Log, blockTimestamp int64) (interface{}, error) {
	if len(lg.Topics) == 0 {
		return nil, ErrUnknownEvent
	}

	bc := domain.BlockContext{
		Number:    lg.BlockNumber,
		Timestamp: blockTimestamp,
		TxHash:    lg.TxHash,
		LogIndex:  lg.Index,
	}

	switch lg.Topics[0] {
	case factoryABI.Events["RequestLoan"].ID:
		vals, err := factoryABI.Unpack("RequestLoan", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack RequestLoan: %w", err)
		}
		return &domain.RequestLoanEvent{
			BlockContext: bc,
			Cooler:       vals[0].(common.Address),
			RequestID:    vals[3].(*big.Int),
			Amount:       vals[4].(*big.Int),
		}, nil

	case factoryABI.Events["RescindRequest"].ID:
		vals, err := factoryABI.Unpack("RescindRequest", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack RescindRequest: %w", err)
		}
		return &domain.RescindRequestEvent{
			BlockContext: bc,
			Cooler:       vals[0].(common.Address),
			RequestID:    vals[1].(*big.Int),
		}, nil

	case factoryABI.Events["ClearRequest"].ID:
		vals, err := factoryABI.Unpack("ClearRequest", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack ClearRequest: %w", err)
		}
		return &domain.ClearRequestEvent{
			BlockContext: bc,
			Cooler:       vals[0].(common.Address),
			RequestID:    vals[1].(*big.Int),
			LoanID:       vals[2].(*big.Int),
		}, nil

	case factoryABI.Events["RepayLoan"].ID:
		vals, err := factoryABI.Unpack("RepayLoan", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack RepayLoan: %w", err)
		}
		return &domain.RepayLoanEvent{
			BlockContext: bc,
			Cooler:       vals[0].(common.Address),
			LoanID:       vals[1].(*big.Int),
			Amount:       vals[2].(*big.Int),
		}, nil

	case factoryABI.Events["ExtendLoan"].ID:
		vals, err := factoryABI.Unpack("ExtendLoan", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack ExtendLoan: %w", err)
		}
		return &domain.ExtendLoanEvent{
			BlockContext: bc,
			Cooler:       vals[0].(common.Address),
			LoanID:       vals[1].(*big.Int),
			Times:        vals[2].(uint8),
		}, nil

	case factoryABI.Events["DefaultLoan"].ID:
		vals, err := factoryABI.Unpack("DefaultLoan", lg.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack DefaultLoan: %w", err)
		}
		return &domain.DefaultLoanEvent{
			BlockContext: bc,
			Cooler:       vals[0].(common.Address),
			LoanID:       vals[1].(*big.Int),
			Amount:       vals[2].(*big.Int),
		}, nil
	}

	return nil, ErrUnknownEvent
}
