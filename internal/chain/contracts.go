package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Cooler request/loan structs are static tuples, so their ABI encoding is
// identical to the flattened field list used here.
const coolerABIJSON = `[
	{"type":"function","name":"getRequest","stateMutability":"view",
	 "inputs":[{"name":"reqID","type":"uint256"}],
	 "outputs":[
		{"name":"amount","type":"uint256"},
		{"name":"interest","type":"uint256"},
		{"name":"loanToCollateral","type":"uint256"},
		{"name":"duration","type":"uint256"}]},
	{"type":"function","name":"getLoan","stateMutability":"view",
	 "inputs":[{"name":"loanID","type":"uint256"}],
	 "outputs":[
		{"name":"principal","type":"uint256"},
		{"name":"interestDue","type":"uint256"},
		{"name":"collateral","type":"uint256"},
		{"name":"expiry","type":"uint256"},
		{"name":"lender","type":"address"},
		{"name":"callback","type":"bool"}]},
	{"type":"function","name":"owner","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"collateral","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"debt","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const tokenABIJSON = `[
	{"type":"function","name":"decimals","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"index","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const feedABIJSON = `[
	{"type":"function","name":"latestAnswer","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"int256"}]},
	{"type":"function","name":"decimals","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var (
	coolerABI = mustParseABI(coolerABIJSON)
	tokenABI  = mustParseABI(tokenABIJSON)
	feedABI   = mustParseABI(feedABIJSON)
)

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// CoolerRequest is the live on-chain state of a loan request, raw fixed point.
type CoolerRequest struct {
	Amount           *big.Int
	Interest         *big.Int
	LoanToCollateral *big.Int
	Duration         *big.Int
}

// CoolerLoan is the live on-chain state of a loan, raw fixed point.
type CoolerLoan struct {
	Principal   *big.Int
	InterestDue *big.Int
	Collateral  *big.Int
	Expiry      *big.Int
	Lender      common.Address
	Callback    bool
}

// CoolerReader reads loan/request structs and token bindings from Cooler
// contract instances.
type CoolerReader struct {
	caller Caller
}

// NewCoolerReader creates a CoolerReader on top of a contract caller.
func NewCoolerReader(caller Caller) *CoolerReader {
	return &CoolerReader{caller: caller}
}

// GetRequest fetches the current request struct at (cooler, reqID).
func (r *CoolerReader) GetRequest(ctx context.Context, cooler common.Address, reqID *big.Int) (CoolerRequest, error) {
	data, err := coolerABI.Pack("getRequest", reqID)
	if err != nil {
		return CoolerRequest{}, fmt.Errorf("pack getRequest: %w", err)
	}

	out, err := r.caller.CallContract(ctx, cooler, data)
	if err != nil {
		return CoolerRequest{}, fmt.Errorf("call getRequest(%s): %w", reqID, err)
	}

	vals, err := coolerABI.Unpack("getRequest", out)
	if err != nil {
		return CoolerRequest{}, fmt.Errorf("unpack getRequest: %w", err)
	}

	return CoolerRequest{
		Amount:           vals[0].(*big.Int),
		Interest:         vals[1].(*big.Int),
		LoanToCollateral: vals[2].(*big.Int),
		Duration:         vals[3].(*big.Int),
	}, nil
}

// GetLoan fetches the current loan struct at (cooler, loanID).
func (r *CoolerReader) GetLoan(ctx context.Context, cooler common.Address, loanID *big.Int) (CoolerLoan, error) {
	data, err := coolerABI.Pack("getLoan", loanID)
	if err != nil {
		return CoolerLoan{}, fmt.Errorf("pack getLoan: %w", err)
	}

	out, err := r.caller.CallContract(ctx, cooler, data)
	if err != nil {
		return CoolerLoan{}, fmt.Errorf("call getLoan(%s): %w", loanID, err)
	}

	vals, err := coolerABI.Unpack("getLoan", out)
	if err != nil {
		return CoolerLoan{}, fmt.Errorf("unpack getLoan: %w", err)
	}

	return CoolerLoan{
		Principal:   vals[0].(*big.Int),
		InterestDue: vals[1].(*big.Int),
		Collateral:  vals[2].(*big.Int),
		Expiry:      vals[3].(*big.Int),
		Lender:      vals[4].(common.Address),
		Callback:    vals[5].(bool),
	}, nil
}

// Owner returns the borrower that owns the cooler.
func (r *CoolerReader) Owner(ctx context.Context, cooler common.Address) (common.Address, error) {
	return r.callAddress(ctx, cooler, "owner")
}

// CollateralToken returns the cooler's collateral ERC-20 address.
func (r *CoolerReader) CollateralToken(ctx context.Context, cooler common.Address) (common.Address, error) {
	return r.callAddress(ctx, cooler, "collateral")
}

// DebtToken returns the cooler's debt ERC-20 address.
func (r *CoolerReader) DebtToken(ctx context.Context, cooler common.Address) (common.Address, error) {
	return r.callAddress(ctx, cooler, "debt")
}

func (r *CoolerReader) callAddress(ctx context.Context, cooler common.Address, method string) (common.Address, error) {
	data, err := coolerABI.Pack(method)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack %s: %w", method, err)
	}

	out, err := r.caller.CallContract(ctx, cooler, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call %s: %w", method, err)
	}

	vals, err := coolerABI.Unpack(method, out)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals[0].(common.Address), nil
}

// TokenReader reads ERC-20 metadata and staked-token conversion indexes.
type TokenReader struct {
	caller Caller
}

// NewTokenReader creates a TokenReader on top of a contract caller.
func NewTokenReader(caller Caller) *TokenReader {
	return &TokenReader{caller: caller}
}

// Decimals returns the fractional-digit count of an ERC-20 token.
func (r *TokenReader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	data, err := tokenABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}

	out, err := r.caller.CallContract(ctx, token, data)
	if err != nil {
		return 0, fmt.Errorf("call decimals(%s): %w", token, err)
	}

	vals, err := tokenABI.Unpack("decimals", out)
	if err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	return vals[0].(uint8), nil
}

// Index returns the raw conversion index of a staked token. The caller
// interprets it as a fixed-point value with 9 fractional digits.
func (r *TokenReader) Index(ctx context.Context, token common.Address) (*big.Int, error) {
	data, err := tokenABI.Pack("index")
	if err != nil {
		return nil, fmt.Errorf("pack index: %w", err)
	}

	out, err := r.caller.CallContract(ctx, token, data)
	if err != nil {
		return nil, fmt.Errorf("call index(%s): %w", token, err)
	}

	vals, err := tokenABI.Unpack("index", out)
	if err != nil {
		return nil, fmt.Errorf("unpack index: %w", err)
	}
	return vals[0].(*big.Int), nil
}

// FeedReader reads Chainlink-style USD price aggregators.
type FeedReader struct {
	caller Caller
}

// NewFeedReader creates a FeedReader on top of a contract caller.
func NewFeedReader(caller Caller) *FeedReader {
	return &FeedReader{caller: caller}
}

// LatestAnswer returns the feed's most recent raw answer plus the feed's
// own fractional-digit count.
func (r *FeedReader) LatestAnswer(ctx context.Context, feed common.Address) (*big.Int, uint8, error) {
	data, err := feedABI.Pack("latestAnswer")
	if err != nil {
		return nil, 0, fmt.Errorf("pack latestAnswer: %w", err)
	}

	out, err := r.caller.CallContract(ctx, feed, data)
	if err != nil {
		return nil, 0, fmt.Errorf("call latestAnswer(%s): %w", feed, err)
	}

	vals, err := feedABI.Unpack("latestAnswer", out)
	if err != nil {
		return nil, 0, fmt.Errorf("unpack latestAnswer: %w", err)
	}
	answer := vals[0].(*big.Int)

	data, err = feedABI.Pack("decimals")
	if err != nil {
		return nil, 0, fmt.Errorf("pack decimals: %w", err)
	}

	out, err = r.caller.CallContract(ctx, feed, data)
	if err != nil {
		return nil, 0, fmt.Errorf("call feed decimals(%s): %w", feed, err)
	}

	vals, err = feedABI.Unpack("decimals", out)
	if err != nil {
		return nil, 0, fmt.Errorf("unpack feed decimals: %w", err)
	}

	return answer, vals[0].(uint8), nil
}
