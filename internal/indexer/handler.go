// Package indexer reconstructs loan lifecycle state from Cooler factory
// events. Each handler processes exactly one event: it derives the
// canonical record id, re-reads live contract state, normalizes raw
// amounts, and persists the resulting entities. Handlers hold no state
// between invocations - all continuity lives in the stores.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"cooler-indexer/internal/chain"
	"cooler-indexer/internal/domain"
	"cooler-indexer/internal/fixedpoint"
	"cooler-indexer/internal/observability"
	"cooler-indexer/internal/recordid"
	"cooler-indexer/internal/storage"
)

// CoolerReader reads live request/loan structs and token bindings from a
// cooler contract.
type CoolerReader interface {
	GetRequest(ctx context.Context, cooler common.Address, reqID *big.Int) (chain.CoolerRequest, error)
	GetLoan(ctx context.Context, cooler common.Address, loanID *big.Int) (chain.CoolerLoan, error)
	Owner(ctx context.Context, cooler common.Address) (common.Address, error)
	CollateralToken(ctx context.Context, cooler common.Address) (common.Address, error)
	DebtToken(ctx context.Context, cooler common.Address) (common.Address, error)
}

// TokenReader reads ERC-20 metadata.
type TokenReader interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// PriceSource resolves token addresses to USD prices.
type PriceSource interface {
	FetchPriceUSD(ctx context.Context, token common.Address) (decimal.Decimal, error)
}

// Handler processes decoded Cooler factory events into persisted entities.
type Handler struct {
	coolers  CoolerReader
	tokens   TokenReader
	prices   PriceSource
	requests storage.RequestStore
	loans    storage.LoanStore
	records  storage.RecordStore
	logger   *log.Logger
	metrics  *observability.Metrics
}

// HandlerOptions contains the injected capabilities for a Handler.
type HandlerOptions struct {
	Coolers  CoolerReader
	Tokens   TokenReader
	Prices   PriceSource
	Requests storage.RequestStore
	Loans    storage.LoanStore
	Records  storage.RecordStore
	Logger   *log.Logger
	Metrics  *observability.Metrics
}

// NewHandler creates a Handler with the provided readers and stores.
func NewHandler(opts HandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		coolers:  opts.Coolers,
		tokens:   opts.Tokens,
		prices:   opts.Prices,
		requests: opts.Requests,
		loans:    opts.Loans,
		records:  opts.Records,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Dispatch routes a decoded event to its handler.
func (h *Handler) Dispatch(ctx context.Context, ev interface{}) error {
	switch e := ev.(type) {
	case *domain.RequestLoanEvent:
		return h.observe("request_loan", h.HandleRequestCreated(ctx, e))
	case *domain.RescindRequestEvent:
		return h.observe("rescind_request", h.HandleRequestRescinded(ctx, e))
	case *domain.ClearRequestEvent:
		return h.observe("clear_request", h.HandleRequestCleared(ctx, e))
	case *domain.RepayLoanEvent:
		return h.observe("repay_loan", h.HandleLoanRepaid(ctx, e))
	case *domain.ExtendLoanEvent:
		return h.observe("extend_loan", h.HandleLoanExtended(ctx, e))
	case *domain.DefaultLoanEvent:
		return h.observe("default_loan", h.HandleLoanDefaulted(ctx, e))
	default:
		return fmt.Errorf("unhandled event type %T", ev)
	}
}

func (h *Handler) observe(kind string, err error) error {
	if h.metrics != nil {
		h.metrics.ObserveEvent(kind, err)
	}
	return err
}

// HandleRequestCreated persists a new LoanRequest from the live request
// struct. The request row itself is the creation record.
func (h *Handler) HandleRequestCreated(ctx context.Context, ev *domain.RequestLoanEvent) error {
	id := recordid.Request(ev.Cooler, ev.RequestID)

	live, err := h.coolers.GetRequest(ctx, ev.Cooler, ev.RequestID)
	if err != nil {
		return fmt.Errorf("read request %s: %w", id, err)
	}

	debtToken, err := h.coolers.DebtToken(ctx, ev.Cooler)
	if err != nil {
		return fmt.Errorf("read debt token of %s: %w", id, err)
	}

	debtDecimals, err := h.tokens.Decimals(ctx, debtToken)
	if err != nil {
		return fmt.Errorf("read debt token decimals for %s: %w", id, err)
	}

	borrower, err := h.coolers.Owner(ctx, ev.Cooler)
	if err != nil {
		return fmt.Errorf("read owner of cooler %s: %w", ev.Cooler, err)
	}

	request := &domain.LoanRequest{
		ID:               id,
		Cooler:           hexLower(ev.Cooler),
		Borrower:         hexLower(borrower),
		CreatedBlock:     ev.Number,
		CreatedTimestamp: ev.Timestamp,
		CreatedTx:        ev.TxHash.Hex(),
		Amount:           fixedpoint.ToDecimal(live.Amount, int32(debtDecimals)),
		InterestPct:      fixedpoint.Percentage(live.Interest, int32(debtDecimals)),
		LoanToCollateral: fixedpoint.ToDecimal(live.LoanToCollateral, int32(debtDecimals)),
		DurationSeconds:  live.Duration.Int64(),
		IsRescinded:      false,
	}

	if err := h.requests.Upsert(ctx, request); err != nil {
		return fmt.Errorf("persist request %s: %w", id, err)
	}

	rec := &domain.RequestLoanRecord{
		RecordMeta: h.meta(id, ev.BlockContext),
		RequestID:  id,
	}
	if err := h.records.InsertRequestLoan(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("persist creation record %s: %w", id, err)
	}

	h.logger.Printf("request created: %s amount=%s", id, request.Amount)
	return nil
}

// HandleRequestRescinded marks an existing request rescinded and records
// the rescission. Rescission is terminal: re-processing leaves the flag set.
func (h *Handler) HandleRequestRescinded(ctx context.Context, ev *domain.RescindRequestEvent) error {
	id := recordid.Request(ev.Cooler, ev.RequestID)

	request, err := h.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &ConsistencyError{Kind: "request", ID: id}
		}
		return fmt.Errorf("load request %s: %w", id, err)
	}

	request.IsRescinded = true
	if err := h.requests.Upsert(ctx, request); err != nil {
		return fmt.Errorf("persist rescinded request %s: %w", id, err)
	}

	rec := &domain.RescindRequestRecord{
		RecordMeta: h.meta(id, ev.BlockContext),
		RequestID:  id,
	}
	if err := h.records.InsertRescindRequest(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("persist rescind record %s: %w", id, err)
	}

	h.logger.Printf("request rescinded: %s", id)
	return nil
}

// HandleRequestCleared constructs the Loan from the originating request
// and the live loan struct. A clear without a persisted request is a
// consistency error: clears always follow requests on a well-formed chain.
func (h *Handler) HandleRequestCleared(ctx context.Context, ev *domain.ClearRequestEvent) error {
	requestID := recordid.Request(ev.Cooler, ev.RequestID)
	loanID := recordid.Loan(ev.Cooler, ev.LoanID)

	request, err := h.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &ConsistencyError{Kind: "request", ID: requestID}
		}
		return fmt.Errorf("load request %s: %w", requestID, err)
	}

	live, err := h.coolers.GetLoan(ctx, ev.Cooler, ev.LoanID)
	if err != nil {
		return fmt.Errorf("read loan %s: %w", loanID, err)
	}

	debtToken, err := h.coolers.DebtToken(ctx, ev.Cooler)
	if err != nil {
		return fmt.Errorf("read debt token of %s: %w", loanID, err)
	}
	collateralToken, err := h.coolers.CollateralToken(ctx, ev.Cooler)
	if err != nil {
		return fmt.Errorf("read collateral token of %s: %w", loanID, err)
	}

	debtDecimals, err := h.tokens.Decimals(ctx, debtToken)
	if err != nil {
		return fmt.Errorf("read debt token decimals for %s: %w", loanID, err)
	}
	collateralDecimals, err := h.tokens.Decimals(ctx, collateralToken)
	if err != nil {
		return fmt.Errorf("read collateral token decimals for %s: %w", loanID, err)
	}

	loan := &domain.Loan{
		ID:               loanID,
		RequestID:        request.ID,
		Cooler:           request.Cooler,
		Borrower:         request.Borrower,
		Lender:           hexLower(live.Lender),
		CollateralToken:  hexLower(collateralToken),
		DebtToken:        hexLower(debtToken),
		CreatedBlock:     ev.Number,
		CreatedTimestamp: ev.Timestamp,
		CreatedTx:        ev.TxHash.Hex(),
		Principal:        fixedpoint.ToDecimal(live.Principal, int32(debtDecimals)),
		Interest:         fixedpoint.ToDecimal(live.InterestDue, int32(debtDecimals)),
		Collateral:       fixedpoint.ToDecimal(live.Collateral, int32(collateralDecimals)),
		ExpiryTimestamp:  live.Expiry.Int64(),
		HasCallback:      live.Callback,
	}

	if err := h.loans.Upsert(ctx, loan); err != nil {
		return fmt.Errorf("persist loan %s: %w", loanID, err)
	}

	rec := &domain.ClearRequestRecord{
		RecordMeta: h.meta(loanID, ev.BlockContext),
		RequestID:  request.ID,
		LoanID:     loanID,
	}
	if err := h.records.InsertClearRequest(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("persist clear record %s: %w", loanID, err)
	}

	h.logger.Printf("request cleared: %s -> loan %s principal=%s", requestID, loanID, loan.Principal)
	return nil
}

// HandleLoanRepaid records a post-repayment snapshot from live state. The
// record id carries the block number: a loan can be repaid many times.
func (h *Handler) HandleLoanRepaid(ctx context.Context, ev *domain.RepayLoanEvent) error {
	loanID := recordid.Loan(ev.Cooler, ev.LoanID)

	loan, err := h.loans.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &ConsistencyError{Kind: "loan", ID: loanID}
		}
		return fmt.Errorf("load loan %s: %w", loanID, err)
	}

	live, err := h.coolers.GetLoan(ctx, ev.Cooler, ev.LoanID)
	if err != nil {
		return fmt.Errorf("read loan %s: %w", loanID, err)
	}

	debtDecimals, err := h.tokens.Decimals(ctx, common.HexToAddress(loan.DebtToken))
	if err != nil {
		return fmt.Errorf("read debt token decimals for %s: %w", loanID, err)
	}
	collateralDecimals, err := h.tokens.Decimals(ctx, common.HexToAddress(loan.CollateralToken))
	if err != nil {
		return fmt.Errorf("read collateral token decimals for %s: %w", loanID, err)
	}

	rec := &domain.RepayLoanRecord{
		RecordMeta:          h.meta(recordid.WithBlock(loanID, ev.Number), ev.BlockContext),
		LoanID:              loanID,
		AmountPaid:          fixedpoint.ToDecimal(ev.Amount, int32(debtDecimals)),
		PrincipalPayable:    fixedpoint.ToDecimal(live.Principal, int32(debtDecimals)),
		InterestPayable:     fixedpoint.ToDecimal(live.InterestDue, int32(debtDecimals)),
		CollateralDeposited: fixedpoint.ToDecimal(live.Collateral, int32(collateralDecimals)),
		SecondsToExpiry:     live.Expiry.Int64() - ev.Timestamp,
	}
	if err := h.records.InsertRepayLoan(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("persist repay record %s: %w", rec.ID, err)
	}

	h.logger.Printf("loan repaid: %s paid=%s remaining=%s", loanID, rec.AmountPaid, rec.PrincipalPayable)
	return nil
}

// HandleLoanExtended records a maturity extension from live state.
func (h *Handler) HandleLoanExtended(ctx context.Context, ev *domain.ExtendLoanEvent) error {
	loanID := recordid.Loan(ev.Cooler, ev.LoanID)

	loan, err := h.loans.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &ConsistencyError{Kind: "loan", ID: loanID}
		}
		return fmt.Errorf("load loan %s: %w", loanID, err)
	}

	live, err := h.coolers.GetLoan(ctx, ev.Cooler, ev.LoanID)
	if err != nil {
		return fmt.Errorf("read loan %s: %w", loanID, err)
	}

	debtDecimals, err := h.tokens.Decimals(ctx, common.HexToAddress(loan.DebtToken))
	if err != nil {
		return fmt.Errorf("read debt token decimals for %s: %w", loanID, err)
	}

	rec := &domain.ExtendLoanRecord{
		RecordMeta:      h.meta(recordid.WithBlock(loanID, ev.Number), ev.BlockContext),
		LoanID:          loanID,
		PeriodsExtended: ev.Times,
		NewExpiry:       live.Expiry.Int64(),
		InterestDue:     fixedpoint.ToDecimal(live.InterestDue, int32(debtDecimals)),
	}
	if err := h.records.InsertExtendLoan(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("persist extend record %s: %w", rec.ID, err)
	}

	h.logger.Printf("loan extended: %s times=%d new expiry=%d", loanID, ev.Times, rec.NewExpiry)
	return nil
}

// HandleLoanDefaulted records a default claim with the seized collateral
// valued in USD at claim time. secondsSinceExpiry uses the expiry freshly
// re-read from the contract and is recorded as-is, negative included.
func (h *Handler) HandleLoanDefaulted(ctx context.Context, ev *domain.DefaultLoanEvent) error {
	loanID := recordid.Loan(ev.Cooler, ev.LoanID)

	loan, err := h.loans.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &ConsistencyError{Kind: "loan", ID: loanID}
		}
		return fmt.Errorf("load loan %s: %w", loanID, err)
	}

	live, err := h.coolers.GetLoan(ctx, ev.Cooler, ev.LoanID)
	if err != nil {
		return fmt.Errorf("read loan %s: %w", loanID, err)
	}

	collateralToken := common.HexToAddress(loan.CollateralToken)
	collateralDecimals, err := h.tokens.Decimals(ctx, collateralToken)
	if err != nil {
		return fmt.Errorf("read collateral token decimals for %s: %w", loanID, err)
	}

	price, err := h.prices.FetchPriceUSD(ctx, collateralToken)
	if err != nil {
		return fmt.Errorf("price collateral of %s: %w", loanID, err)
	}

	claimed := fixedpoint.ToDecimal(ev.Amount, int32(collateralDecimals))

	rec := &domain.DefaultClaimRecord{
		RecordMeta:         h.meta(loanID, ev.BlockContext),
		LoanID:             loanID,
		CollateralClaimed:  claimed,
		CollateralPrice:    price,
		CollateralValue:    claimed.Mul(price),
		SecondsSinceExpiry: ev.Timestamp - live.Expiry.Int64(),
	}
	if err := h.records.InsertDefaultClaim(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("persist default record %s: %w", loanID, err)
	}

	h.logger.Printf("loan defaulted: %s claimed=%s value=$%s", loanID, claimed, rec.CollateralValue)
	return nil
}

// meta builds the common record frame from the event's block context.
func (h *Handler) meta(id string, bc domain.BlockContext) domain.RecordMeta {
	return domain.RecordMeta{
		ID:        id,
		Tx:        bc.TxHash.Hex(),
		Block:     bc.Number,
		Timestamp: bc.Timestamp,
		Date:      fixedpoint.Date(bc.Timestamp),
	}
}

func hexLower(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
