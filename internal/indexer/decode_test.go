package indexer

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"cooler-indexer/internal/domain"
)

// packEvent builds a raw log the way the factory contract emits it.
func packEvent(t *testing.T, name string, args ...interface{}) types.Log {
	t.Helper()

	event := factoryABI.Events[name]
	data, err := event.Inputs.Pack(args...)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}

	return types.Log{
		Address:     common.HexToAddress("0x0000000000000000000000000000000000000fac"),
		Topics:      []common.Hash{event.ID},
		Data:        data,
		BlockNumber: 200,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}
}

func TestDecodeRequestLoan(t *testing.T) {
	lg := packEvent(t, "RequestLoan",
		testCooler, testCollateral, testDebtToken,
		big.NewInt(7), big.NewInt(1_000_000))

	decoded, err := DecodeLog(lg, 1700006400)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}

	ev, ok := decoded.(*domain.RequestLoanEvent)
	if !ok {
		t.Fatalf("decoded to %T, want *domain.RequestLoanEvent", decoded)
	}
	if ev.Cooler != testCooler {
		t.Errorf("Cooler = %s", ev.Cooler)
	}
	if ev.RequestID.Int64() != 7 {
		t.Errorf("RequestID = %s, want 7", ev.RequestID)
	}
	if ev.Amount.Int64() != 1_000_000 {
		t.Errorf("Amount = %s, want 1000000", ev.Amount)
	}
	if ev.Number != 200 || ev.Timestamp != 1700006400 || ev.LogIndex != 3 {
		t.Errorf("block context = %d/%d/%d", ev.Number, ev.Timestamp, ev.LogIndex)
	}
	if ev.TxHash != common.HexToHash("0xabc") {
		t.Errorf("TxHash = %s", ev.TxHash)
	}
}

func TestDecodeRescindRequest(t *testing.T) {
	lg := packEvent(t, "RescindRequest", testCooler, big.NewInt(2))

	decoded, err := DecodeLog(lg, 1700006400)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}

	ev, ok := decoded.(*domain.RescindRequestEvent)
	if !ok {
		t.Fatalf("decoded to %T, want *domain.RescindRequestEvent", decoded)
	}
	if ev.Cooler != testCooler || ev.RequestID.Int64() != 2 {
		t.Errorf("decoded %s/%s", ev.Cooler, ev.RequestID)
	}
}

func TestDecodeClearRequest(t *testing.T) {
	lg := packEvent(t, "ClearRequest", testCooler, big.NewInt(2), big.NewInt(9))

	decoded, err := DecodeLog(lg, 1700006400)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}

	ev, ok := decoded.(*domain.ClearRequestEvent)
	if !ok {
		t.Fatalf("decoded to %T, want *domain.ClearRequestEvent", decoded)
	}
	if ev.RequestID.Int64() != 2 || ev.LoanID.Int64() != 9 {
		t.Errorf("ids = %s/%s, want 2/9", ev.RequestID, ev.LoanID)
	}
}

func TestDecodeRepayLoan(t *testing.T) {
	lg := packEvent(t, "RepayLoan", testCooler, big.NewInt(9), big.NewInt(500))

	decoded, err := DecodeLog(lg, 1700006400)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}

	ev, ok := decoded.(*domain.RepayLoanEvent)
	if !ok {
		t.Fatalf("decoded to %T, want *domain.RepayLoanEvent", decoded)
	}
	if ev.LoanID.Int64() != 9 || ev.Amount.Int64() != 500 {
		t.Errorf("decoded %s/%s, want 9/500", ev.LoanID, ev.Amount)
	}
}

func TestDecodeExtendLoan(t *testing.T) {
	lg := packEvent(t, "ExtendLoan", testCooler, big.NewInt(9), uint8(3))

	decoded, err := DecodeLog(lg, 1700006400)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}

	ev, ok := decoded.(*domain.ExtendLoanEvent)
	if !ok {
		t.Fatalf("decoded to %T, want *domain.ExtendLoanEvent", decoded)
	}
	if ev.LoanID.Int64() != 9 || ev.Times != 3 {
		t.Errorf("decoded %s/%d, want 9/3", ev.LoanID, ev.Times)
	}
}

func TestDecodeDefaultLoan(t *testing.T) {
	lg := packEvent(t, "DefaultLoan", testCooler, big.NewInt(9), big.NewInt(2_000))

	decoded, err := DecodeLog(lg, 1700006400)
	if err != nil {
		t.Fatalf("DecodeLog failed: %v", err)
	}

	ev, ok := decoded.(*domain.DefaultLoanEvent)
	if !ok {
		t.Fatalf("decoded to %T, want *domain.DefaultLoanEvent", decoded)
	}
	if ev.LoanID.Int64() != 9 || ev.Amount.Int64() != 2_000 {
		t.Errorf("decoded %s/%s, want 9/2000", ev.LoanID, ev.Amount)
	}
}

func TestDecodeUnknownSignature(t *testing.T) {
	lg := types.Log{
		Topics: []common.Hash{common.HexToHash("0xdeadbeef")},
	}
	if _, err := DecodeLog(lg, 0); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}

	if _, err := DecodeLog(types.Log{}, 0); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent for topicless log, got %v", err)
	}
}
