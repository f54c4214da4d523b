package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// stubCaller returns canned ABI-encoded outputs keyed by calldata.
type stubCaller struct {
	responses map[string][]byte
	err       error
}

func (s *stubCaller) CallContract(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	out, ok := s.responses[hex.EncodeToString(data)]
	if !ok {
		return nil, fmt.Errorf("unexpected calldata %x", data)
	}
	return out, nil
}

func packOutputs(t *testing.T, method string, values ...interface{}) []byte {
	t.Helper()
	out, err := coolerABI.Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s outputs: %v", method, err)
	}
	return out
}

func calldata(t *testing.T, method string, args ...interface{}) string {
	t.Helper()
	data, err := coolerABI.Pack(method, args...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	return hex.EncodeToString(data)
}

func TestCoolerReader_GetRequest(t *testing.T) {
	amount, _ := new(big.Int).SetString("2000000000000000000000", 10) // 2000e18
	interest, _ := new(big.Int).SetString("5000000000000000", 10)     // 0.5%

	caller := &stubCaller{responses: map[string][]byte{
		calldata(t, "getRequest", big.NewInt(3)): packOutputs(t, "getRequest",
			amount, interest, big.NewInt(1), big.NewInt(31536000)),
	}}

	reader := NewCoolerReader(caller)
	req, err := reader.GetRequest(context.Background(), common.HexToAddress("0xaa"), big.NewInt(3))
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}

	if req.Amount.Cmp(amount) != 0 {
		t.Errorf("expected amount %s, got %s", amount, req.Amount)
	}
	if req.Interest.Cmp(interest) != 0 {
		t.Errorf("expected interest %s, got %s", interest, req.Interest)
	}
	if req.Duration.Int64() != 31536000 {
		t.Errorf("expected duration 31536000, got %s", req.Duration)
	}
}

func TestCoolerReader_GetLoan(t *testing.T) {
	lender := common.HexToAddress("0x00000000000000000000000000000000000000cc")

	caller := &stubCaller{responses: map[string][]byte{
		calldata(t, "getLoan", big.NewInt(1)): packOutputs(t, "getLoan",
			big.NewInt(1000), big.NewInt(5), big.NewInt(7), big.NewInt(1700000000),
			lender, true),
	}}

	reader := NewCoolerReader(caller)
	loan, err := reader.GetLoan(context.Background(), common.HexToAddress("0xaa"), big.NewInt(1))
	if err != nil {
		t.Fatalf("GetLoan: %v", err)
	}

	if loan.Principal.Int64() != 1000 {
		t.Errorf("expected principal 1000, got %s", loan.Principal)
	}
	if loan.Expiry.Int64() != 1700000000 {
		t.Errorf("expected expiry 1700000000, got %s", loan.Expiry)
	}
	if loan.Lender != lender {
		t.Errorf("expected lender %s, got %s", lender, loan.Lender)
	}
	if !loan.Callback {
		t.Error("expected callback true")
	}
}

func TestCoolerReader_TokenBindings(t *testing.T) {
	collateral := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	debt := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	owner := common.HexToAddress("0x00000000000000000000000000000000000000ee")

	caller := &stubCaller{responses: map[string][]byte{
		calldata(t, "collateral"): packOutputs(t, "collateral", collateral),
		calldata(t, "debt"):       packOutputs(t, "debt", debt),
		calldata(t, "owner"):      packOutputs(t, "owner", owner),
	}}

	reader := NewCoolerReader(caller)
	ctx := context.Background()
	cooler := common.HexToAddress("0xaa")

	got, err := reader.CollateralToken(ctx, cooler)
	if err != nil {
		t.Fatalf("CollateralToken: %v", err)
	}
	if got != collateral {
		t.Errorf("expected %s, got %s", collateral, got)
	}

	got, err = reader.DebtToken(ctx, cooler)
	if err != nil {
		t.Fatalf("DebtToken: %v", err)
	}
	if got != debt {
		t.Errorf("expected %s, got %s", debt, got)
	}

	got, err = reader.Owner(ctx, cooler)
	if err != nil {
		t.Fatalf("Owner: %v", err)
	}
	if got != owner {
		t.Errorf("expected %s, got %s", owner, got)
	}
}

func TestTokenReader_Decimals(t *testing.T) {
	data, err := tokenABI.Pack("decimals")
	if err != nil {
		t.Fatalf("pack decimals: %v", err)
	}
	out, err := tokenABI.Methods["decimals"].Outputs.Pack(uint8(18))
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	caller := &stubCaller{responses: map[string][]byte{
		hex.EncodeToString(data): out,
	}}

	reader := NewTokenReader(caller)
	decimals, err := reader.Decimals(context.Background(), common.HexToAddress("0xd1"))
	if err != nil {
		t.Fatalf("Decimals: %v", err)
	}
	if decimals != 18 {
		t.Errorf("expected 18, got %d", decimals)
	}
}

func TestTokenReader_Index(t *testing.T) {
	data, err := tokenABI.Pack("index")
	if err != nil {
		t.Fatalf("pack index: %v", err)
	}
	out, err := tokenABI.Methods["index"].Outputs.Pack(big.NewInt(1200000000))
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	caller := &stubCaller{responses: map[string][]byte{
		hex.EncodeToString(data): out,
	}}

	reader := NewTokenReader(caller)
	idx, err := reader.Index(context.Background(), common.HexToAddress("0xc1"))
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if idx.Int64() != 1200000000 {
		t.Errorf("expected 1200000000, got %s", idx)
	}
}

func TestFeedReader_LatestAnswer(t *testing.T) {
	answerData, err := feedABI.Pack("latestAnswer")
	if err != nil {
		t.Fatalf("pack latestAnswer: %v", err)
	}
	answerOut, err := feedABI.Methods["latestAnswer"].Outputs.Pack(big.NewInt(1000000000)) // $10 at 8 decimals
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}
	decData, err := feedABI.Pack("decimals")
	if err != nil {
		t.Fatalf("pack decimals: %v", err)
	}
	decOut, err := feedABI.Methods["decimals"].Outputs.Pack(uint8(8))
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	caller := &stubCaller{responses: map[string][]byte{
		hex.EncodeToString(answerData): answerOut,
		hex.EncodeToString(decData):    decOut,
	}}

	reader := NewFeedReader(caller)
	answer, decimals, err := reader.LatestAnswer(context.Background(), common.HexToAddress("0xf1"))
	if err != nil {
		t.Fatalf("LatestAnswer: %v", err)
	}
	if answer.Int64() != 1000000000 {
		t.Errorf("expected raw answer 1000000000, got %s", answer)
	}
	if decimals != 8 {
		t.Errorf("expected 8 feed decimals, got %d", decimals)
	}
}

func TestCoolerReader_UpstreamFailurePropagates(t *testing.T) {
	caller := &stubCaller{err: fmt.Errorf("connection refused")}

	reader := NewCoolerReader(caller)
	_, err := reader.GetLoan(context.Background(), common.HexToAddress("0xaa"), big.NewInt(1))
	if err == nil {
		t.Fatal("expected upstream error to propagate")
	}
}
