package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"cooler-indexer/internal/observability"
)

func TestHTTPClient_CallContract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "eth_call" {
			t.Errorf("expected method eth_call, got %s", req.Method)
		}
		if len(req.Params) != 2 || req.Params[1] != "latest" {
			t.Errorf("expected [callArgs, \"latest\"] params, got %v", req.Params)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0x000000000000000000000000000000000000000000000000000000000000002a",
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	out, err := client.CallContract(ctx, common.HexToAddress("0x1"), []byte{0xde, 0xad})
	if err != nil {
		t.Fatalf("CallContract: %v", err)
	}
	if len(out) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(out))
	}
	if out[31] != 0x2a {
		t.Errorf("expected last byte 0x2a, got 0x%02x", out[31])
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    3,
				"message": "execution reverted",
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))

	_, err := client.CallContract(context.Background(), common.HexToAddress("0x1"), nil)
	if err == nil {
		t.Fatal("expected error for execution revert")
	}
	if calls.Load() != 1 {
		t.Errorf("RPC errors must not be retried, server saw %d calls", calls.Load())
	}
}

func TestHTTPClient_RetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0x10",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(5),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
	)

	n, err := client.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("BlockNumber: %v", err)
	}
	if n != 16 {
		t.Errorf("expected block 16, got %d", n)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestHTTPClient_HeaderByNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "eth_getBlockByNumber" {
			t.Errorf("expected eth_getBlockByNumber, got %s", req.Method)
		}
		if req.Params[0] != "0x112a880" {
			t.Errorf("expected hex block number param, got %v", req.Params[0])
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"number":    "0x112a880",
				"timestamp": "0x6553f100",
				"hash":      "0x2a0a4e08a2564b08a43f4d1a7fd0cd9a2f8d8f9f0b0c0d0e0f101112131415aa",
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	header, err := client.HeaderByNumber(context.Background(), 18000000)
	if err != nil {
		t.Fatalf("HeaderByNumber: %v", err)
	}
	if uint64(header.Number) != 18000000 {
		t.Errorf("expected number 18000000, got %d", header.Number)
	}
	if uint64(header.Timestamp) != 0x6553f100 {
		t.Errorf("unexpected timestamp %d", header.Timestamp)
	}
}

func TestHTTPClient_GetLogs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "eth_getLogs" {
			t.Errorf("expected eth_getLogs, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{
					"address":          "0x491dd51a26b9a10b2f9e6c28f6c00dea24fd4a5d",
					"topics":           []string{"0x0000000000000000000000000000000000000000000000000000000000000001"},
					"data":             "0x",
					"blockNumber":      "0x10",
					"transactionHash":  "0x2a0a4e08a2564b08a43f4d1a7fd0cd9a2f8d8f9f0b0c0d0e0f101112131415aa",
					"transactionIndex": "0x0",
					"blockHash":        "0x2a0a4e08a2564b08a43f4d1a7fd0cd9a2f8d8f9f0b0c0d0e0f101112131415bb",
					"logIndex":         "0x2",
					"removed":          false,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	logs, err := client.GetLogs(context.Background(), LogFilter{FromBlock: 16, ToBlock: 16})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].BlockNumber != 16 {
		t.Errorf("expected block 16, got %d", logs[0].BlockNumber)
	}
	if logs[0].Index != 2 {
		t.Errorf("expected log index 2, got %d", logs[0].Index)
	}
}

func TestHTTPClient_RecordsCallLatency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0x10",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	metrics := observability.NewMetrics("rpc_latency_test")
	client := NewHTTPClient(server.URL, WithMetrics(metrics))

	if _, err := client.BlockNumber(context.Background()); err != nil {
		t.Fatalf("BlockNumber: %v", err)
	}

	if got := testutil.CollectAndCount(metrics.RPCCallLatency); got != 1 {
		t.Errorf("expected 1 latency series (eth_blockNumber), got %d", got)
	}
}
