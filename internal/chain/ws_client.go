package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"

	"cooler-indexer/internal/observability"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Metrics counts reconnections when set.
	Metrics *observability.Metrics
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSClient streams logs over an Ethereum WebSocket endpoint using
// eth_subscribe. It reconnects and resubscribes on connection loss.
type WSClient struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription id to delivery channel
	subs   map[string]chan types.Log
	subsMu sync.RWMutex

	// activeFilters stores filters for resubscription after reconnect
	activeFilters   map[string][]common.Address
	activeFiltersMu sync.RWMutex

	// pendingSubs maps request id to channel waiting for subscription id
	pendingSubs   map[uint64]chan string
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// wsRequest is a JSON-RPC 2.0 request over the socket.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsMessage is any inbound frame: subscription confirmations carry ID and
// Result; notifications carry Method and Params.
type wsMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  *wsSubParams    `json:"params,omitempty"`
}

type wsSubParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint:      endpoint,
		config:        cfg,
		subs:          make(map[string]chan types.Log),
		activeFilters: make(map[string][]common.Address),
		pendingSubs:   make(map[uint64]chan string),
		done:          make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *WSClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// SubscribeLogs subscribes to logs emitted by any of the given addresses.
func (c *WSClient) SubscribeLogs(ctx context.Context, addresses []common.Address) (<-chan types.Log, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	subID, err := c.subscribe(ctx, addresses)
	if err != nil {
		return nil, err
	}

	// Large buffer absorbs bursts; the runner drains strictly sequentially.
	ch := make(chan types.Log, 10000)
	c.subsMu.Lock()
	c.subs[subID] = ch
	c.subsMu.Unlock()

	c.activeFiltersMu.Lock()
	c.activeFilters[subID] = addresses
	c.activeFiltersMu.Unlock()

	return ch, nil
}

// subscribe sends eth_subscribe and waits for the subscription id.
func (c *WSClient) subscribe(ctx context.Context, addresses []common.Address) (string, error) {
	reqID := c.requestID.Add(1)

	filter := map[string]interface{}{}
	if len(addresses) > 0 {
		filter["address"] = addresses
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "eth_subscribe",
		Params:  []interface{}{"logs", filter},
	}

	confirmCh := make(chan string, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	removePending := func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		removePending()
		return "", fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		removePending()
		return "", fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID := <-confirmCh:
		return subID, nil
	case <-time.After(30 * time.Second):
		removePending()
		return "", fmt.Errorf("subscription timeout after 30s")
	case <-c.done:
		return "", fmt.Errorf("client closed")
	case <-ctx.Done():
		removePending()
		return "", ctx.Err()
	}
}

// readLoop reads frames until shutdown, dispatching confirmations and log
// notifications. On read failure it triggers reconnection.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.reconnect()
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // malformed frame, skip
		}

		switch {
		case msg.Method == "eth_subscription" && msg.Params != nil:
			c.dispatchLog(msg.Params)
		case msg.ID != 0:
			c.confirmSubscription(&msg)
		}
	}
}

// confirmSubscription resolves a pending eth_subscribe request.
func (c *WSClient) confirmSubscription(msg *wsMessage) {
	c.pendingSubsMu.Lock()
	ch, ok := c.pendingSubs[msg.ID]
	if ok {
		delete(c.pendingSubs, msg.ID)
	}
	c.pendingSubsMu.Unlock()

	if !ok || msg.Error != nil || msg.Result == nil {
		return
	}

	var subID string
	if err := json.Unmarshal(msg.Result, &subID); err != nil {
		return
	}
	ch <- subID
}

// dispatchLog decodes a log notification and delivers it to the
// subscriber. Delivery blocks until the subscriber drains or Close.
func (c *WSClient) dispatchLog(params *wsSubParams) {
	var logEntry types.Log
	if err := json.Unmarshal(params.Result, &logEntry); err != nil {
		return
	}

	c.subsMu.RLock()
	ch, ok := c.subs[params.Subscription]
	c.subsMu.RUnlock()
	if !ok {
		return
	}

	select {
	case ch <- logEntry:
	case <-c.done:
	}
}

// reconnect re-establishes the connection and resubscribes active filters.
// Old subscription ids are remapped to the existing delivery channels.
func (c *WSClient) reconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	delay := c.config.ReconnectDelay
	for {
		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := c.connect(ctx)
		cancel()
		if err == nil {
			break
		}

		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}

	if c.config.Metrics != nil {
		c.config.Metrics.WSReconnects.Inc()
	}

	// Resubscribe with the filters recorded at subscribe time.
	c.activeFiltersMu.Lock()
	oldFilters := c.activeFilters
	c.activeFilters = make(map[string][]common.Address)
	c.activeFiltersMu.Unlock()

	for oldID, addresses := range oldFilters {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		newID, err := c.subscribe(ctx, addresses)
		cancel()
		if err != nil {
			continue
		}

		c.subsMu.Lock()
		if ch, ok := c.subs[oldID]; ok {
			delete(c.subs, oldID)
			c.subs[newID] = ch
		}
		c.subsMu.Unlock()

		c.activeFiltersMu.Lock()
		c.activeFilters[newID] = addresses
		c.activeFiltersMu.Unlock()
	}
}

// pingLoop keeps the connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// Close shuts down the client and all subscriptions.
func (c *WSClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.config.WriteTimeout),
		)
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.wg.Wait()

	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	return nil
}
