package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient is a minimal JSON-RPC-over-websocket client for eth_subscribe
// ("logs", "newHeads"), used instead of go-ethereum's own dialer so the
// watcher owns its read loop and health signal directly. It does not
// reconnect: once the connection dies, Alive reports false and every
// subscription channel is closed.
type WSClient struct {
	conn   *websocket.Conn
	nextID int64

	mu      sync.Mutex
	pending map[int64]chan json.RawMessage
	subs    map[string]chan json.RawMessage // subscription id -> notification channel

	writeMu sync.Mutex
	closed  atomic.Bool
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// DialWS connects to a provider's websocket endpoint and starts the read
// loop.
func DialWS(ctx context.Context, url string) (*WSClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("watcher: dial %s: %w", url, err)
	}
	c := &WSClient{
		conn:    conn,
		pending: make(map[int64]chan json.RawMessage),
		subs:    make(map[string]chan json.RawMessage),
	}
	go c.readLoop()
	return c, nil
}

func (c *WSClient) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.closed.Store(true)
			c.failAllPending()
			return
		}
		var resp rpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		if resp.Method == "eth_subscription" {
			c.mu.Lock()
			ch, ok := c.subs[resp.Params.Subscription]
			c.mu.Unlock()
			if ok {
				select {
				case ch <- resp.Params.Result:
				default:
				}
			}
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			if resp.Error != nil {
				ch <- nil
			} else {
				ch <- resp.Result
			}
		}
	}
}

// failAllPending unblocks every outstanding Call and closes every
// subscription's notification channel, so a dead connection surfaces as a
// closed channel on both sides rather than a silent stall.
func (c *WSClient) failAllPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

// Call issues a JSON-RPC request and blocks for its result.
func (c *WSClient) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("watcher: connection closed")
	}
	id := atomic.AddInt64(&c.nextID, 1)
	ch := make(chan json.RawMessage, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("watcher: write: %w", err)
	}

	select {
	case result, ok := <-ch:
		if !ok || result == nil {
			return nil, fmt.Errorf("watcher: rpc call %s failed", method)
		}
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("watcher: rpc call %s timed out", method)
	}
}

// Subscribe issues eth_subscribe and returns a channel of raw notification
// payloads.
func (c *WSClient) Subscribe(ctx context.Context, subType string, params ...interface{}) (<-chan json.RawMessage, error) {
	args := append([]interface{}{subType}, params...)
	result, err := c.Call(ctx, "eth_subscribe", args...)
	if err != nil {
		return nil, err
	}
	var subID string
	if err := json.Unmarshal(result, &subID); err != nil {
		return nil, fmt.Errorf("watcher: decode subscription id: %w", err)
	}
	ch := make(chan json.RawMessage, 256)
	c.mu.Lock()
	c.subs[subID] = ch
	c.mu.Unlock()
	return ch, nil
}

// Alive reports whether the underlying connection is still open.
func (c *WSClient) Alive() bool { return !c.closed.Load() }

// Close tears down the connection.
func (c *WSClient) Close() error {
	c.closed.Store(true)
	return c.conn.Close()
}
