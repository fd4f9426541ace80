package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Warder-Sonic/warder-wallet/internal/chain"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// Node is a headless Provider backed by a plain JSON-RPC node. It lets
// the CLI and tests drive the same state machine a browser wallet would:
// reads are forwarded to the node; account methods answer from the
// configured account list without prompting; chain-switch succeeds only
// when the node already serves the requested chain, since a node cannot
// change networks.
type Node struct {
	url        string
	httpClient *http.Client
	accounts   []string
	limiter    *chain.RateLimiter
	idCounter  atomic.Uint64

	mu      sync.Mutex
	subs    map[int]chan<- Event
	nextSub int
}

// NodeOptions configures a Node provider.
type NodeOptions struct {
	// Accounts reported by eth_accounts / eth_requestAccounts.
	Accounts []string
	// Timeout bounds each HTTP round trip. Defaults to 10s.
	Timeout time.Duration
	// RateLimiter throttles calls to the endpoint. Defaults to the
	// shared public-endpoint limits.
	RateLimiter *chain.RateLimiter
}

// NewNode creates a node-backed provider.
func NewNode(rpcURL string, opts NodeOptions) (*Node, error) {
	if rpcURL == "" {
		return nil, warderr.WithDetails(warderr.ErrInvalidInput, map[string]string{
			"field": "rpc_url",
		})
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	limiter := opts.RateLimiter
	if limiter == nil {
		limiter = chain.DefaultRateLimiter()
	}

	return &Node{
		url:        rpcURL,
		httpClient: &http.Client{Timeout: timeout},
		accounts:   opts.Accounts,
		limiter:    limiter,
		subs:       make(map[int]chan<- Event),
	}, nil
}

// Request implements Provider.
func (n *Node) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case "eth_accounts", "eth_requestAccounts":
		return json.Marshal(n.accounts)

	case "wallet_switchEthereumChain":
		return n.switchChain(ctx, params)

	case "wallet_addEthereumChain":
		// A node serves exactly one network; nothing can be added.
		return nil, &RPCError{
			Code:    CodeUnsupportedMethod,
			Message: "a JSON-RPC node cannot register additional chains",
		}

	default:
		return n.forward(ctx, method, params)
	}
}

// Subscribe implements Provider. A plain node pushes no events, so the
// subscription only exists to satisfy the contract.
func (n *Node) Subscribe(ch chan<- Event) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextSub
	n.nextSub++
	n.subs[id] = ch

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
		})
	}
}

// Flags implements Injected. A node identifies as no particular wallet
// and is discovered under the generic injected name.
func (n *Node) Flags() Flags {
	return Flags{}
}

// SubProviders implements Injected.
func (n *Node) SubProviders() []Injected {
	return nil
}

// switchChain succeeds iff the node already serves the requested chain.
func (n *Node) switchChain(ctx context.Context, params []any) (json.RawMessage, error) {
	requested, err := switchChainTarget(params)
	if err != nil {
		return nil, err
	}

	raw, err := n.forward(ctx, "eth_chainId", nil)
	if err != nil {
		return nil, err
	}
	var currentHex string
	if err := json.Unmarshal(raw, &currentHex); err != nil {
		return nil, warderr.Wrap(err, "decoding node chain id")
	}

	current, err := ParseChainID(currentHex)
	if err != nil {
		return nil, err
	}
	want, err := ParseChainID(requested)
	if err != nil {
		return nil, err
	}

	if current != want {
		return nil, &RPCError{
			Code:    CodeUnknownChain,
			Message: fmt.Sprintf("node serves chain %d, cannot switch to %d", current, want),
		}
	}
	return json.RawMessage("null"), nil
}

func switchChainTarget(params []any) (string, error) {
	if len(params) == 0 {
		return "", warderr.WithDetails(warderr.ErrInvalidInput, map[string]string{
			"reason": "missing switch-chain params",
		})
	}

	// Accept both the typed map and a decoded generic map.
	switch v := params[0].(type) {
	case map[string]string:
		return v["chainId"], nil
	case map[string]any:
		if s, ok := v["chainId"].(string); ok {
			return s, nil
		}
	}
	return "", warderr.WithDetails(warderr.ErrInvalidInput, map[string]string{
		"reason": "switch-chain params missing chainId",
	})
}

// jsonrpcRequest is a JSON-RPC 2.0 request envelope.
type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response envelope.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// forward sends the call to the node, rate limited and with retry on
// transport-level failures.
func (n *Node) forward(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if err := n.limiter.Wait(ctx, n.url); err != nil {
		return nil, err
	}

	if params == nil {
		params = []any{}
	}

	return chain.Retry(ctx, func() (json.RawMessage, error) {
		return n.roundTrip(ctx, method, params)
	})
}

func (n *Node) roundTrip(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	payload, err := json.Marshal(jsonrpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      n.idCounter.Add(1),
	})
	if err != nil {
		return nil, warderr.Wrap(err, "marshaling RPC request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return nil, warderr.Wrap(err, "building RPC request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, chain.WrapRetryable(warderr.WithCause(warderr.ErrNetworkOrTimeout, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, warderr.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, warderr.WithDetails(warderr.ErrNetworkOrTimeout, map[string]string{
			"status": resp.Status,
			"body":   string(body),
		})
	}

	var decoded jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, warderr.Wrap(err, "decoding RPC response")
	}
	if decoded.Error != nil {
		return nil, decoded.Error
	}
	return decoded.Result, nil
}
