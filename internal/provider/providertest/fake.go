// Package providertest provides scriptable in-memory fakes of the
// wallet provider and host environment for tests, in the spirit of
// net/http/httptest: real contract, synthetic behavior.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Warder-Sonic/warder-wallet/internal/provider"
)

// Call records one Request invocation.
type Call struct {
	Method string
	Params []any
}

// Handler produces a scripted result for one RPC method.
type Handler func(params []any) (any, error)

// Fake is a scriptable provider.Injected implementation.
type Fake struct {
	mu          sync.Mutex
	flags       provider.Flags
	sub         []provider.Injected
	accounts    []string
	chainIDHex  string
	knownChains map[string]bool
	handlers    map[string]Handler
	failures    map[string]error
	hanging     map[string]bool
	calls       []Call

	subs    map[int]chan<- provider.Event
	nextSub int
}

// NewFake creates a fake provider on the given chain with the given
// authorized accounts.
func NewFake(chainIDHex string, accounts ...string) *Fake {
	return &Fake{
		chainIDHex:  chainIDHex,
		accounts:    accounts,
		knownChains: map[string]bool{chainIDHex: true},
		handlers:    make(map[string]Handler),
		failures:    make(map[string]error),
		hanging:     make(map[string]bool),
		subs:        make(map[int]chan<- provider.Event),
	}
}

// WithFlags sets the wallet-kind flags and returns the fake.
func (f *Fake) WithFlags(flags provider.Flags) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags = flags
	return f
}

// WithSubProviders nests sub-providers under this one.
func (f *Fake) WithSubProviders(subs ...provider.Injected) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sub = subs
	return f
}

// Handle scripts a custom handler for a method.
func (f *Fake) Handle(method string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
	return f
}

// FailWith makes a method return the given error.
func (f *Fake) FailWith(method string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
	return f
}

// HangOn makes a method block until the request context is done,
// simulating a provider that never resolves a dismissed prompt.
func (f *Fake) HangOn(method string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hanging[method] = true
	return f
}

// SetAccounts replaces the authorized account list without emitting an
// event (use EmitAccountsChanged for the pushed variant).
func (f *Fake) SetAccounts(accounts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = accounts
}

// SetChain moves the fake onto another chain without emitting an event.
func (f *Fake) SetChain(chainIDHex string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainIDHex = chainIDHex
	f.knownChains[chainIDHex] = true
}

// Calls returns a copy of all recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times a method was requested.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Request implements provider.Provider.
func (f *Fake) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Params: params})
	hang := f.hanging[method]
	failure := f.failures[method]
	handler := f.handlers[method]
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if failure != nil {
		return nil, failure
	}
	if handler != nil {
		result, err := handler(params)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}

	return f.defaultResponse(method, params)
}

func (f *Fake) defaultResponse(method string, params []any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch method {
	case "eth_accounts", "eth_requestAccounts":
		return json.Marshal(f.accounts)

	case "eth_chainId":
		return json.Marshal(f.chainIDHex)

	case "wallet_switchEthereumChain":
		target, err := chainIDParam(params)
		if err != nil {
			return nil, err
		}
		if !f.knownChains[target] {
			return nil, &provider.RPCError{Code: provider.CodeUnknownChain, Message: "unrecognized chain"}
		}
		f.chainIDHex = target
		go f.emit(provider.Event{Kind: provider.EventChainChanged, ChainIDHex: target})
		return json.RawMessage("null"), nil

	case "wallet_addEthereumChain":
		target, err := addChainIDParam(params)
		if err != nil {
			return nil, err
		}
		f.knownChains[target] = true
		return json.RawMessage("null"), nil

	default:
		return nil, &provider.RPCError{
			Code:    provider.CodeUnsupportedMethod,
			Message: fmt.Sprintf("unscripted method %s", method),
		}
	}
}

// Subscribe implements provider.Provider.
func (f *Fake) Subscribe(ch chan<- provider.Event) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSub
	f.nextSub++
	f.subs[id] = ch

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
		})
	}
}

// SubscriberCount reports how many event channels are registered.
func (f *Fake) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Flags implements provider.Injected.
func (f *Fake) Flags() provider.Flags {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags
}

// SubProviders implements provider.Injected.
func (f *Fake) SubProviders() []provider.Injected {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sub
}

// EmitAccountsChanged pushes an accountsChanged event and updates the
// authorized list.
func (f *Fake) EmitAccountsChanged(accounts ...string) {
	f.mu.Lock()
	f.accounts = accounts
	f.mu.Unlock()
	f.broadcast(provider.Event{Kind: provider.EventAccountsChanged, Accounts: accounts})
}

// EmitChainChanged pushes a chainChanged event and moves the fake onto
// the chain.
func (f *Fake) EmitChainChanged(chainIDHex string) {
	f.mu.Lock()
	f.chainIDHex = chainIDHex
	f.knownChains[chainIDHex] = true
	f.mu.Unlock()
	f.broadcast(provider.Event{Kind: provider.EventChainChanged, ChainIDHex: chainIDHex})
}

func (f *Fake) broadcast(ev provider.Event) {
	f.mu.Lock()
	channels := make([]chan<- provider.Event, 0, len(f.subs))
	for _, ch := range f.subs {
		channels = append(channels, ch)
	}
	f.mu.Unlock()

	for _, ch := range channels {
		ch <- ev
	}
}

// emit delivers asynchronously from paths that hold f.mu.
func (f *Fake) emit(ev provider.Event) {
	f.broadcast(ev)
}

func chainIDParam(params []any) (string, error) {
	if len(params) == 0 {
		return "", &provider.RPCError{Code: provider.CodeUnsupportedMethod, Message: "missing params"}
	}
	switch v := params[0].(type) {
	case map[string]string:
		return v["chainId"], nil
	case map[string]any:
		if s, ok := v["chainId"].(string); ok {
			return s, nil
		}
	}
	return "", &provider.RPCError{Code: provider.CodeUnsupportedMethod, Message: "missing chainId"}
}

func addChainIDParam(params []any) (string, error) {
	if len(params) == 0 {
		return "", &provider.RPCError{Code: provider.CodeUnsupportedMethod, Message: "missing params"}
	}
	if p, ok := params[0].(provider.AddChainParams); ok {
		return p.ChainID, nil
	}
	return chainIDParam(params)
}

// Host is a fake injected-global environment for discovery tests.
type Host struct {
	mu       sync.Mutex
	injected provider.Injected
	named    map[string]provider.Injected
}

// NewHost creates an empty host environment (no wallets installed).
func NewHost() *Host {
	return &Host{named: make(map[string]provider.Injected)}
}

// WithInjected installs a provider on the shared namespace.
func (h *Host) WithInjected(p provider.Injected) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.injected = p
	return h
}

// WithNamed installs a provider on its own namespace.
func (h *Host) WithNamed(namespace string, p provider.Injected) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.named[namespace] = p
	return h
}

// Injected returns the shared-namespace provider, or nil.
func (h *Host) Injected() provider.Injected {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.injected
}

// Named returns the provider on the given namespace, or nil.
func (h *Host) Named(namespace string) provider.Injected {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.named[namespace]
}
