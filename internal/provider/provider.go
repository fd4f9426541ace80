// Package provider abstracts the EIP-1193 wallet provider surface the
// client drives: request/response RPC plus provider-pushed events. The
// concrete provider is always injected, never read from ambient state,
// so tests and headless hosts can substitute their own.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// EIP-1193 / EIP-1474 error codes the client reacts to.
const (
	CodeUserRejected      = 4001  // User rejected the request
	CodeUnauthorized      = 4100  // Method not authorized by user
	CodeUnsupportedMethod = 4200  // Provider does not support the method
	CodeDisconnected      = 4900  // Provider disconnected from all chains
	CodeUnknownChain      = 4902  // Chain not registered in the wallet
	CodeRequestPending    = -32002 // A request of this type is already pending
)

// RPCError is the standard provider error shape {code, message}.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// CodeOf extracts the provider error code, or 0 for other errors.
func CodeOf(err error) int {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}

// EventKind identifies a provider-pushed event.
type EventKind int

// Provider event kinds.
const (
	EventAccountsChanged EventKind = iota
	EventChainChanged
)

// Event is a provider-pushed notification, modeled as an explicit
// message so the state machine consumes it as an ordinary transition
// input rather than an ad-hoc callback side effect.
type Event struct {
	Kind       EventKind
	Accounts   []string // for EventAccountsChanged; empty means locked/revoked
	ChainIDHex string   // for EventChainChanged
}

// Provider is the minimal wallet provider contract.
type Provider interface {
	// Request performs an EIP-1193 request and returns the raw result.
	// Errors carry *RPCError when the provider reported a coded failure.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// Subscribe registers a channel to receive provider-pushed events.
	// The returned function unregisters it; it must be safe to call more
	// than once.
	Subscribe(ch chan<- Event) (unsubscribe func())
}

// Flags are the self-identification flags an injected provider carries.
type Flags struct {
	MetaMask bool
	Rabby    bool
	OKX      bool
}

// Injected is a browser-injected provider: a Provider plus the
// identification flags and optional nested sub-providers that multi-
// wallet extension environments expose.
type Injected interface {
	Provider

	// Flags returns the provider's wallet-kind flags.
	Flags() Flags

	// SubProviders returns nested providers when several extensions
	// share one injected namespace, or nil.
	SubProviders() []Injected
}

// Currency describes a chain's native currency for wallet_addEthereumChain.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// AddChainParams is the wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           string   `json:"chainId"`
	ChainName         string   `json:"chainName"`
	RPCURLs           []string `json:"rpcUrls"`
	NativeCurrency    Currency `json:"nativeCurrency"`
	BlockExplorerURLs []string `json:"blockExplorerUrls"`
}
