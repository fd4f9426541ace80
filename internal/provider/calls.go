package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// Accounts returns the already-authorized accounts via eth_accounts.
// This is the passive query: it never prompts the user.
func Accounts(ctx context.Context, p Provider) ([]string, error) {
	raw, err := p.Request(ctx, "eth_accounts")
	if err != nil {
		return nil, err
	}
	return decodeAccounts(raw)
}

// RequestAccounts asks the provider for account access via
// eth_requestAccounts, which may open a permission prompt.
func RequestAccounts(ctx context.Context, p Provider) ([]string, error) {
	raw, err := p.Request(ctx, "eth_requestAccounts")
	if err != nil {
		return nil, err
	}
	return decodeAccounts(raw)
}

// ChainID returns the provider's current chain id via eth_chainId.
func ChainID(ctx context.Context, p Provider) (int64, error) {
	raw, err := p.Request(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}

	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return 0, warderr.Wrap(err, "decoding eth_chainId result")
	}
	return ParseChainID(hex)
}

// ParseChainID parses a hex chain id string into its integer value.
func ParseChainID(hex string) (int64, error) {
	id, err := hexutil.DecodeUint64(hex)
	if err != nil {
		return 0, warderr.WithDetails(warderr.ErrInvalidInput, map[string]string{
			"chain_id": hex,
		})
	}
	return int64(id), nil //nolint:gosec // G115: chain ids fit in int64
}

// SwitchChain asks the provider to switch to the given chain.
func SwitchChain(ctx context.Context, p Provider, chainIDHex string) error {
	_, err := p.Request(ctx, "wallet_switchEthereumChain", map[string]string{
		"chainId": chainIDHex,
	})
	return err
}

// AddChain asks the provider to register a chain it does not know.
func AddChain(ctx context.Context, p Provider, params AddChainParams) error {
	_, err := p.Request(ctx, "wallet_addEthereumChain", params)
	return err
}

func decodeAccounts(raw json.RawMessage) ([]string, error) {
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, warderr.Wrap(err, "decoding accounts result")
	}
	return accounts, nil
}

// SameAddress compares two addresses case-insensitively. EIP-55
// checksum casing differs between providers, so byte equality is wrong.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ClassifyRequestError maps a provider request failure onto the client
// error taxonomy. Unrecognized provider failures keep their raw message.
func ClassifyRequestError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return warderr.WithCause(warderr.ErrNetworkOrTimeout, err)
	}

	switch CodeOf(err) {
	case CodeUserRejected:
		return warderr.WithCause(warderr.ErrUserRejected, err)
	case CodeRequestPending:
		return warderr.WithCause(warderr.ErrProviderBusy, err)
	case CodeUnknownChain:
		return warderr.WithCause(warderr.ErrUnknownChain, err)
	default:
		return warderr.Wrap(err, "wallet request failed")
	}
}
