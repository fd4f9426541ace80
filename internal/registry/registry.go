// Package registry holds the static description of the target network
// and the contracts the client talks to. It carries no behavior: both
// the deployed addresses and the choice between reading the contract
// directly or calling the backing REST API are expressed here and in
// config, never in the state machine.
package registry

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Warder-Sonic/warder-wallet/internal/chain"
	"github.com/Warder-Sonic/warder-wallet/internal/config"
	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// Chain describes the target network.
type Chain struct {
	ID          int64
	Name        string
	RPCURL      string
	ExplorerURL string
	Currency    provider.Currency
}

// IDHex returns the chain id as the 0x-prefixed hex string wallet
// methods expect.
func (c Chain) IDHex() string {
	return fmt.Sprintf("0x%x", c.ID)
}

// AddChainParams builds the wallet_addEthereumChain descriptor.
func (c Chain) AddChainParams() provider.AddChainParams {
	return provider.AddChainParams{
		ChainID:           c.IDHex(),
		ChainName:         c.Name,
		RPCURLs:           []string{c.RPCURL},
		NativeCurrency:    c.Currency,
		BlockExplorerURLs: []string{c.ExplorerURL},
	}
}

// Contracts holds the deployed contract addresses.
type Contracts struct {
	CashbackWallet common.Address
	Token          common.Address // zero unless the deployment is allowance-gated
	FeeManager     common.Address // zero unless the feemanager strategy is active
}

// Strategy selects how balances are read and claims are submitted.
type Strategy string

// Data-source strategies.
const (
	// StrategyContract reads balance, eligibility, and fee from the
	// cashback contract and submits the claim transaction directly.
	StrategyContract Strategy = "contract"

	// StrategyFeeManager reads the balance from the cashback contract,
	// compares against a configured minimum client-side, and asks a
	// separate fee-manager contract for the fee split.
	StrategyFeeManager Strategy = "feemanager"

	// StrategyREST delegates balance reads and claim processing to the
	// backing REST API.
	StrategyREST Strategy = "rest"
)

// ParseStrategy parses a strategy string.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyContract, StrategyFeeManager, StrategyREST:
		return Strategy(s), nil
	default:
		return "", warderr.WithDetails(warderr.ErrConfigInvalid, map[string]string{
			"strategy": s,
			"allowed":  "contract, feemanager, or rest",
		})
	}
}

// Registry is the assembled static configuration consumed by the rest
// of the client.
type Registry struct {
	Chain        Chain
	Contracts    Contracts
	Strategy     Strategy
	APIBaseURL   string
	MinimumClaim *big.Int // used by strategies without a contract-reported minimum
	FeeRateBps   int64    // used by strategies without a contract-reported rate
}

// FromConfig builds a Registry from loaded configuration.
func FromConfig(cfg *config.Config) (*Registry, error) {
	strategy, err := ParseStrategy(cfg.Claim.Strategy)
	if err != nil {
		return nil, err
	}

	if !common.IsHexAddress(cfg.Contracts.CashbackWallet) {
		return nil, warderr.WithDetails(warderr.ErrInvalidAddress, map[string]string{
			"field":   "contracts.cashback_wallet",
			"address": cfg.Contracts.CashbackWallet,
		})
	}

	contracts := Contracts{
		CashbackWallet: common.HexToAddress(cfg.Contracts.CashbackWallet),
	}
	if cfg.Contracts.Token != "" {
		if !common.IsHexAddress(cfg.Contracts.Token) {
			return nil, warderr.WithDetails(warderr.ErrInvalidAddress, map[string]string{
				"field":   "contracts.token",
				"address": cfg.Contracts.Token,
			})
		}
		contracts.Token = common.HexToAddress(cfg.Contracts.Token)
	}
	if cfg.Contracts.FeeManager != "" {
		if !common.IsHexAddress(cfg.Contracts.FeeManager) {
			return nil, warderr.WithDetails(warderr.ErrInvalidAddress, map[string]string{
				"field":   "contracts.fee_manager",
				"address": cfg.Contracts.FeeManager,
			})
		}
		contracts.FeeManager = common.HexToAddress(cfg.Contracts.FeeManager)
	}
	if strategy == StrategyFeeManager && contracts.FeeManager == (common.Address{}) {
		return nil, warderr.WithDetails(warderr.ErrConfigInvalid, map[string]string{
			"reason": "feemanager strategy requires contracts.fee_manager",
		})
	}

	minimum, err := chain.ParseUnits(cfg.Claim.MinimumClaim, cfg.Network.Decimals)
	if err != nil {
		return nil, warderr.Wrap(err, "parsing claim.minimum_claim")
	}

	return &Registry{
		Chain: Chain{
			ID:          cfg.Network.ChainID,
			Name:        cfg.Network.Name,
			RPCURL:      cfg.Network.RPC,
			ExplorerURL: cfg.Network.Explorer,
			Currency: provider.Currency{
				Name:     cfg.Network.CurrencyName,
				Symbol:   cfg.Network.Symbol,
				Decimals: cfg.Network.Decimals,
			},
		},
		Contracts:    contracts,
		Strategy:     strategy,
		APIBaseURL:   cfg.API.BaseURL,
		MinimumClaim: minimum,
		FeeRateBps:   cfg.Claim.FeeRateBps,
	}, nil
}
