package cashback

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/Warder-Sonic/warder-wallet/internal/chain"
	"github.com/Warder-Sonic/warder-wallet/internal/contract"
	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	"github.com/Warder-Sonic/warder-wallet/internal/registry"
	"github.com/Warder-Sonic/warder-wallet/internal/warderapi"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// ContractSource reads everything from the cashback contract, including
// eligibility and the fee split. The contract is the single authority
// for canClaim, which settles the at-exactly-the-minimum case.
type ContractSource struct {
	binding *contract.Binding
}

// NewContractSource builds the direct-read source.
func NewContractSource(reg *registry.Registry) (*ContractSource, error) {
	binding, err := contract.NewBinding(reg.Contracts.CashbackWallet, registry.CashbackWalletABI)
	if err != nil {
		return nil, err
	}
	return &ContractSource{binding: binding}, nil
}

// Fetch implements BalanceSource with five parallel contract reads.
func (c *ContractSource) Fetch(ctx context.Context, p provider.Provider, account string) (*Snapshot, error) {
	addr := common.HexToAddress(account)

	var (
		raw, minimum, fee, net *big.Int
		rateBps                int64
		canClaim               bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		raw, err = c.readBig(gctx, p, addr, "getUserBalance", addr)
		return err
	})
	g.Go(func() (err error) {
		minimum, err = c.readBig(gctx, p, addr, "minimumClaimAmount")
		return err
	})
	g.Go(func() (err error) {
		rate, err := c.readBig(gctx, p, addr, "claimFeeRate")
		if err != nil {
			return err
		}
		rateBps = rate.Int64()
		return nil
	})
	g.Go(func() error {
		out, err := c.binding.Call(gctx, p, addr, "canClaim", addr)
		if err != nil {
			return err
		}
		var ok bool
		if canClaim, ok = out[0].(bool); !ok {
			return warderr.New("UNEXPECTED_ABI_TYPE", "canClaim did not return bool")
		}
		return nil
	})
	g.Go(func() error {
		out, err := c.binding.Call(gctx, p, addr, "calculateClaimFee", addr)
		if err != nil {
			return err
		}
		fee, _ = out[0].(*big.Int)
		net, _ = out[1].(*big.Int)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildSnapshot(raw, minimum, fee, net, canClaim, rateBps), nil
}

func (c *ContractSource) readBig(ctx context.Context, p provider.Provider, from common.Address, method string, args ...any) (*big.Int, error) {
	out, err := c.binding.Call(ctx, p, from, method, args...)
	if err != nil {
		return nil, err
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, warderr.New("UNEXPECTED_ABI_TYPE", method+" did not return uint256")
	}
	return value, nil
}

// FeeManagerSource reads the balance from the cashback contract,
// compares against the configured minimum client-side, and asks a
// separate fee-manager contract for the fee split.
type FeeManagerSource struct {
	cashback   *contract.Binding
	feeManager *contract.Binding
	minimum    *big.Int
}

// NewFeeManagerSource builds the fee-manager source.
func NewFeeManagerSource(reg *registry.Registry) (*FeeManagerSource, error) {
	cashback, err := contract.NewBinding(reg.Contracts.CashbackWallet, registry.CashbackWalletABI)
	if err != nil {
		return nil, err
	}
	feeManager, err := contract.NewBinding(reg.Contracts.FeeManager, registry.FeeManagerABI)
	if err != nil {
		return nil, err
	}
	return &FeeManagerSource{
		cashback:   cashback,
		feeManager: feeManager,
		minimum:    reg.MinimumClaim,
	}, nil
}

// Fetch implements BalanceSource. The fee split depends on the balance,
// so the balance read comes first and the fee queries run in parallel
// after it.
func (f *FeeManagerSource) Fetch(ctx context.Context, p provider.Provider, account string) (*Snapshot, error) {
	addr := common.HexToAddress(account)

	out, err := f.cashback.Call(ctx, p, addr, "getUserBalance", addr)
	if err != nil {
		return nil, err
	}
	raw, ok := out[0].(*big.Int)
	if !ok {
		return nil, warderr.New("UNEXPECTED_ABI_TYPE", "getUserBalance did not return uint256")
	}

	var (
		fee, net *big.Int
		rateBps  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		split, err := f.feeManager.Call(gctx, p, addr, "calculateFee", raw)
		if err != nil {
			return err
		}
		fee, _ = split[0].(*big.Int)
		net, _ = split[1].(*big.Int)
		return nil
	})
	g.Go(func() error {
		rateOut, err := f.feeManager.Call(gctx, p, addr, "feeRate")
		if err != nil {
			return err
		}
		if rate, ok := rateOut[0].(*big.Int); ok {
			rateBps = rate.Int64()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	canClaim := raw.Cmp(f.minimum) >= 0
	return buildSnapshot(raw, f.minimum, fee, net, canClaim, rateBps), nil
}

// RESTSource delegates the balance read to the backing API and applies
// the configured minimum and fee rate client-side.
type RESTSource struct {
	client     *warderapi.Client
	minimum    *big.Int
	feeRateBps int64
	decimals   int
}

// NewRESTSource builds the API-backed source.
func NewRESTSource(client *warderapi.Client, reg *registry.Registry) *RESTSource {
	return &RESTSource{
		client:     client,
		minimum:    reg.MinimumClaim,
		feeRateBps: reg.FeeRateBps,
		decimals:   reg.Chain.Currency.Decimals,
	}
}

// Fetch implements BalanceSource. The provider is unused: balances come
// from the indexing service, not the chain.
func (r *RESTSource) Fetch(ctx context.Context, _ provider.Provider, account string) (*Snapshot, error) {
	balance, err := r.client.Balance(ctx, account)
	if err != nil {
		return nil, err
	}

	raw, err := chain.ParseUnits(balance.CashbackBalance, r.decimals)
	if err != nil {
		return nil, warderr.Wrap(err, "parsing reported balance %q", balance.CashbackBalance)
	}

	fee, net := feeSplit(raw, r.feeRateBps)
	canClaim := raw.Cmp(r.minimum) >= 0
	return buildSnapshot(raw, r.minimum, fee, net, canClaim, r.feeRateBps), nil
}

// NewSource builds the BalanceSource selected by the registry strategy.
func NewSource(reg *registry.Registry, api *warderapi.Client) (BalanceSource, error) {
	switch reg.Strategy {
	case registry.StrategyContract:
		return NewContractSource(reg)
	case registry.StrategyFeeManager:
		return NewFeeManagerSource(reg)
	case registry.StrategyREST:
		return NewRESTSource(api, reg), nil
	default:
		return nil, warderr.WithDetails(warderr.ErrConfigInvalid, map[string]string{
			"strategy": string(reg.Strategy),
		})
	}
}
