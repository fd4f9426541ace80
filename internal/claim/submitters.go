package claim

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Warder-Sonic/warder-wallet/internal/cashback"
	"github.com/Warder-Sonic/warder-wallet/internal/contract"
	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	"github.com/Warder-Sonic/warder-wallet/internal/registry"
	"github.com/Warder-Sonic/warder-wallet/internal/warderapi"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// ContractSubmitter sends the claim transaction to the cashback
// contract through the connected wallet.
type ContractSubmitter struct {
	binding         *contract.Binding
	confirmInterval time.Duration
}

// NewContractSubmitter builds the direct-transaction submitter.
func NewContractSubmitter(reg *registry.Registry) (*ContractSubmitter, error) {
	binding, err := contract.NewBinding(reg.Contracts.CashbackWallet, registry.CashbackWalletABI)
	if err != nil {
		return nil, err
	}
	return &ContractSubmitter{
		binding:         binding,
		confirmInterval: contract.DefaultConfirmInterval,
	}, nil
}

// WithConfirmInterval overrides the receipt polling cadence.
func (s *ContractSubmitter) WithConfirmInterval(d time.Duration) *ContractSubmitter {
	s.confirmInterval = d
	return s
}

// Submit implements Submitter: estimate, pad, send, wait one
// confirmation. A mined-but-reverted receipt is a claim failure even
// though submission succeeded.
func (s *ContractSubmitter) Submit(ctx context.Context, p provider.Provider, account string, snap cashback.Snapshot, onSubmitted func(string)) (*Result, error) {
	from := common.HexToAddress(account)

	estimate, err := s.binding.EstimateGas(ctx, p, from, "claimCashback")
	if err != nil {
		return nil, err
	}

	txHash, err := s.binding.Send(ctx, p, from, contract.PadGasLimit(estimate), "claimCashback")
	if err != nil {
		return nil, err
	}
	if onSubmitted != nil {
		onSubmitted(txHash)
	}

	receipt, err := contract.WaitMined(ctx, p, txHash, s.confirmInterval)
	if err != nil {
		return nil, err
	}
	if !receipt.Succeeded() {
		return nil, warderr.WithDetails(warderr.ErrTxFailed, map[string]string{
			"tx_hash": txHash,
		})
	}

	return &Result{
		TxHash:        txHash,
		ClaimedAmount: snap.Formatted,
		FeeAmount:     snap.EstimatedFee,
		NetAmount:     snap.EstimatedNet,
	}, nil
}

// RESTSubmitter delegates claim processing to the backing API, which
// pays out custodially and reports the resulting transaction.
type RESTSubmitter struct {
	client *warderapi.Client
}

// NewRESTSubmitter builds the API-backed submitter.
func NewRESTSubmitter(client *warderapi.Client) *RESTSubmitter {
	return &RESTSubmitter{client: client}
}

// Submit implements Submitter.
func (s *RESTSubmitter) Submit(ctx context.Context, _ provider.Provider, account string, snap cashback.Snapshot, onSubmitted func(string)) (*Result, error) {
	claimed, err := s.client.ProcessClaim(ctx, account, snap.Formatted)
	if err != nil {
		return nil, err
	}
	if onSubmitted != nil {
		onSubmitted(claimed.TransactionHash)
	}

	return &Result{
		TxHash:        claimed.TransactionHash,
		ClaimedAmount: claimed.ClaimedAmount,
		FeeAmount:     claimed.FeeAmount,
		NetAmount:     claimed.NetAmount,
	}, nil
}

// NewSubmitter builds the Submitter selected by the registry strategy.
// The feemanager strategy claims through the cashback contract like the
// direct strategy; only its read path differs.
func NewSubmitter(reg *registry.Registry, api *warderapi.Client) (Submitter, error) {
	switch reg.Strategy {
	case registry.StrategyContract, registry.StrategyFeeManager:
		return NewContractSubmitter(reg)
	case registry.StrategyREST:
		return NewRESTSubmitter(api), nil
	default:
		return nil, warderr.WithDetails(warderr.ErrConfigInvalid, map[string]string{
			"strategy": string(reg.Strategy),
		})
	}
}
