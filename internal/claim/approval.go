package claim

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/Warder-Sonic/warder-wallet/internal/contract"
	"github.com/Warder-Sonic/warder-wallet/internal/metrics"
	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	"github.com/Warder-Sonic/warder-wallet/internal/registry"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// Approver manages the token allowance some deployments require before
// the cashback contract can move funds.
type Approver struct {
	token           *contract.Binding
	spender         common.Address
	confirmInterval time.Duration

	mu        sync.Mutex
	approving bool
	allowance *big.Int
}

// NewApprover builds an approver for the configured token and spender.
func NewApprover(reg *registry.Registry) (*Approver, error) {
	if reg.Contracts.Token == (common.Address{}) {
		return nil, warderr.WithDetails(warderr.ErrConfigInvalid, map[string]string{
			"reason": "allowance-gated claims require contracts.token",
		})
	}
	token, err := contract.NewBinding(reg.Contracts.Token, registry.ERC20ABI)
	if err != nil {
		return nil, err
	}
	return &Approver{
		token:           token,
		spender:         reg.Contracts.CashbackWallet,
		confirmInterval: contract.DefaultConfirmInterval,
	}, nil
}

// WithConfirmInterval overrides the receipt polling cadence.
func (a *Approver) WithConfirmInterval(d time.Duration) *Approver {
	a.confirmInterval = d
	return a
}

// Approving reports whether an approval transaction is pending.
func (a *Approver) Approving() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.approving
}

// Allowance returns the last queried allowance, or nil before the
// first query.
func (a *Approver) Allowance() *big.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.allowance == nil {
		return nil
	}
	return new(big.Int).Set(a.allowance)
}

// IsApproved queries the current allowance and compares it against the
// required amount. A nil required amount means any positive allowance
// counts.
func (a *Approver) IsApproved(ctx context.Context, p provider.Provider, account string, required *big.Int) (bool, error) {
	allowance, err := a.queryAllowance(ctx, p, account)
	if err != nil {
		return false, err
	}
	if required == nil {
		return allowance.Sign() > 0, nil
	}
	return allowance.Cmp(required) >= 0, nil
}

// Approve submits an approval for the given amount, or an unbounded
// allowance when amount is nil, and waits one confirmation. Only one
// approval may be in flight; the pending flag is cleared on every exit
// path.
func (a *Approver) Approve(ctx context.Context, p provider.Provider, account string, amount *big.Int) error {
	a.mu.Lock()
	if a.approving {
		a.mu.Unlock()
		return warderr.ErrApprovalInFlight
	}
	a.approving = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.approving = false
		a.mu.Unlock()
	}()

	metrics.Global.RecordApproval()

	if amount == nil {
		amount = math.MaxBig256
	}
	from := common.HexToAddress(account)

	estimate, err := a.token.EstimateGas(ctx, p, from, "approve", a.spender, amount)
	if err != nil {
		return Classify(err)
	}

	txHash, err := a.token.Send(ctx, p, from, contract.PadGasLimit(estimate), "approve", a.spender, amount)
	if err != nil {
		return Classify(err)
	}

	receipt, err := contract.WaitMined(ctx, p, txHash, a.confirmInterval)
	if err != nil {
		return Classify(err)
	}
	if !receipt.Succeeded() {
		return warderr.WithDetails(warderr.ErrTxFailed, map[string]string{
			"tx_hash": txHash,
		})
	}

	// Confirm the allowance actually changed before reporting success.
	if _, err := a.queryAllowance(ctx, p, account); err != nil {
		return err
	}
	return nil
}

func (a *Approver) queryAllowance(ctx context.Context, p provider.Provider, account string) (*big.Int, error) {
	owner := common.HexToAddress(account)
	out, err := a.token.Call(ctx, p, owner, "allowance", owner, a.spender)
	if err != nil {
		return nil, err
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, warderr.New("UNEXPECTED_ABI_TYPE", "allowance did not return uint256")
	}

	a.mu.Lock()
	a.allowance = new(big.Int).Set(allowance)
	a.mu.Unlock()
	return allowance, nil
}
