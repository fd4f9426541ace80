// Package claim is the claim submission pipeline: precondition checks,
// optional allowance approval, gas estimation, submission, confirmation,
// and outcome classification.
package claim

import (
	"context"
	"sync"
	"time"

	"github.com/Warder-Sonic/warder-wallet/internal/cashback"
	"github.com/Warder-Sonic/warder-wallet/internal/config"
	"github.com/Warder-Sonic/warder-wallet/internal/metrics"
	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	"github.com/Warder-Sonic/warder-wallet/internal/session"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// MilestoneKind identifies a progress point in a claim attempt.
type MilestoneKind int

// Claim milestones.
const (
	// MilestoneSubmitted fires the moment the transaction hash exists,
	// before confirmation.
	MilestoneSubmitted MilestoneKind = iota

	// MilestoneConfirmed fires once the transaction is mined and its
	// status known.
	MilestoneConfirmed
)

// Milestone is a progress notification during a claim.
type Milestone struct {
	Kind   MilestoneKind
	TxHash string
}

// Result is a completed claim.
type Result struct {
	TxHash        string
	ClaimedAmount string
	FeeAmount     string
	NetAmount     string
}

// Submitter performs the actual claim for one deployment strategy.
// onSubmitted is invoked as soon as a transaction hash is available.
type Submitter interface {
	Submit(ctx context.Context, p provider.Provider, account string, snap cashback.Snapshot, onSubmitted func(txHash string)) (*Result, error)
}

// Pipeline orchestrates claim attempts. At most one claim is in flight
// at a time; concurrent submissions are rejected, never queued.
type Pipeline struct {
	machine   *session.Machine
	balance   *cashback.Service
	submitter Submitter
	approver  *Approver // nil unless the deployment is allowance-gated
	log       *config.Logger

	mu       sync.Mutex
	inFlight bool
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithApprover enables the allowance precondition.
func WithApprover(a *Approver) PipelineOption {
	return func(p *Pipeline) { p.approver = a }
}

// WithPipelineLogger sets the debug logger.
func WithPipelineLogger(log *config.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = log }
}

// NewPipeline creates a claim pipeline.
func NewPipeline(machine *session.Machine, balance *cashback.Service, submitter Submitter, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		machine:   machine,
		balance:   balance,
		submitter: submitter,
		log:       config.NullLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// InFlight reports whether a claim is currently pending.
func (p *Pipeline) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Submit runs one claim attempt. Precondition failures short-circuit
// with a classified reason before any chain interaction. onMilestone
// may be nil.
func (p *Pipeline) Submit(ctx context.Context, onMilestone func(Milestone)) (*Result, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return nil, warderr.ErrClaimInFlight
	}
	p.inFlight = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	result, err := p.run(ctx, onMilestone)
	metrics.Global.RecordClaimOutcome(err)
	return result, err
}

func (p *Pipeline) run(ctx context.Context, onMilestone func(Milestone)) (*Result, error) {
	// Precondition 1: connected on the target chain.
	snap := p.machine.Snapshot()
	switch {
	case snap.State == session.StateWrongChain:
		return nil, warderr.ErrChainMismatch
	case snap.State != session.StateOnChain:
		return nil, warderr.ErrNotConnected
	}

	// Precondition 2: claimable balance above the minimum.
	balance, ok := p.balance.Current()
	if !ok {
		if err := p.balance.Refresh(ctx); err != nil {
			return nil, err
		}
		if balance, ok = p.balance.Current(); !ok {
			return nil, warderr.ErrNotConnected
		}
	}
	if !balance.CanClaim {
		return nil, warderr.WithDetails(warderr.ErrInsufficientBalance, map[string]string{
			"balance": balance.Formatted,
			"minimum": balance.MinimumClaim,
		})
	}

	prov := p.machine.ActiveProvider()
	account := p.machine.Account()
	if prov == nil || account == "" {
		return nil, warderr.ErrNotConnected
	}

	// Precondition 3: allowance, when the deployment requires one.
	if p.approver != nil {
		approved, err := p.approver.IsApproved(ctx, prov, account, balance.Raw)
		if err != nil {
			return nil, err
		}
		if !approved {
			if err := p.approver.Approve(ctx, prov, account, nil); err != nil {
				return nil, err
			}
		}
	}

	p.log.Debug("submitting claim account=%s amount=%s", account, balance.Formatted)
	result, err := p.submitter.Submit(ctx, prov, account, balance, func(txHash string) {
		metrics.Global.RecordClaimSubmitted()
		p.log.Debug("claim submitted tx=%s", txHash)
		if onMilestone != nil {
			onMilestone(Milestone{Kind: MilestoneSubmitted, TxHash: txHash})
		}
	})
	if err != nil {
		return nil, Classify(err)
	}

	if onMilestone != nil {
		onMilestone(Milestone{Kind: MilestoneConfirmed, TxHash: result.TxHash})
	}

	// Reflect the drained balance without waiting for the next poll.
	refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = p.balance.Refresh(refreshCtx)

	return result, nil
}
