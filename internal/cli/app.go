package cli

import (
	"context"

	"github.com/Warder-Sonic/warder-wallet/internal/cashback"
	"github.com/Warder-Sonic/warder-wallet/internal/claim"
	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	"github.com/Warder-Sonic/warder-wallet/internal/session"
	"github.com/Warder-Sonic/warder-wallet/internal/warderapi"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// nodeHost exposes the configured node-backed provider as the single
// injected wallet, so the session machine drives it the same way it
// would a browser extension.
type nodeHost struct {
	node *provider.Node
}

func (h nodeHost) Injected() provider.Injected {
	return h.node
}

func (h nodeHost) Named(string) provider.Injected {
	return nil
}

// app wires the session machine, balance service, and claim pipeline
// from the loaded configuration.
type app struct {
	machine  *session.Machine
	balance  *cashback.Service
	pipeline *claim.Pipeline
	approver *claim.Approver
	api      *warderapi.Client
}

// newApp assembles the client against the configured RPC node.
func newApp() (*app, error) {
	var accounts []string
	if cfg.Account.Address != "" {
		accounts = []string{cfg.Account.Address}
	}

	node, err := provider.NewNode(cfg.Network.RPC, provider.NodeOptions{
		Accounts: accounts,
	})
	if err != nil {
		return nil, err
	}

	api := warderapi.NewClient(cfg.API.BaseURL)
	machine := session.NewMachine(nodeHost{node: node}, reg, session.WithLogger(logger.Component("session")))

	source, err := cashback.NewSource(reg, api)
	if err != nil {
		machine.Close()
		return nil, err
	}
	balance := cashback.NewService(machine, source, cashback.WithServiceLogger(logger.Component("cashback")))

	submitter, err := claim.NewSubmitter(reg, api)
	if err != nil {
		machine.Close()
		return nil, err
	}

	pipelineOpts := []claim.PipelineOption{claim.WithPipelineLogger(logger.Component("claim"))}
	var approver *claim.Approver
	if cfg.Claim.RequireApproval {
		approver, err = claim.NewApprover(reg)
		if err != nil {
			machine.Close()
			return nil, err
		}
		pipelineOpts = append(pipelineOpts, claim.WithApprover(approver))
	}

	return &app{
		machine:  machine,
		balance:  balance,
		pipeline: claim.NewPipeline(machine, balance, submitter, pipelineOpts...),
		approver: approver,
		api:      api,
	}, nil
}

// Close tears down the session machine.
func (a *app) Close() {
	a.machine.Close()
}

// connect runs the full connection flow: discovery, optional wallet
// selection, and a chain switch when the provider is on the wrong
// network. An empty walletName connects directly when only one wallet
// is installed and prompts otherwise.
func (a *app) connect(ctx context.Context, walletName string) error {
	if walletName != "" {
		if err := a.machine.ConnectToWallet(ctx, walletName); err != nil {
			return err
		}
	} else {
		if err := a.machine.InitiateConnection(ctx); err != nil {
			return err
		}
		if snap := a.machine.Snapshot(); snap.State == session.StateSelectingWallet {
			name, err := promptSelectWallet(snap.Candidates)
			if err != nil {
				a.machine.CancelSelection()
				return err
			}
			if err := a.machine.ConnectToWallet(ctx, name); err != nil {
				return err
			}
		}
	}

	if a.machine.Snapshot().State == session.StateWrongChain {
		if err := a.machine.SwitchToTargetChain(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resume silently reattaches a previously authorized session and
// requires it to land on the target chain. It never prompts.
func (a *app) resume(ctx context.Context) error {
	if err := a.machine.Resume(ctx); err != nil {
		return err
	}

	snap := a.machine.Snapshot()
	switch snap.State {
	case session.StateOnChain:
		return nil
	case session.StateWrongChain:
		return a.machine.SwitchToTargetChain(ctx)
	default:
		return warderr.WithSuggestion(
			warderr.ErrNotConnected,
			"run 'warder connect' or set account.address / WARDER_ACCOUNT",
		)
	}
}
