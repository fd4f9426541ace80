package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Warder-Sonic/warder-wallet/internal/config"
	"github.com/Warder-Sonic/warder-wallet/internal/discovery"
	"github.com/Warder-Sonic/warder-wallet/internal/metrics"
	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	"github.com/Warder-Sonic/warder-wallet/internal/provider/providertest"
	"github.com/Warder-Sonic/warder-wallet/internal/registry"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

const (
	targetChainHex = "0x3909" // 14601
	otherChainHex  = "0x1"
	account        = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	otherAccount   = "0x1111111111111111111111111111111111111111"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.FromConfig(config.Defaults())
	require.NoError(t, err)
	return reg
}

func newMachine(t *testing.T, host discovery.Host, opts ...Option) *Machine {
	t.Helper()
	opts = append([]Option{WithConnectTimeout(time.Second)}, opts...)
	m := NewMachine(host, testRegistry(t), opts...)
	t.Cleanup(m.Close)
	return m
}

func metamask(fake *providertest.Fake) *providertest.Fake {
	return fake.WithFlags(provider.Flags{MetaMask: true})
}

func TestInitiateConnectionNoWallet(t *testing.T) {
	t.Parallel()

	m := newMachine(t, providertest.NewHost())
	err := m.InitiateConnection(context.Background())
	require.Error(t, err)
	assert.True(t, warderr.Is(err, warderr.ErrNoWalletFound))

	snap := m.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.True(t, warderr.Is(snap.Err, warderr.ErrNoWalletFound))
}

func TestInitiateConnectionSingleCandidateSkipsSelection(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))

	states, unwatch := m.Watch()
	defer unwatch()

	require.NoError(t, m.InitiateConnection(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, StateOnChain, snap.State)
	assert.Equal(t, account, snap.Account)
	assert.Equal(t, int64(14601), snap.ChainID)
	assert.Equal(t, discovery.NameMetaMask, snap.Wallet)

	// The picker state is never published with a single candidate.
	for {
		select {
		case s := <-states:
			assert.NotEqual(t, StateSelectingWallet, s.State)
			if s.State == StateOnChain {
				return
			}
		default:
			return
		}
	}
}

func TestInitiateConnectionMultipleCandidates(t *testing.T) {
	t.Parallel()

	mm := metamask(providertest.NewFake(targetChainHex, account))
	okx := providertest.NewFake(targetChainHex, otherAccount).
		WithFlags(provider.Flags{OKX: true})
	host := providertest.NewHost().WithInjected(mm).WithNamed(discovery.NamespaceOKX, okx)

	m := newMachine(t, host)
	require.NoError(t, m.InitiateConnection(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, StateSelectingWallet, snap.State)
	require.Len(t, snap.Candidates, 2)

	require.NoError(t, m.ConnectToWallet(context.Background(), discovery.NameOKX))
	snap = m.Snapshot()
	assert.Equal(t, StateOnChain, snap.State)
	assert.Equal(t, otherAccount, snap.Account)
	assert.Equal(t, discovery.NameOKX, snap.Wallet)
	assert.Zero(t, mm.CallCount("eth_requestAccounts"))
}

func TestCancelSelection(t *testing.T) {
	t.Parallel()

	mm := metamask(providertest.NewFake(targetChainHex, account))
	rabby := providertest.NewFake(targetChainHex, account).
		WithFlags(provider.Flags{MetaMask: true, Rabby: true})
	host := providertest.NewHost().WithInjected(
		providertest.NewFake(targetChainHex).WithSubProviders(mm, rabby))

	m := newMachine(t, host)
	require.NoError(t, m.InitiateConnection(context.Background()))
	require.Equal(t, StateSelectingWallet, m.Snapshot().State)

	m.CancelSelection()
	snap := m.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.NoError(t, snap.Err)
}

func TestConnectWrongChainThenSwitch(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(otherChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))

	require.NoError(t, m.InitiateConnection(context.Background()))
	snap := m.Snapshot()
	require.Equal(t, StateWrongChain, snap.State)
	require.Equal(t, account, snap.Account)

	// Target chain is unknown to the provider: the switch is expected to
	// register it and retry exactly once.
	require.NoError(t, m.SwitchToTargetChain(context.Background()))

	snap = m.Snapshot()
	assert.Equal(t, StateOnChain, snap.State)
	assert.Equal(t, int64(14601), snap.ChainID)
	assert.Equal(t, account, snap.Account)
	assert.Equal(t, 1, fake.CallCount("wallet_addEthereumChain"))
	assert.Equal(t, 2, fake.CallCount("wallet_switchEthereumChain"))
}

func TestSwitchRejectedKeepsWrongChain(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(otherChainHex, account)).
		FailWith("wallet_switchEthereumChain", &provider.RPCError{
			Code: provider.CodeUserRejected, Message: "user rejected",
		})
	m := newMachine(t, providertest.NewHost().WithInjected(fake))

	require.NoError(t, m.InitiateConnection(context.Background()))
	err := m.SwitchToTargetChain(context.Background())
	require.Error(t, err)
	assert.True(t, warderr.Is(err, warderr.ErrUserRejected))

	snap := m.Snapshot()
	assert.Equal(t, StateWrongChain, snap.State)
	assert.Equal(t, account, snap.Account)
}

func TestSwitchWhenDisconnected(t *testing.T) {
	t.Parallel()

	m := newMachine(t, providertest.NewHost())
	err := m.SwitchToTargetChain(context.Background())
	assert.True(t, warderr.Is(err, warderr.ErrNotConnected))
}

func TestUserRejectionKeepsCandidates(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account)).
		FailWith("eth_requestAccounts", &provider.RPCError{
			Code: provider.CodeUserRejected, Message: "user rejected request",
		})
	m := newMachine(t, providertest.NewHost().WithInjected(fake))

	err := m.InitiateConnection(context.Background())
	require.Error(t, err)
	assert.True(t, warderr.Is(err, warderr.ErrUserRejected))

	snap := m.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.True(t, warderr.Is(snap.Err, warderr.ErrUserRejected))

	// Discovery results survive a rejected prompt.
	require.Len(t, snap.Candidates, 1)
	assert.Equal(t, discovery.NameMetaMask, snap.Candidates[0].Name)
}

func TestProviderBusy(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account)).
		FailWith("eth_requestAccounts", &provider.RPCError{
			Code: provider.CodeRequestPending, Message: "already processing",
		})
	m := newMachine(t, providertest.NewHost().WithInjected(fake))

	err := m.InitiateConnection(context.Background())
	assert.True(t, warderr.Is(err, warderr.ErrProviderBusy))
}

func TestConnectTimeoutOnHangingPrompt(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account)).
		HangOn("eth_requestAccounts")
	m := newMachine(t, providertest.NewHost().WithInjected(fake),
		WithConnectTimeout(50*time.Millisecond))

	err := m.InitiateConnection(context.Background())
	require.Error(t, err)
	assert.True(t, warderr.Is(err, warderr.ErrNetworkOrTimeout))
	assert.Equal(t, StateDisconnected, m.Snapshot().State)
}

func TestConnectToUnknownWalletSuggests(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))

	err := m.ConnectToWallet(context.Background(), "MetaMusk")
	require.Error(t, err)
	assert.True(t, warderr.Is(err, warderr.ErrWalletNotFound))
	assert.Contains(t, err.Error(), discovery.NameMetaMask)
}

func TestEmptyAccountsEventDisconnects(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))
	require.NoError(t, m.InitiateConnection(context.Background()))
	require.Equal(t, 1, fake.SubscriberCount())

	fake.EmitAccountsChanged()

	require.Eventually(t, func() bool {
		return m.Snapshot().State == StateDisconnected
	}, time.Second, 5*time.Millisecond)

	snap := m.Snapshot()
	assert.NoError(t, snap.Err, "lock/revocation is not a failure")
	assert.Empty(t, snap.Account)
	assert.Zero(t, fake.SubscriberCount(), "listener must not outlive the session")
}

func TestAccountsChangedSwitchesAccount(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))
	require.NoError(t, m.InitiateConnection(context.Background()))

	fake.EmitAccountsChanged(otherAccount)

	require.Eventually(t, func() bool {
		return m.Snapshot().Account == otherAccount
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateOnChain, m.Snapshot().State)
}

func TestChainChangedRederivesWithoutDroppingAccount(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))
	require.NoError(t, m.InitiateConnection(context.Background()))
	require.Equal(t, StateOnChain, m.Snapshot().State)

	fake.EmitChainChanged(otherChainHex)
	require.Eventually(t, func() bool {
		return m.Snapshot().State == StateWrongChain
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, account, m.Snapshot().Account)

	fake.EmitChainChanged(targetChainHex)
	require.Eventually(t, func() bool {
		return m.Snapshot().State == StateOnChain
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, account, m.Snapshot().Account)
}

func TestStaleChainEventFromEndedSessionIsDropped(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))
	require.NoError(t, m.InitiateConnection(context.Background()))
	require.Equal(t, StateOnChain, m.Snapshot().State)

	// Queue a chain change behind the first session's event loop, then
	// replace that session while the provider is back on the target
	// chain. The buffered event belongs to the ended session and must
	// not downgrade its successor.
	fake.EmitChainChanged(otherChainHex)
	fake.SetChain(targetChainHex)
	require.NoError(t, m.ConnectToWallet(context.Background(), discovery.NameMetaMask))

	time.Sleep(50 * time.Millisecond)
	snap := m.Snapshot()
	assert.Equal(t, StateOnChain, snap.State)
	assert.Equal(t, int64(14601), snap.ChainID)
	assert.Equal(t, account, snap.Account)
}

func TestStaleRevocationFromEndedSessionIsDropped(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))
	require.NoError(t, m.InitiateConnection(context.Background()))

	// An empty accountsChanged left in the old session's buffer would
	// force-disconnect the replacement session if it were applied to it.
	fake.EmitAccountsChanged()
	fake.SetAccounts(account)
	require.NoError(t, m.ConnectToWallet(context.Background(), discovery.NameMetaMask))

	time.Sleep(50 * time.Millisecond)
	snap := m.Snapshot()
	assert.Equal(t, StateOnChain, snap.State)
	assert.Equal(t, account, snap.Account)
}

func TestConnectionOutcomesAreCounted(t *testing.T) {
	t.Parallel()

	before := metrics.Global.Snapshot()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))
	require.NoError(t, m.InitiateConnection(context.Background()))
	m.Disconnect()

	rejecting := metamask(providertest.NewFake(targetChainHex, account)).
		FailWith("eth_requestAccounts", &provider.RPCError{
			Code: provider.CodeUserRejected, Message: "user rejected",
		})
	m2 := newMachine(t, providertest.NewHost().WithInjected(rejecting))
	require.Error(t, m2.InitiateConnection(context.Background()))

	// Counters are process-global and only ever increase, so assert
	// deltas rather than absolute values.
	after := metrics.Global.Snapshot()
	assert.GreaterOrEqual(t, after.ConnectsTotal, before.ConnectsTotal+2)
	assert.GreaterOrEqual(t, after.ConnectErrors, before.ConnectErrors+1)
	assert.GreaterOrEqual(t, after.Disconnects, before.Disconnects+1)
}

func TestRevalidationDisconnectsOnSignerMismatch(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake),
		WithRevalidateInterval(10*time.Millisecond))
	require.NoError(t, m.InitiateConnection(context.Background()))

	// Rotate the signer without an event, as a misbehaving provider would.
	fake.SetAccounts(otherAccount)

	require.Eventually(t, func() bool {
		return m.Snapshot().State == StateDisconnected
	}, time.Second, 5*time.Millisecond)
	assert.True(t, warderr.Is(m.Snapshot().Err, warderr.ErrValidationFailed))
	assert.Zero(t, fake.SubscriberCount())
}

func TestRevalidationIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake),
		WithRevalidateInterval(10*time.Millisecond))
	require.NoError(t, m.InitiateConnection(context.Background()))

	fake.SetAccounts(strings.ToLower(account))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateOnChain, m.Snapshot().State)
}

func TestResumeSilentReattach(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))

	require.NoError(t, m.Resume(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, StateOnChain, snap.State)
	assert.Equal(t, account, snap.Account)
	assert.Zero(t, fake.CallCount("eth_requestAccounts"), "resume must never prompt")
	assert.Positive(t, fake.CallCount("eth_accounts"))
}

func TestResumeWithoutAuthorizationStaysDisconnected(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex)) // no authorized accounts
	m := newMachine(t, providertest.NewHost().WithInjected(fake))

	require.NoError(t, m.Resume(context.Background()))
	snap := m.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.NoError(t, snap.Err)
	assert.Zero(t, fake.CallCount("eth_requestAccounts"))
}

func TestDisconnectRemovesListener(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))
	require.NoError(t, m.InitiateConnection(context.Background()))
	require.Equal(t, 1, fake.SubscriberCount())

	m.Disconnect()
	snap := m.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.NoError(t, snap.Err)
	assert.Zero(t, fake.SubscriberCount())

	// Reconnect cycles never stack listeners.
	require.NoError(t, m.InitiateConnection(context.Background()))
	assert.Equal(t, 1, fake.SubscriberCount())
}

func TestWatchDeliversLatestSnapshot(t *testing.T) {
	t.Parallel()

	fake := metamask(providertest.NewFake(targetChainHex, account))
	m := newMachine(t, providertest.NewHost().WithInjected(fake))

	states, unwatch := m.Watch()
	defer unwatch()

	require.NoError(t, m.InitiateConnection(context.Background()))

	require.Eventually(t, func() bool {
		select {
		case s := <-states:
			return s.State == StateOnChain
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "selecting-wallet", StateSelectingWallet.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected-wrong-chain", StateWrongChain.String())
	assert.Equal(t, "connected", StateOnChain.String())
	assert.False(t, StateConnecting.Connected())
	assert.True(t, StateWrongChain.Connected())
}
