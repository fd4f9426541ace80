package cashback

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Warder-Sonic/warder-wallet/internal/config"
	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	"github.com/Warder-Sonic/warder-wallet/internal/provider/providertest"
	"github.com/Warder-Sonic/warder-wallet/internal/registry"
	"github.com/Warder-Sonic/warder-wallet/internal/session"
	"github.com/Warder-Sonic/warder-wallet/internal/warderapi"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

const (
	targetChainHex = "0x3909"
	account        = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad wei literal " + s)
	}
	return v
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.FromConfig(config.Defaults())
	require.NoError(t, err)
	return reg
}

// connectedMachine returns a machine already connected on the target
// chain through the given fake.
func connectedMachine(t *testing.T, fake *providertest.Fake) *session.Machine {
	t.Helper()
	fake.WithFlags(provider.Flags{MetaMask: true})
	m := session.NewMachine(providertest.NewHost().WithInjected(fake), testRegistry(t),
		session.WithConnectTimeout(time.Second))
	t.Cleanup(m.Close)
	require.NoError(t, m.InitiateConnection(context.Background()))
	require.True(t, m.OnChain())
	return m
}

// fakeSource is a scriptable BalanceSource.
type fakeSource struct {
	fetches atomic.Int32
	snap    *Snapshot
	err     error
}

func (f *fakeSource) Fetch(_ context.Context, _ provider.Provider, _ string) (*Snapshot, error) {
	f.fetches.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func TestRefreshNoOpWhenDisconnected(t *testing.T) {
	t.Parallel()

	m := session.NewMachine(providertest.NewHost(), testRegistry(t))
	t.Cleanup(m.Close)

	src := &fakeSource{snap: &Snapshot{Formatted: "1.0"}}
	svc := NewService(m, src)

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Zero(t, src.fetches.Load(), "no fetch without an on-chain session")
	_, ok := svc.Current()
	assert.False(t, ok)
	assert.False(t, svc.Loading())
}

func TestRefreshNoOpOnWrongChain(t *testing.T) {
	t.Parallel()

	fake := providertest.NewFake("0x1", account).
		WithFlags(provider.Flags{MetaMask: true})
	m := session.NewMachine(providertest.NewHost().WithInjected(fake), testRegistry(t),
		session.WithConnectTimeout(time.Second))
	t.Cleanup(m.Close)
	require.NoError(t, m.InitiateConnection(context.Background()))
	require.Equal(t, session.StateWrongChain, m.Snapshot().State)

	src := &fakeSource{snap: &Snapshot{Formatted: "1.0"}}
	svc := NewService(m, src)
	require.NoError(t, svc.Refresh(context.Background()))
	assert.Zero(t, src.fetches.Load())
}

func TestRefreshReplacesSnapshotWholesale(t *testing.T) {
	t.Parallel()

	m := connectedMachine(t, providertest.NewFake(targetChainHex, account))
	src := &fakeSource{snap: &Snapshot{Raw: wei("1000000000000000000"), Formatted: "1.0", CanClaim: true}}
	svc := NewService(m, src)

	require.NoError(t, svc.Refresh(context.Background()))
	snap, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "1.0", snap.Formatted)
	assert.True(t, snap.CanClaim)

	src.snap = &Snapshot{Raw: big.NewInt(0), Formatted: "0.0", CanClaim: false}
	require.NoError(t, svc.Refresh(context.Background()))
	snap, _ = svc.Current()
	assert.Equal(t, "0.0", snap.Formatted)
	assert.False(t, snap.CanClaim)
}

func TestFailedRefreshPreservesPreviousValues(t *testing.T) {
	t.Parallel()

	m := connectedMachine(t, providertest.NewFake(targetChainHex, account))
	src := &fakeSource{snap: &Snapshot{Formatted: "1.0", CanClaim: true}}
	svc := NewService(m, src)
	require.NoError(t, svc.Refresh(context.Background()))

	src.err = warderr.ErrNetworkOrTimeout
	err := svc.Refresh(context.Background())
	require.Error(t, err)

	snap, ok := svc.Current()
	require.True(t, ok, "stale-but-present beats blank")
	assert.Equal(t, "1.0", snap.Formatted)
	assert.Error(t, svc.LastError())
	assert.False(t, svc.Loading())

	// Recovery clears the recorded error.
	src.err = nil
	require.NoError(t, svc.Refresh(context.Background()))
	assert.NoError(t, svc.LastError())
}

// gateSource parks each fetch until the test hands it a result, so
// overlapping refreshes can be completed in a chosen order.
type gateSource struct {
	entered chan chan *Snapshot
}

func (g *gateSource) Fetch(ctx context.Context, _ provider.Provider, _ string) (*Snapshot, error) {
	reply := make(chan *Snapshot)
	g.entered <- reply
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestOverlappingRefreshesNewerWins(t *testing.T) {
	t.Parallel()

	m := connectedMachine(t, providertest.NewFake(targetChainHex, account))
	src := &gateSource{entered: make(chan chan *Snapshot)}
	svc := NewService(m, src)

	firstDone := make(chan error, 1)
	go func() { firstDone <- svc.Refresh(context.Background()) }()
	first := <-src.entered

	secondDone := make(chan error, 1)
	go func() { secondDone <- svc.Refresh(context.Background()) }()
	second := <-src.entered

	// The newer refresh lands first; the older one straggles in after it
	// and must not overwrite the newer snapshot.
	second <- &Snapshot{Formatted: "2.0", FetchedAt: time.Now()}
	require.NoError(t, <-secondDone)
	first <- &Snapshot{Formatted: "1.0", FetchedAt: time.Now()}
	require.NoError(t, <-firstDone)

	snap, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "2.0", snap.Formatted)
	assert.False(t, svc.Loading())
}

func TestInvalidateDropsInFlightRefresh(t *testing.T) {
	t.Parallel()

	m := connectedMachine(t, providertest.NewFake(targetChainHex, account))
	src := &gateSource{entered: make(chan chan *Snapshot)}
	svc := NewService(m, src)

	done := make(chan error, 1)
	go func() { done <- svc.Refresh(context.Background()) }()
	reply := <-src.entered

	svc.Invalidate()
	reply <- &Snapshot{Formatted: "1.0", FetchedAt: time.Now()}
	require.NoError(t, <-done)

	_, ok := svc.Current()
	assert.False(t, ok, "a fetch started before Invalidate cannot repopulate the snapshot")
	assert.False(t, svc.Loading())
}

func TestFeeRatePercent(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, Snapshot{FeeRateBps: 200}.FeeRatePercent(), 1e-9)
	assert.InDelta(t, 0.5, Snapshot{FeeRateBps: 50}.FeeRatePercent(), 1e-9)
}

func TestBuildSnapshotDerivesRateFromFee(t *testing.T) {
	t.Parallel()

	snap := buildSnapshot(
		wei("1000000000000000000"), // 1.0
		wei("100000000000000000"),  // 0.1
		wei("20000000000000000"),   // 0.02
		wei("980000000000000000"),  // 0.98
		true, 0)
	assert.Equal(t, int64(200), snap.FeeRateBps)
	assert.Equal(t, "1.0", snap.Formatted)
	assert.Equal(t, "0.02", snap.EstimatedFee)
	assert.Equal(t, "0.98", snap.EstimatedNet)
}

func TestRESTSourceFeeMath(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"data": warderapi.WalletBalance{UserAddress: account, CashbackBalance: "1.0"},
		}))
	}))
	defer srv.Close()

	src := NewRESTSource(warderapi.NewClient(srv.URL), testRegistry(t))
	snap, err := src.Fetch(context.Background(), nil, account)
	require.NoError(t, err)

	assert.Equal(t, "1.0", snap.Formatted)
	assert.Equal(t, "0.1", snap.MinimumClaim)
	assert.True(t, snap.CanClaim)
	assert.Equal(t, "0.02", snap.EstimatedFee)
	assert.Equal(t, "0.98", snap.EstimatedNet)
	assert.InDelta(t, 2.0, snap.FeeRatePercent(), 1e-9)
}

func TestRESTSourceBelowMinimum(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"data": warderapi.WalletBalance{UserAddress: account, CashbackBalance: "0.05"},
		}))
	}))
	defer srv.Close()

	src := NewRESTSource(warderapi.NewClient(srv.URL), testRegistry(t))
	snap, err := src.Fetch(context.Background(), nil, account)
	require.NoError(t, err)

	assert.Equal(t, "0.05", snap.Formatted)
	assert.False(t, snap.CanClaim)
}

// scriptContract answers eth_call by ABI selector so one fake serves
// every method of a source's read set.
func scriptContract(t *testing.T, fake *providertest.Fake, abiJSON string, results map[string][]any) {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	require.NoError(t, err)

	fake.Handle("eth_call", func(params []any) (any, error) {
		require.NotEmpty(t, params)
		encoded, err := json.Marshal(params[0])
		require.NoError(t, err)
		var msg struct {
			Data string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(encoded, &msg))
		data, err := hexutil.Decode(msg.Data)
		require.NoError(t, err)

		method, err := parsed.MethodById(data[:4])
		require.NoError(t, err)
		values, ok := results[method.Name]
		require.True(t, ok, "unscripted method %s", method.Name)

		packed, err := method.Outputs.Pack(values...)
		require.NoError(t, err)
		return hexutil.Encode(packed), nil
	})
}

func TestContractSourceFetch(t *testing.T) {
	t.Parallel()

	fake := providertest.NewFake(targetChainHex, account)
	scriptContract(t, fake, registry.CashbackWalletABI, map[string][]any{
		"getUserBalance":     {wei("1000000000000000000")},
		"minimumClaimAmount": {wei("100000000000000000")},
		"claimFeeRate":       {big.NewInt(200)},
		"canClaim":           {true},
		"calculateClaimFee":  {wei("20000000000000000"), wei("980000000000000000")},
	})

	src, err := NewContractSource(testRegistry(t))
	require.NoError(t, err)

	snap, err := src.Fetch(context.Background(), fake, account)
	require.NoError(t, err)
	assert.Equal(t, "1.0", snap.Formatted)
	assert.Equal(t, "0.1", snap.MinimumClaim)
	assert.True(t, snap.CanClaim)
	assert.Equal(t, int64(200), snap.FeeRateBps)
	assert.Equal(t, "0.02", snap.EstimatedFee)
	assert.Equal(t, "0.98", snap.EstimatedNet)
	assert.Equal(t, 5, fake.CallCount("eth_call"))
}

func TestFeeManagerSourceFetch(t *testing.T) {
	t.Parallel()

	fake := providertest.NewFake(targetChainHex, account)

	// Two contracts share the eth_call pipe; dispatch by selector across
	// both ABIs.
	cashbackABI, err := abi.JSON(strings.NewReader(registry.CashbackWalletABI))
	require.NoError(t, err)
	feeABI, err := abi.JSON(strings.NewReader(registry.FeeManagerABI))
	require.NoError(t, err)

	fake.Handle("eth_call", func(params []any) (any, error) {
		encoded, err := json.Marshal(params[0])
		require.NoError(t, err)
		var msg struct {
			Data string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(encoded, &msg))
		data, err := hexutil.Decode(msg.Data)
		require.NoError(t, err)

		if method, err := cashbackABI.MethodById(data[:4]); err == nil && method.Name == "getUserBalance" {
			packed, err := method.Outputs.Pack(wei("500000000000000000"))
			require.NoError(t, err)
			return hexutil.Encode(packed), nil
		}
		method, err := feeABI.MethodById(data[:4])
		require.NoError(t, err)
		switch method.Name {
		case "calculateFee":
			packed, err := method.Outputs.Pack(wei("10000000000000000"), wei("490000000000000000"))
			require.NoError(t, err)
			return hexutil.Encode(packed), nil
		case "feeRate":
			packed, err := method.Outputs.Pack(big.NewInt(200))
			require.NoError(t, err)
			return hexutil.Encode(packed), nil
		default:
			t.Fatalf("unscripted method %s", method.Name)
			return nil, nil
		}
	})

	cfg := config.Defaults()
	cfg.Claim.Strategy = "feemanager"
	cfg.Contracts.FeeManager = "0x469788fE6E9E9681C6ebF3bF78e7Fd26Fc015446"
	reg, err := registry.FromConfig(cfg)
	require.NoError(t, err)

	src, err := NewFeeManagerSource(reg)
	require.NoError(t, err)

	snap, err := src.Fetch(context.Background(), fake, account)
	require.NoError(t, err)
	assert.Equal(t, "0.5", snap.Formatted)
	assert.True(t, snap.CanClaim, "0.5 is above the configured 0.1 minimum")
	assert.Equal(t, "0.01", snap.EstimatedFee)
	assert.Equal(t, "0.49", snap.EstimatedNet)
	assert.Equal(t, int64(200), snap.FeeRateBps)
}

func TestPollerLifecycle(t *testing.T) {
	t.Parallel()

	fake := providertest.NewFake(targetChainHex, account)
	m := connectedMachine(t, fake)
	src := &fakeSource{snap: &Snapshot{Formatted: "1.0"}}
	svc := NewService(m, src)

	poller := NewPoller(m, svc, 10*time.Millisecond)
	poller.Start()
	defer poller.Stop()

	// Immediate refresh on entering the target chain, then the interval.
	require.Eventually(t, func() bool {
		return src.fetches.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	// Leaving the target chain stops the interval.
	fake.EmitChainChanged("0x1")
	require.Eventually(t, func() bool {
		return m.Snapshot().State == session.StateWrongChain
	}, time.Second, 5*time.Millisecond)

	settled := src.fetches.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, src.fetches.Load(), settled+1, "no refreshes off the target chain")

	// Returning restarts it.
	fake.EmitChainChanged(targetChainHex)
	resumed := src.fetches.Load()
	require.Eventually(t, func() bool {
		return src.fetches.Load() > resumed
	}, time.Second, 5*time.Millisecond)
}

func TestPollerInvalidatesOnDisconnect(t *testing.T) {
	t.Parallel()

	fake := providertest.NewFake(targetChainHex, account)
	m := connectedMachine(t, fake)
	src := &fakeSource{snap: &Snapshot{Formatted: "1.0"}}
	svc := NewService(m, src)

	poller := NewPoller(m, svc, 10*time.Millisecond)
	poller.Start()
	defer poller.Stop()

	require.Eventually(t, func() bool {
		_, ok := svc.Current()
		return ok
	}, time.Second, 5*time.Millisecond)

	m.Disconnect()
	require.Eventually(t, func() bool {
		_, ok := svc.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestPollerStopIsIdempotent(t *testing.T) {
	t.Parallel()

	m := session.NewMachine(providertest.NewHost(), testRegistry(t))
	t.Cleanup(m.Close)
	poller := NewPoller(m, NewService(m, &fakeSource{}), time.Millisecond)

	poller.Start()
	poller.Start()
	poller.Stop()
	poller.Stop()
}
