// Package session owns the wallet connection lifecycle. The Machine is
// the single writer of connection state: every user operation and every
// provider-pushed event funnels through it, and everything else in the
// client only reads snapshots.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/Warder-Sonic/warder-wallet/internal/config"
	"github.com/Warder-Sonic/warder-wallet/internal/discovery"
	"github.com/Warder-Sonic/warder-wallet/internal/metrics"
	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	"github.com/Warder-Sonic/warder-wallet/internal/registry"
	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// State is the connection state.
type State int

// Connection states.
const (
	StateDisconnected State = iota
	StateSelectingWallet
	StateConnecting
	StateWrongChain
	StateOnChain
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateSelectingWallet:
		return "selecting-wallet"
	case StateConnecting:
		return "connecting"
	case StateWrongChain:
		return "connected-wrong-chain"
	case StateOnChain:
		return "connected"
	default:
		return "unknown"
	}
}

// Connected reports whether the state carries an authorized account.
func (s State) Connected() bool {
	return s == StateWrongChain || s == StateOnChain
}

// Snapshot is a read-only copy of the session published to observers.
type Snapshot struct {
	State      State
	Account    string
	ChainID    int64
	Wallet     string
	Candidates []discovery.Candidate
	Loading    bool
	Err        error
}

// Default timing parameters.
const (
	// DefaultConnectTimeout bounds eth_requestAccounts. Some providers
	// hang forever on a dismissed prompt instead of rejecting.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultRevalidateInterval is how often a live session re-checks
	// that the provider's signer still matches the recorded account.
	DefaultRevalidateInterval = 10 * time.Second
)

// Machine is the connection state machine.
type Machine struct {
	host discovery.Host
	reg  *registry.Registry
	log  *config.Logger

	connectTimeout     time.Duration
	revalidateInterval time.Duration

	mu         sync.Mutex
	state      State
	account    string
	chainID    int64
	wallet     string
	prov       provider.Provider
	candidates []discovery.Candidate
	loading    bool
	lastErr    error

	// gen increments on every teardown so an operation suspended across
	// a wallet prompt cannot resurrect a session that ended meanwhile.
	gen uint64

	events      chan provider.Event
	unsubscribe func()
	stopLoop    context.CancelFunc
	loopDone    chan struct{}

	watchers    map[int]chan Snapshot
	nextWatcher int
	closed      bool
}

// Option customizes a Machine.
type Option func(*Machine)

// WithLogger sets the debug logger.
func WithLogger(log *config.Logger) Option {
	return func(m *Machine) { m.log = log }
}

// WithConnectTimeout overrides the account-request timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Machine) { m.connectTimeout = d }
}

// WithRevalidateInterval overrides the signer re-validation cadence.
func WithRevalidateInterval(d time.Duration) Option {
	return func(m *Machine) { m.revalidateInterval = d }
}

// NewMachine creates a disconnected state machine over the given host
// environment and chain registry.
func NewMachine(host discovery.Host, reg *registry.Registry, opts ...Option) *Machine {
	m := &Machine{
		host:               host,
		reg:                reg,
		log:                config.NullLogger(),
		connectTimeout:     DefaultConnectTimeout,
		revalidateInterval: DefaultRevalidateInterval,
		watchers:           make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current session state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	candidates := make([]discovery.Candidate, len(m.candidates))
	copy(candidates, m.candidates)
	return Snapshot{
		State:      m.state,
		Account:    m.account,
		ChainID:    m.chainID,
		Wallet:     m.wallet,
		Candidates: candidates,
		Loading:    m.loading,
		Err:        m.lastErr,
	}
}

// Watch registers an observer. The channel carries the latest snapshot
// after every transition; a slow reader only ever misses intermediate
// states, never the newest one. The returned function unregisters.
func (m *Machine) Watch() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextWatcher
	m.nextWatcher++
	ch := make(chan Snapshot, 1)
	m.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.watchers, id)
		})
	}
}

func (m *Machine) notifyLocked() {
	snap := m.snapshotLocked()
	for _, ch := range m.watchers {
		// Replace a pending snapshot instead of blocking.
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// ActiveProvider returns the connected wallet provider, or nil.
func (m *Machine) ActiveProvider() provider.Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Connected() {
		return nil
	}
	return m.prov
}

// Account returns the connected account address, or "".
func (m *Machine) Account() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account
}

// OnChain reports whether the session is connected on the target chain.
func (m *Machine) OnChain() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateOnChain
}

// InitiateConnection runs wallet discovery and either connects directly
// (one candidate), offers a selection (two or more), or records that no
// wallet is installed.
func (m *Machine) InitiateConnection(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Connected() || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}

	candidates := discovery.List(m.host)
	m.candidates = candidates

	switch len(candidates) {
	case 0:
		m.lastErr = warderr.ErrNoWalletFound
		m.state = StateDisconnected
		m.notifyLocked()
		m.mu.Unlock()
		return warderr.ErrNoWalletFound

	case 1:
		m.mu.Unlock()
		return m.connectCandidate(ctx, candidates[0])

	default:
		m.state = StateSelectingWallet
		m.lastErr = nil
		m.notifyLocked()
		m.mu.Unlock()
		return nil
	}
}

// ConnectToWallet connects to the named wallet.
func (m *Machine) ConnectToWallet(ctx context.Context, name string) error {
	cand, ok := discovery.Find(m.host, name)
	if !ok {
		err := warderr.WithDetails(warderr.ErrWalletNotFound, walletDetails(m.host, name))
		m.mu.Lock()
		m.lastErr = err
		m.notifyLocked()
		m.mu.Unlock()
		return err
	}
	return m.connectCandidate(ctx, cand)
}

func walletDetails(host discovery.Host, name string) map[string]string {
	details := map[string]string{"wallet": name}
	if suggestion := discovery.Suggest(host, name); suggestion != "" {
		details["did_you_mean"] = suggestion
	}
	return details
}

// connectCandidate performs the account request and commits the result.
// The wallet prompt is a suspension point, so the committed state is
// re-derived from fresh provider queries afterwards rather than from
// anything captured before it.
func (m *Machine) connectCandidate(ctx context.Context, cand discovery.Candidate) error {
	m.mu.Lock()
	m.teardownLocked()
	gen := m.gen
	m.state = StateConnecting
	m.loading = true
	m.lastErr = nil
	m.notifyLocked()
	m.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	accounts, err := provider.RequestAccounts(reqCtx, cand.Provider)
	if err == nil && len(accounts) == 0 {
		err = warderr.WithDetails(warderr.ErrNotConnected, map[string]string{
			"wallet": cand.Name,
		})
	}
	if err != nil {
		return m.failConnect(gen, provider.ClassifyRequestError(err))
	}

	// Validate the signer independently of the prompt result.
	current, err := provider.Accounts(reqCtx, cand.Provider)
	if err != nil {
		return m.failConnect(gen, provider.ClassifyRequestError(err))
	}
	if len(current) == 0 || !provider.SameAddress(current[0], accounts[0]) {
		return m.failConnect(gen, warderr.ErrValidationFailed)
	}

	chainID, err := provider.ChainID(reqCtx, cand.Provider)
	if err != nil {
		return m.failConnect(gen, provider.ClassifyRequestError(err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return nil // superseded by disconnect or a newer connect
	}

	m.commitConnectedLocked(cand, current[0], chainID)
	m.log.Debug("connected wallet=%s account=%s chain=%d state=%s",
		cand.Name, current[0], chainID, m.state)
	return nil
}

// failConnect records a classified connection failure, unless the
// session moved on while the request was suspended.
func (m *Machine) failConnect(gen uint64, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return nil
	}

	m.state = StateDisconnected
	m.loading = false
	m.lastErr = cause
	m.log.Error("connect failed: %v", cause)
	metrics.Global.RecordConnect(cause)
	m.notifyLocked()
	return cause
}

// commitConnectedLocked installs the connected session and starts the
// event loop and revalidation timer.
func (m *Machine) commitConnectedLocked(cand discovery.Candidate, account string, chainID int64) {
	m.prov = cand.Provider
	m.wallet = cand.Name
	m.account = account
	m.chainID = chainID
	m.loading = false
	m.lastErr = nil
	m.state = m.deriveChainStateLocked(chainID)

	m.events = make(chan provider.Event, 16)
	m.unsubscribe = cand.Provider.Subscribe(m.events)

	loopCtx, cancel := context.WithCancel(context.Background())
	m.stopLoop = cancel
	m.loopDone = make(chan struct{})
	go m.run(loopCtx, m.gen, m.events, m.loopDone)

	metrics.Global.RecordConnect(nil)

	m.notifyLocked()
}

func (m *Machine) deriveChainStateLocked(chainID int64) State {
	if chainID == m.reg.Chain.ID {
		return StateOnChain
	}
	return StateWrongChain
}

// CancelSelection abandons the wallet picker.
func (m *Machine) CancelSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateSelectingWallet {
		return
	}
	m.state = StateDisconnected
	m.lastErr = nil
	m.notifyLocked()
}

// SwitchToTargetChain moves the connected wallet onto the target chain.
// When the provider does not know the chain it is registered first and
// the switch retried exactly once; any other rejection keeps the
// session connected on the wrong chain.
func (m *Machine) SwitchToTargetChain(ctx context.Context) error {
	m.mu.Lock()
	if !m.state.Connected() {
		m.mu.Unlock()
		return warderr.ErrNotConnected
	}
	if m.state == StateOnChain {
		m.mu.Unlock()
		return nil
	}
	gen := m.gen
	prov := m.prov
	m.mu.Unlock()

	targetHex := m.reg.Chain.IDHex()
	err := provider.SwitchChain(ctx, prov, targetHex)
	if err != nil && provider.CodeOf(err) == provider.CodeUnknownChain {
		if addErr := provider.AddChain(ctx, prov, m.reg.Chain.AddChainParams()); addErr != nil {
			return m.failSwitch(gen, provider.ClassifyRequestError(addErr))
		}
		err = provider.SwitchChain(ctx, prov, targetHex)
	}
	if err != nil {
		return m.failSwitch(gen, provider.ClassifyRequestError(err))
	}

	// Re-derive from the provider instead of assuming the switch stuck.
	chainID, err := provider.ChainID(ctx, prov)
	if err != nil {
		return m.failSwitch(gen, provider.ClassifyRequestError(err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || !m.state.Connected() {
		return nil
	}
	m.chainID = chainID
	m.state = m.deriveChainStateLocked(chainID)
	m.lastErr = nil
	m.notifyLocked()
	return nil
}

func (m *Machine) failSwitch(gen uint64, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || !m.state.Connected() {
		return nil
	}
	m.lastErr = cause
	m.log.Error("chain switch failed: %v", cause)
	m.notifyLocked()
	return cause
}

// Disconnect ends the session.
func (m *Machine) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Connected() {
		metrics.Global.RecordDisconnect()
	}
	m.teardownLocked()
	m.state = StateDisconnected
	m.lastErr = nil
	m.notifyLocked()
}

// Resume attempts silent reattachment: if an installed wallet already
// reports authorized accounts via the passive query, the session is
// restored without prompting. Never opens a permission prompt.
func (m *Machine) Resume(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Connected() || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}
	candidates := discovery.List(m.host)
	m.candidates = candidates
	m.mu.Unlock()

	for _, cand := range candidates {
		accounts, err := provider.Accounts(ctx, cand.Provider)
		if err != nil || len(accounts) == 0 {
			continue
		}
		chainID, err := provider.ChainID(ctx, cand.Provider)
		if err != nil {
			continue
		}

		m.mu.Lock()
		if m.state.Connected() || m.state == StateConnecting {
			m.mu.Unlock()
			return nil
		}
		m.commitConnectedLocked(cand, accounts[0], chainID)
		m.log.Debug("resumed session wallet=%s account=%s", cand.Name, accounts[0])
		m.mu.Unlock()
		return nil
	}
	return nil
}

// Close tears the machine down and releases all observers.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.teardownLocked()
	m.state = StateDisconnected
	for id, ch := range m.watchers {
		close(ch)
		delete(m.watchers, id)
	}
}

// teardownLocked ends the live session: the provider listener is
// unregistered and the event loop stopped on every exit path so no
// callback outlives its session.
func (m *Machine) teardownLocked() {
	m.gen++
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.stopLoop != nil {
		m.stopLoop()
		m.stopLoop = nil
	}
	m.events = nil
	m.loopDone = nil
	m.prov = nil
	m.account = ""
	m.chainID = 0
	m.wallet = ""
	m.loading = false
}

// run consumes provider-pushed events and runs periodic signer
// re-validation for one session generation.
func (m *Machine) run(ctx context.Context, gen uint64, events <-chan provider.Event, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.revalidateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			m.handleEvent(gen, ev)
		case <-ticker.C:
			m.revalidate(ctx, gen)
		}
	}
}

// handleEvent applies a provider-pushed event as an ordinary transition.
// The loop keeps draining its buffer for a moment after teardown cancels
// it, so an event from an ended session can arrive here while a newer
// session is live; the generation check drops it instead of letting it
// overwrite freshly validated state.
func (m *Machine) handleEvent(gen uint64, ev provider.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || !m.state.Connected() {
		return
	}

	switch ev.Kind {
	case provider.EventAccountsChanged:
		if len(ev.Accounts) == 0 {
			// Wallet locked or access revoked. Not a failure.
			m.log.Debug("accounts revoked, disconnecting")
			metrics.Global.RecordDisconnect()
			m.teardownLocked()
			m.state = StateDisconnected
			m.lastErr = nil
			m.notifyLocked()
			return
		}
		if !provider.SameAddress(ev.Accounts[0], m.account) {
			m.log.Debug("active account changed to %s", ev.Accounts[0])
			m.account = ev.Accounts[0]
			m.notifyLocked()
		}

	case provider.EventChainChanged:
		chainID, err := provider.ParseChainID(ev.ChainIDHex)
		if err != nil {
			m.log.Error("unparseable chainChanged payload %q", ev.ChainIDHex)
			return
		}
		m.chainID = chainID
		m.state = m.deriveChainStateLocked(chainID)
		m.notifyLocked()
	}
}

// revalidate checks that the provider's signer still matches the
// recorded account and force-disconnects on mismatch. This guards
// against providers that rotate the active account without an event.
func (m *Machine) revalidate(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if m.gen != gen || !m.state.Connected() {
		m.mu.Unlock()
		return
	}
	prov := m.prov
	recorded := m.account
	m.mu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	accounts, err := provider.Accounts(checkCtx, prov)
	if err != nil {
		m.log.Error("revalidation query failed: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || !m.state.Connected() || !provider.SameAddress(recorded, m.account) {
		return
	}

	if len(accounts) == 0 {
		metrics.Global.RecordDisconnect()
		m.teardownLocked()
		m.state = StateDisconnected
		m.lastErr = nil
		m.notifyLocked()
		return
	}
	if !provider.SameAddress(accounts[0], recorded) {
		m.log.Error("signer mismatch: have %s, provider reports %s", recorded, accounts[0])
		metrics.Global.RecordDisconnect()
		m.teardownLocked()
		m.state = StateDisconnected
		m.lastErr = warderr.ErrValidationFailed
		m.notifyLocked()
	}
}
