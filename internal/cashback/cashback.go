// Package cashback is the balance and fee query service. It owns the
// ClaimableBalance snapshot: fetched through a pluggable data source,
// rebuilt wholesale on every refresh, and polled while a session is
// connected on the target chain.
package cashback

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/Warder-Sonic/warder-wallet/internal/chain"
	"github.com/Warder-Sonic/warder-wallet/internal/config"
	"github.com/Warder-Sonic/warder-wallet/internal/metrics"
	"github.com/Warder-Sonic/warder-wallet/internal/provider"
	"github.com/Warder-Sonic/warder-wallet/internal/session"
)

// Snapshot is the claimable-balance view. It is immutable once built:
// a refresh replaces the whole snapshot, never patches fields, so
// readers cannot observe a torn mix of old and new values.
type Snapshot struct {
	Raw          *big.Int // smallest unit
	Formatted    string
	MinimumClaim string
	CanClaim     bool
	FeeRateBps   int64
	EstimatedFee string
	EstimatedNet string
	FetchedAt    time.Time
}

// FeeRatePercent returns the fee rate as a percentage for display.
// The rate is carried in basis points: 200 bps is 2%.
func (s Snapshot) FeeRatePercent() float64 {
	return float64(s.FeeRateBps) / 100
}

// BalanceSource fetches a claimable-balance snapshot for an account.
// The three deployment strategies (direct contract read, fee-manager
// split, backing REST API) all implement this so everything downstream
// is strategy-agnostic.
type BalanceSource interface {
	Fetch(ctx context.Context, p provider.Provider, account string) (*Snapshot, error)
}

// buildSnapshot normalizes raw source values into a Snapshot. A missing
// reported rate is derived from the fee/amount ratio when possible.
func buildSnapshot(raw, minimum, fee, net *big.Int, canClaim bool, rateBps int64) *Snapshot {
	if rateBps == 0 && raw != nil && raw.Sign() > 0 && fee != nil && fee.Sign() > 0 {
		derived := new(big.Int).Mul(fee, big.NewInt(10000))
		rateBps = derived.Div(derived, raw).Int64()
	}
	return &Snapshot{
		Raw:          raw,
		Formatted:    chain.FormatWei(raw),
		MinimumClaim: chain.FormatWei(minimum),
		CanClaim:     canClaim,
		FeeRateBps:   rateBps,
		EstimatedFee: chain.FormatWei(fee),
		EstimatedNet: chain.FormatWei(net),
		FetchedAt:    time.Now(),
	}
}

// feeSplit computes fee and net from a basis-point rate, for sources
// without a contract-side fee computation.
func feeSplit(raw *big.Int, rateBps int64) (fee, net *big.Int) {
	fee = new(big.Int).Mul(raw, big.NewInt(rateBps))
	fee.Div(fee, big.NewInt(10000))
	net = new(big.Int).Sub(raw, fee)
	return fee, net
}

// Service owns the current snapshot and applies refreshes.
type Service struct {
	machine *session.Machine
	source  BalanceSource
	log     *config.Logger

	mu      sync.Mutex
	current *Snapshot
	loading bool
	lastErr error

	// fetches orders overlapping refreshes: a fetch may only commit its
	// result while it is still the newest one started.
	fetches uint64
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the debug logger.
func WithServiceLogger(log *config.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// NewService creates a balance service reading through the given source.
func NewService(machine *session.Machine, source BalanceSource, opts ...ServiceOption) *Service {
	s := &Service{
		machine: machine,
		source:  source,
		log:     config.NullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh fetches a fresh snapshot. It is a no-op unless the session is
// connected on the target chain. A failed fetch keeps the previous
// snapshot: stale-but-present beats blank.
func (s *Service) Refresh(ctx context.Context) error {
	if !s.machine.OnChain() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return nil
	}

	prov := s.machine.ActiveProvider()
	account := s.machine.Account()
	if prov == nil || account == "" {
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.fetches++
	fetch := s.fetches
	s.mu.Unlock()

	start := time.Now()
	snap, err := s.source.Fetch(ctx, prov, account)
	metrics.Global.RecordRefresh(time.Since(start), err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if fetch != s.fetches {
		// A newer refresh started while this one was in flight. Its
		// result is authoritative, so this one is discarded whether it
		// succeeded or not.
		return err
	}
	s.loading = false
	if err != nil {
		s.lastErr = err
		s.log.Error("balance refresh failed: %v", err)
		return err
	}

	s.current = snap
	s.lastErr = nil
	s.log.Debug("balance refreshed account=%s balance=%s canClaim=%t",
		account, snap.Formatted, snap.CanClaim)
	return nil
}

// Current returns the latest snapshot, if one has been fetched.
func (s *Service) Current() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Snapshot{}, false
	}
	return *s.current, true
}

// Loading reports whether a refresh is in progress.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the error of the most recent failed refresh, or nil.
func (s *Service) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Invalidate drops the cached snapshot, for use on disconnect. An
// in-flight refresh started before the call cannot repopulate it.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	s.current = nil
	s.lastErr = nil
	s.loading = false
}
