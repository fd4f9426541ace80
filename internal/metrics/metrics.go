// Package metrics provides application-level metrics collection.
// This is a lightweight metrics foundation using atomic counters.
// For production observability, consider integrating with Prometheus or similar.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Balance refresh metrics
	refreshesTotal  atomic.Int64
	refreshErrors   atomic.Int64
	refreshLatNanos atomic.Int64

	// Connection metrics
	connectsTotal atomic.Int64
	connectErrors atomic.Int64
	disconnects   atomic.Int64

	// Claim metrics
	claimsSubmitted atomic.Int64
	claimsSucceeded atomic.Int64
	claimsFailed    atomic.Int64
	approvalsTotal  atomic.Int64
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRefresh records a balance refresh with its duration and outcome.
func (m *Metrics) RecordRefresh(duration time.Duration, err error) {
	m.refreshesTotal.Add(1)
	m.refreshLatNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.refreshErrors.Add(1)
	}
}

// RecordConnect records a connection attempt.
func (m *Metrics) RecordConnect(err error) {
	m.connectsTotal.Add(1)
	if err != nil {
		m.connectErrors.Add(1)
	}
}

// RecordDisconnect records a session teardown.
func (m *Metrics) RecordDisconnect() {
	m.disconnects.Add(1)
}

// RecordClaimSubmitted records a claim transaction reaching the wire.
func (m *Metrics) RecordClaimSubmitted() {
	m.claimsSubmitted.Add(1)
}

// RecordClaimOutcome records a confirmed claim result.
func (m *Metrics) RecordClaimOutcome(err error) {
	if err != nil {
		m.claimsFailed.Add(1)
		return
	}
	m.claimsSucceeded.Add(1)
}

// RecordApproval records an allowance approval attempt.
func (m *Metrics) RecordApproval() {
	m.approvalsTotal.Add(1)
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	RefreshesTotal  int64
	RefreshErrors   int64
	RefreshLatNanos int64
	ConnectsTotal   int64
	ConnectErrors   int64
	Disconnects     int64
	ClaimsSubmitted int64
	ClaimsSucceeded int64
	ClaimsFailed    int64
	ApprovalsTotal  int64
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RefreshesTotal:  m.refreshesTotal.Load(),
		RefreshErrors:   m.refreshErrors.Load(),
		RefreshLatNanos: m.refreshLatNanos.Load(),
		ConnectsTotal:   m.connectsTotal.Load(),
		ConnectErrors:   m.connectErrors.Load(),
		Disconnects:     m.disconnects.Load(),
		ClaimsSubmitted: m.claimsSubmitted.Load(),
		ClaimsSucceeded: m.claimsSucceeded.Load(),
		ClaimsFailed:    m.claimsFailed.Load(),
		ApprovalsTotal:  m.approvalsTotal.Load(),
	}
}

// RefreshLatencyAvgMs returns the average refresh latency in
// milliseconds, or 0 before the first refresh.
func (m *Metrics) RefreshLatencyAvgMs() float64 {
	refreshes := m.refreshesTotal.Load()
	if refreshes == 0 {
		return 0
	}
	nanos := m.refreshLatNanos.Load()
	return float64(nanos) / float64(refreshes) / 1e6
}

// Reset resets all metrics to zero.
// Useful for testing.
func (m *Metrics) Reset() {
	m.refreshesTotal.Store(0)
	m.refreshErrors.Store(0)
	m.refreshLatNanos.Store(0)
	m.connectsTotal.Store(0)
	m.connectErrors.Store(0)
	m.disconnects.Store(0)
	m.claimsSubmitted.Store(0)
	m.claimsSucceeded.Store(0)
	m.claimsFailed.Store(0)
	m.approvalsTotal.Store(0)
}
