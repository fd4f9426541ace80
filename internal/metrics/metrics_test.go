package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

func TestMetrics_RecordRefresh(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordRefresh(100*time.Millisecond, nil)
	m.RecordRefresh(50*time.Millisecond, warderr.ErrNetworkOrTimeout)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.RefreshesTotal)
	assert.Equal(t, int64(1), snap.RefreshErrors)
}

func TestMetrics_RefreshLatencyAvg(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	// No refreshes yet
	assert.InDelta(t, 0.0, m.RefreshLatencyAvgMs(), 0.001)

	// Two refreshes: 100ms and 200ms = 150ms avg
	m.RecordRefresh(100*time.Millisecond, nil)
	m.RecordRefresh(200*time.Millisecond, nil)

	assert.InDelta(t, 150.0, m.RefreshLatencyAvgMs(), 1.0)
}

func TestMetrics_RecordConnect(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordConnect(nil)
	m.RecordConnect(warderr.ErrUserRejected)
	m.RecordDisconnect()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.ConnectsTotal)
	assert.Equal(t, int64(1), snap.ConnectErrors)
	assert.Equal(t, int64(1), snap.Disconnects)
}

func TestMetrics_RecordClaim(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordClaimSubmitted()
	m.RecordClaimOutcome(nil)
	m.RecordClaimSubmitted()
	m.RecordClaimOutcome(warderr.ErrTxFailed)
	m.RecordApproval()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.ClaimsSubmitted)
	assert.Equal(t, int64(1), snap.ClaimsSucceeded)
	assert.Equal(t, int64(1), snap.ClaimsFailed)
	assert.Equal(t, int64(1), snap.ApprovalsTotal)
}

func TestMetrics_Reset(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordRefresh(time.Millisecond, nil)
	m.RecordConnect(nil)
	m.RecordClaimSubmitted()
	m.Reset()

	assert.Equal(t, Snapshot{}, m.Snapshot())
}
