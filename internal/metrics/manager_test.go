package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RegistersCollectors(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.CounterRemoteRequests.WithLabelValues("fetch", OutcomeOK).Inc()
	m.CounterConflictRetry.Inc()
	m.CounterLocalWrites.WithLabelValues("written").Inc()
	m.CounterRecords.WithLabelValues("true").Inc()
	m.CounterRequests.WithLabelValues("GET", "200").Inc()
	m.HistRemoteDuration.WithLabelValues("fetch").Observe(0.2)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterConflictRetry))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRemoteRequests.WithLabelValues("fetch", OutcomeOK)))
}

func TestNewTestManager_Independent(t *testing.T) {
	// separate registries must not panic on duplicate registration
	a := NewTestManager()
	b := NewTestManager()
	a.CounterConflictRetry.Inc()

	assert.Equal(t, 0.0, testutil.ToFloat64(b.CounterConflictRetry))
}
