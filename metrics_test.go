// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	a, err := NewMetrics(reg, "a")
	require.NoError(t, err)

	_, err = NewMetrics(reg, "a")
	var already prometheus.AlreadyRegisteredError
	require.True(t, errors.As(err, &already), "got %v", err)

	b, err := NewMetrics(reg, "b")
	require.NoError(t, err)

	a.RecordEviction()
	b.RecordEviction()
	b.RecordEviction()
	assert.InDelta(t, 1, testutil.ToFloat64(a.evictionsTotal), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(b.evictionsTotal), 0)

	a.Unregister()
	_, err = NewMetrics(reg, "a")
	require.NoError(t, err)
}

func TestMetricsRecorders(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics(prometheus.NewRegistry(), "ctx")
	require.NoError(t, err)

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("hit")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("miss")), 0)

	m.RecordBufferLoad("async", nil, 0.01)
	m.RecordBufferLoad("async", errors.New("boom"), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.bufferLoadsTotal.WithLabelValues("async", "ready")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.bufferLoadsTotal.WithLabelValues("async", "failed")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.decodeDuration))

	m.RecordQueuedLoad()
	m.RecordQueuedLoad()
	m.RecordQueuedLoad()
	m.RecordWorkerJob()
	m.RecordDiscardedLoad()
	assert.InDelta(t, 1, testutil.ToFloat64(m.pendingLoads), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.workerJobs), 0)

	m.SetStreamingSources(3)
	assert.InDelta(t, 3, testutil.ToFloat64(m.streamingSources), 0)
}
