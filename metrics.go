// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for one Context.
type Metrics struct {
	registerer prometheus.Registerer

	cacheLookupsTotal *prometheus.CounterVec
	bufferLoadsTotal  *prometheus.CounterVec
	decodeDuration    *prometheus.HistogramVec
	evictionsTotal    prometheus.Counter
	workerCycles      prometheus.Counter
	workerJobs        prometheus.Counter
	streamingSources  prometheus.Gauge
	pendingLoads      prometheus.Gauge
}

// NewMetrics creates and registers the metrics of the context identified
// by contextID.
func NewMetrics(registerer prometheus.Registerer, contextID string) (*Metrics, error) {
	m := &Metrics{registerer: registerer}
	m.initMetrics(prometheus.Labels{"context": contextID})
	if err := registerer.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics(constLabels prometheus.Labels) {
	m.cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "audmgr_buffer_cache_lookups_total",
			Help:        "Total number of buffer cache lookups",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // result: hit, miss
	)

	m.bufferLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "audmgr_buffer_loads_total",
			Help:        "Total number of buffer loads",
			ConstLabels: constLabels,
		},
		[]string{"path", "result"}, // path: sync, async; result: ready, failed
	)

	m.decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "audmgr_buffer_decode_duration_seconds",
			Help:        "Time taken to decode a whole buffer",
			ConstLabels: constLabels,
			// 1ms to ~4s
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"path"},
	)

	m.evictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "audmgr_voice_evictions_total",
		Help:        "Total number of sources stopped to free a voice",
		ConstLabels: constLabels,
	})

	m.workerCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "audmgr_worker_cycles_total",
		Help:        "Total number of background worker refill passes",
		ConstLabels: constLabels,
	})

	m.workerJobs = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "audmgr_worker_jobs_total",
		Help:        "Total number of load jobs processed by the background worker",
		ConstLabels: constLabels,
	})

	m.streamingSources = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "audmgr_streaming_sources",
		Help:        "Number of sources registered for stream refills",
		ConstLabels: constLabels,
	})

	m.pendingLoads = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "audmgr_pending_loads",
		Help:        "Number of load jobs waiting for the background worker",
		ConstLabels: constLabels,
	})
}

// Describe implements the prometheus.Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.cacheLookupsTotal.Describe(ch)
	m.bufferLoadsTotal.Describe(ch)
	m.decodeDuration.Describe(ch)
	m.evictionsTotal.Describe(ch)
	m.workerCycles.Describe(ch)
	m.workerJobs.Describe(ch)
	m.streamingSources.Describe(ch)
	m.pendingLoads.Describe(ch)
}

// Collect implements the prometheus.Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.cacheLookupsTotal.Collect(ch)
	m.bufferLoadsTotal.Collect(ch)
	m.decodeDuration.Collect(ch)
	m.evictionsTotal.Collect(ch)
	m.workerCycles.Collect(ch)
	m.workerJobs.Collect(ch)
	m.streamingSources.Collect(ch)
	m.pendingLoads.Collect(ch)
}

// Unregister removes the metrics from the registerer they were added to.
func (m *Metrics) Unregister() {
	m.registerer.Unregister(m)
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordBufferLoad(path string, err error, seconds float64) {
	result := "ready"
	if err != nil {
		result = "failed"
	}
	m.bufferLoadsTotal.WithLabelValues(path, result).Inc()
	if err == nil {
		m.decodeDuration.WithLabelValues(path).Observe(seconds)
	}
}

func (m *Metrics) RecordEviction() {
	m.evictionsTotal.Inc()
}

func (m *Metrics) RecordWorkerCycle() {
	m.workerCycles.Inc()
}

func (m *Metrics) RecordWorkerJob() {
	m.workerJobs.Inc()
	m.pendingLoads.Dec()
}

func (m *Metrics) RecordDiscardedLoad() {
	m.pendingLoads.Dec()
}

func (m *Metrics) RecordQueuedLoad() {
	m.pendingLoads.Inc()
}

func (m *Metrics) SetStreamingSources(n int) {
	m.streamingSources.Set(float64(n))
}
