// Package telemetry provides the engine's Prometheus metrics and leveled,
// per-component file logger. It has no dependency on the flow package —
// the engine depends on telemetry, never the reverse.
package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus-compatible counters/gauges/histograms for
// flow execution, namespaced "flowtools_": wave latency, node retries
// and failures, in-flight nodes, and flow completions by terminal
// status.
type Metrics struct {
	inflightNodes prometheus.Gauge

	waveLatency     *prometheus.HistogramVec
	nodeRetries     *prometheus.CounterVec
	nodeFailures    *prometheus.CounterVec
	flowCompletions *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewMetrics registers every instrument against registry. A nil registry
// falls back to prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	m := &Metrics{enabled: true}

	m.inflightNodes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowtools",
		Name:      "inflight_nodes",
		Help:      "Number of nodes currently executing within the active wave",
	})

	m.waveLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flowtools",
		Name:      "wave_latency_ms",
		Help:      "Wall-clock duration of a single scheduler wave, in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
	}, []string{"flow_id", "wave_index"})

	m.nodeRetries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowtools",
		Name:      "node_retries_total",
		Help:      "Cumulative count of node retry attempts",
	}, []string{"node_id", "reason"})

	m.nodeFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowtools",
		Name:      "node_failures_total",
		Help:      "Cumulative count of node failures after retries are exhausted",
	}, []string{"node_id", "kind"})

	m.flowCompletions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowtools",
		Name:      "flow_completions_total",
		Help:      "Cumulative count of flow executions by terminal status",
	}, []string{"status"})

	return m
}

// RecordWaveLatency observes a wave's duration.
func (m *Metrics) RecordWaveLatency(flowID string, waveIndex int, d time.Duration) {
	if !m.isEnabled() {
		return
	}
	m.waveLatency.WithLabelValues(flowID, strconv.Itoa(waveIndex)).Observe(float64(d.Milliseconds()))
}

// IncrementRetries increments the node retry counter.
func (m *Metrics) IncrementRetries(nodeID, reason string) {
	if !m.isEnabled() {
		return
	}
	m.nodeRetries.WithLabelValues(nodeID, reason).Inc()
}

// IncrementFailures increments the node failure counter.
func (m *Metrics) IncrementFailures(nodeID, kind string) {
	if !m.isEnabled() {
		return
	}
	m.nodeFailures.WithLabelValues(nodeID, kind).Inc()
}

// IncrementFlowCompletions increments the flow-completion counter for a
// terminal status ("completed", "failed", "cancelled").
func (m *Metrics) IncrementFlowCompletions(status string) {
	if !m.isEnabled() {
		return
	}
	m.flowCompletions.WithLabelValues(status).Inc()
}

// SetInflightNodes sets the current in-flight node gauge.
func (m *Metrics) SetInflightNodes(n int) {
	if !m.isEnabled() {
		return
	}
	m.inflightNodes.Set(float64(n))
}

// Disable stops metric recording (useful for tests sharing a registry).
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

// Enable resumes metric recording after Disable.
func (m *Metrics) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

func (m *Metrics) isEnabled() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}
