package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetricsRecordOnce verifies each recording call increments its
// instrument exactly once.
func TestMetricsRecordOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.IncrementFailures("n1", "custom")
	m.IncrementRetries("n1", "error")
	m.IncrementRetries("n1", "error")
	m.IncrementFlowCompletions("completed")
	m.SetInflightNodes(3)
	m.RecordWaveLatency("f1", 0, 25*time.Millisecond)

	if got := testutil.ToFloat64(m.nodeFailures.WithLabelValues("n1", "custom")); got != 1 {
		t.Errorf("nodeFailures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.nodeRetries.WithLabelValues("n1", "error")); got != 2 {
		t.Errorf("nodeRetries = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.flowCompletions.WithLabelValues("completed")); got != 1 {
		t.Errorf("flowCompletions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.inflightNodes); got != 3 {
		t.Errorf("inflightNodes = %v, want 3", got)
	}
}

// TestNilMetricsSafe verifies every method tolerates a nil receiver, so
// engines without metrics never guard-check.
func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.IncrementFailures("n", "k")
	m.IncrementRetries("n", "r")
	m.IncrementFlowCompletions("completed")
	m.SetInflightNodes(1)
	m.RecordWaveLatency("f", 0, time.Millisecond)
}

// TestDisableStopsRecording verifies Disable/Enable gate the
// instruments.
func TestDisableStopsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Disable()
	m.IncrementFlowCompletions("completed")
	if got := testutil.ToFloat64(m.flowCompletions.WithLabelValues("completed")); got != 0 {
		t.Errorf("disabled counter = %v, want 0", got)
	}

	m.Enable()
	m.IncrementFlowCompletions("completed")
	if got := testutil.ToFloat64(m.flowCompletions.WithLabelValues("completed")); got != 1 {
		t.Errorf("re-enabled counter = %v, want 1", got)
	}
}
