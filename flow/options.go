package flow

import (
	"time"

	"github.com/flowtools-go/flowtools/flow/emit"
	"github.com/flowtools-go/flowtools/flow/telemetry"
)

// Option configures an Engine at construction time, following the
// teacher's functional-options convention (graph/options.go).
type Option func(*Engine)

// WithMaxConcurrentNodes bounds the number of parallel-safe nodes a
// single wave may run concurrently, enforced as a counting semaphore.
// Default 10.
func WithMaxConcurrentNodes(n int) Option {
	return func(e *Engine) { e.maxConcurrentNodes = n }
}

// WithGlobalTimeout sets the wall-clock cap on an entire ExecuteFlow
// call. Default 300s.
func WithGlobalTimeout(d time.Duration) Option {
	return func(e *Engine) { e.globalTimeout = d }
}

// WithParallelExecution toggles whether a wave launches parallel-safe
// candidates concurrently at all. Default true.
func WithParallelExecution(enabled bool) Option {
	return func(e *Engine) { e.enableParallel = enabled }
}

// WithEmitter attaches an event emitter. Default a no-op NullEmitter.
func WithEmitter(em emit.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithEngineLogger attaches a per-component file logger.
func WithEngineLogger(l *telemetry.Logger) Option {
	return func(e *Engine) {
		e.logger = l
		e.compLogger = l.Component("engine")
	}
}

// WithMetrics attaches a Prometheus metrics collector. Default nil
// (disabled; every Metrics method is nil-safe).
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}
