// Package emit defines the engine's event emission contract and its
// concrete sinks: a no-op, a structured logger, an in-memory buffer, and
// an OpenTelemetry span emitter.
package emit

import "context"

// Emitter receives observability events as the scheduler dispatches,
// succeeds, and fails nodes, and as flows start and finish. Backends
// (logging, tracing, metrics) all implement it the same way.
//
// Implementations must not block the scheduler and must not panic;
// buffer or drop on backend failure instead.
type Emitter interface {
	// Emit sends a single event.
	Emit(event Event)

	// EmitBatch sends events in order. Returns an error only on
	// catastrophic failure; individual event delivery failures should be
	// absorbed internally.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until every buffered event has been sent, or ctx
	// expires. Safe to call more than once.
	Flush(ctx context.Context) error
}
