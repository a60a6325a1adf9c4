package flow

import "errors"

// Sentinel error kinds. Callers compare with errors.Is; wrapped detail is
// attached with fmt.Errorf("...: %w", ErrX).
var (
	// ErrValidation marks a malformed graph: unknown edge endpoint, cycle,
	// missing dependency, non-callable predicate, or no entry nodes.
	ErrValidation = errors.New("flow: validation error")

	// ErrNodeInput marks a node whose validate-input step rejected the
	// supplied data. It never consumes a retry attempt.
	ErrNodeInput = errors.New("flow: node input error")

	// ErrNodeAttempt marks a node whose execute-core raised or timed out
	// on an individual attempt. Retried per the node's policy.
	ErrNodeAttempt = errors.New("flow: node attempt error")

	// ErrScheduler marks an error that escaped the wave loop itself,
	// rather than being captured into a node's own result.
	ErrScheduler = errors.New("flow: scheduler error")

	// ErrMisuse marks a caller error: non-map input to ExecuteFlow, an
	// unregistered registry kind, a node added without an id, and similar.
	ErrMisuse = errors.New("flow: misuse error")
)
