package flow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Node is the polymorphic capability every graph vertex satisfies. The
// scheduler depends on nothing else: agent, tool, context, and composite
// nodes all implement this contract identically as far as the engine is
// concerned.
type Node interface {
	// ID returns the node's stable identity, unique within a flow.
	ID() string

	// Kind reports the node's tag for introspection, logging, and the
	// registry. The scheduler treats all kinds identically.
	Kind() Kind

	// Execute runs the node's policy (validation, timeout, retry) and
	// never returns an error to the caller — failures are reported
	// inside the returned Result.
	Execute(ctx context.Context, input Data) Result

	// ValidateInput performs a cheap structural check of input before an
	// attempt is made. A false return short-circuits to a failed result
	// without consuming a retry.
	ValidateInput(input Data) bool

	// OutputSchema advertises the shape of a successful payload. Purely
	// advisory; the scheduler never consults it.
	OutputSchema() Data

	// Dependencies lists ids this node logically requires to be present
	// in the graph. Validation checks these; the scheduler does not use
	// them for ordering.
	Dependencies() []string

	// ParallelSafe reports whether this node may run concurrently with
	// other parallel-safe nodes in the same wave.
	ParallelSafe() bool

	// Status returns the node's current lifecycle state.
	Status() Status

	// Stats returns a point-in-time introspection snapshot.
	Stats() ComponentStats
}

// Logger is the minimal capability a node needs to surface warnings about
// its own internal decisions (e.g. a Parallel node skipping a non-
// parallel-safe child). It is satisfied structurally by
// flow/telemetry.Logger without the core depending on that package.
type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

type noopLogger struct{}

func (noopLogger) Warn(string, map[string]interface{}) {}

// CoreFunc is the user logic a BaseNode wraps with the retry/timeout
// policy. It may block; every call runs on its own goroutine regardless
// of whether the underlying work is actually synchronous or asynchronous,
// since Go has no separate function-color distinction to preserve.
type CoreFunc func(ctx context.Context, input Data) (Data, error)

// NodeOption configures a BaseNode at construction time.
type NodeOption func(*BaseNode)

// WithTimeout sets the per-attempt timeout. Default 30s.
func WithTimeout(d time.Duration) NodeOption {
	return func(n *BaseNode) { n.timeout = d }
}

// WithRetries sets the number of additional attempts beyond the first.
// Default 0.
func WithRetries(n int) NodeOption {
	return func(b *BaseNode) { b.retries = n }
}

// WithParallelSafe overrides the default parallel-safe flag (true).
func WithParallelSafe(safe bool) NodeOption {
	return func(n *BaseNode) { n.parallelSafe = safe }
}

// WithDependencies sets the node's logical dependency list.
func WithDependencies(ids ...string) NodeOption {
	return func(n *BaseNode) { n.dependencies = ids }
}

// WithRequiredKeys sets the input keys ValidateInput checks for presence.
func WithRequiredKeys(keys ...string) NodeOption {
	return func(n *BaseNode) { n.requiredKeys = keys }
}

// WithOutputSchema attaches an advisory output schema.
func WithOutputSchema(schema Data) NodeOption {
	return func(n *BaseNode) { n.outputSchema = schema }
}

// BaseNode implements the retry/timeout execution policy around a
// CoreFunc supplied by a concrete node kind (agent, tool, conditional,
// parallel, sequence, ...). Concrete kinds embed a *BaseNode and set
// their core in the constructor.
type BaseNode struct {
	mu sync.Mutex

	id           string
	kind         Kind
	dependencies []string
	requiredKeys []string
	outputSchema Data
	timeout      time.Duration
	retries      int
	parallelSafe bool

	status  Status
	history []Result

	core   CoreFunc
	logger Logger

	stats *stats
}

// WithLogger attaches a Logger a composite node can use to surface
// internal warnings (child skipped, etc). Defaults to a no-op.
func WithLogger(l Logger) NodeOption {
	return func(n *BaseNode) { n.logger = l }
}

// NewBaseNode constructs a BaseNode with the given id, kind, core logic,
// and options. Defaults: timeout 30s, retries 0, parallel-safe true.
func NewBaseNode(id string, kind Kind, core CoreFunc, opts ...NodeOption) *BaseNode {
	n := &BaseNode{
		id:           id,
		kind:         kind,
		timeout:      30 * time.Second,
		parallelSafe: true,
		status:       StatusIdle,
		core:         core,
		logger:       noopLogger{},
		stats:        newStats(id, kind),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *BaseNode) ID() string { return n.id }

func (n *BaseNode) Kind() Kind { return n.kind }

// Timeout returns the per-attempt timeout.
func (n *BaseNode) Timeout() time.Duration { return n.timeout }

// Retries returns the number of additional attempts beyond the first.
func (n *BaseNode) Retries() int { return n.retries }

func (n *BaseNode) ParallelSafe() bool { return n.parallelSafe }

func (n *BaseNode) Dependencies() []string {
	out := make([]string, len(n.dependencies))
	copy(out, n.dependencies)
	return out
}

func (n *BaseNode) OutputSchema() Data {
	if n.outputSchema == nil {
		return Data{}
	}
	return n.outputSchema
}

func (n *BaseNode) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// Reset returns the node to StatusIdle. The only way a node re-enters
// idle after a terminal state.
func (n *BaseNode) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = StatusIdle
}

// History returns a copy of the node's bounded result history, one entry
// per Execute call.
func (n *BaseNode) History() []Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Result, len(n.history))
	copy(out, n.history)
	return out
}

// Logger returns the node's attached Logger, or a no-op if none was set.
func (n *BaseNode) Logger() Logger { return n.logger }

func (n *BaseNode) Stats() ComponentStats {
	return n.stats.Snapshot()
}

// ValidateInput is the default structural check: input must be non-nil
// and, when the node declares required keys, all of them must be present.
func (n *BaseNode) ValidateInput(input Data) bool {
	if input == nil {
		return false
	}
	for _, k := range n.requiredKeys {
		if _, ok := input[k]; !ok {
			return false
		}
	}
	return true
}

// Execute wraps the node's core with input validation, a per-attempt
// timeout, and capped exponential-backoff retries. It never returns an
// error: failures are reported inside the Result.
func (n *BaseNode) Execute(ctx context.Context, input Data) Result {
	n.mu.Lock()
	n.status = StatusRunning
	n.mu.Unlock()

	if !n.ValidateInput(input) {
		res := Result{
			NodeID: n.id,
			Status: StatusFailed,
			Error:  "invalid input",
			Err:    fmt.Errorf("%w: invalid input", ErrNodeInput),
		}
		n.finish(res)
		return res
	}

	var lastErr error
	for attempt := 0; attempt <= n.retries; attempt++ {
		start := time.Now()
		payload, err := n.runCoreOnce(ctx, input)
		elapsed := time.Since(start)

		if err == nil {
			res := Result{
				NodeID:   n.id,
				Success:  true,
				Payload:  payload,
				Duration: elapsed,
				Status:   StatusCompleted,
				Meta:     map[string]interface{}{"attempts": attempt + 1},
			}
			n.stats.recordSuccess(elapsed)
			n.finish(res)
			return res
		}

		lastErr = err
		if attempt < n.retries {
			backoff := backoffFor(attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				res := n.failedResult(ctx.Err().Error(), elapsed)
				n.stats.recordFailure(elapsed, res.Error)
				n.finish(res)
				return res
			}
			continue
		}

		res := n.failedResult(errMessage(lastErr, n.timeout), elapsed)
		res.Meta = map[string]interface{}{"attempts": attempt + 1}
		n.stats.recordFailure(elapsed, res.Error)
		n.finish(res)
		return res
	}

	// Unreachable when retries >= 0, but keeps the compiler happy and
	// guards against a misconfigured negative retry count.
	res := n.failedResult(errMessage(lastErr, n.timeout), 0)
	n.finish(res)
	return res
}

func (n *BaseNode) failedResult(msg string, d time.Duration) Result {
	return Result{
		NodeID:   n.id,
		Success:  false,
		Error:    msg,
		Err:      fmt.Errorf("%w: %s", ErrNodeAttempt, msg),
		Duration: d,
		Status:   StatusFailed,
	}
}

func (n *BaseNode) finish(res Result) {
	n.mu.Lock()
	n.status = res.Status
	n.history = appendHistory(n.history, res)
	n.mu.Unlock()
}

// runCoreOnce invokes Core on its own goroutine under a per-attempt
// timeout, recovering any panic and converting it to an error.
func (n *BaseNode) runCoreOnce(ctx context.Context, input Data) (payload Data, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	type outcome struct {
		payload Data
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		p, e := n.core(attemptCtx, input)
		done <- outcome{payload: p, err: e}
	}()

	select {
	case o := <-done:
		return o.payload, o.err
	case <-attemptCtx.Done():
		return nil, attemptCtx.Err()
	}
}

func errMessage(err error, timeout time.Duration) string {
	if err == context.DeadlineExceeded {
		return fmt.Sprintf("Execution timeout after %ss", trimFloat(timeout.Seconds()))
	}
	return err.Error()
}

// trimFloat renders a float the way "1.0s"/"0.5s" style messages expect:
// no trailing zeros beyond one decimal place of precision when exact.
func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%.1f", f)
	}
	return fmt.Sprintf("%g", f)
}

// backoffFor computes the exponential backoff delay for a given 0-based
// attempt index, capped at 10s.
func backoffFor(attempt int) time.Duration {
	if attempt >= 4 {
		return 10 * time.Second
	}
	d := time.Duration(1) << attempt // seconds, 2^attempt
	if d > 10 {
		d = 10
	}
	return d * time.Second
}
