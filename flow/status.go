// Package flow implements a directed-acyclic-graph execution engine: node
// contracts, composite control-flow nodes, and a wave-based scheduler that
// advances a flow from its entry nodes to completion.
package flow

// Status is the lifecycle state of a single node.
type Status string

const (
	// StatusIdle is the initial state of every node and the only state a
	// node returns to via an explicit Reset.
	StatusIdle Status = "idle"
	// StatusRunning marks a node currently inside its execute policy.
	StatusRunning Status = "running"
	// StatusCompleted is terminal: the node's last attempt succeeded.
	StatusCompleted Status = "completed"
	// StatusFailed is terminal: the node exhausted its retry budget, or
	// its input failed validation.
	StatusFailed Status = "failed"
	// StatusSkipped is a terminal state for a node that was not run.
	// Nothing in this package assigns it: a paused node and a
	// non-parallel-safe Parallel child keep the status they already had.
	StatusSkipped Status = "skipped"
	// StatusWaiting marks a node blocked on a predecessor; reserved for
	// callers that want to record frontier state explicitly.
	StatusWaiting Status = "waiting"
)

// Kind tags the role a node plays in a flow. The scheduler treats all
// kinds identically; Kind exists for introspection, logging, and the
// registry.
type Kind string

const (
	KindAgent         Kind = "agent"
	KindContext       Kind = "context"
	KindTool          Kind = "tool"
	KindCommunication Kind = "communication"
	KindCondition     Kind = "condition"
	KindParallel      Kind = "parallel"
	KindSequence      Kind = "sequence"
	KindCustom        Kind = "custom"
)
