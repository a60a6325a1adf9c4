package emit

// Event is a single observability event emitted by the engine: a node
// dispatch, success, or failure, or a flow start/complete/failure.
type Event struct {
	// RunID is the flow id that produced this event.
	RunID string

	// Step is the wave index, 0 for flow-level events.
	Step int

	// NodeID identifies the node that produced this event; empty for
	// flow-level events.
	NodeID string

	// Msg names the event, e.g. "node_dispatch", "flow_complete".
	Msg string

	// Meta carries event-specific structured data, e.g. "error",
	// "duration_ms".
	Meta map[string]interface{}
}
