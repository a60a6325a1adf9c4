package flow

import "time"

// Data is the keyed payload every node consumes and produces. The engine
// never interprets its contents beyond merge-by-key; individual nodes give
// it meaning.
type Data map[string]interface{}

// Result is the outcome of a single execute attempt (the final attempt, in
// the retrying case — intermediate attempts are not individually recorded,
// neither in the flow's execution record nor in a node's own history).
type Result struct {
	NodeID   string
	Success  bool
	Payload  Data
	Error    string
	Duration time.Duration
	Status   Status
	Meta     map[string]interface{}

	// Err carries the failure as a wrapped sentinel (ErrNodeInput or
	// ErrNodeAttempt), comparable with errors.Is. Nil on success. Error
	// holds the same message as plain text for payloads and logs.
	Err error
}

// maxHistory bounds the per-node result history.
const maxHistory = 100

// appendHistory appends r to history, evicting the oldest entry once the
// cap is reached.
func appendHistory(history []Result, r Result) []Result {
	history = append(history, r)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return history
}
