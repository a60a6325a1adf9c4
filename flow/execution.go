package flow

import (
	"sync"
	"time"
)

// FlowStatus is the lifecycle state of a single execute-flow call.
type FlowStatus string

const (
	FlowRunning   FlowStatus = "running"
	FlowCompleted FlowStatus = "completed"
	FlowFailed    FlowStatus = "failed"
	FlowPaused    FlowStatus = "paused"
	FlowCancelled FlowStatus = "cancelled"
)

// Execution is the bookkeeping record for a single ExecuteFlow call,
// retained in the engine's history after it terminates.
type Execution struct {
	mu sync.Mutex

	FlowID       string
	StartTime    time.Time
	EndTime      time.Time
	Status       FlowStatus
	NodeResults  map[string]Result
	Path         []string
	ErrorMessage string
}

func newExecution(flowID string) *Execution {
	return &Execution{
		FlowID:      flowID,
		StartTime:   time.Now(),
		Status:      FlowRunning,
		NodeResults: make(map[string]Result),
	}
}

// setResult stores res under nodeID. Safe for concurrent use by a wave's
// parallel-safe goroutines.
func (e *Execution) setResult(nodeID string, res Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NodeResults[nodeID] = res
}

// recordDispatch appends nodeID to the execution path at dispatch time,
// before its result is known.
func (e *Execution) recordDispatch(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Path = append(e.Path, nodeID)
}

// hasResult reports whether nodeID already has a captured result.
func (e *Execution) hasResult(nodeID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.NodeResults[nodeID]
	return ok
}

// snapshotResults returns a shallow copy of the current results map.
func (e *Execution) snapshotResults() map[string]Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]Result, len(e.NodeResults))
	for k, v := range e.NodeResults {
		out[k] = v
	}
	return out
}

// snapshotPath returns a copy of the dispatch path so far.
func (e *Execution) snapshotPath() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.Path))
	copy(out, e.Path)
	return out
}

func (e *Execution) finish(status FlowStatus, errMsg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.EndTime = time.Now()
	e.Status = status
	e.ErrorMessage = errMsg
}
