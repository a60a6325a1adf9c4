package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/flowtools-go/flowtools/flow/emit"
	"github.com/flowtools-go/flowtools/flow/telemetry"
)

// Engine owns a Graph plus all execution bookkeeping: it validates the
// graph, computes entry/exit sets, and drives a wave-based scheduling
// loop from the entry frontier until no admitted successors remain. At
// most one execution is current per Engine instance; concurrent
// ExecuteFlow calls on the same Engine are rejected with ErrMisuse.
type Engine struct {
	graph *Graph

	maxConcurrentNodes int
	globalTimeout      time.Duration
	enableParallel     bool

	emitter    emit.Emitter
	logger     *telemetry.Logger
	compLogger *telemetry.ComponentLogger
	metrics    *telemetry.Metrics

	execMu  sync.Mutex
	current *Execution
	history []*Execution

	pausedMu sync.Mutex
	paused   map[string]struct{}

	stats *stats
}

// New constructs an Engine. Defaults: MaxConcurrentNodes=10,
// GlobalTimeout=300s, ParallelExecution=true, a NullEmitter, and a
// lazily-opened file logger under "logs/".
func New(opts ...Option) *Engine {
	e := &Engine{
		maxConcurrentNodes: 10,
		globalTimeout:      300 * time.Second,
		enableParallel:     true,
		emitter:            emit.NewNullEmitter(),
		paused:             make(map[string]struct{}),
		stats:              newStats("engine", KindCustom),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.compLogger == nil {
		e.logger = telemetry.NewLogger("logs")
		e.compLogger = e.logger.Component("engine")
	}
	e.graph = NewGraph(WithGraphLogger(e.compLogger))
	e.emitEvent("", "", "component_created", nil)
	e.compLogger.Info("engine created", map[string]interface{}{
		"max_concurrent_nodes":      e.maxConcurrentNodes,
		"global_timeout_seconds":    e.globalTimeout.Seconds(),
		"enable_parallel_execution": e.enableParallel,
	})
	return e
}

func (e *Engine) emitEvent(flowID string, nodeID string, msg string, meta map[string]interface{}) {
	e.emitter.Emit(emit.Event{RunID: flowID, NodeID: nodeID, Msg: msg, Meta: meta})
}

func (e *Engine) emitStep(flowID string, step int, nodeID string, msg string, meta map[string]interface{}) {
	e.emitter.Emit(emit.Event{RunID: flowID, Step: step, NodeID: nodeID, Msg: msg, Meta: meta})
}

// AddNode adds n to the underlying graph.
func (e *Engine) AddNode(n Node) error {
	if err := e.graph.AddNode(n); err != nil {
		return err
	}
	e.emitEvent("", "", "node_added", map[string]interface{}{"node_id": n.ID(), "kind": string(n.Kind())})
	e.compLogger.Info("node added", map[string]interface{}{"node_id": n.ID(), "kind": string(n.Kind())})
	return nil
}

// AddEdge adds a directed edge from -> to, optionally gated by when.
func (e *Engine) AddEdge(from, to string, when Predicate, meta map[string]interface{}) error {
	if err := e.graph.AddEdge(from, to, when, meta); err != nil {
		return err
	}
	e.emitEvent("", "", "edge_added", map[string]interface{}{
		"from": from, "to": to, "conditional": when != nil,
	})
	e.compLogger.Info("edge added", map[string]interface{}{
		"from": from, "to": to, "conditional": when != nil,
	})
	return nil
}

// RemoveNode deletes a node and every edge touching it.
func (e *Engine) RemoveNode(id string) {
	e.graph.RemoveNode(id)
	e.emitEvent("", "", "node_removed", map[string]interface{}{"node_id": id})
	e.compLogger.Info("node removed", map[string]interface{}{"node_id": id})
}

// ValidateFlow checks the graph for cycles, isolated nodes, unknown
// dependency references, and a missing entry set.
func (e *Engine) ValidateFlow() (bool, []string) {
	ok, errs := e.graph.ValidateFlow()
	e.emitEvent("", "", "validation_result", map[string]interface{}{"ok": ok, "errors": errs})
	if ok {
		e.compLogger.Debug("validation passed", nil)
	} else {
		e.compLogger.Warn("validation failed", map[string]interface{}{"errors": errs})
	}
	return ok, errs
}

// TopologicalSort orders the graph via Kahn's algorithm.
func (e *Engine) TopologicalSort() ([]string, error) {
	return e.graph.TopologicalSort()
}

// GetEntryNodes returns nodes with no incoming edges.
func (e *Engine) GetEntryNodes() []string { return e.graph.EntryNodes() }

// GetExitNodes returns nodes with no outgoing edges.
func (e *Engine) GetExitNodes() []string { return e.graph.ExitNodes() }

// PauseNode adds id to the paused set; it is skipped at every subsequent
// wave's frontier filtering step until resumed.
func (e *Engine) PauseNode(id string) {
	e.pausedMu.Lock()
	defer e.pausedMu.Unlock()
	e.paused[id] = struct{}{}
}

// ResumeNode removes id from the paused set.
func (e *Engine) ResumeNode(id string) {
	e.pausedMu.Lock()
	defer e.pausedMu.Unlock()
	delete(e.paused, id)
}

func (e *Engine) isPaused(id string) bool {
	e.pausedMu.Lock()
	defer e.pausedMu.Unlock()
	_, ok := e.paused[id]
	return ok
}

func (e *Engine) pausedSnapshot() []string {
	e.pausedMu.Lock()
	defer e.pausedMu.Unlock()
	out := make([]string, 0, len(e.paused))
	for id := range e.paused {
		out = append(out, id)
	}
	return out
}

// CurrentExecution returns the in-flight execution record, or nil.
func (e *Engine) CurrentExecution() *Execution {
	e.execMu.Lock()
	defer e.execMu.Unlock()
	return e.current
}

// History returns every retained execution record, oldest first.
func (e *Engine) History() []*Execution {
	e.execMu.Lock()
	defer e.execMu.Unlock()
	out := make([]*Execution, len(e.history))
	copy(out, e.history)
	return out
}

// Stats returns the engine's own introspection snapshot.
func (e *Engine) Stats() ComponentStats { return e.stats.Snapshot() }

// Close releases the engine's per-component log files. The engine is
// unusable afterwards.
func (e *Engine) Close() error {
	if e.logger != nil {
		return e.logger.Close()
	}
	return nil
}

// GetFlowStatus returns a snapshot of node/edge counts, the current
// execution (if any), the paused set, history length, and configuration.
func (e *Engine) GetFlowStatus() map[string]interface{} {
	status := map[string]interface{}{
		"node_count":  e.graph.NodeCount(),
		"edge_count":  e.graph.EdgeCount(),
		"paused":      e.pausedSnapshot(),
		"history_len": len(e.History()),
		"config": map[string]interface{}{
			"max_concurrent_nodes":      e.maxConcurrentNodes,
			"global_timeout_seconds":    e.globalTimeout.Seconds(),
			"enable_parallel_execution": e.enableParallel,
		},
	}
	if cur := e.CurrentExecution(); cur != nil {
		status["current_execution"] = map[string]interface{}{
			"flow_id": cur.FlowID,
			"status":  string(cur.Status),
			"results": len(cur.snapshotResults()),
			"path":    cur.snapshotPath(),
		}
	}
	return status
}

// VisualizeFlow emits a deterministic human-readable dump: a node
// section (id, kind, status) followed by an edge section (from -> to,
// tagged [conditional] when a predicate is present).
func (e *Engine) VisualizeFlow() string {
	var b strings.Builder
	b.WriteString("Nodes:\n")
	for _, id := range e.graph.NodeIDs() {
		n, _ := e.graph.Node(id)
		fmt.Fprintf(&b, "  %s (%s) [%s]\n", id, n.Kind(), n.Status())
	}
	b.WriteString("Edges:\n")
	for _, edge := range e.graph.Edges() {
		if edge.Conditional() {
			fmt.Fprintf(&b, "  %s -> %s [conditional]\n", edge.From, edge.To)
		} else {
			fmt.Fprintf(&b, "  %s -> %s\n", edge.From, edge.To)
		}
	}
	return b.String()
}

// ExecuteFlow validates the graph, then drives the wave loop from
// entryNodes (or the graph's computed entry set when empty) until the
// frontier is exhausted: each wave dispatches its candidates, and every
// successful result's outgoing edges nominate the next wave.
func (e *Engine) ExecuteFlow(ctx context.Context, initialData Data, flowID string, entryNodes []string) (*Execution, error) {
	if ok, errs := e.ValidateFlow(); !ok {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, "; "))
	}

	if flowID == "" {
		flowID = fmt.Sprintf("flow_%d", time.Now().UnixMilli())
	}

	e.execMu.Lock()
	if e.current != nil {
		e.execMu.Unlock()
		return nil, fmt.Errorf("%w: a flow is already executing on this engine", ErrMisuse)
	}
	exec := newExecution(flowID)
	e.current = exec
	e.execMu.Unlock()

	e.emitEvent(flowID, "", "flow_start", map[string]interface{}{"entry_nodes": entryNodes})
	e.compLogger.Info("flow started", map[string]interface{}{"flow_id": flowID, "entry_nodes": entryNodes})

	frontier := entryNodes
	if len(frontier) == 0 {
		frontier = e.graph.EntryNodes()
	}
	if len(frontier) == 0 {
		// Validation-class failure: the record is discarded, not archived.
		e.execMu.Lock()
		e.current = nil
		e.execMu.Unlock()
		return nil, fmt.Errorf("%w: empty frontier, no entry nodes to execute", ErrValidation)
	}

	waveCtx := ctx
	var cancel context.CancelFunc
	if e.globalTimeout > 0 {
		waveCtx, cancel = context.WithTimeout(ctx, e.globalTimeout)
		defer cancel()
	}

	data := make(Data, len(initialData))
	for k, v := range initialData {
		data[k] = v
	}

	flowStart := time.Now()
	waveIndex := 0
	for len(frontier) > 0 {
		if err := waveCtx.Err(); err != nil {
			return nil, e.failExecution(exec, flowStart, err)
		}

		candidates := e.filterFrontier(frontier, exec)
		if len(candidates) == 0 {
			break
		}

		waveStart := time.Now()
		results := e.dispatchWave(waveCtx, candidates, data, exec, flowID, waveIndex)
		if e.metrics != nil {
			e.metrics.RecordWaveLatency(flowID, waveIndex, time.Since(waveStart))
		}

		nextData := make(Data, len(data))
		for k, v := range data {
			nextData[k] = v
		}
		for _, id := range candidates {
			res, ok := results[id]
			if ok && res.Success && res.Payload != nil {
				for k, v := range res.Payload {
					nextData[k] = v
				}
			}
		}

		frontier = e.computeSuccessors(candidates, results)
		data = nextData
		waveIndex++
	}

	// A global-timeout breach during the final wave still fails the run,
	// even though the frontier drained.
	if err := waveCtx.Err(); err != nil {
		return nil, e.failExecution(exec, flowStart, err)
	}

	elapsed := time.Since(flowStart)
	e.finishExecution(exec, FlowCompleted, "")
	e.stats.recordSuccess(elapsed)
	if e.metrics != nil {
		e.metrics.IncrementFlowCompletions(string(FlowCompleted))
	}
	e.emitEvent(flowID, "", "flow_complete", nil)
	e.compLogger.Performance("flow completed", elapsed, map[string]interface{}{
		"flow_id": flowID, "nodes_run": len(exec.snapshotPath()),
	})
	return exec, nil
}

// failExecution archives exec as failed and returns the scheduler error
// the caller should propagate.
func (e *Engine) failExecution(exec *Execution, flowStart time.Time, cause error) error {
	e.finishExecution(exec, FlowFailed, cause.Error())
	e.stats.recordFailure(time.Since(flowStart), cause.Error())
	return fmt.Errorf("%w: %s", ErrScheduler, cause.Error())
}

// filterFrontier drops ids that already have a result and ids in the
// paused set.
func (e *Engine) filterFrontier(frontier []string, exec *Execution) []string {
	out := make([]string, 0, len(frontier))
	for _, id := range frontier {
		if exec.hasResult(id) {
			continue
		}
		if e.isPaused(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// dispatchWave runs every candidate, partitioning into a concurrent
// parallel-safe batch (bounded by maxConcurrentNodes) followed by a
// serial tail, when parallel execution is enabled and more than one
// candidate remains.
func (e *Engine) dispatchWave(ctx context.Context, candidates []string, data Data, exec *Execution, flowID string, waveIndex int) map[string]Result {
	results := make(map[string]Result, len(candidates))
	var resMu sync.Mutex

	record := func(id string, res Result) {
		resMu.Lock()
		results[id] = res
		resMu.Unlock()
		exec.setResult(id, res)
	}

	run := func(id string) {
		node, ok := e.graph.Node(id)
		if !ok {
			return
		}
		exec.recordDispatch(id)
		res := e.runNode(ctx, node, data, flowID, waveIndex)
		record(id, res)
	}

	if !e.enableParallel || len(candidates) <= 1 {
		for _, id := range candidates {
			run(id)
		}
		return results
	}

	var parallelSafe, serial []string
	for _, id := range candidates {
		node, ok := e.graph.Node(id)
		if !ok {
			continue
		}
		if node.ParallelSafe() {
			parallelSafe = append(parallelSafe, id)
		} else {
			serial = append(serial, id)
		}
	}

	if len(parallelSafe) > 0 {
		limit := e.maxConcurrentNodes
		if limit <= 0 {
			limit = len(parallelSafe)
		}
		if e.metrics != nil {
			e.metrics.SetInflightNodes(len(parallelSafe))
		}
		sem := make(chan struct{}, limit)
		var wg sync.WaitGroup
		for _, id := range parallelSafe {
			wg.Add(1)
			sem <- struct{}{}
			go func(id string) {
				defer wg.Done()
				defer func() { <-sem }()
				run(id)
			}(id)
		}
		wg.Wait()
		if e.metrics != nil {
			e.metrics.SetInflightNodes(0)
		}
	}

	for _, id := range serial {
		run(id)
	}

	return results
}

// runNode invokes a node's own Execute policy, recovering any panic that
// escapes it (which should not normally happen — BaseNode already
// recovers panics from Core — but guards third-party Node
// implementations that bypass BaseNode) and emitting dispatch/success/
// failure events.
func (e *Engine) runNode(ctx context.Context, node Node, data Data, flowID string, waveIndex int) (res Result) {
	e.emitStep(flowID, waveIndex, node.ID(), "node_dispatch", nil)

	defer func() {
		if r := recover(); r != nil {
			res = Result{
				NodeID: node.ID(),
				Status: StatusFailed,
				Error:  fmt.Sprintf("%v", r),
				Err:    fmt.Errorf("%w: %v", ErrNodeAttempt, r),
			}
		}
		if attempts, ok := res.Meta["attempts"].(int); ok && attempts > 1 && e.metrics != nil {
			for i := 1; i < attempts; i++ {
				e.metrics.IncrementRetries(node.ID(), "error")
			}
		}
		if res.Success {
			e.emitStep(flowID, waveIndex, node.ID(), "node_success", map[string]interface{}{
				"duration_ms": res.Duration.Milliseconds(),
			})
			e.compLogger.Performance("node succeeded", res.Duration, map[string]interface{}{
				"flow_id": flowID, "node_id": node.ID(),
			})
		} else {
			e.emitStep(flowID, waveIndex, node.ID(), "node_failure", map[string]interface{}{"error": res.Error})
			e.compLogger.Error("node failed", map[string]interface{}{
				"flow_id": flowID, "node_id": node.ID(), "error": res.Error,
			})
			if e.metrics != nil {
				e.metrics.IncrementFailures(node.ID(), string(node.Kind()))
			}
		}
	}()

	res = node.Execute(ctx, data)
	res.NodeID = node.ID()
	return res
}

// computeSuccessors walks the outgoing edges of every successful
// candidate, in dispatch order, collecting admitted targets into a
// deduplicated next frontier.
func (e *Engine) computeSuccessors(candidates []string, results map[string]Result) []string {
	seen := make(map[string]struct{})
	var next []string
	for _, id := range candidates {
		res, ok := results[id]
		if !ok || !res.Success {
			continue
		}
		for _, edge := range e.graph.outgoing(id) {
			if !edge.admits(res.Payload) {
				continue
			}
			if _, dup := seen[edge.To]; dup {
				continue
			}
			seen[edge.To] = struct{}{}
			next = append(next, edge.To)
		}
	}
	return next
}

func (e *Engine) finishExecution(exec *Execution, status FlowStatus, errMsg string) {
	exec.finish(status, errMsg)
	e.execMu.Lock()
	e.history = append(e.history, exec)
	e.current = nil
	e.execMu.Unlock()
	if status == FlowFailed {
		e.emitEvent(exec.FlowID, "", "flow_failed", map[string]interface{}{"error": errMsg})
		e.compLogger.Error("flow failed", map[string]interface{}{"flow_id": exec.FlowID, "error": errMsg})
		if e.metrics != nil {
			e.metrics.IncrementFlowCompletions(string(FlowFailed))
		}
	}
}
