package flow

import (
	"fmt"
	"sync"
)

// Graph holds the node set, the edge list, and two derived adjacency
// mappings (forward and reverse) kept in sync on every structural
// mutation. Mutation methods take a write lock and read methods take the
// read lock per call; ExecuteFlow does not hold a lock across a run, so
// graph structure must not change while a flow is executing.
type Graph struct {
	mu sync.RWMutex

	nodes map[string]Node
	order []string // insertion order, for deterministic iteration

	edges   []Edge
	forward map[string][]int // node id -> indices into edges, From == id
	reverse map[string][]int // node id -> indices into edges, To == id

	logger Logger
}

// NewGraph constructs an empty Graph.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		nodes:   make(map[string]Node),
		forward: make(map[string][]int),
		reverse: make(map[string][]int),
		logger:  noopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GraphOption configures a Graph at construction time.
type GraphOption func(*Graph)

// WithGraphLogger attaches a Logger used to report node replacement.
func WithGraphLogger(l Logger) GraphOption {
	return func(g *Graph) { g.logger = l }
}

// AddNode adds n to the graph. Re-adding an existing id replaces the
// prior node (a warning is logged) but preserves that id's adjacency
// entries. A node without an id is rejected.
func (g *Graph) AddNode(n Node) error {
	if n == nil || n.ID() == "" {
		return fmt.Errorf("%w: node must have a non-empty id", ErrMisuse)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.ID()]; exists {
		g.logger.Warn("replacing existing node", map[string]interface{}{"node_id": n.ID()})
	} else {
		g.order = append(g.order, n.ID())
		if _, ok := g.forward[n.ID()]; !ok {
			g.forward[n.ID()] = nil
		}
		if _, ok := g.reverse[n.ID()]; !ok {
			g.reverse[n.ID()] = nil
		}
	}
	g.nodes[n.ID()] = n
	return nil
}

// AddEdge appends a new edge from -> to. Both endpoints must already be
// known nodes. Parallel edges (duplicate from/to pairs) are permitted and
// not deduplicated.
func (g *Graph) AddEdge(from, to string, when Predicate, meta map[string]interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%w: edge references unknown source node %q", ErrValidation, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%w: edge references unknown target node %q", ErrValidation, to)
	}

	idx := len(g.edges)
	g.edges = append(g.edges, Edge{From: from, To: to, When: when, Meta: meta})
	g.forward[from] = append(g.forward[from], idx)
	g.reverse[to] = append(g.reverse[to], idx)
	return nil
}

// RemoveNode deletes the node and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return
	}
	delete(g.nodes, id)
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	kept := g.edges[:0:0]
	for _, e := range g.edges {
		if e.From == id || e.To == id {
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept

	delete(g.forward, id)
	delete(g.reverse, id)
	g.rebuildAdjacencyLocked()
}

// rebuildAdjacencyLocked recomputes forward/reverse from g.edges. Called
// with g.mu already held for writing.
func (g *Graph) rebuildAdjacencyLocked() {
	forward := make(map[string][]int, len(g.forward))
	reverse := make(map[string][]int, len(g.reverse))
	for id := range g.nodes {
		forward[id] = nil
		reverse[id] = nil
	}
	for i, e := range g.edges {
		forward[e.From] = append(forward[e.From], i)
		reverse[e.To] = append(reverse[e.To], i)
	}
	g.forward = forward
	g.reverse = reverse
}

// NodeCount returns the number of nodes currently in the graph.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges currently in the graph.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Node returns the node registered under id, if any.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns every node id in insertion order.
func (g *Graph) NodeIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns a copy of the edge list.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// outgoing returns the edges whose From == id, in insertion order.
func (g *Graph) outgoing(id string) []Edge {
	idxs := g.forward[id]
	out := make([]Edge, len(idxs))
	for i, idx := range idxs {
		out[i] = g.edges[idx]
	}
	return out
}

// EntryNodes returns nodes with no incoming edges.
func (g *Graph) EntryNodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []string
	for _, id := range g.order {
		if len(g.reverse[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// ExitNodes returns nodes with no outgoing edges.
func (g *Graph) ExitNodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []string
	for _, id := range g.order {
		if len(g.forward[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// ValidateFlow collects every structural problem in the graph: cycles,
// isolated nodes, and unknown dependency references. Predicate
// callability needs no check in Go, where a non-nil func value is
// callable by construction and a nil one means unconditional.
func (g *Graph) ValidateFlow() (bool, []string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []string

	if cycle := g.findCycleLocked(); cycle != "" {
		errs = append(errs, fmt.Sprintf("graph contains cycles: %s", cycle))
	}

	// A single-node graph is a legitimate flow, not an isolation defect.
	if len(g.order) > 1 {
		for _, id := range g.order {
			if len(g.forward[id]) == 0 && len(g.reverse[id]) == 0 {
				errs = append(errs, fmt.Sprintf("node %q is isolated (no incoming or outgoing edges)", id))
			}
		}
	}

	for _, id := range g.order {
		n := g.nodes[id]
		for _, dep := range n.Dependencies() {
			if _, ok := g.nodes[dep]; !ok {
				errs = append(errs, fmt.Sprintf("node %q declares unknown dependency %q", id, dep))
			}
		}
	}

	if len(g.order) > 0 && len(g.EntryNodesLocked()) == 0 {
		errs = append(errs, "graph has no entry nodes")
	}

	return len(errs) == 0, errs
}

// EntryNodesLocked is EntryNodes for callers already holding g.mu.
func (g *Graph) EntryNodesLocked() []string {
	var out []string
	for _, id := range g.order {
		if len(g.reverse[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// findCycleLocked runs a depth-first search with a recursion stack,
// returning a description of the first cycle found, or "" if acyclic.
func (g *Graph) findCycleLocked() string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.order))

	var path []string
	var dfs func(id string) string
	dfs = func(id string) string {
		color[id] = gray
		path = append(path, id)
		for _, idx := range g.forward[id] {
			next := g.edges[idx].To
			switch color[next] {
			case gray:
				return fmt.Sprintf("%s -> %s", id, next)
			case white:
				if desc := dfs(next); desc != "" {
					return desc
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return ""
	}

	for _, id := range g.order {
		if color[id] == white {
			if desc := dfs(id); desc != "" {
				return desc
			}
		}
	}
	return ""
}

// TopologicalSort runs Kahn's algorithm over reverse (in-)degrees. It
// fails if not every node can be emitted, which indicates a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		inDegree[id] = len(g.reverse[id])
	}

	queue := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	out := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		for _, idx := range g.forward[id] {
			next := g.edges[idx].To
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(out) != len(g.order) {
		return nil, fmt.Errorf("%w: graph contains cycles, cannot topologically sort", ErrValidation)
	}
	return out, nil
}
