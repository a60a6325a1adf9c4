package flow

import (
	"context"
	"sync"
)

// ParallelNode fans out to a list of children against the same input,
// joining either on every launched child or on the first to finish.
type ParallelNode struct {
	*BaseNode

	Children   []Node
	WaitForAll bool
}

// NewParallelNode builds a Parallel node over children. Only children
// whose ParallelSafe() is true are launched; the rest are skipped with
// a warning.
func NewParallelNode(id string, children []Node, waitForAll bool, opts ...NodeOption) *ParallelNode {
	pn := &ParallelNode{Children: children, WaitForAll: waitForAll}
	core := func(ctx context.Context, input Data) (Data, error) {
		return pn.runChildren(ctx, input)
	}
	pn.BaseNode = NewBaseNode(id, KindParallel, core, opts...)
	return pn
}

type childOutcome struct {
	id  string
	res Result
}

func (pn *ParallelNode) runChildren(ctx context.Context, input Data) (Data, error) {
	launched := make([]Node, 0, len(pn.Children))
	for _, c := range pn.Children {
		if c.ParallelSafe() {
			launched = append(launched, c)
		} else {
			pn.Logger().Warn("skipping non-parallel-safe child", map[string]interface{}{
				"parent": pn.ID(), "child": c.ID(),
			})
		}
	}

	if len(launched) == 0 {
		return Data{"results": map[string]Result{}, "completed_count": 0, "failed_count": 0}, nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan childOutcome, len(launched))
	var wg sync.WaitGroup
	for _, c := range launched {
		wg.Add(1)
		go func(n Node) {
			defer wg.Done()
			res := n.Execute(childCtx, input)
			outcomes <- childOutcome{id: n.ID(), res: res}
		}(c)
	}

	results := make(map[string]Result, len(launched))
	if pn.WaitForAll {
		wg.Wait()
		close(outcomes)
		for o := range outcomes {
			results[o.id] = o.res
		}
	} else {
		first := <-outcomes
		results[first.id] = first.res
		cancel() // signal the remaining children to abandon their attempt
	}

	completed, failed := 0, 0
	for _, r := range results {
		if r.Success {
			completed++
		} else {
			failed++
		}
	}

	return Data{
		"results":         results,
		"completed_count": completed,
		"failed_count":    failed,
	}, nil
}
