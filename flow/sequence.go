package flow

import "context"

// SequenceNode runs its children left-to-right, threading each
// successful child's payload forward into the next child's input.
type SequenceNode struct {
	*BaseNode

	Children    []Node
	StopOnError bool
}

// NewSequenceNode builds a Sequence node over children.
func NewSequenceNode(id string, children []Node, stopOnError bool, opts ...NodeOption) *SequenceNode {
	sn := &SequenceNode{Children: children, StopOnError: stopOnError}
	core := func(ctx context.Context, input Data) (Data, error) {
		return sn.runChildren(ctx, input)
	}
	sn.BaseNode = NewBaseNode(id, KindSequence, core, opts...)
	return sn
}

func (sn *SequenceNode) runChildren(ctx context.Context, input Data) (Data, error) {
	running := make(Data, len(input))
	for k, v := range input {
		running[k] = v
	}

	results := make([]Result, 0, len(sn.Children))
	lastSuccessful := -1

	for i, child := range sn.Children {
		res := child.Execute(ctx, running)
		results = append(results, res)

		if !res.Success {
			if sn.StopOnError {
				break
			}
			continue
		}

		lastSuccessful = i
		if res.Payload != nil {
			for k, v := range res.Payload {
				running[k] = v
			}
		} else {
			running["previous_result"] = res.Payload
		}
	}

	accumulated := make(Data, len(running))
	for k, v := range running {
		accumulated[k] = v
	}

	return Data{
		"results":              results,
		"last_successful_index": lastSuccessful,
		"accumulated_data":     accumulated,
	}, nil
}
