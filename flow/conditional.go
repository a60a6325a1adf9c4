package flow

import "context"

// ConditionPredicate evaluates a conditional node's branch decision. A
// returned error is surfaced as a failed node result rather than a panic.
type ConditionPredicate func(input Data) (bool, error)

// ConditionalNode picks one of two successor labels based on a predicate
// over its input. The labels are advisory only: the scheduler routes
// strictly by graph edges, never by TruePath/FalsePath.
type ConditionalNode struct {
	*BaseNode

	TruePath  string
	FalsePath string
}

// NewConditionalNode builds a Conditional node evaluating predicate
// against its input mapping.
func NewConditionalNode(id string, predicate ConditionPredicate, truePath, falsePath string, opts ...NodeOption) *ConditionalNode {
	cn := &ConditionalNode{TruePath: truePath, FalsePath: falsePath}
	core := func(_ context.Context, input Data) (Data, error) {
		ok, err := predicate(input)
		if err != nil {
			return nil, err
		}
		next := cn.FalsePath
		if ok {
			next = cn.TruePath
		}
		var nextNode interface{}
		if next != "" {
			nextNode = next
		}
		return Data{
			"condition_result": ok,
			"next_node":        nextNode,
			"original_data":    input,
		}, nil
	}
	cn.BaseNode = NewBaseNode(id, KindCondition, core, opts...)
	return cn
}
