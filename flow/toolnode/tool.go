// Package toolnode wraps an executable tool as a flow node: the node's
// input mapping is the tool's input, the tool's output is the node's
// payload.
package toolnode

import (
	"context"

	"github.com/flowtools-go/flowtools/flow"
	"github.com/flowtools-go/flowtools/flow/tool"
)

// Node is a tool vertex. Tool errors surface through the base node's
// retry policy, so a flaky tool can be given retries like any other
// node.
type Node struct {
	*flow.BaseNode

	tool tool.Tool
}

// New builds a tool node over t.
func New(id string, t tool.Tool, opts ...flow.NodeOption) *Node {
	n := &Node{tool: t}
	n.BaseNode = flow.NewBaseNode(id, flow.KindTool, n.invoke, opts...)
	return n
}

// Tool returns the wrapped tool.
func (n *Node) Tool() tool.Tool { return n.tool }

func (n *Node) invoke(ctx context.Context, input flow.Data) (flow.Data, error) {
	out, err := n.tool.Call(ctx, input)
	if err != nil {
		return nil, err
	}
	payload := make(flow.Data, len(out))
	for k, v := range out {
		payload[k] = v
	}
	return payload, nil
}
