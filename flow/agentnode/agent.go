// Package agentnode wraps a chat model as a flow node, turning the
// node's input mapping into a conversation and the model's reply into
// the node's payload.
package agentnode

import (
	"context"
	"fmt"
	"sort"

	"github.com/flowtools-go/flowtools/flow"
	"github.com/flowtools-go/flowtools/flow/model"
)

// Node is an agent vertex: each execution sends one conversation to its
// chat model. When the input carries a "messages" key holding
// []model.Message, that conversation is used directly; otherwise a
// single user message is synthesized from the input (the "prompt" key
// verbatim when present, a sorted key/value rendering of the whole
// mapping when not).
type Node struct {
	*flow.BaseNode

	chat     model.ChatModel
	system   string
	tools    []model.ToolSpec
	baseOpts []flow.NodeOption
}

// Option configures a Node at construction time.
type Option func(*Node)

// WithSystemPrompt prepends a system message to every conversation.
func WithSystemPrompt(s string) Option {
	return func(n *Node) { n.system = s }
}

// WithTools offers the given tool specs to the model on every call.
func WithTools(ts ...model.ToolSpec) Option {
	return func(n *Node) { n.tools = ts }
}

// WithNodeOptions forwards options to the embedded base node (timeout,
// retries, parallel safety, required keys, ...).
func WithNodeOptions(opts ...flow.NodeOption) Option {
	return func(n *Node) { n.baseOpts = append(n.baseOpts, opts...) }
}

// New builds an agent node over chat.
func New(id string, chat model.ChatModel, opts ...Option) *Node {
	n := &Node{chat: chat}
	for _, opt := range opts {
		opt(n)
	}
	n.BaseNode = flow.NewBaseNode(id, flow.KindAgent, n.converse, n.baseOpts...)
	return n
}

// converse is the node's execute-core.
func (n *Node) converse(ctx context.Context, input flow.Data) (flow.Data, error) {
	messages := n.buildConversation(input)

	out, err := n.chat.Chat(ctx, messages, n.tools)
	if err != nil {
		return nil, err
	}

	payload := flow.Data{
		"response": out.Text,
		"messages": append(messages, model.Message{Role: model.RoleAssistant, Content: out.Text}),
	}
	if len(out.ToolCalls) > 0 {
		payload["tool_calls"] = out.ToolCalls
	}
	return payload, nil
}

func (n *Node) buildConversation(input flow.Data) []model.Message {
	var messages []model.Message
	if n.system != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: n.system})
	}

	if history, ok := input["messages"].([]model.Message); ok && len(history) > 0 {
		return append(messages, history...)
	}

	if prompt, ok := input["prompt"].(string); ok && prompt != "" {
		return append(messages, model.Message{Role: model.RoleUser, Content: prompt})
	}

	return append(messages, model.Message{Role: model.RoleUser, Content: renderInput(input)})
}

// renderInput flattens an input mapping into a deterministic user
// message, one "key: value" line per entry.
func renderInput(input flow.Data) string {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out string
	for _, k := range keys {
		if out != "" {
			out += "\n"
		}
		out += fmt.Sprintf("%s: %v", k, input[k])
	}
	return out
}
