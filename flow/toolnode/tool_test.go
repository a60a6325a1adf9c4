package toolnode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowtools-go/flowtools/flow"
	"github.com/flowtools-go/flowtools/flow/tool"
)

var _ flow.Node = (*Node)(nil)

// TestToolNodeSuccess verifies the tool's output becomes the node's
// payload and the input is passed through unchanged.
func TestToolNodeSuccess(t *testing.T) {
	mock := &tool.MockTool{
		ToolName: "lookup",
		Script:   []map[string]interface{}{{"answer": 42}},
	}
	n := New("lk", mock)

	res := n.Execute(context.Background(), flow.Data{"q": "life"})
	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Error)
	}
	if res.Payload["answer"] != 42 {
		t.Errorf("payload = %v", res.Payload)
	}
	if n.Kind() != flow.KindTool {
		t.Errorf("Kind = %q, want tool", n.Kind())
	}

	calls := mock.Calls()
	if len(calls) != 1 || calls[0]["q"] != "life" {
		t.Errorf("tool saw inputs %v", calls)
	}
}

// TestToolNodeError verifies a tool error becomes a failed result.
func TestToolNodeError(t *testing.T) {
	mock := &tool.MockTool{ToolName: "broken", Err: errors.New("backend down")}
	n := New("b", mock, flow.WithTimeout(time.Second))

	res := n.Execute(context.Background(), flow.Data{})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "backend down" {
		t.Errorf("Error = %q", res.Error)
	}
	if n.Status() != flow.StatusFailed {
		t.Errorf("Status = %q", n.Status())
	}
}

// TestToolNodeRequiredKeys verifies base-node input validation guards
// the tool call.
func TestToolNodeRequiredKeys(t *testing.T) {
	mock := &tool.MockTool{ToolName: "strict"}
	n := New("s", mock, flow.WithRequiredKeys("url"))

	res := n.Execute(context.Background(), flow.Data{"other": 1})
	if res.Success {
		t.Fatal("expected validation failure")
	}
	if mock.CallCount() != 0 {
		t.Errorf("tool was called %d times despite invalid input", mock.CallCount())
	}
}

// TestToolNodeAccessor verifies the wrapped tool is reachable for
// callers building tool-call dispatch loops.
func TestToolNodeAccessor(t *testing.T) {
	mock := &tool.MockTool{ToolName: "x"}
	n := New("n", mock)
	if n.Tool() != tool.Tool(mock) {
		t.Error("Tool() did not return the wrapped tool")
	}
}
