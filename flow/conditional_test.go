package flow

import (
	"context"
	"errors"
	"testing"
)

// TestConditionalTrueBranch verifies the true path label and payload
// shape.
func TestConditionalTrueBranch(t *testing.T) {
	n := NewConditionalNode("gate", func(input Data) (bool, error) {
		return input["score"].(int) > 10, nil
	}, "high", "low")

	input := Data{"score": 42}
	res := n.Execute(context.Background(), input)
	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Error)
	}

	if res.Payload["condition_result"] != true {
		t.Errorf("condition_result = %v", res.Payload["condition_result"])
	}
	if res.Payload["next_node"] != "high" {
		t.Errorf("next_node = %v, want high", res.Payload["next_node"])
	}
	original, _ := res.Payload["original_data"].(Data)
	if original["score"] != 42 {
		t.Errorf("original_data = %v", res.Payload["original_data"])
	}
	if n.Kind() != KindCondition {
		t.Errorf("Kind = %q", n.Kind())
	}
}

// TestConditionalFalseBranch verifies the false path label.
func TestConditionalFalseBranch(t *testing.T) {
	n := NewConditionalNode("gate", func(input Data) (bool, error) {
		return false, nil
	}, "high", "low")

	res := n.Execute(context.Background(), Data{})
	if res.Payload["condition_result"] != false || res.Payload["next_node"] != "low" {
		t.Errorf("payload = %v", res.Payload)
	}
}

// TestConditionalMissingLabel verifies an empty branch label surfaces
// as a nil next_node rather than an empty string.
func TestConditionalMissingLabel(t *testing.T) {
	n := NewConditionalNode("gate", func(Data) (bool, error) { return false, nil }, "high", "")

	res := n.Execute(context.Background(), Data{})
	if res.Payload["next_node"] != nil {
		t.Errorf("next_node = %v, want nil", res.Payload["next_node"])
	}
}

// TestConditionalPredicateError verifies a predicate error becomes a
// failed result.
func TestConditionalPredicateError(t *testing.T) {
	n := NewConditionalNode("gate", func(Data) (bool, error) {
		return false, errors.New("bad field type")
	}, "a", "b")

	res := n.Execute(context.Background(), Data{})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "bad field type" {
		t.Errorf("Error = %q", res.Error)
	}
	if n.Status() != StatusFailed {
		t.Errorf("Status = %q", n.Status())
	}
}
