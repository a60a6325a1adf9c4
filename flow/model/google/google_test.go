package google

import (
	"context"
	"errors"
	"testing"

	"github.com/flowtools-go/flowtools/flow/model"
)

var _ model.ChatModel = (*ChatModel)(nil)

// scriptedClient substitutes the SDK seam with a canned reply.
type scriptedClient struct {
	out   model.ChatOut
	err   error
	calls int
}

func (c *scriptedClient) generate(_ context.Context, _ []model.Message, _ []model.ToolSpec) (model.ChatOut, error) {
	c.calls++
	if c.err != nil {
		return model.ChatOut{}, c.err
	}
	return c.out, nil
}

// TestNewChatModelDefaults verifies an empty model name selects the
// package default.
func TestNewChatModelDefaults(t *testing.T) {
	m := NewChatModel("key", "")
	if m.modelName != defaultModel {
		t.Errorf("modelName = %q, want %q", m.modelName, defaultModel)
	}
}

// TestChatReturnsReply verifies a plain round trip through the client
// seam.
func TestChatReturnsReply(t *testing.T) {
	client := &scriptedClient{out: model.ChatOut{Text: "Paris"}}
	m := &ChatModel{modelName: defaultModel, client: client}

	out, err := m.Chat(context.Background(), []model.Message{
		{Role: model.RoleUser, Content: "capital of France?"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "Paris" {
		t.Errorf("Text = %q", out.Text)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1", client.calls)
	}
}

// TestChatSafetyFilterError verifies a safety block is detectable with
// errors.As.
func TestChatSafetyFilterError(t *testing.T) {
	client := &scriptedClient{err: &SafetyFilterError{reason: "SAFETY", category: "HARM_CATEGORY_DANGEROUS_CONTENT"}}
	m := &ChatModel{modelName: defaultModel, client: client}

	_, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "x"}}, nil)
	var safetyErr *SafetyFilterError
	if !errors.As(err, &safetyErr) {
		t.Fatalf("got %v, want SafetyFilterError", err)
	}
	if safetyErr.Category() != "HARM_CATEGORY_DANGEROUS_CONTENT" {
		t.Errorf("Category = %q", safetyErr.Category())
	}
}

// TestChatContextCancelled verifies a cancelled context never reaches
// the client.
func TestChatContextCancelled(t *testing.T) {
	client := &scriptedClient{}
	m := &ChatModel{modelName: defaultModel, client: client}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Chat(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if client.calls != 0 {
		t.Errorf("calls = %d, want 0", client.calls)
	}
}

// TestToParts verifies empty messages are dropped when flattening the
// conversation.
func TestToParts(t *testing.T) {
	parts := toParts([]model.Message{
		{Role: model.RoleSystem, Content: "be brief"},
		{Role: model.RoleAssistant, Content: ""},
		{Role: model.RoleUser, Content: "hi"},
	})
	if len(parts) != 2 {
		t.Errorf("parts = %d, want 2", len(parts))
	}
}

// TestToSDKSchema verifies one-level schema conversion, including the
// required-field variants.
func TestToSDKSchema(t *testing.T) {
	if toSDKSchema(nil) != nil {
		t.Error("nil schema should convert to nil")
	}

	schema := toSDKSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"city": map[string]interface{}{"type": "string", "description": "city name"},
			"days": map[string]interface{}{"type": "integer"},
		},
		"required": []interface{}{"city"},
	})

	if len(schema.Properties) != 2 {
		t.Fatalf("properties = %d, want 2", len(schema.Properties))
	}
	if schema.Properties["city"].Description != "city name" {
		t.Errorf("city description = %q", schema.Properties["city"].Description)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "city" {
		t.Errorf("required = %v", schema.Required)
	}
}

// TestSDKClientRequiresKey verifies the real client refuses to run
// without credentials.
func TestSDKClientRequiresKey(t *testing.T) {
	c := &sdkClient{modelName: defaultModel}
	if _, err := c.generate(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
