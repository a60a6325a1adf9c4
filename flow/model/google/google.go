// Package google adapts Google's Gemini API to model.ChatModel.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/flowtools-go/flowtools/flow/model"
)

const defaultModel = "gemini-2.5-flash"

// ChatModel calls Google's Gemini generate-content API. Blocked content
// surfaces as a *SafetyFilterError the caller can detect with
// errors.As.
type ChatModel struct {
	modelName string
	client    contentClient
}

// contentClient is the seam between ChatModel and the SDK, so tests can
// substitute a scripted client.
type contentClient interface {
	generate(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error)
}

// NewChatModel builds a ChatModel for the given API key and model name.
// An empty modelName selects a current default.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = defaultModel
	}
	return &ChatModel{
		modelName: modelName,
		client:    &sdkClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}
	return m.client.generate(ctx, messages, tools)
}

type sdkClient struct {
	apiKey    string
	modelName string
}

func (c *sdkClient) generate(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if c.apiKey == "" {
		return model.ChatOut{}, errors.New("google: API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google: create client: %w", err)
	}
	defer func() { _ = client.Close() }()

	gen := client.GenerativeModel(c.modelName)
	if len(tools) > 0 {
		gen.Tools = toSDKTools(tools)
	}

	resp, err := gen.GenerateContent(ctx, toParts(messages)...)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google: %w", err)
	}
	return fromSDKResponse(resp)
}

// toParts flattens the conversation into text parts. Gemini takes
// system instruction separately on the model; for a single-shot
// generate call the roles collapse into ordered text.
func toParts(messages []model.Message) []genai.Part {
	parts := make([]genai.Part, 0, len(messages))
	for _, msg := range messages {
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
	}
	return parts
}

func toSDKTools(tools []model.ToolSpec) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toSDKSchema(t.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toSDKSchema converts one level of a JSON Schema object into the SDK's
// schema type. Nested object properties keep only type and description.
func toSDKSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{Type: genai.TypeObject}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for key, val := range props {
			prop, ok := val.(map[string]interface{})
			if !ok {
				continue
			}
			ps := &genai.Schema{}
			if s, ok := prop["type"].(string); ok {
				ps.Type = schemaType(s)
			}
			if d, ok := prop["description"].(string); ok {
				ps.Description = d
			}
			out.Properties[key] = ps
		}
	}
	switch req := schema["required"].(type) {
	case []string:
		out.Required = req
	case []interface{}:
		for _, v := range req {
			if s, ok := v.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	return out
}

func schemaType(s string) genai.Type {
	switch s {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func fromSDKResponse(resp *genai.GenerateContentResponse) (model.ChatOut, error) {
	var out model.ChatOut
	if len(resp.Candidates) == 0 {
		return out, nil
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return out, &SafetyFilterError{reason: candidate.FinishReason.String()}
	}
	if candidate.Content == nil {
		return out, nil
	}

	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				Name:  p.Name,
				Input: p.Args,
			})
		}
	}
	return out, nil
}

// SafetyFilterError marks a reply Google's safety filters blocked.
type SafetyFilterError struct {
	reason   string
	category string
}

func (e *SafetyFilterError) Error() string {
	if e.category != "" {
		return "google: content blocked by safety filter: " + e.category
	}
	return "google: content blocked by safety filter (" + e.reason + ")"
}

// Category returns the triggered safety category, when known.
func (e *SafetyFilterError) Category() string { return e.category }

// Reason returns the block's finish reason.
func (e *SafetyFilterError) Reason() string { return e.reason }
