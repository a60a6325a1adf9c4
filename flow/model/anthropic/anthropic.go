// Package anthropic adapts Anthropic's Claude API to model.ChatModel.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/flowtools-go/flowtools/flow/model"
)

const defaultModel = "claude-sonnet-4-5-20250929"

// ChatModel calls Anthropic's Messages API. System messages are lifted
// out of the conversation into the API's separate system parameter;
// everything else maps one-to-one.
type ChatModel struct {
	modelName string
	client    messagesClient
}

// messagesClient is the seam between ChatModel and the SDK, so tests
// can substitute a scripted client.
type messagesClient interface {
	create(ctx context.Context, system string, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error)
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
	system, convo := splitSystem(messages)
	return m.client.create(ctx, system, convo, tools)
}

// splitSystem removes system messages from the conversation and joins
// them into the single system string the API expects.
func splitSystem(messages []model.Message) (string, []model.Message) {
	var system string
	convo := make([]model.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		convo = append(convo, msg)
	}
	return system, convo
}

type sdkClient struct {
	apiKey    string
	modelName string
}

func (c *sdkClient) create(ctx context.Context, system string, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if c.apiKey == "" {
		return model.ChatOut{}, errors.New("anthropic: API key is required")
	}

	client := sdk.NewClient(option.WithAPIKey(c.apiKey))

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.modelName),
		Messages:  toSDKMessages(messages),
		MaxTokens: 4096,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = toSDKTools(tools)
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("anthropic: %w", err)
	}
	return fromSDKMessage(resp), nil
}

func toSDKMessages(messages []model.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(messages))
	for i, msg := range messages {
		block := sdk.NewTextBlock(msg.Content)
		if msg.Role == model.RoleAssistant {
			out[i] = sdk.NewAssistantMessage(block)
		} else {
			// Unknown roles degrade to user turns; system was split out
			// before this point.
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

func toSDKTools(tools []model.ToolSpec) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, len(tools))
	for i, t := range tools {
		var properties any
		var required []string
		if t.Schema != nil {
			properties = t.Schema["properties"]
			switch req := t.Schema["required"].(type) {
			case []string:
				required = req
			case []interface{}:
				for _, v := range req {
					if s, ok := v.(string); ok {
						required = append(required, s)
					}
				}
			}
		}
		out[i] = sdk.ToolUnionParam{
			OfTool: &sdk.ToolParam{
				Name:        t.Name,
				Description: sdk.String(t.Description),
				InputSchema: sdk.ToolInputSchemaParam{
					Properties: properties,
					Required:   required,
				},
			},
		}
	}
	return out
}

func fromSDKMessage(resp *sdk.Message) model.ChatOut {
	var out model.ChatOut
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case sdk.TextBlock:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += b.Text
		case sdk.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				Name:  b.Name,
				Input: toolInput(b.Input),
			})
		}
	}
	return out
}

// toolInput normalizes the SDK's decoded tool input to a keyed mapping.
func toolInput(input interface{}) map[string]interface{} {
	if input == nil {
		return nil
	}
	if m, ok := input.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{"value": input}
}
