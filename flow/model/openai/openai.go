// Package openai adapts OpenAI's chat completions API to
// model.ChatModel.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/flowtools-go/flowtools/flow/model"
)

const defaultModel = "gpt-4o"

// ChatModel calls OpenAI's chat completions API, retrying transient
// failures. A rateLimitError gets a linearly growing delay; errors from
// the SDK client are wrapped as they come, never as a rateLimitError, and
// are classified as transient by their message text alone.
type ChatModel struct {
	modelName  string
	client     completionsClient
	maxRetries int
	retryDelay time.Duration
}

// completionsClient is the seam between ChatModel and the SDK, so
// tests can substitute a scripted client.
type completionsClient interface {
	create(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error)
}

// NewChatModel builds a ChatModel for the given API key and model name.
// An empty modelName selects a current default. Transient failures are
// retried up to 3 times.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = defaultModel
	}
	return &ChatModel{
		modelName:  modelName,
		client:     &sdkClient{apiKey: apiKey, modelName: modelName},
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		out, err := m.client.create(ctx, messages, tools)
		if err == nil {
			return out, nil
		}
		if !transient(err) {
			return model.ChatOut{}, err
		}
		lastErr = err
		if attempt == m.maxRetries {
			break
		}

		delay := m.retryDelay
		if isRateLimit(err) {
			delay = m.retryDelay * time.Duration(attempt+1)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.ChatOut{}, ctx.Err()
		}
	}
	return model.ChatOut{}, fmt.Errorf("openai: giving up after %d retries: %w", m.maxRetries, lastErr)
}

// transient reports whether err is worth retrying.
func transient(err error) bool {
	if err == nil {
		return false
	}
	if isRateLimit(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "network", "connection", "temporary", "500", "502", "503"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isRateLimit(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}

type rateLimitError struct{ message string }

func (e *rateLimitError) Error() string { return e.message }

type sdkClient struct {
	apiKey    string
	modelName string
}

func (c *sdkClient) create(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if c.apiKey == "" {
		return model.ChatOut{}, errors.New("openai: API key is required")
	}

	client := sdk.NewClient(option.WithAPIKey(c.apiKey))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.modelName),
		Messages: toSDKMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = toSDKTools(tools)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("openai: %w", err)
	}
	return fromSDKCompletion(resp), nil
}

func toSDKMessages(messages []model.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out[i] = sdk.SystemMessage(msg.Content)
		case model.RoleAssistant:
			out[i] = sdk.AssistantMessage(msg.Content)
		default:
			out[i] = sdk.UserMessage(msg.Content)
		}
	}
	return out
}

func toSDKTools(tools []model.ToolSpec) []sdk.ChatCompletionToolParam {
	out := make([]sdk.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = sdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: sdk.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Schema),
			},
		}
	}
	return out
}

func fromSDKCompletion(resp *sdk.ChatCompletion) model.ChatOut {
	var out model.ChatOut
	if len(resp.Choices) == 0 {
		return out
	}

	msg := resp.Choices[0].Message
	out.Text = msg.Content
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			Name:  tc.Function.Name,
			Input: decodeArguments(tc.Function.Arguments),
		})
	}
	return out
}

// decodeArguments parses the model's JSON argument string. Malformed
// JSON is preserved under "raw_arguments" rather than dropped, so the
// caller can still see what the model produced.
func decodeArguments(arguments string) map[string]interface{} {
	if arguments == "" {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(arguments), &out); err != nil {
		return map[string]interface{}{"raw_arguments": arguments}
	}
	return out
}
