// Package openai implements engine.Engine on top of the OpenAI chat
// completions API.
package openai

import (
	"context"
	"encoding/json"

	"github.com/go-go-golems/canvas-agent/pkg/inference/engine"
	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o"

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("missing OpenAI API key")

type Engine struct {
	client      *go_openai.Client
	model       string
	temperature *float32
}

type Option func(*Engine)

func WithModel(model string) Option {
	return func(e *Engine) {
		if model != "" {
			e.model = model
		}
	}
}

func WithTemperature(t float64) Option {
	return func(e *Engine) {
		v := float32(t)
		e.temperature = &v
	}
}

// NewEngine creates an engine talking to baseURL (empty for the public API).
func NewEngine(apiKey, baseURL string, options ...Option) (*Engine, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	config := go_openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	e := &Engine{
		client: go_openai.NewClientWithConfig(config),
		model:  DefaultModel,
	}
	for _, o := range options {
		o(e)
	}
	return e, nil
}

var _ engine.Engine = (*Engine)(nil)

// Invoke sends one non-streaming chat completion request.
func (e *Engine) Invoke(ctx context.Context, messages []turns.Message, specs []tools.Spec, opts engine.CallOptions) (*turns.Message, error) {
	req, err := e.makeRequest(messages, specs, opts)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Int("tools", len(req.Tools)).
		Msg("OpenAI chat completion")

	resp, err := e.client.CreateChatCompletion(ctx, *req)
	if err != nil {
		return nil, errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, engine.ErrNoResponse
	}

	msg := FromChatMessage(resp.Choices[0].Message)
	if resp.ID != "" {
		msg.ID = resp.ID
	}
	log.Debug().
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Int("tool_calls", len(msg.ToolCalls)).
		Msg("OpenAI chat completion done")
	return &msg, nil
}

func (e *Engine) makeRequest(messages []turns.Message, specs []tools.Spec, opts engine.CallOptions) (*go_openai.ChatCompletionRequest, error) {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		cm, err := ToChatMessage(m)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, cm)
	}

	req := &go_openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: msgs,
	}
	if e.temperature != nil {
		req.Temperature = *e.temperature
	}
	if len(specs) > 0 {
		req.Tools = ToTools(specs)
		req.ToolChoice = "auto"
		req.ParallelToolCalls = opts.ParallelToolCalls
	}
	return req, nil
}

// ToChatMessage converts a conversation message to the wire shape.
func ToChatMessage(m turns.Message) (go_openai.ChatCompletionMessage, error) {
	switch m.Kind {
	case turns.KindSystem:
		return go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleSystem, Content: m.Content}, nil
	case turns.KindHuman:
		return go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleUser, Content: m.Content}, nil
	case turns.KindAI:
		cm := go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleAssistant, Content: m.Content}
		for _, tc := range m.ToolCalls {
			args, err := rawArguments(tc)
			if err != nil {
				return cm, err
			}
			cm.ToolCalls = append(cm.ToolCalls, go_openai.ToolCall{
				ID:   tc.ID,
				Type: go_openai.ToolTypeFunction,
				Function: go_openai.FunctionCall{
					Name:      tc.Name,
					Arguments: args,
				},
			})
		}
		return cm, nil
	case turns.KindTool:
		return go_openai.ChatCompletionMessage{
			Role:       go_openai.ChatMessageRoleTool,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}, nil
	}
	return go_openai.ChatCompletionMessage{}, errors.Errorf("unsupported message kind %q", m.Kind)
}

// rawArguments keeps JSON text as sent by the model; structured args are encoded.
func rawArguments(tc turns.ToolCall) (string, error) {
	switch v := tc.Args.(type) {
	case nil:
		return "{}", nil
	case map[string]any:
		if v == nil {
			return "{}", nil
		}
	case string:
		return v, nil
	case json.RawMessage:
		return string(v), nil
	}
	b, err := json.Marshal(tc.Args)
	if err != nil {
		return "", errors.Wrapf(err, "encode arguments of %s", tc.Name)
	}
	return string(b), nil
}

// FromChatMessage converts a completion choice into an AI message.
func FromChatMessage(cm go_openai.ChatCompletionMessage) turns.Message {
	msg := turns.Message{
		ID:      uuid.NewString(),
		Kind:    turns.KindAI,
		Content: cm.Content,
	}
	for _, tc := range cm.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, turns.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: tc.Function.Arguments,
		})
	}
	return msg
}

// ToTools converts tool specs to OpenAI function tools. A spec whose
// parameter schema cannot be read is bound with an empty object schema.
func ToTools(specs []tools.Spec) []go_openai.Tool {
	ret := make([]go_openai.Tool, 0, len(specs))
	for _, s := range specs {
		name, err := s.ResolveName()
		if err != nil {
			continue
		}
		params, err := s.ResolveArgs()
		if err != nil {
			log.Debug().Err(err).Str("tool", name).Msg("using empty parameter schema")
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		ret = append(ret, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        name,
				Description: s.ResolveDescription(),
				Parameters:  params,
			},
		})
	}
	return ret
}
