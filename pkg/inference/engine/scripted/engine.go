// Package scripted provides an engine that replays prepared responses. It
// backs tests and the offline `--engine scripted` mode of the CLI.
package scripted

import (
	"context"
	"os"
	"sync"

	"github.com/go-go-golems/canvas-agent/pkg/inference/engine"
	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var ErrScriptExhausted = errors.New("scripted engine has no responses left")

// Response is one scripted model answer. When Error is set the call fails.
type Response struct {
	Content   string           `yaml:"content" json:"content"`
	ToolCalls []turns.ToolCall `yaml:"tool_calls,omitempty" json:"tool_calls,omitempty"`
	Error     string           `yaml:"error,omitempty" json:"error,omitempty"`
}

// Call records what the engine received.
type Call struct {
	Messages []turns.Message
	Tools    []string
	Options  engine.CallOptions
}

type Engine struct {
	mu        sync.Mutex
	responses []Response
	calls     []Call
	fallback  func(messages []turns.Message) (*turns.Message, error)
}

type Option func(*Engine)

// WithEcho makes the engine answer with the last human message once the
// script runs out.
func WithEcho() Option {
	return func(e *Engine) {
		e.fallback = func(messages []turns.Message) (*turns.Message, error) {
			last, ok := turns.LastHuman(messages)
			text := "(no input)"
			if ok {
				text = "You said: " + last.Content
			}
			m := turns.NewAIMessage(text)
			return &m, nil
		}
	}
}

func New(responses []Response, options ...Option) *Engine {
	e := &Engine{responses: append([]Response(nil), responses...)}
	for _, o := range options {
		o(e)
	}
	return e
}

// LoadFile reads a YAML list of responses.
func LoadFile(path string, options ...Option) (*Engine, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read script %s", path)
	}
	var responses []Response
	if err := yaml.Unmarshal(b, &responses); err != nil {
		return nil, errors.Wrapf(err, "parse script %s", path)
	}
	return New(responses, options...), nil
}

var _ engine.Engine = (*Engine)(nil)

func (e *Engine) Invoke(ctx context.Context, messages []turns.Message, specs []tools.Spec, opts engine.CallOptions) (*turns.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(specs))
	for _, s := range specs {
		if n, err := s.ResolveName(); err == nil {
			names = append(names, n)
		}
	}
	e.calls = append(e.calls, Call{Messages: turns.CloneMessages(messages), Tools: names, Options: opts})

	if len(e.responses) == 0 {
		if e.fallback != nil {
			return e.fallback(messages)
		}
		return nil, ErrScriptExhausted
	}
	r := e.responses[0]
	e.responses = e.responses[1:]

	if r.Error != "" {
		return nil, errors.New(r.Error)
	}
	calls := make([]turns.ToolCall, 0, len(r.ToolCalls))
	for _, tc := range r.ToolCalls {
		calls = append(calls, turns.NewToolCall(tc.ID, tc.Name, tc.Args))
	}
	m := turns.NewAIMessage(r.Content, calls...)
	if len(calls) == 0 {
		m.ToolCalls = nil
	}
	return &m, nil
}

// Calls returns what the engine was invoked with so far.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Remaining is the number of unused scripted responses.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.responses)
}
