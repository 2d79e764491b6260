package turns

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies the variant of a conversation Message.
type Kind string

const (
	KindSystem Kind = "system"
	KindHuman  Kind = "human"
	KindAI     Kind = "ai"
	KindTool   Kind = "tool"
)

// ErrUnparseableArgs is returned by ToolCall.Arguments when the JSON-encoded
// argument text cannot be decoded into an object.
var ErrUnparseableArgs = errors.New("tool call arguments are not a JSON object")

// ToolCall is a named, identified request emitted by a model response to invoke a tool.
//
// Args is either structured (map[string]any) or JSON-encoded text (string or
// json.RawMessage), depending on where the call came from.
type ToolCall struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Args any    `json:"args,omitempty" yaml:"args,omitempty"`
}

// Arguments normalizes Args into a map. A nil Args or nil map yields an
// empty map.
func (tc ToolCall) Arguments() (map[string]any, error) {
	switch v := tc.Args.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		if v == nil {
			return map[string]any{}, nil
		}
		return v, nil
	case string:
		return decodeArgs([]byte(v))
	case json.RawMessage:
		return decodeArgs(v)
	case []byte:
		return decodeArgs(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return map[string]any{}, errors.Wrap(err, "marshal tool call arguments")
		}
		return decodeArgs(b)
	}
}

func decodeArgs(b []byte) (map[string]any, error) {
	if strings.TrimSpace(string(b)) == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}, errors.Wrap(ErrUnparseableArgs, err.Error())
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// RawArguments returns the arguments as JSON, the form tool executors consume.
func (tc ToolCall) RawArguments() (json.RawMessage, error) {
	args, err := tc.Arguments()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, errors.Wrap(err, "marshal tool call arguments")
	}
	return b, nil
}

// Message is a single entry of the conversation history.
//
// ToolCalls is only meaningful on KindAI messages; ToolCallID and Name only on
// KindTool messages.
type Message struct {
	ID         string     `json:"id,omitempty" yaml:"id,omitempty"`
	Kind       Kind       `json:"type" yaml:"type"`
	Content    string     `json:"content" yaml:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
}

// HasToolCalls reports whether m is an AI message carrying tool-call requests.
func (m Message) HasToolCalls() bool {
	return m.Kind == KindAI && len(m.ToolCalls) > 0
}

// ToolCallIDs returns the non-empty ids of the tool-call requests on m.
func (m Message) ToolCallIDs() []string {
	ids := make([]string, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		if tc.ID != "" {
			ids = append(ids, tc.ID)
		}
	}
	return ids
}

// Clone returns a copy of the message with its own ToolCalls slice.
// Args values are shared.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		cp := make([]ToolCall, len(m.ToolCalls))
		copy(cp, m.ToolCalls)
		m.ToolCalls = cp
	}
	return m
}

// CloneMessages copies a message slice, cloning each message.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i := range msgs {
		out[i] = msgs[i].Clone()
	}
	return out
}

// LastHuman returns the most recent human message, if any.
func LastHuman(msgs []Message) (Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Kind == KindHuman {
			return msgs[i], true
		}
	}
	return Message{}, false
}
