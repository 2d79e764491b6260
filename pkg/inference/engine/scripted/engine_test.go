package scripted

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/canvas-agent/pkg/inference/engine"
	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/stretchr/testify/require"
)

func TestReplaysResponsesInOrder(t *testing.T) {
	e := New([]Response{
		{ToolCalls: []turns.ToolCall{{Name: "get_weather", Args: map[string]any{"location": "Lima"}}}},
		{Content: "done"},
		{Error: "rate limited"},
	})
	ctx := context.Background()
	msgs := []turns.Message{turns.NewHumanMessage("weather?")}

	r, err := e.Invoke(ctx, msgs, []tools.Spec{tools.ActionSpec{Name: "createItem"}}, engine.CallOptions{})
	require.NoError(t, err)
	require.Len(t, r.ToolCalls, 1)
	require.NotEmpty(t, r.ToolCalls[0].ID)

	r, err = e.Invoke(ctx, msgs, nil, engine.CallOptions{})
	require.NoError(t, err)
	require.Equal(t, "done", r.Content)
	require.Nil(t, r.ToolCalls)

	_, err = e.Invoke(ctx, msgs, nil, engine.CallOptions{})
	require.EqualError(t, err, "rate limited")

	_, err = e.Invoke(ctx, msgs, nil, engine.CallOptions{})
	require.ErrorIs(t, err, ErrScriptExhausted)

	calls := e.Calls()
	require.Len(t, calls, 4)
	require.Equal(t, []string{"createItem"}, calls[0].Tools)
}

func TestEchoFallbackAndCancellation(t *testing.T) {
	e := New(nil, WithEcho())
	r, err := e.Invoke(context.Background(), []turns.Message{turns.NewHumanMessage("hello")}, nil, engine.CallOptions{})
	require.NoError(t, err)
	require.Equal(t, "You said: hello", r.Content)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Invoke(ctx, nil, nil, engine.CallOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- tool_calls:
    - id: call_1
      name: set_plan
      args: {steps: [A, B]}
- content: All done.
`), 0o644))

	e, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, e.Remaining())

	r, err := e.Invoke(context.Background(), nil, nil, engine.CallOptions{})
	require.NoError(t, err)
	require.Equal(t, "call_1", r.ToolCalls[0].ID)
	args, err := r.ToolCalls[0].Arguments()
	require.NoError(t, err)
	require.Equal(t, []any{"A", "B"}, args["steps"])
}
