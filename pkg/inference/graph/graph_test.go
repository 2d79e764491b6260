package graph

import (
	"context"
	"testing"

	"github.com/go-go-golems/canvas-agent/pkg/events"
	"github.com/go-go-golems/canvas-agent/pkg/helpers"
	"github.com/go-go-golems/canvas-agent/pkg/inference/engine"
	"github.com/go-go-golems/canvas-agent/pkg/inference/engine/scripted"
	"github.com/go-go-golems/canvas-agent/pkg/inference/router"
	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newGraph(t *testing.T, e engine.Engine, opts ...Option) *Graph {
	t.Helper()
	reg, err := tools.NewRegistry()
	require.NoError(t, err)
	r, err := router.New(router.WithEngine(e), router.WithRegistry(reg))
	require.NoError(t, err)
	g, err := New(r, opts...)
	require.NoError(t, err)
	return g
}

func toolCall(id, name string, args map[string]any) []turns.ToolCall {
	return []turns.ToolCall{{ID: id, Name: name, Args: args}}
}

func humanState(text string) *state.State {
	st := state.New()
	st.Messages = []turns.Message{turns.NewHumanMessage(text)}
	return st
}

func TestInvokeBackendToolLoop(t *testing.T) {
	eng := scripted.New([]scripted.Response{
		{ToolCalls: toolCall("call_1", "get_weather", map[string]any{"location": "Oslo"})},
		{Content: "It is 70 degrees in Oslo."},
	})
	g := newGraph(t, eng)
	in := humanState("weather in Oslo?")

	out, err := g.Invoke(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, in.Messages, 1)

	require.Len(t, out.Messages, 4)
	tool := out.Messages[2]
	require.Equal(t, turns.KindTool, tool.Kind)
	require.Equal(t, "call_1", tool.ToolCallID)
	require.Equal(t, "get_weather", tool.Name)
	require.Equal(t, "The weather for Oslo is 70 degrees.", tool.Content)
	require.Equal(t, "It is 70 degrees in Oslo.", out.Messages[3].Content)
	require.Equal(t, "tool:get_weather", out.LastAction)
	require.Empty(t, out.LastToolGuidance)

	// the second model call saw the tool result
	calls := eng.Calls()
	require.Len(t, calls, 2)
	last := calls[1].Messages
	require.Equal(t, turns.KindTool, last[len(last)-1].Kind)
}

func TestInvokePlanLifecycle(t *testing.T) {
	eng := scripted.New([]scripted.Response{
		{ToolCalls: toolCall("c1", "set_plan", map[string]any{"steps": []any{"Write draft"}})},
		{Content: "Working on the draft."},
		{ToolCalls: toolCall("c2", "update_plan_progress", map[string]any{"step_index": 0, "status": "completed"})},
		{Content: "Draft written."},
		{ToolCalls: toolCall("c3", "complete_plan", nil)},
		{Content: "All done: the draft is written."},
	})
	g := newGraph(t, eng)

	sink := events.NewCollectingSink()
	out, err := g.Stream(context.Background(), humanState("plan and write a draft"), sink)
	require.NoError(t, err)
	require.Equal(t, 0, eng.Remaining())

	require.Equal(t, state.PlanStatusCompleted, out.PlanStatus)
	require.Equal(t, []state.Step{{Title: "Write draft", Status: state.StepCompleted}}, out.PlanSteps)
	require.Equal(t, "All done: the draft is written.", out.Messages[len(out.Messages)-1].Content)
	require.Empty(t, out.LastToolGuidance)

	var results []string
	for _, m := range out.Messages {
		if m.Kind == turns.KindTool {
			results = append(results, m.Content)
		}
	}
	require.Len(t, results, 3)
	require.JSONEq(t, `{"initialized":true,"steps":["Write draft"]}`, results[0])
	require.JSONEq(t, `{"updated":true,"index":0,"status":"completed","note":null}`, results[1])
	require.JSONEq(t, `{"completed":true}`, results[2])

	var nodes []string
	for _, e := range sink.Events() {
		if nu, ok := e.(*events.EventNodeUpdate); ok {
			nodes = append(nodes, nu.Node)
		}
	}
	require.Equal(t, []string{
		"chat_node", "tool_node", "chat_node", // set_plan, then auto-continue
		"chat_node", "tool_node", "chat_node", // mark completed, then complete_plan nudge
		"chat_node", "tool_node", "chat_node", // complete_plan, summary
	}, nodes)
}

func TestStreamEventOrder(t *testing.T) {
	eng := scripted.New([]scripted.Response{
		{ToolCalls: toolCall("call_1", "get_weather", map[string]any{"location": "Oslo"})},
		{Content: "Sunny enough."},
	})
	g := newGraph(t, eng)
	sink := events.NewCollectingSink()
	ctx := helpers.ContextWithCorrelationID(context.Background(), "req-42")

	_, err := g.Stream(ctx, humanState("weather?"), sink)
	require.NoError(t, err)
	require.Equal(t, []events.EventType{
		events.EventTypeStart,
		events.EventTypeToolCall,
		events.EventTypeNodeUpdate,
		events.EventTypeToolCallExecute,
		events.EventTypeToolCallExecutionResult,
		events.EventTypeNodeUpdate,
		events.EventTypeNodeUpdate,
		events.EventTypeFinal,
	}, sink.Types())

	evs := sink.Events()
	for _, e := range evs {
		require.Equal(t, "req-42", e.Metadata().RunID)
		require.Equal(t, DefaultGraphID, e.Metadata().GraphID)
	}
	require.Equal(t, 2, evs[5].Metadata().Hop)
	require.Equal(t, "tool_node", evs[5].Metadata().Node)
	final, ok := evs[len(evs)-1].(*events.EventFinal)
	require.True(t, ok)
	require.Len(t, final.State.Messages, 4)
}

func TestFrontendCallEndsTurn(t *testing.T) {
	eng := scripted.New([]scripted.Response{
		{ToolCalls: toolCall("call_1", "createItem", map[string]any{"type": "note"})},
	})
	g := newGraph(t, eng)
	out, err := g.Invoke(context.Background(), humanState("make a note"))
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	require.Equal(t, router.GuidanceFrontend, out.LastToolGuidance)
}

func TestInterruptEndsTurn(t *testing.T) {
	g := newGraph(t, scripted.New(nil))
	st := humanState("rename the item")
	st.Items = []state.Item{{ID: "0001", Type: state.ItemTypeNote}, {ID: "0002", Type: state.ItemTypeNote}}

	sink := events.NewCollectingSink()
	out, err := g.Stream(context.Background(), st, sink)
	require.NoError(t, err)
	require.NotNil(t, out.Interrupt)
	require.Equal(t, state.InterruptChooseItem, out.Interrupt.Type)
	require.Contains(t, sink.Types(), events.EventTypeInterrupt)
	require.Equal(t, events.EventTypeFinal, sink.Types()[len(sink.Types())-1])
}

func TestMaxIterations(t *testing.T) {
	loop := engine.Func(func(ctx context.Context, messages []turns.Message, specs []tools.Spec, opts engine.CallOptions) (*turns.Message, error) {
		m := turns.NewAIMessage("", turns.NewToolCall("", "get_weather", map[string]any{"location": "Oslo"}))
		return &m, nil
	})
	g := newGraph(t, loop, WithMaxIterations(3))

	sink := events.NewCollectingSink()
	out, err := g.Stream(context.Background(), humanState("loop"), sink)
	require.Error(t, err)
	require.Equal(t, ErrMaxIterations, errors.Cause(err))
	require.NotNil(t, out)
	require.Equal(t, events.EventTypeError, sink.Types()[len(sink.Types())-1])
}

func TestModelErrorSurfaces(t *testing.T) {
	boom := errors.New("model unavailable")
	failing := engine.Func(func(ctx context.Context, messages []turns.Message, specs []tools.Spec, opts engine.CallOptions) (*turns.Message, error) {
		return nil, boom
	})
	g := newGraph(t, failing)

	sink := events.NewCollectingSink()
	_, err := g.Stream(context.Background(), humanState("hi"), sink)
	require.Error(t, err)
	require.Equal(t, boom, errors.Cause(err))
	require.Equal(t, []events.EventType{events.EventTypeStart, events.EventTypeError}, sink.Types())

	ev, ok := sink.Events()[1].(*events.EventError)
	require.True(t, ok)
	require.Contains(t, ev.ErrorString, "model unavailable")
}

func TestToolErrorSurfaces(t *testing.T) {
	boom := errors.New("disk full")
	def, err := tools.NewToolFromFunc("explode", "Always fails.", func() (string, error) {
		return "", boom
	})
	require.NoError(t, err)
	reg, err := tools.NewRegistry(tools.WithBackendTools(def))
	require.NoError(t, err)

	eng := scripted.New([]scripted.Response{{ToolCalls: toolCall("c1", "explode", nil)}})
	r, err := router.New(router.WithEngine(eng), router.WithRegistry(reg))
	require.NoError(t, err)
	g, err := New(r, WithID("custom"))
	require.NoError(t, err)
	require.Equal(t, "custom", g.ID())

	_, err = g.Invoke(context.Background(), humanState("go"))
	require.Error(t, err)
	require.Equal(t, boom, errors.Cause(err))
}

func TestUnparseableArgumentsReportedToModel(t *testing.T) {
	reg, err := tools.NewRegistry()
	require.NoError(t, err)
	eng := scripted.New([]scripted.Response{
		{ToolCalls: []turns.ToolCall{
			{ID: "c1", Name: "get_weather", Args: `{"location":`},
		}},
		{Content: "Sorry, I could not read that."},
	})
	r, err := router.New(router.WithEngine(eng), router.WithRegistry(reg))
	require.NoError(t, err)
	g, err := New(r)
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), humanState("weather"))
	require.NoError(t, err)
	require.Contains(t, out.Messages[2].Content, "Error: ")
}
