package router

import (
	"context"
	"testing"

	"github.com/go-go-golems/canvas-agent/pkg/events"
	"github.com/go-go-golems/canvas-agent/pkg/inference/engine/scripted"
	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/stretchr/testify/require"
)

func TestNeedsItemChoice(t *testing.T) {
	items := twoItems()
	cases := []struct {
		text  string
		items []state.Item
		want  bool
	}{
		{"Rename the item to Gamma", items, true},
		{"please EDIT it", items, true},
		{"rename id=0001 to Gamma", items, false},
		{"update item id 0002", items, false},
		{"change 0002 to done", items, false},
		{"what is the weather", items, false},
		{"rename the item", items[:1], false},
		{"rename the item", nil, false},
	}
	for _, c := range cases {
		t.Run(c.text, func(t *testing.T) {
			require.Equal(t, c.want, NeedsItemChoice(turns.NewHumanMessage(c.text), c.items))
		})
	}
}

func TestNeedsCardType(t *testing.T) {
	require.True(t, NeedsCardType(turns.NewHumanMessage("Add a new card")))
	require.True(t, NeedsCardType(turns.NewHumanMessage("create an item")))
	require.False(t, NeedsCardType(turns.NewHumanMessage("create a note item")))
	require.False(t, NeedsCardType(turns.NewHumanMessage("add a chart")))
	require.False(t, NeedsCardType(turns.NewHumanMessage("show me the card")))
}

func TestChooseItemInterrupt(t *testing.T) {
	r, eng := newRouter(t, scripted.Response{Content: "renamed"})
	human := turns.NewHumanMessage("rename the item to Gamma")
	st := state.New()
	st.Items = twoItems()
	st.Messages = []turns.Message{human}

	sink := events.NewCollectingSink()
	ctx := events.WithEventSinks(context.Background(), sink)
	out, err := r.Step(ctx, st)
	require.NoError(t, err)
	require.Equal(t, NodeEnd, out.Goto)
	require.Equal(t, RouteAwaitingInput, out.Route)
	require.Equal(t, &state.Interrupt{Type: state.InterruptChooseItem, Content: ChooseItemPrompt, MessageID: human.ID}, out.Interrupt)
	require.Equal(t, out.Interrupt, out.Update.Interrupt)
	require.Empty(t, out.Update.Messages)
	require.Empty(t, eng.Calls())
	require.Equal(t, []events.EventType{events.EventTypeInterrupt}, sink.Types())

	// resume with an answer
	st.Apply(out.Update)
	st.Resume = map[state.InterruptType]state.Answer{state.InterruptChooseItem: {Answer: "0002"}}
	out, err = r.Step(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, RouteEnd, out.Route)
	require.Equal(t, "0002", *out.Update.ChosenItemID)
	require.True(t, out.Update.ClearInterrupt)
	require.Equal(t, human.ID, out.Update.Resume[state.InterruptChooseItem].MessageID)
	require.Len(t, eng.Calls(), 1)

	st.Apply(out.Update)
	require.Nil(t, st.Interrupt)
	require.Equal(t, "0002", st.ChosenItemID)
}

func TestChooseItemAskedAgainForNewMessage(t *testing.T) {
	r, eng := newRouter(t)
	st := state.New()
	st.Items = twoItems()
	old := turns.NewHumanMessage("rename the item")
	st.Messages = []turns.Message{old, turns.NewAIMessage("done"), turns.NewHumanMessage("now edit the other one")}
	st.Resume = map[state.InterruptType]state.Answer{state.InterruptChooseItem: {Answer: "0001", MessageID: old.ID}}

	out, err := r.Step(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, RouteAwaitingInput, out.Route)
	require.Equal(t, st.Messages[2].ID, out.Interrupt.MessageID)
	require.Empty(t, eng.Calls())
}

func TestChooseItemAnswerNotReusedForMessagesWithoutIDs(t *testing.T) {
	r, eng := newRouter(t, scripted.Response{Content: "renamed"})
	st := state.New()
	st.Items = twoItems()
	st.Messages = []turns.Message{{Kind: turns.KindHuman, Content: "rename the item"}}

	out, err := r.Step(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, RouteAwaitingInput, out.Route)
	require.NotEmpty(t, st.Messages[0].ID)
	require.Equal(t, st.Messages[0].ID, out.Interrupt.MessageID)

	st.Apply(out.Update)
	st.Resume = map[state.InterruptType]state.Answer{state.InterruptChooseItem: {Answer: "0001"}}
	out, err = r.Step(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, RouteEnd, out.Route)
	require.Equal(t, st.Messages[0].ID, out.Update.Resume[state.InterruptChooseItem].MessageID)
	st.Apply(out.Update)

	st.Messages = append(st.Messages, turns.Message{Kind: turns.KindHuman, Content: "now edit the other one"})
	out, err = r.Step(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, RouteAwaitingInput, out.Route)
	require.NotEqual(t, st.Messages[0].ID, out.Interrupt.MessageID)
	require.Equal(t, st.Messages[len(st.Messages)-1].ID, out.Interrupt.MessageID)
	require.Len(t, eng.Calls(), 1)
}

func TestChooseCardTypeAddsClarification(t *testing.T) {
	r, eng := newRouter(t,
		scripted.Response{ToolCalls: []turns.ToolCall{call("set_plan", map[string]any{"steps": []any{"make card"}})}},
		scripted.Response{Content: "created"},
	)
	human := turns.NewHumanMessage("add a new card")
	st := state.New()
	st.Messages = []turns.Message{human}

	out, err := r.Step(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, state.InterruptChooseCardType, out.Interrupt.Type)
	require.Equal(t, ChooseCardTypePrompt, out.Interrupt.Content)

	st.Apply(out.Update)
	st.Resume = map[state.InterruptType]state.Answer{state.InterruptChooseCardType: {Answer: "note"}}
	out, err = r.Step(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, NodeTools, out.Goto)
	// the clarification is prompt-only
	require.Len(t, out.Update.Messages, 1)

	sent := eng.Calls()[0].Messages
	// system messages are hoisted ahead of the history
	require.Equal(t, "add a new card", sent[2].Content)
	require.Equal(t, "Create a note item.", sent[3].Content)
	require.Equal(t, turns.KindHuman, sent[3].Kind)

	// a later hop of the same request reuses the bound answer
	st.Apply(out.Update)
	st.Messages = append(st.Messages, turns.NewToolResultMessage("call_set_plan", "set_plan", `{"initialized":true}`))
	out, err = r.Step(context.Background(), st)
	require.NoError(t, err)
	require.Nil(t, out.Interrupt)
	sent = eng.Calls()[1].Messages
	require.Equal(t, "Create a note item.", sent[3].Content)
}
