package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/canvas-agent/pkg/inference/engine/scripted"
	"github.com/go-go-golems/canvas-agent/pkg/inference/graph"
	"github.com/go-go-golems/canvas-agent/pkg/inference/router"
	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/stretchr/testify/require"
)

func testGraph(t *testing.T, responses ...scripted.Response) *graph.Graph {
	t.Helper()
	reg, err := tools.NewRegistry()
	require.NoError(t, err)
	r, err := router.New(router.WithEngine(scripted.New(responses)), router.WithRegistry(reg))
	require.NoError(t, err)
	g, err := graph.New(r)
	require.NoError(t, err)
	return g
}

func TestLoadRunState(t *testing.T) {
	_, err := loadRunState(&runOptions{})
	require.Error(t, err)

	st, err := loadRunState(&runOptions{message: "hello"})
	require.NoError(t, err)
	require.Len(t, st.Messages, 1)
	require.Equal(t, turns.KindHuman, st.Messages[0].Kind)

	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("globalTitle: Board\nmessages:\n  - type: human\n    content: first\n"), 0o644))
	st, err = loadRunState(&runOptions{statePath: path, message: "second"})
	require.NoError(t, err)
	require.Equal(t, "Board", st.GlobalTitle)
	require.Len(t, st.Messages, 2)
	require.Equal(t, "second", st.Messages[1].Content)
}

func TestStreamRunSSE(t *testing.T) {
	g := testGraph(t, scripted.Response{Content: "hi there"})
	st, err := loadRunState(&runOptions{message: "hello"})
	require.NoError(t, err)

	var buf bytes.Buffer
	final, err := streamRun(context.Background(), g, st, "sse", &buf)
	require.NoError(t, err)
	require.Equal(t, "hi there", final.Messages[len(final.Messages)-1].Content)

	frames := strings.Split(strings.TrimSpace(buf.String()), "\n\n")
	require.Len(t, frames, 3)
	require.Contains(t, frames[0], `"event":"start"`)
	require.Contains(t, frames[1], `"event":"node-update"`)
	require.Contains(t, frames[2], `"event":"final"`)
}

func TestStreamRunSteps(t *testing.T) {
	g := testGraph(t, scripted.Response{Content: "hi there"})
	st, err := loadRunState(&runOptions{message: "hello"})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = streamRun(context.Background(), g, st, "steps", &buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "--- chat_node ---")
	require.Contains(t, buf.String(), "ai: hi there")
	require.Contains(t, buf.String(), "[done]")
}

func TestStreamRunUnknownFormat(t *testing.T) {
	g := testGraph(t)
	_, err := streamRun(context.Background(), g, nil, "xml", &bytes.Buffer{})
	require.Error(t, err)
}

func TestAskInterruptAndResume(t *testing.T) {
	g := testGraph(t, scripted.Response{Content: "Renamed 0002."})
	st := state.New()
	st.Items = []state.Item{{ID: "0001", Type: state.ItemTypeNote}, {ID: "0002", Type: state.ItemTypeNote}}
	st.Messages = []turns.Message{turns.NewHumanMessage("rename the item to Roadmap")}

	suspended, err := g.Invoke(context.Background(), st)
	require.NoError(t, err)
	require.NotNil(t, suspended.Interrupt)
	require.Equal(t, state.InterruptChooseItem, suspended.Interrupt.Type)

	var prompt bytes.Buffer
	answer, err := askInterrupt(strings.NewReader("  0002 \n"), &prompt, suspended.Interrupt)
	require.NoError(t, err)
	require.Equal(t, "0002", answer)
	require.Contains(t, prompt.String(), suspended.Interrupt.Content)

	resumeWith(suspended, answer)
	require.Equal(t, "0002", suspended.Resume[state.InterruptChooseItem].Answer)

	final, err := g.Invoke(context.Background(), suspended)
	require.NoError(t, err)
	require.Nil(t, final.Interrupt)
	require.Equal(t, "0002", final.ChosenItemID)
	require.Equal(t, "Renamed 0002.", final.Messages[len(final.Messages)-1].Content)
}
