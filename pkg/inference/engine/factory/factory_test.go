package factory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/canvas-agent/pkg/inference/engine"
	"github.com/go-go-golems/canvas-agent/pkg/inference/engine/openai"
	"github.com/go-go-golems/canvas-agent/pkg/settings"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCreateScriptedEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- content: scripted hello\n"), 0o644))

	s := settings.New()
	s.Engine = settings.EngineScripted
	s.ScriptFile = path

	e, err := NewStandardEngineFactory().CreateEngine(s)
	require.NoError(t, err)

	ctx := context.Background()
	msgs := []turns.Message{turns.NewHumanMessage("ping")}
	r, err := e.Invoke(ctx, msgs, nil, engine.CallOptions{})
	require.NoError(t, err)
	require.Equal(t, "scripted hello", r.Content)

	r, err = e.Invoke(ctx, msgs, nil, engine.CallOptions{})
	require.NoError(t, err)
	require.Equal(t, "You said: ping", r.Content)
}

func TestCreateOpenAIEngineRequiresKey(t *testing.T) {
	s := settings.New()
	s.OpenAIAPIKey = ""
	_, err := NewStandardEngineFactory().CreateEngine(s)
	require.Error(t, err)
	require.Equal(t, openai.ErrMissingAPIKey, errors.Cause(err))

	s.OpenAIAPIKey = "sk-test"
	e, err := NewStandardEngineFactory().CreateEngine(s)
	require.NoError(t, err)
	require.NotNil(t, e)
}

func TestUnsupportedEngine(t *testing.T) {
	s := settings.New()
	s.Engine = "gemini"
	_, err := NewStandardEngineFactory().CreateEngine(s)
	require.Error(t, err)
	require.ElementsMatch(t, []string{"openai", "scripted"}, NewStandardEngineFactory().SupportedProviders())
}
