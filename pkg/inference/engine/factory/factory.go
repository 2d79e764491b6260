// Package factory builds the configured model engine from settings.
package factory

import (
	"github.com/go-go-golems/canvas-agent/pkg/inference/engine"
	"github.com/go-go-golems/canvas-agent/pkg/inference/engine/openai"
	"github.com/go-go-golems/canvas-agent/pkg/inference/engine/scripted"
	"github.com/go-go-golems/canvas-agent/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EngineFactory creates engines from settings, so callers do not need to
// know which provider backs a deployment.
type EngineFactory interface {
	CreateEngine(s *settings.Settings, middlewares ...engine.Middleware) (engine.Engine, error)
	SupportedProviders() []string
}

type StandardEngineFactory struct{}

func NewStandardEngineFactory() *StandardEngineFactory {
	return &StandardEngineFactory{}
}

var _ EngineFactory = (*StandardEngineFactory)(nil)

func (f *StandardEngineFactory) SupportedProviders() []string {
	return []string{settings.EngineOpenAI, settings.EngineScripted}
}

// CreateEngine builds the provider engine and wraps it with logging and
// metrics middleware, followed by any extra middlewares.
func (f *StandardEngineFactory) CreateEngine(s *settings.Settings, middlewares ...engine.Middleware) (engine.Engine, error) {
	if s == nil {
		return nil, errors.New("settings cannot be nil")
	}

	var (
		base  engine.Engine
		model = s.Model
	)
	switch s.Engine {
	case settings.EngineOpenAI, "":
		options := []openai.Option{openai.WithModel(s.Model)}
		if s.Temperature != nil {
			options = append(options, openai.WithTemperature(*s.Temperature))
		}
		e, err := openai.NewEngine(s.OpenAIAPIKey, s.OpenAIBaseURL, options...)
		if err != nil {
			return nil, errors.Wrap(err, "create openai engine")
		}
		base = e
	case settings.EngineScripted:
		model = settings.EngineScripted
		if s.ScriptFile == "" {
			base = scripted.New(nil, scripted.WithEcho())
			break
		}
		e, err := scripted.LoadFile(s.ScriptFile, scripted.WithEcho())
		if err != nil {
			return nil, err
		}
		base = e
	default:
		return nil, errors.Errorf("unsupported engine %q", s.Engine)
	}

	log.Debug().Str("engine", s.Engine).Str("model", model).Msg("created engine")

	chain := append([]engine.Middleware{
		engine.NewLoggingMiddleware(log.Logger),
		engine.NewMetricsMiddleware(model),
	}, middlewares...)
	return engine.NewEngineWithMiddleware(base, chain...), nil
}
