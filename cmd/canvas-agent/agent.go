package main

import (
	"github.com/go-go-golems/canvas-agent/pkg/inference/engine/factory"
	"github.com/go-go-golems/canvas-agent/pkg/inference/graph"
	"github.com/go-go-golems/canvas-agent/pkg/inference/router"
	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/settings"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// loadGraph builds the agent graph from the merged viper settings.
func loadGraph() (*graph.Graph, *settings.Settings, error) {
	s, err := settings.FromViper(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	eng, err := factory.NewStandardEngineFactory().CreateEngine(s)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create engine")
	}
	reg, err := tools.NewRegistry(tools.WithMaxFrontendTools(s.MaxFrontendTools))
	if err != nil {
		return nil, nil, errors.Wrap(err, "create tool registry")
	}
	r, err := router.New(
		router.WithEngine(eng),
		router.WithRegistry(reg),
		router.WithHistoryWindow(s.HistoryWindow),
	)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.New(r, graph.WithID(s.GraphID), graph.WithMaxIterations(s.MaxIterations))
	if err != nil {
		return nil, nil, err
	}
	return g, s, nil
}
