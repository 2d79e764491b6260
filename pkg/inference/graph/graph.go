// Package graph runs the agent loop: the chat node (router) and the tool
// node alternate until the router ends the turn.
package graph

import (
	"context"
	"fmt"

	"github.com/go-go-golems/canvas-agent/pkg/events"
	"github.com/go-go-golems/canvas-agent/pkg/helpers"
	"github.com/go-go-golems/canvas-agent/pkg/inference/router"
	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultGraphID       = "sample_agent"
	DefaultMaxIterations = 25
)

// ErrMaxIterations is returned when a run does not reach the end node
// within the configured number of hops.
var ErrMaxIterations = errors.New("maximum graph iterations reached")

type Graph struct {
	id            string
	router        *router.Router
	executor      tools.ToolExecutor
	maxIterations int
}

type Option func(*Graph)

func WithID(id string) Option {
	return func(g *Graph) {
		if id != "" {
			g.id = id
		}
	}
}

func WithExecutor(exec tools.ToolExecutor) Option {
	return func(g *Graph) { g.executor = exec }
}

// WithMaxIterations caps node executions per run. Values <= 0 keep the default.
func WithMaxIterations(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxIterations = n
		}
	}
}

func New(r *router.Router, opts ...Option) (*Graph, error) {
	if r == nil {
		return nil, errors.New("graph router is nil")
	}
	g := &Graph{
		id:            DefaultGraphID,
		router:        r,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.executor == nil {
		g.executor = tools.NewDefaultToolExecutor(r.Registry())
	}
	return g, nil
}

func (g *Graph) ID() string {
	return g.id
}

// Invoke runs the graph from the chat node until it ends and returns the
// final state. The input state is not modified.
func (g *Graph) Invoke(ctx context.Context, st *state.State) (*state.State, error) {
	return g.run(ctx, st)
}

// Stream runs like Invoke and publishes a start event, one node-update event
// per executed node and a final or error event to sinks, in addition to any
// sinks already attached to ctx.
func (g *Graph) Stream(ctx context.Context, st *state.State, sinks ...events.EventSink) (*state.State, error) {
	ctx = events.WithEventSinks(ctx, sinks...)
	return g.run(ctx, st)
}

func (g *Graph) run(ctx context.Context, st *state.State) (*state.State, error) {
	current := st.Clone()
	if current == nil {
		current = state.New()
	}

	runID := helpers.CorrelationIDFromContext(ctx)
	ctx = events.WithMetadata(ctx, events.EventMetadata{RunID: runID, GraphID: g.id})
	lg := log.With().Str("graph", g.id).Str("run_id", runID).Logger()

	events.PublishEventToContext(ctx, events.NewStartEvent(events.MetadataFromContext(ctx)))
	lg.Debug().Int("messages", len(current.Messages)).Msg("graph: run started")

	fail := func(hops int, outcome string, err error) (*state.State, error) {
		recordRun(g.id, outcome, hops)
		events.PublishEventToContext(ctx, events.NewErrorEvent(events.MetadataFromContext(ctx), err))
		return current, err
	}

	node := router.NodeChat
	for hop := 1; hop <= g.maxIterations; hop++ {
		hopCtx := events.WithMetadata(ctx, events.EventMetadata{RunID: runID, GraphID: g.id, Node: string(node), Hop: hop})

		var (
			update state.Update
			next   router.Node
		)
		switch node {
		case router.NodeChat:
			out, err := g.router.Step(hopCtx, current)
			if err != nil {
				lg.Error().Err(err).Int("hop", hop).Msg("graph: chat node failed")
				return fail(hop, "error", errors.Wrap(err, "chat node"))
			}
			update, next = out.Update, out.Goto
		case router.NodeTools:
			u, err := g.toolNode(hopCtx, current)
			if err != nil {
				lg.Error().Err(err).Int("hop", hop).Msg("graph: tool node failed")
				return fail(hop, "error", errors.Wrap(err, "tool node"))
			}
			update, next = u, router.NodeChat
		default:
			return fail(hop, "error", errors.Errorf("unknown node %q", node))
		}

		current.Apply(update)
		events.PublishEventToContext(hopCtx, events.NewNodeUpdateEvent(events.MetadataFromContext(hopCtx), string(node), update))
		lg.Debug().Int("hop", hop).Str("node", string(node)).Str("next", string(next)).Msg("graph: hop done")

		if next == router.NodeEnd {
			outcome := "end"
			if current.Interrupt != nil {
				outcome = "interrupted"
			}
			recordRun(g.id, outcome, hop)
			events.PublishEventToContext(ctx, events.NewFinalEvent(events.MetadataFromContext(ctx), current))
			return current, nil
		}
		node = next
	}

	lg.Warn().Int("max_iterations", g.maxIterations).Msg("graph: maximum iterations reached")
	return fail(g.maxIterations, "max_iterations", errors.Wrapf(ErrMaxIterations, "after %d hops", g.maxIterations))
}

// toolNode executes the tool calls of the last AI message and returns their
// results as tool messages.
func (g *Graph) toolNode(ctx context.Context, st *state.State) (state.Update, error) {
	if len(st.Messages) == 0 {
		return state.Update{}, errors.New("no message to execute tools for")
	}
	last := st.Messages[len(st.Messages)-1]
	if !last.HasToolCalls() {
		return state.Update{}, errors.New("last message has no tool calls")
	}

	results, err := g.executor.ExecuteToolCalls(ctx, last.ToolCalls)
	if err != nil {
		return state.Update{}, err
	}

	u := state.Update{}
	for _, r := range results {
		recordToolExecution(r.Name, r.Error != "")
		content, err := r.Content()
		if err != nil {
			return state.Update{}, errors.Wrapf(err, "encode result of %s", r.Name)
		}
		u.Messages = append(u.Messages, turns.NewToolResultMessage(r.ID, r.Name, content))
		u.LastAction = state.Ptr(fmt.Sprintf("tool:%s", r.Name))
	}
	return u, nil
}
