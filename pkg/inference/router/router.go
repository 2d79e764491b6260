// Package router implements one hop of the agent loop: it assembles the
// prompt from the current state, calls the model once and decides where the
// turn goes next.
package router

import (
	"context"

	"github.com/go-go-golems/canvas-agent/pkg/events"
	"github.com/go-go-golems/canvas-agent/pkg/inference/engine"
	"github.com/go-go-golems/canvas-agent/pkg/inference/history"
	"github.com/go-go-golems/canvas-agent/pkg/inference/plan"
	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Node names a graph node.
type Node string

const (
	NodeChat  Node = "chat_node"
	NodeTools Node = "tool_node"
	NodeEnd   Node = "__end__"
)

// Route names the branch that produced an Outcome.
type Route string

const (
	RouteBackendTools    Route = "backend_tools"
	RouteFrontendTools   Route = "frontend_tools"
	RouteContinuePlan    Route = "continue_plan"
	RouteCompletePlan    Route = "complete_plan"
	RouteEnd             Route = "end"
	RoutePendingFrontend Route = "pending_frontend"
	RouteAwaitingInput   Route = "awaiting_input"
)

// Outcome is the result of one Step. Update is always set and must be
// applied before moving to Goto. Interrupt is set when the turn is
// suspended awaiting an external choice.
type Outcome struct {
	Goto      Node
	Route     Route
	Update    state.Update
	Response  *turns.Message
	Interrupt *state.Interrupt
}

// debugLoggedMessages is how many outgoing messages get a debug line.
const debugLoggedMessages = 5

type Router struct {
	engine   engine.Engine
	registry *tools.Registry
	window   int
}

type Option func(*Router)

func WithEngine(e engine.Engine) Option {
	return func(r *Router) { r.engine = e }
}

func WithRegistry(reg *tools.Registry) Option {
	return func(r *Router) { r.registry = reg }
}

// WithHistoryWindow sets how many trailing messages are sent to the model.
// Zero or less uses history.DefaultWindow.
func WithHistoryWindow(n int) Option {
	return func(r *Router) { r.window = n }
}

func New(opts ...Option) (*Router, error) {
	r := &Router{window: history.DefaultWindow}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.engine == nil {
		return nil, errors.New("router engine is nil")
	}
	if r.registry == nil {
		return nil, errors.New("router registry is nil")
	}
	return r, nil
}

func (r *Router) Registry() *tools.Registry {
	return r.registry
}

// Step runs assemble, invoke_model and route for st. Apart from giving
// messages without an id a fresh one, st is not modified.
// Model failures are returned as errors, never turned into an end outcome.
func (r *Router) Step(ctx context.Context, st *state.State) (Outcome, error) {
	if st == nil {
		st = state.New()
	}
	// answers are bound to the id of the human message they were given for
	turns.EnsureIDs(st.Messages)

	msgs, prepass := history.DropLeadingOrphans(st.Messages)
	recordOrphans("prepass", prepass.Dropped())

	frontend := r.registry.PrepareFrontendTools(st.Tools, st.CopilotKit.Actions)
	backend, err := r.registry.BackendSpecs()
	if err != nil {
		return Outcome{}, errors.Wrap(err, "build backend tool specs")
	}

	d := disambiguate(st, msgs)
	if d.interrupt != nil {
		log.Info().Str("type", string(d.interrupt.Type)).Str("message_id", d.interrupt.MessageID).Msg("awaiting input")
		u := state.Preserve(st)
		u.Interrupt = d.interrupt
		recordRoute(RouteAwaitingInput)
		events.PublishEventToContext(ctx, events.NewInterruptEvent(events.MetadataFromContext(ctx), *d.interrupt))
		return Outcome{Goto: NodeEnd, Route: RouteAwaitingInput, Update: u, Interrupt: d.interrupt}, nil
	}
	if d.clarify != nil {
		msgs = insertAfter(msgs, d.clarify.ID, d.extra)
	}

	if r.hasPendingFrontendTools(msgs) {
		log.Debug().Msg("waiting on frontend tool results")
		recordRoute(RoutePendingFrontend)
		return Outcome{Goto: NodeEnd, Route: RoutePendingFrontend, Update: state.Preserve(st).Merge(d.update)}, nil
	}

	trimmed := history.Trim(msgs, r.window)
	assembled := make([]turns.Message, 0, len(trimmed)+2)
	assembled = append(assembled, turns.NewSystemMessage(SystemPrompt(st)))
	assembled = append(assembled, trimmed...)
	assembled = append(assembled, turns.NewSystemMessage(LatestStateReminder(st)))
	validated, report := history.ValidateWithReport(assembled)
	recordOrphans("validate", report.Dropped())
	logOutgoing(validated)

	specs := make([]tools.Spec, 0, len(frontend)+len(backend))
	specs = append(specs, frontend...)
	specs = append(specs, backend...)

	response, err := r.engine.Invoke(ctx, validated, specs, engine.CallOptions{ParallelToolCalls: false})
	if err != nil {
		return Outcome{}, errors.Wrap(err, "invoke model")
	}
	if response == nil {
		return Outcome{}, engine.ErrNoResponse
	}
	for _, tc := range response.ToolCalls {
		args, _ := tc.RawArguments()
		events.PublishEventToContext(ctx, events.NewToolCallEvent(
			events.MetadataFromContext(ctx),
			events.ToolCall{ID: tc.ID, Name: tc.Name, Input: string(args)},
		))
	}

	projection := plan.Project(response, st.PlanSteps, st.CurrentStepIndex, st.PlanStatus)
	steps, status := st.PlanSteps, st.PlanStatus
	if projection.PlanSteps != nil {
		steps = *projection.PlanSteps
	}
	if projection.PlanStatus != nil {
		status = *projection.PlanStatus
	}

	route, next, guidance := r.route(response, steps, status)
	recordRoute(route)
	log.Debug().Str("route", string(route)).Str("goto", string(next)).Msg("routed model response")

	u := state.Update{Messages: []turns.Message{*response}}.
		Merge(state.Preserve(st)).
		Merge(projection).
		Merge(d.update)
	u.LastToolGuidance = state.Ptr(guidance)

	return Outcome{Goto: next, Route: route, Update: u, Response: response}, nil
}

// route applies the fixed-priority routing rules to a model response, given
// the plan as it stands after projection.
func (r *Router) route(response *turns.Message, steps []state.Step, status state.PlanStatus) (Route, Node, string) {
	hasFrontend := false
	for _, tc := range response.ToolCalls {
		if r.registry.IsBackend(tc.Name) {
			return RouteBackendTools, NodeTools, GuidanceDeletion
		}
		if tc.Name != "" {
			hasFrontend = true
		}
	}
	if hasFrontend {
		return RouteFrontendTools, NodeEnd, GuidanceFrontend
	}

	remaining, allCompleted := false, len(steps) > 0
	for _, s := range steps {
		if !s.Status.Terminal() {
			remaining = true
		}
		if s.Status != state.StepCompleted {
			allCompleted = false
		}
	}
	if remaining && status != state.PlanStatusCompleted {
		return RouteContinuePlan, NodeChat, GuidanceContinue
	}
	if allCompleted && status != state.PlanStatusCompleted {
		return RouteCompletePlan, NodeChat, GuidanceComplete
	}
	return RouteEnd, NodeEnd, ""
}

// hasPendingFrontendTools only looks at the last message: an AI message
// with any non-backend tool call means the client still owes results.
func (r *Router) hasPendingFrontendTools(msgs []turns.Message) bool {
	if len(msgs) == 0 {
		return false
	}
	last := msgs[len(msgs)-1]
	if last.Kind != turns.KindAI {
		return false
	}
	for _, tc := range last.ToolCalls {
		if tc.Name != "" && !r.registry.IsBackend(tc.Name) {
			return true
		}
	}
	return false
}

func insertAfter(msgs []turns.Message, id string, extra []turns.Message) []turns.Message {
	out := make([]turns.Message, 0, len(msgs)+len(extra))
	inserted := false
	for _, m := range msgs {
		out = append(out, m)
		if !inserted && m.ID == id {
			out = append(out, extra...)
			inserted = true
		}
	}
	if !inserted {
		out = append(out, extra...)
	}
	return out
}

func logOutgoing(msgs []turns.Message) {
	for i, m := range msgs {
		if i >= debugLoggedMessages {
			break
		}
		ev := log.Debug().Int("index", i).Str("type", string(m.Kind))
		switch {
		case m.Kind == turns.KindTool:
			ev = ev.Str("tool_call_id", m.ToolCallID)
		case m.HasToolCalls():
			ev = ev.Strs("tool_calls", m.ToolCallIDs())
		}
		ev.Msg("outgoing message")
	}
}
