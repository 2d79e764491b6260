package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/go-go-golems/canvas-agent/pkg/events"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ToolExecutor runs the backend tool calls of a model response.
type ToolExecutor interface {
	ExecuteToolCalls(ctx context.Context, calls []turns.ToolCall) ([]ToolResult, error)
}

// DefaultToolExecutor executes calls sequentially against a Registry.
type DefaultToolExecutor struct {
	registry *Registry
}

func NewDefaultToolExecutor(registry *Registry) *DefaultToolExecutor {
	return &DefaultToolExecutor{registry: registry}
}

var _ ToolExecutor = (*DefaultToolExecutor)(nil)

// ExecuteToolCall executes a single call.
//
// Unknown tools and arguments that do not decode or violate the tool schema
// are reported as error results so the model can see them. An error returned by the tool function
// itself is propagated.
func (e *DefaultToolExecutor) ExecuteToolCall(ctx context.Context, call turns.ToolCall) (ToolResult, error) {
	start := time.Now()
	result := ToolResult{ID: call.ID, Name: call.Name}

	def, ok := e.registry.Tool(call.Name)
	if !ok {
		result.Error = fmt.Sprintf("tool not found: %s", call.Name)
		result.Duration = time.Since(start)
		e.publishResult(ctx, result)
		return result, nil
	}

	args, err := call.RawArguments()
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(start)
		e.publishResult(ctx, result)
		return result, nil
	}

	if err := def.ValidateArguments(args); err != nil {
		log.Debug().Err(err).Str("tool", call.Name).Str("tool_call_id", call.ID).Msg("tool arguments rejected")
		result.Error = err.Error()
		result.Duration = time.Since(start)
		e.publishResult(ctx, result)
		return result, nil
	}

	events.PublishEventToContext(ctx, events.NewToolCallExecuteEvent(
		events.MetadataFromContext(ctx),
		events.ToolCall{ID: call.ID, Name: call.Name, Input: string(args)},
	))

	out, err := def.Function.ExecuteWithContext(ctx, args)
	result.Duration = time.Since(start)
	if err != nil {
		if errors.Cause(err) == ErrInvalidArguments {
			result.Error = err.Error()
			e.publishResult(ctx, result)
			return result, nil
		}
		log.Error().Err(err).Str("tool", call.Name).Str("tool_call_id", call.ID).Msg("tool execution failed")
		return result, errors.Wrapf(err, "tool %s", call.Name)
	}
	result.Result = out
	e.publishResult(ctx, result)

	log.Debug().Str("tool", call.Name).Str("tool_call_id", call.ID).Dur("duration", result.Duration).Msg("tool executed")
	return result, nil
}

// ExecuteToolCalls runs calls one after the other in request order and stops
// at the first propagated error.
func (e *DefaultToolExecutor) ExecuteToolCalls(ctx context.Context, calls []turns.ToolCall) ([]ToolResult, error) {
	results := make([]ToolResult, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := e.ExecuteToolCall(ctx, call)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *DefaultToolExecutor) publishResult(ctx context.Context, result ToolResult) {
	content, err := result.Content()
	if err != nil {
		content = fmt.Sprintf("%v", result.Result)
	}
	events.PublishEventToContext(ctx, events.NewToolCallExecutionResultEvent(
		events.MetadataFromContext(ctx),
		events.ToolResult{ID: result.ID, Name: result.Name, Result: content},
	))
}
