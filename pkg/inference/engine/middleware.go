package engine

import (
	"context"
	"time"

	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Request bundles the inputs of one model call for middleware.
type Request struct {
	Messages []turns.Message
	Tools    []tools.Spec
	Options  CallOptions
}

// HandlerFunc processes a Request.
type HandlerFunc func(ctx context.Context, req Request) (*turns.Message, error)

// Middleware wraps a HandlerFunc with additional functionality.
// Middleware are applied in order: Chain(h, m1, m2, m3) results in m1(m2(m3(h))).
type Middleware func(HandlerFunc) HandlerFunc

// Chain composes multiple middleware into a single HandlerFunc.
func Chain(handler HandlerFunc, middlewares ...Middleware) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// EngineWithMiddleware wraps an Engine with a middleware chain.
type EngineWithMiddleware struct {
	handler HandlerFunc
}

// NewEngineWithMiddleware creates a new engine with middleware support.
func NewEngineWithMiddleware(e Engine, middlewares ...Middleware) *EngineWithMiddleware {
	handler := func(ctx context.Context, req Request) (*turns.Message, error) {
		return e.Invoke(ctx, req.Messages, req.Tools, req.Options)
	}
	return &EngineWithMiddleware{
		handler: Chain(handler, middlewares...),
	}
}

func (e *EngineWithMiddleware) Invoke(ctx context.Context, messages []turns.Message, tools []tools.Spec, opts CallOptions) (*turns.Message, error) {
	return e.handler(ctx, Request{Messages: messages, Tools: tools, Options: opts})
}

var _ Engine = (*EngineWithMiddleware)(nil)

// NewLoggingMiddleware logs message and tool counts before and after each model call.
func NewLoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (*turns.Message, error) {
			lg := logger
			// fall back to global if uninitialized
			if lg.GetLevel() == zerolog.NoLevel {
				lg = log.Logger
			}

			lg = lg.With().
				Int("message_count", len(req.Messages)).
				Int("tool_count", len(req.Tools)).
				Bool("parallel_tool_calls", req.Options.ParallelToolCalls).
				Logger()

			lg.Debug().Msg("model: starting call")
			start := time.Now()

			result, err := next(ctx, req)
			if err != nil {
				lg.Error().Err(err).Dur("duration", time.Since(start)).Msg("model: call failed")
				return result, err
			}

			names := []string{}
			if result != nil {
				for _, tc := range result.ToolCalls {
					names = append(names, tc.Name)
				}
			}
			lg.Debug().
				Dur("duration", time.Since(start)).
				Strs("tool_calls", names).
				Msg("model: call completed")
			return result, nil
		}
	}
}

// NewMetricsMiddleware records call latency and outcome under the given model label.
func NewMetricsMiddleware(model string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (*turns.Message, error) {
			start := time.Now()
			result, err := next(ctx, req)
			status := "success"
			if err != nil {
				status = "error"
				if ctx.Err() != nil {
					status = "canceled"
				}
			}
			RecordModelCall(model, status, time.Since(start).Seconds())
			if result != nil {
				RecordToolCallRequests(model, len(result.ToolCalls))
			}
			return result, err
		}
	}
}
