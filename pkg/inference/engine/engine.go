package engine

import (
	"context"

	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/pkg/errors"
)

// ErrNoResponse is returned when a provider answers without any choice.
var ErrNoResponse = errors.New("model returned no response")

// CallOptions are the per-call switches the router sets.
type CallOptions struct {
	// ParallelToolCalls allows more than one tool-call request per response.
	ParallelToolCalls bool
}

// Engine is the opaque model boundary: an ordered message sequence and a
// tool list in, one AI message (optionally carrying tool-call requests) out.
// Implementations must be safe for concurrent use and must honour ctx.
type Engine interface {
	Invoke(ctx context.Context, messages []turns.Message, tools []tools.Spec, opts CallOptions) (*turns.Message, error)
}

// Func adapts a plain function to Engine.
type Func func(ctx context.Context, messages []turns.Message, tools []tools.Spec, opts CallOptions) (*turns.Message, error)

func (f Func) Invoke(ctx context.Context, messages []turns.Message, tools []tools.Spec, opts CallOptions) (*turns.Message, error) {
	return f(ctx, messages, tools, opts)
}

var _ Engine = Func(nil)
