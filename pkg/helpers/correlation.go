package helpers

import (
	"context"

	"github.com/lithammer/shortuuid/v3"
	"github.com/rs/zerolog/log"
)

type correlationIDKeyType string

const correlationIDKey correlationIDKeyType = "correlation_id"

// CorrelationIDHeader is the request header carrying a client supplied id.
const CorrelationIDHeader = "X-Request-ID"

func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext returns the id stored in ctx, or a generated one.
func CorrelationIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(correlationIDKey).(string)
	if ok && v != "" {
		return v
	}

	log.Ctx(ctx).Debug().Msg("correlation ID not found in context")

	// add "gen_" prefix to distinguish generated correlation IDs from correlation IDs passed by the client
	return "gen_" + shortuuid.New()
}
