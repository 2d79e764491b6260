package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// modelLatency measures model call latency.
	// Labels: model, status (success, error, canceled)
	modelLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "canvas_agent",
		Subsystem: "model",
		Name:      "call_duration_seconds",
		Help:      "Model call latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
	}, []string{"model", "status"})

	// modelToolCallRequests counts tool-call requests returned by the model.
	modelToolCallRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canvas_agent",
		Subsystem: "model",
		Name:      "tool_call_requests_total",
		Help:      "Tool-call requests returned by the model",
	}, []string{"model"})
)

// RecordModelCall records one model call.
func RecordModelCall(model, status string, durationSec float64) {
	modelLatency.WithLabelValues(model, status).Observe(durationSec)
}

// RecordToolCallRequests adds n requested tool calls.
func RecordToolCallRequests(model string, n int) {
	if n > 0 {
		modelToolCallRequests.WithLabelValues(model).Add(float64(n))
	}
}
