package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequests counts handled requests.
	// Labels: method, route, code
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canvas_agent",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code",
	}, []string{"method", "route", "code"})

	// streamedEvents counts SSE frames written to clients.
	streamedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canvas_agent",
		Subsystem: "http",
		Name:      "streamed_events_total",
		Help:      "Events written to SSE streams",
	}, []string{"graph", "event"})
)
