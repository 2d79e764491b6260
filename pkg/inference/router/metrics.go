package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// routeDecisions counts routing outcomes.
	// Labels: route
	routeDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canvas_agent",
		Subsystem: "router",
		Name:      "decisions_total",
		Help:      "Routing decisions by route",
	}, []string{"route"})

	// orphansDropped counts tool results removed before a model call.
	// Labels: stage (prepass, validate)
	orphansDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canvas_agent",
		Subsystem: "router",
		Name:      "orphaned_tool_results_total",
		Help:      "Orphaned tool results dropped from the model input",
	}, []string{"stage"})
)

func recordRoute(r Route) {
	routeDecisions.WithLabelValues(string(r)).Inc()
}

func recordOrphans(stage string, n int) {
	if n > 0 {
		orphansDropped.WithLabelValues(stage).Add(float64(n))
	}
}
