package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts finished graph runs.
	// Labels: graph, outcome (end, interrupted, error, max_iterations)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canvas_agent",
		Subsystem: "graph",
		Name:      "runs_total",
		Help:      "Graph runs by outcome",
	}, []string{"graph", "outcome"})

	// hopsPerRun measures how many node executions a run took.
	hopsPerRun = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "canvas_agent",
		Subsystem: "graph",
		Name:      "hops_per_run",
		Help:      "Node executions per graph run",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
	}, []string{"graph"})

	// backendToolCalls counts executed backend tool calls.
	// Labels: tool, status (success, error)
	backendToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canvas_agent",
		Subsystem: "tools",
		Name:      "executions_total",
		Help:      "Backend tool executions",
	}, []string{"tool", "status"})
)

func recordRun(graphID, outcome string, hops int) {
	runsTotal.WithLabelValues(graphID, outcome).Inc()
	hopsPerRun.WithLabelValues(graphID).Observe(float64(hops))
}

func recordToolExecution(tool string, failed bool) {
	status := "success"
	if failed {
		status = "error"
	}
	backendToolCalls.WithLabelValues(tool, status).Inc()
}
