// Package metrics provides Prometheus observability metrics for the
// appointment dispatch engine. It covers business outcomes (assignments,
// unassigned demand, travel cost) and operational health (oracle traffic,
// solver latency).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// =============================================================================
// CRITICAL METRICS - Business Impact Visibility
// =============================================================================

// AssignmentsTotal tracks committed assignments across all windows.
var AssignmentsTotal = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "dispatch",
	Name:      "assignments_total",
	Help:      "Total number of appointments assigned to a representative",
})

// UnassignedTotal tracks appointments that ended the run unassigned.
var UnassignedTotal = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "dispatch",
	Name:      "unassigned_total",
	Help:      "Total number of appointments left without a representative",
})

// UnassignedByReason breaks unassigned appointments down by reason code.
var UnassignedByReason = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "dispatch",
	Name:      "unassigned_by_reason",
	Help:      "Unassigned appointments broken down by reason category",
}, []string{"reason"})

// TravelCostTotal tracks the summed travel cost of committed assignments.
var TravelCostTotal = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "dispatch",
	Name:      "travel_cost_total",
	Help:      "Sum of travel costs over all committed assignments",
})

// WindowsSolved counts windows committed successfully.
var WindowsSolved = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "dispatch",
	Name:      "windows_solved_total",
	Help:      "Count of time windows solved and committed",
})

// WindowsAborted counts window solves aborted by oracle failure.
var WindowsAborted = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "dispatch",
	Name:      "windows_aborted_total",
	Help:      "Count of window solves aborted because the distance oracle was unavailable",
})

// =============================================================================
// IMPORTANT METRICS - Operational Health
// =============================================================================

// OracleCallsTotal tracks provider calls that went past the cache.
var OracleCallsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "oracle",
	Name:      "calls_total",
	Help:      "Total distance provider calls issued",
})

// OracleCacheHitsTotal tracks pair lookups served from the cache.
var OracleCacheHitsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "oracle",
	Name:      "cache_hits_total",
	Help:      "Total distance lookups served by the read-through cache",
})

// OracleErrorsTotal tracks provider failures (timeout, quota, transport).
var OracleErrorsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "oracle",
	Name:      "errors_total",
	Help:      "Total distance provider failures",
})

// SolverDurationSeconds tracks time to solve one window's matching.
var SolverDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "solver",
	Name:      "duration_seconds",
	Help:      "Time taken to solve a single window",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
})

// MatrixDurationSeconds tracks time to build one window's cost matrix.
var MatrixDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "solver",
	Name:      "matrix_duration_seconds",
	Help:      "Time taken to build the travel cost matrix for a window",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
})

// =============================================================================
// Helper Functions
// =============================================================================

// ResetRunGauges resets all run-scoped gauges before a new dispatch run.
func ResetRunGauges() {
	AssignmentsTotal.Set(0)
	UnassignedTotal.Set(0)
	TravelCostTotal.Set(0)
	UnassignedByReason.Reset()
}
