// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// LLMCompletionDuration tracks chat completion latency.
	LLMCompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "LLM chat completion duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// LLMCostDollars tracks the estimated spend on completions.
	LLMCostDollars = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_cost_dollars_total",
			Help: "Estimated LLM spend in US dollars",
		},
		[]string{"model"},
	)

	// ChatTurnsTotal tracks conversation turns appended.
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Conversation turns appended",
		},
		[]string{"role"},
	)

	// ChatResetsTotal tracks explicit conversation clears.
	ChatResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_resets_total",
			Help: "Conversation clears",
		},
	)

	// SessionsCreated tracks sessions started.
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Dashboard sessions started",
		},
	)

	// WarehouseQueryDuration tracks warehouse query latency.
	WarehouseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warehouse_query_duration_seconds",
			Help:    "Warehouse query duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"query", "status"},
	)

	// ChartFallbacksTotal tracks charts replaced by the empty-selection message.
	ChartFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chart_fallbacks_total",
			Help: "Chart requests answered with the select-a-country message",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route, status string, duration float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordCompletion records metrics for one chat completion.
func RecordCompletion(model, status string, duration float64, tokensIn, tokensOut int, cost float64) {
	LLMCompletionDuration.WithLabelValues(model, status).Observe(duration)
	if status != "success" {
		return
	}
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
	LLMCostDollars.WithLabelValues(model).Add(cost)
}

// RecordQuery records metrics for a warehouse query.
func RecordQuery(query, status string, duration float64) {
	WarehouseQueryDuration.WithLabelValues(query, status).Observe(duration)
}
