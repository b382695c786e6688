/*-------------------------------------------------------------------------
 *
 * prometheus.go
 *    Prometheus metrics for CaseTrace
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/metrics/prometheus.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	/* Request metrics */
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrace_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casetrace_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	/* Workflow metrics */
	workflowStageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrace_workflow_stage_transitions_total",
			Help: "Total number of workflow stage transitions",
		},
		[]string{"stage"},
	)

	workflowsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrace_workflows_completed_total",
			Help: "Total number of completed workflows",
		},
		[]string{"outcome"},
	)

	workflowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "casetrace_workflow_duration_seconds",
			Help:    "End-to-end workflow duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	/* Agent metrics */
	agentExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrace_agent_executions_total",
			Help: "Total number of agent executions",
		},
		[]string{"role", "status"},
	)

	agentExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casetrace_agent_execution_duration_seconds",
			Help:    "Agent execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"role"},
	)

	/* LLM metrics */
	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrace_llm_calls_total",
			Help: "Total number of LLM calls",
		},
		[]string{"model", "status"},
	)

	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrace_llm_tokens_total",
			Help: "Total number of LLM tokens",
		},
		[]string{"model", "type"},
	)

	/* Confirmation metrics */
	confirmationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrace_confirmation_requests_total",
			Help: "Total number of human confirmation requests",
		},
		[]string{"outcome"},
	)

	confirmationsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "casetrace_confirmations_pending",
			Help: "Number of confirmation requests awaiting a decision",
		},
	)

	confirmationWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "casetrace_confirmation_wait_duration_seconds",
			Help:    "Time between confirmation request and decision in seconds",
			Buckets: []float64{1, 10, 30, 60, 300, 900, 1800},
		},
	)

	/* Event stream metrics */
	eventSubscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "casetrace_event_subscribers_active",
			Help: "Number of active event stream subscribers",
		},
	)

	eventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "casetrace_events_dropped_total",
			Help: "Total number of events dropped on slow subscriber channels",
		},
	)

	/* Job metrics */
	jobsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "casetrace_jobs_queued",
			Help: "Number of jobs in queue",
		},
	)

	jobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrace_jobs_processed_total",
			Help: "Total number of jobs processed",
		},
		[]string{"type", "status"},
	)

	/* Database connection pool metrics */
	dbPoolOpenConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "casetrace_db_pool_open_connections",
			Help: "Number of open database connections",
		},
		[]string{"database"},
	)

	dbPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "casetrace_db_pool_idle_connections",
			Help: "Number of idle database connections",
		},
		[]string{"database"},
	)

	dbPoolInUseConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "casetrace_db_pool_in_use_connections",
			Help: "Number of database connections in use",
		},
		[]string{"database"},
	)

	/* Rate limiting metrics */
	rateLimitAllowed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrace_rate_limit_allowed_total",
			Help: "Total number of requests allowed by rate limiter",
		},
		[]string{"key_id"},
	)

	rateLimitRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casetrace_rate_limit_rejected_total",
			Help: "Total number of requests rejected by rate limiter",
		},
		[]string{"key_id"},
	)
)

/* RecordHTTPRequest records an HTTP request */
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	/* Convert status code to status class for better PromQL queries */
	statusClass := "unknown"
	if status >= 200 && status < 300 {
		statusClass = "2xx"
	} else if status >= 300 && status < 400 {
		statusClass = "3xx"
	} else if status >= 400 && status < 500 {
		statusClass = "4xx"
	} else if status >= 500 {
		statusClass = "5xx"
	}

	httpRequestsTotal.WithLabelValues(method, endpoint, statusClass).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

/* RecordStageTransition records a workflow stage transition */
func RecordStageTransition(stage string) {
	workflowStageTransitionsTotal.WithLabelValues(stage).Inc()
}

/* RecordWorkflowCompleted records a finished workflow */
func RecordWorkflowCompleted(outcome string, duration time.Duration) {
	workflowsCompletedTotal.WithLabelValues(outcome).Inc()
	workflowDuration.Observe(duration.Seconds())
}

/* RecordAgentExecution records an agent execution */
func RecordAgentExecution(role, status string, duration time.Duration) {
	agentExecutionsTotal.WithLabelValues(role, status).Inc()
	agentExecutionDuration.WithLabelValues(role).Observe(duration.Seconds())
}

/* RecordLLMCall records an LLM call */
func RecordLLMCall(model, status string, inputTokens, outputTokens int) {
	llmCallsTotal.WithLabelValues(model, status).Inc()
	llmTokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	llmTokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
}

/* RecordConfirmationRequested records a new confirmation request */
func RecordConfirmationRequested() {
	confirmationsPending.Inc()
}

/* RecordConfirmationResolved records a confirmation decision */
func RecordConfirmationResolved(outcome string, wait time.Duration) {
	confirmationRequestsTotal.WithLabelValues(outcome).Inc()
	confirmationWaitDuration.Observe(wait.Seconds())
	confirmationsPending.Dec()
}

/* RecordSubscriberAdded records an event stream subscriber attach */
func RecordSubscriberAdded() {
	eventSubscribersActive.Inc()
}

/* RecordSubscriberRemoved records an event stream subscriber detach */
func RecordSubscriberRemoved() {
	eventSubscribersActive.Dec()
}

/* RecordEventDropped records an event dropped on a full channel */
func RecordEventDropped() {
	eventsDroppedTotal.Inc()
}

/* RecordJobQueued records a job being queued */
func RecordJobQueued() {
	jobsQueued.Inc()
}

/* RecordJobProcessed records a job being processed */
func RecordJobProcessed(jobType, status string) {
	jobsProcessedTotal.WithLabelValues(jobType, status).Inc()
	jobsQueued.Dec()
}

/* RecordDBPoolStats records database connection pool statistics */
func RecordDBPoolStats(database string, openConns, idleConns, inUse int) {
	dbPoolOpenConns.WithLabelValues(database).Set(float64(openConns))
	dbPoolIdleConns.WithLabelValues(database).Set(float64(idleConns))
	dbPoolInUseConns.WithLabelValues(database).Set(float64(inUse))
}

/* RecordRateLimitAllowed records a rate limit allowance */
func RecordRateLimitAllowed(keyID string) {
	rateLimitAllowed.WithLabelValues(keyID).Inc()
}

/* RecordRateLimitRejected records a rate limit rejection */
func RecordRateLimitRejected(keyID string) {
	rateLimitRejected.WithLabelValues(keyID).Inc()
}

/* Handler returns the Prometheus metrics handler */
func Handler() http.Handler {
	return promhttp.Handler()
}
