// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for a recommendation run:
// - Pipeline stage latency and request outcomes
// - Data source call volume, latency and failures
// - Batch failure counts
// - Circuit breaker state
// - Member count cache efficiency

var (
	// Pipeline Metrics
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pubrec_pipeline_stage_duration_seconds",
			Help:    "Duration of recommendation pipeline stages in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"}, // "resolve", "scan", "pool", "assemble", "score", "rank", "refine", "output"
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubrec_requests_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"status"}, // "success", "invalid", "error"
	)

	CandidatePoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pubrec_candidate_pool_size",
			Help: "Size of the candidate user pool selected by the last run",
		},
	)

	CandidateThreshold = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pubrec_candidate_threshold",
			Help: "Frequency threshold accepted by the last run",
		},
	)

	MatrixColumns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pubrec_matrix_columns",
			Help: "Number of page columns in the last rating matrix",
		},
	)

	MatrixRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pubrec_matrix_rows",
			Help: "Number of user rows in the last rating matrix",
		},
	)

	LowRankUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pubrec_low_rank_used",
			Help: "Rank accepted by the last low-rank refinement (0 when skipped)",
		},
	)

	// Data Source Metrics
	DataSourceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubrec_datasource_calls_total",
			Help: "Total number of data source API calls",
		},
		[]string{"method", "status"}, // status: "success", "api_error", "transport_error"
	)

	DataSourceCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pubrec_datasource_call_duration_seconds",
			Help:    "Duration of data source API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	DataSourceRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubrec_datasource_retries_total",
			Help: "Total number of rate-limited data source calls that were retried",
		},
		[]string{"method"},
	)

	// Batch Metrics
	BatchWindows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubrec_batch_windows_total",
			Help: "Total number of request windows issued",
		},
		[]string{"operation"},
	)

	BatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubrec_batch_failures_total",
			Help: "Total number of batched calls that failed and were skipped",
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pubrec_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubrec_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pubrec_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubrec_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Member Count Cache Metrics
	MemberCountCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pubrec_member_count_cache_hits_total",
			Help: "Total number of member count cache hits",
		},
	)

	MemberCountCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pubrec_member_count_cache_misses_total",
			Help: "Total number of member count cache misses",
		},
	)
)

// RecordStage records the duration of a pipeline stage
func RecordStage(stage string, duration time.Duration) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRequest records the outcome of a recommendation request
func RecordRequest(status string) {
	RequestsTotal.WithLabelValues(status).Inc()
}

// RecordDataSourceCall records a data source API call
func RecordDataSourceCall(method, status string, duration time.Duration) {
	DataSourceCalls.WithLabelValues(method, status).Inc()
	DataSourceCallDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRetry records a retried data source call
func RecordRetry(method string) {
	DataSourceRetries.WithLabelValues(method).Inc()
}

// RecordBatchWindow records a completed request window and its failures
func RecordBatchWindow(operation string, failures int) {
	BatchWindows.WithLabelValues(operation).Inc()
	if failures > 0 {
		BatchFailures.WithLabelValues(operation).Add(float64(failures))
	}
}

// RecordMatrix records the shape of the assembled rating matrix
func RecordMatrix(rows, columns int) {
	MatrixRows.Set(float64(rows))
	MatrixColumns.Set(float64(columns))
}

// RecordCandidatePool records the accepted pool size and threshold
func RecordCandidatePool(size, threshold int) {
	CandidatePoolSize.Set(float64(size))
	CandidateThreshold.Set(float64(threshold))
}
