// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

/*
Package metrics provides Prometheus metrics collection and export for pubrec.

All collectors are registered with the default registry through promauto at
package initialization. The CLI exposes them with Serve when started with
--metrics-addr; otherwise they are collected but never scraped.

# Available Metrics

Pipeline Metrics:
  - pubrec_pipeline_stage_duration_seconds: Stage latency (histogram)
    Labels: stage
  - pubrec_requests_total: Requests by outcome (counter)
    Labels: status
  - pubrec_candidate_pool_size, pubrec_candidate_threshold: Last pool (gauges)
  - pubrec_matrix_rows, pubrec_matrix_columns: Last matrix shape (gauges)
  - pubrec_low_rank_used: Rank accepted by the refinement (gauge)

Data Source Metrics:
  - pubrec_datasource_calls_total: API calls (counter)
    Labels: method, status
  - pubrec_datasource_call_duration_seconds: API latency (histogram)
    Labels: method
  - pubrec_datasource_retries_total: Rate-limit retries (counter)
    Labels: method

Batch Metrics:
  - pubrec_batch_windows_total: Windows issued (counter)
  - pubrec_batch_failures_total: Calls skipped after failure (counter)
    Labels: operation

Circuit Breaker Metrics:
  - pubrec_circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
  - pubrec_circuit_breaker_requests_total: Labels name, result
  - pubrec_circuit_breaker_consecutive_failures: Labels name
  - pubrec_circuit_breaker_state_transitions_total: Labels name, from_state, to_state

Cache Metrics:
  - pubrec_member_count_cache_hits_total
  - pubrec_member_count_cache_misses_total

# Usage Example

	start := time.Now()
	pool := recommend.SelectPool(freq, target, floor)
	metrics.RecordStage("pool", time.Since(start))

# Thread Safety

All metric operations are thread-safe. Prometheus collectors use atomic
operations internally.
*/
package metrics
