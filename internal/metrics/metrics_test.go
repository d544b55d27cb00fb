// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// getHistogram extracts the sample count and sum from a histogram
func getHistogram(t *testing.T, observer prometheus.Observer) (uint64, float64) {
	t.Helper()
	h, ok := observer.(prometheus.Histogram)
	if !ok {
		t.Fatalf("observer is %T, not a histogram", observer)
	}
	var m io_prometheus_client.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestRecordDataSourceCall(t *testing.T) {
	before := testutil.ToFloat64(DataSourceCalls.WithLabelValues("groups.getMembers", "success"))

	RecordDataSourceCall("groups.getMembers", "success", 20*time.Millisecond)
	RecordDataSourceCall("groups.getMembers", "success", 30*time.Millisecond)

	after := testutil.ToFloat64(DataSourceCalls.WithLabelValues("groups.getMembers", "success"))
	if after-before != 2 {
		t.Errorf("expected 2 recorded calls, got %v", after-before)
	}
}

func TestRecordDataSourceCall_Duration(t *testing.T) {
	countBefore, sumBefore := getHistogram(t, DataSourceCallDuration.WithLabelValues("users.getSubscriptions"))

	RecordDataSourceCall("users.getSubscriptions", "error", 250*time.Millisecond)

	count, sum := getHistogram(t, DataSourceCallDuration.WithLabelValues("users.getSubscriptions"))
	if count-countBefore != 1 {
		t.Errorf("sample count delta = %d, want 1", count-countBefore)
	}
	if d := sum - sumBefore; d < 0.249 || d > 0.251 {
		t.Errorf("sample sum delta = %v, want 0.25", d)
	}
}

func TestRecordBatchWindow(t *testing.T) {
	windowsBefore := testutil.ToFloat64(BatchWindows.WithLabelValues("test_op"))
	failuresBefore := testutil.ToFloat64(BatchFailures.WithLabelValues("test_op"))

	RecordBatchWindow("test_op", 0)
	RecordBatchWindow("test_op", 3)

	if got := testutil.ToFloat64(BatchWindows.WithLabelValues("test_op")) - windowsBefore; got != 2 {
		t.Errorf("windows delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(BatchFailures.WithLabelValues("test_op")) - failuresBefore; got != 3 {
		t.Errorf("failures delta = %v, want 3", got)
	}
}

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("invalid"))
	RecordRequest("invalid")
	if got := testutil.ToFloat64(RequestsTotal.WithLabelValues("invalid")) - before; got != 1 {
		t.Errorf("requests delta = %v, want 1", got)
	}
}

func TestRecordGauges(t *testing.T) {
	RecordMatrix(211, 4870)
	RecordCandidatePool(210, 3)

	if got := testutil.ToFloat64(MatrixRows); got != 211 {
		t.Errorf("MatrixRows = %v, want 211", got)
	}
	if got := testutil.ToFloat64(MatrixColumns); got != 4870 {
		t.Errorf("MatrixColumns = %v, want 4870", got)
	}
	if got := testutil.ToFloat64(CandidatePoolSize); got != 210 {
		t.Errorf("CandidatePoolSize = %v, want 210", got)
	}
	if got := testutil.ToFloat64(CandidateThreshold); got != 3 {
		t.Errorf("CandidateThreshold = %v, want 3", got)
	}
}

func TestRecordStage(t *testing.T) {
	// Histogram observations must not panic for any stage label
	for _, stage := range []string{"scan", "pool", "assemble", "score", "rank", "refine"} {
		RecordStage(stage, 15*time.Millisecond)
	}
	if n := testutil.CollectAndCount(PipelineStageDuration); n < 6 {
		t.Errorf("expected at least 6 stage series, got %d", n)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordRequest("success")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "pubrec_requests_total") {
		t.Errorf("expected pubrec_requests_total in scrape output")
	}
}
