// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// histogramCount extracts the sample count of a histogram series.
func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	h, ok := o.(prometheus.Histogram)
	if !ok {
		t.Fatalf("%T is not a histogram", o)
	}
	var m io_prometheus_client.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/recommend/{user_id}", "200"))
	samplesBefore := histogramCount(t, APIRequestDuration.WithLabelValues("GET", "/recommend/{user_id}"))

	RecordAPIRequest("GET", "/recommend/{user_id}", "200", 12*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/recommend/{user_id}", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
	if d := histogramCount(t, APIRequestDuration.WithLabelValues("GET", "/recommend/{user_id}")) - samplesBefore; d != 1 {
		t.Errorf("api_request_duration samples delta = %d, want 1", d)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("after inc = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("after dec = %v, want %v", got, before)
	}
}

func TestRecordCacheBypass(t *testing.T) {
	tests := []struct {
		operation       string
		wantLookupDelta float64
	}{
		{"get", 1},
		{"set", 0},
		{"delete", 0},
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			bypassBefore := testutil.ToFloat64(CacheBypass.WithLabelValues("metrics-test", tt.operation))
			lookupBefore := testutil.ToFloat64(CacheRequests.WithLabelValues("metrics-test", "bypass"))

			RecordCacheBypass("metrics-test", tt.operation)

			if d := testutil.ToFloat64(CacheBypass.WithLabelValues("metrics-test", tt.operation)) - bypassBefore; d != 1 {
				t.Errorf("cache_bypass_total delta = %v, want 1", d)
			}
			if d := testutil.ToFloat64(CacheRequests.WithLabelValues("metrics-test", "bypass")) - lookupBefore; d != tt.wantLookupDelta {
				t.Errorf("cache_requests_total{bypass} delta = %v, want %v", d, tt.wantLookupDelta)
			}
		})
	}
}

func TestRecordUpstream(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequests.WithLabelValues("userdata", "not_found"))
	samplesBefore := histogramCount(t, UpstreamDuration.WithLabelValues("userdata"))

	RecordUpstream("userdata", "not_found", 3*time.Millisecond)

	if d := histogramCount(t, UpstreamDuration.WithLabelValues("userdata")) - samplesBefore; d != 1 {
		t.Errorf("upstream_duration samples delta = %d, want 1", d)
	}
	if d := testutil.ToFloat64(UpstreamRequests.WithLabelValues("userdata", "not_found")) - before; d != 1 {
		t.Errorf("upstream_requests_total delta = %v, want 1", d)
	}
}

func TestRecordRecommendation(t *testing.T) {
	before := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("popularity", "success"))

	samplesBefore := histogramCount(t, RecommendationDuration)

	RecordRecommendation("popularity", "success", time.Millisecond)

	if d := histogramCount(t, RecommendationDuration) - samplesBefore; d != 1 {
		t.Errorf("recommendation_duration samples delta = %d, want 1", d)
	}
	if d := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("popularity", "success")) - before; d != 1 {
		t.Errorf("recommendations_total delta = %v, want 1", d)
	}
}
