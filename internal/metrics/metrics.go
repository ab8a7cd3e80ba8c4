// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package metrics holds the Prometheus collectors shared by all three
// services. Each binary exposes them on /metrics via promhttp.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Cache Mediator Metrics
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by namespace and result",
		},
		[]string{"namespace", "result"}, // hit, miss, bypass
	)

	CacheBypass = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_bypass_total",
			Help: "Backend failures that degraded the cache to bypass mode",
		},
		[]string{"namespace", "operation"}, // get, set, delete
	)

	CacheSharedWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_shared_computations_total",
			Help: "Callers that awaited an in-flight computation instead of computing",
		},
		[]string{"namespace"},
	)

	CacheComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_compute_duration_seconds",
			Help:    "Duration of compute functions run on cache miss",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"namespace"},
	)

	CacheMemoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_memory_entries",
			Help: "Entries held by the in-process cache backend",
		},
	)

	CacheMemoryHitRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_memory_hit_rate_percent",
			Help: "Hit rate of the in-process cache backend since start",
		},
	)

	CacheInvalidatedKeys = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidated_keys_total",
			Help: "Keys removed by explicit invalidation",
		},
		[]string{"namespace"},
	)

	// Compute Pool Metrics
	ComputePoolQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "compute_pool_queue_depth",
			Help: "Jobs waiting for a compute worker",
		},
	)

	ComputePoolBusyWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "compute_pool_busy_workers",
			Help: "Compute workers currently running a job",
		},
	)

	ComputePoolRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compute_pool_rejected_total",
			Help: "Jobs rejected because the compute queue was full",
		},
	)

	ComputeTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compute_task_duration_seconds",
			Help:    "Duration of CPU-bound tasks run on the compute pool",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"task"},
	)

	// Recommendation Metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Recommendation requests by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "End-to-end duration of Recommend calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_version",
			Help: "Version of the active catalog snapshot",
		},
	)

	CatalogProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Products in the active catalog snapshot",
		},
	)

	CatalogLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_loads_total",
			Help: "Catalog load attempts by result",
		},
		[]string{"result"}, // loaded, unchanged, failed
	)

	// Upstream Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Calls to collaborator services by result",
		},
		[]string{"upstream", "result"}, // success, not_found, failure, rejected
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of calls to collaborator services",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Gateway Metrics
	GatewayResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_responses_total",
			Help: "Gateway recommendation responses by source",
		},
		[]string{"source"}, // upstream, cache, stale
	)

	GatewayAuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_auth_failures_total",
			Help: "Requests rejected for a missing or unknown API key",
		},
	)

	// User-data Metrics
	InteractionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userdata_interactions_recorded_total",
			Help: "Interactions recorded by type",
		},
		[]string{"type"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheBypass counts one backend failure and the lookup it degraded.
func RecordCacheBypass(namespace, operation string) {
	CacheBypass.WithLabelValues(namespace, operation).Inc()
	if operation == "get" {
		CacheRequests.WithLabelValues(namespace, "bypass").Inc()
	}
}

// RecordUpstream records one collaborator call.
func RecordUpstream(upstream, result string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(upstream, result).Inc()
	UpstreamDuration.WithLabelValues(upstream).Observe(duration.Seconds())
}

// RecordRecommendation records one Recommend call.
func RecordRecommendation(strategy, outcome string, duration time.Duration) {
	RecommendationsTotal.WithLabelValues(strategy, outcome).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}
