// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

// Package metrics provides Prometheus instrumentation for ListenKeep.
//
// Metrics are exposed at the /metrics endpoint in Prometheus text format.
//
// HTTP metrics:
//   - http_requests_total{method,endpoint,status}
//   - http_request_duration_seconds{method,endpoint}
//
// Import metrics:
//   - import_batches_total{result}
//   - import_records_total{outcome} (imported, duplicate, failed, enriched)
//
// Enrichment metrics:
//   - enrichment_requests_total{source,status}
//
// WebSocket metrics:
//   - websocket_connections_active
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	importBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_batches_total",
			Help: "Total number of import batches processed",
		},
		[]string{"result"},
	)

	importRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_records_total",
			Help: "Total number of import records by outcome",
		},
		[]string{"outcome"},
	)

	enrichmentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_requests_total",
			Help: "Total number of enrichment collaborator calls",
		},
		[]string{"source", "status"},
	)

	websocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordImportBatch records one finished import batch with its result
// ("ok" or "error").
func RecordImportBatch(result string) {
	importBatchesTotal.WithLabelValues(result).Inc()
}

// RecordImportRecords adds n records with the given outcome
// (imported, duplicate, failed, enriched).
func RecordImportRecords(outcome string, n int) {
	if n <= 0 {
		return
	}
	importRecordsTotal.WithLabelValues(outcome).Add(float64(n))
}

// RecordEnrichmentRequest records one enrichment round trip.
func RecordEnrichmentRequest(source, status string) {
	enrichmentRequestsTotal.WithLabelValues(source, status).Inc()
}

// WebSocketConnected increments the active connection gauge.
func WebSocketConnected() {
	websocketConnectionsActive.Inc()
}

// WebSocketDisconnected decrements the active connection gauge.
func WebSocketDisconnected() {
	websocketConnectionsActive.Dec()
}
