// ABOUTME: Prometheus instrumentation for ingestion, HTTP traffic and the worker pool.
// ABOUTME: Collectors register on the default registry through promauto.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	IngestRowsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rocketry_ingest_rows_accepted_total",
			Help: "Telemetry rows accepted and stored",
		},
	)

	IngestRowsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rocketry_ingest_rows_rejected_total",
			Help: "Telemetry rows rejected by validation",
		},
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rocketry_ingest_duration_seconds",
			Help:    "Time spent ingesting one CSV file",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"}, // "ok", "malformed", "storage_error"
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rocketry_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rocketry_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Worker pool
	WorkerInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rocketry_worker_jobs_in_flight",
			Help: "Blocking jobs currently running on the worker pool",
		},
	)

	WorkerWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rocketry_worker_wait_seconds",
			Help:    "Time a job waited for a worker slot",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
)

// RecordIngest records the outcome of one CSV ingestion.
func RecordIngest(outcome string, accepted, rejected int, duration time.Duration) {
	IngestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	IngestRowsAccepted.Add(float64(accepted))
	IngestRowsRejected.Add(float64(rejected))
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackWorker adjusts the in-flight gauge.
func TrackWorker(inc bool) {
	if inc {
		WorkerInFlight.Inc()
	} else {
		WorkerInFlight.Dec()
	}
}
