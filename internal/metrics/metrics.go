package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prediction engine
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutoff_predictions_total",
			Help: "Prediction requests by scoring mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: ok, empty, invalid, store_error
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cutoff_prediction_duration_seconds",
			Help:    "Time spent producing one prediction response",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	PredictionResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cutoff_prediction_results",
			Help:    "Number of ranked results per prediction",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
	)

	OrphanCutoffs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cutoff_orphan_records_total",
			Help: "Cutoffs dropped because their college was missing or filtered out",
		},
	)

	// Store
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutoff_store_errors_total",
			Help: "Failed store calls by operation",
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cutoff_store_circuit_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	ImportedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutoff_import_rows_total",
			Help: "Spreadsheet rows seen by the cutoff importer",
		},
		[]string{"result"}, // imported, skipped
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
