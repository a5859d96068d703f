// Package metrics exposes Prometheus instrumentation for ingestion runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// Recorder implements ingestion.Metrics over a Prometheus registry. One
// recorder serves the whole process.
type Recorder struct {
	registry     *prometheus.Registry
	runsTotal    *prometheus.CounterVec
	rowsTotal    *prometheus.CounterVec
	runDurations *prometheus.HistogramVec
}

var _ ingestion.Metrics = (*Recorder)(nil)

// NewRecorder creates a recorder with its own registry, so tests never
// collide on the global default.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestion_runs_total",
			Help: "Ingestion runs by dataset and terminal status.",
		}, []string{"dataset_id", "status"}),
		rowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestion_rows_total",
			Help: "Rows fetched, inserted and deleted by dataset.",
		}, []string{"dataset_id", "operation"}),
		runDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingestion_run_duration_seconds",
			Help:    "End-to-end ingestion run duration.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"dataset_id"}),
	}

	registry.MustRegister(r.runsTotal, r.rowsTotal, r.runDurations)

	return r
}

// RecordRun implements ingestion.Metrics.
func (r *Recorder) RecordRun(
	datasetID string,
	status ingestion.RunStatus,
	duration time.Duration,
	counters ingestion.RunCounters,
) {
	r.runsTotal.WithLabelValues(datasetID, string(status)).Inc()
	r.runDurations.WithLabelValues(datasetID).Observe(duration.Seconds())

	r.rowsTotal.WithLabelValues(datasetID, "fetched").Add(float64(counters.RowsFetched))
	r.rowsTotal.WithLabelValues(datasetID, "inserted").Add(float64(counters.RowsInserted))
	r.rowsTotal.WithLabelValues(datasetID, "deleted").Add(float64(counters.RowsDeleted))
}

// Handler returns the /metrics scrape handler for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
