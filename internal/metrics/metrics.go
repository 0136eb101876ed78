package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Planning metrics
	WagersRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batchplanner_wagers_read_total",
			Help: "Total number of wager records read from input",
		},
	)

	WagersFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchplanner_wagers_filtered_total",
			Help: "Wagers after the eligibility filter",
		},
		[]string{"status"}, // eligible, dropped
	)

	InputErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchplanner_input_errors_total",
			Help: "Malformed input records by field",
		},
		[]string{"field"},
	)

	BatchesPlanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batchplanner_batches_planned_total",
			Help: "Total number of batches produced by the batcher",
		},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batchplanner_batch_size",
			Help:    "Number of wagers per planned batch",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batchplanner_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"stage"}, // load, plan, render
	)

	// Artifact metrics
	ArtifactsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchplanner_artifacts_written_total",
			Help: "Generated batch scripts",
		},
		[]string{"status"}, // written, skipped, error
	)

	// Database metrics
	DatabaseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchplanner_database_queries_total",
			Help: "Total number of ledger database queries",
		},
		[]string{"operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batchplanner_database_query_duration_seconds",
			Help:    "Duration of ledger database queries",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batchplanner_last_run_timestamp_seconds",
			Help: "Unix time the last planning run finished",
		},
	)
)

// RecordPlan records the outcome of a planning run
func RecordPlan(read, eligible, dropped int, batchSizes []int) {
	WagersRead.Add(float64(read))
	WagersFiltered.WithLabelValues("eligible").Add(float64(eligible))
	WagersFiltered.WithLabelValues("dropped").Add(float64(dropped))
	BatchesPlanned.Add(float64(len(batchSizes)))
	for _, size := range batchSizes {
		BatchSize.Observe(float64(size))
	}
}

// RecordInputError records a malformed input field
func RecordInputError(field string) {
	InputErrors.WithLabelValues(field).Inc()
}

// RecordStage records how long a pipeline stage took
func RecordStage(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordArtifact records a generated script outcome
func RecordArtifact(status string) {
	ArtifactsWritten.WithLabelValues(status).Inc()
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseQueries.WithLabelValues(operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// WriteTextfile dumps every registered metric to path in the text exposition
// format read by node_exporter's textfile collector
func WriteTextfile(path string, finished time.Time) error {
	LastRunTimestamp.Set(float64(finished.Unix()))
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
