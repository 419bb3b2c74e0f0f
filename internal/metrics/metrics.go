// Package metrics registers the Prometheus instruments Contrail exposes:
// per-component counters and gauges covering capture, rotation, and
// backfill outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	// EventsParsedTotal counts lines each parser turned into a ParsedLine.
	EventsParsedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contrail_events_parsed_total",
		Help: "Total number of lines successfully parsed per source.",
	}, []string{"source"})

	// EventsWrittenTotal counts records the writer successfully appended.
	EventsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contrail_events_written_total",
		Help: "Total number of events appended to the active log per source.",
	}, []string{"source"})

	// RedactionsTotal counts secret-pattern matches found during scanning.
	RedactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contrail_redactions_total",
		Help: "Total number of secret pattern matches redacted.",
	}, []string{"pattern"})

	// ValidationErrorsTotal counts records rejected by the schema validator.
	ValidationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contrail_validation_errors_total",
		Help: "Total number of records rejected by schema validation.",
	}, []string{"component"})

	// WriterQueueDepth reports the current number of queued-but-unwritten events.
	WriterQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "contrail_writer_queue_depth",
		Help: "Current number of events queued for the async writer.",
	})

	// RotationsTotal counts active-log rotations.
	RotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contrail_rotations_total",
		Help: "Total number of log rotations performed.",
	})

	// ArchivesPrunedTotal counts archives removed by retention pruning.
	ArchivesPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contrail_archives_pruned_total",
		Help: "Total number of archive files pruned by rotation retention.",
	})

	// WatcherErrorsTotal counts recoverable per-watcher errors.
	WatcherErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contrail_watcher_errors_total",
		Help: "Total number of recoverable errors encountered by a watcher.",
	}, []string{"source", "kind"})

	// SessionsEndedTotal counts synthesized session-end events.
	SessionsEndedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contrail_sessions_ended_total",
		Help: "Total number of synthetic session-end events emitted.",
	}, []string{"source", "interrupted"})

	// BackfillRecordsTotal counts backfill outcomes.
	BackfillRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contrail_backfill_records_total",
		Help: "Total number of backfill records by outcome.",
	}, []string{"source", "outcome"})

	// MergeRecordsTotal counts merge outcomes.
	MergeRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contrail_merge_records_total",
		Help: "Total number of merge records by outcome.",
	}, []string{"outcome"})
)

// Serve exposes /metrics on addr until the process exits. Errors are logged
// rather than fatal: a metrics endpoint failing to bind should never take
// down ingestion.
func Serve(addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Error("metrics server exited")
	}
}
