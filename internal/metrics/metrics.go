// Package metrics registers the Prometheus instrumentation for report runs:
// aggregation cache traffic, augmentation outcomes, and sheet assembly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the reporting service.
type Metrics struct {
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	AugmentationStatus *prometheus.CounterVec

	SheetsBuilt   prometheus.Counter
	SheetsSkipped *prometheus.CounterVec

	RunDuration prometheus.Histogram
}

// New creates and registers all metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ardata_cache_hits_total",
			Help: "Aggregation cache hits per pipeline",
		}, []string{"pipeline"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ardata_cache_misses_total",
			Help: "Aggregation cache misses per pipeline",
		}, []string{"pipeline"}),
		AugmentationStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ardata_augmentation_status_total",
			Help: "Augmentation outcomes per sheet (ok, insufficient_data, fallback, failed)",
		}, []string{"sheet", "concern", "status"}),
		SheetsBuilt: factory.NewCounter(prometheus.CounterOpts{
			Name: "ardata_sheets_built_total",
			Help: "Sheets successfully assembled into the workbook",
		}),
		SheetsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ardata_sheets_skipped_total",
			Help: "Sheets skipped, by reason (duplicate_columns, pipeline_failed, bad_config)",
		}, []string{"reason"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ardata_report_run_duration_seconds",
			Help:    "Wall-clock duration of full report runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// CacheHit implements the aggregation cache's event sink.
func (m *Metrics) CacheHit(pipeline string) {
	m.CacheHits.WithLabelValues(pipeline).Inc()
}

// CacheMiss implements the aggregation cache's event sink.
func (m *Metrics) CacheMiss(pipeline string) {
	m.CacheMisses.WithLabelValues(pipeline).Inc()
}

// ObserveAugmentation records one augmentation concern's outcome for a sheet.
func (m *Metrics) ObserveAugmentation(sheet, concern, status string) {
	m.AugmentationStatus.WithLabelValues(sheet, concern, status).Inc()
}

// ObserveSheetBuilt records a successfully assembled sheet.
func (m *Metrics) ObserveSheetBuilt() {
	m.SheetsBuilt.Inc()
}

// ObserveSheetSkipped records a skipped sheet with its reason.
func (m *Metrics) ObserveSheetSkipped(reason string) {
	m.SheetsSkipped.WithLabelValues(reason).Inc()
}

// ObserveRunDuration records a completed run's duration in seconds.
func (m *Metrics) ObserveRunDuration(seconds float64) {
	m.RunDuration.Observe(seconds)
}
