// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 9f8e7d6c-5b4a-3210-9fed-cba876543210

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	recordsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iran_memorial",
		Name:      "records_processed_total",
		Help:      "Total external records processed by source",
	}, []string{"source"})
	matchOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iran_memorial",
		Name:      "match_outcomes_total",
		Help:      "Match outcomes by source and result (matched, ambiguous, unmatched)",
	}, []string{"source", "outcome"})
	fieldsFilled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iran_memorial",
		Name:      "fields_filled_total",
		Help:      "Fields filled on canonical records by source",
	}, []string{"source"})
	mergesApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "iran_memorial",
		Name:      "merges_applied_total",
		Help:      "Duplicate records merged and deleted",
	})
	fetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iran_memorial",
		Name:      "fetch_failures_total",
		Help:      "Source fetch failures by source",
	}, []string{"source"})
	matchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "iran_memorial",
		Name:      "match_duration_seconds",
		Help:      "Histogram of single-record match durations",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~0.4s
	})

	victimsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "iran_memorial",
		Name:      "victims_total",
		Help:      "Current number of canonical victim records",
	})
	reviewQueueGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "iran_memorial",
		Name:      "review_queue_size",
		Help:      "Ambiguous matches awaiting operator review",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(recordsProcessed, matchOutcomes, fieldsFilled,
			mergesApplied, fetchFailures, matchDuration,
			victimsGauge, reviewQueueGauge)
	})
}

// Pipeline counters
func IncRecordsProcessed(source string) { recordsProcessed.WithLabelValues(source).Inc() }
func IncMatchOutcome(source, outcome string) {
	matchOutcomes.WithLabelValues(source, outcome).Inc()
}
func AddFieldsFilled(source string, n int) {
	fieldsFilled.WithLabelValues(source).Add(float64(n))
}
func IncMergesApplied()              { mergesApplied.Inc() }
func IncFetchFailures(source string) { fetchFailures.WithLabelValues(source).Inc() }
func ObserveMatchDuration(d time.Duration) {
	matchDuration.Observe(d.Seconds())
}

// Gauges
func SetVictims(n int)     { victimsGauge.Set(float64(n)) }
func SetReviewQueue(n int) { reviewQueueGauge.Set(float64(n)) }
