// Package metrics holds the Prometheus collectors for scan runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Records accepted by the normalizer, by platform.
	RecordsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_records_normalized_total",
			Help: "Platform records converted into canonical markets.",
		},
		[]string{"platform"},
	)

	// Records discarded by the normalizer, by platform and reason.
	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_records_skipped_total",
			Help: "Platform records discarded during normalization.",
		},
		[]string{"platform", "reason"},
	)

	PairsMatched = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossarb_pairs_matched",
			Help: "Matched pairs in the last scan, by comparison type.",
		},
		[]string{"comparison"},
	)

	Opportunities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossarb_opportunities",
			Help: "Profitable opportunities in the last scan, by comparison type.",
		},
		[]string{"comparison"},
	)

	BestROI = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossarb_best_roi_percent",
			Help: "Highest ROI percentage in the last scan, by comparison type.",
		},
		[]string{"comparison"},
	)

	// Measures duration of each platform fetch.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crossarb_platform_fetch_duration_seconds",
			Help:    "Duration of platform snapshot fetches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms → ~100s
		},
		[]string{"platform"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_platform_fetch_errors_total",
			Help: "Platform snapshot fetches that failed.",
		},
		[]string{"platform"},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crossarb_scan_duration_seconds",
			Help:    "Duration of complete scan runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// Counts scans by outcome: ok | partial | error | skipped.
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_scans_total",
			Help: "Scan runs by outcome.",
		},
		[]string{"result"},
	)

	LastScanTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossarb_last_scan_timestamp",
			Help: "Timestamp (unix seconds) of the last completed scan.",
		},
	)
)

// ObserveFetch records the duration of a platform fetch and counts failures.
func ObserveFetch(platform string, start time.Time, err error) {
	FetchDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrors.WithLabelValues(platform).Inc()
	}
}

func AddNormalized(platform string, n int) {
	RecordsNormalized.WithLabelValues(platform).Add(float64(n))
}

func AddSkipped(platform, reason string, n int) {
	RecordsSkipped.WithLabelValues(platform, reason).Add(float64(n))
}

// SetComparison publishes the per-comparison gauges of one scan.
func SetComparison(comparison string, pairs, opps int, bestROI float64) {
	PairsMatched.WithLabelValues(comparison).Set(float64(pairs))
	Opportunities.WithLabelValues(comparison).Set(float64(opps))
	BestROI.WithLabelValues(comparison).Set(bestROI)
}

// ObserveScan records a finished scan.
func ObserveScan(result string, start time.Time) {
	ScanDuration.Observe(time.Since(start).Seconds())
	ScansTotal.WithLabelValues(result).Inc()
	LastScanTimestamp.Set(float64(time.Now().Unix()))
}
