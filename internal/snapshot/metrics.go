package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "offers_snapshot_load_duration_seconds",
		Help:    "Time taken to load the offer snapshot",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	loadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_snapshot_load_errors_total",
		Help: "Total number of failed snapshot loads",
	})

	snapshotProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "offers_snapshot_products",
		Help: "Number of products in the current snapshot",
	})

	snapshotOffers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "offers_snapshot_offers",
		Help: "Number of offers in the current snapshot",
	})

	skippedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_snapshot_skipped_rows_total",
		Help: "Source rows rejected during normalization",
	})

	snapshotAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "offers_snapshot_age_seconds",
		Help: "Age of the current snapshot in seconds",
	})
)

// MetricsRecorder records snapshot lifecycle metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordLoad records one load attempt.
func (m *MetricsRecorder) RecordLoad(durationSeconds float64, success bool) {
	loadDuration.Observe(durationSeconds)
	if !success {
		loadErrors.Inc()
	}
}

// RecordSnapshot records the shape of a freshly published snapshot.
func (m *MetricsRecorder) RecordSnapshot(products, offers, skipped int) {
	snapshotProducts.Set(float64(products))
	snapshotOffers.Set(float64(offers))
	if skipped > 0 {
		skippedRows.Add(float64(skipped))
	}
}

// RecordAge records the age of the current snapshot.
func (m *MetricsRecorder) RecordAge(ageSeconds float64) {
	snapshotAge.Set(ageSeconds)
}
