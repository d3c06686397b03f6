package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "opencbom"
)

var (
	syncDurationBuckets = []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}

	// Sync
	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Time taken to fetch and store the documents of a data source.",
		Buckets:   syncDurationBuckets,
	}, []string{"source", "type"})

	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_runs_total",
		Help:      "Count of data source syncs by outcome.",
	}, []string{"source", "type", "status"})

	SyncLastSuccessTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful sync of a data source.",
	}, []string{"source"})

	// Inventory
	DocumentsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "documents_total",
		Help:      "Number of CBOM documents stored for a data source.",
	}, []string{"source"})

	InvalidDocumentsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "invalid_documents_total",
		Help:      "Number of stored documents of a data source that failed to parse.",
	}, []string{"source"})

	ServicesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "services_total",
		Help:      "Number of services found in the documents of a data source.",
	}, []string{"source"})

	// HTTP
	DashboardSearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dashboard_searches_total",
		Help:      "Count of dashboard searches by search mode.",
	}, []string{"mode"})
)

// ForgetSource drops the per-source series of a removed data source.
func ForgetSource(source string) {
	labels := prometheus.Labels{"source": source}
	SyncDuration.DeletePartialMatch(labels)
	SyncRunsTotal.DeletePartialMatch(labels)
	SyncLastSuccessTimestamp.DeletePartialMatch(labels)
	DocumentsTotal.DeletePartialMatch(labels)
	InvalidDocumentsTotal.DeletePartialMatch(labels)
	ServicesTotal.DeletePartialMatch(labels)
}
