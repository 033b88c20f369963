// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "repometer"

var (
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_runs_total",
		Help:      "Count of full sync runs.",
	}, []string{"status"})

	RepoSyncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "repo_syncs_total",
		Help:      "Count of per-repository sync attempts.",
	}, []string{"platform", "status"})

	RepoSyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "repo_sync_duration_seconds",
		Help:      "Time taken to fetch, dedupe and persist one repository.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"platform"})

	ObservationsPersistedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "observations_persisted_total",
		Help:      "Rows written to the metrics store, post deduplication.",
	})

	LastRunSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_success_timestamp_seconds",
		Help:      "Unix timestamp of the last sync run that had no failures.",
	})
)
