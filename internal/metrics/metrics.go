// Package metrics exposes the repository engine's Prometheus collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/any-hub/any-repo/internal/storage"
)

// Metrics holds all Prometheus collectors of one process.
type Metrics struct {
	Operations     *prometheus.CounterVec   // anyrepo_storage_operations_total{repository,operation,status}
	StoreDuration  *prometheus.HistogramVec // anyrepo_storage_store_duration_seconds{repository}
	StoredBytes    *prometheus.CounterVec   // anyrepo_storage_stored_bytes_total{repository}
	RenameRetries  *prometheus.CounterVec   // anyrepo_storage_rename_retries_total{repository}
	Rebuilds       *prometheus.CounterVec   // anyrepo_metadata_rebuilds_total{repository,status}
	RebuildWritten *prometheus.CounterVec   // anyrepo_metadata_written_total{repository}
	RebuildLast    *prometheus.GaugeVec     // anyrepo_metadata_last_rebuild_seconds{repository}
}

// New registers the collectors on registry (the default registerer when nil).
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anyrepo_storage_operations_total",
			Help: "Storage operations by repository, operation and status",
		}, []string{"repository", "operation", "status"}),

		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anyrepo_storage_store_duration_seconds",
			Help:    "Time spent copying and publishing stored items",
			Buckets: prometheus.DefBuckets,
		}, []string{"repository"}),

		StoredBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anyrepo_storage_stored_bytes_total",
			Help: "Bytes written to temp files, including failed stores",
		}, []string{"repository"}),

		RenameRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anyrepo_storage_rename_retries_total",
			Help: "Rename attempts beyond the first",
		}, []string{"repository"}),

		Rebuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anyrepo_metadata_rebuilds_total",
			Help: "Metadata rebuild crawls by repository and status",
		}, []string{"repository", "status"}),

		RebuildWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anyrepo_metadata_written_total",
			Help: "maven-metadata.xml files written by rebuild crawls",
		}, []string{"repository"}),

		RebuildLast: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "anyrepo_metadata_last_rebuild_seconds",
			Help: "Duration of the most recent rebuild crawl",
		}, []string{"repository"}),
	}
}

// Status maps an operation result to a low-cardinality label value.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, storage.ErrItemNotFound):
		return "not_found"
	case errors.Is(err, storage.ErrPathEscape):
		return "rejected"
	default:
		return "error"
	}
}

// ForRepository returns a storage.Metrics bound to one repository label.
func (m *Metrics) ForRepository(name string) storage.Metrics {
	return repositoryMetrics{m: m, repo: name}
}

// ObserveRebuild records the outcome of one crawl.
func (m *Metrics) ObserveRebuild(repo string, written int, duration time.Duration, err error) {
	m.Rebuilds.WithLabelValues(repo, Status(err)).Inc()
	m.RebuildWritten.WithLabelValues(repo).Add(float64(written))
	m.RebuildLast.WithLabelValues(repo).Set(duration.Seconds())
}

type repositoryMetrics struct {
	m    *Metrics
	repo string
}

func (r repositoryMetrics) ObserveStore(bytes int64, duration time.Duration, err error) {
	r.m.StoreDuration.WithLabelValues(r.repo).Observe(duration.Seconds())
	if bytes > 0 {
		r.m.StoredBytes.WithLabelValues(r.repo).Add(float64(bytes))
	}
}

func (r repositoryMetrics) ObserveOperation(op string, err error) {
	r.m.Operations.WithLabelValues(r.repo, op, Status(err)).Inc()
}

func (r repositoryMetrics) RenameRetry() {
	r.m.RenameRetries.WithLabelValues(r.repo).Inc()
}
