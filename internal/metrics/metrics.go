// Package metrics provides Prometheus metrics for backup passes
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pass results used as the "result" label.
const (
	ResultSuccess   = "success"
	ResultFailed    = "failed"
	ResultCancelled = "rotation_cancelled"
)

// BackupMetrics contains Prometheus metrics for the backup scheduler and
// retention. A nil *BackupMetrics records nothing.
type BackupMetrics struct {
	registry *prometheus.Registry

	// Pass metrics
	passesTotal         *prometheus.CounterVec
	passDurationSeconds prometheus.Histogram
	lastSuccessTime     prometheus.Gauge

	// Snapshot metrics
	snapshotsCreatedTotal prometheus.Counter
	snapshotBytes         prometheus.Gauge
	archiveErrorsTotal    *prometheus.CounterVec

	// Retention metrics
	snapshotsDeletedTotal prometheus.Counter
	deleteFailuresTotal   prometheus.Counter
	rotationsDeclined     prometheus.Counter
	suspectFiles          prometheus.Gauge
	validSnapshots        prometheus.Gauge
}

// NewBackupMetrics creates and registers new backup metrics
func NewBackupMetrics(registry *prometheus.Registry) (*BackupMetrics, error) {
	m := &BackupMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *BackupMetrics) initMetrics() {
	m.passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folder_archiver_passes_total",
			Help: "Total number of backup passes by result",
		},
		[]string{"result"},
	)

	m.passDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "folder_archiver_pass_duration_seconds",
		Help:    "Time taken by a backup pass including rotation",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	})

	m.lastSuccessTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "folder_archiver_last_success_timestamp_seconds",
		Help: "Unix time of the last snapshot written successfully",
	})

	m.snapshotsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "folder_archiver_snapshots_created_total",
		Help: "Total number of snapshots written",
	})

	m.snapshotBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "folder_archiver_last_snapshot_source_bytes",
		Help: "Uncompressed size of the files in the last snapshot",
	})

	m.archiveErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folder_archiver_archive_errors_total",
			Help: "Total number of failed snapshot attempts by error code",
		},
		[]string{"code"},
	)

	m.snapshotsDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "folder_archiver_snapshots_deleted_total",
		Help: "Total number of old snapshots removed by rotation",
	})

	m.deleteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "folder_archiver_delete_failures_total",
		Help: "Total number of snapshots rotation failed to remove",
	})

	m.rotationsDeclined = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "folder_archiver_rotations_declined_total",
		Help: "Total number of bulk deletions that were not confirmed",
	})

	m.suspectFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "folder_archiver_suspect_files",
		Help: "Files with the snapshot prefix but an unexpected name found by the last scan",
	})

	m.validSnapshots = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "folder_archiver_valid_snapshots",
		Help: "Trusted snapshots present after the last rotation",
	})
}

// Describe implements the Collector interface
func (m *BackupMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.passesTotal.Describe(ch)
	m.passDurationSeconds.Describe(ch)
	m.lastSuccessTime.Describe(ch)
	m.snapshotsCreatedTotal.Describe(ch)
	m.snapshotBytes.Describe(ch)
	m.archiveErrorsTotal.Describe(ch)
	m.snapshotsDeletedTotal.Describe(ch)
	m.deleteFailuresTotal.Describe(ch)
	m.rotationsDeclined.Describe(ch)
	m.suspectFiles.Describe(ch)
	m.validSnapshots.Describe(ch)
}

// Collect implements the Collector interface
func (m *BackupMetrics) Collect(ch chan<- prometheus.Metric) {
	m.passesTotal.Collect(ch)
	m.passDurationSeconds.Collect(ch)
	m.lastSuccessTime.Collect(ch)
	m.snapshotsCreatedTotal.Collect(ch)
	m.snapshotBytes.Collect(ch)
	m.archiveErrorsTotal.Collect(ch)
	m.snapshotsDeletedTotal.Collect(ch)
	m.deleteFailuresTotal.Collect(ch)
	m.rotationsDeclined.Collect(ch)
	m.suspectFiles.Collect(ch)
	m.validSnapshots.Collect(ch)
}

// RecordPass records the outcome and duration of a pass.
func (m *BackupMetrics) RecordPass(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.passesTotal.WithLabelValues(result).Inc()
	m.passDurationSeconds.Observe(d.Seconds())
}

// RecordSnapshot records a successfully written snapshot.
func (m *BackupMetrics) RecordSnapshot(at time.Time, sourceBytes int64) {
	if m == nil {
		return
	}
	m.snapshotsCreatedTotal.Inc()
	m.snapshotBytes.Set(float64(sourceBytes))
	m.lastSuccessTime.Set(float64(at.Unix()))
}

// RecordArchiveError records a failed snapshot attempt.
func (m *BackupMetrics) RecordArchiveError(code string) {
	if m == nil {
		return
	}
	m.archiveErrorsTotal.WithLabelValues(code).Inc()
}

// RecordScan records the classifier result of a rotation.
func (m *BackupMetrics) RecordScan(valid, suspect int) {
	if m == nil {
		return
	}
	m.validSnapshots.Set(float64(valid))
	m.suspectFiles.Set(float64(suspect))
}

// RecordDeletions records the outcome of applying a retention decision.
func (m *BackupMetrics) RecordDeletions(deleted, failed int) {
	if m == nil {
		return
	}
	m.snapshotsDeletedTotal.Add(float64(deleted))
	m.deleteFailuresTotal.Add(float64(failed))
	m.validSnapshots.Sub(float64(deleted))
}

// RecordDeclined records a bulk deletion that was not confirmed.
func (m *BackupMetrics) RecordDeclined() {
	if m == nil {
		return
	}
	m.rotationsDeclined.Inc()
}
