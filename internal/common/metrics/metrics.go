// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// path is "template" or "properties"; outcome is "created", "updated" or "failed".
	MetadataApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_apply_total",
			Help: "Metadata apply attempts by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	MetadataConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_apply_conflicts_total",
			Help: "Create calls that hit an existing metadata instance",
		},
		[]string{"path"},
	)

	MetadataApplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metadata_apply_duration_seconds",
			Help:    "Duration of a single file metadata apply in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	MetadataConversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_field_conversions_total",
			Help: "Field coercions by outcome",
		},
		[]string{"outcome"},
	)

	OrchestratorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_runs_total",
			Help: "Orchestration passes by result",
		},
		[]string{"result"},
	)
)
