package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Snapshot stream metrics
	SnapshotsPublished *prometheus.CounterVec
	WatcherConnections prometheus.Gauge

	// Mutation metrics
	TaskMutations    *prometheus.CounterVec
	ProjectMutations *prometheus.CounterVec
	ViewerNoOps      prometheus.Counter

	// Chat ingestion metrics
	WebhookTasks  *prometheus.CounterVec
	ParseFailures prometheus.Counter
}

// InitMetrics initializes the Prometheus metrics and registers a live-session
// gauge fed by the sync service.
func InitMetrics(sync *SyncService) *Metrics {
	metrics := &Metrics{
		SnapshotsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_snapshots_published_total",
			Help: "Total number of collection snapshots published, by collection",
		}, []string{"collection"}),

		WatcherConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "taskdeck_watcher_connections_active",
			Help: "Number of active WebSocket snapshot watchers",
		}),

		TaskMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_task_mutations_total",
			Help: "Total number of task mutations by operation",
		}, []string{"op"}),

		ProjectMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_project_mutations_total",
			Help: "Total number of project mutations by operation",
		}, []string{"op"}),

		ViewerNoOps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_viewer_noops_total",
			Help: "Total number of mutation calls silently refused for read-only viewers",
		}),

		WebhookTasks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_webhook_tasks_total",
			Help: "Total number of tasks created via webhooks, by source",
		}, []string{"source"}),

		ParseFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_parse_failures_total",
			Help: "Total number of chat messages that produced no task",
		}),
	}

	if sync != nil {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "taskdeck_sessions_active",
				Help: "Current number of live sync sessions",
			},
			func() float64 {
				return float64(sync.SessionCount())
			},
		))
	}

	return metrics
}
