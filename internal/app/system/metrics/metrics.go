// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SyncTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohorthub_sync_tasks_total",
			Help: "Fan-out sync tasks processed, by mode and result.",
		},
		[]string{"mode", "result"},
	)

	FanoutChunkUsers = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cohorthub_fanout_chunk_users",
			Help:    "Users reconciled per sync task.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1..16384
		},
	)

	HandlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohorthub_handler_duration_seconds",
			Help:    "Change-event handler latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	AssignmentWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohorthub_assignment_writes_total",
			Help: "Assignment documents written by the reconciler, by op.",
		},
		[]string{"op"},
	)
)

// Init registers all collectors with the default registry. Call once at
// startup.
func Init() {
	prometheus.MustRegister(SyncTasksTotal, FanoutChunkUsers, HandlerDuration, AssignmentWritesTotal)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHandler records one handler invocation's duration.
func ObserveHandler(name string, start time.Time) {
	HandlerDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
