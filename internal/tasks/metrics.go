package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "banksync_sweep_items_total",
		Help: "Candidates processed by sweep tasks, by outcome.",
	}, []string{"task", "outcome"})

	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "banksync_task_duration_seconds",
		Help:    "Wall-clock duration of top-level task runs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"task"})
)

// observeBatch records the outcome counts of one sweep run.
func observeBatch[T any](task string, result BatchResult[T]) {
	sweepItems.WithLabelValues(task, "succeeded").Add(float64(result.Succeeded))
	sweepItems.WithLabelValues(task, "skipped").Add(float64(result.Skipped))
	sweepItems.WithLabelValues(task, "failed").Add(float64(len(result.Failed)))
}
