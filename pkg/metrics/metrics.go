// Package metrics exposes engine-level Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Engine bundles the collectors tracking calculation activity
type Engine struct {
	registry *prometheus.Registry

	JobsStarted   *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	RunningJobs   prometheus.Gauge
	TaskDuration  prometheus.Histogram
}

// NewEngine creates the collectors on a private registry so tests can
// run side by side without duplicate registration panics.
func NewEngine() *Engine {
	registry := prometheus.NewRegistry()

	m := &Engine{
		registry: registry,
		JobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hazengine_jobs_started_total",
			Help: "Calculation jobs started, by calculation mode.",
		}, []string{"mode"}),
		JobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hazengine_jobs_completed_total",
			Help: "Calculation jobs completed successfully, by calculation mode.",
		}, []string{"mode"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hazengine_jobs_failed_total",
			Help: "Calculation jobs that ended in error, by calculation mode.",
		}, []string{"mode"}),
		RunningJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hazengine_running_jobs",
			Help: "Calculation jobs currently executing.",
		}),
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hazengine_task_duration_seconds",
			Help:    "Distribution of core task durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	registry.MustRegister(
		m.JobsStarted, m.JobsCompleted, m.JobsFailed,
		m.RunningJobs, m.TaskDuration,
	)
	return m
}

// Registry returns the underlying registry for the /metrics handler
func (m *Engine) Registry() *prometheus.Registry {
	return m.registry
}
