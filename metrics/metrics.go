// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics defines the Prometheus collectors an embedding
// application may register to observe the runtime core. Nothing in this
// package registers itself at init time (spec §6 "Environment: None
// intrinsic to the core") — the caller owns the registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles the core's Prometheus collectors for a single
// Register/Unregister call.
type Collectors struct {
	// ScheduleDuration observes wall-clock time spent in Scheduler.Schedule,
	// labeled by outcome ("ok" or "error").
	ScheduleDuration *prometheus.HistogramVec

	// RegistryEntries is a plain Gauge for the live entry count of a
	// mask.Registry; the caller sets it (for example from Registry.Size).
	RegistryEntries prometheus.Gauge

	// RegistryResurrections is a Counter for entries revived by a lookup
	// racing a concurrent erase. Nothing in package mask updates it; the
	// caller increments it.
	RegistryResurrections prometheus.Counter

	// TaskGraphSize observes the number of compute tasks a schedule
	// produced, labeled by whether the schedule was marked small.
	TaskGraphSize *prometheus.HistogramVec
}

// New constructs a fresh Collectors set with the given metric name
// prefix (e.g. "vexec").
func New(namespace string) *Collectors {
	return &Collectors{
		ScheduleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "schedule_duration_seconds",
			Help:      "Wall-clock time spent producing a schedule.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		RegistryEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mask",
			Name:      "registry_entries",
			Help:      "Live interned mask count across all registry shards.",
		}),
		RegistryResurrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mask",
			Name:      "registry_resurrections_total",
			Help:      "Entries revived by a lookup racing a concurrent erase.",
		}),
		TaskGraphSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "task_graph_size",
			Help:      "Number of compute tasks produced by a schedule.",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000},
		}, []string{"small"}),
	}
}

// MustRegister registers every collector in c against reg.
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.ScheduleDuration,
		c.RegistryEntries,
		c.RegistryResurrections,
		c.TaskGraphSize,
	)
}

// ObserveSchedule records one Schedule() call's duration and resulting
// task-graph size.
func (c *Collectors) ObserveSchedule(seconds float64, err error, taskCount int, small bool) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.ScheduleDuration.WithLabelValues(outcome).Observe(seconds)

	smallLabel := "false"
	if small {
		smallLabel = "true"
	}
	c.TaskGraphSize.WithLabelValues(smallLabel).Observe(float64(taskCount))
}
