// Package metrics exposes the counters of a worker pool as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spawner"

// Source is implemented by pools that keep track of their tasks.
// pool.Pool, antspool.Pool and wpool.Pool all implement it.
type Source interface {
	// RunningWorkers returns the number of workers currently executing a task.
	RunningWorkers() int64

	// SubmittedTasks returns the number of tasks accepted since the pool was created.
	SubmittedTasks() uint64

	// WaitingTasks returns the number of tasks waiting for a worker.
	WaitingTasks() uint64

	// CompletedTasks returns the number of tasks that finished running.
	CompletedTasks() uint64
}

// NewCollectors returns the collectors reading src. Every metric carries a
// "pool" label set to name.
func NewCollectors(name string, src Source) []prometheus.Collector {
	labels := prometheus.Labels{"pool": name}

	return []prometheus.Collector{
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "running_workers",
				Help:        "Number of workers executing a task",
				ConstLabels: labels,
			},
			func() float64 {
				return float64(src.RunningWorkers())
			}),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "waiting_tasks",
				Help:        "Number of tasks waiting for a worker",
				ConstLabels: labels,
			},
			func() float64 {
				return float64(src.WaitingTasks())
			}),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "submitted_tasks_total",
				Help:        "Number of tasks accepted by the pool",
				ConstLabels: labels,
			},
			func() float64 {
				return float64(src.SubmittedTasks())
			}),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "completed_tasks_total",
				Help:        "Number of tasks that finished running",
				ConstLabels: labels,
			},
			func() float64 {
				return float64(src.CompletedTasks())
			}),
	}
}

// Register registers the collectors of src with reg.
func Register(reg prometheus.Registerer, name string, src Source) error {
	for _, collector := range NewCollectors(name, src) {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
