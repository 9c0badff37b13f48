package orchestrator

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics exposes Prometheus collectors that report orchestrator activity.
type PromMetrics struct {
	taskDuration *prometheus.HistogramVec
	taskFailures *prometheus.CounterVec
	taskRetries  *prometheus.CounterVec
	tasksActive  prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *PromMetrics
)

// DefaultPromMetrics returns the package-level metrics instance registered
// with the global Prometheus registry. The collectors are created only once
// to avoid duplicate registration panics when the runner is instantiated
// multiple times (e.g. in unit tests).
func DefaultPromMetrics() *PromMetrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewPromMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewPromMetrics constructs a PromMetrics instance using the provided
// registerer. The caller is responsible for supplying a fresh registry when
// unique metric names are required (for example in tests). Any registration
// error will panic, which mirrors promauto semantics and surfaces
// configuration bugs early.
func MustNewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	taskDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thumbcode",
			Subsystem: "orchestrator",
			Name:      "task_duration_seconds",
			Help:      "Duration of each agent task execution.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"role", "status"},
	)
	taskFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thumbcode",
			Subsystem: "orchestrator",
			Name:      "task_failures_total",
			Help:      "Total number of task executions that failed.",
		},
		[]string{"role", "reason"},
	)
	taskRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thumbcode",
			Subsystem: "orchestrator",
			Name:      "task_retries_total",
			Help:      "Number of times a task execution required a retry.",
		},
		[]string{"role"},
	)
	tasksActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "thumbcode",
			Subsystem: "orchestrator",
			Name:      "tasks_active",
			Help:      "Number of tasks currently being executed.",
		},
	)

	collectors := []prometheus.Collector{taskDuration, taskFailures, taskRetries, tasksActive}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch target := collector.(type) {
				case *prometheus.HistogramVec:
					taskDuration = already.ExistingCollector.(*prometheus.HistogramVec)
				case *prometheus.CounterVec:
					switch target {
					case taskFailures:
						taskFailures = already.ExistingCollector.(*prometheus.CounterVec)
					case taskRetries:
						taskRetries = already.ExistingCollector.(*prometheus.CounterVec)
					}
				case prometheus.Gauge:
					tasksActive = already.ExistingCollector.(prometheus.Gauge)
				}
				continue
			}
			panic(err)
		}
	}

	return &PromMetrics{
		taskDuration: taskDuration,
		taskFailures: taskFailures,
		taskRetries:  taskRetries,
		tasksActive:  tasksActive,
	}
}

// ObserveTaskDuration records the time spent executing a task.
func (m *PromMetrics) ObserveTaskDuration(role string, status string, duration time.Duration) {
	if m == nil || m.taskDuration == nil {
		return
	}
	m.taskDuration.WithLabelValues(role, status).Observe(duration.Seconds())
}

// IncTaskFailure increments the failure counter for the given role and reason.
func (m *PromMetrics) IncTaskFailure(role string, reason string) {
	if m == nil || m.taskFailures == nil {
		return
	}
	m.taskFailures.WithLabelValues(role, reason).Inc()
}

// IncTaskRetry increments the retry counter for the given role.
func (m *PromMetrics) IncTaskRetry(role string) {
	if m == nil || m.taskRetries == nil {
		return
	}
	m.taskRetries.WithLabelValues(role).Inc()
}

// IncActiveTasks marks a task as active.
func (m *PromMetrics) IncActiveTasks() {
	if m == nil || m.tasksActive == nil {
		return
	}
	m.tasksActive.Inc()
}

// DecActiveTasks marks a task as finished or cancelled.
func (m *PromMetrics) DecActiveTasks() {
	if m == nil || m.tasksActive == nil {
		return
	}
	m.tasksActive.Dec()
}
