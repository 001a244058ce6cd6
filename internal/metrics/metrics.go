package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "spotter"

// Metrics holds the application's Prometheus instruments.
type Metrics struct {
	Registry *prometheus.Registry

	Requests          *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	SetsLogged        prometheus.Counter
	SessionsStarted   *prometheus.CounterVec
	SessionsCompleted prometheus.Counter
	SessionsImported  prometheus.Counter
	StorageErrors     prometheus.Counter
	ActiveWorkout     prometheus.Gauge
}

// New registers Go runtime, process and application collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newWith(reg)
}

// NewForTest registers only the application collectors.
func NewForTest() *Metrics {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"route"}),
		SetsLogged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sets_logged_total",
			Help:      "Sets logged during live workouts.",
		}),
		SessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Workouts started by mode.",
		}, []string{"mode"}),
		SessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Sessions completed with feedback.",
		}),
		SessionsImported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_imported_total",
			Help:      "Sessions created from CSV imports.",
		}),
		StorageErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Failed saves surfaced to API callers.",
		}),
		ActiveWorkout: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workout",
			Help:      "1 while a workout is in progress.",
		}),
	}
}
