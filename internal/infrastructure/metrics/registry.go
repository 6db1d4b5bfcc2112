package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sensor_watchdog"

// Metrics holds the collectors updated by sensor supervision.
type Metrics struct {
	SensorUpdates     *prometheus.CounterVec
	SensorTransitions *prometheus.CounterVec
	AlertsTriggered   *prometheus.CounterVec
	AlertsResolved    *prometheus.CounterVec
	AlertsActive      *prometheus.GaugeVec
	IngestDropped     prometheus.Counter
	IngestErrors      *prometheus.CounterVec
	NotifyErrors      *prometheus.CounterVec
}

// Registry owns a private prometheus registry with the runtime collectors and Metrics.
type Registry struct {
	registry *prometheus.Registry
	Metrics  *Metrics
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	m := newMetrics()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SensorUpdates,
		m.SensorTransitions,
		m.AlertsTriggered,
		m.AlertsResolved,
		m.AlertsActive,
		m.IngestDropped,
		m.IngestErrors,
		m.NotifyErrors,
	)
	return &Registry{registry: reg, Metrics: m}
}

func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func newMetrics() *Metrics {
	return &Metrics{
		SensorUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_updates_total",
			Help:      "Sensor readings written to the state store.",
		}, []string{"sensor"}),
		SensorTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_transitions_total",
			Help:      "Sensor readings that changed the stored value.",
		}, []string{"sensor"}),
		AlertsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_triggered_total",
			Help:      "Alerts raised after a sensor held its armed value past the timeout.",
		}, []string{"sensor"}),
		AlertsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_resolved_total",
			Help:      "Alerts cleared after the sensor left its armed value.",
		}, []string{"sensor"}),
		AlertsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts_active",
			Help:      "Alerts currently raised.",
		}, []string{"sensor"}),
		IngestDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_dropped_total",
			Help:      "Payloads dropped because the ingest queue was full.",
		}),
		IngestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_errors_total",
			Help:      "Payloads or sensor values that could not be applied.",
		}, []string{"reason"}),
		NotifyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_errors_total",
			Help:      "Notification deliveries that failed.",
		}, []string{"sink"}),
	}
}
