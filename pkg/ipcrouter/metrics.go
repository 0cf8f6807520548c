package ipcrouter

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the router's Prometheus instrumentation.
type MetricsConfig struct {
	Namespace string
	Registry  prometheus.Registerer
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Namespace: "deskkit", Registry: prometheus.DefaultRegisterer}
}

type routerMetrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

var (
	globalRouterMetrics     *routerMetrics
	globalRouterMetricsOnce sync.Once
	globalRouterMetricsMu   sync.Mutex
)

func initRouterMetrics(cfg MetricsConfig) *routerMetrics {
	factory := promauto.With(cfg.Registry)
	return &routerMetrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "ipc",
			Name:      "requests_total",
			Help:      "Total number of IPC calls handled, by handler and response code",
		}, []string{"handler", "code"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "ipc",
			Name:      "duration_seconds",
			Help:      "IPC call handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
	}
}

// MetricsOption configures WithMetrics.
type MetricsOption func(*MetricsConfig)

// WithMetricsRegistry overrides the Prometheus registerer used.
func WithMetricsRegistry(r prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = r }
}

// WithMetricsNamespace overrides the metric namespace (default "deskkit").
func WithMetricsNamespace(ns string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = ns }
}

// EnableMetrics wires deskkit_ipc_requests_total / deskkit_ipc_duration_seconds
// into the router. The metrics are created and registered on the first call
// in the process; later calls attach that same set to their router and
// ignore their options, matching the teacher's singleton metrics pattern.
func EnableMetrics(r *Router, opts ...MetricsOption) {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	globalRouterMetricsMu.Lock()
	if globalRouterMetrics == nil {
		globalRouterMetrics = initRouterMetrics(cfg)
	}
	m := globalRouterMetrics
	globalRouterMetricsMu.Unlock()

	r.metrics = m
}

func (m *routerMetrics) observe(handler string, code Code, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(handler, strconv.Itoa(int(code))).Inc()
	m.duration.WithLabelValues(handler).Observe(seconds)
}
