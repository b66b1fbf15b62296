// Package metrics exposes the prometheus metrics of the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shule"

// student operations
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpImport = "import"
)

// login results
const (
	LoginSuccess     = "success"
	LoginFailed      = "failed"
	LoginDeactivated = "deactivated"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	studentOps          *prometheus.CounterVec
	logins              *prometheus.CounterVec
}

// New registers the API metrics, plus the go & process collectors, on a new registry.
func New(build string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(registry)

	auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build of the running binary.",
		ConstLabels: prometheus.Labels{"build": build},
	}).Set(1)

	return &Metrics{
		registry: registry,
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		studentOps: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "students",
			Name:      "operations_total",
			Help:      "Total number of students created, updated, deleted or imported.",
		}, []string{"op"}),
		logins: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total number of login attempts by result.",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// StudentsChanged counts n students affected by op.
func (m *Metrics) StudentsChanged(op string, n int) {
	m.studentOps.WithLabelValues(op).Add(float64(n))
}

func (m *Metrics) Login(result string) {
	m.logins.WithLabelValues(result).Inc()
}
