// Package metrics exposes application metrics through Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pfboard"

// Recorder records application metrics
type Recorder interface {
	IncRequestsTotal(route, method string, status int)
	ObserveRequestDuration(route, method string, duration time.Duration)
	IncSubmissions(outcome string)
	IncDeletions(result string)
	IncNotifications(changeType string)
	IncSSEClients()
	DecSSEClients()
}

// Prometheus is a Recorder backed by its own registry
type Prometheus struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	deletions       *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	sseClients      prometheus.Gauge
}

// Ensure implementations satisfy the interface
var (
	_ Recorder = (*Prometheus)(nil)
	_ Recorder = Noop{}
)

// New creates a Prometheus recorder with Go and process collectors registered
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Portfolio submissions by outcome",
		}, []string{"outcome"}),

		deletions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletions_total",
			Help:      "Player deletions by result",
		}, []string{"result"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_notifications_total",
			Help:      "Store change notifications received, by change type",
		}, []string{"type"}),

		sseClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Currently connected SSE clients",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) IncRequestsTotal(route, method string, status int) {
	p.requestsTotal.WithLabelValues(route, method, httpStatusBucket(status)).Inc()
}

func (p *Prometheus) ObserveRequestDuration(route, method string, duration time.Duration) {
	p.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

func (p *Prometheus) IncSubmissions(outcome string) {
	p.submissions.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) IncDeletions(result string) {
	p.deletions.WithLabelValues(result).Inc()
}

func (p *Prometheus) IncNotifications(changeType string) {
	p.notifications.WithLabelValues(changeType).Inc()
}

func (p *Prometheus) IncSSEClients() {
	p.sseClients.Inc()
}

func (p *Prometheus) DecSSEClients() {
	p.sseClients.Dec()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop is a Recorder that discards everything, used when metrics are disabled
type Noop struct{}

func (Noop) IncRequestsTotal(_, _ string, _ int)                 {}
func (Noop) ObserveRequestDuration(_, _ string, _ time.Duration) {}
func (Noop) IncSubmissions(_ string)                             {}
func (Noop) IncDeletions(_ string)                               {}
func (Noop) IncNotifications(_ string)                           {}
func (Noop) IncSSEClients()                                      {}
func (Noop) DecSSEClients()                                      {}
