package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Redirect outcomes used as the "result" label.
const (
	ResultOK           = "ok"
	ResultNotFound     = "not_found"
	ResultExpired      = "expired"
	ResultLimitReached = "limit_exceeded"
	ResultError        = "error"
)

// Metrics groups the collectors of one process. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	linksCreated  prometheus.Counter
	redirects     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	swept         prometheus.Counter
	sweepFailures prometheus.Counter
	sweepDuration prometheus.Histogram
	responses     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		linksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "limitlink_links_created_total",
			Help: "Links created",
		}),
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "limitlink_redirects_total",
			Help: "Redirect attempts by result",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "limitlink_notifications_total",
			Help: "Notifications emitted by kind",
		}, []string{"kind"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "limitlink_sweep_expired_total",
			Help: "Links soft-deleted by the expiry sweep",
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "limitlink_sweep_failures_total",
			Help: "Links the expiry sweep failed to mark",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "limitlink_sweep_duration_seconds",
			Help:    "Duration of expiry sweep runs",
			Buckets: prometheus.DefBuckets,
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "limitlink_http_responses_total",
			Help: "HTTP responses by method and status class",
		}, []string{"method", "class"}),
	}

	m.registry.MustRegister(
		m.linksCreated, m.redirects, m.notifications,
		m.swept, m.sweepFailures, m.sweepDuration, m.responses,
	)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) LinkCreated() {
	if m == nil {
		return
	}
	m.linksCreated.Inc()
}

func (m *Metrics) Redirect(result string) {
	if m == nil {
		return
	}
	m.redirects.WithLabelValues(result).Inc()
}

func (m *Metrics) Notification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

func (m *Metrics) Sweep(expired, failed int, seconds float64) {
	if m == nil {
		return
	}
	m.swept.Add(float64(expired))
	m.sweepFailures.Add(float64(failed))
	m.sweepDuration.Observe(seconds)
}

func (m *Metrics) Response(method string, status int) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(method, strconv.Itoa(status/100)+"xx").Inc()
}
