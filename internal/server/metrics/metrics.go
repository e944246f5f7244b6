// Package metrics exposes the server's Prometheus metrics on a dedicated
// registry.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	AuthEvents     *prometheus.CounterVec
	MailDeliveries *prometheus.CounterVec
	RateLimited    *prometheus.CounterVec
}

// New creates the metrics and registers them, together with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gophauth_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_auth_events_total",
				Help: "Account operations by operation and result code",
			},
			[]string{"operation", "result"},
		),
		MailDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_mail_deliveries_total",
				Help: "Mail delivery attempts by template and result",
			},
			[]string{"template", "result"},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_rate_limited_total",
				Help: "Requests rejected by the attempt limiter, by scope",
			},
			[]string{"scope"},
		),
	}

	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.AuthEvents, m.MailDeliveries, m.RateLimited)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// RecordAuth counts one account operation. Failures are labelled with the
// lower-cased error code.
func (m *Metrics) RecordAuth(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = strings.ToLower(common.CodeOf(err))
	}
	m.AuthEvents.WithLabelValues(operation, result).Inc()
}

// RecordMail has the shape of mail.ResultHook.
func (m *Metrics) RecordMail(template string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.MailDeliveries.WithLabelValues(template, result).Inc()
}

func (m *Metrics) RecordRateLimited(scope string) {
	m.RateLimited.WithLabelValues(scope).Inc()
}
