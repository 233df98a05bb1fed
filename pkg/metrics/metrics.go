// Package metrics exposes Prometheus collectors for HTTP traffic and form
// submissions.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry    *prometheus.Registry
	reqDuration *prometheus.HistogramVec
	attempts    *prometheus.CounterVec
	webhook     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, so tests and multiple
// instances never collide on the global one.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reqDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: []float64{0.01, 0.1, 0.3, 1.2, 5},
			},
			[]string{"path", "method", "status"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formrelay_submissions_total",
				Help: "Form submission attempts by form type and outcome.",
			},
			[]string{"form_type", "outcome"},
		),
		webhook: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "formrelay_webhook_duration_seconds",
				Help:    "Duration of webhook deliveries.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 15, 30},
			},
			[]string{"form_type"},
		),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.reqDuration, m.attempts, m.webhook,
	} {
		if err := m.registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) ObserveAttempt(formType, outcome string) {
	m.attempts.WithLabelValues(formType, outcome).Inc()
}

func (m *Metrics) ObserveDelivery(formType string, elapsed time.Duration) {
	m.webhook.WithLabelValues(formType).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMetrics records request duration labelled by chi route pattern, which
// keeps label cardinality bounded.
func (m *Metrics) HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		m.reqDuration.WithLabelValues(path, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
