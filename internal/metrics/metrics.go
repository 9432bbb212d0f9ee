// Package metrics exposes Prometheus counters for the HTTP API, the Stripe
// webhook pipeline and organizer activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "event_console"

type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	webhooksReceived  *prometheus.CounterVec
	webhooksProcessed *prometheus.CounterVec
	webhookQueueDepth prometheus.Gauge

	ticketsCreated prometheus.Counter
	checkIns       prometheus.Counter
	exports        *prometheus.CounterVec
	wizardSubmits  *prometheus.CounterVec
	overdueFlagged prometheus.Counter
}

// New registers every metric on reg. Pass a fresh registry in tests.
func New(reg *prometheus.Registry) *Metrics {
	auto := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		webhooksReceived: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stripe",
			Name:      "webhooks_received_total",
			Help:      "Stripe webhook deliveries by outcome (queued, duplicate, rejected).",
		}, []string{"outcome"}),
		webhooksProcessed: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stripe",
			Name:      "webhooks_processed_total",
			Help:      "Stripe events applied by type and outcome.",
		}, []string{"type", "outcome"}),
		webhookQueueDepth: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stripe",
			Name:      "webhook_queue_depth",
			Help:      "Stripe events waiting in the queue, including scheduled retries.",
		}),
		ticketsCreated: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_created_total",
			Help:      "Ticket types created by organizers.",
		}),
		checkIns: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_ins_total",
			Help:      "Participants checked in.",
		}),
		exports: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "CSV exports by kind.",
		}, []string{"kind"}),
		wizardSubmits: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_submits_total",
			Help:      "Wizard submissions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		overdueFlagged: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_overdue_flagged_total",
			Help:      "Installments moved to overdue by the sweeper.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by chi route
// pattern, so ids in paths do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) WebhookReceived(outcome string) {
	m.webhooksReceived.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WebhookProcessed(eventType, outcome string) {
	m.webhooksProcessed.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) SetQueueDepth(n int64) {
	m.webhookQueueDepth.Set(float64(n))
}

func (m *Metrics) TicketCreated() { m.ticketsCreated.Inc() }

func (m *Metrics) CheckIn() { m.checkIns.Inc() }

func (m *Metrics) Export(kind string) {
	m.exports.WithLabelValues(kind).Inc()
}

func (m *Metrics) WizardSubmit(kind, outcome string) {
	m.wizardSubmits.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) OverdueFlagged(n int64) {
	m.overdueFlagged.Add(float64(n))
}
