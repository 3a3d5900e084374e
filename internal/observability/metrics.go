package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spamanager/spa-manager/internal/dashboard"
)

// Metrics collects the Prometheus metrics of the reporting service. It also
// implements dashboard.Recorder.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reportBuilds    *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	staleLoads      prometheus.Counter
}

var _ dashboard.Recorder = (*Metrics)(nil)

// NewMetrics initialises the registry with HTTP, reporting and runtime metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spa_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spa_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spa_report_builds_total",
		Help: "Reporting views assembled, by view.",
	}, []string{"view"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spa_upstream_failures_total",
		Help: "Failed loads from the system of record, by resource.",
	}, []string{"resource"})
	stale := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spa_stale_loads_discarded_total",
		Help: "Dashboard loads discarded because a newer filter superseded them.",
	})
	registry.MustRegister(
		requests, duration, builds, upstream, stale,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, view := range []string{dashboard.ViewDashboard, dashboard.ViewSales, dashboard.ViewAppointments} {
		builds.WithLabelValues(view)
	}
	for _, resource := range []string{
		dashboard.ResourceSales, dashboard.ResourceAppointments,
		dashboard.ResourceBranches, dashboard.ResourceProducts, dashboard.ResourceLeads,
	} {
		upstream.WithLabelValues(resource)
	}

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		reportBuilds:    builds,
		upstreamErrors:  upstream,
		staleLoads:      stale,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// ReportBuilt counts an assembled view.
func (m *Metrics) ReportBuilt(view string) {
	if m == nil {
		return
	}
	m.reportBuilds.WithLabelValues(view).Inc()
}

// UpstreamFailed counts a failed load.
func (m *Metrics) UpstreamFailed(resource string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(resource).Inc()
}

// StaleDiscarded counts a superseded dashboard load.
func (m *Metrics) StaleDiscarded() {
	if m == nil {
		return
	}
	m.staleLoads.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
