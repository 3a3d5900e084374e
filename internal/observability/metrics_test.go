package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spamanager/spa-manager/internal/dashboard"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesReportingMetrics(t *testing.T) {
	body := scrape(t, NewMetrics())

	assert.Contains(t, body, `spa_report_builds_total{view="dashboard"} 0`)
	assert.Contains(t, body, `spa_upstream_failures_total{resource="sales"} 0`)
	assert.Contains(t, body, "spa_stale_loads_discarded_total 0")
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/sales")
	req := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `spa_http_requests_total{code="418",route="/api/sales"} 1`)
	assert.Contains(t, body, `spa_http_request_duration_seconds_bucket{route="/api/sales"`)
}

func TestRecorderCounters(t *testing.T) {
	metrics := NewMetrics()
	var rec dashboard.Recorder = metrics

	rec.ReportBuilt(dashboard.ViewSales)
	rec.ReportBuilt(dashboard.ViewSales)
	rec.UpstreamFailed(dashboard.ResourceLeads)
	rec.StaleDiscarded()

	body := scrape(t, metrics)
	assert.Contains(t, body, `spa_report_builds_total{view="sales"} 2`)
	assert.Contains(t, body, `spa_upstream_failures_total{resource="leads"} 1`)
	assert.Contains(t, body, "spa_stale_loads_discarded_total 1")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ReportBuilt(dashboard.ViewDashboard)
	metrics.UpstreamFailed(dashboard.ResourceSales)
	metrics.StaleDiscarded()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, metrics.Middleware(next))

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
