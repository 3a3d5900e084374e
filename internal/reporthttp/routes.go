package reporthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/spamanager/spa-manager/internal/platform/httpx"
)

// ExportLimit caps export requests per client per minute.
const ExportLimit = 10

// MountRoutes registers the reporting endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(ExportLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached")
		}),
	)

	r.Route("/api", func(api chi.Router) {
		api.Get("/dashboard", h.handleDashboard)
		api.Get("/dashboard/chart.svg", h.handleChart)
		api.Get("/sales", h.handleSales)
		api.Get("/appointments", h.handleAppointments)
		api.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/sales/export.csv", h.handleSalesCSV)
			gr.Get("/sales/export.xlsx", h.handleSalesXLSX)
			gr.Get("/sales/export.pdf", h.handleSalesPDF)
			gr.Get("/products/export.csv", h.handleProductsCSV)
			gr.Get("/leads/export.csv", h.handleLeadsCSV)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
