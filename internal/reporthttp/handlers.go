// Package reporthttp serves the reporting views over HTTP.
package reporthttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spamanager/spa-manager/internal/charts"
	"github.com/spamanager/spa-manager/internal/dashboard"
	"github.com/spamanager/spa-manager/internal/export"
	"github.com/spamanager/spa-manager/internal/platform/httpx"
	"github.com/spamanager/spa-manager/internal/reporting"
)

const defaultRequestTimeout = 10 * time.Second

const csvContentType = "text/csv; charset=utf-8"

// ReportService is the view contract used by the handler.
type ReportService interface {
	Today() string
	Dashboard(ctx context.Context, filter reporting.PeriodFilter) (reporting.DashboardView, error)
	Sales(ctx context.Context, q dashboard.SalesListQuery) (reporting.SalesListView, error)
	Appointments(ctx context.Context, q dashboard.AppointmentQuery) (reporting.AppointmentCalendarView, error)
	Lookups(ctx context.Context) (dashboard.Lookups, error)
}

// Handler serves the reporting API.
type Handler struct {
	logger     *slog.Logger
	service    ReportService
	timeout    time.Duration
	exportPool sync.Pool
}

// NewHandler constructs the reporting HTTP handler. A non-positive timeout
// selects the default.
func NewHandler(logger *slog.Logger, service ReportService, timeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	h := &Handler{logger: logger, service: service, timeout: timeout}
	h.exportPool.New = func() any { return new(bytes.Buffer) }
	return h
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parsePeriod(r)
	if err != nil {
		h.respond(w, "parse filter", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.service.Dashboard(ctx, filter)
	if err != nil {
		h.respond(w, "load dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parsePeriod(r)
	if err != nil {
		h.respond(w, "parse filter", err)
		return
	}
	query := r.URL.Query()
	seriesName := strings.ToLower(strings.TrimSpace(query.Get("series")))
	kind := strings.ToLower(strings.TrimSpace(query.Get("kind")))
	if kind != "" && kind != "bar" && kind != "line" {
		h.respond(w, "parse chart", validationError{field: "kind"})
		return
	}
	metric := strings.ToLower(strings.TrimSpace(query.Get("metric")))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.service.Dashboard(ctx, filter)
	if err != nil {
		h.respond(w, "load dashboard", err)
		return
	}

	var (
		series reporting.Series
		title  string
	)
	switch seriesName {
	case "", "period":
		series, title = view.Series, "Ventas del periodo"
	case "sellers":
		series, title = view.Sellers, "Ventas por vendedora"
	case "products":
		series, title = view.TopProducts, "Productos mas vendidos"
	case "branches":
		series, title = view.Branches, "Ventas por sucursal"
	case "payments":
		series, title = view.PaymentMethods, "Metodos de pago"
	default:
		h.respond(w, "parse chart", validationError{field: "series"})
		return
	}

	values, err := seriesValues(series, metric)
	if err != nil {
		h.respond(w, "parse chart", err)
		return
	}
	labels := series.Labels()
	if len(values) == 0 {
		values, labels = []float64{0}, []string{"Sin datos"}
	}

	render := charts.Bars
	if kind == "line" {
		render = charts.Line
	}
	svg, err := render(charts.DefaultWidth, charts.DefaultHeight, values, labels, charts.Options{
		Title:       title,
		Description: fmt.Sprintf("%s a %s", view.From, view.To),
		ShowDots:    true,
	})
	if err != nil {
		h.respond(w, "render chart", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := io.WriteString(w, svg); err != nil {
		h.logError("stream chart", err)
	}
}

func seriesValues(series reporting.Series, metric string) ([]float64, error) {
	switch metric {
	case "", "count":
		return series.Counts(), nil
	case "units":
		return series.UnitValues(), nil
	case "amount":
		return series.Amounts(), nil
	}
	return nil, validationError{field: "metric"}
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	q, err := parseSalesQuery(r)
	if err != nil {
		h.respond(w, "parse sales query", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.service.Sales(ctx, q)
	if err != nil {
		h.respond(w, "load sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleSalesCSV(w http.ResponseWriter, r *http.Request) {
	h.exportSales(w, r, "csv", csvContentType, export.WriteSalesCSV)
}

func (h *Handler) handleSalesXLSX(w http.ResponseWriter, r *http.Request) {
	h.exportSales(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.WriteSalesXLSX)
}

func (h *Handler) handleSalesPDF(w http.ResponseWriter, r *http.Request) {
	h.exportSales(w, r, "pdf", "application/pdf", export.WriteSalesPDF)
}

func (h *Handler) exportSales(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(io.Writer, []reporting.SaleRow) error) {
	q, err := parseSalesQuery(r)
	if err != nil {
		h.respond(w, "parse sales query", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.service.Sales(ctx, q)
	if err != nil {
		h.respond(w, "load sales", err)
		return
	}
	h.sendExport(w, "ventas", ext, contentType, func(out io.Writer) error {
		return write(out, view.Rows)
	})
}

func (h *Handler) handleProductsCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lookups, err := h.service.Lookups(ctx)
	if err != nil {
		h.respond(w, "load products", err)
		return
	}
	h.sendExport(w, "inventario", "csv", csvContentType, func(out io.Writer) error {
		return export.WriteProductsCSV(out, lookups.Products)
	})
}

func (h *Handler) handleLeadsCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lookups, err := h.service.Lookups(ctx)
	if err != nil {
		h.respond(w, "load leads", err)
		return
	}
	branch := branchParam(r)
	leads := lookups.Leads
	if branch != reporting.AllBranches {
		leads = make([]reporting.LeadRef, 0, len(lookups.Leads))
		for _, l := range lookups.Leads {
			if l.BranchID == branch {
				leads = append(leads, l)
			}
		}
	}
	h.sendExport(w, "leads", "csv", csvContentType, func(out io.Writer) error {
		return export.WriteLeadsCSV(out, leads)
	})
}

// sendExport renders into a pooled buffer first so a failed write still
// produces a problem response instead of a truncated attachment.
func (h *Handler) sendExport(w http.ResponseWriter, prefix, ext, contentType string, write func(io.Writer) error) {
	buf := h.exportPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.exportPool.Put(buf)
	}()
	if err := write(buf); err != nil {
		h.respond(w, "write "+ext, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", prefix, h.service.Today(), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream "+ext, err)
	}
}

func (h *Handler) handleAppointments(w http.ResponseWriter, r *http.Request) {
	q, err := parseAppointmentQuery(r)
	if err != nil {
		h.respond(w, "parse appointment query", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.service.Appointments(ctx, q)
	if err != nil {
		h.respond(w, "load appointments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

// parsePeriod reads the dashboard filter. Without a mode the current month is
// selected; missing parts of a mode default to today's.
func (h *Handler) parsePeriod(r *http.Request) (reporting.PeriodFilter, error) {
	query := r.URL.Query()
	today := h.service.Today()
	filter := reporting.MonthToDate(today)
	filter.BranchID = branchParam(r)

	mode := strings.ToLower(strings.TrimSpace(query.Get("mode")))
	if mode == "" {
		return filter, nil
	}
	filter.Mode = reporting.PeriodMode(mode)

	year, err := intParam(r, "year")
	if err != nil {
		return reporting.PeriodFilter{}, err
	}
	month, err := intParam(r, "month")
	if err != nil {
		return reporting.PeriodFilter{}, err
	}
	if year != 0 {
		filter.Year = year
	}
	if month != 0 {
		filter.Month = month
	}
	switch filter.Mode {
	case reporting.ModeDay:
		filter.Day = strings.TrimSpace(query.Get("day"))
		if filter.Day == "" {
			filter.Day = today
		}
		filter.Month, filter.Year = 0, 0
	case reporting.ModeYear:
		filter.Month = 0
	}
	return filter, nil
}

func parseSalesQuery(r *http.Request) (dashboard.SalesListQuery, error) {
	query := r.URL.Query()
	visibility, err := visibilityParam(r)
	if err != nil {
		return dashboard.SalesListQuery{}, err
	}
	from, err := dateParam(r, "from")
	if err != nil {
		return dashboard.SalesListQuery{}, err
	}
	to, err := dateParam(r, "to")
	if err != nil {
		return dashboard.SalesListQuery{}, err
	}
	return dashboard.SalesListQuery{
		BranchID:   branchParam(r),
		Visibility: visibility,
		Search:     strings.TrimSpace(query.Get("q")),
		From:       from,
		To:         to,
	}, nil
}

func parseAppointmentQuery(r *http.Request) (dashboard.AppointmentQuery, error) {
	visibility, err := visibilityParam(r)
	if err != nil {
		return dashboard.AppointmentQuery{}, err
	}
	year, err := intParam(r, "year")
	if err != nil {
		return dashboard.AppointmentQuery{}, err
	}
	month, err := intParam(r, "month")
	if err != nil {
		return dashboard.AppointmentQuery{}, err
	}
	if month < 0 || month > 12 {
		return dashboard.AppointmentQuery{}, validationError{field: "month"}
	}
	if year != 0 && (year < 1970 || year > 9999) {
		return dashboard.AppointmentQuery{}, validationError{field: "year"}
	}
	return dashboard.AppointmentQuery{
		BranchID:   branchParam(r),
		Year:       year,
		Month:      time.Month(month),
		Search:     strings.TrimSpace(r.URL.Query().Get("q")),
		Visibility: visibility,
	}, nil
}

func branchParam(r *http.Request) string {
	branch := strings.TrimSpace(r.URL.Query().Get("branch_id"))
	if branch == "" {
		return reporting.AllBranches
	}
	return branch
}

// visibilityParam defaults to every record so cancelled rows stay visible in
// listings.
func visibilityParam(r *http.Request) (reporting.Visibility, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("visibility"))
	if raw == "" {
		return reporting.AllRecords, nil
	}
	v, ok := reporting.ParseVisibility(raw)
	if !ok {
		return 0, validationError{field: "visibility"}
	}
	return v, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validationError{field: name}
	}
	return v, nil
}

func dateParam(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return "", nil
	}
	if reporting.NormalizeDate(raw) != raw {
		return "", validationError{field: name}
	}
	return raw, nil
}

// respond maps domain failures onto problem responses.
func (h *Handler) respond(w http.ResponseWriter, context string, err error) {
	var vErr validationError
	switch {
	case errors.As(err, &vErr):
		err = fmt.Errorf("%w: %s", httpx.ErrValidation, vErr.Error())
	case errors.Is(err, reporting.ErrInvalidFilter):
		err = fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	case errors.Is(err, dashboard.ErrUpstream):
		h.logError(context, err)
		err = fmt.Errorf("%w: %w", httpx.ErrUpstream, err)
	default:
		h.logError(context, err)
	}
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	h.logger.Error(context, slog.Any("error", err))
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}
