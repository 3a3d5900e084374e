package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/spamanager/spa-manager/internal/reporting"
)

// View names reported to the Recorder.
const (
	ViewDashboard    = "dashboard"
	ViewSales        = "sales"
	ViewAppointments = "appointments"
)

// Lookups is the reference data used to resolve labels.
type Lookups struct {
	Branches []reporting.BranchRef  `json:"branches"`
	Products []reporting.ProductRef `json:"products"`
	Leads    []reporting.LeadRef    `json:"leads"`
}

// SalesListQuery scopes the sales listing.
type SalesListQuery struct {
	BranchID   string
	Visibility reporting.Visibility
	Search     string
	From       string
	To         string
}

// AppointmentQuery scopes the appointments page. A zero Year or Month selects
// the current month.
type AppointmentQuery struct {
	BranchID   string
	Year       int
	Month      time.Month
	Search     string
	Visibility reporting.Visibility
}

// Service fetches records from the Source and assembles views. Every view is
// rebuilt from a fresh fetch; only lookups go through the cache.
type Service struct {
	source  Source
	cache   *Cache
	metrics Recorder
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
	flight  singleflight.Group

	lookupTimeout time.Duration
}

const defaultLookupTimeout = 30 * time.Second

// Option customises a Service.
type Option func(*Service)

// WithCache enables the lookup cache.
func WithCache(c *Cache) Option { return func(s *Service) { s.cache = c } }

// WithRecorder reports builds and failures to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the calendar used for "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLookupTimeout bounds a shared lookup load, which keeps running when the
// caller that started it goes away.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}

// NewService wires a Source with optional cache, metrics and clock.
func NewService(source Source, opts ...Option) *Service {
	s := &Service{
		source:  source,
		metrics: nopRecorder{},
		logger:  slog.Default(),
		loc:     time.Local,
		now:     time.Now,

		lookupTimeout: defaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current date key in the service's calendar.
func (s *Service) Today() string {
	return reporting.Today(s.now(), s.loc)
}

// Location returns the service's calendar.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Dashboard loads sales and lookups concurrently and assembles the dashboard.
// Any failed load fails the whole view.
func (s *Service) Dashboard(ctx context.Context, filter reporting.PeriodFilter) (reporting.DashboardView, error) {
	if err := filter.Validate(); err != nil {
		return reporting.DashboardView{}, err
	}
	var (
		sales   []reporting.SaleRecord
		lookups Lookups
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.listSales(gctx, SalesQuery{BranchID: filter.BranchID, Visibility: reporting.ActiveOnly})
		return err
	})
	g.Go(func() error {
		var err error
		lookups, err = s.Lookups(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return reporting.DashboardView{}, err
	}

	view := reporting.BuildDashboard(reporting.DashboardInput{
		Filter:   filter,
		Today:    s.Today(),
		Sales:    sales,
		Products: lookups.Products,
		Branches: lookups.Branches,
		Leads:    lookups.Leads,
	})
	s.metrics.ReportBuilt(ViewDashboard)
	return view, nil
}

// Sales assembles the sales listing.
func (s *Service) Sales(ctx context.Context, q SalesListQuery) (reporting.SalesListView, error) {
	var (
		sales   []reporting.SaleRecord
		lookups Lookups
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.listSales(gctx, SalesQuery{BranchID: q.BranchID, Visibility: q.Visibility})
		return err
	})
	g.Go(func() error {
		var err error
		lookups, err = s.Lookups(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return reporting.SalesListView{}, err
	}

	view := reporting.BuildSalesList(reporting.SalesListInput{
		Criteria: reporting.Criteria{
			BranchID:   q.BranchID,
			From:       q.From,
			To:         q.To,
			Visibility: q.Visibility,
			Search:     q.Search,
		},
		Sales:    sales,
		Branches: lookups.Branches,
		Products: lookups.Products,
	})
	s.metrics.ReportBuilt(ViewSales)
	return view, nil
}

// Appointments assembles the appointments calendar. A missing year or month
// defaults to the current one.
func (s *Service) Appointments(ctx context.Context, q AppointmentQuery) (reporting.AppointmentCalendarView, error) {
	today := s.Today()
	now := s.now().In(s.loc)
	if q.Year == 0 {
		q.Year = now.Year()
	}
	if q.Month == 0 {
		q.Month = now.Month()
	}
	appts, err := load(ctx, s, ResourceAppointments, s.source.ListAppointments)
	if err != nil {
		return reporting.AppointmentCalendarView{}, err
	}
	view := reporting.BuildAppointmentCalendar(reporting.AppointmentCalendarInput{
		Year:         q.Year,
		Month:        q.Month,
		Today:        today,
		BranchID:     q.BranchID,
		Search:       q.Search,
		Visibility:   q.Visibility,
		Appointments: appts,
	})
	s.metrics.ReportBuilt(ViewAppointments)
	return view, nil
}

// Lookups returns branches, products and leads, from the cache when possible.
// Concurrent callers share one upstream request per kind.
func (s *Service) Lookups(ctx context.Context) (Lookups, error) {
	var out Lookups
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Branches, err = cachedLookup(gctx, s, ResourceBranches, s.source.ListBranches)
		return err
	})
	g.Go(func() error {
		var err error
		out.Products, err = cachedLookup(gctx, s, ResourceProducts, s.source.ListProducts)
		return err
	})
	g.Go(func() error {
		var err error
		out.Leads, err = cachedLookup(gctx, s, ResourceLeads, s.source.ListLeads)
		return err
	})
	if err := g.Wait(); err != nil {
		return Lookups{}, err
	}
	return out, nil
}

// RefreshLookups invalidates the lookup cache and reloads it.
func (s *Service) RefreshLookups(ctx context.Context) (Lookups, error) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump lookup cache", slog.Any("error", err))
	}
	return s.Lookups(ctx)
}

func (s *Service) listSales(ctx context.Context, q SalesQuery) ([]reporting.SaleRecord, error) {
	return load(ctx, s, ResourceSales, func(ctx context.Context) ([]reporting.SaleRecord, error) {
		return s.source.ListSales(ctx, q)
	})
}

func cachedLookup[T any](ctx context.Context, s *Service, resource string, list func(context.Context) ([]T, error)) ([]T, error) {
	shared := func(ctx context.Context) ([]T, error) {
		// The shared load outlives any single caller; each caller only stops
		// waiting when its own context ends.
		ch := s.flight.DoChan(resource, func() (any, error) {
			lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lookupTimeout)
			defer cancel()
			return load(lctx, s, resource, list)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			return res.Val.([]T), nil
		}
	}
	out, err := fetchLookup(ctx, s.cache, resource, shared)
	if errors.Is(err, errCache) {
		s.logger.Warn("lookup cache degraded", slog.String("kind", resource), slog.Any("error", err))
		err = nil
	}
	if out == nil && err == nil {
		out = []T{}
	}
	return out, err
}

// load calls the source and classifies failures. Cancellation passes through
// untouched so that superseded loads are not counted as outages.
func load[T any](ctx context.Context, s *Service, resource string, fn func(context.Context) ([]T, error)) ([]T, error) {
	out, err := fn(ctx)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return nil, err
	}
	s.metrics.UpstreamFailed(resource)
	s.logger.Error("upstream load failed", slog.String("resource", resource), slog.Any("error", err))
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return nil, err
	}
	return nil, &UpstreamError{Resource: resource, Err: err}
}
