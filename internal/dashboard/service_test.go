package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spamanager/spa-manager/internal/reporting"
)

var fixedNow = time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC)

func money(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func seededSource() *fakeSource {
	src := newFakeSource()
	src.sales = []reporting.SaleRecord{
		{ID: "1", OccurredOn: "2024-05-02", BranchID: "b1", SellerName: "Laura", Amount: money(100)},
		{ID: "2", OccurredOn: "2024-05-02", BranchID: "b1", SellerName: "Laura", Amount: money(50), Status: "cancelled"},
		{ID: "3", OccurredOn: "2024-05-03T10:00:00Z", BranchID: "b2", Amount: money(70)},
	}
	src.appointments = []reporting.AppointmentRecord{
		{ID: "a1", Date: "2024-05-15", Time: "11:00", ClientName: "Ana"},
		{ID: "a2", Date: "2024-05-15", Time: "9:00 AM", ClientName: "Bea"},
	}
	src.branches = []reporting.BranchRef{{ID: "b1", Name: "Centro"}, {ID: "b2", Name: "Norte"}}
	src.products = []reporting.ProductRef{{ID: "p1", Name: "Aceite", Stock: 1, MinStock: 2}}
	src.leads = []reporting.LeadRef{{ID: "l1", Status: reporting.LeadSold}}
	return src
}

func newTestService(t *testing.T, src Source, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC)}
	return NewService(src, append(base, opts...)...)
}

func TestServiceDashboard(t *testing.T) {
	src := seededSource()
	rec := newCountingRecorder()
	svc := newTestService(t, src, WithRecorder(rec))

	view, err := svc.Dashboard(context.Background(), reporting.MonthToDate(svc.Today()))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(170).Equal(view.KPI.TotalAmount))
	assert.Equal(t, 2, view.KPI.SalesCount)
	assert.Len(t, view.Series, 15)
	assert.Equal(t, 1, view.Inventory.LowStock)
	assert.Len(t, view.SoldLeads, 1)
	assert.Equal(t, reporting.ActiveOnly, src.salesQuery.Visibility)
	assert.Equal(t, 1, rec.builds[ViewDashboard])
}

func TestServiceDashboardRejectsInvalidFilter(t *testing.T) {
	src := seededSource()
	svc := newTestService(t, src)

	_, err := svc.Dashboard(context.Background(), reporting.PeriodFilter{Mode: reporting.ModeMonth})
	require.Error(t, err)
	assert.ErrorIs(t, err, reporting.ErrInvalidFilter)
	assert.Zero(t, src.count(ResourceSales))
}

func TestServiceDashboardFailsWholeViewOnUpstreamError(t *testing.T) {
	src := seededSource()
	src.errs[ResourceProducts] = errors.New("connection refused")
	rec := newCountingRecorder()
	svc := newTestService(t, src, WithRecorder(rec))

	view, err := svc.Dashboard(context.Background(), reporting.MonthToDate(svc.Today()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, ResourceProducts, upstream.Resource)
	assert.Equal(t, reporting.DashboardView{}, view)
	assert.Equal(t, 1, rec.failures[ResourceProducts])
	assert.Zero(t, rec.builds[ViewDashboard])
}

func TestServiceSalesListing(t *testing.T) {
	src := seededSource()
	svc := newTestService(t, src)

	view, err := svc.Sales(context.Background(), SalesListQuery{BranchID: "b1", Visibility: reporting.AllRecords})
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "Centro", view.Rows[0].BranchName)
	assert.Equal(t, 1, view.Cancelled)
	assert.True(t, decimal.NewFromInt(100).Equal(view.Totals.TotalAmount))
	assert.Equal(t, SalesQuery{BranchID: "b1", Visibility: reporting.AllRecords}, src.salesQuery)
}

func TestServiceAppointmentsDefaultsToCurrentMonth(t *testing.T) {
	svc := newTestService(t, seededSource())

	view, err := svc.Appointments(context.Background(), AppointmentQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2024, view.Year)
	assert.Equal(t, time.May, view.Month)
	require.Len(t, view.Today, 2)
	assert.Equal(t, "a2", view.Today[0].ID)
}

func TestServiceAppointmentsDefaultsOnlyMissingPart(t *testing.T) {
	svc := newTestService(t, seededSource())

	view, err := svc.Appointments(context.Background(), AppointmentQuery{Year: 2023})
	require.NoError(t, err)
	assert.Equal(t, 2023, view.Year)
	assert.Equal(t, time.May, view.Month)

	view, err = svc.Appointments(context.Background(), AppointmentQuery{Month: time.February})
	require.NoError(t, err)
	assert.Equal(t, 2024, view.Year)
	assert.Equal(t, time.February, view.Month)
}

func TestServiceAppointmentsUpstreamError(t *testing.T) {
	src := seededSource()
	src.errs[ResourceAppointments] = errors.New("502 bad gateway")
	svc := newTestService(t, src)

	_, err := svc.Appointments(context.Background(), AppointmentQuery{Year: 2024, Month: time.May})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestServiceCancellationIsNotAnOutage(t *testing.T) {
	src := seededSource()
	src.errs[ResourceSales] = context.Canceled
	rec := newCountingRecorder()
	svc := newTestService(t, src, WithRecorder(rec))

	_, err := svc.Sales(context.Background(), SalesListQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUpstream)
	assert.Zero(t, rec.failures[ResourceSales])
}

func TestServiceLookupsUseCache(t *testing.T) {
	src := seededSource()
	cache, _ := newTestCache(t)
	svc := newTestService(t, src, WithCache(cache))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Sales(ctx, SalesListQuery{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, src.count(ResourceSales))
	assert.Equal(t, 1, src.count(ResourceBranches))
	assert.Equal(t, 1, src.count(ResourceProducts))

	lookups, err := svc.RefreshLookups(ctx)
	require.NoError(t, err)
	assert.Len(t, lookups.Branches, 2)
	assert.Equal(t, 2, src.count(ResourceBranches))
}

func TestServiceLookupsConcurrentCallers(t *testing.T) {
	src := seededSource()
	svc := newTestService(t, src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.Lookups(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got.Products, 1)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, src.count(ResourceProducts), 8)
	assert.GreaterOrEqual(t, src.count(ResourceProducts), 1)
}

func TestServiceTodayUsesLocation(t *testing.T) {
	late := time.Date(2024, 5, 16, 2, 0, 0, 0, time.UTC)
	svc := NewService(newFakeSource(), WithClock(func() time.Time { return late }), WithLocation(time.FixedZone("COT", -5*3600)))
	assert.Equal(t, "2024-05-15", svc.Today())
}

func TestLookupsSurviveCancelledJoinedCaller(t *testing.T) {
	src := seededSource()
	src.branchGate = make(chan struct{})
	src.branchStarted = make(chan struct{}, 4)
	rec := newCountingRecorder()
	svc := newTestService(t, src, WithRecorder(rec))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Lookups(firstCtx)
		firstErr <- err
	}()
	<-src.branchStarted

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	type outcome struct {
		lookups Lookups
		err     error
	}
	second := make(chan outcome, 1)
	go func() {
		l, err := svc.Lookups(context.Background())
		second <- outcome{l, err}
	}()

	close(src.branchGate)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, src.branches, got.lookups.Branches)
	assert.Equal(t, 1, src.count(ResourceBranches))
	assert.Zero(t, rec.failures[ResourceBranches])
}

func TestLookupTimeoutBoundsSharedLoad(t *testing.T) {
	src := seededSource()
	src.branchGate = make(chan struct{})
	src.branchStarted = make(chan struct{}, 4)
	t.Cleanup(func() { close(src.branchGate) })
	svc := newTestService(t, src, WithLookupTimeout(20*time.Millisecond))

	_, err := svc.Lookups(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
