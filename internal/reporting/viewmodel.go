package reporting

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SoldLeadsLimit caps the recent sold leads panel.
const SoldLeadsLimit = 10

// KPI holds the headline sales figures. Cancelled sales never contribute.
type KPI struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	SalesCount  int             `json:"sales_count"`
	UnitsSold   int             `json:"units_sold"`
}

// Totals sums the active sales in records.
func Totals(records []SaleRecord) KPI {
	var k KPI
	for _, s := range records {
		if s.Cancelled() {
			continue
		}
		k.TotalAmount = k.TotalAmount.Add(s.Total())
		k.SalesCount++
		k.UnitsSold += s.Units()
	}
	return k
}

// InventorySummary condenses the product table for the dashboard cards.
type InventorySummary struct {
	Products   int             `json:"products"`
	LowStock   int             `json:"low_stock"`
	StockValue decimal.Decimal `json:"stock_value"`
}

// SummarizeInventory counts low-stock products and values stock at sales price.
func SummarizeInventory(products []ProductRef) InventorySummary {
	sum := InventorySummary{Products: len(products)}
	for _, p := range products {
		if p.IsLowStock() {
			sum.LowStock++
		}
		if p.Stock > 0 {
			sum.StockValue = sum.StockValue.Add(p.SalesPrice.Mul(decimal.NewFromInt(int64(p.Stock))))
		}
	}
	return sum
}

// LeadStage is the number of leads in one pipeline stage.
type LeadStage struct {
	Status LeadStatus `json:"status"`
	Count  int        `json:"count"`
}

// LeadFunnel counts leads per stage in board order. Unknown stages are ignored.
func LeadFunnel(leads []LeadRef, branchID string) []LeadStage {
	counts := make(map[LeadStatus]int, len(LeadStatuses))
	for _, l := range scopeLeads(leads, branchID) {
		counts[LeadStatus(strings.ToLower(string(l.Status)))]++
	}
	stages := make([]LeadStage, 0, len(LeadStatuses))
	for _, st := range LeadStatuses {
		stages = append(stages, LeadStage{Status: st, Count: counts[st]})
	}
	return stages
}

// SoldLeads returns the most recently created sold leads, newest first.
func SoldLeads(leads []LeadRef, branchID string, limit int) []LeadRef {
	sold := make([]LeadRef, 0)
	for _, l := range scopeLeads(leads, branchID) {
		if strings.EqualFold(string(l.Status), string(LeadSold)) {
			sold = append(sold, l)
		}
	}
	slices.SortStableFunc(sold, func(a, b LeadRef) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(sold) > limit {
		sold = sold[:limit]
	}
	return sold
}

func scopeLeads(leads []LeadRef, branchID string) []LeadRef {
	branchID = strings.TrimSpace(branchID)
	if branchID == "" || strings.EqualFold(branchID, AllBranches) {
		return leads
	}
	out := make([]LeadRef, 0, len(leads))
	for _, l := range leads {
		if l.BranchID == branchID {
			out = append(out, l)
		}
	}
	return out
}

// DashboardInput is everything the dashboard view needs. Today is the caller's
// local date key.
type DashboardInput struct {
	Filter   PeriodFilter
	Today    string
	Sales    []SaleRecord
	Products []ProductRef
	Branches []BranchRef
	Leads    []LeadRef
}

// SeriesGranularity names the bucketing of the period chart.
type SeriesGranularity string

// Chart granularities.
const (
	GranularityDay   SeriesGranularity = "day"
	GranularityMonth SeriesGranularity = "month"
)

// DashboardView is the assembled dashboard.
type DashboardView struct {
	Filter         PeriodFilter      `json:"filter"`
	From           string            `json:"from"`
	To             string            `json:"to"`
	KPI            KPI               `json:"kpi"`
	Granularity    SeriesGranularity `json:"granularity"`
	Series         Series            `json:"series"`
	Sellers        Series            `json:"sellers"`
	TopProducts    Series            `json:"top_products"`
	Branches       Series            `json:"branches"`
	PaymentMethods Series            `json:"payment_methods"`
	SoldLeads      []LeadRef         `json:"sold_leads"`
	LeadFunnel     []LeadStage       `json:"lead_funnel"`
	Inventory      InventorySummary  `json:"inventory"`
}

// BuildDashboard assembles the dashboard for the filter. The period is read
// month to date: nothing after today is counted.
func BuildDashboard(in DashboardInput) DashboardView {
	f := in.Filter
	crit := f.Criteria(in.Today, true, ActiveOnly)
	period := Filter(in.Sales, crit)
	scoped := Filter(in.Sales, Criteria{BranchID: f.BranchID})

	view := DashboardView{
		Filter:         f,
		From:           crit.From,
		To:             crit.To,
		KPI:            Totals(period),
		Sellers:        ByAgent(period),
		TopProducts:    ByProduct(period, ProductIndex(in.Products)),
		Branches:       ByBranch(period, BranchIndex(in.Branches)),
		PaymentMethods: ByPaymentMethod(period),
		SoldLeads:      SoldLeads(in.Leads, f.BranchID, SoldLeadsLimit),
		LeadFunnel:     LeadFunnel(in.Leads, f.BranchID),
		Inventory:      SummarizeInventory(in.Products),
	}
	if f.Mode == ModeYear {
		view.Granularity = GranularityMonth
		view.Series = ByMonth(scoped, f.Year, in.Today)
	} else {
		year, month := f.ChartMonth()
		view.Granularity = GranularityDay
		view.Series = ByDay(scoped, year, month, in.Today)
	}
	return view
}

// SortAgenda orders appointments by date, then time of day. Undated entries go last.
func SortAgenda(appts []AppointmentRecord) []AppointmentRecord {
	out := slices.Clone(appts)
	slices.SortStableFunc(out, compareAgenda)
	return out
}

func compareAgenda(a, b AppointmentRecord) int {
	ak, bk := a.dateKey(), b.dateKey()
	if ak == "" || bk == "" {
		return undatedLast(ak, bk)
	}
	if c := cmp.Compare(ak, bk); c != 0 {
		return c
	}
	return cmp.Compare(NormalizeClock(a.Time), NormalizeClock(b.Time))
}

func undatedLast(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	return 0
}

// BuildAgenda filters appointments and orders them by date and time.
func BuildAgenda(appts []AppointmentRecord, c Criteria) []AppointmentRecord {
	return SortAgenda(Filter(appts, c))
}

// GroupAppointmentsByDay maps each date key to that day's appointments ordered
// by time. Undated appointments are left out.
func GroupAppointmentsByDay(appts []AppointmentRecord) map[string][]AppointmentRecord {
	out := make(map[string][]AppointmentRecord)
	for _, a := range SortAgenda(appts) {
		key := a.dateKey()
		if key == "" {
			continue
		}
		out[key] = append(out[key], a)
	}
	return out
}

// GroupSalesByDay maps each date key to that day's sales ordered by creation
// time. Sales without a timestamp follow the timed ones; ties keep input order.
// Undated sales are left out.
func GroupSalesByDay(sales []SaleRecord) map[string][]SaleRecord {
	out := make(map[string][]SaleRecord)
	for _, s := range sales {
		key := s.dateKey()
		if key == "" {
			continue
		}
		out[key] = append(out[key], s)
	}
	for _, day := range out {
		slices.SortStableFunc(day, compareCreated)
	}
	return out
}

func compareCreated(a, b SaleRecord) int {
	switch {
	case a.CreatedAt.IsZero() && b.CreatedAt.IsZero():
		return 0
	case a.CreatedAt.IsZero():
		return 1
	case b.CreatedAt.IsZero():
		return -1
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

// CalendarDay is a grid cell populated with its appointments.
type CalendarDay struct {
	CalendarCell
	IsToday      bool                `json:"is_today"`
	Appointments []AppointmentRecord `json:"appointments"`
}

// StatusCount is the number of appointments with one status.
type StatusCount struct {
	Status AppointmentStatus `json:"status"`
	Count  int               `json:"count"`
}

// AppointmentCalendarInput scopes the appointments page.
type AppointmentCalendarInput struct {
	Year         int
	Month        time.Month
	Today        string
	BranchID     string
	Search       string
	Visibility   Visibility
	Appointments []AppointmentRecord
}

// AppointmentCalendarView is the appointments page: month grid, agenda and
// today's schedule.
type AppointmentCalendarView struct {
	Year     int                 `json:"year"`
	Month    time.Month          `json:"month"`
	Cells    []CalendarDay       `json:"cells"`
	Agenda   []AppointmentRecord `json:"agenda"`
	Today    []AppointmentRecord `json:"today"`
	Statuses []StatusCount       `json:"statuses"`
}

// BuildAppointmentCalendar assembles the month grid with the appointments of
// every visible day, including the spill-over days of adjacent months.
func BuildAppointmentCalendar(in AppointmentCalendarInput) AppointmentCalendarView {
	grid := BuildGrid(in.Year, in.Month)
	base := Criteria{
		BranchID:   in.BranchID,
		Visibility: in.Visibility,
		Search:     in.Search,
		Fields:     []Field{FieldClient, FieldService, FieldNotes},
	}

	visible := base
	visible.From, visible.To = grid[0].Date, grid[GridSize-1].Date
	byDay := GroupAppointmentsByDay(Filter(in.Appointments, visible))

	view := AppointmentCalendarView{Year: in.Year, Month: in.Month, Cells: make([]CalendarDay, 0, GridSize)}
	for _, cell := range grid {
		appts := byDay[cell.Date]
		if appts == nil {
			appts = []AppointmentRecord{}
		}
		view.Cells = append(view.Cells, CalendarDay{
			CalendarCell: cell,
			IsToday:      cell.Date == in.Today,
			Appointments: appts,
		})
	}

	month := base
	month.From, month.To = FirstOfMonth(in.Year, in.Month), LastOfMonth(in.Year, in.Month)
	view.Agenda = BuildAgenda(in.Appointments, month)
	view.Statuses = countStatuses(view.Agenda)

	today := base
	today.Visibility = ActiveOnly
	today.From, today.To = in.Today, in.Today
	view.Today = []AppointmentRecord{}
	if in.Today != "" {
		view.Today = BuildAgenda(in.Appointments, today)
	}
	return view
}

func countStatuses(appts []AppointmentRecord) []StatusCount {
	order := []AppointmentStatus{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled}
	counts := make(map[AppointmentStatus]int, len(order))
	for _, a := range appts {
		counts[a.EffectiveStatus()]++
	}
	out := make([]StatusCount, 0, len(order))
	for _, st := range order {
		out = append(out, StatusCount{Status: st, Count: counts[st]})
	}
	return out
}

// SaleRow is one line of the sales listing with labels resolved.
type SaleRow struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"`
	BranchID      string          `json:"branch_id"`
	BranchName    string          `json:"branch_name"`
	Seller        string          `json:"seller"`
	ClientName    string          `json:"client_name"`
	Service       string          `json:"service"`
	Product       string          `json:"product"`
	Quantity      int             `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	Cancelled     bool            `json:"cancelled"`
}

// SalesDay groups listing rows by date.
type SalesDay struct {
	Date   string    `json:"date"`
	Rows   []SaleRow `json:"rows"`
	Totals KPI       `json:"totals"`
}

// SalesListInput scopes the sales listing. Criteria.Visibility should usually
// be AllRecords so cancelled sales stay visible for audit.
type SalesListInput struct {
	Criteria Criteria
	Sales    []SaleRecord
	Branches []BranchRef
	Products []ProductRef
}

// SalesListView is the sales page.
type SalesListView struct {
	Rows      []SaleRow  `json:"rows"`
	Days      []SalesDay `json:"days"`
	Totals    KPI        `json:"totals"`
	Cancelled int        `json:"cancelled"`
}

// BuildSalesList resolves labels for the matching sales, groups them by day
// (newest first, undated last) and totals the active ones.
func BuildSalesList(in SalesListInput) SalesListView {
	matched := Filter(in.Sales, in.Criteria)
	branches := BranchIndex(in.Branches)
	products := ProductIndex(in.Products)

	view := SalesListView{Rows: make([]SaleRow, 0, len(matched)), Days: []SalesDay{}, Totals: Totals(matched)}
	days := make(map[string]int)
	for _, s := range matched {
		row := SaleRow{
			ID:            s.ID,
			Date:          s.dateKey(),
			BranchID:      s.BranchID,
			BranchName:    BranchLabel(s.BranchID, branches),
			Seller:        s.SellerLabel(),
			ClientName:    s.ClientName,
			Service:       s.ServiceLabel,
			Product:       s.ProductLabel(products),
			Quantity:      s.Units(),
			Amount:        s.Total(),
			PaymentMethod: s.PaymentMethod,
			Notes:         s.Notes,
			Cancelled:     s.Cancelled(),
		}
		if row.Cancelled {
			view.Cancelled++
		}
		view.Rows = append(view.Rows, row)

		i, ok := days[row.Date]
		if !ok {
			i = len(view.Days)
			days[row.Date] = i
			view.Days = append(view.Days, SalesDay{Date: row.Date})
		}
		view.Days[i].Rows = append(view.Days[i].Rows, row)
		if !row.Cancelled {
			view.Days[i].Totals.TotalAmount = view.Days[i].Totals.TotalAmount.Add(row.Amount)
			view.Days[i].Totals.SalesCount++
			view.Days[i].Totals.UnitsSold += row.Quantity
		}
	}
	slices.SortStableFunc(view.Days, func(a, b SalesDay) int {
		if a.Date == "" || b.Date == "" {
			return undatedLast(a.Date, b.Date)
		}
		return cmp.Compare(b.Date, a.Date)
	})
	return view
}
