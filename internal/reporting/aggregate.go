package reporting

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TopProductsLimit caps the product ranking.
const TopProductsLimit = 10

// Bucket is one slot of an aggregated series. Count is the number of sales,
// Units the summed quantity (at least one per sale) and Amount the summed total.
type Bucket struct {
	Key    string          `json:"key"`
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Units  int             `json:"units"`
	Amount decimal.Decimal `json:"amount"`
}

func (b *Bucket) add(s SaleRecord) {
	b.Count++
	b.Units += s.Units()
	b.Amount = b.Amount.Add(s.Total())
}

// Series is an ordered list of buckets.
type Series []Bucket

// Labels returns the bucket labels in order.
func (s Series) Labels() []string {
	out := make([]string, len(s))
	for i, b := range s {
		out[i] = b.Label
	}
	return out
}

// Counts returns the bucket counts as chart values.
func (s Series) Counts() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = float64(b.Count)
	}
	return out
}

// UnitValues returns the bucket unit sums as chart values.
func (s Series) UnitValues() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = float64(b.Units)
	}
	return out
}

// Amounts returns the bucket amounts as chart values.
func (s Series) Amounts() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Amount.InexactFloat64()
	}
	return out
}

// TotalCount sums Count over the series.
func (s Series) TotalCount() int {
	total := 0
	for _, b := range s {
		total += b.Count
	}
	return total
}

// ByDay counts active sales per day of the given month. Buckets run from day 1
// to the last day of the month, or to today's day when the month is the current
// one; a month that starts after today has no buckets. An empty today disables
// the clamp.
func ByDay(records []SaleRecord, year int, month time.Month, today string) Series {
	days := DaysIn(year, month)
	if today != "" {
		if FirstOfMonth(year, month) > today {
			return Series{}
		}
		if ty, tm, td, ok := splitKey(today); ok && ty == year && tm == month {
			days = td
		}
	}

	series := make(Series, days)
	for i := range series {
		day := strconv.Itoa(i + 1)
		series[i] = Bucket{Key: day, Label: day}
	}

	prefix := MonthKey(year, month) + "-"
	for _, s := range records {
		if s.Cancelled() {
			continue
		}
		key := s.dateKey()
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		_, _, day, ok := splitKey(key)
		if !ok || day > days {
			continue
		}
		series[day-1].add(s)
	}
	return series
}

// ByMonth counts active sales per month of the year. The series always has 12
// buckets; sales dated after today leave their month at zero.
func ByMonth(records []SaleRecord, year int, today string) Series {
	series := make(Series, 12)
	for i := range series {
		m := time.Month(i + 1)
		series[i] = Bucket{Key: MonthKey(year, m), Label: m.String()[:3]}
	}

	prefix := strconv.Itoa(year) + "-"
	for _, s := range records {
		if s.Cancelled() {
			continue
		}
		key := s.dateKey()
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if today != "" && key > today {
			continue
		}
		_, m, _, ok := splitKey(key)
		if !ok {
			continue
		}
		series[m-1].add(s)
	}
	return series
}

// ByAgent counts active sales per resolved seller label, most sales first.
// Ties keep the order in which sellers were first seen.
func ByAgent(records []SaleRecord) Series {
	series := group(records, func(s SaleRecord) (string, string) {
		label := s.SellerLabel()
		return label, label
	})
	slices.SortStableFunc(series, func(a, b Bucket) int { return cmp.Compare(b.Count, a.Count) })
	return series
}

// ByProduct sums units per resolved product label, largest first, and keeps the
// top ten. Ties keep first-seen order.
func ByProduct(records []SaleRecord, products map[string]ProductRef) Series {
	series := group(records, func(s SaleRecord) (string, string) {
		label := s.ProductLabel(products)
		return label, label
	})
	slices.SortStableFunc(series, func(a, b Bucket) int { return cmp.Compare(b.Units, a.Units) })
	if len(series) > TopProductsLimit {
		series = series[:TopProductsLimit]
	}
	return series
}

// ByBranch counts active sales per branch, most sales first.
func ByBranch(records []SaleRecord, branches map[string]BranchRef) Series {
	series := group(records, func(s SaleRecord) (string, string) {
		return s.BranchID, BranchLabel(s.BranchID, branches)
	})
	slices.SortStableFunc(series, func(a, b Bucket) int { return cmp.Compare(b.Count, a.Count) })
	return series
}

// ByPaymentMethod sums active sales per payment method, largest amount first.
func ByPaymentMethod(records []SaleRecord) Series {
	series := group(records, func(s SaleRecord) (string, string) {
		method := strings.TrimSpace(s.PaymentMethod)
		if method == "" {
			method = "Unspecified"
		}
		return strings.ToLower(method), method
	})
	slices.SortStableFunc(series, func(a, b Bucket) int { return b.Amount.Cmp(a.Amount) })
	return series
}

// BranchLabel resolves a branch display name.
func BranchLabel(id string, branches map[string]BranchRef) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return UnknownBranch
	}
	if b, ok := branches[id]; ok && strings.TrimSpace(b.Name) != "" {
		return strings.TrimSpace(b.Name)
	}
	return "Branch " + id
}

// group buckets active sales by key in first-seen order.
func group(records []SaleRecord, keyOf func(SaleRecord) (key, label string)) Series {
	series := Series{}
	index := make(map[string]int)
	for _, s := range records {
		if s.Cancelled() {
			continue
		}
		key, label := keyOf(s)
		i, ok := index[key]
		if !ok {
			i = len(series)
			index[key] = i
			series = append(series, Bucket{Key: key, Label: label})
		}
		series[i].add(s)
	}
	return series
}
