package reporting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidFilter reports a PeriodFilter that cannot select a period.
var ErrInvalidFilter = errors.New("reporting: invalid filter")

// PeriodMode selects the period granularity.
type PeriodMode string

// Period modes.
const (
	ModeDay   PeriodMode = "day"
	ModeMonth PeriodMode = "month"
	ModeYear  PeriodMode = "year"
)

// PeriodFilter scopes a dashboard: which branch, which day, month or year.
type PeriodFilter struct {
	BranchID string     `json:"branch_id"`
	Mode     PeriodMode `json:"mode" validate:"required,oneof=day month year"`
	Day      string     `json:"day,omitempty" validate:"omitempty,datekey"`
	Month    int        `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	Year     int        `json:"year,omitempty" validate:"omitempty,min=1970,max=9999"`
}

var filterValidator = newFilterValidator()

func newFilterValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("datekey", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return NormalizeDate(s) == s
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		f := sl.Current().Interface().(PeriodFilter)
		switch f.Mode {
		case ModeDay:
			if f.Day == "" {
				sl.ReportError(f.Day, "Day", "day", "required_if", "mode day")
			}
		case ModeMonth:
			if f.Month == 0 {
				sl.ReportError(f.Month, "Month", "month", "required_if", "mode month")
			}
			if f.Year == 0 {
				sl.ReportError(f.Year, "Year", "year", "required_if", "mode month")
			}
		case ModeYear:
			if f.Year == 0 {
				sl.ReportError(f.Year, "Year", "year", "required_if", "mode year")
			}
		}
	}, PeriodFilter{})
	return v
}

// Validate checks the filter. Failures wrap ErrInvalidFilter.
func (f PeriodFilter) Validate() error {
	err := filterValidator.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidFilter, strings.Join(fields, ", "))
}

// MonthToDate is the default dashboard filter: the current month, all branches.
func MonthToDate(today string) PeriodFilter {
	y, m, _, ok := splitKey(today)
	if !ok {
		return PeriodFilter{BranchID: AllBranches, Mode: ModeMonth}
	}
	return PeriodFilter{BranchID: AllBranches, Mode: ModeMonth, Month: int(m), Year: y}
}

// Bounds returns the inclusive key range of the whole period.
func (f PeriodFilter) Bounds() (from, to string) {
	switch f.Mode {
	case ModeDay:
		return f.Day, f.Day
	case ModeMonth:
		return FirstOfMonth(f.Year, time.Month(f.Month)), LastOfMonth(f.Year, time.Month(f.Month))
	case ModeYear:
		return fmt.Sprintf("%04d-01-01", f.Year), fmt.Sprintf("%04d-12-31", f.Year)
	}
	return "", ""
}

// Window returns the period range. With toDate set the range stops at today, so
// the current month reads as month to date while past months stay whole.
func (f PeriodFilter) Window(today string, toDate bool) (from, to string) {
	from, to = f.Bounds()
	if toDate && today != "" && to > today {
		to = today
	}
	return from, to
}

// Criteria converts the filter into record predicates.
func (f PeriodFilter) Criteria(today string, toDate bool, visibility Visibility) Criteria {
	from, to := f.Window(today, toDate)
	return Criteria{BranchID: f.BranchID, From: from, To: to, Visibility: visibility}
}

// ChartMonth returns the month charted by day for day and month modes.
func (f PeriodFilter) ChartMonth() (int, time.Month) {
	if f.Mode == ModeDay {
		if y, m, _, ok := splitKey(f.Day); ok {
			return y, m
		}
	}
	return f.Year, time.Month(f.Month)
}
