package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodFilterValidate(t *testing.T) {
	valid := []PeriodFilter{
		{Mode: ModeDay, Day: "2024-05-20"},
		{Mode: ModeMonth, Month: 5, Year: 2024, BranchID: "b1"},
		{Mode: ModeYear, Year: 2024},
	}
	for _, f := range valid {
		assert.NoError(t, f.Validate(), "%+v", f)
	}

	invalid := []PeriodFilter{
		{},
		{Mode: "week", Year: 2024},
		{Mode: ModeDay},
		{Mode: ModeDay, Day: "2024-13-01"},
		{Mode: ModeDay, Day: "2024-05-20T00:00:00Z"},
		{Mode: ModeMonth, Year: 2024},
		{Mode: ModeMonth, Month: 13, Year: 2024},
		{Mode: ModeYear},
	}
	for _, f := range invalid {
		err := f.Validate()
		require.Error(t, err, "%+v", f)
		assert.ErrorIs(t, err, ErrInvalidFilter)
	}
}

func TestPeriodFilterValidateNamesFields(t *testing.T) {
	err := PeriodFilter{Mode: ModeMonth}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "month")
	assert.Contains(t, err.Error(), "year")
}

func TestMonthToDate(t *testing.T) {
	f := MonthToDate("2024-05-15")
	assert.Equal(t, PeriodFilter{BranchID: AllBranches, Mode: ModeMonth, Month: 5, Year: 2024}, f)
	require.NoError(t, f.Validate())

	from, to := f.Window("2024-05-15", true)
	assert.Equal(t, "2024-05-01", from)
	assert.Equal(t, "2024-05-15", to)
}

func TestPeriodWindow(t *testing.T) {
	april := PeriodFilter{Mode: ModeMonth, Month: 4, Year: 2024}
	from, to := april.Window("2024-05-15", true)
	assert.Equal(t, "2024-04-01", from)
	assert.Equal(t, "2024-04-30", to)

	year := PeriodFilter{Mode: ModeYear, Year: 2024}
	from, to = year.Window("2024-05-15", true)
	assert.Equal(t, "2024-01-01", from)
	assert.Equal(t, "2024-05-15", to)

	from, to = year.Window("2024-05-15", false)
	assert.Equal(t, "2024-12-31", to)
	assert.Equal(t, "2024-01-01", from)
}

func TestPeriodCriteriaAndChartMonth(t *testing.T) {
	day := PeriodFilter{BranchID: "b2", Mode: ModeDay, Day: "2024-03-09"}
	c := day.Criteria("2024-05-15", true, AllRecords)
	assert.Equal(t, Criteria{BranchID: "b2", From: "2024-03-09", To: "2024-03-09", Visibility: AllRecords}, c)

	y, m := day.ChartMonth()
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.March, m)
}
