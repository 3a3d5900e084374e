package reporting

import "time"

// GridSize is the number of cells in a month grid: six full weeks.
const GridSize = 42

// CalendarCell is one day of a month grid.
type CalendarCell struct {
	Date           string       `json:"date"`
	Day            int          `json:"day"`
	Weekday        time.Weekday `json:"weekday"`
	InCurrentMonth bool         `json:"in_current_month"`
}

// Grid is a six-week calendar starting on a Sunday.
type Grid [GridSize]CalendarCell

// BuildGrid lays out the month starting from the Sunday on or before its first
// day. It depends on nothing but the calendar.
func BuildGrid(year int, month time.Month) Grid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	var grid Grid
	for i := range grid {
		day := start.AddDate(0, 0, i)
		grid[i] = CalendarCell{
			Date:           day.Format(KeyLayout),
			Day:            day.Day(),
			Weekday:        day.Weekday(),
			InCurrentMonth: day.Year() == year && day.Month() == month,
		}
	}
	return grid
}

// InMonth returns the cells that belong to the grid's month.
func (g Grid) InMonth() []CalendarCell {
	out := make([]CalendarCell, 0, 31)
	for _, c := range g {
		if c.InCurrentMonth {
			out = append(out, c)
		}
	}
	return out
}

// Weeks splits the grid into its six rows.
func (g Grid) Weeks() [6][7]CalendarCell {
	var weeks [6][7]CalendarCell
	for i, c := range g {
		weeks[i/7][i%7] = c
	}
	return weeks
}
