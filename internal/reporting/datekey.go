// Package reporting aggregates sales and appointment records into the filtered,
// time-bucketed views rendered by the dashboard, sales and appointments pages.
//
// Everything in this package is pure: functions receive their full input and
// return fresh values, so they are safe to call on every filter change and from
// multiple goroutines.
package reporting

import (
	"fmt"
	"strings"
	"time"
)

// KeyLayout is the canonical calendar date key layout.
const KeyLayout = "2006-01-02"

const keyLen = len(KeyLayout)

// NormalizeDate converts a date or timestamp string into its canonical
// "YYYY-MM-DD" key. Timestamps are truncated to their date portion instead of
// being converted through a time zone, so "2024-05-20T00:00:00.000Z" stays
// "2024-05-20" on every machine. Unparseable input yields "".
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < keyLen {
		return ""
	}
	if len(s) > keyLen {
		switch s[keyLen] {
		case 'T', 't', ' ':
		default:
			return ""
		}
	}
	head := s[:keyLen]
	if _, err := time.Parse(KeyLayout, head); err != nil {
		return ""
	}
	return head
}

// DateKey keys a time value by its own calendar fields. The zero time has no key.
func DateKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(KeyLayout)
}

// Today returns the key of now in the caller's calendar. A nil location means
// time.Local.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(KeyLayout)
}

// ParseKey parses a canonical key into a UTC midnight suitable for date arithmetic.
func ParseKey(key string) (time.Time, bool) {
	if NormalizeDate(key) != key || key == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(KeyLayout, key)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MonthKey returns the "YYYY-MM" prefix shared by every key in the month.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// FirstOfMonth returns the key of the first day of the month.
func FirstOfMonth(year int, month time.Month) string {
	return MonthKey(year, month) + "-01"
}

// LastOfMonth returns the key of the last day of the month.
func LastOfMonth(year int, month time.Month) string {
	return fmt.Sprintf("%s-%02d", MonthKey(year, month), DaysIn(year, month))
}

// DaysIn reports the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
}

// NormalizeClock converts an upstream time of day ("10:00 AM", "15:04:05") to
// "HH:mm" so that lexicographic order matches chronological order. Unparseable
// input yields "".
func NormalizeClock(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}

// splitKey returns the numeric parts of a canonical key. ok is false for "".
func splitKey(key string) (year int, month time.Month, day int, ok bool) {
	t, ok := ParseKey(key)
	if !ok {
		return 0, 0, 0, false
	}
	return t.Year(), t.Month(), t.Day(), true
}
