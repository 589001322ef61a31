// Package dates works with day-granularity local dates, passed around as
// "YYYY-MM-DD" strings, and with ISO weeks (Monday-start, 7 days).
package dates

import (
	"fmt"
	"time"
)

const Layout = "2006-01-02"

func Parse(date string) (time.Time, error) {
	t, err := time.Parse(Layout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return t, nil
}

func Format(t time.Time) string {
	return t.Format(Layout)
}

// AddDays returns date shifted by n calendar days.
// An unparseable date yields an empty string, to be skipped by the caller.
func AddDays(date string, n int) string {
	t, err := Parse(date)
	if err != nil {
		return ""
	}
	return Format(t.AddDate(0, 0, n))
}

// WeekStart returns the Monday of the ISO week containing ref.
func WeekStart(ref time.Time) string {
	// time.Weekday has Sunday == 0, shift so that Monday == 0
	offset := (int(ref.Weekday()) + 6) % 7
	return Format(ref.AddDate(0, 0, -offset))
}

// WeekRange returns the [start, end) date interval of the ISO week
// containing ref.
func WeekRange(ref time.Time) (from, to string) {
	from = WeekStart(ref)
	return from, AddDays(from, 7)
}

// DaysBetween returns b - a in calendar days.
func DaysBetween(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// WithinDays reports whether dates a and b are at most tol calendar days
// apart. Unparseable dates never match.
func WithinDays(a, b string, tol int) bool {
	diff, err := DaysBetween(a, b)
	if err != nil {
		return false
	}
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}
