package core

import "time"

// WorkingDays returns the number of working days in a month, defined as the
// calendar days minus the Sundays. This is the only implementation of the
// rule; both the reconciliation path and the HTTP read path go through it.
func WorkingDays(month, year int) int {
	if month < 1 || month > 12 {
		return 0
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	total := first.AddDate(0, 1, -1).Day()
	days := 0
	for d := 1; d <= total; d++ {
		if time.Date(year, time.Month(month), d, 0, 0, 0, 0, time.UTC).Weekday() != time.Sunday {
			days++
		}
	}
	return days
}

// DailyTarget spreads a monthly amount over the month's working days.
// Returns 0 when the month has no working days (or is out of range).
func DailyTarget(monthly Money, month, year int) float64 {
	wd := WorkingDays(month, year)
	if wd == 0 {
		return 0
	}
	return float64(monthly.Cents) / float64(wd)
}

// DaysInMonth returns the calendar length of a month.
func DaysInMonth(month, year int) int {
	if month < 1 || month > 12 {
		return 0
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

// ValidMonth reports whether m is a calendar month index.
func ValidMonth(m int) bool {
	return m >= 1 && m <= 12
}
