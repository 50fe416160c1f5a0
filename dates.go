package main

import (
	"time"
)

// Calendar dates carry no time-of-day. Everything crossing the API or
// stored in a DATE column goes through normalizeDate first so comparisons
// and range bucketing never depend on the caller's timezone.

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errInvalidInput("invalid date %q, expected YYYY-MM-DD", s)
	}
	return normalizeDate(t), nil
}

// monthRange returns the first and last day of the given month, inclusive.
func monthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

func daysBetween(from, to time.Time) int {
	return int(normalizeDate(to).Sub(normalizeDate(from)).Hours() / 24)
}

func sameScope(a, b *int64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
