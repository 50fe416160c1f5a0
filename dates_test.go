package main

import (
	"testing"
	"time"
)

func TestMonthRange(t *testing.T) {
	tests := []struct {
		year      int
		month     int
		wantFirst string
		wantLast  string
	}{
		{2026, 1, "2026-01-01", "2026-01-31"},
		{2026, 2, "2026-02-01", "2026-02-28"},
		{2024, 2, "2024-02-01", "2024-02-29"},
		{2026, 12, "2026-12-01", "2026-12-31"},
	}

	for _, tt := range tests {
		first, last := monthRange(tt.year, tt.month)
		if got := first.Format("2006-01-02"); got != tt.wantFirst {
			t.Errorf("monthRange(%d, %d) first = %s, want %s", tt.year, tt.month, got, tt.wantFirst)
		}
		if got := last.Format("2006-01-02"); got != tt.wantLast {
			t.Errorf("monthRange(%d, %d) last = %s, want %s", tt.year, tt.month, got, tt.wantLast)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	day := func(s string) time.Time {
		d, err := parseDate(s)
		if err != nil {
			t.Fatalf("parseDate(%q): %v", s, err)
		}
		return d
	}

	tests := []struct {
		from string
		to   string
		want int
	}{
		{"2026-03-01", "2026-03-31", 30},
		{"2026-03-31", "2026-03-01", -30},
		{"2026-03-15", "2026-03-15", 0},
		{"2026-12-31", "2027-01-01", 1},
	}
	for _, tt := range tests {
		if got := daysBetween(day(tt.from), day(tt.to)); got != tt.want {
			t.Errorf("daysBetween(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-a-date", "2026-13-01", "01/02/2026"} {
		if _, err := parseDate(s); err == nil {
			t.Errorf("parseDate(%q) accepted invalid input", s)
		}
	}
}

func TestNormalizeDateStripsTime(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2026, 5, 14, 23, 45, 12, 0, loc)
	got := normalizeDate(in)
	if got.Hour() != 0 || got.Minute() != 0 || got.Location() != time.UTC {
		t.Errorf("normalizeDate(%v) = %v, want UTC midnight", in, got)
	}
}

func TestSameScope(t *testing.T) {
	one, two := int64(1), int64(2)
	alsoOne := int64(1)

	tests := []struct {
		name string
		a    *int64
		b    *int64
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs set", nil, &one, false},
		{"set vs nil", &one, nil, false},
		{"equal ids", &one, &alsoOne, true},
		{"different ids", &one, &two, false},
	}
	for _, tt := range tests {
		if got := sameScope(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: sameScope = %v, want %v", tt.name, got, tt.want)
		}
	}
}
