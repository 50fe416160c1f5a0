package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBudgetInputValidate(t *testing.T) {
	year, month := 2026, 8
	badMonth := 13
	start, _ := parseDate("2026-08-01")
	end, _ := parseDate("2026-08-31")

	tests := []struct {
		name    string
		in      BudgetInput
		wantErr bool
	}{
		{"monthly form", BudgetInput{Name: "m", Year: &year, Month: &month}, false},
		{"custom form", BudgetInput{Name: "c", StartDate: &start, EndDate: &end}, false},
		{"neither form", BudgetInput{Name: "x"}, true},
		{
			"both forms",
			BudgetInput{Name: "x", Year: &year, Month: &month, StartDate: &start, EndDate: &end},
			true,
		},
		{"month out of range", BudgetInput{Name: "x", Year: &year, Month: &badMonth}, true},
		{"inverted range", BudgetInput{Name: "x", StartDate: &end, EndDate: &start}, true},
		{
			"negative limit",
			BudgetInput{Name: "x", Year: &year, Month: &month,
				Limit: decimal.NullDecimal{Decimal: dec("-1"), Valid: true}},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBudgetPeriod(t *testing.T) {
	year, month := 2026, 2
	monthly := &Budget{Year: &year, Month: &month}
	start, end := budgetPeriod(monthly)
	if start.Format("2006-01-02") != "2026-02-01" || end.Format("2006-01-02") != "2026-02-28" {
		t.Errorf("monthly period = %v..%v", start, end)
	}

	from, _ := parseDate("2026-03-10")
	to, _ := parseDate("2026-04-09")
	custom := &Budget{StartDate: &from, EndDate: &to}
	start, end = budgetPeriod(custom)
	if !start.Equal(from) || !end.Equal(to) {
		t.Errorf("custom period = %v..%v, want %v..%v", start, end, from, to)
	}
}

func TestCategorySpend(t *testing.T) {
	entries := []categoryEntry{
		{CategoryID: 1, Direction: DirectionOut, Amount: dec("80")},
		{CategoryID: 1, Direction: DirectionOut, Amount: dec("40")},
		{CategoryID: 1, Direction: DirectionIn, Amount: dec("25")}, // refund
		{CategoryID: 2, Direction: DirectionOut, Amount: dec("999")},
	}

	if got := categorySpend(entries, 1); !got.Equal(dec("95")) {
		t.Errorf("categorySpend(cat 1) = %s, want 95", got)
	}
	if got := categorySpend(entries, 2); !got.Equal(dec("999")) {
		t.Errorf("categorySpend(cat 2) = %s, want 999", got)
	}
	if got := categorySpend(entries, 3); !got.IsZero() {
		t.Errorf("categorySpend(cat 3) = %s, want 0", got)
	}
}

func TestExecutionFromEntries(t *testing.T) {
	lines := []BudgetLine{
		{ID: 10, BudgetID: 7, CategoryID: 1,
			Limit: decimal.NullDecimal{Decimal: dec("300"), Valid: true}},
		{ID: 11, BudgetID: 7, CategoryID: 2,
			Limit: decimal.NullDecimal{Decimal: dec("120"), Valid: true}},
		{ID: 12, BudgetID: 7, CategoryID: 3}, // no limit set
	}
	entries := []categoryEntry{
		{CategoryID: 1, Direction: DirectionOut, Amount: dec("280.50")},
		{CategoryID: 2, Direction: DirectionOut, Amount: dec("150")},
		{CategoryID: 3, Direction: DirectionOut, Amount: dec("42")},
		{CategoryID: 0, Direction: DirectionOut, Amount: dec("35")}, // uncategorized
	}

	exec := executionFromEntries(7, lines, entries)

	if exec.BudgetID != 7 {
		t.Fatalf("BudgetID = %d, want 7", exec.BudgetID)
	}
	if len(exec.Lines) != 3 {
		t.Fatalf("len(Lines) = %d, want 3", len(exec.Lines))
	}

	// Variance is actual minus planned: negative means under budget.
	if got := exec.Lines[0].Variance; !got.Equal(dec("-19.5")) {
		t.Errorf("line 1 variance = %s, want -19.5", got)
	}
	if got := exec.Lines[1].Variance; !got.Equal(dec("30")) {
		t.Errorf("line 2 variance = %s, want 30", got)
	}
	if got := exec.Lines[2].Planned; !got.IsZero() {
		t.Errorf("line 3 planned = %s, want 0", got)
	}

	if !exec.TotalPlanned.Equal(dec("420")) {
		t.Errorf("TotalPlanned = %s, want 420", exec.TotalPlanned)
	}
	if !exec.TotalActual.Equal(dec("472.5")) {
		t.Errorf("TotalActual = %s, want 472.5", exec.TotalActual)
	}
	if !exec.TotalVariance.Equal(exec.TotalActual.Sub(exec.TotalPlanned)) {
		t.Errorf("TotalVariance = %s, want actual-planned", exec.TotalVariance)
	}

	// Line totals only cover the lines, overall spend covers everything,
	// including the uncategorized entry.
	if !exec.OverallActual.Equal(dec("507.5")) {
		t.Errorf("OverallActual = %s, want 507.5", exec.OverallActual)
	}
}

func TestExecutionFromEntriesEmptyBudget(t *testing.T) {
	exec := executionFromEntries(5, nil, []categoryEntry{
		{CategoryID: 1, Direction: DirectionOut, Amount: dec("10")},
		{CategoryID: 1, Direction: DirectionIn, Amount: dec("4")},
	})
	if len(exec.Lines) != 0 || !exec.TotalActual.IsZero() {
		t.Errorf("budget without lines should report nothing per line, got %+v", exec)
	}
	if !exec.OverallActual.Equal(dec("6")) {
		t.Errorf("OverallActual = %s, want 6", exec.OverallActual)
	}
}

func TestBudgetLineLimitValidation(t *testing.T) {
	negative := &BudgetLineInput{
		CategoryID: 1,
		Limit:      decimal.NullDecimal{Decimal: dec("-50"), Valid: true},
	}

	// Both paths validate before ever touching the store.
	if _, err := addBudgetLine(context.Background(), nil, 1, 1, negative); kindOf(err) != kindInvalidInput {
		t.Errorf("addBudgetLine error = %v, want invalid input", err)
	}
	if _, err := updateBudgetLine(context.Background(), nil, 1, 1, negative); kindOf(err) != kindInvalidInput {
		t.Errorf("updateBudgetLine error = %v, want invalid input", err)
	}
}
