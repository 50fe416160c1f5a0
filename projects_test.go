package main

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestClampProgress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"-5", "0"},
		{"0", "0"},
		{"87.5", "87.5"},
		{"150", "150"},
		{"212", "150"},
	}
	for _, tt := range tests {
		if got := clampProgress(dec(tt.in)); !got.Equal(dec(tt.want)) {
			t.Errorf("clampProgress(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFinancialsFromEntries(t *testing.T) {
	entries := []ledgerEntry{
		{DirectionIn, dec("1500")},
		{DirectionIn, dec("500")},
		{DirectionOut, dec("320.75")},
	}
	fin := financialsFromEntries(42, entries)

	if fin.ProjectID != 42 {
		t.Errorf("ProjectID = %d, want 42", fin.ProjectID)
	}
	if !fin.Revenue.Equal(dec("2000")) {
		t.Errorf("Revenue = %s, want 2000", fin.Revenue)
	}
	if !fin.Costs.Equal(dec("320.75")) {
		t.Errorf("Costs = %s, want 320.75", fin.Costs)
	}
	if !fin.Margin.Equal(dec("1679.25")) {
		t.Errorf("Margin = %s, want 1679.25", fin.Margin)
	}
	if fin.RevenueCount != 2 || fin.CostsCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", fin.RevenueCount, fin.CostsCount)
	}
}

func TestFinancialsFromEntriesEmpty(t *testing.T) {
	fin := financialsFromEntries(1, nil)
	if !fin.Revenue.IsZero() || !fin.Costs.IsZero() || !fin.Margin.IsZero() {
		t.Errorf("empty project should report zeros, got %+v", fin)
	}
}

func TestProgressValueCompletedWins(t *testing.T) {
	p := &Project{ID: 1, Status: ProjectCompleted, ProgressMode: ProgressManual,
		ManualProgress: dec("37")}
	got := progressValue(p, nil, nil, decimal.Zero)
	if !got.Value.Equal(hundred) {
		t.Errorf("completed project progress = %s, want 100", got.Value)
	}
}

func TestProgressValueManual(t *testing.T) {
	p := &Project{ID: 1, Status: ProjectActive, ProgressMode: ProgressManual,
		ManualProgress: dec("200")}
	got := progressValue(p, nil, nil, decimal.Zero)
	if !got.Value.Equal(dec("150")) {
		t.Errorf("manual progress = %s, want clamp at 150", got.Value)
	}
}

func TestProgressValueTasks(t *testing.T) {
	p := &Project{ID: 1, Status: ProjectActive, ProgressMode: ProgressTasks}

	got := progressValue(p, nil, nil, decimal.Zero)
	if !got.Value.IsZero() {
		t.Errorf("no tasks progress = %s, want 0", got.Value)
	}

	tasks := []ProjectTask{
		{ID: 1, Done: true},
		{ID: 2, Done: false},
		{ID: 3, Done: true},
		{ID: 4, Done: false},
	}
	got = progressValue(p, tasks, nil, decimal.Zero)
	if !got.Value.Equal(dec("50")) {
		t.Errorf("2 of 4 tasks progress = %s, want 50", got.Value)
	}
	if got.Details["tasks_done"] != 2 || got.Details["tasks_total"] != 4 {
		t.Errorf("details = %v, want done=2 total=4", got.Details)
	}
}

func TestProgressValueMilestonesUnweighted(t *testing.T) {
	p := &Project{ID: 1, Status: ProjectActive, ProgressMode: ProgressMilestones}
	milestones := []ProjectMilestone{
		{ID: 1, Status: MilestoneCompleted},
		{ID: 2, Status: MilestoneInProgress},
	}
	got := progressValue(p, nil, milestones, decimal.Zero)
	if !got.Value.Equal(dec("50")) {
		t.Errorf("1 of 2 milestones = %s, want 50", got.Value)
	}
	if got.Details["weighted"] != false {
		t.Errorf("details weighted = %v, want false", got.Details["weighted"])
	}
}

func TestProgressValueMilestonesWeighted(t *testing.T) {
	w30, w70 := 30, 70
	p := &Project{ID: 1, Status: ProjectActive, ProgressMode: ProgressMilestones}
	milestones := []ProjectMilestone{
		{ID: 1, Weight: &w30, Status: MilestoneCompleted},
		{ID: 2, Weight: &w70, Status: MilestoneNotStarted},
	}
	got := progressValue(p, nil, milestones, decimal.Zero)
	if !got.Value.Equal(dec("30")) {
		t.Errorf("weighted milestones = %s, want 30", got.Value)
	}
	if got.Details["weighted"] != true {
		t.Errorf("details weighted = %v, want true", got.Details["weighted"])
	}
}

func TestProgressValueMilestonesMixedWeights(t *testing.T) {
	// One explicit weight switches the whole computation to weighted mode;
	// unweighted siblings count as zero.
	w50 := 50
	p := &Project{ID: 1, Status: ProjectActive, ProgressMode: ProgressMilestones}
	milestones := []ProjectMilestone{
		{ID: 1, Weight: &w50, Status: MilestoneCompleted},
		{ID: 2, Status: MilestoneCompleted},
	}
	got := progressValue(p, nil, milestones, decimal.Zero)
	if !got.Value.Equal(dec("100")) {
		t.Errorf("mixed weights = %s, want 100", got.Value)
	}
}

func TestProgressValueFinancial(t *testing.T) {
	p := &Project{ID: 1, Status: ProjectActive, ProgressMode: ProgressFinancial,
		BudgetAmount: dec("2000")}

	got := progressValue(p, nil, nil, dec("500"))
	if !got.Value.Equal(dec("25")) {
		t.Errorf("financial progress = %s, want 25", got.Value)
	}

	// Over-delivery stays visible up to the 150 cap.
	got = progressValue(p, nil, nil, dec("4000"))
	if !got.Value.Equal(dec("150")) {
		t.Errorf("over-delivered progress = %s, want 150", got.Value)
	}

	zero := &Project{ID: 2, Status: ProjectActive, ProgressMode: ProgressFinancial}
	got = progressValue(zero, nil, nil, dec("500"))
	if !got.Value.IsZero() {
		t.Errorf("no budget amount progress = %s, want 0", got.Value)
	}
}
