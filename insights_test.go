package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type staticRule struct {
	name     string
	findings []Insight
	err      error
	panics   bool
}

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, *insightContext) ([]Insight, error) {
	if r.panics {
		panic("boom")
	}
	return r.findings, r.err
}

func TestEvaluateRulesIsolatesFailures(t *testing.T) {
	rules := []insightRule{
		staticRule{name: "first", findings: []Insight{{Category: "a"}}},
		staticRule{name: "failing", err: errors.New("store unavailable")},
		staticRule{name: "panicking", panics: true},
		staticRule{name: "last", findings: []Insight{{Category: "b"}}},
	}
	out := evaluateRules(context.Background(), &insightContext{}, rules)
	if len(out) != 2 {
		t.Fatalf("got %d findings, want 2", len(out))
	}
	if out[0].Category != "a" || out[1].Category != "b" {
		t.Errorf("findings out of order: %+v", out)
	}
}

func line(categoryID int64, planned, actual string) BudgetLineExecution {
	return BudgetLineExecution{
		Line:    BudgetLine{CategoryID: categoryID},
		Planned: dec(planned),
		Actual:  dec(actual),
	}
}

func TestBudgetOverrunFindings(t *testing.T) {
	exec := &BudgetExecution{
		BudgetID: 9,
		Lines: []BudgetLineExecution{
			line(1, "300", "290"),  // under plan
			line(2, "300", "320"),  // within 10% tolerance
			line(3, "300", "340"),  // >10% over: warning
			line(4, "300", "400"),  // >25% over: critical
			line(5, "0", "150"),    // no plan, never flagged
		},
	}

	findings := budgetOverrunFindings(exec)
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(findings))
	}
	if findings[0].Severity != SeverityWarning {
		t.Errorf("first finding severity = %s, want warning", findings[0].Severity)
	}
	if findings[1].Severity != SeverityCritical {
		t.Errorf("second finding severity = %s, want critical", findings[1].Severity)
	}
	if findings[0].Data["category_id"] != int64(3) {
		t.Errorf("first finding category = %v, want 3", findings[0].Data["category_id"])
	}
}

func TestBudgetOverrunFindingsWholeBudgetLimit(t *testing.T) {
	withLimit := func(limit string, overall string) *BudgetExecution {
		return &BudgetExecution{
			BudgetID:      9,
			Limit:         decimal.NullDecimal{Decimal: dec(limit), Valid: true},
			OverallActual: dec(overall),
		}
	}

	tests := []struct {
		name string
		exec *BudgetExecution
		want int
		sev  Severity
	}{
		{"within tolerance", withLimit("1000", "1050"), 0, ""},
		{"past ten percent", withLimit("1000", "1150"), 1, SeverityWarning},
		{"past twenty five percent", withLimit("1000", "1300"), 1, SeverityCritical},
		{"no limit set", &BudgetExecution{BudgetID: 9, OverallActual: dec("9999")}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := budgetOverrunFindings(tt.exec)
			if len(findings) != tt.want {
				t.Fatalf("got %d findings, want %d", len(findings), tt.want)
			}
			if tt.want == 1 && findings[0].Severity != tt.sev {
				t.Errorf("severity = %s, want %s", findings[0].Severity, tt.sev)
			}
		})
	}
}

func goalAt(name string, current, target string, targetDate *time.Time, created time.Time) SavingsGoal {
	return SavingsGoal{
		Name:          name,
		TargetAmount:  dec(target),
		CurrentAmount: dec(current),
		TargetDate:    targetDate,
		Status:        GoalActive,
		CreatedAt:     created,
	}
}

func TestSavingsFindings(t *testing.T) {
	ref, _ := parseDate("2026-08-31")
	in20 := ref.AddDate(0, 0, 20)
	in50 := ref.AddDate(0, 0, 50)
	in200 := ref.AddDate(0, 0, 200)
	createdLongAgo := ref.AddDate(0, -10, 0)

	t.Run("fully funded goal", func(t *testing.T) {
		goals := []SavingsGoal{goalAt("vacances", "1200", "1000", nil, createdLongAgo)}
		findings := savingsFindings(goals, ref)
		if len(findings) != 1 || findings[0].Severity != SeverityInfo {
			t.Fatalf("findings = %+v, want one info", findings)
		}
	})

	t.Run("due soon at low progress", func(t *testing.T) {
		goals := []SavingsGoal{goalAt("urgence", "50", "1000", &in20, createdLongAgo)}
		findings := savingsFindings(goals, ref)
		if len(findings) != 1 || findings[0].Severity != SeverityWarning {
			t.Fatalf("findings = %+v, want one warning", findings)
		}
	})

	t.Run("sixty day horizon at under half", func(t *testing.T) {
		goals := []SavingsGoal{goalAt("voiture", "300", "1000", &in50, createdLongAgo)}
		findings := savingsFindings(goals, ref)
		if len(findings) != 1 || findings[0].Severity != SeverityWarning {
			t.Fatalf("findings = %+v, want one warning", findings)
		}
	})

	t.Run("trailing the straight line", func(t *testing.T) {
		// 10 months elapsed of a ~16.5-month runway puts the theoretical
		// line around 60%; 20% actual trails by more than 20 points.
		goals := []SavingsGoal{goalAt("maison", "200", "1000", &in200, createdLongAgo)}
		findings := savingsFindings(goals, ref)
		if len(findings) != 1 || findings[0].Severity != SeverityWarning {
			t.Fatalf("findings = %+v, want one warning", findings)
		}
	})

	t.Run("on schedule stays quiet", func(t *testing.T) {
		goals := []SavingsGoal{goalAt("ok", "650", "1000", &in200, createdLongAgo)}
		if findings := savingsFindings(goals, ref); len(findings) != 0 {
			t.Fatalf("findings = %+v, want none", findings)
		}
	})

	t.Run("terminal statuses are skipped", func(t *testing.T) {
		done := goalAt("done", "0", "1000", &in20, createdLongAgo)
		done.Status = GoalCompleted
		cancelled := goalAt("cancelled", "0", "1000", &in20, createdLongAgo)
		cancelled.Status = GoalCancelled
		if findings := savingsFindings([]SavingsGoal{done, cancelled}, ref); len(findings) != 0 {
			t.Fatalf("findings = %+v, want none", findings)
		}
	})
}

func TestLifestyleFindings(t *testing.T) {
	ref, _ := parseDate("2026-08-20")
	thisMonth, _ := parseDate("2026-08-10")
	lastMonth, _ := parseDate("2026-07-10")
	twoBack, _ := parseDate("2026-06-10")
	threeBack, _ := parseDate("2026-05-10")

	trailing := []datedAmount{
		{lastMonth, dec("100")},
		{twoBack, dec("100")},
		{threeBack, dec("100")},
	}

	t.Run("no trailing history", func(t *testing.T) {
		entries := []datedAmount{{thisMonth, dec("500")}}
		if findings := lifestyleFindings(entries, ref); len(findings) != 0 {
			t.Fatalf("findings = %+v, want none", findings)
		}
	})

	t.Run("mild increase stays quiet", func(t *testing.T) {
		entries := append([]datedAmount{{thisMonth, dec("110")}}, trailing...)
		if findings := lifestyleFindings(entries, ref); len(findings) != 0 {
			t.Fatalf("findings = %+v, want none", findings)
		}
	})

	t.Run("warning band", func(t *testing.T) {
		entries := append([]datedAmount{{thisMonth, dec("130")}}, trailing...)
		findings := lifestyleFindings(entries, ref)
		if len(findings) != 1 || findings[0].Severity != SeverityWarning {
			t.Fatalf("findings = %+v, want one warning", findings)
		}
	})

	t.Run("critical band", func(t *testing.T) {
		entries := append([]datedAmount{{thisMonth, dec("200")}}, trailing...)
		findings := lifestyleFindings(entries, ref)
		if len(findings) != 1 || findings[0].Severity != SeverityCritical {
			t.Fatalf("findings = %+v, want one critical", findings)
		}
	})

	t.Run("fourth month back does not dilute the average", func(t *testing.T) {
		// 130 against a 100 average is a 30% increase; an older entry must
		// not drag the trailing average up and mask it.
		fourBack, _ := parseDate("2026-04-10")
		entries := append([]datedAmount{{thisMonth, dec("130")}, {fourBack, dec("100")}}, trailing...)
		findings := lifestyleFindings(entries, ref)
		if len(findings) != 1 || findings[0].Severity != SeverityWarning {
			t.Fatalf("findings = %+v, want one warning", findings)
		}
	})
}

func TestIsLifestyleCategory(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Restaurant", true},
		{"Resto du coin", true},
		{"Loisirs", true},
		{"Sorties", true},
		{"Groceries", false},
		{"Rent", false},
	}
	for _, tt := range tests {
		if got := isLifestyleCategory(tt.name); got != tt.want {
			t.Errorf("isLifestyleCategory(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSubscriptionKey(t *testing.T) {
	if got := subscriptionKey("  NETFLIX.COM Abonnement  "); got != "netflix.com abonnement" {
		t.Errorf("subscriptionKey = %q", got)
	}
	long := "A very long merchant label that keeps going and going and going"
	if got := subscriptionKey(long); len(got) != 40 {
		t.Errorf("long key length = %d, want 40", len(got))
	}
	accented := strings.Repeat("é", 45)
	got := subscriptionKey(accented)
	if !utf8.ValidString(got) {
		t.Fatalf("accented key %q is not valid UTF-8", got)
	}
	if got != strings.Repeat("é", 40) {
		t.Errorf("accented key = %q, want 40 runes of é", got)
	}
}

func TestSubscriptionFindings(t *testing.T) {
	sub := func(label, amount string) labeledAmount {
		return labeledAmount{Label: label, Amount: dec(amount)}
	}

	t.Run("recurring charge in band", func(t *testing.T) {
		entries := []labeledAmount{
			sub("Netflix", "12.99"), sub("netflix", "12.99"), sub("NETFLIX", "12.99"),
			sub("Groceries", "80"),
		}
		findings := subscriptionFindings(entries)
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1", len(findings))
		}
		if findings[0].Data["occurrences"] != 3 {
			t.Errorf("occurrences = %v, want 3", findings[0].Data["occurrences"])
		}
	})

	t.Run("too few occurrences", func(t *testing.T) {
		entries := []labeledAmount{sub("Spotify", "9.99"), sub("Spotify", "9.99")}
		if findings := subscriptionFindings(entries); len(findings) != 0 {
			t.Fatalf("findings = %+v, want none", findings)
		}
	})

	t.Run("average outside band", func(t *testing.T) {
		cheap := []labeledAmount{sub("Tip", "0.50"), sub("Tip", "0.50"), sub("Tip", "0.50")}
		pricey := []labeledAmount{sub("Rent", "950"), sub("Rent", "950"), sub("Rent", "950")}
		if findings := subscriptionFindings(append(cheap, pricey...)); len(findings) != 0 {
			t.Fatalf("findings = %+v, want none", findings)
		}
	})
}

func TestLateInvoiceFinding(t *testing.T) {
	if got := lateInvoiceFinding(0, decimal.Zero); got != nil {
		t.Errorf("no late invoices should yield nil, got %+v", got)
	}

	got := lateInvoiceFinding(2, dec("800"))
	if got == nil || got.Severity != SeverityWarning {
		t.Errorf("small backlog = %+v, want warning", got)
	}

	got = lateInvoiceFinding(4, dec("800"))
	if got == nil || got.Severity != SeverityCritical {
		t.Errorf("many late invoices = %+v, want critical", got)
	}

	got = lateInvoiceFinding(1, dec("2500"))
	if got == nil || got.Severity != SeverityCritical {
		t.Errorf("large outstanding = %+v, want critical", got)
	}
}

func TestLowMarginFinding(t *testing.T) {
	fin := func(revenue, costs string) *ProjectFinancials {
		r, c := dec(revenue), dec(costs)
		return &ProjectFinancials{Revenue: r, Costs: c, Margin: r.Sub(c)}
	}

	if got := lowMarginFinding("idle", 1, fin("0", "500")); got != nil {
		t.Errorf("unbilled project should yield nil, got %+v", got)
	}
	if got := lowMarginFinding("healthy", 2, fin("1000", "700")); got != nil {
		t.Errorf("30%% margin should yield nil, got %+v", got)
	}
	got := lowMarginFinding("thin", 3, fin("1000", "900"))
	if got == nil || got.Severity != SeverityWarning {
		t.Errorf("10%% margin = %+v, want warning", got)
	}
	got = lowMarginFinding("lossy", 4, fin("1000", "1200"))
	if got == nil || got.Severity != SeverityWarning {
		t.Errorf("negative margin = %+v, want warning", got)
	}
}

func TestRevenueTargetFinding(t *testing.T) {
	goal := dec("5000")

	if got := revenueTargetFinding(goal, dec("5200")); got != nil {
		t.Errorf("goal met should yield nil, got %+v", got)
	}
	got := revenueTargetFinding(goal, dec("4500"))
	if got == nil || got.Severity != SeverityInfo {
		t.Errorf("small shortfall = %+v, want info", got)
	}
	got = revenueTargetFinding(goal, dec("3000"))
	if got == nil || got.Severity != SeverityWarning {
		t.Errorf("large shortfall = %+v, want warning", got)
	}
}
