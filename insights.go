package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// insightContext is everything a rule may look at: the store, the caller
// and an explicit reference date. Rules never read the system clock so the
// whole engine stays deterministic under test, and they hold the store as a
// reader so none of them can write to it.
type insightContext struct {
	q          reader
	userID     int64
	businessID *int64
	ref        time.Time
}

// insightRule is one independent detector. Rules are pure with respect to
// their inputs and read-only against the store.
type insightRule interface {
	Name() string
	Evaluate(ctx context.Context, ec *insightContext) ([]Insight, error)
}

// evaluateRules fans the rules out concurrently and joins the findings.
// A rule that fails or panics contributes nothing; its siblings still run.
func evaluateRules(ctx context.Context, ec *insightContext, rules []insightRule) []Insight {
	results := make([][]Insight, len(rules))
	var wg sync.WaitGroup
	for i, rule := range rules {
		wg.Add(1)
		go func(i int, r insightRule) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					logger.Warn().Str("rule", r.Name()).Interface("panic", rec).
						Msg("insight rule panicked")
				}
			}()
			findings, err := r.Evaluate(ctx, ec)
			if err != nil {
				logger.Warn().Err(err).Str("rule", r.Name()).Msg("insight rule failed")
				return
			}
			results[i] = findings
		}(i, rule)
	}
	wg.Wait()

	out := make([]Insight, 0)
	for _, findings := range results {
		out = append(out, findings...)
	}
	return out
}

func personalRules() []insightRule {
	return []insightRule{
		budgetOverrunRule{},
		savingsScheduleRule{},
		lifestyleSpendRule{},
		subscriptionReviewRule{},
	}
}

func businessRules() []insightRule {
	return []insightRule{
		lateInvoicesRule{},
		lowMarginProjectsRule{},
		revenueTargetRule{},
	}
}

func evaluatePersonalInsights(ctx context.Context, userID int64, ref time.Time) []Insight {
	key := insightsCacheKey(userID, nil)
	var cached []Insight
	if cacheGet(ctx, key, &cached) {
		return cached
	}
	ec := &insightContext{q: db, userID: userID, ref: normalizeDate(ref)}
	insights := evaluateRules(ctx, ec, personalRules())
	cacheSet(ctx, key, insights, 5*time.Minute)
	return insights
}

func evaluateBusinessInsights(ctx context.Context, userID, businessID int64, ref time.Time) ([]Insight, error) {
	if _, err := fetchOwnedBusiness(ctx, db, businessID, userID); err != nil {
		return nil, err
	}
	key := insightsCacheKey(userID, &businessID)
	var cached []Insight
	if cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	ec := &insightContext{q: db, userID: userID, businessID: &businessID, ref: normalizeDate(ref)}
	insights := evaluateRules(ctx, ec, businessRules())
	cacheSet(ctx, key, insights, 5*time.Minute)
	return insights, nil
}

// ---- budget overrun ----

type budgetOverrunRule struct{}

func (budgetOverrunRule) Name() string { return "budget_overrun" }

func (budgetOverrunRule) Evaluate(ctx context.Context, ec *insightContext) ([]Insight, error) {
	budget, err := resolveCurrentPersonalBudget(ctx, ec.q, ec.userID, ec.ref)
	if err != nil || budget == nil {
		return nil, err
	}
	exec, err := computeExecution(ctx, ec.q, ec.userID, budget.ID)
	if err != nil {
		return nil, err
	}
	return budgetOverrunFindings(exec), nil
}

var (
	overrunWarnFactor     = decimal.NewFromFloat(1.10)
	overrunCriticalFactor = decimal.NewFromFloat(1.25)
)

func budgetOverrunFindings(exec *BudgetExecution) []Insight {
	findings := make([]Insight, 0)
	for _, line := range exec.Lines {
		if !line.Planned.IsPositive() {
			continue
		}
		severity := Severity("")
		switch {
		case line.Actual.GreaterThan(line.Planned.Mul(overrunCriticalFactor)):
			severity = SeverityCritical
		case line.Actual.GreaterThan(line.Planned.Mul(overrunWarnFactor)):
			severity = SeverityWarning
		default:
			continue
		}
		findings = append(findings, Insight{
			Category: "budget_overrun",
			Severity: severity,
			Message: fmt.Sprintf("spending of %s exceeds the planned %s",
				line.Actual, line.Planned),
			Data: map[string]any{
				"budget_id":   exec.BudgetID,
				"category_id": line.Line.CategoryID,
				"planned":     line.Planned,
				"actual":      line.Actual,
			},
		})
	}

	// The whole-budget limit is checked against overall spend with the same
	// factors, independent of how the lines are doing.
	if exec.Limit.Valid && exec.Limit.Decimal.IsPositive() {
		limit := exec.Limit.Decimal
		severity := Severity("")
		switch {
		case exec.OverallActual.GreaterThan(limit.Mul(overrunCriticalFactor)):
			severity = SeverityCritical
		case exec.OverallActual.GreaterThan(limit.Mul(overrunWarnFactor)):
			severity = SeverityWarning
		}
		if severity != "" {
			findings = append(findings, Insight{
				Category: "budget_overrun",
				Severity: severity,
				Message: fmt.Sprintf("overall spending of %s exceeds the budget limit of %s",
					exec.OverallActual, limit),
				Data: map[string]any{
					"budget_id": exec.BudgetID,
					"limit":     limit,
					"actual":    exec.OverallActual,
				},
			})
		}
	}
	return findings
}

// ---- savings behind schedule ----

type savingsScheduleRule struct{}

func (savingsScheduleRule) Name() string { return "savings_schedule" }

func (savingsScheduleRule) Evaluate(ctx context.Context, ec *insightContext) ([]Insight, error) {
	goals, err := listSavingsGoals(ctx, ec.q, ec.userID, scopeFilter{set: true})
	if err != nil {
		return nil, err
	}
	return savingsFindings(goals, ec.ref), nil
}

func savingsFindings(goals []SavingsGoal, ref time.Time) []Insight {
	findings := make([]Insight, 0)
	for _, g := range goals {
		if g.Status == GoalCancelled || g.Status == GoalCompleted {
			continue
		}
		if !g.TargetAmount.IsPositive() {
			continue
		}
		progress := g.CurrentAmount.Mul(hundred).Div(g.TargetAmount)

		if progress.GreaterThanOrEqual(hundred) {
			findings = append(findings, Insight{
				Category: "savings_goal",
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("goal %q is fully funded but not marked completed", g.Name),
				Data:     map[string]any{"goal_id": g.ID, "progress": progress},
			})
			continue
		}
		if g.TargetDate == nil {
			continue
		}

		daysLeft := daysBetween(ref, *g.TargetDate)
		switch {
		case daysLeft >= 0 && daysLeft <= 30 && progress.LessThan(decimal.NewFromInt(10)):
			findings = append(findings, savingsWarning(g, progress,
				fmt.Sprintf("goal %q is due within 30 days at under 10%% progress", g.Name)))
		case daysLeft >= 0 && daysLeft <= 60 && progress.LessThan(decimal.NewFromInt(50)):
			findings = append(findings, savingsWarning(g, progress,
				fmt.Sprintf("goal %q is due within 60 days at under 50%% progress", g.Name)))
		default:
			// Compare against the straight line from creation to target.
			totalDays := daysBetween(g.CreatedAt, *g.TargetDate)
			if totalDays <= 0 {
				continue
			}
			elapsed := daysBetween(g.CreatedAt, ref)
			if elapsed < 0 {
				continue
			}
			theoretical := decimal.NewFromInt(int64(elapsed)).Mul(hundred).
				Div(decimal.NewFromInt(int64(totalDays)))
			if theoretical.Sub(progress).GreaterThan(decimal.NewFromInt(20)) {
				findings = append(findings, savingsWarning(g, progress,
					fmt.Sprintf("goal %q is trailing its schedule by more than 20 points", g.Name)))
			}
		}
	}
	return findings
}

func savingsWarning(g SavingsGoal, progress decimal.Decimal, msg string) Insight {
	return Insight{
		Category: "savings_goal",
		Severity: SeverityWarning,
		Message:  msg,
		Data:     map[string]any{"goal_id": g.ID, "progress": progress},
	}
}

// ---- lifestyle spend increase ----

type lifestyleSpendRule struct{}

func (lifestyleSpendRule) Name() string { return "lifestyle_spend" }

var lifestyleKeywords = []string{"loisir", "resto", "restaurant", "sortie"}

func isLifestyleCategory(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range lifestyleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// datedAmount is a ledger row reduced to trend bucketing.
type datedAmount struct {
	Date   time.Time
	Amount decimal.Decimal
}

func (lifestyleSpendRule) Evaluate(ctx context.Context, ec *insightContext) ([]Insight, error) {
	refMonthStart, _ := monthRange(ec.ref.Year(), int(ec.ref.Month()))
	since := refMonthStart.AddDate(0, -3, 0)
	rows, err := ec.q.QueryContext(ctx, `
		SELECT t.date, t.amount, c.name
		FROM transactions t JOIN categories c ON t.category_id = c.id
		WHERE t.user_id = $1 AND t.direction = 'out' AND t.business_id IS NULL
		  AND t.date >= $2 AND t.date <= $3`,
		ec.userID, since, ec.ref)
	if err != nil {
		return nil, fmt.Errorf("failed to query lifestyle spend: %w", err)
	}
	defer rows.Close()

	var entries []datedAmount
	for rows.Next() {
		var e datedAmount
		var categoryName string
		if err := rows.Scan(&e.Date, &e.Amount, &categoryName); err != nil {
			return nil, fmt.Errorf("failed to scan lifestyle entry: %w", err)
		}
		if isLifestyleCategory(categoryName) {
			entries = append(entries, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lifestyleFindings(entries, ec.ref), nil
}

var (
	increaseWarnPct     = decimal.NewFromInt(20)
	increaseCriticalPct = decimal.NewFromInt(50)
)

// lifestyleFindings compares the reference month's lifestyle spend against
// the average of the three calendar months before it. Entries outside those
// four months are ignored rather than diluting the average.
func lifestyleFindings(entries []datedAmount, ref time.Time) []Insight {
	refMonthStart, _ := monthRange(ref.Year(), int(ref.Month()))
	trailingStart := refMonthStart.AddDate(0, -3, 0)
	thisMonth := decimal.Zero
	trailing := decimal.Zero
	for _, e := range entries {
		d := normalizeDate(e.Date)
		switch {
		case !d.Before(refMonthStart):
			thisMonth = thisMonth.Add(e.Amount)
		case !d.Before(trailingStart):
			trailing = trailing.Add(e.Amount)
		}
	}
	if !trailing.IsPositive() {
		return nil
	}
	average := trailing.Div(decimal.NewFromInt(3))
	if !thisMonth.GreaterThan(average) {
		return nil
	}
	increase := thisMonth.Sub(average).Mul(hundred).Div(average)
	if increase.LessThanOrEqual(increaseWarnPct) {
		return nil
	}
	severity := SeverityWarning
	if increase.GreaterThan(increaseCriticalPct) {
		severity = SeverityCritical
	}
	return []Insight{{
		Category: "lifestyle_spend",
		Severity: severity,
		Message: fmt.Sprintf("lifestyle spending is up %s%% on the trailing three-month average",
			increase.Round(0)),
		Data: map[string]any{
			"this_month":   thisMonth,
			"trailing_avg": average.Round(2),
			"increase_pct": increase.Round(1),
			"keywords":     lifestyleKeywords,
		},
	}}
}

// ---- subscription review ----

type subscriptionReviewRule struct{}

func (subscriptionReviewRule) Name() string { return "subscription_review" }

type labeledAmount struct {
	Label  string
	Amount decimal.Decimal
}

func (subscriptionReviewRule) Evaluate(ctx context.Context, ec *insightContext) ([]Insight, error) {
	since := normalizeDate(ec.ref).AddDate(0, -4, 0)
	rows, err := ec.q.QueryContext(ctx, `
		SELECT label, amount FROM transactions
		WHERE user_id = $1 AND direction = 'out' AND business_id IS NULL
		  AND date >= $2 AND date <= $3`,
		ec.userID, since, ec.ref)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription candidates: %w", err)
	}
	defer rows.Close()

	var entries []labeledAmount
	for rows.Next() {
		var e labeledAmount
		if err := rows.Scan(&e.Label, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan subscription entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subscriptionFindings(entries), nil
}

// subscriptionKey folds a label down to its case-insensitive 40-char
// prefix, which is how recurring charges from the same merchant group.
func subscriptionKey(label string) string {
	key := strings.ToLower(strings.TrimSpace(label))
	if runes := []rune(key); len(runes) > 40 {
		key = string(runes[:40])
	}
	return key
}

var (
	subscriptionMin = decimal.NewFromInt(1)
	subscriptionMax = decimal.NewFromInt(50)
)

func subscriptionFindings(entries []labeledAmount) []Insight {
	type group struct {
		count int
		total decimal.Decimal
	}
	groups := map[string]*group{}
	order := []string{}
	for _, e := range entries {
		key := subscriptionKey(e.Label)
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{total: decimal.Zero}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
		g.total = g.total.Add(e.Amount)
	}

	findings := make([]Insight, 0)
	for _, key := range order {
		g := groups[key]
		if g.count < 3 {
			continue
		}
		avg := g.total.Div(decimal.NewFromInt(int64(g.count)))
		if avg.LessThanOrEqual(subscriptionMin) || avg.GreaterThanOrEqual(subscriptionMax) {
			continue
		}
		findings = append(findings, Insight{
			Category: "subscription_review",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%q recurred %d times over four months, worth a review", key, g.count),
			Data: map[string]any{
				"label":       key,
				"occurrences": g.count,
				"average":     avg.Round(2),
			},
		})
	}
	return findings
}

// ---- late invoices (business) ----

type lateInvoicesRule struct{}

func (lateInvoicesRule) Name() string { return "late_invoices" }

func (lateInvoicesRule) Evaluate(ctx context.Context, ec *insightContext) ([]Insight, error) {
	if ec.businessID == nil {
		return nil, nil
	}
	// Past-due detection works off due_date directly; the rule never
	// touches invoice status, that belongs to the listing write path.
	var count int
	var outstanding decimal.Decimal
	err := ec.q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total - amount_paid), 0)
		FROM invoices
		WHERE business_id = $1 AND due_date < $2
		  AND status IN ('issued', 'partially_paid', 'overdue')`,
		*ec.businessID, ec.ref).Scan(&count, &outstanding)
	if err != nil {
		return nil, fmt.Errorf("failed to query late invoices: %w", err)
	}
	if finding := lateInvoiceFinding(count, outstanding); finding != nil {
		return []Insight{*finding}, nil
	}
	return nil, nil
}

var lateInvoiceCriticalTotal = decimal.NewFromInt(2000)

func lateInvoiceFinding(count int, outstanding decimal.Decimal) *Insight {
	if count == 0 {
		return nil
	}
	severity := SeverityWarning
	if count > 3 || outstanding.GreaterThan(lateInvoiceCriticalTotal) {
		severity = SeverityCritical
	}
	return &Insight{
		Category: "late_invoices",
		Severity: severity,
		Message:  fmt.Sprintf("%d invoice(s) past due for %s outstanding", count, outstanding),
		Data:     map[string]any{"count": count, "outstanding": outstanding},
	}
}

// ---- low-margin projects (business) ----

type lowMarginProjectsRule struct{}

func (lowMarginProjectsRule) Name() string { return "low_margin_projects" }

var marginFloorFactor = decimal.NewFromFloat(0.20)

func (lowMarginProjectsRule) Evaluate(ctx context.Context, ec *insightContext) ([]Insight, error) {
	if ec.businessID == nil {
		return nil, nil
	}
	projects, err := listProjects(ctx, ec.q, ec.userID, scopeFilter{set: true, businessID: ec.businessID})
	if err != nil {
		return nil, err
	}
	findings := make([]Insight, 0)
	for _, p := range projects {
		fin, err := computeFinancials(ctx, ec.q, ec.userID, p.ID)
		if err != nil {
			return nil, err
		}
		if finding := lowMarginFinding(p.Name, p.ID, fin); finding != nil {
			findings = append(findings, *finding)
		}
	}
	return findings, nil
}

func lowMarginFinding(name string, projectID int64, fin *ProjectFinancials) *Insight {
	// Projects that have not billed anything yet are skipped.
	if !fin.Revenue.IsPositive() {
		return nil
	}
	if fin.Margin.GreaterThanOrEqual(fin.Revenue.Mul(marginFloorFactor)) {
		return nil
	}
	return &Insight{
		Category: "low_margin_project",
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("project %q margin is below 20%% of its revenue", name),
		Data: map[string]any{
			"project_id": projectID,
			"revenue":    fin.Revenue,
			"margin":     fin.Margin,
		},
	}
}

// ---- under-target revenue (business) ----

type revenueTargetRule struct{}

func (revenueTargetRule) Name() string { return "revenue_target" }

func (revenueTargetRule) Evaluate(ctx context.Context, ec *insightContext) ([]Insight, error) {
	if ec.businessID == nil {
		return nil, nil
	}
	business, err := fetchOwnedBusiness(ctx, ec.q, *ec.businessID, ec.userID)
	if err != nil {
		return nil, err
	}
	if !business.MonthlyRevenueGoal.Valid || !business.MonthlyRevenueGoal.Decimal.IsPositive() {
		return nil, nil
	}

	start, end := monthRange(ec.ref.Year(), int(ec.ref.Month()))
	var actual decimal.Decimal
	err = ec.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1 AND business_id = $2 AND direction = 'in'
		  AND date >= $3 AND date <= $4`,
		ec.userID, *ec.businessID, start, end).Scan(&actual)
	if err != nil {
		return nil, fmt.Errorf("failed to sum monthly revenue: %w", err)
	}
	if finding := revenueTargetFinding(business.MonthlyRevenueGoal.Decimal, actual); finding != nil {
		return []Insight{*finding}, nil
	}
	return nil, nil
}

var shortfallWarnFactor = decimal.NewFromFloat(0.20)

func revenueTargetFinding(goal, actual decimal.Decimal) *Insight {
	if actual.GreaterThanOrEqual(goal) {
		return nil
	}
	shortfall := goal.Sub(actual)
	severity := SeverityInfo
	if shortfall.GreaterThan(goal.Mul(shortfallWarnFactor)) {
		severity = SeverityWarning
	}
	return &Insight{
		Category: "revenue_target",
		Severity: severity,
		Message:  fmt.Sprintf("monthly revenue of %s is short of the %s goal", actual, goal),
		Data:     map[string]any{"goal": goal, "actual": actual, "shortfall": shortfall},
	}
}
