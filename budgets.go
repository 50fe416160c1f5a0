package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetInput describes either a monthly budget (Year+Month) or a custom
// date-range one (StartDate+EndDate). Exactly one form must be set.
type BudgetInput struct {
	BusinessID *int64              `json:"business_id"`
	Name       string              `json:"name"`
	Year       *int                `json:"year"`
	Month      *int                `json:"month"`
	StartDate  *time.Time          `json:"start_date"`
	EndDate    *time.Time          `json:"end_date"`
	Scenario   string              `json:"scenario"`
	Limit      decimal.NullDecimal `json:"limit"`
}

func (in *BudgetInput) validate() error {
	monthly := in.Year != nil && in.Month != nil
	custom := in.StartDate != nil && in.EndDate != nil
	if monthly == custom {
		return errInvalidInput("budget requires either year+month or start_date+end_date")
	}
	if monthly {
		if *in.Month < 1 || *in.Month > 12 {
			return errInvalidInput("month must be between 1 and 12")
		}
	} else if in.EndDate.Before(*in.StartDate) {
		return errInvalidInput("end_date must not precede start_date")
	}
	if in.Limit.Valid && in.Limit.Decimal.IsNegative() {
		return errInvalidInput("spending limit must not be negative")
	}
	return nil
}

func createBudget(ctx context.Context, q querier, userID int64, in *BudgetInput) (*Budget, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.BusinessID != nil {
		if _, err := fetchOwnedBusiness(ctx, q, *in.BusinessID, userID); err != nil {
			return nil, err
		}
	}
	if in.Scenario == "" {
		in.Scenario = "default"
	}

	b := Budget{
		UserID:     userID,
		BusinessID: in.BusinessID,
		Name:       in.Name,
		Year:       in.Year,
		Month:      in.Month,
		Scenario:   in.Scenario,
		Limit:      in.Limit,
	}
	if in.StartDate != nil {
		start := normalizeDate(*in.StartDate)
		end := normalizeDate(*in.EndDate)
		b.StartDate, b.EndDate = &start, &end
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO budgets (user_id, business_id, name, year, month, start_date,
			end_date, scenario, spending_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		b.UserID, b.BusinessID, b.Name, b.Year, b.Month, b.StartDate, b.EndDate,
		b.Scenario, b.Limit).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert budget: %w", err)
	}
	return &b, nil
}

// budgetPeriod resolves a budget's inclusive date range regardless of form.
func budgetPeriod(b *Budget) (time.Time, time.Time) {
	if b.Year != nil && b.Month != nil {
		return monthRange(*b.Year, *b.Month)
	}
	return *b.StartDate, *b.EndDate
}

type BudgetLineInput struct {
	CategoryID     int64               `json:"category_id"`
	Limit          decimal.NullDecimal `json:"limit"`
	Priority       int                 `json:"priority"`
	AlertThreshold int                 `json:"alert_threshold"`
}

func addBudgetLine(ctx context.Context, q querier, userID, budgetID int64, in *BudgetLineInput) (*BudgetLine, error) {
	if in.AlertThreshold < 0 || in.AlertThreshold > 100 {
		return nil, errInvalidInput("alert_threshold must be between 0 and 100")
	}
	if in.Limit.Valid && in.Limit.Decimal.IsNegative() {
		return nil, errInvalidInput("spending limit must not be negative")
	}
	if _, err := fetchOwnedBudget(ctx, q, budgetID, userID); err != nil {
		return nil, err
	}
	if _, err := fetchOwnedCategory(ctx, q, in.CategoryID, userID); err != nil {
		return nil, err
	}

	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM budget_lines WHERE budget_id = $1 AND category_id = $2)`,
		budgetID, in.CategoryID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check budget line uniqueness: %w", err)
	}
	if exists {
		return nil, errStateConflict("budget already has a line for this category")
	}

	line := BudgetLine{
		BudgetID:       budgetID,
		CategoryID:     in.CategoryID,
		Limit:          in.Limit,
		Priority:       in.Priority,
		AlertThreshold: in.AlertThreshold,
	}
	err = q.QueryRowContext(ctx, `
		INSERT INTO budget_lines (budget_id, category_id, spending_limit, priority, alert_threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		line.BudgetID, line.CategoryID, line.Limit, line.Priority,
		line.AlertThreshold).Scan(&line.ID, &line.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert budget line: %w", err)
	}
	return &line, nil
}

func updateBudgetLine(ctx context.Context, q querier, userID, lineID int64, in *BudgetLineInput) (*BudgetLine, error) {
	if in.AlertThreshold < 0 || in.AlertThreshold > 100 {
		return nil, errInvalidInput("alert_threshold must be between 0 and 100")
	}
	if in.Limit.Valid && in.Limit.Decimal.IsNegative() {
		return nil, errInvalidInput("spending limit must not be negative")
	}
	line, err := fetchBudgetLine(ctx, q, lineID)
	if err != nil {
		return nil, err
	}
	if _, err := fetchOwnedBudget(ctx, q, line.BudgetID, userID); err != nil {
		return nil, err
	}

	_, err = q.ExecContext(ctx, `
		UPDATE budget_lines SET spending_limit = $1, priority = $2, alert_threshold = $3
		WHERE id = $4`,
		in.Limit, in.Priority, in.AlertThreshold, lineID)
	if err != nil {
		return nil, fmt.Errorf("failed to update budget line: %w", err)
	}
	line.Limit, line.Priority, line.AlertThreshold = in.Limit, in.Priority, in.AlertThreshold
	return line, nil
}

func deleteBudgetLine(ctx context.Context, q querier, userID, lineID int64) error {
	line, err := fetchBudgetLine(ctx, q, lineID)
	if err != nil {
		return err
	}
	if _, err := fetchOwnedBudget(ctx, q, line.BudgetID, userID); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM budget_lines WHERE id = $1`, lineID); err != nil {
		return fmt.Errorf("failed to delete budget line: %w", err)
	}
	return nil
}

func fetchBudgetLine(ctx context.Context, q querier, id int64) (*BudgetLine, error) {
	var l BudgetLine
	err := q.QueryRowContext(ctx, `
		SELECT id, budget_id, category_id, spending_limit, priority, alert_threshold, created_at
		FROM budget_lines WHERE id = $1`, id).Scan(
		&l.ID, &l.BudgetID, &l.CategoryID, &l.Limit, &l.Priority,
		&l.AlertThreshold, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("budget line")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch budget line: %w", err)
	}
	return &l, nil
}

func fetchBudgetLines(ctx context.Context, q reader, budgetID int64) ([]BudgetLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, budget_id, category_id, spending_limit, priority, alert_threshold, created_at
		FROM budget_lines WHERE budget_id = $1 ORDER BY priority DESC, id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget lines: %w", err)
	}
	defer rows.Close()

	lines := make([]BudgetLine, 0)
	for rows.Next() {
		var l BudgetLine
		if err := rows.Scan(&l.ID, &l.BudgetID, &l.CategoryID, &l.Limit,
			&l.Priority, &l.AlertThreshold, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// categoryEntry is a ledger row reduced to what execution needs.
type categoryEntry struct {
	CategoryID int64
	Direction  Direction
	Amount     decimal.Decimal
}

// categorySpend nets a category's outflow against its inflow: spending is
// positive when money leaves. This is the sign convention every planned vs
// actual comparison uses.
func categorySpend(entries []categoryEntry, categoryID int64) decimal.Decimal {
	spend := decimal.Zero
	for _, e := range entries {
		if e.CategoryID != categoryID {
			continue
		}
		if e.Direction == DirectionOut {
			spend = spend.Add(e.Amount)
		} else {
			spend = spend.Sub(e.Amount)
		}
	}
	return spend
}

// executionFromEntries is the pure core of computeExecution: it only sees
// already-fetched rows, so two calls over the same rows always agree.
func executionFromEntries(budgetID int64, lines []BudgetLine, entries []categoryEntry) *BudgetExecution {
	exec := &BudgetExecution{
		BudgetID:      budgetID,
		Lines:         make([]BudgetLineExecution, 0, len(lines)),
		TotalPlanned:  decimal.Zero,
		TotalActual:   decimal.Zero,
		TotalVariance: decimal.Zero,
		OverallActual: decimal.Zero,
	}
	// Overall spend covers every entry in the period, lines or not, so a
	// whole-budget limit still means something on a budget with no lines.
	for _, e := range entries {
		if e.Direction == DirectionOut {
			exec.OverallActual = exec.OverallActual.Add(e.Amount)
		} else {
			exec.OverallActual = exec.OverallActual.Sub(e.Amount)
		}
	}
	for _, line := range lines {
		planned := decimal.Zero
		if line.Limit.Valid {
			planned = line.Limit.Decimal
		}
		actual := categorySpend(entries, line.CategoryID)
		variance := actual.Sub(planned)
		exec.Lines = append(exec.Lines, BudgetLineExecution{
			Line:     line,
			Planned:  planned,
			Actual:   actual,
			Variance: variance,
		})
		exec.TotalPlanned = exec.TotalPlanned.Add(planned)
		exec.TotalActual = exec.TotalActual.Add(actual)
		exec.TotalVariance = exec.TotalVariance.Add(variance)
	}
	return exec
}

// computeExecution replays the ledger over the budget's period and scope.
// Nothing is cached; the result is a pure function of current ledger state.
func computeExecution(ctx context.Context, q reader, userID, budgetID int64) (*BudgetExecution, error) {
	budget, err := fetchOwnedBudget(ctx, q, budgetID, userID)
	if err != nil {
		return nil, err
	}
	lines, err := fetchBudgetLines(ctx, q, budgetID)
	if err != nil {
		return nil, err
	}
	start, end := budgetPeriod(budget)

	var where strings.Builder
	args := []any{userID, start, end}
	scopeFilter{set: true, businessID: budget.BusinessID}.apply(&where, &args)

	rows, err := q.QueryContext(ctx, `
		SELECT category_id, direction, amount
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date <= $3`+
		where.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget entries: %w", err)
	}
	defer rows.Close()

	var entries []categoryEntry
	for rows.Next() {
		var e categoryEntry
		var categoryID sql.NullInt64
		if err := rows.Scan(&categoryID, &e.Direction, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan budget entry: %w", err)
		}
		// Uncategorized entries keep a zero CategoryID: no line matches
		// them but they still count toward the overall spend.
		e.CategoryID = categoryID.Int64
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	exec := executionFromEntries(budgetID, lines, entries)
	exec.Limit = budget.Limit
	return exec, nil
}

// resolveCurrentPersonalBudget finds the active monthly personal budget for
// the reference month. A nil result means "no budget configured" and is not
// an error.
func resolveCurrentPersonalBudget(ctx context.Context, q reader, userID int64, ref time.Time) (*Budget, error) {
	ref = normalizeDate(ref)
	var b Budget
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, business_id, name, year, month, start_date, end_date,
		       scenario, spending_limit, created_at
		FROM budgets
		WHERE user_id = $1 AND business_id IS NULL AND year = $2 AND month = $3
		ORDER BY id LIMIT 1`,
		userID, ref.Year(), int(ref.Month())).Scan(
		&b.ID, &b.UserID, &b.BusinessID, &b.Name, &b.Year, &b.Month,
		&b.StartDate, &b.EndDate, &b.Scenario, &b.Limit, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current budget: %w", err)
	}
	return &b, nil
}

func listBudgets(ctx context.Context, q querier, userID int64, scope scopeFilter) ([]Budget, error) {
	var where strings.Builder
	args := []any{userID}
	scope.apply(&where, &args)

	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, business_id, name, year, month, start_date, end_date,
		       scenario, spending_limit, created_at
		FROM budgets WHERE user_id = $1`+where.String()+`
		ORDER BY year DESC NULLS LAST, month DESC NULLS LAST, start_date DESC NULLS LAST`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	budgets := make([]Budget, 0)
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.BusinessID, &b.Name, &b.Year,
			&b.Month, &b.StartDate, &b.EndDate, &b.Scenario, &b.Limit, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}
