package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	progressFloor = decimal.Zero
	// Progress deliberately tops out at 150, not 100, so over-delivery and
	// over-budget states stay visible to callers.
	progressCeil = decimal.NewFromInt(150)
	hundred      = decimal.NewFromInt(100)
)

func clampProgress(v decimal.Decimal) decimal.Decimal {
	if v.LessThan(progressFloor) {
		return progressFloor
	}
	if v.GreaterThan(progressCeil) {
		return progressCeil
	}
	return v
}

// financialsFromEntries groups a project's ledger entries by direction and
// sums each side independently. Margin is revenue minus costs.
func financialsFromEntries(projectID int64, entries []ledgerEntry) *ProjectFinancials {
	f := &ProjectFinancials{
		ProjectID: projectID,
		Revenue:   decimal.Zero,
		Costs:     decimal.Zero,
	}
	for _, e := range entries {
		if e.Direction == DirectionIn {
			f.Revenue = f.Revenue.Add(e.Amount)
			f.RevenueCount++
		} else {
			f.Costs = f.Costs.Add(e.Amount)
			f.CostsCount++
		}
	}
	f.Margin = f.Revenue.Sub(f.Costs)
	return f
}

// computeFinancials rolls up every ledger entry tagged with the project.
func computeFinancials(ctx context.Context, q reader, userID, projectID int64) (*ProjectFinancials, error) {
	if _, err := fetchOwnedProject(ctx, q, projectID, userID); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		`SELECT direction, amount FROM transactions WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query project entries: %w", err)
	}
	defer rows.Close()

	var entries []ledgerEntry
	for rows.Next() {
		var e ledgerEntry
		if err := rows.Scan(&e.Direction, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan project entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return financialsFromEntries(projectID, entries), nil
}

// progressValue is the pure progress computation. Revenue is only consulted
// in financial mode; passing zero elsewhere is harmless.
func progressValue(p *Project, tasks []ProjectTask, milestones []ProjectMilestone, revenue decimal.Decimal) *ProjectProgress {
	out := &ProjectProgress{
		ProjectID: p.ID,
		Mode:      p.ProgressMode,
		Details:   map[string]any{},
	}

	// A completed project reads 100 no matter what its underlying data says.
	if p.Status == ProjectCompleted {
		out.Value = hundred
		out.Details["completed"] = true
		return out
	}

	switch p.ProgressMode {
	case ProgressManual:
		out.Value = clampProgress(p.ManualProgress)

	case ProgressTasks:
		done := 0
		for _, t := range tasks {
			if t.Done {
				done++
			}
		}
		out.Details["tasks_done"] = done
		out.Details["tasks_total"] = len(tasks)
		if len(tasks) == 0 {
			out.Value = decimal.Zero
			break
		}
		out.Value = clampProgress(hundred.
			Mul(decimal.NewFromInt(int64(done))).
			Div(decimal.NewFromInt(int64(len(tasks)))))

	case ProgressMilestones:
		out.Value = clampProgress(milestoneProgress(milestones, out.Details))

	case ProgressFinancial:
		out.Details["revenue"] = revenue
		out.Details["budget_amount"] = p.BudgetAmount
		if !p.BudgetAmount.IsPositive() {
			out.Value = decimal.Zero
			break
		}
		out.Value = clampProgress(hundred.Mul(revenue).Div(p.BudgetAmount))

	default:
		out.Value = decimal.Zero
	}
	return out
}

// milestoneProgress weights completion when any milestone carries an
// explicit weight, and falls back to a plain completed/total ratio when
// none does.
func milestoneProgress(milestones []ProjectMilestone, details map[string]any) decimal.Decimal {
	if len(milestones) == 0 {
		details["milestones_total"] = 0
		return decimal.Zero
	}

	weighted := false
	for _, m := range milestones {
		if m.Weight != nil {
			weighted = true
			break
		}
	}
	details["weighted"] = weighted

	if weighted {
		totalWeight := decimal.Zero
		doneWeight := decimal.Zero
		for _, m := range milestones {
			w := decimal.Zero
			if m.Weight != nil {
				w = decimal.NewFromInt(int64(*m.Weight))
			}
			totalWeight = totalWeight.Add(w)
			if m.Status == MilestoneCompleted {
				doneWeight = doneWeight.Add(w)
			}
		}
		if totalWeight.IsZero() {
			return decimal.Zero
		}
		return hundred.Mul(doneWeight).Div(totalWeight)
	}

	done := 0
	for _, m := range milestones {
		if m.Status == MilestoneCompleted {
			done++
		}
	}
	details["milestones_done"] = done
	details["milestones_total"] = len(milestones)
	return hundred.
		Mul(decimal.NewFromInt(int64(done))).
		Div(decimal.NewFromInt(int64(len(milestones))))
}

// computeProgress resolves a project's completion percentage in its
// configured mode, clamped to [0, 150].
func computeProgress(ctx context.Context, q querier, userID, projectID int64) (*ProjectProgress, error) {
	project, err := fetchOwnedProject(ctx, q, projectID, userID)
	if err != nil {
		return nil, err
	}

	var tasks []ProjectTask
	var milestones []ProjectMilestone
	revenue := decimal.Zero

	if project.Status != ProjectCompleted {
		switch project.ProgressMode {
		case ProgressTasks:
			if tasks, err = fetchProjectTasks(ctx, q, projectID); err != nil {
				return nil, err
			}
		case ProgressMilestones:
			if milestones, err = fetchProjectMilestones(ctx, q, projectID); err != nil {
				return nil, err
			}
		case ProgressFinancial:
			fin, err := computeFinancials(ctx, q, userID, projectID)
			if err != nil {
				return nil, err
			}
			revenue = fin.Revenue
		}
	}
	return progressValue(project, tasks, milestones, revenue), nil
}

func fetchProjectTasks(ctx context.Context, q querier, projectID int64) ([]ProjectTask, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, title, done, created_at
		FROM project_tasks WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query project tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]ProjectTask, 0)
	for rows.Next() {
		var t ProjectTask
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Done, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func fetchProjectMilestones(ctx context.Context, q querier, projectID int64) ([]ProjectMilestone, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, title, position, weight, status, created_at
		FROM project_milestones WHERE project_id = $1 ORDER BY position, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query project milestones: %w", err)
	}
	defer rows.Close()

	milestones := make([]ProjectMilestone, 0)
	for rows.Next() {
		var m ProjectMilestone
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Title, &m.Position,
			&m.Weight, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project milestone: %w", err)
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

type ProjectInput struct {
	BusinessID   *int64          `json:"business_id"`
	ClientID     *int64          `json:"client_id"`
	Name         string          `json:"name"`
	Currency     string          `json:"currency"`
	BudgetAmount decimal.Decimal `json:"budget_amount"`
	ProgressMode ProgressMode    `json:"progress_mode"`
}

func createProject(ctx context.Context, q querier, userID int64, in *ProjectInput) (*Project, error) {
	if in.Name == "" {
		return nil, errInvalidInput("project name is required")
	}
	switch in.ProgressMode {
	case ProgressManual, ProgressTasks, ProgressMilestones, ProgressFinancial:
	case "":
		in.ProgressMode = ProgressManual
	default:
		return nil, errInvalidInput("unknown progress mode %q", in.ProgressMode)
	}
	if in.BudgetAmount.IsNegative() {
		return nil, errInvalidInput("budget amount must not be negative")
	}
	if in.BusinessID != nil {
		if _, err := fetchOwnedBusiness(ctx, q, *in.BusinessID, userID); err != nil {
			return nil, err
		}
	}
	if in.ClientID != nil {
		client, err := fetchOwnedClient(ctx, q, *in.ClientID, userID)
		if err != nil {
			return nil, err
		}
		// A business client can only be attached within its own business.
		if client.BusinessID != nil && !sameScope(in.BusinessID, client.BusinessID) {
			return nil, errScopeCoherence("client belongs to a different business scope")
		}
	}
	if in.Currency == "" {
		in.Currency = "EUR"
	}

	p := Project{
		UserID:       userID,
		BusinessID:   in.BusinessID,
		ClientID:     in.ClientID,
		Name:         in.Name,
		Status:       ProjectActive,
		Currency:     in.Currency,
		BudgetAmount: in.BudgetAmount,
		ProgressMode: in.ProgressMode,
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO projects (user_id, business_id, client_id, name, status,
			currency, budget_amount, progress_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, manual_progress, created_at`,
		p.UserID, p.BusinessID, p.ClientID, p.Name, p.Status, p.Currency,
		p.BudgetAmount, p.ProgressMode).Scan(&p.ID, &p.ManualProgress, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return &p, nil
}

func setProjectStatus(ctx context.Context, q querier, userID, projectID int64, status ProjectStatus) (*Project, error) {
	switch status {
	case ProjectActive, ProjectPaused, ProjectCompleted, ProjectCancelled:
	default:
		return nil, errInvalidInput("unknown project status %q", status)
	}
	project, err := fetchOwnedProject(ctx, q, projectID, userID)
	if err != nil {
		return nil, err
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE projects SET status = $1 WHERE id = $2`, status, projectID); err != nil {
		return nil, fmt.Errorf("failed to update project status: %w", err)
	}
	project.Status = status
	return project, nil
}

func setManualProgress(ctx context.Context, q querier, userID, projectID int64, value decimal.Decimal) (*Project, error) {
	if value.IsNegative() {
		return nil, errInvalidInput("manual progress must not be negative")
	}
	project, err := fetchOwnedProject(ctx, q, projectID, userID)
	if err != nil {
		return nil, err
	}
	clamped := clampProgress(value)
	if _, err := q.ExecContext(ctx,
		`UPDATE projects SET manual_progress = $1 WHERE id = $2`, clamped, projectID); err != nil {
		return nil, fmt.Errorf("failed to update manual progress: %w", err)
	}
	project.ManualProgress = clamped
	return project, nil
}

func addProjectTask(ctx context.Context, q querier, userID, projectID int64, title string) (*ProjectTask, error) {
	if title == "" {
		return nil, errInvalidInput("task title is required")
	}
	if _, err := fetchOwnedProject(ctx, q, projectID, userID); err != nil {
		return nil, err
	}
	t := ProjectTask{ProjectID: projectID, Title: title}
	err := q.QueryRowContext(ctx, `
		INSERT INTO project_tasks (project_id, title) VALUES ($1, $2)
		RETURNING id, done, created_at`,
		projectID, title).Scan(&t.ID, &t.Done, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project task: %w", err)
	}
	return &t, nil
}

func setTaskDone(ctx context.Context, q querier, userID, taskID int64, done bool) error {
	res, err := q.ExecContext(ctx, `
		UPDATE project_tasks SET done = $1
		WHERE id = $2 AND project_id IN (SELECT id FROM projects WHERE user_id = $3)`,
		done, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to update project task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNotFound("project task")
	}
	return nil
}

type MilestoneInput struct {
	Title    string `json:"title"`
	Position int    `json:"position"`
	Weight   *int   `json:"weight"`
}

func addProjectMilestone(ctx context.Context, q querier, userID, projectID int64, in *MilestoneInput) (*ProjectMilestone, error) {
	if in.Title == "" {
		return nil, errInvalidInput("milestone title is required")
	}
	if in.Weight != nil && (*in.Weight < 0 || *in.Weight > 100) {
		return nil, errInvalidInput("milestone weight must be between 0 and 100")
	}
	if _, err := fetchOwnedProject(ctx, q, projectID, userID); err != nil {
		return nil, err
	}
	m := ProjectMilestone{
		ProjectID: projectID,
		Title:     in.Title,
		Position:  in.Position,
		Weight:    in.Weight,
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO project_milestones (project_id, title, position, weight)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, created_at`,
		projectID, in.Title, in.Position, in.Weight).Scan(&m.ID, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project milestone: %w", err)
	}
	return &m, nil
}

func setMilestoneStatus(ctx context.Context, q querier, userID, milestoneID int64, status MilestoneStatus) error {
	switch status {
	case MilestoneNotStarted, MilestoneInProgress, MilestoneCompleted, MilestoneCancelled:
	default:
		return errInvalidInput("unknown milestone status %q", status)
	}
	res, err := q.ExecContext(ctx, `
		UPDATE project_milestones SET status = $1
		WHERE id = $2 AND project_id IN (SELECT id FROM projects WHERE user_id = $3)`,
		status, milestoneID, userID)
	if err != nil {
		return fmt.Errorf("failed to update milestone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNotFound("project milestone")
	}
	return nil
}

func listProjects(ctx context.Context, q reader, userID int64, scope scopeFilter) ([]Project, error) {
	var where strings.Builder
	args := []any{userID}
	scope.apply(&where, &args)

	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, business_id, client_id, name, status, currency,
		       budget_amount, progress_mode, manual_progress, created_at
		FROM projects WHERE user_id = $1`+where.String()+`
		ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.BusinessID, &p.ClientID, &p.Name,
			&p.Status, &p.Currency, &p.BudgetAmount, &p.ProgressMode,
			&p.ManualProgress, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
