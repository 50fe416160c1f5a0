package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SavingsGoalInput struct {
	BusinessID   *int64          `json:"business_id"`
	AccountID    *int64          `json:"account_id"`
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	TargetDate   *time.Time      `json:"target_date"`
}

// validateGoalAccountScope enforces that a personal goal links only to a
// personal account and a business goal only to an account of the same
// business.
func validateGoalAccountScope(goalBusinessID, accountBusinessID *int64) error {
	if !sameScope(goalBusinessID, accountBusinessID) {
		return errScopeCoherence("linked account scope does not match the goal's scope")
	}
	return nil
}

func createSavingsGoal(ctx context.Context, q querier, userID int64, in *SavingsGoalInput) (*SavingsGoal, error) {
	if in.Name == "" {
		return nil, errInvalidInput("goal name is required")
	}
	if !in.TargetAmount.IsPositive() {
		return nil, errInvalidInput("target amount must be positive")
	}
	if in.BusinessID != nil {
		if _, err := fetchOwnedBusiness(ctx, q, *in.BusinessID, userID); err != nil {
			return nil, err
		}
	}
	if in.AccountID != nil {
		account, err := fetchOwnedAccount(ctx, q, *in.AccountID, userID)
		if err != nil {
			return nil, err
		}
		if err := validateGoalAccountScope(in.BusinessID, account.BusinessID); err != nil {
			return nil, err
		}
	}

	g := SavingsGoal{
		UserID:        userID,
		BusinessID:    in.BusinessID,
		AccountID:     in.AccountID,
		Name:          in.Name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: decimal.Zero,
		Status:        GoalActive,
	}
	if in.TargetDate != nil {
		d := normalizeDate(*in.TargetDate)
		g.TargetDate = &d
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO savings_goals (user_id, business_id, account_id, name,
			target_amount, target_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, current_amount, created_at`,
		g.UserID, g.BusinessID, g.AccountID, g.Name, g.TargetAmount,
		g.TargetDate, g.Status).Scan(&g.ID, &g.CurrentAmount, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert savings goal: %w", err)
	}
	return &g, nil
}

// goalTransitions is the lifecycle: active can pause, complete or cancel;
// paused can resume or cancel. Completed and cancelled are terminal.
var goalTransitions = map[GoalStatus][]GoalStatus{
	GoalActive: {GoalPaused, GoalCompleted, GoalCancelled},
	GoalPaused: {GoalActive, GoalCancelled},
}

func transitionGoalStatus(ctx context.Context, q querier, userID, goalID int64, next GoalStatus) (*SavingsGoal, error) {
	goal, err := fetchOwnedSavingsGoal(ctx, q, goalID, userID)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, s := range goalTransitions[goal.Status] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, errStateConflict("cannot move goal from %s to %s", goal.Status, next)
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE savings_goals SET status = $1 WHERE id = $2`, next, goalID); err != nil {
		return nil, fmt.Errorf("failed to update goal status: %w", err)
	}
	goal.Status = next
	return goal, nil
}

// contributeToGoal bumps the cached current amount. The cache exists
// because a goal may be funded outside any linked account; it is updated
// only through this path.
func contributeToGoal(ctx context.Context, q querier, userID, goalID int64, amount decimal.Decimal) (*SavingsGoal, error) {
	if !amount.IsPositive() {
		return nil, errInvalidInput("contribution must be positive")
	}
	goal, err := fetchOwnedSavingsGoal(ctx, q, goalID, userID)
	if err != nil {
		return nil, err
	}
	if goal.Status != GoalActive {
		return nil, errStateConflict("goal is %s, contributions require an active goal", goal.Status)
	}
	newAmount := goal.CurrentAmount.Add(amount)
	if _, err := q.ExecContext(ctx,
		`UPDATE savings_goals SET current_amount = $1 WHERE id = $2`, newAmount, goalID); err != nil {
		return nil, fmt.Errorf("failed to update goal amount: %w", err)
	}
	goal.CurrentAmount = newAmount
	return goal, nil
}

func listSavingsGoals(ctx context.Context, q reader, userID int64, scope scopeFilter) ([]SavingsGoal, error) {
	var where strings.Builder
	args := []any{userID}
	scope.apply(&where, &args)

	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, business_id, account_id, name, target_amount,
		       target_date, current_amount, status, created_at
		FROM savings_goals WHERE user_id = $1`+where.String()+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query savings goals: %w", err)
	}
	defer rows.Close()

	goals := make([]SavingsGoal, 0)
	for rows.Next() {
		var g SavingsGoal
		if err := rows.Scan(&g.ID, &g.UserID, &g.BusinessID, &g.AccountID, &g.Name,
			&g.TargetAmount, &g.TargetDate, &g.CurrentAmount, &g.Status, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan savings goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
