package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type AccountInput struct {
	BusinessID        *int64 `json:"business_id"`
	Name              string `json:"name"`
	Currency          string `json:"currency"`
	IncludeInBudget   *bool  `json:"include_in_budget"`
	IncludeInNetWorth *bool  `json:"include_in_net_worth"`
}

func createAccount(ctx context.Context, q querier, userID int64, in *AccountInput) (*Account, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errInvalidInput("account name is required")
	}
	if in.Currency == "" {
		in.Currency = "EUR"
	}
	if len(in.Currency) != 3 {
		return nil, errInvalidInput("currency must be a 3-letter code")
	}
	if in.BusinessID != nil {
		if _, err := fetchOwnedBusiness(ctx, q, *in.BusinessID, userID); err != nil {
			return nil, err
		}
	}
	includeBudget := in.IncludeInBudget == nil || *in.IncludeInBudget
	includeNetWorth := in.IncludeInNetWorth == nil || *in.IncludeInNetWorth

	a := Account{
		UserID:            userID,
		BusinessID:        in.BusinessID,
		Name:              in.Name,
		Currency:          strings.ToUpper(in.Currency),
		Active:            true,
		IncludeInBudget:   includeBudget,
		IncludeInNetWorth: includeNetWorth,
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO accounts (user_id, business_id, name, currency, include_in_budget, include_in_net_worth)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		a.UserID, a.BusinessID, a.Name, a.Currency, a.IncludeInBudget,
		a.IncludeInNetWorth).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	return &a, nil
}

type BusinessInput struct {
	Name               string              `json:"name"`
	PaymentTermsDays   int                 `json:"payment_terms_days"`
	MonthlyRevenueGoal decimal.NullDecimal `json:"monthly_revenue_goal"`
}

func createBusiness(ctx context.Context, q querier, userID int64, in *BusinessInput) (*Business, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errInvalidInput("business name is required")
	}
	if in.PaymentTermsDays < 0 {
		return nil, errInvalidInput("payment terms must not be negative")
	}
	if in.PaymentTermsDays == 0 {
		in.PaymentTermsDays = 30
	}
	b := Business{
		UserID:             userID,
		Name:               in.Name,
		PaymentTermsDays:   in.PaymentTermsDays,
		MonthlyRevenueGoal: in.MonthlyRevenueGoal,
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO businesses (user_id, name, payment_terms_days, monthly_revenue_goal)
		VALUES ($1, $2, $3, $4) RETURNING id, quote_seq, invoice_seq, created_at`,
		b.UserID, b.Name, b.PaymentTermsDays, b.MonthlyRevenueGoal).Scan(
		&b.ID, &b.QuoteSeq, &b.InvoiceSeq, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert business: %w", err)
	}
	return &b, nil
}

type CategoryInput struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Color string `json:"color"`
}

func createCategory(ctx context.Context, q querier, userID int64, in *CategoryInput) (*Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errInvalidInput("category name is required")
	}
	if in.Kind != "income" && in.Kind != "expense" {
		return nil, errInvalidInput("category kind must be income or expense")
	}
	if in.Color == "" {
		in.Color = "#667eea"
	}
	c := Category{UserID: userID, Name: in.Name, Kind: in.Kind, Color: in.Color}
	err := q.QueryRowContext(ctx, `
		INSERT INTO categories (user_id, name, kind, color)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		c.UserID, c.Name, c.Kind, c.Color).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert category: %w", err)
	}
	return &c, nil
}

func listCategories(ctx context.Context, q querier, userID int64) ([]Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, name, kind, color, created_at
		FROM categories WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Kind, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func listBusinesses(ctx context.Context, q querier, userID int64) ([]Business, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, name, quote_seq, invoice_seq, payment_terms_days,
		       monthly_revenue_goal, created_at
		FROM businesses WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query businesses: %w", err)
	}
	defer rows.Close()

	businesses := make([]Business, 0)
	for rows.Next() {
		var b Business
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.QuoteSeq, &b.InvoiceSeq,
			&b.PaymentTermsDays, &b.MonthlyRevenueGoal, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		businesses = append(businesses, b)
	}
	return businesses, rows.Err()
}
