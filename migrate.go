package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// setupDatabase creates the full schema, waiting for the database to come up.
func setupDatabase() error {
	config, err := pgx.ParseConfig(databaseURL())
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	var conn *sql.DB
	maxRetries := 60
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		conn = stdlib.OpenDB(*config)
		if err := conn.Ping(); err != nil {
			conn.Close()
			if i < maxRetries-1 {
				logger.Info().Int("attempt", i+1).Int("max", maxRetries).Msg("database not ready, retrying")
				time.Sleep(retryDelay)
				continue
			}
			return fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}
		break
	}
	defer conn.Close()

	logger.Info().Msg("creating database schema")
	if err := ensureSchema(conn); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	logger.Info().Msg("schema created successfully")
	return nil
}

// seedDemoData inserts a demo user with accounts, categories, a business and
// sample activity. Safe to run repeatedly.
func seedDemoData(conn *sql.DB) error {
	var userID int64
	err := conn.QueryRow(`
		INSERT INTO users (email, name) VALUES ('demo@example.com', 'Demo User')
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`).Scan(&userID)
	if err != nil {
		return fmt.Errorf("failed to seed demo user: %w", err)
	}

	var businessID int64
	err = conn.QueryRow(`
		SELECT id FROM businesses WHERE user_id = $1 AND name = 'Demo Studio'`, userID).Scan(&businessID)
	if err == sql.ErrNoRows {
		err = conn.QueryRow(`
			INSERT INTO businesses (user_id, name, payment_terms_days, monthly_revenue_goal)
			VALUES ($1, 'Demo Studio', 30, 5000)
			RETURNING id`, userID).Scan(&businessID)
	}
	if err != nil {
		return fmt.Errorf("failed to seed demo business: %w", err)
	}

	var checkingID, businessAccountID int64
	err = conn.QueryRow(`SELECT id FROM accounts WHERE user_id = $1 AND name = 'Checking'`, userID).Scan(&checkingID)
	if err == sql.ErrNoRows {
		err = conn.QueryRow(`
			INSERT INTO accounts (user_id, name, currency)
			VALUES ($1, 'Checking', 'EUR')
			RETURNING id`, userID).Scan(&checkingID)
	}
	if err != nil {
		return fmt.Errorf("failed to seed demo account: %w", err)
	}
	err = conn.QueryRow(`SELECT id FROM accounts WHERE user_id = $1 AND name = 'Studio Account'`, userID).Scan(&businessAccountID)
	if err == sql.ErrNoRows {
		err = conn.QueryRow(`
			INSERT INTO accounts (user_id, business_id, name, currency)
			VALUES ($1, $2, 'Studio Account', 'EUR')
			RETURNING id`, userID, businessID).Scan(&businessAccountID)
	}
	if err != nil {
		return fmt.Errorf("failed to seed demo business account: %w", err)
	}

	categories := []struct {
		name string
		kind string
	}{
		{"Groceries", "expense"},
		{"Rent", "expense"},
		{"Restaurant", "expense"},
		{"Subscriptions", "expense"},
		{"Salary", "income"},
		{"Freelance", "income"},
	}
	categoryIDs := make(map[string]int64, len(categories))
	for _, cat := range categories {
		var id int64
		err = conn.QueryRow(`
			INSERT INTO categories (user_id, name, kind) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, name, kind) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, userID, cat.name, cat.kind).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", cat.name, err)
		}
		categoryIDs[cat.name] = id
	}

	var txnCount int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&txnCount); err != nil {
		return fmt.Errorf("failed to count demo transactions: %w", err)
	}
	if txnCount == 0 {
		monthStart := time.Now().UTC().AddDate(0, 0, -time.Now().UTC().Day()+1)
		seed := []struct {
			account  int64
			category string
			dir      string
			amount   string
			daysAgo  int
			label    string
		}{
			{checkingID, "Salary", "in", "2800.00", 25, "Monthly salary"},
			{checkingID, "Rent", "out", "950.00", 24, "Rent"},
			{checkingID, "Groceries", "out", "86.40", 20, "Supermarket"},
			{checkingID, "Groceries", "out", "54.10", 12, "Supermarket"},
			{checkingID, "Restaurant", "out", "42.00", 9, "Dinner out"},
			{checkingID, "Subscriptions", "out", "12.99", 6, "Streaming"},
			{businessAccountID, "Freelance", "in", "1500.00", 15, "Client retainer"},
		}
		for _, s := range seed {
			var businessRef any
			if s.account == businessAccountID {
				businessRef = businessID
			}
			_, err = conn.Exec(`
				INSERT INTO transactions (user_id, account_id, business_id, category_id, direction, amount, date, label)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				userID, s.account, businessRef, categoryIDs[s.category], s.dir, s.amount,
				monthStart.AddDate(0, 0, 25-s.daysAgo), s.label)
			if err != nil {
				return fmt.Errorf("failed to seed transaction %q: %w", s.label, err)
			}
		}
	}

	now := time.Now().UTC()
	var budgetID int64
	err = conn.QueryRow(`
		SELECT id FROM budgets WHERE user_id = $1 AND business_id IS NULL AND year = $2 AND month = $3`,
		userID, now.Year(), int(now.Month())).Scan(&budgetID)
	if err == sql.ErrNoRows {
		err = conn.QueryRow(`
			INSERT INTO budgets (user_id, name, year, month, scenario)
			VALUES ($1, 'Monthly budget', $2, $3, 'default')
			RETURNING id`, userID, now.Year(), int(now.Month())).Scan(&budgetID)
		if err == nil {
			for _, line := range []struct {
				category string
				planned  string
			}{
				{"Groceries", "300.00"},
				{"Rent", "950.00"},
				{"Restaurant", "120.00"},
			} {
				_, err = conn.Exec(`
					INSERT INTO budget_lines (budget_id, category_id, spending_limit)
					VALUES ($1, $2, $3)
					ON CONFLICT (budget_id, category_id) DO NOTHING`,
					budgetID, categoryIDs[line.category], line.planned)
				if err != nil {
					break
				}
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to seed demo budget: %w", err)
	}

	var projectCount int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM projects WHERE user_id = $1`, userID).Scan(&projectCount); err != nil {
		return fmt.Errorf("failed to count demo projects: %w", err)
	}
	if projectCount == 0 {
		_, err = conn.Exec(`
			INSERT INTO projects (user_id, business_id, name, status, progress_mode)
			VALUES ($1, $2, 'Website redesign', 'active', 'tasks')`, userID, businessID)
		if err != nil {
			return fmt.Errorf("failed to seed demo project: %w", err)
		}
	}

	logger.Info().Int64("user_id", userID).Msg("demo data in place")
	return nil
}
