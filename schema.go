package main

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS businesses (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		quote_seq BIGINT NOT NULL DEFAULT 0,
		invoice_seq BIGINT NOT NULL DEFAULT 0,
		payment_terms_days INTEGER NOT NULL DEFAULT 30,
		monthly_revenue_goal NUMERIC(14,2),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		business_id BIGINT REFERENCES businesses(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		currency VARCHAR(3) NOT NULL DEFAULT 'EUR',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		include_in_budget BOOLEAN NOT NULL DEFAULT TRUE,
		include_in_net_worth BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(100) NOT NULL,
		kind VARCHAR(20) NOT NULL,
		color VARCHAR(7) DEFAULT '#667eea',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_user_name_kind
		ON categories(user_id, name, kind);

	CREATE TABLE IF NOT EXISTS contacts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS income_sources (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS recurring_series (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		label VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS clients (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		business_id BIGINT REFERENCES businesses(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS services (
		id BIGSERIAL PRIMARY KEY,
		business_id BIGINT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		unit_price NUMERIC(14,2) NOT NULL DEFAULT 0,
		vat_rate NUMERIC(5,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS projects (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		business_id BIGINT REFERENCES businesses(id) ON DELETE CASCADE,
		client_id BIGINT REFERENCES clients(id) ON DELETE SET NULL,
		name VARCHAR(255) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		currency VARCHAR(3) NOT NULL DEFAULT 'EUR',
		budget_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		progress_mode VARCHAR(20) NOT NULL DEFAULT 'manual',
		manual_progress NUMERIC(5,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS project_tasks (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		done BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS project_milestones (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		weight INTEGER CHECK (weight >= 0 AND weight <= 100),
		status VARCHAR(20) NOT NULL DEFAULT 'not_started',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS project_services (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		label VARCHAR(255) NOT NULL,
		amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS savings_goals (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		business_id BIGINT REFERENCES businesses(id) ON DELETE CASCADE,
		account_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
		name VARCHAR(255) NOT NULL,
		target_amount NUMERIC(14,2) NOT NULL,
		target_date DATE,
		current_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS quotes (
		id BIGSERIAL PRIMARY KEY,
		business_id BIGINT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		client_id BIGINT REFERENCES clients(id) ON DELETE SET NULL,
		project_id BIGINT REFERENCES projects(id) ON DELETE SET NULL,
		number VARCHAR(32) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		issue_date DATE NOT NULL,
		expiry_date DATE,
		subtotal NUMERIC(14,2) NOT NULL DEFAULT 0,
		discount_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		vat_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		total NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (business_id, number)
	);

	CREATE TABLE IF NOT EXISTS quote_lines (
		id BIGSERIAL PRIMARY KEY,
		quote_id BIGINT NOT NULL REFERENCES quotes(id) ON DELETE CASCADE,
		description VARCHAR(500) NOT NULL,
		quantity NUMERIC(12,3) NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(14,2) NOT NULL,
		vat_rate NUMERIC(5,2) NOT NULL DEFAULT 0,
		discount_pct NUMERIC(5,2) NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id BIGSERIAL PRIMARY KEY,
		business_id BIGINT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		client_id BIGINT REFERENCES clients(id) ON DELETE SET NULL,
		quote_id BIGINT REFERENCES quotes(id) ON DELETE SET NULL,
		number VARCHAR(32) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'issued',
		conversion_type VARCHAR(20),
		issue_date DATE NOT NULL,
		due_date DATE NOT NULL,
		subtotal NUMERIC(14,2) NOT NULL DEFAULT 0,
		vat_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		total NUMERIC(14,2) NOT NULL DEFAULT 0,
		amount_paid NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (business_id, number)
	);

	CREATE TABLE IF NOT EXISTS invoice_payments (
		id BIGSERIAL PRIMARY KEY,
		invoice_id BIGINT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		transaction_id BIGINT,
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		date DATE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		business_id BIGINT REFERENCES businesses(id) ON DELETE CASCADE,
		project_id BIGINT REFERENCES projects(id) ON DELETE SET NULL,
		category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
		contact_id BIGINT REFERENCES contacts(id) ON DELETE SET NULL,
		income_source_id BIGINT REFERENCES income_sources(id) ON DELETE SET NULL,
		invoice_id BIGINT REFERENCES invoices(id) ON DELETE SET NULL,
		supplier_id BIGINT REFERENCES suppliers(id) ON DELETE SET NULL,
		recurring_series_id BIGINT REFERENCES recurring_series(id) ON DELETE SET NULL,
		transfer_ref VARCHAR(36),
		direction VARCHAR(3) NOT NULL CHECK (direction IN ('in', 'out')),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		date DATE NOT NULL,
		label VARCHAR(255) NOT NULL,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account_date
		ON transactions(account_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_date
		ON transactions(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_project
		ON transactions(project_id) WHERE project_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS budgets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		business_id BIGINT REFERENCES businesses(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		year INTEGER,
		month INTEGER CHECK (month >= 1 AND month <= 12),
		start_date DATE,
		end_date DATE,
		scenario VARCHAR(50) NOT NULL DEFAULT 'default',
		spending_limit NUMERIC(14,2),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS budget_lines (
		id BIGSERIAL PRIMARY KEY,
		budget_id BIGINT NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
		category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		spending_limit NUMERIC(14,2),
		priority INTEGER NOT NULL DEFAULT 0,
		alert_threshold INTEGER NOT NULL DEFAULT 80
			CHECK (alert_threshold >= 0 AND alert_threshold <= 100),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (budget_id, category_id)
	);
`

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
