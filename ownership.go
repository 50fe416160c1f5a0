package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Ownership guard. Every entity fetch in the core goes through one of these
// helpers, which distinguish "row absent" (errNotFound) from "row exists but
// belongs to someone else" (errOwnership). The distinction stays internal;
// the API layer collapses both to 404 so ownership probes learn nothing.

func fetchOwnedAccount(ctx context.Context, q querier, id, userID int64) (*Account, error) {
	var a Account
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, business_id, name, currency, active,
		       include_in_budget, include_in_net_worth, created_at
		FROM accounts WHERE id = $1`, id).Scan(
		&a.ID, &a.UserID, &a.BusinessID, &a.Name, &a.Currency, &a.Active,
		&a.IncludeInBudget, &a.IncludeInNetWorth, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("account")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	if a.UserID != userID {
		return nil, errOwnership("account")
	}
	return &a, nil
}

func fetchOwnedBusiness(ctx context.Context, q reader, id, userID int64) (*Business, error) {
	var b Business
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, name, quote_seq, invoice_seq, payment_terms_days,
		       monthly_revenue_goal, created_at
		FROM businesses WHERE id = $1`, id).Scan(
		&b.ID, &b.UserID, &b.Name, &b.QuoteSeq, &b.InvoiceSeq,
		&b.PaymentTermsDays, &b.MonthlyRevenueGoal, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("business")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch business: %w", err)
	}
	if b.UserID != userID {
		return nil, errOwnership("business")
	}
	return &b, nil
}

func fetchOwnedCategory(ctx context.Context, q querier, id, userID int64) (*Category, error) {
	var c Category
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, name, kind, color, created_at
		FROM categories WHERE id = $1`, id).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Kind, &c.Color, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("category")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}
	if c.UserID != userID {
		return nil, errOwnership("category")
	}
	return &c, nil
}

func fetchOwnedContact(ctx context.Context, q querier, id, userID int64) (*Contact, error) {
	var c Contact
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, name, email, created_at
		FROM contacts WHERE id = $1`, id).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("contact")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}
	if c.UserID != userID {
		return nil, errOwnership("contact")
	}
	return &c, nil
}

func fetchOwnedIncomeSource(ctx context.Context, q querier, id, userID int64) (*IncomeSource, error) {
	var s IncomeSource
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at
		FROM income_sources WHERE id = $1`, id).Scan(
		&s.ID, &s.UserID, &s.Name, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("income source")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch income source: %w", err)
	}
	if s.UserID != userID {
		return nil, errOwnership("income source")
	}
	return &s, nil
}

func fetchOwnedSupplier(ctx context.Context, q querier, id, userID int64) (*Supplier, error) {
	var s Supplier
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at
		FROM suppliers WHERE id = $1`, id).Scan(
		&s.ID, &s.UserID, &s.Name, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("supplier")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch supplier: %w", err)
	}
	if s.UserID != userID {
		return nil, errOwnership("supplier")
	}
	return &s, nil
}

func fetchOwnedRecurringSeries(ctx context.Context, q querier, id, userID int64) (*RecurringSeries, error) {
	var s RecurringSeries
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, label, created_at
		FROM recurring_series WHERE id = $1`, id).Scan(
		&s.ID, &s.UserID, &s.Label, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("recurring series")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recurring series: %w", err)
	}
	if s.UserID != userID {
		return nil, errOwnership("recurring series")
	}
	return &s, nil
}

func fetchOwnedProject(ctx context.Context, q reader, id, userID int64) (*Project, error) {
	var p Project
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, business_id, client_id, name, status, currency,
		       budget_amount, progress_mode, manual_progress, created_at
		FROM projects WHERE id = $1`, id).Scan(
		&p.ID, &p.UserID, &p.BusinessID, &p.ClientID, &p.Name, &p.Status,
		&p.Currency, &p.BudgetAmount, &p.ProgressMode, &p.ManualProgress, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("project")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}
	if p.UserID != userID {
		return nil, errOwnership("project")
	}
	return &p, nil
}

func fetchOwnedBudget(ctx context.Context, q reader, id, userID int64) (*Budget, error) {
	var b Budget
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, business_id, name, year, month, start_date, end_date,
		       scenario, spending_limit, created_at
		FROM budgets WHERE id = $1`, id).Scan(
		&b.ID, &b.UserID, &b.BusinessID, &b.Name, &b.Year, &b.Month,
		&b.StartDate, &b.EndDate, &b.Scenario, &b.Limit, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("budget")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch budget: %w", err)
	}
	if b.UserID != userID {
		return nil, errOwnership("budget")
	}
	return &b, nil
}

func fetchOwnedSavingsGoal(ctx context.Context, q querier, id, userID int64) (*SavingsGoal, error) {
	var g SavingsGoal
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, business_id, account_id, name, target_amount,
		       target_date, current_amount, status, created_at
		FROM savings_goals WHERE id = $1`, id).Scan(
		&g.ID, &g.UserID, &g.BusinessID, &g.AccountID, &g.Name, &g.TargetAmount,
		&g.TargetDate, &g.CurrentAmount, &g.Status, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("savings goal")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch savings goal: %w", err)
	}
	if g.UserID != userID {
		return nil, errOwnership("savings goal")
	}
	return &g, nil
}

func fetchOwnedClient(ctx context.Context, q querier, id, userID int64) (*Client, error) {
	var c Client
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, business_id, name, email, created_at
		FROM clients WHERE id = $1`, id).Scan(
		&c.ID, &c.UserID, &c.BusinessID, &c.Name, &c.Email, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("client")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	if c.UserID != userID {
		return nil, errOwnership("client")
	}
	return &c, nil
}

func fetchOwnedTransaction(ctx context.Context, q querier, id, userID int64) (*Transaction, error) {
	var t Transaction
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, account_id, business_id, project_id, category_id,
		       contact_id, income_source_id, invoice_id, supplier_id,
		       recurring_series_id, transfer_ref, direction, amount, date,
		       label, notes, created_at
		FROM transactions WHERE id = $1`, id).Scan(
		&t.ID, &t.UserID, &t.AccountID, &t.BusinessID, &t.ProjectID, &t.CategoryID,
		&t.ContactID, &t.IncomeSourceID, &t.InvoiceID, &t.SupplierID,
		&t.RecurringSeriesID, &t.TransferRef, &t.Direction, &t.Amount, &t.Date,
		&t.Label, &t.Notes, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("transaction")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	if t.UserID != userID {
		return nil, errOwnership("transaction")
	}
	return &t, nil
}

// Quotes and invoices have no user_id of their own; ownership resolves
// through their business.

func fetchOwnedQuote(ctx context.Context, q querier, id, userID int64) (*Quote, error) {
	var qt Quote
	var ownerID int64
	err := q.QueryRowContext(ctx, `
		SELECT q.id, q.business_id, q.client_id, q.project_id, q.number, q.status,
		       q.issue_date, q.expiry_date, q.subtotal, q.discount_total,
		       q.vat_total, q.total, q.created_at, b.user_id
		FROM quotes q JOIN businesses b ON q.business_id = b.id
		WHERE q.id = $1`, id).Scan(
		&qt.ID, &qt.BusinessID, &qt.ClientID, &qt.ProjectID, &qt.Number, &qt.Status,
		&qt.IssueDate, &qt.ExpiryDate, &qt.Subtotal, &qt.DiscountTotal,
		&qt.VATTotal, &qt.Total, &qt.CreatedAt, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("quote")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	if ownerID != userID {
		return nil, errOwnership("quote")
	}
	return &qt, nil
}

func fetchOwnedInvoice(ctx context.Context, q querier, id, userID int64) (*Invoice, error) {
	var inv Invoice
	var ownerID int64
	err := q.QueryRowContext(ctx, `
		SELECT i.id, i.business_id, i.client_id, i.quote_id, i.number, i.status,
		       i.conversion_type, i.issue_date, i.due_date, i.subtotal,
		       i.vat_total, i.total, i.amount_paid, i.created_at, b.user_id
		FROM invoices i JOIN businesses b ON i.business_id = b.id
		WHERE i.id = $1`, id).Scan(
		&inv.ID, &inv.BusinessID, &inv.ClientID, &inv.QuoteID, &inv.Number,
		&inv.Status, &inv.ConversionType, &inv.IssueDate, &inv.DueDate,
		&inv.Subtotal, &inv.VATTotal, &inv.Total, &inv.AmountPaid,
		&inv.CreatedAt, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound("invoice")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	if ownerID != userID {
		return nil, errOwnership("invoice")
	}
	return &inv, nil
}
