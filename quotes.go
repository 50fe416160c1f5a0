package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type QuoteItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

type QuoteInput struct {
	BusinessID int64            `json:"business_id"`
	ClientID   *int64           `json:"client_id"`
	ProjectID  *int64           `json:"project_id"`
	IssueDate  time.Time        `json:"issue_date"`
	ExpiryDate *time.Time       `json:"expiry_date"`
	Items      []QuoteItemInput `json:"items"`
}

func validateQuoteItems(items []QuoteItemInput) error {
	if len(items) == 0 {
		return errInvalidInput("a quote requires at least one item")
	}
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return errInvalidInput("item %d: description is required", i+1)
		}
		if !item.Quantity.IsPositive() {
			return errInvalidInput("item %d: quantity must be positive", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return errInvalidInput("item %d: unit price must not be negative", i+1)
		}
		if item.VATRate.IsNegative() {
			return errInvalidInput("item %d: vat rate must not be negative", i+1)
		}
		if item.DiscountPct.IsNegative() || item.DiscountPct.GreaterThan(hundred) {
			return errInvalidInput("item %d: discount must be between 0 and 100", i+1)
		}
	}
	return nil
}

// quoteTotals computes subtotal, discount, VAT and grand total from line
// items. Discount stays zero for now; the column is reserved.
func quoteTotals(items []QuoteItemInput) (subtotal, discount, vat, total decimal.Decimal) {
	subtotal, discount, vat = decimal.Zero, decimal.Zero, decimal.Zero
	for _, item := range items {
		lineNet := item.Quantity.Mul(item.UnitPrice)
		subtotal = subtotal.Add(lineNet)
		vat = vat.Add(lineNet.Mul(item.VATRate).Div(hundred))
	}
	subtotal = subtotal.Round(2)
	vat = vat.Round(2)
	total = subtotal.Sub(discount).Add(vat)
	return subtotal, discount, vat, total
}

// Number sequences live on the business row. The increment happens in a
// single UPDATE ... RETURNING inside the caller's transaction, so two
// concurrent requests can never read the same counter value.

func allocateQuoteNumber(ctx context.Context, tx *sql.Tx, businessID int64) (string, error) {
	var seq int64
	err := tx.QueryRowContext(ctx,
		`UPDATE businesses SET quote_seq = quote_seq + 1 WHERE id = $1 RETURNING quote_seq`,
		businessID).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to allocate quote number: %w", err)
	}
	return fmt.Sprintf("DEV-%04d", seq), nil
}

func allocateInvoiceNumber(ctx context.Context, tx *sql.Tx, businessID int64) (string, error) {
	var seq int64
	err := tx.QueryRowContext(ctx,
		`UPDATE businesses SET invoice_seq = invoice_seq + 1 WHERE id = $1 RETURNING invoice_seq`,
		businessID).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return fmt.Sprintf("FAC-%04d", seq), nil
}

// createQuote validates items, resolves the client into the business
// catalog and writes the quote, its lines and the number allocation as one
// transaction.
func createQuote(ctx context.Context, userID int64, in *QuoteInput) (*Quote, error) {
	if err := validateQuoteItems(in.Items); err != nil {
		return nil, err
	}
	if in.IssueDate.IsZero() {
		return nil, errInvalidInput("issue_date is required")
	}
	if in.ExpiryDate != nil && in.ExpiryDate.Before(in.IssueDate) {
		return nil, errInvalidInput("expiry_date must not precede issue_date")
	}

	var quote Quote
	err := withTx(ctx, func(tx *sql.Tx) error {
		if _, err := fetchOwnedBusiness(ctx, tx, in.BusinessID, userID); err != nil {
			return err
		}

		var clientID *int64
		if in.ClientID != nil {
			client, err := resolveBusinessClient(ctx, tx, userID, in.BusinessID, *in.ClientID)
			if err != nil {
				return err
			}
			clientID = &client.ID
		}
		if in.ProjectID != nil {
			project, err := fetchOwnedProject(ctx, tx, *in.ProjectID, userID)
			if err != nil {
				return err
			}
			if project.BusinessID != nil && *project.BusinessID != in.BusinessID {
				return errScopeCoherence("project belongs to a different business")
			}
		}

		number, err := allocateQuoteNumber(ctx, tx, in.BusinessID)
		if err != nil {
			return err
		}
		subtotal, discount, vat, total := quoteTotals(in.Items)

		quote = Quote{
			BusinessID:    in.BusinessID,
			ClientID:      clientID,
			ProjectID:     in.ProjectID,
			Number:        number,
			Status:        QuoteDraft,
			IssueDate:     normalizeDate(in.IssueDate),
			Subtotal:      subtotal,
			DiscountTotal: discount,
			VATTotal:      vat,
			Total:         total,
		}
		if in.ExpiryDate != nil {
			d := normalizeDate(*in.ExpiryDate)
			quote.ExpiryDate = &d
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO quotes (business_id, client_id, project_id, number, status,
				issue_date, expiry_date, subtotal, discount_total, vat_total, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at`,
			quote.BusinessID, quote.ClientID, quote.ProjectID, quote.Number,
			quote.Status, quote.IssueDate, quote.ExpiryDate, quote.Subtotal,
			quote.DiscountTotal, quote.VATTotal, quote.Total).Scan(&quote.ID, &quote.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert quote: %w", err)
		}

		for _, item := range in.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO quote_lines (quote_id, description, quantity, unit_price, vat_rate, discount_pct)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				quote.ID, item.Description, item.Quantity, item.UnitPrice,
				item.VATRate, item.DiscountPct)
			if err != nil {
				return fmt.Errorf("failed to insert quote line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// quoteTransitions is the status diagram. Accepting unlocks conversion;
// rejection and expiry carry no side effects.
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteDraft: {QuoteSent, QuoteCancelled},
	QuoteSent:  {QuoteAccepted, QuoteRejected, QuoteExpired, QuoteCancelled},
}

func transitionQuoteStatus(ctx context.Context, q querier, userID, quoteID int64, next QuoteStatus) (*Quote, error) {
	switch next {
	case QuoteSent, QuoteAccepted, QuoteRejected, QuoteExpired, QuoteCancelled:
	default:
		return nil, errInvalidInput("unknown quote status %q", next)
	}
	quote, err := fetchOwnedQuote(ctx, q, quoteID, userID)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, s := range quoteTransitions[quote.Status] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, errStateConflict("cannot move quote from %s to %s", quote.Status, next)
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE quotes SET status = $1 WHERE id = $2`, next, quoteID); err != nil {
		return nil, fmt.Errorf("failed to update quote status: %w", err)
	}
	quote.Status = next
	return quote, nil
}

// updateQuoteLines replaces a draft quote's items and recomputes its
// totals. Any other status refuses the edit.
func updateQuoteLines(ctx context.Context, userID, quoteID int64, items []QuoteItemInput) (*Quote, error) {
	if err := validateQuoteItems(items); err != nil {
		return nil, err
	}
	var quote *Quote
	err := withTx(ctx, func(tx *sql.Tx) error {
		var err error
		quote, err = fetchOwnedQuote(ctx, tx, quoteID, userID)
		if err != nil {
			return err
		}
		if quote.Status != QuoteDraft {
			return errStateConflict("quote lines can only be edited while draft, status is %s", quote.Status)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM quote_lines WHERE quote_id = $1`, quoteID); err != nil {
			return fmt.Errorf("failed to clear quote lines: %w", err)
		}
		for _, item := range items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO quote_lines (quote_id, description, quantity, unit_price, vat_rate, discount_pct)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				quoteID, item.Description, item.Quantity, item.UnitPrice,
				item.VATRate, item.DiscountPct)
			if err != nil {
				return fmt.Errorf("failed to insert quote line: %w", err)
			}
		}

		subtotal, discount, vat, total := quoteTotals(items)
		if _, err := tx.ExecContext(ctx, `
			UPDATE quotes SET subtotal = $1, discount_total = $2, vat_total = $3, total = $4
			WHERE id = $5`,
			subtotal, discount, vat, total, quoteID); err != nil {
			return fmt.Errorf("failed to update quote totals: %w", err)
		}
		quote.Subtotal, quote.DiscountTotal, quote.VATTotal, quote.Total = subtotal, discount, vat, total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// deleteQuote removes a draft quote that has no invoices hanging off it.
func deleteQuote(ctx context.Context, userID, quoteID int64) error {
	return withTx(ctx, func(tx *sql.Tx) error {
		quote, err := fetchOwnedQuote(ctx, tx, quoteID, userID)
		if err != nil {
			return err
		}
		if quote.Status != QuoteDraft {
			return errStateConflict("only draft quotes can be deleted, status is %s", quote.Status)
		}
		var invoiceCount int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM invoices WHERE quote_id = $1`, quoteID).Scan(&invoiceCount); err != nil {
			return fmt.Errorf("failed to count linked invoices: %w", err)
		}
		if invoiceCount > 0 {
			return errStateConflict("quote has %d linked invoice(s)", invoiceCount)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM quotes WHERE id = $1`, quoteID); err != nil {
			return fmt.Errorf("failed to delete quote: %w", err)
		}
		return nil
	})
}

func fetchQuoteLines(ctx context.Context, q querier, quoteID int64) ([]QuoteLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, quote_id, description, quantity, unit_price, vat_rate, discount_pct
		FROM quote_lines WHERE quote_id = $1 ORDER BY id`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote lines: %w", err)
	}
	defer rows.Close()

	lines := make([]QuoteLine, 0)
	for rows.Next() {
		var l QuoteLine
		if err := rows.Scan(&l.ID, &l.QuoteID, &l.Description, &l.Quantity,
			&l.UnitPrice, &l.VATRate, &l.DiscountPct); err != nil {
			return nil, fmt.Errorf("failed to scan quote line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func listQuotes(ctx context.Context, q querier, userID, businessID int64) ([]Quote, error) {
	if _, err := fetchOwnedBusiness(ctx, q, businessID, userID); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, business_id, client_id, project_id, number, status, issue_date,
		       expiry_date, subtotal, discount_total, vat_total, total, created_at
		FROM quotes WHERE business_id = $1 ORDER BY created_at DESC`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		var qt Quote
		if err := rows.Scan(&qt.ID, &qt.BusinessID, &qt.ClientID, &qt.ProjectID,
			&qt.Number, &qt.Status, &qt.IssueDate, &qt.ExpiryDate, &qt.Subtotal,
			&qt.DiscountTotal, &qt.VATTotal, &qt.Total, &qt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, qt)
	}
	return quotes, rows.Err()
}
