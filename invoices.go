package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// conversionAmount computes how much of an accepted quote a conversion
// bills. deposit takes a percentage of the total, final takes whatever has
// not been invoiced yet, full takes everything.
func conversionAmount(convType ConversionType, quoteTotal, alreadyInvoiced decimal.Decimal, depositPct decimal.Decimal) (decimal.Decimal, error) {
	switch convType {
	case ConvertDeposit:
		if !depositPct.IsPositive() || depositPct.GreaterThan(hundred) {
			return decimal.Zero, errInvalidInput("deposit percentage must be in (0, 100]")
		}
		return quoteTotal.Mul(depositPct).Div(hundred).Round(2), nil
	case ConvertFinal:
		return quoteTotal.Sub(alreadyInvoiced), nil
	case ConvertFull:
		return quoteTotal, nil
	default:
		return decimal.Zero, errInvalidInput("unknown conversion type %q", convType)
	}
}

// splitInvoiceTotals carries the quote's net/VAT ratio onto a partial
// invoice so the two lines still add up to the invoiced amount.
func splitInvoiceTotals(amount, quoteSubtotal, quoteTotal decimal.Decimal) (subtotal, vat decimal.Decimal) {
	if quoteTotal.IsZero() {
		return amount, decimal.Zero
	}
	subtotal = amount.Mul(quoteSubtotal).Div(quoteTotal).Round(2)
	vat = amount.Sub(subtotal)
	return subtotal, vat
}

// convertToInvoice turns an accepted quote into an invoice. The invoiced
// amount, the number allocation and the insert commit together or not at
// all.
func convertToInvoice(ctx context.Context, userID, quoteID int64, convType ConversionType, depositPct decimal.Decimal, issueDate time.Time) (*Invoice, error) {
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	var invoice Invoice
	err := withTx(ctx, func(tx *sql.Tx) error {
		quote, err := fetchOwnedQuote(ctx, tx, quoteID, userID)
		if err != nil {
			return err
		}
		if quote.Status != QuoteAccepted {
			return errStateConflict("only accepted quotes can be invoiced, status is %s", quote.Status)
		}
		business, err := fetchOwnedBusiness(ctx, tx, quote.BusinessID, userID)
		if err != nil {
			return err
		}

		var alreadyInvoiced decimal.Decimal
		err = tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(total), 0) FROM invoices
			WHERE quote_id = $1 AND status <> 'cancelled'`, quoteID).Scan(&alreadyInvoiced)
		if err != nil {
			return fmt.Errorf("failed to sum invoiced amounts: %w", err)
		}

		amount, err := conversionAmount(convType, quote.Total, alreadyInvoiced, depositPct)
		if err != nil {
			return err
		}
		if !amount.IsPositive() {
			return errNothingToInvoice()
		}

		number, err := allocateInvoiceNumber(ctx, tx, quote.BusinessID)
		if err != nil {
			return err
		}
		subtotal, vat := splitInvoiceTotals(amount, quote.Subtotal, quote.Total)
		issue := normalizeDate(issueDate)
		ct := convType

		invoice = Invoice{
			BusinessID:     quote.BusinessID,
			ClientID:       quote.ClientID,
			QuoteID:        &quote.ID,
			Number:         number,
			Status:         InvoiceIssued,
			ConversionType: &ct,
			IssueDate:      issue,
			DueDate:        issue.AddDate(0, 0, business.PaymentTermsDays),
			Subtotal:       subtotal,
			VATTotal:       vat,
			Total:          amount,
			AmountPaid:     decimal.Zero,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO invoices (business_id, client_id, quote_id, number, status,
				conversion_type, issue_date, due_date, subtotal, vat_total, total, amount_paid)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at`,
			invoice.BusinessID, invoice.ClientID, invoice.QuoteID, invoice.Number,
			invoice.Status, invoice.ConversionType, invoice.IssueDate, invoice.DueDate,
			invoice.Subtotal, invoice.VATTotal, invoice.Total, invoice.AmountPaid).Scan(
			&invoice.ID, &invoice.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// paymentStatus derives the post-payment invoice status from the cached
// paid amount. Fully covered means paid, anything in between means
// partially paid, zero leaves the current status alone.
func paymentStatus(total, paid decimal.Decimal, current InvoiceStatus) InvoiceStatus {
	if paid.GreaterThanOrEqual(total) {
		return InvoicePaid
	}
	if paid.IsPositive() {
		return InvoicePartiallyPaid
	}
	return current
}

// PaymentResult bundles what registerInvoicePayment writes.
type PaymentResult struct {
	Transaction *Transaction `json:"transaction"`
	Invoice     *Invoice     `json:"invoice"`
}

// registerInvoicePayment records the cash movement in the ledger, bumps
// the invoice's cached paid amount and re-derives its status, atomically.
func registerInvoicePayment(ctx context.Context, userID, invoiceID, accountID int64, amount decimal.Decimal, date time.Time) (*PaymentResult, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var result PaymentResult
	err := withTx(ctx, func(tx *sql.Tx) error {
		invoice, err := fetchOwnedInvoice(ctx, tx, invoiceID, userID)
		if err != nil {
			return err
		}
		switch invoice.Status {
		case InvoiceDraft:
			return errStateConflict("invoice has not been issued yet")
		case InvoiceCancelled:
			return errStateConflict("invoice is cancelled")
		case InvoicePaid:
			return errStateConflict("invoice is already fully paid")
		}

		newPaid := invoice.AmountPaid.Add(amount)
		// The cached paid amount may never exceed the invoice total.
		if newPaid.GreaterThan(invoice.Total) {
			return errInvalidInput("payment of %s would exceed the remaining balance of %s",
				amount, invoice.Total.Sub(invoice.AmountPaid))
		}

		account, err := fetchOwnedAccount(ctx, tx, accountID, userID)
		if err != nil {
			return err
		}

		txn, err := insertTransaction(ctx, tx, userID, &TransactionInput{
			AccountID:  account.ID,
			BusinessID: account.BusinessID,
			InvoiceID:  &invoice.ID,
			Direction:  DirectionIn,
			Amount:     amount,
			Date:       date,
			Label:      fmt.Sprintf("Payment %s", invoice.Number),
		}, nil)
		if err != nil {
			return err
		}

		var payment InvoicePayment
		err = tx.QueryRowContext(ctx, `
			INSERT INTO invoice_payments (invoice_id, transaction_id, amount, date)
			VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
			invoice.ID, txn.ID, amount, normalizeDate(date)).Scan(&payment.ID, &payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert invoice payment: %w", err)
		}

		newStatus := paymentStatus(invoice.Total, newPaid, invoice.Status)
		if _, err := tx.ExecContext(ctx,
			`UPDATE invoices SET amount_paid = $1, status = $2 WHERE id = $3`,
			newPaid, newStatus, invoice.ID); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		invoice.AmountPaid = newPaid
		invoice.Status = newStatus
		result.Transaction = txn
		result.Invoice = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// overdueAuto gates the derived-overdue refresh. The previous behavior
// treated overdue as a stored value; deriving it is the correction, but the
// stored mode remains reachable for data imported from older systems.
func overdueAuto() bool {
	return os.Getenv("OVERDUE_AUTO") != "off"
}

// refreshOverdueStatus re-derives overdue from due dates: anything issued
// or partially paid past its due date flips to overdue.
func refreshOverdueStatus(ctx context.Context, q querier, businessID int64, today time.Time) error {
	if !overdueAuto() {
		return nil
	}
	_, err := q.ExecContext(ctx, `
		UPDATE invoices SET status = 'overdue'
		WHERE business_id = $1 AND status IN ('issued', 'partially_paid') AND due_date < $2`,
		businessID, normalizeDate(today))
	if err != nil {
		return fmt.Errorf("failed to refresh overdue invoices: %w", err)
	}
	return nil
}

func listInvoices(ctx context.Context, q querier, userID, businessID int64) ([]Invoice, error) {
	if _, err := fetchOwnedBusiness(ctx, q, businessID, userID); err != nil {
		return nil, err
	}
	if err := refreshOverdueStatus(ctx, q, businessID, time.Now()); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, business_id, client_id, quote_id, number, status, conversion_type,
		       issue_date, due_date, subtotal, vat_total, total, amount_paid, created_at
		FROM invoices WHERE business_id = $1 ORDER BY created_at DESC`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]Invoice, 0)
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.BusinessID, &inv.ClientID, &inv.QuoteID,
			&inv.Number, &inv.Status, &inv.ConversionType, &inv.IssueDate, &inv.DueDate,
			&inv.Subtotal, &inv.VATTotal, &inv.Total, &inv.AmountPaid, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func fetchInvoicePayments(ctx context.Context, q querier, userID, invoiceID int64) ([]InvoicePayment, error) {
	if _, err := fetchOwnedInvoice(ctx, q, invoiceID, userID); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, invoice_id, transaction_id, amount, date, created_at
		FROM invoice_payments WHERE invoice_id = $1 ORDER BY date, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice payments: %w", err)
	}
	defer rows.Close()

	payments := make([]InvoicePayment, 0)
	for rows.Next() {
		var p InvoicePayment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.TransactionID, &p.Amount,
			&p.Date, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
