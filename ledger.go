package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxAmount is a sanity ceiling on any single ledger entry; anything at or
// above it is treated as caller error rather than stored.
var maxAmount = decimal.New(1, 12)

// TransactionInput carries every field a caller may set on a ledger entry.
// Optional links are pointers; each one set is independently ownership
// checked before anything is written.
type TransactionInput struct {
	AccountID         int64           `json:"account_id"`
	BusinessID        *int64          `json:"business_id"`
	ProjectID         *int64          `json:"project_id"`
	CategoryID        *int64          `json:"category_id"`
	ContactID         *int64          `json:"contact_id"`
	IncomeSourceID    *int64          `json:"income_source_id"`
	InvoiceID         *int64          `json:"invoice_id"`
	SupplierID        *int64          `json:"supplier_id"`
	RecurringSeriesID *int64          `json:"recurring_series_id"`
	Direction         Direction       `json:"direction"`
	Amount            decimal.Decimal `json:"amount"`
	Date              time.Time       `json:"date"`
	Label             string          `json:"label"`
	Notes             *string         `json:"notes"`
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errInvalidInput("amount must be positive, got %s", amount)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return errInvalidInput("amount %s exceeds the supported range", amount)
	}
	return nil
}

// validateTransactionInput resolves and ownership-checks every referenced
// entity, then asserts scope coherence against the caller-declared business
// scope. Scope is never inferred transitively from a linked entity.
func validateTransactionInput(ctx context.Context, q querier, userID int64, in *TransactionInput) (*Account, error) {
	if !in.Direction.valid() {
		return nil, errInvalidInput("direction must be %q or %q", DirectionIn, DirectionOut)
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Label) == "" {
		return nil, errInvalidInput("label is required")
	}
	if in.Date.IsZero() {
		return nil, errInvalidInput("date is required")
	}

	account, err := fetchOwnedAccount(ctx, q, in.AccountID, userID)
	if err != nil {
		return nil, err
	}
	if !sameScope(in.BusinessID, account.BusinessID) {
		return nil, errScopeCoherence("transaction business scope does not match account scope")
	}

	if in.CategoryID != nil {
		if _, err := fetchOwnedCategory(ctx, q, *in.CategoryID, userID); err != nil {
			return nil, err
		}
	}
	if in.ProjectID != nil {
		project, err := fetchOwnedProject(ctx, q, *in.ProjectID, userID)
		if err != nil {
			return nil, err
		}
		// A personal project may receive entries from any scope; a business
		// project only from its own business.
		if project.BusinessID != nil && !sameScope(in.BusinessID, project.BusinessID) {
			return nil, errScopeCoherence("project belongs to a different business scope")
		}
	}
	if in.ContactID != nil {
		if _, err := fetchOwnedContact(ctx, q, *in.ContactID, userID); err != nil {
			return nil, err
		}
	}
	if in.IncomeSourceID != nil {
		if _, err := fetchOwnedIncomeSource(ctx, q, *in.IncomeSourceID, userID); err != nil {
			return nil, err
		}
	}
	if in.InvoiceID != nil {
		if _, err := fetchOwnedInvoice(ctx, q, *in.InvoiceID, userID); err != nil {
			return nil, err
		}
	}
	if in.SupplierID != nil {
		if _, err := fetchOwnedSupplier(ctx, q, *in.SupplierID, userID); err != nil {
			return nil, err
		}
	}
	if in.RecurringSeriesID != nil {
		if _, err := fetchOwnedRecurringSeries(ctx, q, *in.RecurringSeriesID, userID); err != nil {
			return nil, err
		}
	}
	return account, nil
}

const insertTransactionSQL = `
	INSERT INTO transactions (user_id, account_id, business_id, project_id,
		category_id, contact_id, income_source_id, invoice_id, supplier_id,
		recurring_series_id, transfer_ref, direction, amount, date, label, notes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING id, created_at`

func insertTransaction(ctx context.Context, q querier, userID int64, in *TransactionInput, transferRef *string) (*Transaction, error) {
	t := Transaction{
		UserID:            userID,
		AccountID:         in.AccountID,
		BusinessID:        in.BusinessID,
		ProjectID:         in.ProjectID,
		CategoryID:        in.CategoryID,
		ContactID:         in.ContactID,
		IncomeSourceID:    in.IncomeSourceID,
		InvoiceID:         in.InvoiceID,
		SupplierID:        in.SupplierID,
		RecurringSeriesID: in.RecurringSeriesID,
		TransferRef:       transferRef,
		Direction:         in.Direction,
		Amount:            in.Amount,
		Date:              normalizeDate(in.Date),
		Label:             in.Label,
		Notes:             in.Notes,
	}
	err := q.QueryRowContext(ctx, insertTransactionSQL,
		t.UserID, t.AccountID, t.BusinessID, t.ProjectID, t.CategoryID,
		t.ContactID, t.IncomeSourceID, t.InvoiceID, t.SupplierID,
		t.RecurringSeriesID, t.TransferRef, t.Direction, t.Amount, t.Date,
		t.Label, t.Notes).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return &t, nil
}

// recordTransaction validates and appends a single ledger entry.
func recordTransaction(ctx context.Context, q querier, userID int64, in *TransactionInput) (*Transaction, error) {
	if _, err := validateTransactionInput(ctx, q, userID, in); err != nil {
		return nil, err
	}
	return insertTransaction(ctx, q, userID, in, nil)
}

// TransferResult is the pair of entries a transfer produces.
type TransferResult struct {
	Out *Transaction `json:"out"`
	In  *Transaction `json:"in"`
}

// recordTransfer atomically creates an out entry on the source account and
// an in entry on the destination. Each leg carries its own account's
// business scope, so personal→business movements are representable.
func recordTransfer(ctx context.Context, userID, fromAccountID, toAccountID int64, amount decimal.Decimal, date time.Time, label string) (*TransferResult, error) {
	if fromAccountID == toAccountID {
		return nil, errInvalidInput("source and destination accounts must differ")
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(label) == "" {
		label = "Transfer"
	}

	ref := uuid.NewString()
	var result TransferResult
	err := withTx(ctx, func(tx *sql.Tx) error {
		from, err := fetchOwnedAccount(ctx, tx, fromAccountID, userID)
		if err != nil {
			return err
		}
		to, err := fetchOwnedAccount(ctx, tx, toAccountID, userID)
		if err != nil {
			return err
		}

		out, err := insertTransaction(ctx, tx, userID, &TransactionInput{
			AccountID:  from.ID,
			BusinessID: from.BusinessID,
			Direction:  DirectionOut,
			Amount:     amount,
			Date:       date,
			Label:      label,
		}, &ref)
		if err != nil {
			return err
		}
		in, err := insertTransaction(ctx, tx, userID, &TransactionInput{
			AccountID:  to.ID,
			BusinessID: to.BusinessID,
			Direction:  DirectionIn,
			Amount:     amount,
			Date:       date,
			Label:      label,
		}, &ref)
		if err != nil {
			return err
		}
		result.Out, result.In = out, in
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// updateTransaction replaces every caller-settable field and re-runs the
// full validation surface, exactly as creation does.
func updateTransaction(ctx context.Context, q querier, userID, id int64, in *TransactionInput) (*Transaction, error) {
	existing, err := fetchOwnedTransaction(ctx, q, id, userID)
	if err != nil {
		return nil, err
	}
	if existing.TransferRef != nil {
		return nil, errStateConflict("transfer legs cannot be edited individually")
	}
	if _, err := validateTransactionInput(ctx, q, userID, in); err != nil {
		return nil, err
	}

	_, err = q.ExecContext(ctx, `
		UPDATE transactions SET account_id = $1, business_id = $2, project_id = $3,
			category_id = $4, contact_id = $5, income_source_id = $6,
			invoice_id = $7, supplier_id = $8, recurring_series_id = $9,
			direction = $10, amount = $11, date = $12, label = $13, notes = $14
		WHERE id = $15`,
		in.AccountID, in.BusinessID, in.ProjectID, in.CategoryID, in.ContactID,
		in.IncomeSourceID, in.InvoiceID, in.SupplierID, in.RecurringSeriesID,
		in.Direction, in.Amount, normalizeDate(in.Date), in.Label, in.Notes, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return fetchOwnedTransaction(ctx, q, id, userID)
}

// deleteTransaction removes an entry. Both legs of a transfer go together;
// deleting one without the other would corrupt balances on the far side.
func deleteTransaction(ctx context.Context, userID, id int64) error {
	return withTx(ctx, func(tx *sql.Tx) error {
		t, err := fetchOwnedTransaction(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if t.TransferRef != nil {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM transactions WHERE transfer_ref = $1 AND user_id = $2`,
				*t.TransferRef, userID)
		} else {
			_, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
		}
		if err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		return nil
	})
}

// ledgerEntry is the minimal shape balance and aggregate folds work on.
type ledgerEntry struct {
	Direction Direction
	Amount    decimal.Decimal
}

// signedTotal folds entries into a balance: in adds, out subtracts. The
// sign exists only here, never in storage.
func signedTotal(entries []ledgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Direction == DirectionIn {
			total = total.Add(e.Amount)
		} else {
			total = total.Sub(e.Amount)
		}
	}
	return total
}

func fetchAccountEntries(ctx context.Context, q querier, accountID int64) ([]ledgerEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT direction, amount FROM transactions WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query account entries: %w", err)
	}
	defer rows.Close()

	var entries []ledgerEntry
	for rows.Next() {
		var e ledgerEntry
		if err := rows.Scan(&e.Direction, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// computeAccountBalance derives the balance from the ledger on demand.
// There is no stored balance anywhere to drift out of sync.
func computeAccountBalance(ctx context.Context, q querier, userID, accountID int64) (decimal.Decimal, error) {
	if _, err := fetchOwnedAccount(ctx, q, accountID, userID); err != nil {
		return decimal.Zero, err
	}
	entries, err := fetchAccountEntries(ctx, q, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return signedTotal(entries), nil
}

// scopeFilter narrows listings to personal entities or one business.
// Unset means no scope narrowing.
type scopeFilter struct {
	set        bool
	businessID *int64
}

func (f scopeFilter) apply(clause *strings.Builder, args *[]any) {
	if !f.set {
		return
	}
	if f.businessID == nil {
		clause.WriteString(" AND business_id IS NULL")
		return
	}
	*args = append(*args, *f.businessID)
	fmt.Fprintf(clause, " AND business_id = $%d", len(*args))
}

// listAccountsWithBalance returns the user's accounts in the given scope,
// each with its derived balance.
func listAccountsWithBalance(ctx context.Context, q querier, userID int64, scope scopeFilter) ([]AccountWithBalance, error) {
	var where strings.Builder
	args := []any{userID}
	scope.apply(&where, &args)

	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, business_id, name, currency, active,
		       include_in_budget, include_in_net_worth, created_at
		FROM accounts WHERE user_id = $1`+where.String()+` ORDER BY name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]AccountWithBalance, 0)
	for rows.Next() {
		var a AccountWithBalance
		if err := rows.Scan(&a.ID, &a.UserID, &a.BusinessID, &a.Name, &a.Currency,
			&a.Active, &a.IncludeInBudget, &a.IncludeInNetWorth, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range accounts {
		entries, err := fetchAccountEntries(ctx, q, accounts[i].ID)
		if err != nil {
			return nil, err
		}
		accounts[i].Balance = signedTotal(entries)
	}
	return accounts, nil
}

// transactionQueryLimit clamps a caller-supplied page size: unset falls back
// to 100 rows, oversized requests get the 500-row maximum.
func transactionQueryLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 500:
		return 500
	}
	return limit
}

// listTransactions returns the user's entries, newest date first, scoped and
// optionally capped.
func listTransactions(ctx context.Context, q querier, userID int64, scope scopeFilter, limit int) ([]Transaction, error) {
	var where strings.Builder
	args := []any{userID}
	scope.apply(&where, &args)
	args = append(args, transactionQueryLimit(limit))

	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, user_id, account_id, business_id, project_id, category_id,
		       contact_id, income_source_id, invoice_id, supplier_id,
		       recurring_series_id, transfer_ref, direction, amount, date,
		       label, notes, created_at
		FROM transactions WHERE user_id = $1%s
		ORDER BY date DESC, created_at DESC LIMIT $%d`, where.String(), len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &t.BusinessID,
			&t.ProjectID, &t.CategoryID, &t.ContactID, &t.IncomeSourceID,
			&t.InvoiceID, &t.SupplierID, &t.RecurringSeriesID, &t.TransferRef,
			&t.Direction, &t.Amount, &t.Date, &t.Label, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
