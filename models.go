package main

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction marks which way money moved. Amounts are always stored
// positive; the sign is applied at aggregation time only.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

func (d Direction) valid() bool { return d == DirectionIn || d == DirectionOut }

// User is the owner of everything else. Auth lives upstream; the service
// only ever sees a resolved user id.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Business is an activity scope under a user. It carries the quote and
// invoice number counters and the billing defaults.
type Business struct {
	ID                 int64               `json:"id"`
	UserID             int64               `json:"user_id"`
	Name               string              `json:"name"`
	QuoteSeq           int64               `json:"quote_seq"`
	InvoiceSeq         int64               `json:"invoice_seq"`
	PaymentTermsDays   int                 `json:"payment_terms_days"`
	MonthlyRevenueGoal decimal.NullDecimal `json:"monthly_revenue_goal"`
	CreatedAt          time.Time           `json:"created_at"`
}

// Account holds money in one currency. Balance is never stored; it is
// recomputed from the ledger on every read.
type Account struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	BusinessID        *int64    `json:"business_id"`
	Name              string    `json:"name"`
	Currency          string    `json:"currency"`
	Active            bool      `json:"active"`
	IncludeInBudget   bool      `json:"include_in_budget"`
	IncludeInNetWorth bool      `json:"include_in_net_worth"`
	CreatedAt         time.Time `json:"created_at"`
}

// AccountWithBalance pairs an account with its derived balance.
type AccountWithBalance struct {
	Account
	Balance decimal.Decimal `json:"balance"`
}

type Category struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"` // income | expense
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type Contact struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type IncomeSource struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Supplier struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type RecurringSeries struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is a single ledger entry. It is the sole source of truth for
// balances and every derived aggregate.
type Transaction struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	AccountID         int64           `json:"account_id"`
	BusinessID        *int64          `json:"business_id"`
	ProjectID         *int64          `json:"project_id"`
	CategoryID        *int64          `json:"category_id"`
	ContactID         *int64          `json:"contact_id"`
	IncomeSourceID    *int64          `json:"income_source_id"`
	InvoiceID         *int64          `json:"invoice_id"`
	SupplierID        *int64          `json:"supplier_id"`
	RecurringSeriesID *int64          `json:"recurring_series_id"`
	TransferRef       *string         `json:"transfer_ref"`
	Direction         Direction       `json:"direction"`
	Amount            decimal.Decimal `json:"amount"`
	Date              time.Time       `json:"date"`
	Label             string          `json:"label"`
	Notes             *string         `json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Budget is a period-scoped spending envelope. Either (Year, Month) or
// (StartDate, EndDate) is set, never both.
type Budget struct {
	ID         int64               `json:"id"`
	UserID     int64               `json:"user_id"`
	BusinessID *int64              `json:"business_id"`
	Name       string              `json:"name"`
	Year       *int                `json:"year"`
	Month      *int                `json:"month"`
	StartDate  *time.Time          `json:"start_date"`
	EndDate    *time.Time          `json:"end_date"`
	Scenario   string              `json:"scenario"`
	Limit      decimal.NullDecimal `json:"limit"`
	CreatedAt  time.Time           `json:"created_at"`
}

type BudgetLine struct {
	ID             int64               `json:"id"`
	BudgetID       int64               `json:"budget_id"`
	CategoryID     int64               `json:"category_id"`
	Limit          decimal.NullDecimal `json:"limit"`
	Priority       int                 `json:"priority"`
	AlertThreshold int                 `json:"alert_threshold"`
	CreatedAt      time.Time           `json:"created_at"`
}

// BudgetExecution is the planned-vs-actual comparison for one budget,
// recomputed from the ledger on every call.
type BudgetExecution struct {
	BudgetID      int64                 `json:"budget_id"`
	Limit         decimal.NullDecimal   `json:"spending_limit"`
	Lines         []BudgetLineExecution `json:"lines"`
	TotalPlanned  decimal.Decimal       `json:"total_planned"`
	TotalActual   decimal.Decimal       `json:"total_actual"`
	TotalVariance decimal.Decimal       `json:"total_variance"`
	OverallActual decimal.Decimal       `json:"overall_actual"`
}

type BudgetLineExecution struct {
	Line     BudgetLine      `json:"line"`
	Planned  decimal.Decimal `json:"planned"`
	Actual   decimal.Decimal `json:"actual"`
	Variance decimal.Decimal `json:"variance"`
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

type ProgressMode string

const (
	ProgressManual     ProgressMode = "manual"
	ProgressTasks      ProgressMode = "tasks"
	ProgressMilestones ProgressMode = "milestones"
	ProgressFinancial  ProgressMode = "financial"
)

type Project struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	BusinessID     *int64          `json:"business_id"`
	ClientID       *int64          `json:"client_id"`
	Name           string          `json:"name"`
	Status         ProjectStatus   `json:"status"`
	Currency       string          `json:"currency"`
	BudgetAmount   decimal.Decimal `json:"budget_amount"`
	ProgressMode   ProgressMode    `json:"progress_mode"`
	ManualProgress decimal.Decimal `json:"manual_progress"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ProjectTask struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "not_started"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestoneCancelled  MilestoneStatus = "cancelled"
)

type ProjectMilestone struct {
	ID        int64           `json:"id"`
	ProjectID int64           `json:"project_id"`
	Title     string          `json:"title"`
	Position  int             `json:"position"`
	Weight    *int            `json:"weight"` // 0–100, nil when unweighted
	Status    MilestoneStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// ProjectService is a service rendered within a project.
type ProjectService struct {
	ID        int64           `json:"id"`
	ProjectID int64           `json:"project_id"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

type ProjectFinancials struct {
	ProjectID    int64           `json:"project_id"`
	Revenue      decimal.Decimal `json:"revenue"`
	Costs        decimal.Decimal `json:"costs"`
	Margin       decimal.Decimal `json:"margin"`
	RevenueCount int             `json:"revenue_count"`
	CostsCount   int             `json:"costs_count"`
}

type ProjectProgress struct {
	ProjectID int64           `json:"project_id"`
	Mode      ProgressMode    `json:"mode"`
	Value     decimal.Decimal `json:"value"` // 0–150
	Details   map[string]any  `json:"details"`
}

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalPaused    GoalStatus = "paused"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

type SavingsGoal struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	BusinessID    *int64          `json:"business_id"`
	AccountID     *int64          `json:"account_id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	TargetDate    *time.Time      `json:"target_date"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Status        GoalStatus      `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Client is a billing counterparty. BusinessID nil marks a project-only
// "soft" client that has not been promoted into a business catalog yet.
type Client struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	BusinessID *int64    `json:"business_id"`
	Name       string    `json:"name"`
	Email      *string   `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service is a catalog entry reusable across quotes and invoices.
type Service struct {
	ID         int64           `json:"id"`
	BusinessID int64           `json:"business_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	VATRate    decimal.Decimal `json:"vat_rate"`
	CreatedAt  time.Time       `json:"created_at"`
}

type QuoteStatus string

const (
	QuoteDraft     QuoteStatus = "draft"
	QuoteSent      QuoteStatus = "sent"
	QuoteAccepted  QuoteStatus = "accepted"
	QuoteRejected  QuoteStatus = "rejected"
	QuoteExpired   QuoteStatus = "expired"
	QuoteCancelled QuoteStatus = "cancelled"
)

type Quote struct {
	ID            int64           `json:"id"`
	BusinessID    int64           `json:"business_id"`
	ClientID      *int64          `json:"client_id"`
	ProjectID     *int64          `json:"project_id"`
	Number        string          `json:"number"`
	Status        QuoteStatus     `json:"status"`
	IssueDate     time.Time       `json:"issue_date"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	VATTotal      decimal.Decimal `json:"vat_total"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

type QuoteLine struct {
	ID          int64           `json:"id"`
	QuoteID     int64           `json:"quote_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceIssued        InvoiceStatus = "issued"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceOverdue       InvoiceStatus = "overdue"
	InvoiceCancelled     InvoiceStatus = "cancelled"
)

// ConversionType says which slice of a quote an invoice bills.
type ConversionType string

const (
	ConvertDeposit ConversionType = "deposit"
	ConvertFinal   ConversionType = "final"
	ConvertFull    ConversionType = "full"
)

type Invoice struct {
	ID             int64           `json:"id"`
	BusinessID     int64           `json:"business_id"`
	ClientID       *int64          `json:"client_id"`
	QuoteID        *int64          `json:"quote_id"`
	Number         string          `json:"number"`
	Status         InvoiceStatus   `json:"status"`
	ConversionType *ConversionType `json:"conversion_type"`
	IssueDate      time.Time       `json:"issue_date"`
	DueDate        time.Time       `json:"due_date"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	VATTotal       decimal.Decimal `json:"vat_total"`
	Total          decimal.Decimal `json:"total"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	CreatedAt      time.Time       `json:"created_at"`
}

type InvoicePayment struct {
	ID            int64           `json:"id"`
	InvoiceID     int64           `json:"invoice_id"`
	TransactionID *int64          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Insight is a transient finding from the rule engine. Never persisted.
type Insight struct {
	Category string         `json:"category"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}
