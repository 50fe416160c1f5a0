package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// The HTTP layer is a thin 1:1 mapping onto core operations: parse the
// request, call the operation, translate the error kind. Authentication is
// upstream; the trusted user id arrives in the X-User-ID header.

func requireUser(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-User-ID")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
		return 0, false
	}
	return userID, true
}

// respondErr maps the error taxonomy onto status families. Ownership
// violations surface as 404 so probing never confirms a row exists.
func respondErr(c *gin.Context, err error) {
	switch kindOf(err) {
	case kindNotFound, kindOwnership:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case kindInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case kindScopeCoherence:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case kindStateConflict, kindNothingToInvoice:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// scopeFromQuery reads the optional business_id filter. Absent means no
// narrowing; "null" or "personal" means personal entities only.
func scopeFromQuery(c *gin.Context) (scopeFilter, error) {
	raw, present := c.GetQuery("business_id")
	if !present {
		return scopeFilter{}, nil
	}
	if raw == "" || raw == "null" || raw == "personal" {
		return scopeFilter{set: true}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return scopeFilter{}, errInvalidInput("business_id must be a positive id, \"null\" or \"personal\"")
	}
	return scopeFilter{set: true, businessID: &id}, nil
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	if err := db.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "ledger-service"})
}

// ---- accounts ----

func getAccounts(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	scope, err := scopeFromQuery(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	accounts, err := listAccountsWithBalance(c.Request.Context(), db, userID, scope)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func postAccount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var in AccountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := createAccount(c.Request.Context(), db, userID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

// ---- businesses ----

func getBusinesses(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	businesses, err := listBusinesses(c.Request.Context(), db, userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, businesses)
}

func postBusiness(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var in BusinessInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	business, err := createBusiness(c.Request.Context(), db, userID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, business)
}

// ---- categories ----

func getCategories(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	key := categoriesCacheKey(userID)
	var cached []Category
	if cacheGet(ctx, key, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}
	categories, err := listCategories(ctx, db, userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	cacheSet(ctx, key, categories, time.Minute)
	c.JSON(http.StatusOK, categories)
}

func postCategory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var in CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category, err := createCategory(c.Request.Context(), db, userID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	cacheInvalidate(c.Request.Context(), categoriesCacheKey(userID))
	c.JSON(http.StatusCreated, category)
}

// ---- transactions ----

type transactionRequest struct {
	AccountID         int64           `json:"account_id"`
	BusinessID        *int64          `json:"business_id"`
	ProjectID         *int64          `json:"project_id"`
	CategoryID        *int64          `json:"category_id"`
	ContactID         *int64          `json:"contact_id"`
	IncomeSourceID    *int64          `json:"income_source_id"`
	InvoiceID         *int64          `json:"invoice_id"`
	SupplierID        *int64          `json:"supplier_id"`
	RecurringSeriesID *int64          `json:"recurring_series_id"`
	Direction         string          `json:"direction"`
	Amount            decimal.Decimal `json:"amount"`
	Date              string          `json:"date"`
	Label             string          `json:"label"`
	Notes             *string         `json:"notes"`
}

func (r *transactionRequest) toInput() (*TransactionInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return nil, err
	}
	return &TransactionInput{
		AccountID:         r.AccountID,
		BusinessID:        r.BusinessID,
		ProjectID:         r.ProjectID,
		CategoryID:        r.CategoryID,
		ContactID:         r.ContactID,
		IncomeSourceID:    r.IncomeSourceID,
		InvoiceID:         r.InvoiceID,
		SupplierID:        r.SupplierID,
		RecurringSeriesID: r.RecurringSeriesID,
		Direction:         Direction(r.Direction),
		Amount:            r.Amount,
		Date:              date,
		Label:             r.Label,
		Notes:             r.Notes,
	}, nil
}

func getTransactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	scope, err := scopeFromQuery(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	transactions, err := listTransactions(c.Request.Context(), db, userID, scope, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

func postTransaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondErr(c, err)
		return
	}
	txn, err := recordTransaction(c.Request.Context(), db, userID, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func putTransaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondErr(c, err)
		return
	}
	txn, err := updateTransaction(c.Request.Context(), db, userID, id, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func removeTransaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := deleteTransaction(c.Request.Context(), userID, id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction deleted"})
}

type transferRequest struct {
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Label         string          `json:"label"`
}

func postTransfer(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondErr(c, err)
		return
	}
	result, err := recordTransfer(c.Request.Context(), userID,
		req.FromAccountID, req.ToAccountID, req.Amount, date, req.Label)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ---- budgets ----

type budgetRequest struct {
	BusinessID *int64              `json:"business_id"`
	Name       string              `json:"name"`
	Year       *int                `json:"year"`
	Month      *int                `json:"month"`
	StartDate  *string             `json:"start_date"`
	EndDate    *string             `json:"end_date"`
	Scenario   string              `json:"scenario"`
	Limit      decimal.NullDecimal `json:"limit"`
}

func (r *budgetRequest) toInput() (*BudgetInput, error) {
	in := &BudgetInput{
		BusinessID: r.BusinessID,
		Name:       r.Name,
		Year:       r.Year,
		Month:      r.Month,
		Scenario:   r.Scenario,
		Limit:      r.Limit,
	}
	if r.StartDate != nil {
		d, err := parseDate(*r.StartDate)
		if err != nil {
			return nil, err
		}
		in.StartDate = &d
	}
	if r.EndDate != nil {
		d, err := parseDate(*r.EndDate)
		if err != nil {
			return nil, err
		}
		in.EndDate = &d
	}
	return in, nil
}

func getBudgets(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	scope, err := scopeFromQuery(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	budgets, err := listBudgets(c.Request.Context(), db, userID, scope)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, budgets)
}

func postBudget(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req budgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondErr(c, err)
		return
	}
	budget, err := createBudget(c.Request.Context(), db, userID, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, budget)
}

func getCurrentBudget(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ref := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			respondErr(c, err)
			return
		}
		ref = parsed
	}
	budget, err := resolveCurrentPersonalBudget(c.Request.Context(), db, userID, ref)
	if err != nil {
		respondErr(c, err)
		return
	}
	if budget == nil {
		// No budget configured for this month; not an error.
		c.JSON(http.StatusOK, gin.H{"budget": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

func postBudgetLine(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	budgetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in BudgetLineInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	line, err := addBudgetLine(c.Request.Context(), db, userID, budgetID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

func putBudgetLine(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	lineID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in BudgetLineInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	line, err := updateBudgetLine(c.Request.Context(), db, userID, lineID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func removeBudgetLine(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	lineID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := deleteBudgetLine(c.Request.Context(), db, userID, lineID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "budget line deleted"})
}

func getBudgetExecution(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	budgetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	execution, err := computeExecution(c.Request.Context(), db, userID, budgetID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, execution)
}

// ---- projects ----

func getProjects(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	scope, err := scopeFromQuery(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	projects, err := listProjects(c.Request.Context(), db, userID, scope)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func postProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var in ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	project, err := createProject(c.Request.Context(), db, userID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func getProjectFinancials(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	financials, err := computeFinancials(c.Request.Context(), db, userID, projectID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, financials)
}

func getProjectProgress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	progress, err := computeProgress(c.Request.Context(), db, userID, projectID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func patchProjectStatus(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	project, err := setProjectStatus(c.Request.Context(), db, userID, projectID, ProjectStatus(body.Status))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func patchProjectManualProgress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Value decimal.Decimal `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	project, err := setManualProgress(c.Request.Context(), db, userID, projectID, body.Value)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func postProjectTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := addProjectTask(c.Request.Context(), db, userID, projectID, body.Title)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func patchProjectTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Done bool `json:"done"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := setTaskDone(c.Request.Context(), db, userID, taskID, body.Done); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task updated"})
}

func postProjectMilestone(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in MilestoneInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	milestone, err := addProjectMilestone(c.Request.Context(), db, userID, projectID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, milestone)
}

func patchProjectMilestone(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	milestoneID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := setMilestoneStatus(c.Request.Context(), db, userID, milestoneID, MilestoneStatus(body.Status)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "milestone updated"})
}

// ---- savings goals ----

type goalRequest struct {
	BusinessID   *int64          `json:"business_id"`
	AccountID    *int64          `json:"account_id"`
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	TargetDate   *string         `json:"target_date"`
}

func getGoals(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	scope, err := scopeFromQuery(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	goals, err := listSavingsGoals(c.Request.Context(), db, userID, scope)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

func postGoal(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := SavingsGoalInput{
		BusinessID:   req.BusinessID,
		AccountID:    req.AccountID,
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
	}
	if req.TargetDate != nil {
		d, err := parseDate(*req.TargetDate)
		if err != nil {
			respondErr(c, err)
			return
		}
		in.TargetDate = &d
	}
	goal, err := createSavingsGoal(c.Request.Context(), db, userID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func patchGoalStatus(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	goalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	goal, err := transitionGoalStatus(c.Request.Context(), db, userID, goalID, GoalStatus(body.Status))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func postGoalContribution(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	goalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	goal, err := contributeToGoal(c.Request.Context(), db, userID, goalID, body.Amount)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// ---- clients & services ----

func getClients(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	scope, err := scopeFromQuery(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	if !scope.set {
		key := clientsCacheKey(userID)
		var cached []Client
		if cacheGet(ctx, key, &cached) {
			c.JSON(http.StatusOK, cached)
			return
		}
		clients, err := listClients(ctx, db, userID, scope)
		if err != nil {
			respondErr(c, err)
			return
		}
		cacheSet(ctx, key, clients, time.Minute)
		c.JSON(http.StatusOK, clients)
		return
	}
	clients, err := listClients(ctx, db, userID, scope)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func postClient(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var in ClientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := createClient(c.Request.Context(), db, userID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	cacheInvalidate(c.Request.Context(), clientsCacheKey(userID))
	c.JSON(http.StatusCreated, client)
}

func getServices(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	businessID, ok := pathID(c, "id")
	if !ok {
		return
	}
	services, err := listServices(c.Request.Context(), db, userID, businessID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, services)
}

func postService(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	businessID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in ServiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	service, err := createService(c.Request.Context(), db, userID, businessID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, service)
}

// ---- quotes ----

type quoteRequest struct {
	BusinessID int64            `json:"business_id"`
	ClientID   *int64           `json:"client_id"`
	ProjectID  *int64           `json:"project_id"`
	IssueDate  string           `json:"issue_date"`
	ExpiryDate *string          `json:"expiry_date"`
	Items      []QuoteItemInput `json:"items"`
}

func postQuote(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		respondErr(c, err)
		return
	}
	in := QuoteInput{
		BusinessID: req.BusinessID,
		ClientID:   req.ClientID,
		ProjectID:  req.ProjectID,
		IssueDate:  issueDate,
		Items:      req.Items,
	}
	if req.ExpiryDate != nil {
		d, err := parseDate(*req.ExpiryDate)
		if err != nil {
			respondErr(c, err)
			return
		}
		in.ExpiryDate = &d
	}
	quote, err := createQuote(c.Request.Context(), userID, &in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, quote)
}

func getQuotes(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	businessID, ok := pathID(c, "id")
	if !ok {
		return
	}
	quotes, err := listQuotes(c.Request.Context(), db, userID, businessID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, quotes)
}

func getQuoteLines(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quoteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := fetchOwnedQuote(c.Request.Context(), db, quoteID, userID); err != nil {
		respondErr(c, err)
		return
	}
	lines, err := fetchQuoteLines(c.Request.Context(), db, quoteID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

func patchQuoteStatus(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quoteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quote, err := transitionQuoteStatus(c.Request.Context(), db, userID, quoteID, QuoteStatus(body.Status))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func putQuoteLines(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quoteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Items []QuoteItemInput `json:"items"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quote, err := updateQuoteLines(c.Request.Context(), userID, quoteID, body.Items)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func removeQuote(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quoteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := deleteQuote(c.Request.Context(), userID, quoteID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "quote deleted"})
}

type convertRequest struct {
	Type       string          `json:"type"`
	DepositPct decimal.Decimal `json:"deposit_pct"`
	IssueDate  *string         `json:"issue_date"`
}

func postQuoteConversion(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quoteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	issueDate := time.Now()
	if req.IssueDate != nil {
		parsed, err := parseDate(*req.IssueDate)
		if err != nil {
			respondErr(c, err)
			return
		}
		issueDate = parsed
	}
	invoice, err := convertToInvoice(c.Request.Context(), userID, quoteID,
		ConversionType(req.Type), req.DepositPct, issueDate)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// ---- invoices ----

func getInvoices(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	businessID, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoices, err := listInvoices(c.Request.Context(), db, userID, businessID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

type paymentRequest struct {
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
}

func postInvoicePayment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	invoiceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondErr(c, err)
		return
	}
	result, err := registerInvoicePayment(c.Request.Context(), userID, invoiceID,
		req.AccountID, req.Amount, date)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func getInvoicePayments(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	invoiceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	payments, err := fetchInvoicePayments(c.Request.Context(), db, userID, invoiceID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// ---- insights ----

func getPersonalInsights(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	insights := evaluatePersonalInsights(c.Request.Context(), userID, time.Now())
	c.JSON(http.StatusOK, insights)
}

func getBusinessInsights(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	businessID, ok := pathID(c, "id")
	if !ok {
		return
	}
	insights, err := evaluateBusinessInsights(c.Request.Context(), userID, businessID, time.Now())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}
