package main

import (
	"flag"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	migrateCmd := flag.Bool("migrate", false, "Run database migration")
	seedDemoCmd := flag.Bool("seed-demo", false, "Seed demo data (idempotent)")
	flag.Parse()

	if *migrateCmd {
		if err := setupDatabase(); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migration completed successfully")
		os.Exit(0)
	}
	if *seedDemoCmd {
		if err := initDB(); err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize database")
		}
		defer db.Close()
		if err := seedDemoData(db); err != nil {
			logger.Fatal().Err(err).Msg("seeding demo data failed")
		}
		logger.Info().Msg("demo data seeded")
		os.Exit(0)
	}

	if err := initDB(); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	if err := initRedis(); err != nil {
		logger.Warn().Err(err).Msg("failed to initialize Redis, continuing without cache")
		redisClient = nil
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", healthCheck)

	api := r.Group("/api")
	{
		api.GET("/accounts", getAccounts)
		api.POST("/accounts", postAccount)

		api.GET("/businesses", getBusinesses)
		api.POST("/businesses", postBusiness)
		api.GET("/businesses/:id/services", getServices)
		api.POST("/businesses/:id/services", postService)
		api.GET("/businesses/:id/quotes", getQuotes)
		api.GET("/businesses/:id/invoices", getInvoices)
		api.GET("/businesses/:id/insights", getBusinessInsights)

		api.GET("/categories", getCategories)
		api.POST("/categories", postCategory)

		api.GET("/transactions", getTransactions)
		api.POST("/transactions", postTransaction)
		api.PUT("/transactions/:id", putTransaction)
		api.DELETE("/transactions/:id", removeTransaction)
		api.POST("/transfers", postTransfer)

		api.GET("/budgets", getBudgets)
		api.POST("/budgets", postBudget)
		api.GET("/budgets/current", getCurrentBudget)
		api.POST("/budgets/:id/lines", postBudgetLine)
		api.GET("/budgets/:id/execution", getBudgetExecution)
		api.PUT("/budget-lines/:id", putBudgetLine)
		api.DELETE("/budget-lines/:id", removeBudgetLine)

		api.GET("/projects", getProjects)
		api.POST("/projects", postProject)
		api.GET("/projects/:id/financials", getProjectFinancials)
		api.GET("/projects/:id/progress", getProjectProgress)
		api.PATCH("/projects/:id/status", patchProjectStatus)
		api.PATCH("/projects/:id/progress", patchProjectManualProgress)
		api.POST("/projects/:id/tasks", postProjectTask)
		api.POST("/projects/:id/milestones", postProjectMilestone)
		api.PATCH("/tasks/:id", patchProjectTask)
		api.PATCH("/milestones/:id", patchProjectMilestone)

		api.GET("/goals", getGoals)
		api.POST("/goals", postGoal)
		api.PATCH("/goals/:id/status", patchGoalStatus)
		api.POST("/goals/:id/contributions", postGoalContribution)

		api.GET("/clients", getClients)
		api.POST("/clients", postClient)

		api.POST("/quotes", postQuote)
		api.GET("/quotes/:id/lines", getQuoteLines)
		api.PUT("/quotes/:id/lines", putQuoteLines)
		api.PATCH("/quotes/:id/status", patchQuoteStatus)
		api.POST("/quotes/:id/convert", postQuoteConversion)
		api.DELETE("/quotes/:id", removeQuote)

		api.POST("/invoices/:id/payments", postInvoicePayment)
		api.GET("/invoices/:id/payments", getInvoicePayments)

		api.GET("/insights", getPersonalInsights)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("server starting")
	if err := r.Run(":" + port); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
