package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/models/reports"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/petfriendlyvet/ledger_backend/workflow"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// requestContextMiddleware stamps every request with a correlation id and the
// calling user (from headers until a real auth layer fronts this service).
func requestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.GetHeader("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		if user := c.GetHeader("X-User-Name"); user != "" {
			ctx = utils.SetUserNameInContext(ctx, user)
		}
		if strings.EqualFold(c.GetHeader("X-Is-Admin"), "true") {
			ctx = utils.SetIsAdminInContext(ctx, true)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Correlation-Id", correlationId)
		c.Next()
	}
}

// respondError maps the error taxonomy onto status codes: business-rule
// violations are 422, bad input 400, missing rows 404, integrity breaks 409.
func respondError(c *gin.Context, err error) {
	var unbalanced *models.UnbalancedEntryError
	var periodClosed *models.PeriodClosedError
	var inactive *models.InactiveAccountError
	var duplicateCode *models.DuplicateCodeError
	var overpayment *models.OverpaymentError
	var duplicateInvoice *models.DuplicateVendorInvoiceError
	var notReconciled *models.NotReconciledError
	var integrity *models.IntegrityError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &unbalanced),
		errors.As(err, &periodClosed),
		errors.As(err, &inactive),
		errors.As(err, &duplicateCode),
		errors.As(err, &overpayment),
		errors.As(err, &duplicateInvoice),
		errors.As(err, &notReconciled):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &integrity):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrIdempotencyInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "processing in progress, retry later"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func bindOrAbort(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "fields": utils.ProcessValidationErrors(err)})
		return false
	}
	return true
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func dateQuery(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s %q", name, raw)})
		return time.Time{}, false
	}
	return t, true
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	// Chart of accounts.
	api.POST("/accounts", func(c *gin.Context) {
		var input models.NewAccount
		if !bindOrAbort(c, &input) {
			return
		}
		account, err := models.CreateAccount(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account)
	})
	api.GET("/accounts", func(c *gin.Context) {
		activeOnly := !strings.EqualFold(c.Query("include_inactive"), "true")
		accounts, err := models.GetAccounts(c.Request.Context(), activeOnly)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, accounts)
	})
	api.GET("/accounts/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		account, err := models.GetAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	})
	api.PUT("/accounts/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.UpdateAccountInput
		if !bindOrAbort(c, &input) {
			return
		}
		account, err := models.UpdateAccount(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	})
	api.DELETE("/accounts/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		if err := models.DeactivateAccount(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	api.GET("/accounts/:id/balance", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		asOf, ok := dateQuery(c, "as_of", time.Now().UTC())
		if !ok {
			return
		}
		rolled := strings.EqualFold(c.Query("rolled_up"), "true")
		var (
			balance interface{}
			err     error
		)
		if rolled {
			balance, err = models.GetRolledUpBalance(c.Request.Context(), id, asOf)
		} else {
			balance, err = models.GetAccountBalance(c.Request.Context(), id, asOf)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"account_id": id, "as_of": asOf.Format("2006-01-02"), "balance": balance})
	})

	// Journal entries.
	api.POST("/journal-entries", func(c *gin.Context) {
		var input models.NewJournalEntry
		if !bindOrAbort(c, &input) {
			return
		}
		if strings.EqualFold(c.Query("draft"), "true") {
			entry, err := models.CreateDraftEntry(c.Request.Context(), &input)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusCreated, entry)
			return
		}
		entry, err := workflow.PostNewEntry(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	})
	api.GET("/journal-entries/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		entry, err := models.GetEntry(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	})
	api.POST("/journal-entries/:id/post", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		entry, err := workflow.PostDraftEntry(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	})
	api.POST("/journal-entries/:id/void", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var body struct {
			Reason string `json:"reason" binding:"required"`
		}
		if !bindOrAbort(c, &body) {
			return
		}
		reversal, err := workflow.VoidEntry(c.Request.Context(), id, body.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reversal)
	})

	// External producers.
	api.POST("/transactions", func(c *gin.Context) {
		var input workflow.ExternalTransaction
		if !bindOrAbort(c, &input) {
			return
		}
		entry, err := workflow.RecordExternalTransaction(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	})

	// Vendors and bills.
	api.POST("/vendors", func(c *gin.Context) {
		var input models.NewVendor
		if !bindOrAbort(c, &input) {
			return
		}
		vendor, err := models.CreateVendor(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, vendor)
	})
	api.GET("/vendors", func(c *gin.Context) {
		vendors, err := models.GetVendors(c.Request.Context(), true)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, vendors)
	})
	api.POST("/bills", func(c *gin.Context) {
		var input models.NewBill
		if !bindOrAbort(c, &input) {
			return
		}
		bill, err := models.CreateBill(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, bill)
	})
	api.POST("/bills/:id/approve", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		bill, err := workflow.ApproveBill(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	})
	api.POST("/bill-payments", func(c *gin.Context) {
		var input models.NewBillPayment
		if !bindOrAbort(c, &input) {
			return
		}
		payment, err := workflow.PayBill(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	})
	api.POST("/bills/:id/void", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var body struct {
			Reason string `json:"reason" binding:"required"`
		}
		if !bindOrAbort(c, &body) {
			return
		}
		if err := workflow.VoidBill(c.Request.Context(), id, body.Reason); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	// Customers and invoices.
	api.POST("/customers", func(c *gin.Context) {
		var input models.NewCustomer
		if !bindOrAbort(c, &input) {
			return
		}
		customer, err := models.CreateCustomer(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, customer)
	})
	api.POST("/invoices", func(c *gin.Context) {
		var input models.NewInvoice
		if !bindOrAbort(c, &input) {
			return
		}
		invoice, err := models.CreateInvoice(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	})
	api.POST("/invoices/:id/issue", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		invoice, err := workflow.IssueInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	})
	api.POST("/invoice-payments", func(c *gin.Context) {
		var input models.NewInvoicePayment
		if !bindOrAbort(c, &input) {
			return
		}
		payment, err := workflow.ReceiveInvoicePayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	})

	// Periods.
	api.POST("/periods/:id/close", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		period, err := workflow.ClosePeriod(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, period)
	})
	api.POST("/periods/:id/lock", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		if err := models.LockPeriod(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	api.POST("/periods/:id/reopen", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var body struct {
			Reason string `json:"reason" binding:"required"`
		}
		if !bindOrAbort(c, &body) {
			return
		}
		if err := models.ReopenPeriodAdministratively(c.Request.Context(), id, body.Reason); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	// Banking.
	api.POST("/bank-accounts", func(c *gin.Context) {
		var input models.NewBankAccount
		if !bindOrAbort(c, &input) {
			return
		}
		bank, err := models.CreateBankAccount(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, bank)
	})
	api.POST("/bank-accounts/:id/statement", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
			return
		}
		f, err := file.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()

		var result *workflow.ImportResult
		if strings.EqualFold(filepath.Ext(file.Filename), ".ofx") {
			result, err = workflow.ImportStatementOFX(c.Request.Context(), id, f)
		} else {
			result, err = workflow.ImportStatementCSV(c.Request.Context(), id, f)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/bank-accounts/:id/match", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := workflow.AutoMatchStatementLines(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/reconciliations", func(c *gin.Context) {
		var body struct {
			BankAccountId    int    `json:"bank_account_id" binding:"required"`
			StatementDate    string `json:"statement_date" binding:"required"`
			StatementBalance string `json:"statement_balance" binding:"required"`
		}
		if !bindOrAbort(c, &body) {
			return
		}
		statementDate, err := utils.ParseDate(body.StatementDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid statement_date"})
			return
		}
		rec, err := workflow.StartReconciliation(c.Request.Context(), body.BankAccountId, statementDate, body.StatementBalance)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, rec)
	})
	api.PUT("/reconciliations/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var body struct {
			models.ReconciliationAdjustments
			Notes string `json:"notes"`
		}
		if !bindOrAbort(c, &body) {
			return
		}
		rec, err := workflow.UpdateReconciliation(c.Request.Context(), id, body.ReconciliationAdjustments, body.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	})
	api.POST("/reconciliations/:id/approve", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		rec, err := workflow.ApproveReconciliation(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	// Reports.
	api.GET("/reports/profit-and-loss", func(c *gin.Context) {
		from, ok := dateQuery(c, "from", time.Time{})
		if !ok {
			return
		}
		to, ok := dateQuery(c, "to", time.Time{})
		if !ok {
			return
		}
		if from.IsZero() || to.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
			return
		}
		report, err := reports.GetProfitAndLossReport(c.Request.Context(), from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	})
	api.GET("/reports/balance-sheet", func(c *gin.Context) {
		asOf, ok := dateQuery(c, "as_of", time.Now().UTC())
		if !ok {
			return
		}
		report, err := reports.GetBalanceSheetReport(c.Request.Context(), asOf)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	})
	api.GET("/reports/trial-balance", func(c *gin.Context) {
		asOf, ok := dateQuery(c, "as_of", time.Now().UTC())
		if !ok {
			return
		}
		report, err := reports.GetTrialBalanceReport(c.Request.Context(), asOf)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	})
	api.GET("/reports/aging/:side", func(c *gin.Context) {
		side := models.AgingSide(c.Param("side"))
		if side != models.AgingSidePayable && side != models.AgingSideReceivable {
			c.JSON(http.StatusBadRequest, gin.H{"error": "side must be payable or receivable"})
			return
		}
		asOf, ok := dateQuery(c, "as_of", time.Now().UTC())
		if !ok {
			return
		}
		rows, err := reports.GetAgingReport(c.Request.Context(), side, asOf)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})
	api.GET("/reports/budget-variance", func(c *gin.Context) {
		year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().Year())))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		rows, err := reports.GetBudgetVarianceReport(c.Request.Context(), year)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})
	api.PUT("/budgets", func(c *gin.Context) {
		var input models.NewBudget
		if !bindOrAbort(c, &input) {
			return
		}
		budget, err := models.UpsertBudget(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, budget)
	})
}

func main() {
	logger := config.GetLogger()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestContextMiddleware())

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Correlation-Id", "X-User-Name")
	corsConfig.AddExposeHeaders("Content-Length", "X-Correlation-Id")
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	registerRoutes(r)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open so startup probes pass.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	config.LoadLedgerSettings()

	db := config.GetDB()
	if db != nil && !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.AutoMigrate(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Panic(err.Error())
		}
	}

	logger.WithFields(logrus.Fields{"port": port}).Info("ledger backend listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "server"}).Panic(err.Error())
		}
	case <-quit:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithFields(logrus.Fields{"field": "shutdown"}).Error(err.Error())
		}
	}
}
