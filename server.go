package main

import (
	"context"
	"errors"
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
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mmcattleworks/herdbooks_backend/config"
	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/mmcattleworks/herdbooks_backend/scheduler"
	"github.com/mmcattleworks/herdbooks_backend/utils"
	"github.com/mmcattleworks/herdbooks_backend/workflow"
)

const defaultPort = "8080"

func requireCompanyId(c *gin.Context) (string, bool) {
	companyId := strings.TrimSpace(c.GetHeader("x-company-id"))
	if companyId == "" {
		companyId = strings.TrimSpace(c.Query("company_id"))
	}
	if companyId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company_id is required"})
		return "", false
	}
	c.Request = c.Request.WithContext(utils.SetCompanyIdInContext(c.Request.Context(), companyId))
	return companyId, true
}

func bindingErrorResponse(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(validationErrs)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func workflowErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case utils.IsReconciliationError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func acquireAssetHandler(lifecycle *workflow.Lifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, ok := requireCompanyId(c)
		if !ok {
			return
		}
		var input models.NewAsset
		if err := c.ShouldBindJSON(&input); err != nil {
			bindingErrorResponse(c, err)
			return
		}
		asset, err := lifecycle.AcquireAsset(c.Request.Context(), companyId, &input)
		if err != nil {
			workflowErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusCreated, asset)
	}
}

func disposeAssetHandler(lifecycle *workflow.Lifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireCompanyId(c); !ok {
			return
		}
		assetId, err := strconv.Atoi(c.Param("id"))
		if err != nil || assetId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
			return
		}
		var input models.NewDisposition
		if err := c.ShouldBindJSON(&input); err != nil {
			bindingErrorResponse(c, err)
			return
		}
		record, err := lifecycle.DisposeAsset(c.Request.Context(), assetId, &input)
		if err != nil {
			workflowErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func reinstateAssetHandler(lifecycle *workflow.Lifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireCompanyId(c); !ok {
			return
		}
		assetId, err := strconv.Atoi(c.Param("id"))
		if err != nil || assetId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
			return
		}
		asset, err := lifecycle.ReinstateAsset(c.Request.Context(), assetId)
		if err != nil {
			workflowErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

// runReconciliationHandler accepts the master roster as a multipart upload
// (field "roster") and stages the diff against the internal active set.
func runReconciliationHandler(store workflow.LedgerStore, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, ok := requireCompanyId(c)
		if !ok {
			return
		}
		fileHeader, err := c.FormFile("roster")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "roster file is required"})
			return
		}

		tmpPath := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(fileHeader.Filename))
		if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
			config.LogError(logger, "server.go", "runReconciliationHandler", "failed to save uploaded roster", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save uploaded roster"})
			return
		}
		defer os.Remove(tmpPath)

		roster, err := workflow.ParseMasterRosterFile(tmpPath)
		if err != nil {
			workflowErrorResponse(c, err)
			return
		}

		result, err := workflow.RunReconciliation(c.Request.Context(), store, logger, companyId, roster, fileHeader.Filename)
		if err != nil {
			workflowErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"correlation_id":        result.CorrelationId,
			"staged":                result.Staged,
			"missing_freshen_date":  len(result.Diff.MissingFreshenDate),
			"needs_disposal":        len(result.Diff.NeedsDisposal),
			"missing_from_database": len(result.Diff.MissingFromDatabase),
		})
	}
}

type monthlyDepreciationRequest struct {
	Month int `json:"month" binding:"required,min=1,max=12"`
	Year  int `json:"year" binding:"required,min=2000"`
}

func monthlyDepreciationHandler(recalc workflow.RecalcContract) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, ok := requireCompanyId(c)
		if !ok {
			return
		}
		var req monthlyDepreciationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingErrorResponse(c, err)
			return
		}
		result, err := recalc.ProcessMonthlyDepreciation(c.Request.Context(), companyId, req.Month, req.Year)
		if err != nil {
			workflowErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"processed_amount": result.ProcessedAmount.StringFixed(2),
			"entries_posted":   result.EntriesPosted,
		})
	}
}

type catchUpRequest struct {
	AssetId     int    `json:"asset_id" binding:"required,min=1"`
	ThroughDate string `json:"through_date"`
}

func catchUpDepreciationHandler(recalc workflow.RecalcContract) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, ok := requireCompanyId(c)
		if !ok {
			return
		}
		var req catchUpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingErrorResponse(c, err)
			return
		}
		through := time.Now().UTC()
		if req.ThroughDate != "" {
			parsed, err := time.Parse("2006-01-02", req.ThroughDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "through_date must be YYYY-MM-DD"})
				return
			}
			through = parsed
		}
		result, err := recalc.CatchUpDepreciationToDate(c.Request.Context(), companyId, req.AssetId, through)
		if err != nil {
			workflowErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"processed_amount": result.ProcessedAmount.StringFixed(2),
			"entries_posted":   result.EntriesPosted,
		})
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that attached errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start listening before dependencies are ready; app routes return 503
	// until the DB is connected.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

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
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "x-company-id", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	store := models.NewGormLedgerStore(db)
	processor := workflow.NewDepreciationProcessor(store, logger)
	lifecycle := workflow.NewLifecycle(store, processor, logger)
	lifecycle.Locker = &workflow.MySQLPostingLocker{DB: db}

	r.POST("/api/assets", acquireAssetHandler(lifecycle))
	r.POST("/api/assets/:id/dispose", disposeAssetHandler(lifecycle))
	r.POST("/api/assets/:id/reinstate", reinstateAssetHandler(lifecycle))
	r.POST("/api/reconciliation/run", runReconciliationHandler(store, logger))
	r.POST("/v1/depreciation/monthly", monthlyDepreciationHandler(processor))
	r.POST("/v1/depreciation/catch-up", catchUpDepreciationHandler(processor))
	r.NoRoute(customNotFoundHandler)

	// Recalc tasks dispatch after commit, on their own loop.
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewRecalcDispatcher(db, processor, logger).Run(dispatcherCtx)

	monthlyScheduler := scheduler.NewScheduler(db, store, config.GetRedisLock(), logger)
	monthlyScheduler.Start()
	defer monthlyScheduler.Stop()

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on :", port)

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	cancelDispatcher()
	monthlyScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
