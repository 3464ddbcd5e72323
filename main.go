package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fisiocore/backend/internal/ai"
	"github.com/fisiocore/backend/internal/alerts"
	"github.com/fisiocore/backend/internal/analytics"
	"github.com/fisiocore/backend/internal/audit"
	"github.com/fisiocore/backend/internal/azure"
	"github.com/fisiocore/backend/internal/config"
	"github.com/fisiocore/backend/internal/handler"
	"github.com/fisiocore/backend/internal/middleware"
	"github.com/fisiocore/backend/internal/pdf"
	"github.com/fisiocore/backend/internal/predictor"
	"github.com/fisiocore/backend/internal/repository"
	"github.com/fisiocore/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.Bool("ai_enabled", cfg.AIEnabled()),
	)

	// Database connection pool
	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Optional generative collaborator. When absent, predictions and alert
	// suggestions use the deterministic fallbacks.
	var aiClient *ai.Client
	if cfg.AIEnabled() {
		aiClient, err = ai.NewClient(
			cfg.Azure.OpenAI.Endpoint,
			cfg.Azure.OpenAI.APIKey,
			cfg.Azure.OpenAI.Deployment,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Azure OpenAI client", zap.Error(err))
		}
	} else {
		logger.Info("AI prediction disabled, using deterministic fallbacks")
	}

	// Blob storage for archived report PDFs
	var blobClient *azure.BlobStorageClient
	if cfg.Azure.Storage.ConnectionString != "" {
		blobClient, err = azure.NewBlobStorageClientFromConnectionString(
			cfg.Azure.Storage.ConnectionString,
			cfg.Azure.Storage.ReportContainer,
			logger,
		)
	} else {
		blobClient, err = azure.NewBlobStorageClient(
			cfg.Azure.Storage.AccountName,
			cfg.Azure.Storage.AccountKey,
			cfg.Azure.Storage.ReportContainer,
			logger,
		)
	}
	if err != nil {
		logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
	}

	// Repositories
	patientRepo := repository.NewPatientRepository(pool, logger)
	diaryRepo := repository.NewDiaryRepository(pool, logger)
	clinicalRepo := repository.NewClinicalRepository(pool, logger)
	reportRepo := repository.NewReportRepository(pool, logger)

	// Analysis engines
	trendAnalyzer := analytics.NewTrendAnalyzer(logger)
	patternDetector := analytics.NewPatternDetector(logger)
	orchestrator := service.NewAnalysisOrchestrator(trendAnalyzer, patternDetector, logger)

	// Outcome prediction
	extractor := predictor.NewFeatureExtractor(predictor.NewKeywordClassifier(), logger)
	var predictorClient predictor.CompletionClient
	if aiClient != nil {
		predictorClient = aiClient
	}
	outcomePredictor := predictor.NewOutcomePredictor(predictorClient, logger)

	// Alert engine
	var rulesClient alerts.CompletionClient
	if aiClient != nil {
		rulesClient = aiClient
	}
	alertStore := alerts.NewStore(logger)
	alertEngine := alerts.NewEngine(alerts.NewRuleSet(rulesClient, cfg.Analysis.MaxInactiveAlerts, logger), alertStore, logger)

	// Services
	analysisService := service.NewPatientAnalysisService(
		patientRepo,
		diaryRepo,
		clinicalRepo,
		orchestrator,
		extractor,
		outcomePredictor,
		alertEngine,
		logger,
	)

	pdfGenerator := pdf.NewPDFGenerator(logger)
	reportService := service.NewReportService(
		analysisService,
		patientRepo,
		reportRepo,
		blobClient,
		pdfGenerator,
		logger,
	)

	auditLogger := audit.NewLogger(pool, logger)

	// Handlers
	healthHandler := handler.NewHealthHandler(pool, logger)
	analysisHandler := handler.NewAnalysisHandler(analysisService, auditLogger, cfg.Analysis.DefaultPeriodDays, logger)
	alertHandler := handler.NewAlertHandler(analysisService, alertStore, auditLogger, logger)
	reportHandler := handler.NewReportHandler(reportService, cfg.Analysis.DefaultPeriodDays, logger)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Recovery middleware must be first
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	r.GET("/health", healthHandler.GetHealth)
	r.GET("/ready", healthHandler.GetReady)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/patients/:id/analysis", analysisHandler.GetPatientAnalysis)
		v1.GET("/patients/:id/prediction", analysisHandler.GetPatientPrediction)
		v1.GET("/patients/:id/reports", reportHandler.GetPatientReports)

		v1.GET("/alerts", alertHandler.GetAlerts)
		v1.POST("/alerts/evaluate", alertHandler.PostAlertsEvaluate)
		v1.POST("/alerts/:id/read", alertHandler.PostAlertRead)
		v1.POST("/alerts/:id/acknowledge", alertHandler.PostAlertAcknowledge)
		v1.POST("/alerts/:id/resolve", alertHandler.PostAlertResolve)

		v1.POST("/reports/generate", reportHandler.PostReportsGenerate)
		v1.GET("/reports/:id", reportHandler.GetReport)
	}

	// Periodic purge keeps the alert feed within the retention window even
	// when no evaluation pass runs
	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go runAlertPurge(purgeCtx, alertStore, cfg.Analysis.AlertEvalInterval, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	stopPurge()
	pool.Close()

	logger.Info("Server exited")
}

// buildLogger constructs the zap logger from the logging configuration
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// runAlertPurge drops expired alerts on a fixed interval until ctx is done
func runAlertPurge(ctx context.Context, store *alerts.Store, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Purge(time.Now()); removed > 0 {
				logger.Info("expired alerts purged", zap.Int("removed", removed))
			}
		}
	}
}
