package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/revenuehq/tax-portal-api/api/swagger"
	"github.com/revenuehq/tax-portal-api/internal/handler"
	"github.com/revenuehq/tax-portal-api/internal/middleware"
	"github.com/revenuehq/tax-portal-api/internal/models"
	"github.com/revenuehq/tax-portal-api/internal/repository"
	"github.com/revenuehq/tax-portal-api/internal/service"
	"github.com/revenuehq/tax-portal-api/pkg/cache"
	"github.com/revenuehq/tax-portal-api/pkg/config"
	"github.com/revenuehq/tax-portal-api/pkg/database"
	"github.com/revenuehq/tax-portal-api/pkg/export"
	"github.com/revenuehq/tax-portal-api/pkg/jobs"
	"github.com/revenuehq/tax-portal-api/pkg/logger"
	corsmiddleware "github.com/revenuehq/tax-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/revenuehq/tax-portal-api/pkg/middleware/requestid"
	"github.com/revenuehq/tax-portal-api/pkg/storage"
)

// @title Tax Portal API
// @version 1.0.0
// @description Tax administration portal: self-assessments, payments,
// @description documents, clearance certificates and reporting
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Dashboard.CacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	documentStore, err := storage.NewLocalStorage(cfg.Storage.DocumentsDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	documentSigner := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	tccRepo := repository.NewTccRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	taxConfigRepo := repository.NewTaxConfigRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	reportRepo := repository.NewReportRepository(db)

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, logr)

	authSvc := service.NewAuthService(userRepo, notificationSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "tax-portal-api",
	})
	userSvc := service.NewUserService(userRepo, notificationSvc, documentStore, validate, logr)
	taxConfigSvc := service.NewTaxConfigService(taxConfigRepo, userRepo, cacheSvc, validate, logr, cfg.Dashboard.CacheTTL)
	assessmentSvc := service.NewAssessmentService(assessmentRepo, taxConfigSvc, notificationSvc, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, assessmentRepo, userRepo, notificationSvc, userRepo,
		export.NewReceiptRenderer(), documentStore, documentSigner, validate, logr)
	documentSvc := service.NewDocumentService(documentRepo, notificationSvc, userRepo, documentStore, documentSigner,
		validate, logr, service.DocumentServiceConfig{
			MaxFileSizeBytes: cfg.Storage.MaxFileSizeBytes,
			AllowedMIMEs:     cfg.Storage.AllowedMIMEs,
		})
	tccSvc := service.NewTccService(tccRepo, notificationSvc, userRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, documentRepo, documentRepo, tccRepo, notificationRepo,
		cacheSvc, logr, service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL})
	exportSvc := service.NewExportService(assessmentRepo, paymentRepo, userRepo, reportStore, reportSigner,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
		logr, export.NewCSVExporter(), export.NewPDFExporter())

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc := service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	assessmentHandler := handler.NewAssessmentHandler(assessmentSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	tccHandler := handler.NewTccHandler(tccSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	taxConfigHandler := handler.NewTaxConfigHandler(taxConfigSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.JWT(authSvc)
	staffOnly := middleware.RBAC(string(models.RoleOfficer), string(models.RoleAdmin))
	adminOnly := middleware.RBAC(string(models.RoleAdmin))

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/bootstrap", authHandler.BootstrapAdmin)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authRequired, authHandler.Logout)
			auth.POST("/change-password", authRequired, authHandler.ChangePassword)
			auth.GET("/me", authRequired, authHandler.Me)
		}

		// Signed-token downloads carry their own authorization.
		api.GET("/export/:token", reportHandler.Download)
		api.GET("/documents/download", documentHandler.Download)
		api.GET("/payments/receipt", paymentHandler.DownloadReceipt)

		private := api.Group("", authRequired)
		{
			private.GET("/dashboard", dashboardHandler.Taxpayer)

			private.POST("/assessments", assessmentHandler.Create)
			private.GET("/assessments", assessmentHandler.ListMine)
			private.GET("/assessments/:id", assessmentHandler.Get)

			private.POST("/payments", paymentHandler.Settle)
			private.GET("/payments", paymentHandler.ListMine)
			private.GET("/payments/:id", paymentHandler.Get)

			private.POST("/documents", middleware.Audit(userRepo, models.AuditActionDocumentUpload, "document"), documentHandler.Upload)
			private.GET("/documents", documentHandler.ListMine)

			private.POST("/tcc", tccHandler.Request)
			private.GET("/tcc", tccHandler.Status)

			private.GET("/notifications", notificationHandler.Inbox)
			private.PUT("/notifications/:id/read", notificationHandler.MarkRead)
			private.GET("/notifications/unread-count", notificationHandler.UnreadCount)

			private.GET("/tax-config", taxConfigHandler.List)

			private.PUT("/profile", userHandler.UpdateProfile)
			private.POST("/profile/avatar", userHandler.UploadAvatar)
		}

		staff := api.Group("/admin", authRequired, staffOnly)
		{
			staff.GET("/dashboard", dashboardHandler.Staff)
			staff.GET("/assessments", assessmentHandler.ListAll)
			staff.GET("/payments", paymentHandler.ListAll)
			staff.GET("/documents", documentHandler.ListAll)
			staff.PUT("/documents/:id", documentHandler.Review)
			staff.GET("/taxpayers", userHandler.ListTaxpayers)
			staff.GET("/tcc", tccHandler.ListAll)
			staff.PUT("/tcc/:id", tccHandler.Review)
			staff.PUT("/tax-config", adminOnly, taxConfigHandler.Update)
			staff.GET("/metrics", adminOnly, metricsHandler.Summary)
		}

		users := api.Group("/users", authRequired, adminOnly)
		{
			users.GET("", userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.POST("", userHandler.Create)
			users.PUT("/:id/role", userHandler.UpdateRole)
			users.DELETE("/:id", userHandler.Delete)
		}

		reports := api.Group("/reports", authRequired, staffOnly)
		{
			reports.POST("/generate", reportHandler.Generate)
			reports.GET("/:id", reportHandler.Status)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
