package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/registrar-docs-api/api/swagger"
	"github.com/noah-isme/registrar-docs-api/internal/handler"
	"github.com/noah-isme/registrar-docs-api/internal/middleware"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	"github.com/noah-isme/registrar-docs-api/internal/repository"
	"github.com/noah-isme/registrar-docs-api/internal/service"
	"github.com/noah-isme/registrar-docs-api/pkg/cache"
	"github.com/noah-isme/registrar-docs-api/pkg/config"
	"github.com/noah-isme/registrar-docs-api/pkg/database"
	"github.com/noah-isme/registrar-docs-api/pkg/export"
	"github.com/noah-isme/registrar-docs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/registrar-docs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/registrar-docs-api/pkg/middleware/requestid"
	"github.com/noah-isme/registrar-docs-api/pkg/payment"
	"github.com/noah-isme/registrar-docs-api/pkg/storage"
)

// @title Registrar Document Request API
// @version 1.0.0
// @description Document request submission and tracking for the university registrar
// @BasePath /api/v1
// @schemes http https

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	stateRepo := repository.NewWizardStateRepository(redisClient, cfg.Wizard.StateTTL)

	signer := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Wizard.StateTTL)
	gateway := payment.NewClient(payment.ClientConfig{
		BaseURL:       cfg.Payments.GatewayURL,
		SecretKey:     cfg.Payments.SecretKey,
		ReturnBaseURL: cfg.Payments.ReturnBaseURL,
	}, logr)
	pdfExporter := export.NewPDFExporter()
	csvExporter := export.NewCSVExporter()

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "registrar-docs-api",
	})
	catalogSvc := service.NewCatalogService(documentRepo, cacheRepo, userRepo, metricsSvc, validate, logr)
	uploadSvc := service.NewUploadService(uploadStore, logr, service.UploadServiceConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
	})
	wizardSvc := service.NewWizardService(stateRepo, requestRepo, catalogSvc, uploadSvc, authSvc, signer, userRepo, validate, logr, cfg.APIPrefix)
	paymentSvc := service.NewPaymentService(gateway, stateRepo, requestRepo, userRepo, logr, service.PaymentServiceConfig{
		ConfirmInterval: cfg.Payments.ConfirmInterval,
		ConfirmAttempts: cfg.Payments.ConfirmAttempts,
	})
	requestSvc := service.NewRequestService(requestRepo, userRepo, userRepo, logr)
	userSvc := service.NewUserService(userRepo, userRepo, validate, logr)
	exportSvc := service.NewExportService(requestRepo, userRepo, signer, pdfExporter, csvExporter, logr)

	paymentSvc.StartConfirmations(context.Background())
	defer paymentSvc.StopConfirmations()

	authHandler := handler.NewAuthHandler(authSvc)
	wizardHandler := handler.NewWizardHandler(wizardSvc, metricsSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, metricsSvc)
	requestHandler := handler.NewRequestHandler(requestSvc, metricsSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	userHandler := handler.NewUserHandler(userSvc)
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

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	authProtected := api.Group("/auth", middleware.JWT(authSvc))
	authProtected.POST("/logout", authHandler.Logout)
	authProtected.POST("/change-password", authHandler.ChangePassword)
	authProtected.GET("/me", authHandler.Me)

	// The claim stub URL is pre-signed and the requester's session is gone by
	// the time it is used, so the token is the only credential here.
	api.GET("/requests/:id/claim-stub",
		middleware.Audit(userRepo, models.AuditActionStubDownload, "requests"),
		exportHandler.ClaimStub)

	wizard := api.Group("/wizard", middleware.JWT(authSvc), middleware.StudentOnly())
	wizard.POST("/start", wizardHandler.Start)
	wizard.GET("", wizardHandler.State)
	wizard.DELETE("", wizardHandler.Abandon)
	wizard.POST("/navigate", wizardHandler.Navigate)
	wizard.PUT("/documents", wizardHandler.SelectDocuments)
	wizard.POST("/uploads", wizardHandler.UploadRequirement)
	wizard.POST("/uploads/complete", wizardHandler.CompleteUploads)
	wizard.DELETE("/uploads/:requirement", wizardHandler.RemoveUpload)
	wizard.PUT("/contact", wizardHandler.SetPreferredContact)
	wizard.POST("/submit", wizardHandler.Submit)
	wizard.POST("/payment/checkout", paymentHandler.Checkout)
	wizard.GET("/payment/return", paymentHandler.Return)

	requests := api.Group("/requests", middleware.JWT(authSvc))
	requests.GET("/mine", middleware.StudentOnly(), requestHandler.ListMine)
	requests.GET("/:id", requestHandler.Get)

	adminRequests := api.Group("/requests", middleware.JWT(authSvc), middleware.AdminOnly())
	adminRequests.GET("", requestHandler.List)
	adminRequests.GET("/export", exportHandler.RegistryCSV)
	adminRequests.PUT("/:id/status", requestHandler.UpdateStatus)
	adminRequests.PUT("/:id/assignee", requestHandler.Assign)
	adminRequests.PUT("/:id/documents/:docId", requestHandler.ToggleDocument)
	adminRequests.POST("/:id/payment", paymentHandler.MarkRequestPaid)
	adminRequests.POST("/:id/documents/:docId/payment", paymentHandler.MarkDocumentPaid)

	catalog := api.Group("/catalog", middleware.JWT(authSvc))
	catalog.GET("/documents", catalogHandler.ListOffered)
	catalog.GET("/documents/:id", catalogHandler.Get)
	catalog.GET("/requirements", catalogHandler.ListRequirements)

	adminUsers := api.Group("/users", middleware.JWT(authSvc), middleware.AdminOnly())
	adminUsers.GET("", userHandler.List)
	adminUsers.POST("", userHandler.Create)
	adminUsers.PATCH("/:id", userHandler.Update)
	adminUsers.DELETE("/:id", userHandler.Deactivate)

	adminCatalog := api.Group("/catalog", middleware.JWT(authSvc), middleware.AdminOnly())
	adminCatalog.GET("/documents/all", catalogHandler.ListAll)
	adminCatalog.POST("/documents", catalogHandler.Create)
	adminCatalog.PATCH("/documents/:id", catalogHandler.Update)
	adminCatalog.POST("/requirements", catalogHandler.CreateRequirement)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
