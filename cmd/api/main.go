package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldline/crm-api/docs"
	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/config"
	"github.com/fieldline/crm-api/internal/database"
	"github.com/fieldline/crm-api/internal/excel"
	"github.com/fieldline/crm-api/internal/http/handler"
	"github.com/fieldline/crm-api/internal/http/middleware"
	"github.com/fieldline/crm-api/internal/http/router"
	"github.com/fieldline/crm-api/internal/jobs"
	"github.com/fieldline/crm-api/internal/logger"
	"github.com/fieldline/crm-api/internal/pdf"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/fieldline/crm-api/internal/service"
	"github.com/fieldline/crm-api/internal/storage"
	"go.uber.org/zap"
)

// @title Fieldline CRM API
// @version 1.0
// @description Field-service CRM: leads, customers, work orders, inventory, warranty replacements and billing
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@fieldline.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name session
// @description Session cookie issued by POST /signin

const reminderJobTimeout = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Basic configuration first, for logging setup
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Full configuration with secrets (environment in development, Key Vault in staging/production)
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if cfg.Auth.SessionSecret == "" {
		return fmt.Errorf("session secret is not configured (SESSION_SECRET)")
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Repositories
	branchRepo := repository.NewBranchRepository(db)
	userRepo := repository.NewUserRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	workOrderRepo := repository.NewWorkOrderRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	warrantyRepo := repository.NewWarrantyRepository(db)
	billRepo := repository.NewBillRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	// Services
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, log)
	notificationService := service.NewNotificationService(notificationRepo, log)
	branchService := service.NewBranchService(branchRepo, log)
	userService := service.NewUserService(userRepo, branchRepo, workOrderRepo, cfg.Auth.BcryptCost, log)
	leadService := service.NewLeadService(db, leadRepo, customerRepo, numberSequenceService, log)
	customerService := service.NewCustomerService(customerRepo, leadRepo, workOrderRepo, numberSequenceService, log)
	workOrderService := service.NewWorkOrderService(workOrderRepo, customerRepo, userRepo, numberSequenceService, notificationService, log)
	inventoryService := service.NewInventoryService(inventoryRepo, warrantyRepo, log)
	warrantyService := service.NewWarrantyService(warrantyRepo, inventoryRepo, userRepo, notificationService, log)
	billService := service.NewBillService(billRepo, workOrderRepo, numberSequenceService, pdf.NewGenerator(cfg.App.Name), log)
	attachmentService := service.NewAttachmentService(attachmentRepo, workOrderRepo, fileStorage, log)
	exportService := service.NewExportService(workOrderService, excel.NewGenerator(), log)

	// Middleware
	sessions := auth.NewSessionManager(&cfg.Auth)
	authMiddleware := auth.NewMiddleware(sessions, log)
	branchFilterMiddleware := middleware.NewBranchFilterMiddleware(log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		branchFilterMiddleware,
		rateLimiter,
		router.Handlers{
			Auth:         handler.NewAuthHandler(userService, sessions, log),
			Lead:         handler.NewLeadHandler(leadService, log),
			Customer:     handler.NewCustomerHandler(customerService, log),
			WorkOrder:    handler.NewWorkOrderHandler(workOrderService, exportService, log),
			Attachment:   handler.NewAttachmentHandler(attachmentService, cfg.Storage.MaxUploadSizeMB, log),
			Branch:       handler.NewBranchHandler(branchService, log),
			User:         handler.NewUserHandler(userService, log),
			Inventory:    handler.NewInventoryHandler(inventoryService, log),
			Warranty:     handler.NewWarrantyHandler(warrantyService, log),
			Bill:         handler.NewBillHandler(billService, log),
			Notification: handler.NewNotificationHandler(notificationService, log),
		},
	)

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterApprovalReminderJob(
			scheduler,
			workOrderService,
			log,
			cfg.Jobs.ApprovalReminderSchedule,
			cfg.Jobs.ApprovalReminderAfter(),
			reminderJobTimeout,
		); err != nil {
			log.Error("Failed to register approval reminder job", zap.Error(err))
		}
		scheduler.Start()
		log.Info("Scheduler started",
			zap.Strings("jobs", scheduler.JobNames()),
			zap.String("approval_reminder_cron", cfg.Jobs.ApprovalReminderSchedule),
			zap.Duration("approval_reminder_after", cfg.Jobs.ApprovalReminderAfter()),
		)
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
