package router

import (
	"encoding/json"
	"net/http"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/config"
	"github.com/fieldline/crm-api/internal/database"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/http/handler"
	"github.com/fieldline/crm-api/internal/http/middleware"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/fieldline/crm-api/docs" // Import generated swagger docs
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Auth         *handler.AuthHandler
	Lead         *handler.LeadHandler
	Customer     *handler.CustomerHandler
	WorkOrder    *handler.WorkOrderHandler
	Attachment   *handler.AttachmentHandler
	Branch       *handler.BranchHandler
	User         *handler.UserHandler
	Inventory    *handler.InventoryHandler
	Warranty     *handler.WarrantyHandler
	Bill         *handler.BillHandler
	Notification *handler.NotificationHandler
}

type Router struct {
	cfg                    *config.Config
	logger                 *zap.Logger
	db                     *gorm.DB
	authMiddleware         *auth.Middleware
	branchFilterMiddleware *middleware.BranchFilterMiddleware
	rateLimiter            *middleware.RateLimiter
	handlers               Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	branchFilterMiddleware *middleware.BranchFilterMiddleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:                    cfg,
		logger:                 logger,
		db:                     db,
		authMiddleware:         authMiddleware,
		branchFilterMiddleware: branchFilterMiddleware,
		rateLimiter:            rateLimiter,
		handlers:               handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Liveness
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	h := rt.handlers
	requireManager := rt.authMiddleware.RequireRole(domain.RoleAdmin, domain.RoleManager)
	requireAdmin := rt.authMiddleware.RequireRole(domain.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signin", h.Auth.SignIn)
		r.Post("/signout", h.Auth.SignOut)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(middleware.CaptureUser)
			r.Use(rt.rateLimiter.LimitByUser)
			r.Use(rt.branchFilterMiddleware.Filter)

			r.Get("/me", h.Auth.Me)
			r.Get("/search", h.Customer.Search)

			r.Route("/leads", func(r chi.Router) {
				r.Get("/", h.Lead.List)
				r.Post("/", h.Lead.Create)
				r.Get("/{id}", h.Lead.GetByID)
				r.Post("/{id}/remarks", h.Lead.AddRemark)
				r.Post("/{id}/convert", h.Lead.Convert)
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", h.Customer.List)
				r.Post("/", h.Customer.Create)
				r.Get("/{id}", h.Customer.GetByID)
			})

			r.Route("/work-orders", func(r chi.Router) {
				r.Get("/", h.WorkOrder.List)
				r.Post("/", h.WorkOrder.Create)
				r.Post("/status", h.WorkOrder.UpdateStatus)
				r.Post("/transfer", h.WorkOrder.RequestTransfer)
				r.With(requireManager).Post("/assign", h.WorkOrder.Assign)
				r.With(requireManager).Post("/approve", h.WorkOrder.Approve)
				r.With(requireManager).Get("/export", h.WorkOrder.Export)
				r.Get("/{id}/attachments", h.Attachment.List)
				r.Post("/{id}/attachments", h.Attachment.Upload)
				r.Get("/{customerId}/{orderId}", h.WorkOrder.Details)
			})

			r.Route("/attachments", func(r chi.Router) {
				r.Get("/{attachmentId}", h.Attachment.Download)
				r.Delete("/{attachmentId}", h.Attachment.Delete)
			})

			r.Route("/manager", func(r chi.Router) {
				r.Use(requireManager)
				r.Get("/projects", h.WorkOrder.ManagerProjects)
				r.Get("/dashboard", h.WorkOrder.Dashboard)
				r.Get("/technicians", h.User.ManagerTechnicians)
				r.Post("/transfers/accept", h.WorkOrder.AcceptTransfer)
			})

			r.Get("/technicians/{id}/projects", h.WorkOrder.TechnicianProjects)

			r.Route("/branches", func(r chi.Router) {
				r.Get("/", h.Branch.List)
				r.With(requireAdmin).Post("/", h.Branch.Create)
				r.Get("/{id}", h.Branch.GetByID)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/managers", h.User.Managers)
				r.Get("/technicians", h.User.Technicians)
				r.With(requireAdmin).Post("/", h.User.Create)
				r.Get("/{id}", h.User.GetByID)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/type/{type}", h.Inventory.ByType)
				r.Get("/technician", h.Inventory.ForTechnician)
				r.Get("/serial/{sn}", h.Inventory.SerialDetails)
			})

			r.Route("/warranty", func(r chi.Router) {
				r.Get("/", h.Warranty.List)
				r.Post("/register", h.Warranty.Register)
				r.Post("/complete", h.Warranty.Complete)
				r.With(requireManager).Post("/claim", h.Warranty.UpdateClaim)
				r.Get("/status/{sn}", h.Inventory.WarrantyStatus)
				r.Get("/history/{sn}", h.Warranty.History)
				r.Get("/replacement-serial/{sn}", h.Warranty.ByReplacementSerial)
			})

			r.Route("/bills", func(r chi.Router) {
				r.Post("/", h.Bill.Create)
				r.Get("/{billId}", h.Bill.GetByID)
				r.Get("/{billId}/pdf", h.Bill.PDF)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Put("/{id}/read", h.Notification.MarkAsRead)
			})
		})
	})

	return r
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(r.Context(), rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats":   stats,
	})
}

func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	status := http.StatusOK

	if err := database.HealthCheck(r.Context(), rt.db); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = map[string]interface{}{
			"status": "healthy",
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	writeHealth(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

func writeHealth(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
