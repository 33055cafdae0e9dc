package handler

import (
	"net/http"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	inventoryService *service.InventoryService
	logger           *zap.Logger
}

func NewInventoryHandler(inventoryService *service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// ByType godoc
// @Summary Inventory by type
// @Tags Inventory
// @Produce json
// @Param type path string true "Inventory type" Enums(serialized, generic, service)
// @Param branch query string false "Branch ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=[]domain.InventoryItemDTO}
// @Failure 400 {object} domain.APIResponse
// @Security CookieAuth
// @Router /inventory/type/{type} [get]
func (h *InventoryHandler) ByType(w http.ResponseWriter, r *http.Request) {
	itemType := domain.InventoryType(chi.URLParam(r, "type"))
	items, err := h.inventoryService.ByType(r.Context(), itemType, branchScope(r))
	if err != nil {
		handleServiceError(w, h.logger, err, "list inventory")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// ForTechnician godoc
// @Summary Technician inventory
// @Description The caller's own stock. Managers and admins may pass technicianId.
// @Tags Inventory
// @Produce json
// @Param technicianId query string false "Technician ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=[]domain.InventoryItemDTO}
// @Security CookieAuth
// @Router /inventory/technician [get]
func (h *InventoryHandler) ForTechnician(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	technicianID := userCtx.UserID
	if raw := r.URL.Query().Get("technicianId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid technicianId: must be a valid UUID")
			return
		}
		if id != userCtx.UserID && !userCtx.HasAnyRole(domain.RoleAdmin, domain.RoleManager) {
			respondWithError(w, http.StatusForbidden, "Forbidden: insufficient permissions")
			return
		}
		technicianID = id
	}

	items, err := h.inventoryService.ForTechnician(r.Context(), technicianID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list technician inventory")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// SerialDetails godoc
// @Summary Serial number details
// @Description The installed unit with its warranty coverage and replacement history
// @Tags Inventory
// @Produce json
// @Param sn path string true "Serial number"
// @Success 200 {object} domain.APIResponse{data=domain.SerialDetailsDTO}
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /inventory/serial/{sn} [get]
func (h *InventoryHandler) SerialDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.inventoryService.SerialDetails(r.Context(), chi.URLParam(r, "sn"))
	if err != nil {
		handleServiceError(w, h.logger, err, "get serial details")
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// WarrantyStatus godoc
// @Summary Check warranty status
// @Tags Warranty
// @Produce json
// @Param sn path string true "Serial number"
// @Success 200 {object} domain.APIResponse{data=domain.WarrantyStatusDTO}
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /warranty/status/{sn} [get]
func (h *InventoryHandler) WarrantyStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.inventoryService.CheckWarranty(r.Context(), chi.URLParam(r, "sn"))
	if err != nil {
		handleServiceError(w, h.logger, err, "check warranty")
		return
	}
	respondJSON(w, http.StatusOK, status)
}
