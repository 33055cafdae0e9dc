package handler

import (
	"net/http"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/service"
	"github.com/fieldline/crm-api/internal/warranty"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type WarrantyHandler struct {
	warrantyService *service.WarrantyService
	logger          *zap.Logger
}

func NewWarrantyHandler(warrantyService *service.WarrantyService, logger *zap.Logger) *WarrantyHandler {
	return &WarrantyHandler{
		warrantyService: warrantyService,
		logger:          logger,
	}
}

// List godoc
// @Summary List warranty replacements
// @Tags Warranty
// @Produce json
// @Param status query string false "Status" Enums(pending, approved, replaced, rejected)
// @Success 200 {object} domain.APIResponse{data=[]domain.WarrantyReplacementDTO}
// @Security CookieAuth
// @Router /warranty [get]
func (h *WarrantyHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *warranty.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := warranty.Status(raw)
		if !s.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status: "+raw)
			return
		}
		status = &s
	}
	replacements, err := h.warrantyService.List(r.Context(), status)
	if err != nil {
		handleServiceError(w, h.logger, err, "list warranty replacements")
		return
	}
	respondJSON(w, http.StatusOK, replacements)
}

// Register godoc
// @Summary Register warranty issue
// @Description Opens a claim for a serial, or appends an issue to its existing record
// @Tags Warranty
// @Accept json
// @Produce json
// @Param request body domain.RegisterWarrantyRequest true "Issue"
// @Success 201 {object} domain.APIResponse{data=domain.WarrantyReplacementDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security CookieAuth
// @Router /warranty/register [post]
func (h *WarrantyHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterWarrantyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	replacement, err := h.warrantyService.Register(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "register warranty issue")
		return
	}
	respondJSON(w, http.StatusCreated, replacement)
}

// Complete godoc
// @Summary Complete warranty replacement
// @Tags Warranty
// @Accept json
// @Produce json
// @Param request body domain.CompleteWarrantyRequest true "Replacement unit"
// @Success 200 {object} domain.APIResponse{data=domain.WarrantyReplacementDTO}
// @Failure 404 {object} domain.APIResponse
// @Failure 422 {object} domain.APIResponse
// @Security CookieAuth
// @Router /warranty/complete [post]
func (h *WarrantyHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req domain.CompleteWarrantyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	replacement, err := h.warrantyService.Complete(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "complete warranty replacement")
		return
	}
	respondJSON(w, http.StatusOK, replacement)
}

// UpdateClaim godoc
// @Summary Approve or reject a warranty claim
// @Tags Warranty
// @Accept json
// @Produce json
// @Param request body domain.UpdateWarrantyClaimRequest true "Decision"
// @Success 200 {object} domain.APIResponse{data=domain.WarrantyReplacementDTO}
// @Failure 404 {object} domain.APIResponse
// @Failure 422 {object} domain.APIResponse
// @Security CookieAuth
// @Router /warranty/claim [post]
func (h *WarrantyHandler) UpdateClaim(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateWarrantyClaimRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	replacement, err := h.warrantyService.UpdateClaim(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update warranty claim")
		return
	}
	respondJSON(w, http.StatusOK, replacement)
}

// History godoc
// @Summary Replacement history of a serial
// @Tags Warranty
// @Produce json
// @Param sn path string true "Original or replacement serial number"
// @Success 200 {object} domain.APIResponse{data=domain.WarrantyReplacementDTO}
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /warranty/history/{sn} [get]
func (h *WarrantyHandler) History(w http.ResponseWriter, r *http.Request) {
	replacement, err := h.warrantyService.History(r.Context(), chi.URLParam(r, "sn"))
	if err != nil {
		handleServiceError(w, h.logger, err, "get replacement history")
		return
	}
	respondJSON(w, http.StatusOK, replacement)
}

// ByReplacementSerial godoc
// @Summary Find record by replacement serial
// @Tags Warranty
// @Produce json
// @Param sn path string true "Replacement serial number"
// @Success 200 {object} domain.APIResponse{data=domain.WarrantyReplacementDTO}
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /warranty/replacement-serial/{sn} [get]
func (h *WarrantyHandler) ByReplacementSerial(w http.ResponseWriter, r *http.Request) {
	replacement, err := h.warrantyService.FindByReplacementSerial(r.Context(), chi.URLParam(r, "sn"))
	if err != nil {
		handleServiceError(w, h.logger, err, "find replacement")
		return
	}
	respondJSON(w, http.StatusOK, replacement)
}
