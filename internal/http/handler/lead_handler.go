package handler

import (
	"net/http"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/service"
	"go.uber.org/zap"
)

type LeadHandler struct {
	leadService *service.LeadService
	logger      *zap.Logger
}

func NewLeadHandler(leadService *service.LeadService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		leadService: leadService,
		logger:      logger,
	}
}

// List godoc
// @Summary List open leads
// @Description Leads that have not been converted to customers, newest activity first
// @Tags Leads
// @Produce json
// @Param branch query string false "Branch ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=[]domain.LeadDTO}
// @Failure 401 {object} domain.APIResponse
// @Failure 403 {object} domain.APIResponse
// @Security CookieAuth
// @Router /leads [get]
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leadService.List(r.Context(), branchScope(r))
	if err != nil {
		handleServiceError(w, h.logger, err, "list leads")
		return
	}
	respondJSON(w, http.StatusOK, leads)
}

// GetByID godoc
// @Summary Get lead
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.LeadDTO}
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /leads/{id} [get]
func (h *LeadHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "lead ID")
	if !ok {
		return
	}
	lead, err := h.leadService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get lead")
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// Create godoc
// @Summary Create lead
// @Description An optional first remark sets the lead status
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body domain.CreateLeadRequest true "Lead"
// @Success 201 {object} domain.APIResponse{data=domain.LeadDTO}
// @Failure 400 {object} domain.APIResponse
// @Security CookieAuth
// @Router /leads [post]
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLeadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	lead, err := h.leadService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create lead")
		return
	}
	respondJSON(w, http.StatusCreated, lead)
}

// AddRemark godoc
// @Summary Add remark to lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID" format(uuid)
// @Param request body domain.LeadRemarkRequest true "Remark"
// @Success 200 {object} domain.APIResponse{data=domain.LeadDTO}
// @Failure 404 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security CookieAuth
// @Router /leads/{id}/remarks [post]
func (h *LeadHandler) AddRemark(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "lead ID")
	if !ok {
		return
	}
	var req domain.LeadRemarkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	lead, err := h.leadService.AddRemark(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "add remark")
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// Convert godoc
// @Summary Convert lead to customer
// @Description Creates the customer and its first New Installation work order
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID" format(uuid)
// @Param request body domain.ConvertLeadRequest true "First work order"
// @Success 201 {object} domain.APIResponse{data=domain.CustomerDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security CookieAuth
// @Router /leads/{id}/convert [post]
func (h *LeadHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "lead ID")
	if !ok {
		return
	}
	var req domain.ConvertLeadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	customer, err := h.leadService.ConvertToCustomer(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "convert lead")
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}
