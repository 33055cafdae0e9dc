package handler

import (
	"net/http"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/service"
	"go.uber.org/zap"
)

type BranchHandler struct {
	branchService *service.BranchService
	logger        *zap.Logger
}

func NewBranchHandler(branchService *service.BranchService, logger *zap.Logger) *BranchHandler {
	return &BranchHandler{
		branchService: branchService,
		logger:        logger,
	}
}

// List godoc
// @Summary List branches
// @Tags Branches
// @Produce json
// @Success 200 {object} domain.APIResponse{data=[]domain.BranchDTO}
// @Security CookieAuth
// @Router /branches [get]
func (h *BranchHandler) List(w http.ResponseWriter, r *http.Request) {
	branches, err := h.branchService.List(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list branches")
		return
	}
	respondJSON(w, http.StatusOK, branches)
}

// GetByID godoc
// @Summary Get branch
// @Tags Branches
// @Produce json
// @Param id path string true "Branch ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.BranchDTO}
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /branches/{id} [get]
func (h *BranchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "branch ID")
	if !ok {
		return
	}
	branch, err := h.branchService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get branch")
		return
	}
	respondJSON(w, http.StatusOK, branch)
}

// Create godoc
// @Summary Create branch
// @Tags Branches
// @Accept json
// @Produce json
// @Param request body domain.CreateBranchRequest true "Branch"
// @Success 201 {object} domain.APIResponse{data=domain.BranchDTO}
// @Failure 409 {object} domain.APIResponse
// @Security CookieAuth
// @Router /branches [post]
func (h *BranchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBranchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	branch, err := h.branchService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create branch")
		return
	}
	respondJSON(w, http.StatusCreated, branch)
}
