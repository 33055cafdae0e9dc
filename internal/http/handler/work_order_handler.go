package handler

import (
	"net/http"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type WorkOrderHandler struct {
	workOrderService *service.WorkOrderService
	exportService    *service.ExportService
	logger           *zap.Logger
}

func NewWorkOrderHandler(workOrderService *service.WorkOrderService, exportService *service.ExportService, logger *zap.Logger) *WorkOrderHandler {
	return &WorkOrderHandler{
		workOrderService: workOrderService,
		exportService:    exportService,
		logger:           logger,
	}
}

// List godoc
// @Summary List work orders
// @Tags WorkOrders
// @Produce json
// @Param branch query string false "Branch ID" format(uuid)
// @Param status query string false "Status" Enums(pending, assigned, in-progress, paused, pending-approval, completed, transferring, transferred)
// @Success 200 {object} domain.APIResponse{data=[]domain.WorkOrderDTO}
// @Failure 400 {object} domain.APIResponse
// @Security CookieAuth
// @Router /work-orders [get]
func (h *WorkOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	status, ok := parseStatusQuery(w, r)
	if !ok {
		return
	}
	workOrders, err := h.workOrderService.List(r.Context(), domain.WorkOrderFilters{
		BranchID: branchScope(r),
		Status:   status,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "list work orders")
		return
	}
	respondJSON(w, http.StatusOK, workOrders)
}

// Create godoc
// @Summary Create work order
// @Description A Repair must reference a completed work order of the same customer
// @Tags WorkOrders
// @Accept json
// @Produce json
// @Param request body domain.CreateWorkOrderRequest true "Work order"
// @Success 201 {object} domain.APIResponse{data=domain.WorkOrderDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /work-orders [post]
func (h *WorkOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateWorkOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	workOrder, err := h.workOrderService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create work order")
		return
	}
	respondJSON(w, http.StatusCreated, workOrder)
}

// Details godoc
// @Summary Work order details
// @Description Full work order with history and billing, addressed by customer and order number
// @Tags WorkOrders
// @Produce json
// @Param customerId path string true "Customer ID" format(uuid)
// @Param orderId path string true "Order number, e.g. WO-2025-0001"
// @Success 200 {object} domain.APIResponse{data=domain.WorkOrderDTO}
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /work-orders/{customerId}/{orderId} [get]
func (h *WorkOrderHandler) Details(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseUUIDParam(w, r, "customerId", "customer ID")
	if !ok {
		return
	}
	workOrder, err := h.workOrderService.Details(r.Context(), customerID, chi.URLParam(r, "orderId"))
	if err != nil {
		handleServiceError(w, h.logger, err, "get work order")
		return
	}
	respondJSON(w, http.StatusOK, workOrder)
}

// Assign godoc
// @Summary Assign technician
// @Description Moves a pending or transferred work order to assigned
// @Tags WorkOrders
// @Accept json
// @Produce json
// @Param request body domain.AssignTechnicianRequest true "Assignment"
// @Success 200 {object} domain.APIResponse{data=domain.WorkOrderDTO}
// @Failure 404 {object} domain.APIResponse
// @Failure 422 {object} domain.APIResponse
// @Security CookieAuth
// @Router /work-orders/assign [post]
func (h *WorkOrderHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req domain.AssignTechnicianRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	workOrder, err := h.workOrderService.AssignTechnician(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "assign technician")
		return
	}
	respondJSON(w, http.StatusOK, workOrder)
}

// Approve godoc
// @Summary Approve work order
// @Description Completes a work order awaiting approval. The remark needs at least five words.
// @Tags WorkOrders
// @Accept json
// @Produce json
// @Param request body domain.ApproveWorkOrderRequest true "Approval"
// @Success 200 {object} domain.APIResponse{data=domain.WorkOrderDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 422 {object} domain.APIResponse
// @Security CookieAuth
// @Router /work-orders/approve [post]
func (h *WorkOrderHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req domain.ApproveWorkOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	workOrder, err := h.workOrderService.Approve(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "approve work order")
		return
	}
	respondJSON(w, http.StatusOK, workOrder)
}

// UpdateStatus godoc
// @Summary Update work order status
// @Description Technician progress: in-progress, paused, pending-approval
// @Tags WorkOrders
// @Accept json
// @Produce json
// @Param request body domain.UpdateWorkOrderStatusRequest true "Status change"
// @Success 200 {object} domain.APIResponse{data=domain.WorkOrderDTO}
// @Failure 403 {object} domain.APIResponse
// @Failure 422 {object} domain.APIResponse
// @Security CookieAuth
// @Router /work-orders/status [post]
func (h *WorkOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateWorkOrderStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	workOrder, err := h.workOrderService.UpdateStatus(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update work order status")
		return
	}
	respondJSON(w, http.StatusOK, workOrder)
}

// RequestTransfer godoc
// @Summary Request transfer
// @Tags WorkOrders
// @Accept json
// @Produce json
// @Param request body domain.TransferRequest true "Transfer request"
// @Success 200 {object} domain.APIResponse{data=domain.WorkOrderDTO}
// @Failure 422 {object} domain.APIResponse
// @Security CookieAuth
// @Router /work-orders/transfer [post]
func (h *WorkOrderHandler) RequestTransfer(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	workOrder, err := h.workOrderService.RequestTransfer(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "request transfer")
		return
	}
	respondJSON(w, http.StatusOK, workOrder)
}

// AcceptTransfer godoc
// @Summary Accept transfer
// @Description The remark needs at least five words
// @Tags Manager
// @Accept json
// @Produce json
// @Param request body domain.AcceptTransferRequest true "Acceptance"
// @Success 200 {object} domain.APIResponse{data=domain.WorkOrderDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 422 {object} domain.APIResponse
// @Security CookieAuth
// @Router /manager/transfers/accept [post]
func (h *WorkOrderHandler) AcceptTransfer(w http.ResponseWriter, r *http.Request) {
	var req domain.AcceptTransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	workOrder, err := h.workOrderService.AcceptTransfer(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "accept transfer")
		return
	}
	respondJSON(w, http.StatusOK, workOrder)
}

// ManagerProjects godoc
// @Summary Manager project list
// @Tags Manager
// @Produce json
// @Param branch query string false "Branch ID" format(uuid)
// @Param status query string false "Status"
// @Success 200 {object} domain.APIResponse{data=[]domain.WorkOrderDTO}
// @Security CookieAuth
// @Router /manager/projects [get]
func (h *WorkOrderHandler) ManagerProjects(w http.ResponseWriter, r *http.Request) {
	status, ok := parseStatusQuery(w, r)
	if !ok {
		return
	}
	workOrders, err := h.workOrderService.ManagerProjects(r.Context(), branchScope(r), status)
	if err != nil {
		handleServiceError(w, h.logger, err, "list manager projects")
		return
	}
	respondJSON(w, http.StatusOK, workOrders)
}

// Dashboard godoc
// @Summary Manager dashboard
// @Description Assigned work orders split into buckets, plus the unassigned queue
// @Tags Manager
// @Produce json
// @Param branch query string false "Branch ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.DashboardDTO}
// @Security CookieAuth
// @Router /manager/dashboard [get]
func (h *WorkOrderHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.workOrderService.Dashboard(r.Context(), branchScope(r))
	if err != nil {
		handleServiceError(w, h.logger, err, "build dashboard")
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

// TechnicianProjects godoc
// @Summary Work orders of a technician
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=[]domain.WorkOrderDTO}
// @Failure 403 {object} domain.APIResponse
// @Security CookieAuth
// @Router /technicians/{id}/projects [get]
func (h *WorkOrderHandler) TechnicianProjects(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "technician ID")
	if !ok {
		return
	}
	workOrders, err := h.workOrderService.TechnicianProjects(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "list technician projects")
		return
	}
	respondJSON(w, http.StatusOK, workOrders)
}

// Export godoc
// @Summary Export work orders
// @Tags WorkOrders
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param branch query string false "Branch ID" format(uuid)
// @Param status query string false "Status"
// @Success 200 {file} file
// @Security CookieAuth
// @Router /work-orders/export [get]
func (h *WorkOrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	status, ok := parseStatusQuery(w, r)
	if !ok {
		return
	}
	data, filename, err := h.exportService.WorkOrders(r.Context(), domain.WorkOrderFilters{
		BranchID: branchScope(r),
		Status:   status,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "export work orders")
		return
	}
	writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename, data)
}
