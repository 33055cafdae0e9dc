package handler

import (
	"net/http"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/service"
	"go.uber.org/zap"
)

type BillHandler struct {
	billService *service.BillService
	logger      *zap.Logger
}

func NewBillHandler(billService *service.BillService, logger *zap.Logger) *BillHandler {
	return &BillHandler{
		billService: billService,
		logger:      logger,
	}
}

// Create godoc
// @Summary Create bill
// @Tags Bills
// @Accept json
// @Produce json
// @Param request body domain.CreateBillRequest true "Bill"
// @Success 201 {object} domain.APIResponse{data=domain.BillDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /bills [post]
func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBillRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	bill, err := h.billService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create bill")
		return
	}
	respondJSON(w, http.StatusCreated, bill)
}

// GetByID godoc
// @Summary Bill details
// @Tags Bills
// @Produce json
// @Param billId path string true "Bill ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.BillDTO}
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /bills/{billId} [get]
func (h *BillHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "billId", "bill ID")
	if !ok {
		return
	}
	bill, err := h.billService.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get bill")
		return
	}
	respondJSON(w, http.StatusOK, bill)
}

// PDF godoc
// @Summary Bill as PDF
// @Tags Bills
// @Produce application/pdf
// @Param billId path string true "Bill ID" format(uuid)
// @Success 200 {file} file
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /bills/{billId}/pdf [get]
func (h *BillHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "billId", "bill ID")
	if !ok {
		return
	}
	data, filename, err := h.billService.PDF(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "render bill")
		return
	}
	writeFile(w, "application/pdf", filename, data)
}
