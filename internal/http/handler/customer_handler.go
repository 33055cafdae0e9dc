package handler

import (
	"net/http"
	"strings"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/service"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	customerService *service.CustomerService
	logger          *zap.Logger
}

func NewCustomerHandler(customerService *service.CustomerService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		logger:          logger,
	}
}

// List godoc
// @Summary List customers
// @Tags Customers
// @Produce json
// @Param branch query string false "Branch ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=[]domain.CustomerDTO}
// @Security CookieAuth
// @Router /customers [get]
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customerService.List(r.Context(), branchScope(r))
	if err != nil {
		handleServiceError(w, h.logger, err, "list customers")
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

// GetByID godoc
// @Summary Get customer with work orders
// @Tags Customers
// @Produce json
// @Param id path string true "Customer ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.CustomerDTO}
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /customers/{id} [get]
func (h *CustomerHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "customer ID")
	if !ok {
		return
	}
	customer, err := h.customerService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get customer")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

// Create godoc
// @Summary Create customer
// @Description Creates a customer directly, optionally with a first work order
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body domain.CreateCustomerRequest true "Customer"
// @Success 201 {object} domain.APIResponse{data=domain.CustomerDTO}
// @Failure 400 {object} domain.APIResponse
// @Security CookieAuth
// @Router /customers [post]
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	customer, err := h.customerService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create customer")
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}

// Search godoc
// @Summary Search leads and customers
// @Tags Search
// @Produce json
// @Param query query string true "Name, phone or email fragment"
// @Success 200 {object} domain.APIResponse{data=[]domain.ContactDTO}
// @Failure 400 {object} domain.APIResponse
// @Security CookieAuth
// @Router /search [get]
func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'query' is required")
		return
	}
	contacts, err := h.customerService.Search(r.Context(), query)
	if err != nil {
		handleServiceError(w, h.logger, err, "search")
		return
	}
	respondJSON(w, http.StatusOK, contacts)
}
