package handler

import (
	"net/http"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// Managers godoc
// @Summary List managers
// @Tags Users
// @Produce json
// @Success 200 {object} domain.APIResponse{data=[]domain.UserDTO}
// @Security CookieAuth
// @Router /users/managers [get]
func (h *UserHandler) Managers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Managers(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list managers")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Technicians godoc
// @Summary List technicians
// @Tags Users
// @Produce json
// @Success 200 {object} domain.APIResponse{data=[]domain.TechnicianDTO}
// @Security CookieAuth
// @Router /users/technicians [get]
func (h *UserHandler) Technicians(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Technicians(r.Context(), branchScope(r), false)
	if err != nil {
		handleServiceError(w, h.logger, err, "list technicians")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// ManagerTechnicians godoc
// @Summary Technicians with performance
// @Description Technicians of a branch with counts derived from their work orders
// @Tags Manager
// @Produce json
// @Param branch query string false "Branch ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=[]domain.TechnicianDTO}
// @Security CookieAuth
// @Router /manager/technicians [get]
func (h *UserHandler) ManagerTechnicians(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Technicians(r.Context(), branchScope(r), true)
	if err != nil {
		handleServiceError(w, h.logger, err, "list technicians")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// GetByID godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=domain.UserDTO}
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /users/{id} [get]
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "user ID")
	if !ok {
		return
	}
	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Create godoc
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Param request body domain.CreateUserRequest true "User"
// @Success 201 {object} domain.APIResponse{data=domain.UserDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 409 {object} domain.APIResponse
// @Security CookieAuth
// @Router /users [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := h.userService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create user")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}
