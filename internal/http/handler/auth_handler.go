package handler

import (
	"errors"
	"net/http"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/mapper"
	"github.com/fieldline/crm-api/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userService *service.UserService
	sessions    *auth.SessionManager
	logger      *zap.Logger
}

func NewAuthHandler(userService *service.UserService, sessions *auth.SessionManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		logger:      logger,
	}
}

// SignIn godoc
// @Summary Sign in
// @Description Checks credentials and sets the session cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.SignInRequest true "Credentials"
// @Success 200 {object} domain.APIResponse{data=domain.SessionDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 401 {object} domain.APIResponse
// @Router /signin [post]
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.SignInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		handleServiceError(w, h.logger, err, "sign in")
		return
	}

	token, expiresAt, err := h.sessions.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue session", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}
	h.sessions.SetCookie(w, token, expiresAt)

	respondJSON(w, http.StatusOK, domain.SessionDTO{
		User:      mapper.ToUserDTO(user),
		ExpiresAt: expiresAt,
	})
}

// SignOut godoc
// @Summary Sign out
// @Description Clears the session cookie
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.APIResponse
// @Router /signout [post]
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	respondJSON(w, http.StatusOK, nil)
}

// Me godoc
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.APIResponse{data=domain.UserDTO}
// @Failure 401 {object} domain.APIResponse
// @Security CookieAuth
// @Router /me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			h.sessions.ClearCookie(w)
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		handleServiceError(w, h.logger, err, "get current user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
