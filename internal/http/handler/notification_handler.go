package handler

import (
	"net/http"
	"strconv"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/service"
	"go.uber.org/zap"
)

// NotificationListDTO is one page of the caller's notifications
type NotificationListDTO struct {
	Items       []domain.NotificationDTO `json:"items"`
	Total       int64                    `json:"total"`
	UnreadCount int                      `json:"unreadCount"`
	Page        int                      `json:"page"`
	PageSize    int                      `json:"pageSize"`
}

type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

func NewNotificationHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// List godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param unreadOnly query bool false "Only unread" default(false)
// @Success 200 {object} domain.APIResponse{data=NotificationListDTO}
// @Failure 401 {object} domain.APIResponse
// @Security CookieAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"

	items, total, unread, err := h.notificationService.GetForCurrentUser(r.Context(), page, pageSize, unreadOnly)
	if err != nil {
		handleServiceError(w, h.logger, err, "list notifications")
		return
	}
	respondJSON(w, http.StatusOK, NotificationListDTO{
		Items:       items,
		Total:       total,
		UnreadCount: unread,
		Page:        page,
		PageSize:    pageSize,
	})
}

// MarkAsRead godoc
// @Summary Mark notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID" format(uuid)
// @Success 200 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "notification ID")
	if !ok {
		return
	}
	if err := h.notificationService.MarkAsRead(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "mark notification as read")
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
