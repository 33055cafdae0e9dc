package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/mapper"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotificationService handles business logic for notifications
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// Notify creates a notification for a user. Failures are logged, never returned,
// so the action that triggered the notification still succeeds.
func (s *NotificationService) Notify(
	ctx context.Context,
	userID uuid.UUID,
	notificationType domain.NotificationType,
	title string,
	message string,
	entityID uuid.UUID,
) {
	notification := &domain.Notification{
		UserID:     userID,
		Type:       string(notificationType),
		Title:      title,
		Message:    message,
		EntityType: entityTypeFor(notificationType),
		EntityID:   &entityID,
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		s.logger.Warn("failed to create notification",
			zap.String("userID", userID.String()),
			zap.String("type", string(notificationType)),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("notification created",
		zap.String("notificationID", notification.ID.String()),
		zap.String("userID", userID.String()),
		zap.String("type", string(notificationType)),
	)
}

func entityTypeFor(notificationType domain.NotificationType) string {
	if notificationType == domain.NotificationTypeWarrantyClaim {
		return "warranty_replacement"
	}
	return "work_order"
}

// NotifyMany sends the same notification to several users
func (s *NotificationService) NotifyMany(
	ctx context.Context,
	userIDs []uuid.UUID,
	notificationType domain.NotificationType,
	title string,
	message string,
	entityID uuid.UUID,
) {
	for _, userID := range userIDs {
		s.Notify(ctx, userID, notificationType, title, message, entityID)
	}
}

// NotifyUnlessSince notifies userID unless a notification of the same type about
// entityID was already created after since. Reports whether one was sent.
func (s *NotificationService) NotifyUnlessSince(
	ctx context.Context,
	userID uuid.UUID,
	notificationType domain.NotificationType,
	title string,
	message string,
	entityID uuid.UUID,
	since time.Time,
) bool {
	exists, err := s.notificationRepo.ExistsSince(ctx, userID, entityID, notificationType, since)
	if err != nil {
		s.logger.Warn("failed to check earlier notifications",
			zap.String("userID", userID.String()),
			zap.Error(err),
		)
		return false
	}
	if exists {
		return false
	}
	s.Notify(ctx, userID, notificationType, title, message, entityID)
	return true
}

// GetForCurrentUser returns the current user's notifications and unread count
func (s *NotificationService) GetForCurrentUser(ctx context.Context, page, pageSize int, unreadOnly bool) ([]domain.NotificationDTO, int64, int, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, 0, 0, ErrUserContextRequired
	}

	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	notifications, total, err := s.notificationRepo.ListByUser(ctx, userCtx.UserID, page, pageSize, unreadOnly)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.notificationRepo.CountUnread(ctx, userCtx.UserID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	dtos := make([]domain.NotificationDTO, len(notifications))
	for i := range notifications {
		dtos[i] = mapper.ToNotificationDTO(&notifications[i])
	}
	return dtos, total, unread, nil
}

// MarkAsRead marks one of the current user's notifications as read
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUserContextRequired
	}

	if err := s.notificationRepo.MarkAsRead(ctx, notificationID, userCtx.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}
