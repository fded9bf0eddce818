package services

import (
	"context"
	"errors"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
)

// NotificationService отдаёт уведомления получателю и ведёт флаг прочтения.
type NotificationService struct {
	repo repository.NotificationRepository
}

// NewNotificationService создаёт новый экземпляр NotificationService.
func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// FetchNotifications возвращает уведомления вызывающего, новые первыми.
func (s *NotificationService) FetchNotifications(ctx context.Context, actor models.Actor, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	notifications, err := s.repo.ListByRecipient(ctx, actor.UserID, unreadOnly, limit, offset)
	if err != nil {
		return nil, models.InternalError("failed to fetch notifications")
	}
	return notifications, nil
}

// MarkRead помечает уведомление прочитанным. Чужие уведомления недоступны.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, notificationID string) error {
	if err := s.repo.MarkRead(ctx, notificationID, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.NotFound("notification not found")
		}
		return models.InternalError("failed to update notification")
	}
	return nil
}
