package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/metrics"
	"github.com/ignatzorin/design-orders-backend/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

// Pusher доставляет событие в открытые WebSocket соединения.
type Pusher interface {
	Online(userID uuid.UUID) bool
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// EventPublisher отправляет событие во внешнюю шину.
type EventPublisher interface {
	Publish(ctx context.Context, ev entity.OrderEvent) error
}

// NotificationService сохраняет уведомления участникам заказа и рассылает их
// по всем доступным каналам. Ошибка одного канала не мешает остальным.
type NotificationService struct {
	repo      NotificationRepository
	pusher    Pusher
	publisher EventPublisher
	log       *logrus.Logger
}

// NewNotificationService создаёт новый сервис уведомлений. pusher и publisher могут быть nil.
func NewNotificationService(repo NotificationRepository, pusher Pusher, publisher EventPublisher, log *logrus.Logger) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher, publisher: publisher, log: log}
}

// Notify доставляет событие каждому получателю.
func (s *NotificationService) Notify(ctx context.Context, ev entity.OrderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notification service: marshal payload %w", err)
	}

	var errs []error
	for _, userID := range ev.Recipients {
		notification := &models.Notification{
			UserID:  userID,
			Type:    string(ev.Type),
			Payload: payload,
		}
		if err := s.repo.Create(ctx, notification); err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues("db").Inc()
			errs = append(errs, err)
		}

		// Офлайн получатель увидит уведомление в списке, пуш ему не нужен.
		if s.pusher != nil && s.pusher.Online(userID) {
			if err := s.pusher.BroadcastToUser(userID, string(ev.Type), ev); err != nil {
				metrics.NotificationFailuresTotal.WithLabelValues("ws").Inc()
				// Пуш не критичен: уведомление уже сохранено и будет прочитано позже.
				s.log.WithError(err).WithField("user_id", userID).Debug("notification service: пуш не доставлен")
			}
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues("kafka").Inc()
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ListNotifications возвращает последние уведомления пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, userID, limit)
}
