package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/design-orders-backend/internal/models"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n.UserID, n.Type).Error(0)
}

func (m *mockNotificationRepo) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.Notification), args.Error(1)
}

type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) Online(userID uuid.UUID) bool {
	return m.Called(userID).Bool(0)
}

func (m *mockPusher) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	return m.Called(userID, event).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, ev entity.OrderEvent) error {
	return m.Called(ctx, ev.Type).Error(0)
}

func testEvent(recipients ...uuid.UUID) entity.OrderEvent {
	return entity.OrderEvent{
		Type:       entity.EventDelivered,
		OrderID:    uuid.New(),
		Status:     valueobject.OrderStatusDelivered,
		Recipients: recipients,
		OccurredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNotificationService_Notify_AllChannels(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := new(mockPusher)
	publisher := new(mockPublisher)
	svc := NewNotificationService(repo, pusher, publisher, logrus.New())
	ctx := context.Background()

	buyer, seller := uuid.New(), uuid.New()
	ev := testEvent(buyer, seller)

	for _, id := range []uuid.UUID{buyer, seller} {
		repo.On("Create", ctx, id, string(entity.EventDelivered)).Return(nil).Once()
		pusher.On("Online", id).Return(true).Once()
		pusher.On("BroadcastToUser", id, string(entity.EventDelivered)).Return(nil).Once()
	}
	publisher.On("Publish", ctx, entity.EventDelivered).Return(nil).Once()

	assert.NoError(t, svc.Notify(ctx, ev))
	repo.AssertExpectations(t)
	pusher.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestNotificationService_Notify_PushFailureIsIgnored(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := new(mockPusher)
	svc := NewNotificationService(repo, pusher, nil, logrus.New())
	ctx := context.Background()

	buyer := uuid.New()
	repo.On("Create", ctx, buyer, string(entity.EventDelivered)).Return(nil)
	pusher.On("Online", buyer).Return(true)
	pusher.On("BroadcastToUser", buyer, string(entity.EventDelivered)).Return(errors.New("queue full"))

	assert.NoError(t, svc.Notify(ctx, testEvent(buyer)))
}

func TestNotificationService_Notify_SkipsPushForOfflineUser(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := new(mockPusher)
	svc := NewNotificationService(repo, pusher, nil, logrus.New())
	ctx := context.Background()

	online, offline := uuid.New(), uuid.New()
	repo.On("Create", ctx, online, string(entity.EventDelivered)).Return(nil).Once()
	repo.On("Create", ctx, offline, string(entity.EventDelivered)).Return(nil).Once()
	pusher.On("Online", online).Return(true).Once()
	pusher.On("Online", offline).Return(false).Once()
	pusher.On("BroadcastToUser", online, string(entity.EventDelivered)).Return(nil).Once()

	assert.NoError(t, svc.Notify(ctx, testEvent(online, offline)))
	repo.AssertExpectations(t)
	pusher.AssertExpectations(t)
	pusher.AssertNotCalled(t, "BroadcastToUser", offline, string(entity.EventDelivered))
}

func TestNotificationService_Notify_ContinuesAfterStorageFailure(t *testing.T) {
	repo := new(mockNotificationRepo)
	publisher := new(mockPublisher)
	svc := NewNotificationService(repo, nil, publisher, logrus.New())
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	repo.On("Create", ctx, first, string(entity.EventDelivered)).Return(errors.New("db down"))
	repo.On("Create", ctx, second, string(entity.EventDelivered)).Return(nil)
	publisher.On("Publish", ctx, entity.EventDelivered).Return(nil)

	err := svc.Notify(ctx, testEvent(first, second))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	repo.AssertNumberOfCalls(t, "Create", 2)
	publisher.AssertExpectations(t)
}

func TestNotificationService_ListNotifications_DefaultLimit(t *testing.T) {
	repo := new(mockNotificationRepo)
	svc := NewNotificationService(repo, nil, nil, logrus.New())
	ctx := context.Background()
	userID := uuid.New()

	repo.On("List", ctx, userID, 20).Return([]models.Notification{{ID: uuid.New()}}, nil)

	list, err := svc.ListNotifications(ctx, userID, 500)
	assert.NoError(t, err)
	assert.Len(t, list, 1)
}
