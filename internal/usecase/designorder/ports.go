package designorder

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/design-orders-backend/internal/clock"
	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/repository"
)

// PaymentLedger двигает деньги по заказу. Ключ идемпотентности — ID заказа:
// повторный вызов для уже проведённой операции не должен списывать или начислять снова.
type PaymentLedger interface {
	HoldForOrder(ctx context.Context, order *entity.DesignOrder) error
	ReleaseForOrder(ctx context.Context, order *entity.DesignOrder) error
	RefundForOrder(ctx context.Context, order *entity.DesignOrder) error
}

type Notifier interface {
	Notify(ctx context.Context, ev entity.OrderEvent) error
}

// HoldPolicy определяет срок удержания средств после приёмки.
type HoldPolicy interface {
	HoldPeriod(sellerTier string) time.Duration
}

// FixedHold задаёт политику с одним сроком для всех продавцов.
type FixedHold time.Duration

func (f FixedHold) HoldPeriod(string) time.Duration {
	return time.Duration(f)
}

// Deps содержит общие зависимости сценариев заказа.
type Deps struct {
	Orders   repository.DesignOrderRepository
	History  repository.HistoryRepository
	Tx       repository.Transactor
	Payments PaymentLedger
	Notifier Notifier
	Hold     HoldPolicy
	Clock    clock.Clock
	Log      *logrus.Logger

	// DefaultDeliveryWindow используется, если покупатель не указал срок.
	DefaultDeliveryWindow time.Duration
	// NotifyTimeout ограничивает доставку уведомлений после фиксации перехода.
	NotifyTimeout time.Duration
}
