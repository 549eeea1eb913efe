package designorder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/design-orders-backend/internal/metrics"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
)

type MatureEscrowUseCase struct {
	deps Deps
}

func NewMatureEscrowUseCase(deps Deps) *MatureEscrowUseCase {
	return &MatureEscrowUseCase{deps: deps}
}

// Execute завершает заказ и выплачивает продавцу, если удержание истекло.
//
// Повторный вызов для завершённого заказа ничего не делает и не обращается к платёжной
// системе. Если выплата не прошла, транзакция откатывается и заказ остаётся accepted,
// следующий проход sweep попробует снова. Проигранная гонка с другим воркером,
// который уже завершил заказ, тоже считается успехом.
func (uc *MatureEscrowUseCase) Execute(ctx context.Context, orderID uuid.UUID) (*entity.DesignOrder, error) {
	order, err := uc.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == valueobject.OrderStatusCompleted {
		return order, nil
	}

	order, err = uc.deps.run(ctx, orderID, entity.SystemActor(), transition{
		action: entity.ActionMatureEscrow,
		mutate: func(o *entity.DesignOrder, now time.Time) error {
			return o.MatureEscrow(now)
		},
		payload: func(o *entity.DesignOrder) any {
			return map[string]string{"amount": o.Amount.String()}
		},
		inTx: uc.deps.Payments.ReleaseForOrder,
		events: func(o *entity.DesignOrder, now time.Time) []entity.OrderEvent {
			ev := entity.NewOrderEvent(entity.EventEscrowReleased, o, now, participants(o)...)
			ev.Data["amount"] = o.Amount.String()
			return []entity.OrderEvent{ev}
		},
	})
	if err == nil {
		metrics.EscrowReleasedTotal.Inc()
		return order, nil
	}

	if apperror.IsConcurrentModification(err) || apperror.CodeOf(err) == apperror.ErrCodeInvalidState {
		current, findErr := uc.deps.Orders.FindByID(ctx, orderID)
		if findErr == nil && current.Status == valueobject.OrderStatusCompleted {
			return current, nil
		}
	}
	return nil, err
}
