package designorder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/metrics"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
)

const defaultNotifyTimeout = 5 * time.Second

// transition описывает один переход заказа.
type transition struct {
	action entity.Action
	// mutate меняет заказ в памяти; ошибка означает, что переход недопустим.
	mutate func(o *entity.DesignOrder, now time.Time) error
	// payload пишется в историю, вызывается после mutate.
	payload func(o *entity.DesignOrder) any
	// inTx выполняется в той же транзакции, что и запись заказа.
	inTx func(ctx context.Context, o *entity.DesignOrder) error
	events func(o *entity.DesignOrder, now time.Time) []entity.OrderEvent
}

// run читает заказ, проверяет права, применяет переход и атомарно сохраняет
// заказ (с проверкой версии), запись истории и движение денег. Уведомления
// отправляются только после фиксации.
func (d Deps) run(ctx context.Context, orderID uuid.UUID, actor entity.Actor, t transition) (*entity.DesignOrder, error) {
	log := d.Log.WithFields(logrus.Fields{"order_id": orderID, "action": t.action})

	order, err := d.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, d.fail(log, t.action, err)
	}
	if !entity.CanTransition(actor, order, t.action) {
		return nil, d.fail(log, t.action, apperror.ErrForbidden)
	}

	now := d.Clock.Now()
	from := order.Status
	if err := t.mutate(order, now); err != nil {
		return nil, d.fail(log, t.action, err)
	}

	err = d.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := d.Orders.Update(ctx, order); err != nil {
			return err
		}
		var payload any
		if t.payload != nil {
			payload = t.payload(order)
		}
		entry := entity.NewHistoryEntry(order.ID, actor, t.action, from, order.Status, payload, now)
		if err := d.History.Append(ctx, entry); err != nil {
			return err
		}
		if t.inTx != nil {
			return t.inTx(ctx, order)
		}
		return nil
	})
	if err != nil {
		return nil, d.fail(log, t.action, err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(t.action)).Inc()
	log.WithFields(logrus.Fields{"from": from, "to": order.Status, "version": order.Version}).Info("заказ переведён")

	if t.events != nil {
		d.notify(ctx, t.events(order, now))
	}
	return order, nil
}

// notify не возвращает ошибок: переход уже зафиксирован и не откатывается.
func (d Deps) notify(ctx context.Context, events []entity.OrderEvent) {
	if d.Notifier == nil || len(events) == 0 {
		return
	}

	timeout := d.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	for _, ev := range events {
		if err := d.Notifier.Notify(ctx, ev); err != nil {
			d.Log.WithError(err).WithFields(logrus.Fields{
				"order_id": ev.OrderID,
				"event":    ev.Type,
			}).Warn("не удалось доставить уведомление")
		}
	}
}

// fail приводит ошибку к AppError, чтобы наружу не уходили неклассифицированные ошибки.
func (d Deps) fail(log *logrus.Entry, action entity.Action, err error) error {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Wrap(err, apperror.ErrCodeInternal, "внутренняя ошибка при обработке заказа")
	}

	metrics.OperationErrorsTotal.WithLabelValues(string(action), string(appErr.Code)).Inc()
	if appErr.HTTPStatus >= 500 {
		log.WithError(err).Error("переход заказа не выполнен")
	} else {
		log.WithField("code", appErr.Code).Debug("переход заказа отклонён")
	}
	return appErr
}

func participants(o *entity.DesignOrder) []uuid.UUID {
	return []uuid.UUID{o.BuyerID, o.SellerID}
}
