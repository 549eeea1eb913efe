package designorder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/design-orders-backend/internal/metrics"
	"github.com/ignatzorin/design-orders-backend/internal/validation"
)

type CreateDesignOrderInput struct {
	BuyerID          uuid.UUID
	SellerID         uuid.UUID
	Title            string
	Brief            string
	Amount           decimal.Decimal
	Currency         string
	SellerTier       string
	RevisionsAllowed int
	DeliveryDays     int
}

type CreateDesignOrderUseCase struct {
	deps Deps
}

func NewCreateDesignOrderUseCase(deps Deps) *CreateDesignOrderUseCase {
	return &CreateDesignOrderUseCase{deps: deps}
}

// Execute создаёт заказ и сразу замораживает его сумму на балансе покупателя.
func (uc *CreateDesignOrderUseCase) Execute(ctx context.Context, input CreateDesignOrderInput) (*entity.DesignOrder, error) {
	d := uc.deps
	log := d.Log.WithFields(logrus.Fields{"buyer_id": input.BuyerID, "action": entity.ActionCreate})

	amount, err := valueobject.NewMoney(input.Amount, input.Currency)
	if err != nil {
		return nil, d.fail(log, entity.ActionCreate, err)
	}

	if err := validation.ValidateOrderTitle(input.Title); err != nil {
		return nil, d.fail(log, entity.ActionCreate, err)
	}
	if err := validation.ValidateBrief(input.Brief); err != nil {
		return nil, d.fail(log, entity.ActionCreate, err)
	}

	window := d.DefaultDeliveryWindow
	if input.DeliveryDays > 0 {
		window = time.Duration(input.DeliveryDays) * 24 * time.Hour
	}

	now := d.Clock.Now()
	order, err := entity.NewDesignOrder(entity.NewDesignOrderParams{
		BuyerID:          input.BuyerID,
		SellerID:         input.SellerID,
		Title:            input.Title,
		Brief:            input.Brief,
		Amount:           amount,
		SellerTier:       input.SellerTier,
		RevisionsAllowed: input.RevisionsAllowed,
		DeliveryWindow:   window,
	}, now)
	if err != nil {
		return nil, d.fail(log, entity.ActionCreate, err)
	}

	actor := entity.UserActor(input.BuyerID)
	err = d.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := d.Orders.Create(ctx, order); err != nil {
			return err
		}
		entry := entity.NewHistoryEntry(order.ID, actor, entity.ActionCreate, "", order.Status, map[string]any{
			"amount":            order.Amount.String(),
			"revisions_allowed": order.RevisionsAllowed,
		}, now)
		if err := d.History.Append(ctx, entry); err != nil {
			return err
		}
		return d.Payments.HoldForOrder(ctx, order)
	})
	if err != nil {
		return nil, d.fail(log, entity.ActionCreate, err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(entity.ActionCreate)).Inc()
	log.WithField("order_id", order.ID).Info("заказ создан, средства заморожены")

	ev := entity.NewOrderEvent(entity.EventOrderCreated, order, now, order.SellerID)
	ev.Data["title"] = order.Title
	ev.Data["amount"] = order.Amount.String()
	d.notify(ctx, []entity.OrderEvent{ev})

	return order, nil
}
