package designorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/repository"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/design-orders-backend/internal/validation"
)

type StartWorkUseCase struct {
	deps Deps
}

func NewStartWorkUseCase(deps Deps) *StartWorkUseCase {
	return &StartWorkUseCase{deps: deps}
}

func (uc *StartWorkUseCase) Execute(ctx context.Context, orderID, sellerID uuid.UUID) (*entity.DesignOrder, error) {
	return uc.deps.run(ctx, orderID, entity.UserActor(sellerID), transition{
		action: entity.ActionStartWork,
		mutate: func(o *entity.DesignOrder, now time.Time) error {
			return o.StartWork(now)
		},
		events: func(o *entity.DesignOrder, now time.Time) []entity.OrderEvent {
			ev := entity.NewOrderEvent(entity.EventWorkStarted, o, now, o.BuyerID)
			ev.Data["deadline"] = o.Deadline
			return []entity.OrderEvent{ev}
		},
	})
}

type DeliverUseCase struct {
	deps  Deps
	files repository.DeliverableRepository
}

func NewDeliverUseCase(deps Deps, files repository.DeliverableRepository) *DeliverUseCase {
	return &DeliverUseCase{deps: deps, files: files}
}

// Execute сдаёт работу. Каждый файл в deliverable.Files должен быть ранее загружен к этому заказу.
func (uc *DeliverUseCase) Execute(ctx context.Context, orderID, sellerID uuid.UUID, deliverable entity.Deliverable) (*entity.DesignOrder, error) {
	if err := validation.ValidateComment("сообщение к сдаче", deliverable.Message); err != nil {
		return nil, err
	}

	return uc.deps.run(ctx, orderID, entity.UserActor(sellerID), transition{
		action:  entity.ActionDeliver,
		payload: func(*entity.DesignOrder) any { return deliverable },
		mutate: func(o *entity.DesignOrder, now time.Time) error {
			if err := o.Deliver(deliverable, now); err != nil {
				return err
			}
			return uc.checkUploaded(ctx, o.ID, deliverable.Files)
		},
		events: func(o *entity.DesignOrder, now time.Time) []entity.OrderEvent {
			ev := entity.NewOrderEvent(entity.EventDelivered, o, now, o.BuyerID)
			ev.Data["files"] = deliverable.Files
			ev.Data["remaining_revisions"] = entity.RemainingRevisions(o)
			return []entity.OrderEvent{ev}
		},
	})
}

func (uc *DeliverUseCase) checkUploaded(ctx context.Context, orderID uuid.UUID, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	uploaded, err := uc.files.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(uploaded))
	for _, f := range uploaded {
		known[f.Path] = struct{}{}
	}

	for _, path := range paths {
		if _, ok := known[path]; !ok {
			return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("файл %q не загружен к заказу", path))
		}
	}
	return nil
}

type RequestRevisionUseCase struct {
	deps Deps
}

func NewRequestRevisionUseCase(deps Deps) *RequestRevisionUseCase {
	return &RequestRevisionUseCase{deps: deps}
}

// Execute списывает одну правку; при нулевом остатке возвращает REVISION_LIMIT_EXCEEDED.
func (uc *RequestRevisionUseCase) Execute(ctx context.Context, orderID, buyerID uuid.UUID, note string) (*entity.DesignOrder, error) {
	note = strings.TrimSpace(note)
	if err := validation.ValidateComment("комментарий к правке", note); err != nil {
		return nil, err
	}

	return uc.deps.run(ctx, orderID, entity.UserActor(buyerID), transition{
		action:  entity.ActionRequestRevision,
		payload: func(o *entity.DesignOrder) any {
			return map[string]any{"note": note, "revisions_used": o.RevisionsUsed}
		},
		mutate: func(o *entity.DesignOrder, now time.Time) error {
			return o.RequestRevision(now)
		},
		events: func(o *entity.DesignOrder, now time.Time) []entity.OrderEvent {
			remaining := entity.RemainingRevisions(o)

			ev := entity.NewOrderEvent(entity.EventRevisionRequested, o, now, o.SellerID)
			ev.Data["note"] = note
			ev.Data["remaining_revisions"] = remaining
			ev.Data["deadline"] = o.Deadline
			events := []entity.OrderEvent{ev}

			if entity.RevisionsLow(o) {
				low := entity.NewOrderEvent(entity.EventRevisionsLow, o, now, o.BuyerID)
				low.Data["remaining_revisions"] = remaining
				events = append(events, low)
			}
			return events
		},
	})
}

type AcceptInput struct {
	// Confirm — явное подтверждение: приёмка необратима и сжигает оставшиеся правки.
	Confirm bool
}

type AcceptUseCase struct {
	deps Deps
}

func NewAcceptUseCase(deps Deps) *AcceptUseCase {
	return &AcceptUseCase{deps: deps}
}

func (uc *AcceptUseCase) Execute(ctx context.Context, orderID, buyerID uuid.UUID, input AcceptInput) (*entity.DesignOrder, error) {
	if !input.Confirm {
		return nil, apperror.New(apperror.ErrCodeConfirmationRequired,
			"приёмка необратима и отменяет оставшиеся правки, подтвердите действие")
	}

	return uc.deps.run(ctx, orderID, entity.UserActor(buyerID), transition{
		action: entity.ActionAccept,
		mutate: func(o *entity.DesignOrder, now time.Time) error {
			return o.Accept(uc.deps.Hold.HoldPeriod(o.SellerTier), now)
		},
		// Неиспользованные правки не возвращаются, но фиксируются в истории.
		payload: func(o *entity.DesignOrder) any {
			return map[string]any{
				"forfeited_revisions": entity.RemainingRevisions(o),
				"escrow_release_at":   o.EscrowReleaseAt,
			}
		},
		events: func(o *entity.DesignOrder, now time.Time) []entity.OrderEvent {
			ev := entity.NewOrderEvent(entity.EventAccepted, o, now, o.SellerID)
			ev.Data["escrow_release_at"] = o.EscrowReleaseAt
			return []entity.OrderEvent{ev}
		},
	})
}

type OpenDisputeUseCase struct {
	deps Deps
}

func NewOpenDisputeUseCase(deps Deps) *OpenDisputeUseCase {
	return &OpenDisputeUseCase{deps: deps}
}

// Execute открывает спор. Спор в момент escrowReleaseAt или позже отклоняется:
// проверка идёт по версии заказа, которую затем сохраняет CAS.
func (uc *OpenDisputeUseCase) Execute(ctx context.Context, orderID, userID uuid.UUID, reason string) (*entity.DesignOrder, error) {
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateNonEmpty("причина спора", reason); err != nil {
		return nil, err
	}
	if err := validation.ValidateComment("причина спора", reason); err != nil {
		return nil, err
	}

	return uc.deps.run(ctx, orderID, entity.UserActor(userID), transition{
		action:  entity.ActionOpenDispute,
		payload: func(*entity.DesignOrder) any { return map[string]string{"reason": reason} },
		mutate: func(o *entity.DesignOrder, now time.Time) error {
			return o.OpenDispute(now)
		},
		events: func(o *entity.DesignOrder, now time.Time) []entity.OrderEvent {
			ev := entity.NewOrderEvent(entity.EventDisputeOpened, o, now, participants(o)...)
			ev.Data["reason"] = reason
			ev.Data["opened_by"] = userID
			return []entity.OrderEvent{ev}
		},
	})
}

type CancelUseCase struct {
	deps Deps
}

func NewCancelUseCase(deps Deps) *CancelUseCase {
	return &CancelUseCase{deps: deps}
}

// Execute отменяет заказ до сдачи работы и возвращает деньги покупателю в той же транзакции.
func (uc *CancelUseCase) Execute(ctx context.Context, orderID, userID uuid.UUID, reason string) (*entity.DesignOrder, error) {
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateComment("причина отмены", reason); err != nil {
		return nil, err
	}

	return uc.deps.run(ctx, orderID, entity.UserActor(userID), transition{
		action:  entity.ActionCancel,
		payload: func(*entity.DesignOrder) any { return map[string]string{"reason": reason} },
		mutate: func(o *entity.DesignOrder, now time.Time) error {
			return o.Cancel(now)
		},
		inTx: uc.deps.Payments.RefundForOrder,
		events: func(o *entity.DesignOrder, now time.Time) []entity.OrderEvent {
			ev := entity.NewOrderEvent(entity.EventCancelled, o, now, participants(o)...)
			ev.Data["reason"] = reason
			ev.Data["cancelled_by"] = userID
			return []entity.OrderEvent{ev}
		},
	})
}
