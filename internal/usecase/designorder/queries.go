package designorder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/repository"
	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
)

// View — заказ вместе с производными значениями, которые пересчитываются при каждом чтении.
type View struct {
	Order              *entity.DesignOrder
	RemainingRevisions int
	RevisionsLow       bool
	DeadlineStatus     valueobject.DeadlineStatus
	EscrowMatured      bool
}

func (d Deps) view(o *entity.DesignOrder) View {
	return ViewAt(o, d.Clock.Now())
}

// ViewAt строит представление заказа на момент now.
func ViewAt(o *entity.DesignOrder, now time.Time) View {
	return View{
		Order:              o,
		RemainingRevisions: entity.RemainingRevisions(o),
		RevisionsLow:       entity.RevisionsLow(o),
		DeadlineStatus:     o.DeadlineStatus(now),
		EscrowMatured:      entity.IsEscrowMatured(o, now),
	}
}

type GetDesignOrderUseCase struct {
	deps Deps
}

func NewGetDesignOrderUseCase(deps Deps) *GetDesignOrderUseCase {
	return &GetDesignOrderUseCase{deps: deps}
}

func (uc *GetDesignOrderUseCase) Execute(ctx context.Context, orderID, userID uuid.UUID) (*View, error) {
	order, err := uc.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(entity.UserActor(userID), order, entity.ActionView) {
		return nil, apperror.ErrForbidden
	}
	v := uc.deps.view(order)
	return &v, nil
}

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

type ListMyInput struct {
	UserID uuid.UUID
	Role   Role
	Status string
	Limit  int
	Offset int
}

type ListMyDesignOrdersUseCase struct {
	deps Deps
}

func NewListMyDesignOrdersUseCase(deps Deps) *ListMyDesignOrdersUseCase {
	return &ListMyDesignOrdersUseCase{deps: deps}
}

func (uc *ListMyDesignOrdersUseCase) Execute(ctx context.Context, input ListMyInput) ([]View, int, error) {
	filter := repository.DesignOrderFilter{Limit: input.Limit, Offset: input.Offset}

	switch input.Role {
	case RoleSeller:
		filter.SellerID = &input.UserID
	case RoleBuyer, "":
		filter.BuyerID = &input.UserID
	default:
		return nil, 0, apperror.New(apperror.ErrCodeValidation, "роль должна быть buyer или seller")
	}

	if input.Status != "" {
		status, err := valueobject.NewOrderStatus(input.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = string(status)
	}

	orders, total, err := uc.deps.Orders.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	views := make([]View, 0, len(orders))
	for _, o := range orders {
		views = append(views, uc.deps.view(o))
	}
	return views, total, nil
}

type GetHistoryUseCase struct {
	deps Deps
}

func NewGetHistoryUseCase(deps Deps) *GetHistoryUseCase {
	return &GetHistoryUseCase{deps: deps}
}

func (uc *GetHistoryUseCase) Execute(ctx context.Context, orderID, userID uuid.UUID) ([]entity.HistoryEntry, error) {
	order, err := uc.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(entity.UserActor(userID), order, entity.ActionView) {
		return nil, apperror.ErrForbidden
	}
	return uc.deps.History.ListByOrder(ctx, orderID)
}
