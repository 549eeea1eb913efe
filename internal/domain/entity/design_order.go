package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
)

const (
	MaxRevisionsAllowed  = 20
	RevisionsLowBoundary = 2
)

// DesignOrder — заказ на индивидуальный дизайн и его жизненный цикл.
type DesignOrder struct {
	ID               uuid.UUID
	BuyerID          uuid.UUID
	SellerID         uuid.UUID
	Title            string
	Brief            string
	Amount           valueobject.Money
	Status           valueobject.OrderStatus
	SellerTier       string
	RevisionsAllowed int
	RevisionsUsed    int
	DeliveryWindow   time.Duration
	Deadline         *time.Time
	LastDeliveredAt  *time.Time
	AcceptedAt       *time.Time
	EscrowReleaseAt  *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	DisputedAt       *time.Time
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type NewDesignOrderParams struct {
	BuyerID          uuid.UUID
	SellerID         uuid.UUID
	Title            string
	Brief            string
	Amount           valueobject.Money
	SellerTier       string
	RevisionsAllowed int
	DeliveryWindow   time.Duration
}

// Deliverable — результат работы, который сдаёт продавец.
type Deliverable struct {
	Files   []string `json:"files"`
	Message string   `json:"message,omitempty"`
}

func NewDesignOrder(p NewDesignOrderParams, now time.Time) (*DesignOrder, error) {
	if p.BuyerID == uuid.Nil || p.SellerID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "покупатель и продавец обязательны")
	}
	if p.BuyerID == p.SellerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя заказать дизайн у самого себя")
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название заказа обязательно")
	}
	if !p.Amount.Amount.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	if p.RevisionsAllowed < 0 || p.RevisionsAllowed > MaxRevisionsAllowed {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("количество правок должно быть от 0 до %d", MaxRevisionsAllowed))
	}
	if p.DeliveryWindow <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок выполнения должен быть положительным")
	}

	deadline := now.Add(p.DeliveryWindow)
	return &DesignOrder{
		ID:               uuid.New(),
		BuyerID:          p.BuyerID,
		SellerID:         p.SellerID,
		Title:            strings.TrimSpace(p.Title),
		Brief:            strings.TrimSpace(p.Brief),
		Amount:           p.Amount,
		Status:           valueobject.OrderStatusPending,
		SellerTier:       p.SellerTier,
		RevisionsAllowed: p.RevisionsAllowed,
		DeliveryWindow:   p.DeliveryWindow,
		Deadline:         &deadline,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// StartWork переводит заказ в работу; срок отсчитывается заново.
func (o *DesignOrder) StartWork(now time.Time) error {
	if err := o.ensureTransition(valueobject.OrderStatusInProgress, "начать работу"); err != nil {
		return err
	}
	o.Status = valueobject.OrderStatusInProgress
	o.resetDeadline(now)
	o.touch(now)
	return nil
}

func (o *DesignOrder) Deliver(d Deliverable, now time.Time) error {
	if o.Status != valueobject.OrderStatusInProgress && o.Status != valueobject.OrderStatusRevisionRequested {
		return invalidState("сдать работу", o.Status)
	}
	if len(d.Files) == 0 && strings.TrimSpace(d.Message) == "" {
		return apperror.New(apperror.ErrCodeValidation, "результат работы не может быть пустым")
	}
	o.Status = valueobject.OrderStatusDelivered
	o.LastDeliveredAt = &now
	o.touch(now)
	return nil
}

// RequestRevision списывает одну правку из лимита и возвращает заказ продавцу.
func (o *DesignOrder) RequestRevision(now time.Time) error {
	if o.Status != valueobject.OrderStatusDelivered {
		return invalidState("запросить правку", o.Status)
	}
	if RemainingRevisions(o) <= 0 {
		return apperror.New(apperror.ErrCodeRevisionLimitExceeded,
			fmt.Sprintf("лимит правок исчерпан (%d из %d)", o.RevisionsUsed, o.RevisionsAllowed))
	}
	o.RevisionsUsed++
	o.Status = valueobject.OrderStatusRevisionRequested
	o.resetDeadline(now)
	o.touch(now)
	return nil
}

// Accept фиксирует приёмку работы и запускает удержание средств на holdPeriod.
// Оставшиеся правки при этом сгорают.
func (o *DesignOrder) Accept(holdPeriod time.Duration, now time.Time) error {
	if o.Status != valueobject.OrderStatusDelivered {
		return invalidState("принять работу", o.Status)
	}
	if o.AcceptedAt != nil {
		return invalidState("принять работу повторно", o.Status)
	}
	releaseAt := now.Add(holdPeriod)
	o.AcceptedAt = &now
	o.EscrowReleaseAt = &releaseAt
	o.Deadline = nil
	o.Status = valueobject.OrderStatusAccepted
	o.touch(now)
	return nil
}

// OpenDispute замораживает заказ. После escrowReleaseAt спор не принимается:
// на границе побеждает выплата.
func (o *DesignOrder) OpenDispute(now time.Time) error {
	switch o.Status {
	case valueobject.OrderStatusDelivered, valueobject.OrderStatusRevisionRequested:
	case valueobject.OrderStatusAccepted:
		if o.EscrowReleaseAt == nil || !now.Before(*o.EscrowReleaseAt) {
			return apperror.New(apperror.ErrCodeDisputeWindowClosed, "срок для открытия спора истёк")
		}
	default:
		return invalidState("открыть спор", o.Status)
	}
	o.Status = valueobject.OrderStatusDisputed
	o.DisputedAt = &now
	o.touch(now)
	return nil
}

// MatureEscrow завершает заказ после окончания удержания.
func (o *DesignOrder) MatureEscrow(now time.Time) error {
	if o.Status != valueobject.OrderStatusAccepted {
		return invalidState("выплатить продавцу", o.Status)
	}
	if !IsEscrowMatured(o, now) {
		return apperror.New(apperror.ErrCodeInvalidState, "срок удержания средств ещё не истёк")
	}
	o.Status = valueobject.OrderStatusCompleted
	o.CompletedAt = &now
	o.touch(now)
	return nil
}

func (o *DesignOrder) Cancel(now time.Time) error {
	if o.Status != valueobject.OrderStatusPending && o.Status != valueobject.OrderStatusInProgress {
		return invalidState("отменить заказ", o.Status)
	}
	o.Status = valueobject.OrderStatusCancelled
	o.CancelledAt = &now
	o.Deadline = nil
	o.touch(now)
	return nil
}

func (o *DesignOrder) IsBuyer(userID uuid.UUID) bool {
	return o.BuyerID == userID
}

func (o *DesignOrder) IsSeller(userID uuid.UUID) bool {
	return o.SellerID == userID
}

func (o *DesignOrder) IsParticipant(userID uuid.UUID) bool {
	return o.IsBuyer(userID) || o.IsSeller(userID)
}

// DeadlineStatus имеет смысл только пока ход за продавцом.
func (o *DesignOrder) DeadlineStatus(now time.Time) valueobject.DeadlineStatus {
	switch o.Status {
	case valueobject.OrderStatusPending, valueobject.OrderStatusInProgress, valueobject.OrderStatusRevisionRequested:
		return valueobject.ClassifyDeadline(o.Deadline, now)
	default:
		return valueobject.DeadlineStatusNone
	}
}

func (o *DesignOrder) ensureTransition(to valueobject.OrderStatus, action string) error {
	if !o.Status.CanTransitionTo(to) {
		return invalidState(action, o.Status)
	}
	return nil
}

func (o *DesignOrder) resetDeadline(now time.Time) {
	deadline := now.Add(o.DeliveryWindow)
	o.Deadline = &deadline
}

func (o *DesignOrder) touch(now time.Time) {
	o.UpdatedAt = now
}

func invalidState(action string, status valueobject.OrderStatus) error {
	return apperror.New(apperror.ErrCodeInvalidState,
		fmt.Sprintf("невозможно %s в статусе %s", action, status))
}
