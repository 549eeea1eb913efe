package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
)

type EventType string

const (
	EventOrderCreated      EventType = "design_order.created"
	EventWorkStarted       EventType = "design_order.work_started"
	EventDelivered         EventType = "design_order.delivered"
	EventRevisionRequested EventType = "design_order.revision_requested"
	EventRevisionsLow      EventType = "design_order.revisions_low"
	EventAccepted          EventType = "design_order.accepted"
	EventDisputeOpened     EventType = "design_order.dispute_opened"
	EventEscrowReleased    EventType = "design_order.escrow_released"
	EventCancelled         EventType = "design_order.cancelled"
)

// OrderEvent — уведомление о смене состояния заказа для участников.
type OrderEvent struct {
	Type       EventType               `json:"type"`
	OrderID    uuid.UUID               `json:"order_id"`
	Status     valueobject.OrderStatus `json:"status"`
	Recipients []uuid.UUID             `json:"-"`
	Data       map[string]any          `json:"data,omitempty"`
	OccurredAt time.Time               `json:"occurred_at"`
}

func NewOrderEvent(t EventType, o *DesignOrder, now time.Time, recipients ...uuid.UUID) OrderEvent {
	return OrderEvent{
		Type:       t,
		OrderID:    o.ID,
		Status:     o.Status,
		Recipients: recipients,
		Data:       map[string]any{},
		OccurredAt: now,
	}
}
