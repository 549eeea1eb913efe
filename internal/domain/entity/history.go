package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
)

// HistoryEntry описывает запись журнала переходов заказа.
type HistoryEntry struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ActorID    *uuid.UUID
	Action     Action
	FromStatus valueobject.OrderStatus
	ToStatus   valueobject.OrderStatus
	Payload    json.RawMessage
	CreatedAt  time.Time
}

func NewHistoryEntry(orderID uuid.UUID, actor Actor, action Action, from, to valueobject.OrderStatus, payload any, now time.Time) HistoryEntry {
	raw, err := json.Marshal(payload)
	if err != nil || payload == nil {
		raw = json.RawMessage(`{}`)
	}
	return HistoryEntry{
		ID:         uuid.New(),
		OrderID:    orderID,
		ActorID:    actor.ID(),
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		Payload:    raw,
		CreatedAt:  now,
	}
}
