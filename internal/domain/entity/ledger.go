package entity

import (
	"time"

	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
)

// RemainingRevisions считает остаток правок для API, уведомлений и проверок.
func RemainingRevisions(o *DesignOrder) int {
	remaining := o.RevisionsAllowed - o.RevisionsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RevisionsLow сигнализирует интерфейсу, что пора предупредить покупателя.
func RevisionsLow(o *DesignOrder) bool {
	return RemainingRevisions(o) <= RevisionsLowBoundary
}

// IsEscrowMatured сообщает, можно ли выплатить средства продавцу.
func IsEscrowMatured(o *DesignOrder, now time.Time) bool {
	if o.Status != valueobject.OrderStatusAccepted || o.EscrowReleaseAt == nil {
		return false
	}
	return !now.Before(*o.EscrowReleaseAt)
}
