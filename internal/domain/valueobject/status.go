package valueobject

import "github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusInProgress        OrderStatus = "in_progress"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusRevisionRequested OrderStatus = "revision_requested"
	OrderStatusAccepted          OrderStatus = "accepted"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusDisputed          OrderStatus = "disputed"
	OrderStatusCancelled         OrderStatus = "cancelled"
)

// transitions описывает допустимые переходы. Обратных переходов нет:
// спор разрешается вне этого сервиса.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:           {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress:        {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:         {OrderStatusRevisionRequested, OrderStatusAccepted, OrderStatusDisputed},
	OrderStatusRevisionRequested: {OrderStatusDelivered, OrderStatusDisputed},
	OrderStatusAccepted:          {OrderStatusCompleted, OrderStatusDisputed},
	OrderStatusCompleted:         {},
	OrderStatusDisputed:          {},
	OrderStatusCancelled:         {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что заказ больше не меняется внутри workflow.
func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0 && s.IsValid()
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}
