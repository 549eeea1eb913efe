package entity

import "github.com/google/uuid"

type Action string

const (
	ActionCreate          Action = "create"
	ActionView            Action = "view"
	ActionStartWork       Action = "start_work"
	ActionDeliver         Action = "deliver"
	ActionUploadFile      Action = "upload_file"
	ActionRequestRevision Action = "request_revision"
	ActionAccept          Action = "accept"
	ActionOpenDispute     Action = "open_dispute"
	ActionMatureEscrow    Action = "mature_escrow"
	ActionCancel          Action = "cancel"
)

// Actor инициирует действие: пользователь или система (планировщик).
type Actor struct {
	UserID uuid.UUID
	System bool
}

func UserActor(userID uuid.UUID) Actor {
	return Actor{UserID: userID}
}

func SystemActor() Actor {
	return Actor{System: true}
}

// ID возвращает идентификатор для истории; у системы его нет.
func (a Actor) ID() *uuid.UUID {
	if a.System || a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// CanTransition проверяет право актора на действие с заказом.
// Статус здесь не проверяется: недопустимый переход даёт INVALID_STATE, а не FORBIDDEN.
func CanTransition(actor Actor, order *DesignOrder, action Action) bool {
	if actor.System {
		return action == ActionMatureEscrow || action == ActionView
	}

	switch action {
	case ActionView, ActionOpenDispute, ActionCancel:
		return order.IsParticipant(actor.UserID)
	case ActionStartWork, ActionDeliver, ActionUploadFile:
		return order.IsSeller(actor.UserID)
	case ActionRequestRevision, ActionAccept:
		return order.IsBuyer(actor.UserID)
	default:
		return false
	}
}
