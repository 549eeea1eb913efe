package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы escrow
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// Типы транзакций
const (
	TransactionTypeDeposit       = "deposit"
	TransactionTypeEscrowHold    = "escrow_hold"
	TransactionTypeEscrowRelease = "escrow_release"
	TransactionTypeEscrowRefund  = "escrow_refund"
)

const TransactionStatusCompleted = "completed"

// UserBalance представляет баланс пользователя.
type UserBalance struct {
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Available decimal.Decimal `db:"available" json:"available"`
	Frozen    decimal.Decimal `db:"frozen" json:"frozen"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction представляет финансовую транзакцию.
type Transaction struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	OrderID     *uuid.UUID      `db:"order_id" json:"order_id,omitempty"`
	Type        string          `db:"type" json:"type"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Status      string          `db:"status" json:"status"`
	Description *string         `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// Escrow — средства покупателя, удерживаемые под конкретный заказ.
type Escrow struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	OrderID      uuid.UUID       `db:"order_id" json:"order_id"`
	BuyerID      uuid.UUID       `db:"buyer_id" json:"buyer_id"`
	SellerID     uuid.UUID       `db:"seller_id" json:"seller_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ReleasedAt   *time.Time      `db:"released_at" json:"released_at,omitempty"`
}
