package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/models"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
)

type PaymentRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*models.Transaction, error)
	CreateEscrow(ctx context.Context, orderID, buyerID, sellerID uuid.UUID, amount decimal.Decimal) (*models.Escrow, error)
	ReleaseEscrow(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
	RefundEscrow(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
	GetEscrowByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
}

type PaymentService struct {
	repo PaymentRepository
}

func NewPaymentService(repo PaymentRepository) *PaymentService {
	return &PaymentService{repo: repo}
}

// GetBalance возвращает баланс пользователя.
func (s *PaymentService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	return s.repo.GetBalance(ctx, userID)
}

// Deposit пополняет баланс.
func (s *PaymentService) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	return s.repo.Deposit(ctx, userID, amount.Round(2), "Пополнение баланса")
}

// HoldForOrder замораживает сумму заказа на балансе покупателя.
func (s *PaymentService) HoldForOrder(ctx context.Context, order *entity.DesignOrder) error {
	_, err := s.repo.CreateEscrow(ctx, order.ID, order.BuyerID, order.SellerID, order.Amount.Amount)
	return paymentError(err, "не удалось заморозить средства")
}

// ReleaseForOrder выплачивает удержанные средства продавцу. Повторный вызов безопасен.
func (s *PaymentService) ReleaseForOrder(ctx context.Context, order *entity.DesignOrder) error {
	_, err := s.repo.ReleaseEscrow(ctx, order.ID)
	return paymentError(err, "не удалось выплатить средства продавцу")
}

// RefundForOrder возвращает удержанные средства покупателю.
func (s *PaymentService) RefundForOrder(ctx context.Context, order *entity.DesignOrder) error {
	_, err := s.repo.RefundEscrow(ctx, order.ID)
	return paymentError(err, "не удалось вернуть средства покупателю")
}

// GetEscrow возвращает escrow по заказу.
func (s *PaymentService) GetEscrow(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	return s.repo.GetEscrowByOrderID(ctx, orderID)
}

// ListTransactions возвращает историю транзакций.
func (s *PaymentService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// paymentError оставляет классифицированные ошибки как есть, остальное считает сбоем платежа.
func paymentError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodePaymentFailed, message)
}
