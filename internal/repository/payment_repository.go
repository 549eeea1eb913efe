package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/design-orders-backend/internal/clock"
	"github.com/ignatzorin/design-orders-backend/internal/models"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/design-orders-backend/internal/repository/common"
)

var (
	ErrEscrowNotFound = apperror.New(apperror.ErrCodeNotFound, "escrow по заказу не найден")
	// ErrEscrowSettled — escrow уже закрыт в другую сторону (выплата против возврата).
	ErrEscrowSettled = apperror.New(apperror.ErrCodeConflict, "escrow по заказу уже закрыт")
)

const escrowColumns = `id, order_id, buyer_id, seller_id, amount, status, created_at, released_at`

// PaymentRepository ведёт балансы и escrow. Все методы присоединяются к транзакции из ctx,
// поэтому изменение заказа и движение денег фиксируются вместе.
type PaymentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPaymentRepository ставит время проводок и закрытия escrow по clk, теми же часами,
// что и переходы заказа. nil означает системные часы.
func NewPaymentRepository(db *sqlx.DB, clk clock.Clock) *PaymentRepository {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &PaymentRepository{db: db, now: clk.Now}
}

// GetBalance возвращает баланс пользователя, создаёт если не существует.
func (r *PaymentRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	var balance models.UserBalance
	query := `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, available, frozen, updated_at
	`
	if err := common.Executor(ctx, r.db).GetContext(ctx, &balance, query, userID); err != nil {
		return nil, fmt.Errorf("payment repository: get balance %w", err)
	}
	return &balance, nil
}

// Deposit пополняет баланс пользователя.
func (r *PaymentRepository) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := common.WithTransaction(ctx, r.db, func(ctx context.Context) error {
		exec := common.Executor(ctx, r.db)

		_, err := exec.ExecContext(ctx, `
			INSERT INTO user_balances (user_id, available, frozen)
			VALUES ($1, $2, 0)
			ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
		`, userID, amount)
		if err != nil {
			return fmt.Errorf("payment repository: deposit update balance %w", err)
		}

		err = exec.GetContext(ctx, &transaction, `
			INSERT INTO transactions (user_id, type, amount, status, description, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, user_id, order_id, type, amount, status, description, created_at, completed_at
		`, userID, models.TransactionTypeDeposit, amount, models.TransactionStatusCompleted, description, r.now())
		if err != nil {
			return fmt.Errorf("payment repository: deposit create transaction %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// CreateEscrow замораживает средства покупателя под заказ.
// Повторный вызов для того же заказа возвращает существующий escrow.
func (r *PaymentRepository) CreateEscrow(ctx context.Context, orderID, buyerID, sellerID uuid.UUID, amount decimal.Decimal) (*models.Escrow, error) {
	var escrow models.Escrow
	err := common.WithTransaction(ctx, r.db, func(ctx context.Context) error {
		exec := common.Executor(ctx, r.db)

		existing, err := r.lockEscrow(ctx, orderID)
		if err == nil {
			escrow = *existing
			return nil
		}
		if !errors.Is(err, ErrEscrowNotFound) {
			return err
		}

		var balance models.UserBalance
		err = exec.GetContext(ctx, &balance, `SELECT user_id, available, frozen, updated_at FROM user_balances WHERE user_id = $1 FOR UPDATE`, buyerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrInsufficientFunds
			}
			return fmt.Errorf("payment repository: lock balance %w", err)
		}
		if balance.Available.LessThan(amount) {
			return apperror.ErrInsufficientFunds
		}

		_, err = exec.ExecContext(ctx, `
			UPDATE user_balances SET available = available - $2, frozen = frozen + $2, updated_at = NOW()
			WHERE user_id = $1
		`, buyerID, amount)
		if err != nil {
			return fmt.Errorf("payment repository: freeze funds %w", err)
		}

		err = exec.GetContext(ctx, &escrow, `
			INSERT INTO escrow (order_id, buyer_id, seller_id, amount, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+escrowColumns, orderID, buyerID, sellerID, amount, models.EscrowStatusHeld)
		if err != nil {
			if common.IsUniqueViolation(err) {
				return apperror.ErrConcurrentModified
			}
			return fmt.Errorf("payment repository: create escrow %w", err)
		}

		return r.record(ctx, buyerID, orderID, models.TransactionTypeEscrowHold, amount, "Заморозка средств для заказа")
	})
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

// ReleaseEscrow переводит удержанные средства продавцу.
// Если выплата по заказу уже была, ничего не начисляет и возвращает escrow как есть.
func (r *PaymentRepository) ReleaseEscrow(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	return r.settle(ctx, orderID, models.EscrowStatusReleased, func(ctx context.Context, exec common.DBTX, escrow *models.Escrow) error {
		_, err := exec.ExecContext(ctx, `
			UPDATE user_balances SET frozen = frozen - $2, updated_at = NOW()
			WHERE user_id = $1
		`, escrow.BuyerID, escrow.Amount)
		if err != nil {
			return fmt.Errorf("payment repository: unfreeze client %w", err)
		}

		_, err = exec.ExecContext(ctx, `
			INSERT INTO user_balances (user_id, available, frozen)
			VALUES ($1, $2, 0)
			ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
		`, escrow.SellerID, escrow.Amount)
		if err != nil {
			return fmt.Errorf("payment repository: credit seller %w", err)
		}

		return r.record(ctx, escrow.SellerID, orderID, models.TransactionTypeEscrowRelease, escrow.Amount, "Получение оплаты за заказ")
	})
}

// RefundEscrow возвращает средства покупателю. Повторный возврат ничего не делает.
func (r *PaymentRepository) RefundEscrow(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	return r.settle(ctx, orderID, models.EscrowStatusRefunded, func(ctx context.Context, exec common.DBTX, escrow *models.Escrow) error {
		_, err := exec.ExecContext(ctx, `
			UPDATE user_balances SET available = available + $2, frozen = frozen - $2, updated_at = NOW()
			WHERE user_id = $1
		`, escrow.BuyerID, escrow.Amount)
		if err != nil {
			return fmt.Errorf("payment repository: refund client %w", err)
		}

		return r.record(ctx, escrow.BuyerID, orderID, models.TransactionTypeEscrowRefund, escrow.Amount, "Возврат средств за отменённый заказ")
	})
}

// GetEscrowByOrderID возвращает escrow по ID заказа.
func (r *PaymentRepository) GetEscrowByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	err := common.Executor(ctx, r.db).GetContext(ctx, &escrow, `SELECT `+escrowColumns+` FROM escrow WHERE order_id = $1`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: get escrow %w", err)
	}
	return &escrow, nil
}

// ListTransactions возвращает историю транзакций пользователя.
func (r *PaymentRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := common.Executor(ctx, r.db).SelectContext(ctx, &transactions, `
		SELECT id, user_id, order_id, type, amount, status, description, created_at, completed_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("payment repository: list transactions %w", err)
	}
	return transactions, nil
}

type settleFunc func(ctx context.Context, exec common.DBTX, escrow *models.Escrow) error

func (r *PaymentRepository) settle(ctx context.Context, orderID uuid.UUID, target string, apply settleFunc) (*models.Escrow, error) {
	var escrow *models.Escrow
	err := common.WithTransaction(ctx, r.db, func(ctx context.Context) error {
		locked, err := r.lockEscrow(ctx, orderID)
		if err != nil {
			return err
		}
		escrow = locked

		switch locked.Status {
		case target:
			return nil
		case models.EscrowStatusHeld:
		default:
			return ErrEscrowSettled
		}

		exec := common.Executor(ctx, r.db)
		if err := apply(ctx, exec, locked); err != nil {
			return err
		}

		now := r.now()
		if _, err := exec.ExecContext(ctx, `UPDATE escrow SET status = $2, released_at = $3 WHERE id = $1`, locked.ID, target, now); err != nil {
			return fmt.Errorf("payment repository: update escrow %w", err)
		}
		locked.Status = target
		locked.ReleasedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return escrow, nil
}

func (r *PaymentRepository) lockEscrow(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	err := common.Executor(ctx, r.db).GetContext(ctx, &escrow, `SELECT `+escrowColumns+` FROM escrow WHERE order_id = $1 FOR UPDATE`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: lock escrow %w", err)
	}
	return &escrow, nil
}

func (r *PaymentRepository) record(ctx context.Context, userID, orderID uuid.UUID, txType string, amount decimal.Decimal, description string) error {
	_, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO transactions (user_id, order_id, type, amount, status, description, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, userID, orderID, txType, amount, models.TransactionStatusCompleted, description, r.now())
	if err != nil {
		return fmt.Errorf("payment repository: record %s %w", txType, err)
	}
	return nil
}
