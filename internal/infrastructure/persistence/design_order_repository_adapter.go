package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/repository"
	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/design-orders-backend/internal/repository/common"
)

const designOrderColumns = `id, buyer_id, seller_id, title, brief, amount, currency, status, seller_tier,
	revisions_allowed, revisions_used, delivery_window_seconds, deadline, last_delivered_at,
	accepted_at, escrow_release_at, completed_at, cancelled_at, disputed_at, version, created_at, updated_at`

// designOrderRow соответствует строке design_orders.
type designOrderRow struct {
	ID                    uuid.UUID       `db:"id"`
	BuyerID               uuid.UUID       `db:"buyer_id"`
	SellerID              uuid.UUID       `db:"seller_id"`
	Title                 string          `db:"title"`
	Brief                 string          `db:"brief"`
	Amount                decimal.Decimal `db:"amount"`
	Currency              string          `db:"currency"`
	Status                string          `db:"status"`
	SellerTier            string          `db:"seller_tier"`
	RevisionsAllowed      int             `db:"revisions_allowed"`
	RevisionsUsed         int             `db:"revisions_used"`
	DeliveryWindowSeconds int64           `db:"delivery_window_seconds"`
	Deadline              *time.Time      `db:"deadline"`
	LastDeliveredAt       *time.Time      `db:"last_delivered_at"`
	AcceptedAt            *time.Time      `db:"accepted_at"`
	EscrowReleaseAt       *time.Time      `db:"escrow_release_at"`
	CompletedAt           *time.Time      `db:"completed_at"`
	CancelledAt           *time.Time      `db:"cancelled_at"`
	DisputedAt            *time.Time      `db:"disputed_at"`
	Version               int64           `db:"version"`
	CreatedAt             time.Time       `db:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at"`
}

type DesignOrderRepositoryAdapter struct {
	db *sqlx.DB
}

func NewDesignOrderRepositoryAdapter(db *sqlx.DB) *DesignOrderRepositoryAdapter {
	return &DesignOrderRepositoryAdapter{db: db}
}

func (r *DesignOrderRepositoryAdapter) Create(ctx context.Context, order *entity.DesignOrder) error {
	query := `
		INSERT INTO design_orders (` + designOrderColumns + `)
		VALUES (:id, :buyer_id, :seller_id, :title, :brief, :amount, :currency, :status, :seller_tier,
			:revisions_allowed, :revisions_used, :delivery_window_seconds, :deadline, :last_delivered_at,
			:accepted_at, :escrow_release_at, :completed_at, :cancelled_at, :disputed_at, :version, :created_at, :updated_at)
	`

	row := toRow(order)
	bound, args, err := sqlx.Named(query, row)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось подготовить запрос")
	}

	if _, err := common.Executor(ctx, r.db).ExecContext(ctx, r.db.Rebind(bound), args...); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать заказ")
	}
	return nil
}

func (r *DesignOrderRepositoryAdapter) Update(ctx context.Context, order *entity.DesignOrder) error {
	query := `
		UPDATE design_orders
		SET status = $3, revisions_used = $4, deadline = $5, last_delivered_at = $6,
		    accepted_at = $7, escrow_release_at = $8, completed_at = $9, cancelled_at = $10,
		    disputed_at = $11, updated_at = $12, version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := common.Executor(ctx, r.db).ExecContext(ctx, query,
		order.ID,
		order.Version,
		string(order.Status),
		order.RevisionsUsed,
		order.Deadline,
		order.LastDeliveredAt,
		order.AcceptedAt,
		order.EscrowReleaseAt,
		order.CompletedAt,
		order.CancelledAt,
		order.DisputedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить заказ")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if rows == 0 {
		return apperror.ErrConcurrentModified
	}

	order.Version++
	return nil
}

func (r *DesignOrderRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.DesignOrder, error) {
	var row designOrderRow
	query := `SELECT ` + designOrderColumns + ` FROM design_orders WHERE id = $1`

	if err := common.Executor(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заказ")
	}

	return row.toEntity()
}

func (r *DesignOrderRepositoryAdapter) List(ctx context.Context, filter repository.DesignOrderFilter) ([]*entity.DesignOrder, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if filter.BuyerID != nil {
		where += fmt.Sprintf(" AND buyer_id = $%d", argIndex)
		args = append(args, *filter.BuyerID)
		argIndex++
	}
	if filter.SellerID != nil {
		where += fmt.Sprintf(" AND seller_id = $%d", argIndex)
		args = append(args, *filter.SellerID)
		argIndex++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	exec := common.Executor(ctx, r.db)

	var total int
	if err := exec.GetContext(ctx, &total, `SELECT COUNT(*) FROM design_orders`+where, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать заказы")
	}

	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	query := `SELECT ` + designOrderColumns + ` FROM design_orders` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []designOrderRow
	if err := exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить список заказов")
	}

	orders, err := rowsToEntities(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *DesignOrderRepositoryAdapter) FindMaturedEscrow(ctx context.Context, now time.Time, limit int) ([]*entity.DesignOrder, error) {
	query := `
		SELECT ` + designOrderColumns + `
		FROM design_orders
		WHERE status = $1 AND escrow_release_at <= $2
		ORDER BY escrow_release_at ASC
		LIMIT $3
	`

	var rows []designOrderRow
	if err := common.Executor(ctx, r.db).SelectContext(ctx, &rows, query, string(valueobject.OrderStatusAccepted), now, limit); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось выбрать заказы для выплаты")
	}

	return rowsToEntities(rows)
}

func rowsToEntities(rows []designOrderRow) ([]*entity.DesignOrder, error) {
	orders := make([]*entity.DesignOrder, 0, len(rows))
	for i := range rows {
		o, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func toRow(o *entity.DesignOrder) designOrderRow {
	return designOrderRow{
		ID:                    o.ID,
		BuyerID:               o.BuyerID,
		SellerID:              o.SellerID,
		Title:                 o.Title,
		Brief:                 o.Brief,
		Amount:                o.Amount.Amount,
		Currency:              o.Amount.Currency,
		Status:                string(o.Status),
		SellerTier:            o.SellerTier,
		RevisionsAllowed:      o.RevisionsAllowed,
		RevisionsUsed:         o.RevisionsUsed,
		DeliveryWindowSeconds: int64(o.DeliveryWindow / time.Second),
		Deadline:              o.Deadline,
		LastDeliveredAt:       o.LastDeliveredAt,
		AcceptedAt:            o.AcceptedAt,
		EscrowReleaseAt:       o.EscrowReleaseAt,
		CompletedAt:           o.CompletedAt,
		CancelledAt:           o.CancelledAt,
		DisputedAt:            o.DisputedAt,
		Version:               o.Version,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

func (row designOrderRow) toEntity() (*entity.DesignOrder, error) {
	status, err := valueobject.NewOrderStatus(row.Status)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "в базе некорректный статус заказа")
	}

	return &entity.DesignOrder{
		ID:               row.ID,
		BuyerID:          row.BuyerID,
		SellerID:         row.SellerID,
		Title:            row.Title,
		Brief:            row.Brief,
		Amount:           valueobject.Money{Amount: row.Amount, Currency: row.Currency},
		Status:           status,
		SellerTier:       row.SellerTier,
		RevisionsAllowed: row.RevisionsAllowed,
		RevisionsUsed:    row.RevisionsUsed,
		DeliveryWindow:   time.Duration(row.DeliveryWindowSeconds) * time.Second,
		Deadline:         row.Deadline,
		LastDeliveredAt:  row.LastDeliveredAt,
		AcceptedAt:       row.AcceptedAt,
		EscrowReleaseAt:  row.EscrowReleaseAt,
		CompletedAt:      row.CompletedAt,
		CancelledAt:      row.CancelledAt,
		DisputedAt:       row.DisputedAt,
		Version:          row.Version,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}
