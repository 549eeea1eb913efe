package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/design-orders-backend/internal/repository/common"
)

type historyRow struct {
	ID         uuid.UUID       `db:"id"`
	OrderID    uuid.UUID       `db:"order_id"`
	ActorID    *uuid.UUID      `db:"actor_id"`
	Action     string          `db:"action"`
	FromStatus string          `db:"from_status"`
	ToStatus   string          `db:"to_status"`
	Payload    json.RawMessage `db:"payload"`
	CreatedAt  time.Time       `db:"created_at"`
}

type HistoryRepositoryAdapter struct {
	db *sqlx.DB
}

func NewHistoryRepositoryAdapter(db *sqlx.DB) *HistoryRepositoryAdapter {
	return &HistoryRepositoryAdapter{db: db}
}

func (r *HistoryRepositoryAdapter) Append(ctx context.Context, e entity.HistoryEntry) error {
	_, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO design_order_history (id, order_id, actor_id, action, from_status, to_status, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.OrderID, e.ActorID, string(e.Action), string(e.FromStatus), string(e.ToStatus), []byte(e.Payload), e.CreatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось записать историю заказа")
	}
	return nil
}

func (r *HistoryRepositoryAdapter) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.HistoryEntry, error) {
	var rows []historyRow
	err := common.Executor(ctx, r.db).SelectContext(ctx, &rows, `
		SELECT id, order_id, actor_id, action, from_status, to_status, payload, created_at
		FROM design_order_history WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить историю заказа")
	}

	entries := make([]entity.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, entity.HistoryEntry{
			ID:         row.ID,
			OrderID:    row.OrderID,
			ActorID:    row.ActorID,
			Action:     entity.Action(row.Action),
			FromStatus: valueobject.OrderStatus(row.FromStatus),
			ToStatus:   valueobject.OrderStatus(row.ToStatus),
			Payload:    row.Payload,
			CreatedAt:  row.CreatedAt,
		})
	}
	return entries, nil
}
