package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/design-orders-backend/internal/repository/common"
)

type DeliverableRepositoryAdapter struct {
	db *sqlx.DB
}

func NewDeliverableRepositoryAdapter(db *sqlx.DB) *DeliverableRepositoryAdapter {
	return &DeliverableRepositoryAdapter{db: db}
}

func (r *DeliverableRepositoryAdapter) Create(ctx context.Context, f *entity.DeliverableFile) error {
	_, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO design_order_deliverables (id, order_id, uploader_id, file_path, mime_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, f.ID, f.OrderID, f.UploaderID, f.Path, f.MIMEType, f.Size, f.CreatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить файл результата")
	}
	return nil
}

func (r *DeliverableRepositoryAdapter) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.DeliverableFile, error) {
	var rows []struct {
		ID         uuid.UUID `db:"id"`
		OrderID    uuid.UUID `db:"order_id"`
		UploaderID uuid.UUID `db:"uploader_id"`
		Path       string    `db:"file_path"`
		MIMEType   string    `db:"mime_type"`
		Size       int64     `db:"size_bytes"`
		CreatedAt  time.Time `db:"created_at"`
	}
	err := common.Executor(ctx, r.db).SelectContext(ctx, &rows, `
		SELECT id, order_id, uploader_id, file_path, mime_type, size_bytes, created_at
		FROM design_order_deliverables WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить файлы результата")
	}

	files := make([]entity.DeliverableFile, 0, len(rows))
	for _, row := range rows {
		files = append(files, entity.DeliverableFile(row))
	}
	return files, nil
}
