package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
)

// Transactor выполняет fn в одной транзакции; репозитории берут её из ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DesignOrderRepository interface {
	Create(ctx context.Context, order *entity.DesignOrder) error
	// Update записывает заказ, только если версия в базе совпадает с order.Version.
	// При расхождении возвращает apperror c кодом CONCURRENT_MODIFICATION.
	// После успешной записи order.Version увеличивается.
	Update(ctx context.Context, order *entity.DesignOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.DesignOrder, error)
	List(ctx context.Context, filter DesignOrderFilter) ([]*entity.DesignOrder, int, error)
	// FindMaturedEscrow возвращает принятые заказы с истёкшим удержанием.
	FindMaturedEscrow(ctx context.Context, now time.Time, limit int) ([]*entity.DesignOrder, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, entry entity.HistoryEntry) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.HistoryEntry, error)
}

type DesignOrderFilter struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   string
	Limit    int
	Offset   int
}

type DeliverableRepository interface {
	Create(ctx context.Context, file *entity.DeliverableFile) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.DeliverableFile, error)
}
