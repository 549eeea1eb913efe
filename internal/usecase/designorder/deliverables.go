package designorder

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/repository"
	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/design-orders-backend/internal/storage"
)

type FileStore interface {
	Save(ctx context.Context, orderID uuid.UUID, originalName string, r io.Reader) (*storage.StoredFile, error)
	Delete(ctx context.Context, relativePath string) error
}

// UploadDeliverableUseCase сохраняет файл результата до сдачи работы.
// Статус заказа не меняется: файл попадает в сдачу через Deliver.
type UploadDeliverableUseCase struct {
	deps  Deps
	files repository.DeliverableRepository
	store FileStore
}

func NewUploadDeliverableUseCase(deps Deps, files repository.DeliverableRepository, store FileStore) *UploadDeliverableUseCase {
	return &UploadDeliverableUseCase{deps: deps, files: files, store: store}
}

func (uc *UploadDeliverableUseCase) Execute(ctx context.Context, orderID, sellerID uuid.UUID, name string, r io.Reader) (*entity.DeliverableFile, error) {
	log := uc.deps.Log.WithFields(logrus.Fields{"order_id": orderID, "action": entity.ActionUploadFile})

	order, err := uc.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, uc.deps.fail(log, entity.ActionUploadFile, err)
	}
	if !entity.CanTransition(entity.UserActor(sellerID), order, entity.ActionUploadFile) {
		return nil, uc.deps.fail(log, entity.ActionUploadFile, apperror.ErrForbidden)
	}
	if order.Status != valueobject.OrderStatusInProgress && order.Status != valueobject.OrderStatusRevisionRequested {
		return nil, uc.deps.fail(log, entity.ActionUploadFile,
			apperror.New(apperror.ErrCodeInvalidState, "загружать файлы можно только во время работы над заказом"))
	}

	stored, err := uc.store.Save(ctx, orderID, name, r)
	if err != nil {
		return nil, uc.deps.fail(log, entity.ActionUploadFile, err)
	}

	file := &entity.DeliverableFile{
		ID:         uuid.New(),
		OrderID:    orderID,
		UploaderID: sellerID,
		Path:       stored.Path,
		MIMEType:   stored.MIMEType,
		Size:       stored.Size,
		CreatedAt:  uc.deps.Clock.Now(),
	}
	if err := uc.files.Create(ctx, file); err != nil {
		if delErr := uc.store.Delete(context.WithoutCancel(ctx), stored.Path); delErr != nil {
			log.WithError(delErr).Warn("не удалось удалить файл после ошибки записи")
		}
		return nil, uc.deps.fail(log, entity.ActionUploadFile, err)
	}

	log.WithFields(logrus.Fields{"path": file.Path, "size": file.Size}).Info("файл результата загружен")
	return file, nil
}

type ListDeliverablesUseCase struct {
	deps  Deps
	files repository.DeliverableRepository
}

func NewListDeliverablesUseCase(deps Deps, files repository.DeliverableRepository) *ListDeliverablesUseCase {
	return &ListDeliverablesUseCase{deps: deps, files: files}
}

func (uc *ListDeliverablesUseCase) Execute(ctx context.Context, orderID, userID uuid.UUID) ([]entity.DeliverableFile, error) {
	order, err := uc.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(entity.UserActor(userID), order, entity.ActionView) {
		return nil, apperror.ErrForbidden
	}
	return uc.files.ListByOrder(ctx, orderID)
}
