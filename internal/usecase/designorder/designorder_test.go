package designorder_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/design-orders-backend/internal/usecase/designorder"
)

func (e *env) create(t *testing.T, revisions int) *entity.DesignOrder {
	t.Helper()
	order, err := designorder.NewCreateDesignOrderUseCase(e.deps).Execute(context.Background(), designorder.CreateDesignOrderInput{
		BuyerID:          e.buyer,
		SellerID:         e.seller,
		Title:            "Логотип для кофейни",
		Brief:            "Минимализм, два цвета",
		Amount:           decimal.NewFromInt(1500000),
		RevisionsAllowed: revisions,
		DeliveryDays:     3,
	})
	require.NoError(t, err)
	return order
}

func (e *env) start(t *testing.T, id uuid.UUID) {
	t.Helper()
	_, err := designorder.NewStartWorkUseCase(e.deps).Execute(context.Background(), id, e.seller)
	require.NoError(t, err)
}

// upload регистрирует файл так, как это делает загрузка результата.
func (e *env) upload(t *testing.T, orderID uuid.UUID, name string) string {
	t.Helper()
	path := orderID.String() + "/" + name
	require.NoError(t, e.files.Create(context.Background(), &entity.DeliverableFile{
		ID:         uuid.New(),
		OrderID:    orderID,
		UploaderID: e.seller,
		Path:       path,
		MIMEType:   "image/png",
		Size:       10,
		CreatedAt:  e.clock.Now(),
	}))
	return path
}

func (e *env) deliver(t *testing.T, id uuid.UUID) {
	t.Helper()
	path := e.upload(t, id, "logo-v1.png")
	_, err := designorder.NewDeliverUseCase(e.deps, e.files).Execute(context.Background(), id, e.seller, entity.Deliverable{
		Files: []string{path},
	})
	require.NoError(t, err)
}

func (e *env) accept(id uuid.UUID) (*entity.DesignOrder, error) {
	return designorder.NewAcceptUseCase(e.deps).Execute(context.Background(), id, e.buyer, designorder.AcceptInput{Confirm: true})
}

func (e *env) delivered(t *testing.T, revisions int) *entity.DesignOrder {
	t.Helper()
	order := e.create(t, revisions)
	e.start(t, order.ID)
	e.deliver(t, order.ID)
	return order
}

func (e *env) accepted(t *testing.T) *entity.DesignOrder {
	t.Helper()
	order := e.delivered(t, 2)
	_, err := e.accept(order.ID)
	require.NoError(t, err)
	return order
}

func TestCreateDesignOrder_HoldsFunds(t *testing.T) {
	e := newEnv()
	order := e.create(t, 3)

	stored := e.store.get(order.ID)
	assert.Equal(t, valueobject.OrderStatusPending, stored.Status)
	assert.Equal(t, 72*time.Hour, stored.DeliveryWindow)
	assert.Equal(t, 1, e.ledger.held[order.ID])
	assert.Equal(t, []entity.Action{entity.ActionCreate}, e.store.historyActions(order.ID))
	assert.Equal(t, []entity.EventType{entity.EventOrderCreated}, e.notifier.types())
}

func TestCreateDesignOrder_InsufficientFunds(t *testing.T) {
	e := newEnv()
	e.ledger.holdErr = apperror.ErrInsufficientFunds

	_, err := designorder.NewCreateDesignOrderUseCase(e.deps).Execute(context.Background(), designorder.CreateDesignOrderInput{
		BuyerID:          e.buyer,
		SellerID:         e.seller,
		Title:            "Баннер",
		Amount:           decimal.NewFromInt(100),
		RevisionsAllowed: 1,
	})

	assert.Equal(t, apperror.ErrCodeInsufficientFunds, apperror.CodeOf(err))
	orders, total, _ := e.store.List(context.Background(), emptyFilter())
	assert.Empty(t, orders)
	assert.Zero(t, total)
	assert.Empty(t, e.notifier.types())
}

func TestCreateDesignOrder_Validation(t *testing.T) {
	e := newEnv()
	uc := designorder.NewCreateDesignOrderUseCase(e.deps)

	cases := map[string]designorder.CreateDesignOrderInput{
		"too many revisions": {BuyerID: e.buyer, SellerID: e.seller, Title: "Логотип", Amount: decimal.NewFromInt(1), RevisionsAllowed: 21},
		"self order":         {BuyerID: e.buyer, SellerID: e.buyer, Title: "Логотип", Amount: decimal.NewFromInt(1)},
		"zero amount":        {BuyerID: e.buyer, SellerID: e.seller, Title: "Логотип", Amount: decimal.Zero},
		"empty title":        {BuyerID: e.buyer, SellerID: e.seller, Title: "  ", Amount: decimal.NewFromInt(1)},
		"short title":        {BuyerID: e.buyer, SellerID: e.seller, Title: "ab", Amount: decimal.NewFromInt(1)},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), input)
			assert.Equal(t, apperror.ErrCodeValidation, apperror.CodeOf(err))
		})
	}
}

func TestRoundTrip_DeliverReviseAcceptMature(t *testing.T) {
	e := newEnv()
	order := e.delivered(t, 3)

	_, err := designorder.NewRequestRevisionUseCase(e.deps).Execute(context.Background(), order.ID, e.buyer, "темнее фон")
	require.NoError(t, err)
	e.deliver(t, order.ID)

	accepted, err := e.accept(order.ID)
	require.NoError(t, err)
	require.NotNil(t, accepted.EscrowReleaseAt)
	assert.Equal(t, t0.Add(72*time.Hour), *accepted.EscrowReleaseAt)

	e.clock.Advance(72 * time.Hour)

	completed, err := designorder.NewMatureEscrowUseCase(e.deps).Execute(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCompleted, completed.Status)
	assert.Equal(t, 1, completed.RevisionsUsed)
	assert.Equal(t, 1, e.ledger.releasedCount(order.ID))

	assert.Equal(t, []entity.Action{
		entity.ActionCreate,
		entity.ActionStartWork,
		entity.ActionDeliver,
		entity.ActionRequestRevision,
		entity.ActionDeliver,
		entity.ActionAccept,
		entity.ActionMatureEscrow,
	}, e.store.historyActions(order.ID))
}

func TestRequestRevision_LimitExceeded(t *testing.T) {
	e := newEnv()
	order := e.delivered(t, 3)
	uc := designorder.NewRequestRevisionUseCase(e.deps)

	for i := 1; i <= 3; i++ {
		updated, err := uc.Execute(context.Background(), order.ID, e.buyer, "ещё правка")
		require.NoError(t, err)
		assert.Equal(t, i, updated.RevisionsUsed)
		e.deliver(t, order.ID)
	}

	_, err := uc.Execute(context.Background(), order.ID, e.buyer, "четвёртая")
	assert.Equal(t, apperror.ErrCodeRevisionLimitExceeded, apperror.CodeOf(err))
	assert.Equal(t, 3, e.store.get(order.ID).RevisionsUsed)
	assert.Equal(t, valueobject.OrderStatusDelivered, e.store.get(order.ID).Status)
}

func TestRequestRevision_WarnsBuyerWhenLow(t *testing.T) {
	e := newEnv()
	order := e.delivered(t, 3)

	_, err := designorder.NewRequestRevisionUseCase(e.deps).Execute(context.Background(), order.ID, e.buyer, "правка")
	require.NoError(t, err)

	types := e.notifier.types()
	assert.Contains(t, types, entity.EventRevisionRequested)
	assert.Contains(t, types, entity.EventRevisionsLow)
}

func TestRequestRevision_ConcurrentNeverExceedsLimit(t *testing.T) {
	e := newEnv()
	order := e.delivered(t, 1)
	uc := designorder.NewRequestRevisionUseCase(e.deps)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Execute(context.Background(), order.ID, e.buyer, "правка")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		code := apperror.CodeOf(err)
		assert.Contains(t, []apperror.ErrorCode{
			apperror.ErrCodeConcurrentModification,
			apperror.ErrCodeInvalidState,
		}, code)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, e.store.get(order.ID).RevisionsUsed)
}

func TestAccept_RequiresConfirmation(t *testing.T) {
	e := newEnv()
	order := e.delivered(t, 2)

	_, err := designorder.NewAcceptUseCase(e.deps).Execute(context.Background(), order.ID, e.buyer, designorder.AcceptInput{})
	assert.Equal(t, apperror.ErrCodeConfirmationRequired, apperror.CodeOf(err))
	assert.Equal(t, valueobject.OrderStatusDelivered, e.store.get(order.ID).Status)
}

func TestAccept_OnlyBuyer(t *testing.T) {
	e := newEnv()
	order := e.delivered(t, 2)

	_, err := designorder.NewAcceptUseCase(e.deps).Execute(context.Background(), order.ID, e.seller, designorder.AcceptInput{Confirm: true})
	assert.True(t, apperror.IsForbidden(err))
}

func TestAccept_PendingOrderIsInvalidState(t *testing.T) {
	e := newEnv()
	order := e.create(t, 2)

	_, err := e.accept(order.ID)
	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))
}

func TestAccept_UsesSellerTierHold(t *testing.T) {
	e := newEnv()
	e.deps.Hold = tierHold{"top_rated": 24 * time.Hour}

	order, err := designorder.NewCreateDesignOrderUseCase(e.deps).Execute(context.Background(), designorder.CreateDesignOrderInput{
		BuyerID:          e.buyer,
		SellerID:         e.seller,
		Title:            "Иконки",
		Amount:           decimal.NewFromInt(300),
		RevisionsAllowed: 1,
		SellerTier:       "top_rated",
	})
	require.NoError(t, err)
	e.start(t, order.ID)
	e.deliver(t, order.ID)

	accepted, err := e.accept(order.ID)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(24*time.Hour), *accepted.EscrowReleaseAt)
}

func TestAccept_ConcurrentExactlyOneWins(t *testing.T) {
	e := newEnv()
	order := e.delivered(t, 2)
	e.store.barrier = newBarrier(2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.accept(order.ID)
		}(i)
	}
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperror.IsConcurrentModification(err):
			conflicts++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, valueobject.OrderStatusAccepted, e.store.get(order.ID).Status)
}

func TestMatureEscrow_BeforeReleaseFails(t *testing.T) {
	e := newEnv()
	order := e.accepted(t)

	e.clock.Advance(72*time.Hour - time.Second)
	_, err := designorder.NewMatureEscrowUseCase(e.deps).Execute(context.Background(), order.ID)

	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))
	assert.Equal(t, valueobject.OrderStatusAccepted, e.store.get(order.ID).Status)
	assert.Zero(t, e.ledger.releaseCalls)
}

func TestMatureEscrow_TwiceReleasesOnce(t *testing.T) {
	e := newEnv()
	order := e.accepted(t)
	e.clock.Advance(72 * time.Hour)
	uc := designorder.NewMatureEscrowUseCase(e.deps)

	_, err := uc.Execute(context.Background(), order.ID)
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, valueobject.OrderStatusCompleted, second.Status)
	assert.Equal(t, 1, e.ledger.releaseCalls)
	assert.Equal(t, 1, e.ledger.releasedCount(order.ID))
}

func TestMatureEscrow_ConcurrentReleasesOnce(t *testing.T) {
	e := newEnv()
	order := e.accepted(t)
	e.clock.Advance(73 * time.Hour)
	e.store.barrier = newBarrier(2)
	uc := designorder.NewMatureEscrowUseCase(e.deps)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Execute(context.Background(), order.ID)
		}(i)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 1, e.ledger.releasedCount(order.ID))
	assert.Equal(t, valueobject.OrderStatusCompleted, e.store.get(order.ID).Status)
}

func TestMatureEscrow_PaymentFailureKeepsOrderAccepted(t *testing.T) {
	e := newEnv()
	order := e.accepted(t)
	e.clock.Advance(72 * time.Hour)
	e.ledger.releaseErr = apperror.Wrap(errGateway, apperror.ErrCodePaymentFailed, "не удалось выплатить средства продавцу")
	uc := designorder.NewMatureEscrowUseCase(e.deps)

	_, err := uc.Execute(context.Background(), order.ID)
	assert.Equal(t, apperror.ErrCodePaymentFailed, apperror.CodeOf(err))

	stored := e.store.get(order.ID)
	assert.Equal(t, valueobject.OrderStatusAccepted, stored.Status)
	assert.Nil(t, stored.CompletedAt)
	assert.NotContains(t, e.store.historyActions(order.ID), entity.ActionMatureEscrow)

	e.ledger.releaseErr = nil
	completed, err := uc.Execute(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCompleted, completed.Status)
	assert.Equal(t, 1, e.ledger.releasedCount(order.ID))
}

func TestOpenDispute_AtReleaseBoundaryRejected(t *testing.T) {
	e := newEnv()
	order := e.accepted(t)
	uc := designorder.NewOpenDisputeUseCase(e.deps)

	e.clock.Advance(72 * time.Hour)
	_, err := uc.Execute(context.Background(), order.ID, e.buyer, "не тот шрифт")
	assert.Equal(t, apperror.ErrCodeDisputeWindowClosed, apperror.CodeOf(err))
	assert.Equal(t, valueobject.OrderStatusAccepted, e.store.get(order.ID).Status)
}

func TestOpenDispute_JustBeforeReleaseAllowed(t *testing.T) {
	e := newEnv()
	order := e.accepted(t)

	e.clock.Advance(72*time.Hour - time.Nanosecond)
	disputed, err := designorder.NewOpenDisputeUseCase(e.deps).Execute(context.Background(), order.ID, e.buyer, "не тот шрифт")
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusDisputed, disputed.Status)

	e.clock.Advance(time.Hour)
	_, err = designorder.NewMatureEscrowUseCase(e.deps).Execute(context.Background(), order.ID)
	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))
	assert.Zero(t, e.ledger.releaseCalls)
}

func TestOpenDispute_RequiresReason(t *testing.T) {
	e := newEnv()
	order := e.delivered(t, 1)

	_, err := designorder.NewOpenDisputeUseCase(e.deps).Execute(context.Background(), order.ID, e.seller, " ")
	assert.True(t, apperror.IsValidation(err))
}

func TestCancel_DeliveredIsInvalidState(t *testing.T) {
	e := newEnv()
	order := e.delivered(t, 1)

	_, err := designorder.NewCancelUseCase(e.deps).Execute(context.Background(), order.ID, e.buyer, "передумал")
	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))
	assert.Zero(t, e.ledger.refunded[order.ID])
}

func TestCancel_InProgressRefundsBuyer(t *testing.T) {
	e := newEnv()
	order := e.create(t, 1)
	e.start(t, order.ID)

	cancelled, err := designorder.NewCancelUseCase(e.deps).Execute(context.Background(), order.ID, e.seller, "не успеваю")
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 1, e.ledger.refunded[order.ID])
}

func TestDeliver_RejectsFilesNotUploadedToOrder(t *testing.T) {
	e := newEnv()
	order := e.create(t, 1)
	e.start(t, order.ID)
	other := e.create(t, 1)
	otherPath := e.upload(t, other.ID, "other-order.png")
	own := e.upload(t, order.ID, "logo.png")

	uc := designorder.NewDeliverUseCase(e.deps, e.files)
	cases := map[string][]string{
		"never uploaded":   {"../../../etc/passwd"},
		"other order file": {otherPath},
		"one of many":      {own, order.ID.String() + "/missing.png"},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), order.ID, e.seller, entity.Deliverable{Files: files})
			assert.True(t, apperror.IsValidation(err))
			assert.Equal(t, valueobject.OrderStatusInProgress, e.store.get(order.ID).Status)
		})
	}

	delivered, err := uc.Execute(context.Background(), order.ID, e.seller, entity.Deliverable{Files: []string{own}})
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusDelivered, delivered.Status)
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	e := newEnv()
	order := e.create(t, 1)
	e.start(t, order.ID)
	e.notifier.err = errGateway

	_, err := designorder.NewDeliverUseCase(e.deps, e.files).Execute(context.Background(), order.ID, e.seller, entity.Deliverable{Message: "готово"})
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusDelivered, e.store.get(order.ID).Status)
}

func TestGetDesignOrder_View(t *testing.T) {
	e := newEnv()
	order := e.create(t, 3)
	e.start(t, order.ID)

	e.clock.Advance(30 * time.Hour)
	view, err := designorder.NewGetDesignOrderUseCase(e.deps).Execute(context.Background(), order.ID, e.buyer)
	require.NoError(t, err)
	assert.Equal(t, 3, view.RemainingRevisions)
	assert.False(t, view.RevisionsLow)
	assert.Equal(t, valueobject.DeadlineStatusWarning, view.DeadlineStatus)
	assert.False(t, view.EscrowMatured)

	_, err = designorder.NewGetDesignOrderUseCase(e.deps).Execute(context.Background(), order.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))
}

func TestListMyDesignOrders_ByRole(t *testing.T) {
	e := newEnv()
	e.create(t, 1)
	e.create(t, 2)
	uc := designorder.NewListMyDesignOrdersUseCase(e.deps)

	asSeller, total, err := uc.Execute(context.Background(), designorder.ListMyInput{UserID: e.seller, Role: designorder.RoleSeller})
	require.NoError(t, err)
	assert.Len(t, asSeller, 2)
	assert.Equal(t, 2, total)

	asBuyer, _, err := uc.Execute(context.Background(), designorder.ListMyInput{UserID: e.seller, Role: designorder.RoleBuyer})
	require.NoError(t, err)
	assert.Empty(t, asBuyer)

	_, _, err = uc.Execute(context.Background(), designorder.ListMyInput{UserID: e.seller, Role: "admin"})
	assert.True(t, apperror.IsValidation(err))
}

func TestGetHistory_ParticipantsOnly(t *testing.T) {
	e := newEnv()
	order := e.delivered(t, 1)
	uc := designorder.NewGetHistoryUseCase(e.deps)

	entries, err := uc.Execute(context.Background(), order.ID, e.seller)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, valueobject.OrderStatusInProgress, entries[2].FromStatus)
	assert.Equal(t, valueobject.OrderStatusDelivered, entries[2].ToStatus)

	_, err = uc.Execute(context.Background(), order.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))
}
